package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var (
	_ repository.InvoiceRepository = (*InvoiceRepo)(nil)
	_ repository.SaleRepository    = (*SaleRepo)(nil)
)

// InvoiceRepo facturas y sus líneas. (tenant_id, prefix, number) es único.
type InvoiceRepo struct{ q Querier }

func NewInvoiceRepository(q Querier) *InvoiceRepo { return &InvoiceRepo{q: q} }

const invoiceColumns = `id, tenant_id, sale_id, customer_id, range_id, prefix, number, date,
	net_total, tax_total, grand_total, status, void_reason, voided_at, created_at, updated_at`

func scanInvoice(row pgxScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	var customerID *string
	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.SaleID, &customerID, &inv.RangeID, &inv.Prefix, &inv.Number, &inv.Date,
		&inv.NetTotal, &inv.TaxTotal, &inv.GrandTotal, &inv.Status, &inv.VoidReason, &inv.VoidedAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.CustomerID = derefStr(customerID)
	return &inv, nil
}

// Create persiste la cabecera y las líneas de detalle.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice, details []*entity.InvoiceDetail) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.TenantID, inv.SaleID, nullIfEmpty(inv.CustomerID), inv.RangeID, inv.Prefix, inv.Number, inv.Date,
		inv.NetTotal, inv.TaxTotal, inv.GrandTotal, inv.Status, inv.VoidReason, inv.VoidedAt,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice number already exists: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	if len(details) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range details {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.InvoiceID = inv.ID
		batch.Queue(`INSERT INTO invoice_details (`+detailColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			d.ID, d.InvoiceID, d.ProductID, d.Quantity, d.UnitPrice, d.TaxRate, d.Subtotal, d.TaxAmount)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert invoice details: %w", err)
	}
	return nil
}

const detailColumns = `id, invoice_id, product_id, quantity, unit_price, tax_rate, subtotal, tax_amount`

// GetByID obtiene una factura de la empresa.
func (r *InvoiceRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1 AND id = $2`
	return r.getOne(ctx, query, tenantID, id)
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1 AND id = $2 FOR UPDATE`
	return r.getOne(ctx, query, tenantID, id)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Invoice, error) {
	return scanOne(r.q.QueryRow(ctx, query, args...), "invoice", func(s pgxScanner, inv *entity.Invoice) error {
		got, err := scanInvoice(s)
		if err == nil {
			*inv = *got
		}
		return err
	})
}

// GetDetails obtiene todas las líneas de una factura.
func (r *InvoiceRepo) GetDetails(ctx context.Context, tenantID, invoiceID string) ([]*entity.InvoiceDetail, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+detailColumns+` FROM invoice_details
		WHERE invoice_id = $2 AND EXISTS (SELECT 1 FROM invoices i WHERE i.id = invoice_id AND i.tenant_id = $1)
		ORDER BY product_id, id`, tenantID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice details: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.InvoiceDetail, error) {
		var d entity.InvoiceDetail
		err := row.Scan(&d.ID, &d.InvoiceID, &d.ProductID, &d.Quantity, &d.UnitPrice, &d.TaxRate, &d.Subtotal, &d.TaxAmount)
		return &d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan invoice details: %w", err)
	}
	return list, nil
}

// Void ISSUED → VOIDED. El número asignado no se libera.
func (r *InvoiceRepo) Void(ctx context.Context, tenantID, id, reason string, at time.Time) error {
	const query = `
		UPDATE invoices SET status = 'VOIDED', void_reason = $3, voided_at = $4, updated_at = $4
		WHERE tenant_id = $1 AND id = $2 AND status = 'ISSUED'`
	tag, err := r.q.Exec(ctx, query, tenantID, id, reason, at)
	if err != nil {
		return fmt.Errorf("void invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		inv, err := r.GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

// ── Ventas ────────────────────────────────────────────────────────────────────

// SaleRepo ventas sobre PostgreSQL (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, tenant_id, invoice_id, quote_id, customer_id, cash_session_id, movement_id,
	cash_movement_id, payment_method, amount_tendered, change_due, created_by, created_at`

func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	query := `INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.TenantID, s.InvoiceID, s.QuoteID, s.CustomerID, s.CashSessionID, s.MovementID,
		s.CashMovementID, s.PaymentMethod, s.AmountTendered, s.ChangeDue, s.CreatedBy, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE tenant_id = $1 AND id = $2`
	var s entity.Sale
	err := r.q.QueryRow(ctx, query, tenantID, id).Scan(
		&s.ID, &s.TenantID, &s.InvoiceID, &s.QuoteID, &s.CustomerID, &s.CashSessionID, &s.MovementID,
		&s.CashMovementID, &s.PaymentMethod, &s.AmountTendered, &s.ChangeDue, &s.CreatedBy, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}
