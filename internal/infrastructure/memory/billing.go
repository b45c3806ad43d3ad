package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.SaleRepository          = (*SaleRepo)(nil)
	_ repository.InvoiceRepository       = (*InvoiceRepo)(nil)
	_ repository.QuoteRepository         = (*QuoteRepo)(nil)
	_ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)
	_ repository.ReturnRepository        = (*ReturnRepo)(nil)
	_ repository.CustomerRepository      = (*CustomerRepo)(nil)
	_ repository.CompanyRepository       = (*CompanyRepo)(nil)
)

// ── Ventas ────────────────────────────────────────────────────────────────────

// SaleRepo ventas en memoria.
type SaleRepo struct{ v view }

func (r *SaleRepo) Create(_ context.Context, s *entity.Sale) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		st.sales[s.ID] = *s
		return nil
	})
}

func (r *SaleRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Sale, error) {
	var out *entity.Sale
	err := r.v.read(func(st *state) error {
		if s, ok := st.sales[id]; ok && s.TenantID == tenantID {
			out = &s
		}
		return nil
	})
	return out, err
}

// ── Facturas ──────────────────────────────────────────────────────────────────

// InvoiceRepo facturas en memoria.
type InvoiceRepo struct{ v view }

func (r *InvoiceRepo) Create(_ context.Context, inv *entity.Invoice, details []*entity.InvoiceDetail) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		for _, other := range st.invoices {
			if other.TenantID == inv.TenantID && other.Prefix == inv.Prefix && other.Number == inv.Number {
				return domain.ErrConflict
			}
		}
		st.invoices[inv.ID] = *inv
		list := make([]entity.InvoiceDetail, 0, len(details))
		for _, d := range details {
			if d.ID == "" {
				d.ID = uuid.New().String()
			}
			d.InvoiceID = inv.ID
			list = append(list, *d)
		}
		st.details[inv.ID] = list
		return nil
	})
}

func (r *InvoiceRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Invoice, error) {
	var out *entity.Invoice
	err := r.v.read(func(st *state) error {
		if inv, ok := st.invoices[id]; ok && inv.TenantID == tenantID {
			out = &inv
		}
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *InvoiceRepo) GetDetails(_ context.Context, tenantID, invoiceID string) ([]*entity.InvoiceDetail, error) {
	var list []*entity.InvoiceDetail
	err := r.v.read(func(st *state) error {
		inv, ok := st.invoices[invoiceID]
		if !ok || inv.TenantID != tenantID {
			return nil
		}
		for _, d := range st.details[invoiceID] {
			found := d
			list = append(list, &found)
		}
		return nil
	})
	return list, err
}

func (r *InvoiceRepo) Void(_ context.Context, tenantID, id, reason string, at time.Time) error {
	return r.v.write(func(st *state) error {
		inv, ok := st.invoices[id]
		if !ok || inv.TenantID != tenantID {
			return domain.ErrNotFound
		}
		if !inv.CanVoid() {
			return domain.ErrInvalidTransition
		}
		inv.Status = entity.InvoiceStatusVoided
		inv.VoidReason = reason
		inv.VoidedAt = &at
		inv.UpdatedAt = at
		st.invoices[id] = inv
		return nil
	})
}

// ── Cotizaciones ──────────────────────────────────────────────────────────────

// QuoteRepo cotizaciones en memoria.
type QuoteRepo struct{ v view }

func (r *QuoteRepo) Create(_ context.Context, q *entity.Quote) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		cp := *q
		cp.Items = append([]entity.QuoteItem(nil), q.Items...)
		st.quotes[q.ID] = cp
		return nil
	})
}

func (r *QuoteRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Quote, error) {
	var out *entity.Quote
	err := r.v.read(func(st *state) error {
		if q, ok := st.quotes[id]; ok && q.TenantID == tenantID {
			out = &q
		}
		return nil
	})
	return out, err
}

func (r *QuoteRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Quote, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *QuoteRepo) MarkConverted(_ context.Context, tenantID, id, saleID string) error {
	return r.v.write(func(st *state) error {
		q, ok := st.quotes[id]
		if !ok || q.TenantID != tenantID {
			return domain.ErrNotFound
		}
		if q.Status != entity.QuoteStatusOpen {
			return domain.ErrQuoteNotOpen
		}
		q.Status = entity.QuoteStatusConverted
		q.SaleID = saleID
		q.UpdatedAt = time.Now().UTC()
		st.quotes[id] = q
		return nil
	})
}

// ── Órdenes de compra ─────────────────────────────────────────────────────────

// PurchaseOrderRepo órdenes de compra en memoria.
type PurchaseOrderRepo struct{ v view }

func (r *PurchaseOrderRepo) Create(_ context.Context, po *entity.PurchaseOrder) error {
	if po.ID == "" {
		po.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		cp := *po
		cp.Items = append([]entity.PurchaseOrderItem(nil), po.Items...)
		st.purchaseOrders[po.ID] = cp
		return nil
	})
}

func (r *PurchaseOrderRepo) GetByID(_ context.Context, tenantID, id string) (*entity.PurchaseOrder, error) {
	var out *entity.PurchaseOrder
	err := r.v.read(func(st *state) error {
		if po, ok := st.purchaseOrders[id]; ok && po.TenantID == tenantID {
			out = &po
		}
		return nil
	})
	return out, err
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.PurchaseOrder, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *PurchaseOrderRepo) MarkReceived(_ context.Context, tenantID, id, movementID string, at time.Time) error {
	return r.v.write(func(st *state) error {
		po, ok := st.purchaseOrders[id]
		if !ok || po.TenantID != tenantID {
			return domain.ErrNotFound
		}
		if po.Status != entity.PurchaseOrderOpen {
			return domain.ErrPurchaseOrderClosed
		}
		po.Status = entity.PurchaseOrderReceived
		po.MovementID = movementID
		po.ReceivedAt = &at
		po.UpdatedAt = at
		st.purchaseOrders[id] = po
		return nil
	})
}

// ── Devoluciones ──────────────────────────────────────────────────────────────

// ReturnRepo devoluciones en memoria.
type ReturnRepo struct{ v view }

func (r *ReturnRepo) Create(_ context.Context, ret *entity.SaleReturn) error {
	if ret.ID == "" {
		ret.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		cp := *ret
		cp.Items = append([]entity.ReturnItem(nil), ret.Items...)
		st.returns = append(st.returns, cp)
		return nil
	})
}

func (r *ReturnRepo) ReturnedQuantities(_ context.Context, tenantID, invoiceID string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	err := r.v.read(func(st *state) error {
		for _, ret := range st.returns {
			if ret.TenantID != tenantID || ret.InvoiceID != invoiceID {
				continue
			}
			for _, it := range ret.Items {
				out[it.ProductID] = out[it.ProductID].Add(it.Quantity)
			}
		}
		return nil
	})
	return out, err
}

// ── Clientes y empresas ───────────────────────────────────────────────────────

// CustomerRepo clientes en memoria.
type CustomerRepo struct{ v view }

func (r *CustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		for _, other := range st.customers {
			if other.ID == c.ID || (c.TaxID != "" && other.CompanyID == c.CompanyID && other.TaxID == c.TaxID) {
				return domain.ErrDuplicate
			}
		}
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *CustomerRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Customer, error) {
	var out *entity.Customer
	err := r.v.read(func(st *state) error {
		if c, ok := st.customers[id]; ok && c.CompanyID == tenantID {
			out = &c
		}
		return nil
	})
	return out, err
}

// CompanyRepo empresas en memoria.
type CompanyRepo struct{ v view }

func (r *CompanyRepo) Create(_ context.Context, c *entity.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		for _, other := range st.companies {
			if other.ID == c.ID || other.NIT == c.NIT {
				return domain.ErrDuplicate
			}
		}
		st.companies[c.ID] = *c
		return nil
	})
}

func (r *CompanyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	var out *entity.Company
	err := r.v.read(func(st *state) error {
		if c, ok := st.companies[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}
