// Package inventory mantiene los saldos de existencias y su bitácora de movimientos.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/inventory"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MovementLine línea de entrada del ledger. UnitCost solo aplica a entradas (nil = costo actual).
type MovementLine struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitCost  *decimal.Decimal
}

// MovementInput movimiento a aplicar.
type MovementInput struct {
	Type         string
	CausedByType string
	CausedByID   string
	Note         string
	CreatedBy    string
	Items        []MovementLine
}

// Ledger aplica movimientos. Cada saldo cambia solo junto con el movimiento que lo explica,
// en la transacción del llamador.
type Ledger struct {
	log zerolog.Logger
}

// NewLedger construye el ledger.
func NewLedger(log zerolog.Logger) *Ledger {
	return &Ledger{log: log}
}

// Apply aplica todas las líneas o ninguna. Las salidas verifican y descuentan en una sola
// sentencia por producto, en orden de product id para que dos ventas no se bloqueen entre sí.
func (l *Ledger) Apply(ctx context.Context, r repository.TxRepos, tenantID string, in MovementInput) (*entity.InventoryMovement, error) {
	lines, err := mergeLines(in.Type, in.Items)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	mov := &entity.InventoryMovement{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Type:         in.Type,
		CausedByType: in.CausedByType,
		CausedByID:   in.CausedByID,
		Note:         in.Note,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
	}
	if mov.CausedByType == "" {
		mov.CausedByType = entity.CauseManual
	}

	for _, line := range lines {
		product, err := r.Products.GetByID(ctx, tenantID, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, fmt.Errorf("producto %s: %w", line.ProductID, domain.ErrNotFound)
		}

		var (
			bal      *entity.StockBalance
			unitCost = product.Cost
		)
		switch in.Type {
		case entity.MovementTypeOUT:
			bal, err = l.takeOut(ctx, r, tenantID, product, line.Quantity)
		case entity.MovementTypeIN:
			if line.UnitCost != nil {
				unitCost = *line.UnitCost
			}
			bal, err = l.putIn(ctx, r, tenantID, product, line.Quantity, unitCost)
		case entity.MovementTypeADJUST:
			bal, err = r.Stock.Adjust(ctx, tenantID, product.ID, line.Quantity)
		}
		if err != nil {
			return nil, err
		}

		mov.Items = append(mov.Items, entity.MovementItem{
			ID:           uuid.New().String(),
			MovementID:   mov.ID,
			ProductID:    product.ID,
			Quantity:     line.Quantity,
			UnitCost:     unitCost,
			BalanceAfter: bal.QuantityOnHand,
		})
	}

	if err := r.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	l.log.Debug().Str("tenant_id", tenantID).Str("movement_id", mov.ID).Str("type", mov.Type).
		Str("caused_by", mov.CausedByType).Int("items", len(mov.Items)).Msg("movimiento de inventario aplicado")
	return mov, nil
}

func (l *Ledger) takeOut(ctx context.Context, r repository.TxRepos, tenantID string, p *entity.Product, qty decimal.Decimal) (*entity.StockBalance, error) {
	if p.AllowBackorder {
		return r.Stock.Adjust(ctx, tenantID, p.ID, qty.Neg())
	}
	bal, err := r.Stock.Decrement(ctx, tenantID, p.ID, qty)
	if err != nil {
		return nil, err
	}
	if bal != nil {
		return bal, nil
	}
	current, err := r.Stock.Get(ctx, tenantID, p.ID)
	if err != nil {
		return nil, err
	}
	return nil, &domain.InsufficientStockError{
		ProductID: p.ID,
		Requested: qty.String(),
		Available: current.QuantityOnHand.String(),
	}
}

// putIn suma existencias y recalcula el costo promedio ponderado del producto.
func (l *Ledger) putIn(ctx context.Context, r repository.TxRepos, tenantID string, p *entity.Product, qty, unitCost decimal.Decimal) (*entity.StockBalance, error) {
	current, err := r.Stock.GetForUpdate(ctx, tenantID, p.ID)
	if err != nil {
		return nil, err
	}
	newCost := inventory.CostCalculator(current.QuantityOnHand, p.Cost, qty, unitCost)
	if !newCost.Equal(p.Cost) {
		if err := r.Products.UpdateCost(ctx, tenantID, p.ID, newCost); err != nil {
			return nil, err
		}
	}
	return r.Stock.Adjust(ctx, tenantID, p.ID, qty)
}

// mergeLines agrupa por producto y ordena por product id.
func mergeLines(movType string, items []MovementLine) ([]MovementLine, error) {
	switch movType {
	case entity.MovementTypeIN, entity.MovementTypeOUT, entity.MovementTypeADJUST:
	default:
		return nil, domain.NewValidationError("type", "debe ser uno de: IN OUT ADJUST")
	}
	if len(items) == 0 {
		return nil, domain.NewValidationError("items", "es obligatorio")
	}

	byProduct := make(map[string]*MovementLine, len(items))
	for i, it := range items {
		if it.ProductID == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "es obligatorio")
		}
		if movType == entity.MovementTypeADJUST {
			if it.Quantity.IsZero() {
				return nil, domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "no puede ser cero")
			}
		} else if !it.Quantity.IsPositive() {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "debe ser mayor que 0")
		}
		if it.UnitCost != nil && it.UnitCost.IsNegative() {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].unit_cost", i), "debe ser mayor o igual a 0")
		}

		acc, ok := byProduct[it.ProductID]
		if !ok {
			line := it
			byProduct[it.ProductID] = &line
			continue
		}
		// Costo de entrada de líneas repetidas: promedio ponderado de ambas.
		if it.UnitCost != nil && acc.UnitCost != nil {
			c := inventory.CostCalculator(acc.Quantity, *acc.UnitCost, it.Quantity, *it.UnitCost)
			acc.UnitCost = &c
		} else if acc.UnitCost == nil {
			acc.UnitCost = it.UnitCost
		}
		acc.Quantity = acc.Quantity.Add(it.Quantity)
	}

	out := make([]MovementLine, 0, len(byProduct))
	for _, line := range byProduct {
		if movType == entity.MovementTypeADJUST && line.Quantity.IsZero() {
			continue
		}
		out = append(out, *line)
	}
	if len(out) == 0 {
		return nil, domain.NewValidationError("items", "el ajuste neto es cero")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}
