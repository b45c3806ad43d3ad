package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.StockRepository             = (*StockRepo)(nil)
	_ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)
	_ repository.ProductRepository           = (*ProductRepo)(nil)
)

// ── Stock ─────────────────────────────────────────────────────────────────────

// StockRepo saldos en memoria.
type StockRepo struct{ v view }

func (r *StockRepo) Get(_ context.Context, tenantID, productID string) (*entity.StockBalance, error) {
	var out *entity.StockBalance
	err := r.v.read(func(st *state) error {
		b := st.balance(tenantID, productID)
		out = &b
		return nil
	})
	return out, err
}

// GetForUpdate el mutex del store ya serializa las transacciones.
func (r *StockRepo) GetForUpdate(ctx context.Context, tenantID, productID string) (*entity.StockBalance, error) {
	return r.Get(ctx, tenantID, productID)
}

func (r *StockRepo) Decrement(_ context.Context, tenantID, productID string, qty decimal.Decimal) (*entity.StockBalance, error) {
	var out *entity.StockBalance
	err := r.v.write(func(st *state) error {
		b := st.balance(tenantID, productID)
		if b.QuantityOnHand.LessThan(qty) {
			return nil
		}
		b.QuantityOnHand = b.QuantityOnHand.Sub(qty)
		b.UpdatedAt = time.Now().UTC()
		st.stock[tenantKey(tenantID, productID)] = b
		out = &b
		return nil
	})
	return out, err
}

func (r *StockRepo) Adjust(_ context.Context, tenantID, productID string, delta decimal.Decimal) (*entity.StockBalance, error) {
	var out *entity.StockBalance
	err := r.v.write(func(st *state) error {
		b := st.balance(tenantID, productID)
		b.QuantityOnHand = b.QuantityOnHand.Add(delta)
		b.UpdatedAt = time.Now().UTC()
		st.stock[tenantKey(tenantID, productID)] = b
		out = &b
		return nil
	})
	return out, err
}

func (st *state) balance(tenantID, productID string) entity.StockBalance {
	if b, ok := st.stock[tenantKey(tenantID, productID)]; ok {
		return b
	}
	return entity.StockBalance{TenantID: tenantID, ProductID: productID, QuantityOnHand: decimal.Zero, QuantityReserved: decimal.Zero}
}

// ── Movimientos ───────────────────────────────────────────────────────────────

// InventoryMovementRepo bitácora de movimientos en memoria.
type InventoryMovementRepo struct{ v view }

func (r *InventoryMovementRepo) Create(_ context.Context, m *entity.InventoryMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	for i := range m.Items {
		if m.Items[i].ID == "" {
			m.Items[i].ID = uuid.New().String()
		}
		m.Items[i].MovementID = m.ID
	}
	return r.v.write(func(st *state) error {
		cp := *m
		cp.Items = append([]entity.MovementItem(nil), m.Items...)
		st.movements = append(st.movements, cp)
		return nil
	})
}

func (r *InventoryMovementRepo) GetByID(_ context.Context, tenantID, id string) (*entity.InventoryMovement, error) {
	var out *entity.InventoryMovement
	err := r.v.read(func(st *state) error {
		for _, m := range st.movements {
			if m.ID == id && m.TenantID == tenantID {
				found := m
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

// ListByProduct más recientes primero.
func (r *InventoryMovementRepo) ListByProduct(_ context.Context, tenantID, productID string, limit, offset int) ([]*entity.InventoryMovement, error) {
	var list []*entity.InventoryMovement
	err := r.v.read(func(st *state) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if m.TenantID != tenantID {
				continue
			}
			for _, it := range m.Items {
				if it.ProductID == productID {
					found := m
					list = append(list, &found)
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return paginate(list, limit, offset), nil
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// ── Productos ─────────────────────────────────────────────────────────────────

// ProductRepo catálogo en memoria.
type ProductRepo struct{ v view }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		for _, other := range st.products {
			if other.ID == p.ID || (p.SKU != "" && other.CompanyID == p.CompanyID && other.SKU == p.SKU) {
				return domain.ErrDuplicate
			}
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.v.read(func(st *state) error {
		if p, ok := st.products[id]; ok && p.CompanyID == tenantID {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *ProductRepo) UpdateCost(_ context.Context, tenantID, id string, cost decimal.Decimal) error {
	return r.v.write(func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.CompanyID != tenantID {
			return domain.ErrNotFound
		}
		p.Cost = cost
		p.UpdatedAt = time.Now().UTC()
		st.products[id] = p
		return nil
	})
}
