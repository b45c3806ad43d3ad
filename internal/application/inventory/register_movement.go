package inventory

import (
	"context"
	"net/http"

	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// OperationRegisterMovement tipo de operación registrado en idempotencia.
const OperationRegisterMovement = "inventory.movement"

// Service movimientos manuales y consultas de existencias.
type Service struct {
	gate      *idempotency.Gate
	ledger    *Ledger
	products  repository.ProductRepository
	stock     repository.StockRepository
	movements repository.InventoryMovementRepository
}

// NewService construye el caso de uso. Los repositorios operan fuera de transacción (lecturas).
func NewService(
	gate *idempotency.Gate,
	ledger *Ledger,
	products repository.ProductRepository,
	stock repository.StockRepository,
	movements repository.InventoryMovementRepository,
) *Service {
	return &Service{gate: gate, ledger: ledger, products: products, stock: stock, movements: movements}
}

// RegisterMovement registra un movimiento manual (entrada, salida o ajuste).
func (s *Service) RegisterMovement(ctx context.Context, tenantID, userID, key string, req dto.RegisterMovementRequest) (*idempotency.Outcome[dto.MovementResponse], error) {
	in := MovementInput{
		Type:         req.Type,
		CausedByType: entity.CauseManual,
		Note:         req.Note,
		CreatedBy:    userID,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, MovementLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitCost: it.UnitCost})
	}
	return idempotency.Execute(ctx, s.gate, idempotency.Request{
		TenantID:      tenantID,
		Key:           key,
		Operation:     OperationRegisterMovement,
		Payload:       req,
		SuccessStatus: http.StatusCreated,
	}, func(ctx context.Context, r repository.TxRepos) (dto.MovementResponse, error) {
		mov, err := s.ledger.Apply(ctx, r, tenantID, in)
		if err != nil {
			return dto.MovementResponse{}, err
		}
		return ToMovementResponse(mov), nil
	})
}

// RegisterInitialStock entrada inicial de una carga de catálogo. La clave hace que repetir la
// carga no sume dos veces.
func (s *Service) RegisterInitialStock(ctx context.Context, tenantID, productID, key string, qty, unitCost decimal.Decimal) error {
	req := dto.RegisterMovementRequest{
		Type:  entity.MovementTypeIN,
		Note:  "existencia inicial",
		Items: []dto.MovementItemRequest{{ProductID: productID, Quantity: qty, UnitCost: &unitCost}},
	}
	_, err := s.RegisterMovement(ctx, tenantID, "import", key, req)
	return err
}

// GetBalance saldo actual del producto.
func (s *Service) GetBalance(ctx context.Context, tenantID, productID string) (*dto.StockBalanceResponse, error) {
	p, err := s.products.GetByID(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	bal, err := s.stock.Get(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	return &dto.StockBalanceResponse{
		ProductID:        productID,
		QuantityOnHand:   bal.QuantityOnHand,
		QuantityReserved: bal.QuantityReserved,
		UpdatedAt:        dto.FormatTime(bal.UpdatedAt),
	}, nil
}

// ListMovements historial del producto, más reciente primero.
func (s *Service) ListMovements(ctx context.Context, tenantID, productID string, page dto.PageRequest) ([]dto.MovementResponse, error) {
	page.DefaultPage()
	list, err := s.movements.ListByProduct(ctx, tenantID, productID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, ToMovementResponse(m))
	}
	return out, nil
}

// ToMovementResponse mapea el movimiento a su DTO.
func ToMovementResponse(m *entity.InventoryMovement) dto.MovementResponse {
	out := dto.MovementResponse{
		ID:           m.ID,
		Type:         m.Type,
		CausedByType: m.CausedByType,
		CausedByID:   m.CausedByID,
		Note:         m.Note,
		CreatedAt:    dto.FormatTime(m.CreatedAt),
		Items:        make([]dto.MovementItemResponse, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		out.Items = append(out.Items, dto.MovementItemResponse{
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			UnitCost:     it.UnitCost,
			BalanceAfter: it.BalanceAfter,
		})
	}
	return out
}
