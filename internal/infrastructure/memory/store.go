// Package memory implementa los repositorios en memoria (desarrollo y pruebas).
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var _ repository.TxRunner = (*Store)(nil)

// Store guarda todo el estado detrás de un único mutex. Run simula una transacción:
// toma el mutex, guarda un snapshot y lo restaura si fn falla.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Repos devuelve repositorios fuera de transacción: cada llamada toma el mutex.
// No deben usarse dentro de Run (el mutex ya está tomado).
func (s *Store) Repos() repository.TxRepos {
	return s.bind(view{s: s})
}

// Run ejecuta fn con repos atados a la "transacción". Las escrituras se descartan si fn falla.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, r repository.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, s.bind(view{s: s, locked: true})); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) bind(v view) repository.TxRepos {
	return repository.TxRepos{
		Idempotency:    &IdempotencyRepo{v},
		Numbering:      &NumberingRepo{v},
		Stock:          &StockRepo{v},
		Movements:      &InventoryMovementRepo{v},
		Products:       &ProductRepo{v},
		Cash:           &CashRepo{v},
		Sales:          &SaleRepo{v},
		Invoices:       &InvoiceRepo{v},
		Quotes:         &QuoteRepo{v},
		PurchaseOrders: &PurchaseOrderRepo{v},
		Returns:        &ReturnRepo{v},
		Filing:         &FilingRepo{v},
		Customers:      &CustomerRepo{v},
		Companies:      &CompanyRepo{v},
	}
}

// view acceso al estado; fuera de Run cada operación toma el mutex.
type view struct {
	s      *Store
	locked bool
}

func (v view) read(fn func(st *state) error) error {
	if !v.locked {
		v.s.mu.Lock()
		defer v.s.mu.Unlock()
	}
	return fn(v.s.st)
}

// write fuera de Run es atómico por sí mismo: si fn falla se restaura el estado previo.
func (v view) write(fn func(st *state) error) error {
	if v.locked {
		return fn(v.s.st)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	snapshot := v.s.st.clone()
	if err := fn(v.s.st); err != nil {
		v.s.st = snapshot
		return err
	}
	return nil
}

type state struct {
	idempotency    map[string]entity.IdempotencyRecord
	ranges         map[string]entity.NumberingRange
	stock          map[string]entity.StockBalance
	movements      []entity.InventoryMovement
	products       map[string]entity.Product
	sessions       map[string]entity.CashSession
	cashMovements  []entity.CashMovement
	sales          map[string]entity.Sale
	invoices       map[string]entity.Invoice
	details        map[string][]entity.InvoiceDetail
	quotes         map[string]entity.Quote
	purchaseOrders map[string]entity.PurchaseOrder
	returns        []entity.SaleReturn
	filing         map[string]entity.FilingDocument
	customers      map[string]entity.Customer
	companies      map[string]entity.Company
}

func newState() *state {
	return &state{
		idempotency:    map[string]entity.IdempotencyRecord{},
		ranges:         map[string]entity.NumberingRange{},
		stock:          map[string]entity.StockBalance{},
		products:       map[string]entity.Product{},
		sessions:       map[string]entity.CashSession{},
		sales:          map[string]entity.Sale{},
		invoices:       map[string]entity.Invoice{},
		details:        map[string][]entity.InvoiceDetail{},
		quotes:         map[string]entity.Quote{},
		purchaseOrders: map[string]entity.PurchaseOrder{},
		filing:         map[string]entity.FilingDocument{},
		customers:      map[string]entity.Customer{},
		companies:      map[string]entity.Company{},
	}
}

// clone copia superficial: los valores guardados nunca se mutan en sitio, solo se reemplazan.
func (st *state) clone() *state {
	return &state{
		idempotency:    copyMap(st.idempotency),
		ranges:         copyMap(st.ranges),
		stock:          copyMap(st.stock),
		movements:      append([]entity.InventoryMovement(nil), st.movements...),
		products:       copyMap(st.products),
		sessions:       copyMap(st.sessions),
		cashMovements:  append([]entity.CashMovement(nil), st.cashMovements...),
		sales:          copyMap(st.sales),
		invoices:       copyMap(st.invoices),
		details:        copyMap(st.details),
		quotes:         copyMap(st.quotes),
		purchaseOrders: copyMap(st.purchaseOrders),
		returns:        append([]entity.SaleReturn(nil), st.returns...),
		filing:         copyMap(st.filing),
		customers:      copyMap(st.customers),
		companies:      copyMap(st.companies),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func tenantKey(tenantID, id string) string {
	return tenantID + "|" + id
}
