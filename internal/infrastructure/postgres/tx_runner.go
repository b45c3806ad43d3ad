package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepos arma el juego completo de repos sobre un Querier (pool fuera de tx, pgx.Tx dentro).
func NewRepos(q Querier) repository.TxRepos {
	return repository.TxRepos{
		Idempotency:    NewIdempotencyRepository(q),
		Numbering:      NewNumberingRepository(q),
		Stock:          NewStockRepository(q),
		Movements:      NewInventoryMovementRepository(q),
		Products:       NewProductRepository(q),
		Cash:           NewCashRepository(q),
		Sales:          NewSaleRepository(q),
		Invoices:       NewInvoiceRepository(q),
		Quotes:         NewQuoteRepository(q),
		PurchaseOrders: NewPurchaseOrderRepository(q),
		Returns:        NewReturnRepository(q),
		Filing:         NewFilingRepository(q),
		Customers:      NewCustomerRepository(q),
		Companies:      NewCompanyRepository(q),
	}
}
