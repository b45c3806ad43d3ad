package repository

import "context"

// TxRepos repositorios atados a una misma transacción. Lo que se escriba a través de ellos
// se confirma o se descarta en bloque.
type TxRepos struct {
	Idempotency    IdempotencyRepository
	Numbering      NumberingRepository
	Stock          StockRepository
	Movements      InventoryMovementRepository
	Products       ProductRepository
	Cash           CashRepository
	Sales          SaleRepository
	Invoices       InvoiceRepository
	Quotes         QuoteRepository
	PurchaseOrders PurchaseOrderRepository
	Returns        ReturnRepository
	Filing         FilingRepository
	Customers      CustomerRepository
	Companies      CompanyRepository
}

// TxRunner ejecuta fn dentro de una transacción. Si fn retorna error se hace rollback;
// si no, commit. Los repos recibidos no deben usarse fuera de fn.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, r TxRepos) error) error
}
