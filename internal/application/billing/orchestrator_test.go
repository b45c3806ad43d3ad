package billing_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/application/cash"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/inventory"
	"github.com/jhoicas/pos-core/internal/application/numbering"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/jhoicas/pos-core/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenant = "tenant-1"
	user   = "cajero-1"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type countingNotifier struct{ n atomic.Int32 }

func (c *countingNotifier) Notify() { c.n.Add(1) }

type fixture struct {
	store     *memory.Store
	orch      *billing.Orchestrator
	allocator *numbering.Allocator
	cash      *cash.Ledger
	notifier  *countingNotifier
	sessionID string
}

// newFixture empresa con dos productos, rango SETP990000000-990000099 y caja abierta con 50.000.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repos()

	require.NoError(t, repos.Companies.Create(ctx, &entity.Company{ID: tenant, Name: "Tienda La 14", NIT: "900123456-7"}))
	products := []entity.Product{
		{ID: "p-cafe", SKU: "CAFE-500", Name: "Café 500g", Price: dec("10000"), Cost: dec("6000"), TaxRate: dec("0.19")},
		{ID: "p-pan", SKU: "PAN-01", Name: "Pan tajado", Price: dec("5000"), Cost: dec("3000"), TaxRate: dec("0")},
	}
	for i := range products {
		p := products[i]
		p.CompanyID = tenant
		p.IsActive = true
		require.NoError(t, repos.Products.Create(ctx, &p))
	}
	_, err := repos.Stock.Adjust(ctx, tenant, "p-cafe", dec("10"))
	require.NoError(t, err)
	_, err = repos.Stock.Adjust(ctx, tenant, "p-pan", dec("3"))
	require.NoError(t, err)

	gate := idempotency.NewGate(store, repos.Idempotency, idempotency.Options{Logger: zerolog.Nop()})
	allocator := numbering.NewAllocator(repos.Numbering, 5, nil, zerolog.Nop())
	today := time.Now().UTC()
	err = store.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		_, err := allocator.Configure(ctx, r, tenant, numbering.RangeConfig{
			ResolutionNumber: "18760000001",
			TechnicalKey:     "fc8eac422eba16e22ffd8c6f94b3f40a6e38162c",
			Prefix:           "SETP",
			RangeFrom:        990000000,
			RangeTo:          990000099,
			DateFrom:         today.AddDate(0, -1, 0),
			DateTo:           today.AddDate(1, 0, 0),
			Environment:      "2",
		})
		return err
	})
	require.NoError(t, err)

	cashLedger := cash.NewLedger(gate, repos.Cash, zerolog.Nop())
	session, err := cashLedger.Open(ctx, tenant, user, "open-session", dto.OpenCashSessionRequest{OpeningAmount: dec("50000")})
	require.NoError(t, err)

	notifier := &countingNotifier{}
	orch := billing.NewOrchestrator(gate, allocator, inventory.NewLedger(zerolog.Nop()), cashLedger, notifier, nil, zerolog.Nop())
	return &fixture{
		store:     store,
		orch:      orch,
		allocator: allocator,
		cash:      cashLedger,
		notifier:  notifier,
		sessionID: session.Value.ID,
	}
}

func (f *fixture) onHand(t *testing.T, productID string) decimal.Decimal {
	t.Helper()
	bal, err := f.store.Repos().Stock.Get(context.Background(), tenant, productID)
	require.NoError(t, err)
	return bal.QuantityOnHand
}

func (f *fixture) remaining(t *testing.T) int64 {
	t.Helper()
	rem, err := f.allocator.PeekRemaining(context.Background(), tenant)
	require.NoError(t, err)
	return rem.Count
}

func (f *fixture) expectedCash(t *testing.T) decimal.Decimal {
	t.Helper()
	cur, err := f.cash.Current(context.Background(), tenant)
	require.NoError(t, err)
	return cur.ExpectedAmount
}

func basicSale() dto.CreateSaleRequest {
	return dto.CreateSaleRequest{
		PaymentMethod:  entity.PaymentMethodCash,
		AmountTendered: decPtr("30000"),
		Items: []dto.SaleItemRequest{
			{ProductID: "p-cafe", Quantity: dec("2")},
			{ProductID: "p-pan", Quantity: dec("1")},
		},
	}
}

func TestCreateSale_CommitsEverySideEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.orch.CreateSale(ctx, tenant, user, "venta-1", basicSale())
	require.NoError(t, err)
	require.False(t, out.Replayed)
	sale := out.Value

	assert.Equal(t, "SETP990000000", sale.InvoiceNumber)
	assert.Equal(t, int64(990000000), sale.Number)
	assert.True(t, sale.NetTotal.Equal(dec("25000")), sale.NetTotal.String())
	assert.True(t, sale.TaxTotal.Equal(dec("3800")), sale.TaxTotal.String())
	assert.True(t, sale.GrandTotal.Equal(dec("28800")), sale.GrandTotal.String())
	assert.True(t, sale.ChangeDue.Equal(dec("1200")), sale.ChangeDue.String())
	assert.Equal(t, f.sessionID, sale.CashSessionID)
	assert.Equal(t, entity.InvoiceStatusIssued, sale.Status)
	assert.Len(t, sale.Items, 2)

	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("8")))
	assert.True(t, f.onHand(t, "p-pan").Equal(dec("2")))
	assert.True(t, f.expectedCash(t).Equal(dec("78800")))
	assert.Equal(t, int64(99), f.remaining(t))

	repos := f.store.Repos()
	inv, err := repos.Invoices.GetByID(ctx, tenant, sale.InvoiceID)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, sale.SaleID, inv.SaleID)

	doc, err := repos.Filing.GetByInvoiceID(ctx, tenant, sale.InvoiceID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, entity.FilingStatusDraft, doc.Status)
	assert.Equal(t, sale.FilingDocumentID, doc.ID)
	assert.Equal(t, int32(1), f.notifier.n.Load())
}

func TestCreateSale_ReplayHasNoNewEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.orch.CreateSale(ctx, tenant, user, "venta-1", basicSale())
	require.NoError(t, err)
	second, err := f.orch.CreateSale(ctx, tenant, user, "venta-1", basicSale())
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, first.Value.SaleID, second.Value.SaleID)
	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("8")))
	assert.True(t, f.expectedCash(t).Equal(dec("78800")))
	assert.Equal(t, int64(99), f.remaining(t))
	assert.Equal(t, int32(1), f.notifier.n.Load())

	// La misma clave con otro contenido no es una repetición.
	changed := basicSale()
	changed.Items[0].Quantity = dec("1")
	_, err = f.orch.CreateSale(ctx, tenant, user, "venta-1", changed)
	assert.ErrorIs(t, err, domain.ErrIdempotencyMismatch)
}

func TestCreateSale_InsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := basicSale()
	req.Items[1].Quantity = dec("4")
	req.AmountTendered = nil

	_, err := f.orch.CreateSale(ctx, tenant, user, "venta-1", req)
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "p-pan", stockErr.ProductID)

	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("10")))
	assert.True(t, f.onHand(t, "p-pan").Equal(dec("3")))
	assert.True(t, f.expectedCash(t).Equal(dec("50000")))
	assert.Equal(t, int64(100), f.remaining(t), "el consecutivo no se consume")
	assert.Equal(t, int32(0), f.notifier.n.Load())

	// El fallo queda registrado y se repite sin reejecutar.
	_, err = f.orch.CreateSale(ctx, tenant, user, "venta-1", req)
	var recorded *domain.RecordedFailure
	require.True(t, errors.As(err, &recorded))
	assert.Equal(t, "INSUFFICIENT_STOCK", recorded.Code)

	// Una nueva venta toma el primer número del rango.
	out, err := f.orch.CreateSale(ctx, tenant, user, "venta-2", basicSale())
	require.NoError(t, err)
	assert.Equal(t, int64(990000000), out.Value.Number)
}

func TestCreateSale_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		edit  func(r *dto.CreateSaleRequest)
		field string
	}{
		{"medio de pago", func(r *dto.CreateSaleRequest) { r.PaymentMethod = "CHEQUE" }, "payment_method"},
		{"pago insuficiente", func(r *dto.CreateSaleRequest) { r.AmountTendered = decPtr("100") }, "amount_tendered"},
		{"tarjeta con vueltas", func(r *dto.CreateSaleRequest) { r.PaymentMethod = entity.PaymentMethodCard }, "amount_tendered"},
		{"producto inexistente", func(r *dto.CreateSaleRequest) { r.Items[0].ProductID = "p-x" }, "items[0].product_id"},
		{"cantidad cero", func(r *dto.CreateSaleRequest) { r.Items[1].Quantity = dec("0") }, "items[1].quantity"},
		{"cliente inexistente", func(r *dto.CreateSaleRequest) { r.CustomerID = "c-x" }, "customer_id"},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := basicSale()
			tc.edit(&req)
			_, err := f.orch.CreateSale(ctx, tenant, user, "val-"+string(rune('a'+i)), req)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "error: %v", err)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
	assert.Equal(t, int64(100), f.remaining(t))
}

func TestCreateSale_RequiresOpenSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cash.Close(ctx, tenant, user, "close", f.sessionID, dto.CloseCashSessionRequest{ClosingAmount: dec("50000")})
	require.NoError(t, err)

	_, err = f.orch.CreateSale(ctx, tenant, user, "venta-1", basicSale())
	assert.ErrorIs(t, err, domain.ErrNoOpenSession)

	req := basicSale()
	req.CashSessionID = f.sessionID
	_, err = f.orch.CreateSale(ctx, tenant, user, "venta-2", req)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("10")))
}

func TestCreateSale_RangeExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	err := f.store.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		rg, err := r.Numbering.Latest(ctx, tenant)
		if err != nil {
			return err
		}
		rg.NextNumber = rg.RangeTo + 1
		rg.Status = entity.RangeStatusExhausted
		return r.Numbering.Update(ctx, rg)
	})
	require.NoError(t, err)

	_, err = f.orch.CreateSale(ctx, tenant, user, "venta-1", basicSale())
	assert.ErrorIs(t, err, domain.ErrRangeExhausted)
	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("10")))
}

func TestCreateSale_LastNumberExhaustsRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := time.Now().UTC()
	err := f.store.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		_, err := f.allocator.Configure(ctx, r, tenant, numbering.RangeConfig{
			ResolutionNumber: "18760000001",
			TechnicalKey:     "fc8eac422eba16e22ffd8c6f94b3f40a6e38162c",
			Prefix:           "SETP",
			RangeFrom:        990000000,
			RangeTo:          990000000,
			DateFrom:         today.AddDate(0, -1, 0),
			DateTo:           today.AddDate(1, 0, 0),
			Environment:      "2",
		})
		return err
	})
	require.NoError(t, err)

	out, err := f.orch.CreateSale(ctx, tenant, user, "venta-1", basicSale())
	require.NoError(t, err)
	assert.Equal(t, int64(990000000), out.Value.Number)

	rg, err := f.store.Repos().Numbering.Latest(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, entity.RangeStatusExhausted, rg.Status)

	cafe, pan, expected := f.onHand(t, "p-cafe"), f.onHand(t, "p-pan"), f.expectedCash(t)
	_, err = f.orch.CreateSale(ctx, tenant, user, "venta-2", basicSale())
	assert.ErrorIs(t, err, domain.ErrRangeExhausted)
	assert.True(t, f.onHand(t, "p-cafe").Equal(cafe))
	assert.True(t, f.onHand(t, "p-pan").Equal(pan))
	assert.True(t, f.expectedCash(t).Equal(expected))
}

func TestCashSession_SaleThenCloseBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.orch.CreateSale(ctx, tenant, user, "venta-1", dto.CreateSaleRequest{
		PaymentMethod: entity.PaymentMethodCash,
		Items:         []dto.SaleItemRequest{{ProductID: "p-pan", Quantity: dec("2"), UnitPrice: decPtr("10000")}},
	})
	require.NoError(t, err)
	require.True(t, out.Value.GrandTotal.Equal(dec("20000")), out.Value.GrandTotal.String())

	closed, err := f.cash.Close(ctx, tenant, user, "cierre-1", f.sessionID, dto.CloseCashSessionRequest{ClosingAmount: dec("70000")})
	require.NoError(t, err)
	session := closed.Value
	assert.Equal(t, "CLOSED", session.Status)
	assert.True(t, session.ExpectedAmount.Equal(dec("70000")), session.ExpectedAmount.String())
	require.NotNil(t, session.Difference)
	assert.True(t, session.Difference.IsZero())
}

func TestCreateSale_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 15
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[int64]bool{}
		short   int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := dto.CreateSaleRequest{
				PaymentMethod: entity.PaymentMethodCard,
				Items:         []dto.SaleItemRequest{{ProductID: "p-cafe", Quantity: dec("1")}},
			}
			out, err := f.orch.CreateSale(ctx, tenant, user, "concurrente-"+string(rune('A'+i)), req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
				short++
				return
			}
			assert.False(t, numbers[out.Value.Number], "número repetido")
			numbers[out.Value.Number] = true
		}(i)
	}
	wg.Wait()

	assert.Len(t, numbers, 10)
	assert.Equal(t, attempts-10, short)
	assert.True(t, f.onHand(t, "p-cafe").IsZero())
	for n := int64(990000000); n < 990000010; n++ {
		assert.True(t, numbers[n], "hueco en la numeración: %d", n)
	}
}

func TestConvertQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q, err := f.orch.CreateQuote(ctx, tenant, user, "cot-1", dto.CreateQuoteRequest{
		Items: []dto.SaleItemRequest{{ProductID: "p-cafe", Quantity: dec("3"), UnitPrice: decPtr("9000")}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.QuoteStatusOpen, q.Value.Status)
	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("10")), "cotizar no mueve inventario")

	conv, err := f.orch.ConvertQuote(ctx, tenant, user, "conv-1", q.Value.ID, dto.ConvertQuoteRequest{PaymentMethod: entity.PaymentMethodTransfer})
	require.NoError(t, err)
	assert.Equal(t, q.Value.ID, conv.Value.QuoteID)
	assert.True(t, conv.Value.NetTotal.Equal(dec("27000")), "usa el precio cotizado")
	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("7")))

	stored, err := f.store.Repos().Quotes.GetByID(ctx, tenant, q.Value.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.QuoteStatusConverted, stored.Status)
	assert.Equal(t, conv.Value.SaleID, stored.SaleID)

	_, err = f.orch.ConvertQuote(ctx, tenant, user, "conv-2", q.Value.ID, dto.ConvertQuoteRequest{PaymentMethod: entity.PaymentMethodTransfer})
	assert.ErrorIs(t, err, domain.ErrQuoteNotOpen)

	again, err := f.orch.ConvertQuote(ctx, tenant, user, "conv-1", q.Value.ID, dto.ConvertQuoteRequest{PaymentMethod: entity.PaymentMethodTransfer})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, conv.Body, again.Body)

	_, err = f.orch.ConvertQuote(ctx, tenant, user, "conv-3", "no-existe", dto.ConvertQuoteRequest{PaymentMethod: entity.PaymentMethodCash})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPurchaseOrderReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	po, err := f.orch.CreatePurchaseOrder(ctx, tenant, "bodega-1", "oc-1", dto.CreatePurchaseOrderRequest{
		Supplier: "Distribuidora Andina",
		Items:    []dto.PurchaseOrderItemRequest{{ProductID: "p-cafe", Quantity: dec("10"), UnitCost: dec("7000")}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderOpen, po.Value.Status)

	rec, err := f.orch.ReceivePurchaseOrder(ctx, tenant, "bodega-1", "rec-1", po.Value.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderReceived, rec.Value.Status)
	assert.NotEmpty(t, rec.Value.MovementID)
	assert.NotNil(t, rec.Value.ReceivedAt)

	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("20")))
	p, err := f.store.Repos().Products.GetByID(ctx, tenant, "p-cafe")
	require.NoError(t, err)
	assert.True(t, p.Cost.Equal(dec("6500")), p.Cost.String())
	assert.Equal(t, int64(100), f.remaining(t), "recibir no consume numeración")

	replay, err := f.orch.ReceivePurchaseOrder(ctx, tenant, "bodega-1", "rec-1", po.Value.ID)
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("20")))

	_, err = f.orch.ReceivePurchaseOrder(ctx, tenant, "bodega-1", "rec-2", po.Value.ID)
	assert.ErrorIs(t, err, domain.ErrPurchaseOrderClosed)
}

func TestCreatePurchaseOrder_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.CreatePurchaseOrder(context.Background(), tenant, "bodega-1", "oc-1", dto.CreatePurchaseOrderRequest{
		Supplier: "Proveedor",
		Items:    []dto.PurchaseOrderItemRequest{{ProductID: "p-x", Quantity: dec("1"), UnitCost: dec("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale, err := f.orch.CreateSale(ctx, tenant, user, "venta-1", basicSale())
	require.NoError(t, err)

	ret, err := f.orch.CreateReturn(ctx, tenant, user, "dev-1", dto.CreateReturnRequest{
		InvoiceID:    sale.Value.InvoiceID,
		Reason:       "empaque roto",
		RefundMethod: entity.PaymentMethodCash,
		Items:        []dto.ReturnItemRequest{{ProductID: "p-cafe", Quantity: dec("1")}},
	})
	require.NoError(t, err)
	assert.True(t, ret.Value.RefundAmount.Equal(dec("11900")), ret.Value.RefundAmount.String())
	assert.NotEmpty(t, ret.Value.CashMovementID)
	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("9")))
	assert.True(t, f.expectedCash(t).Equal(dec("66900")))

	_, err = f.orch.CreateReturn(ctx, tenant, user, "dev-2", dto.CreateReturnRequest{
		InvoiceID: sale.Value.InvoiceID,
		Items:     []dto.ReturnItemRequest{{ProductID: "p-cafe", Quantity: dec("2")}},
	})
	assert.ErrorIs(t, err, domain.ErrReturnExceedsSold)

	_, err = f.orch.CreateReturn(ctx, tenant, user, "dev-3", dto.CreateReturnRequest{
		InvoiceID: sale.Value.InvoiceID,
		Items:     []dto.ReturnItemRequest{{ProductID: "p-otro", Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Sin medio de reembolso solo vuelve el inventario.
	last, err := f.orch.CreateReturn(ctx, tenant, user, "dev-4", dto.CreateReturnRequest{
		InvoiceID: sale.Value.InvoiceID,
		Items:     []dto.ReturnItemRequest{{ProductID: "p-cafe", Quantity: dec("1")}},
	})
	require.NoError(t, err)
	assert.Empty(t, last.Value.CashMovementID)
	assert.True(t, f.onHand(t, "p-cafe").Equal(dec("10")))
	assert.True(t, f.expectedCash(t).Equal(dec("66900")))
}

func TestVoidInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale, err := f.orch.CreateSale(ctx, tenant, user, "venta-1", basicSale())
	require.NoError(t, err)

	voided, err := f.orch.VoidInvoice(ctx, tenant, "admin-1", "anular-1", sale.Value.InvoiceID, dto.VoidInvoiceRequest{Reason: "error de digitación"})
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusVoided, voided.Value.Status)
	assert.Equal(t, "error de digitación", voided.Value.VoidReason)

	_, err = f.orch.VoidInvoice(ctx, tenant, "admin-1", "anular-2", sale.Value.InvoiceID, dto.VoidInvoiceRequest{Reason: "otra vez"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.orch.CreateReturn(ctx, tenant, user, "dev-1", dto.CreateReturnRequest{
		InvoiceID: sale.Value.InvoiceID,
		Items:     []dto.ReturnItemRequest{{ProductID: "p-cafe", Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvoiceVoided)

	// El número anulado no se reutiliza.
	next, err := f.orch.CreateSale(ctx, tenant, user, "venta-2", basicSale())
	require.NoError(t, err)
	assert.Equal(t, sale.Value.Number+1, next.Value.Number)

	_, err = f.orch.VoidInvoice(ctx, tenant, "admin-1", "anular-3", "no-existe", dto.VoidInvoiceRequest{Reason: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvoiceQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repos := f.store.Repos()
	require.NoError(t, repos.Customers.Create(ctx, &entity.Customer{ID: "c-1", CompanyID: tenant, Name: "Ana Gómez", TaxID: "1020304050"}))

	req := basicSale()
	req.CustomerID = "c-1"
	sale, err := f.orch.CreateSale(ctx, tenant, user, "venta-1", req)
	require.NoError(t, err)

	queries := billing.NewInvoiceQueryUseCase(repos.Invoices, repos.Filing, repos.Customers)
	inv, err := queries.GetInvoice(ctx, tenant, sale.Value.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Gómez", inv.CustomerName)
	assert.Equal(t, "SETP990000000", inv.FullNumber)
	assert.Len(t, inv.Details, 2)
	require.NotNil(t, inv.Filing)
	assert.Equal(t, entity.FilingStatusDraft, inv.Filing.Status)

	status, err := queries.GetInvoiceStatus(ctx, tenant, sale.Value.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, sale.Value.FilingDocumentID, status.ID)

	_, err = queries.GetInvoice(ctx, "tenant-2", sale.Value.InvoiceID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
