package postgres_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/pos-core/internal/application/billing"
	"github.com/jhoicas/pos-core/internal/application/cash"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/inventory"
	"github.com/jhoicas/pos-core/internal/application/numbering"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/jhoicas/pos-core/internal/infrastructure/postgres"
	"github.com/jhoicas/pos-core/pkg/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openPool conecta a TEST_DATABASE_URL (o al .env del repositorio) y aplica las migraciones.
// Sin base de datos de pruebas la prueba se omite.
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../../.env")
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definido; se omiten pruebas contra PostgreSQL")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

type pgFixture struct {
	tenant    string
	runner    *postgres.TxRunner
	repos     repository.TxRepos
	orch      *billing.Orchestrator
	allocator *numbering.Allocator
	cash      *cash.Ledger
	productID string
}

// newPGFixture cada prueba usa una empresa nueva; las tablas se comparten entre corridas.
func newPGFixture(t *testing.T, pool *pgxpool.Pool, stock int64) *pgFixture {
	t.Helper()
	ctx := context.Background()
	tenant := uuid.NewString()
	runner := postgres.NewTxRunner(pool)
	repos := postgres.NewRepos(pool)

	nit := fmt.Sprintf("9%08d-%d", rand.Intn(100000000), rand.Intn(10))
	require.NoError(t, repos.Companies.Create(ctx, &entity.Company{ID: tenant, Name: "Pruebas " + tenant[:8], NIT: nit}))
	productID := uuid.NewString()
	require.NoError(t, repos.Products.Create(ctx, &entity.Product{
		ID: productID, CompanyID: tenant, SKU: "CAFE-" + tenant[:8], Name: "Café 500g",
		Price: decimal.NewFromInt(10000), Cost: decimal.NewFromInt(6000),
		TaxRate: decimal.RequireFromString("0.19"), IsActive: true,
	}))
	_, err := repos.Stock.Adjust(ctx, tenant, productID, decimal.NewFromInt(stock))
	require.NoError(t, err)

	log := zerolog.Nop()
	gate := idempotency.NewGate(runner, repos.Idempotency, idempotency.Options{Logger: log})
	allocator := numbering.NewAllocator(repos.Numbering, 5, nil, log)
	today := time.Now().UTC()
	require.NoError(t, runner.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		_, err := allocator.Configure(ctx, r, tenant, numbering.RangeConfig{
			ResolutionNumber: "18760000001",
			Prefix:           "SETP",
			RangeFrom:        1,
			RangeTo:          100,
			DateFrom:         today.AddDate(0, -1, 0),
			DateTo:           today.AddDate(1, 0, 0),
			Environment:      "2",
		})
		return err
	}))

	cashLedger := cash.NewLedger(gate, repos.Cash, log)
	_, err = cashLedger.Open(ctx, tenant, "cajero-1", "open-"+tenant, dto.OpenCashSessionRequest{OpeningAmount: decimal.NewFromInt(50000)})
	require.NoError(t, err)

	return &pgFixture{
		tenant:    tenant,
		runner:    runner,
		repos:     repos,
		orch:      billing.NewOrchestrator(gate, allocator, inventory.NewLedger(log), cashLedger, nil, nil, log),
		allocator: allocator,
		cash:      cashLedger,
		productID: productID,
	}
}

func (f *pgFixture) sale(qty int64) dto.CreateSaleRequest {
	return dto.CreateSaleRequest{
		PaymentMethod: entity.PaymentMethodCash,
		Items:         []dto.SaleItemRequest{{ProductID: f.productID, Quantity: decimal.NewFromInt(qty)}},
	}
}

func TestPostgres_SaleCommitsEverything(t *testing.T) {
	pool := openPool(t)
	f := newPGFixture(t, pool, 10)
	ctx := context.Background()

	out, err := f.orch.CreateSale(ctx, f.tenant, "cajero-1", "venta-1", f.sale(2))
	require.NoError(t, err)
	assert.Equal(t, "SETP1", out.Value.InvoiceNumber)
	assert.True(t, out.Value.GrandTotal.Equal(decimal.NewFromInt(23800)))

	again, err := f.orch.CreateSale(ctx, f.tenant, "cajero-1", "venta-1", f.sale(2))
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, out.Body, again.Body)

	bal, err := f.repos.Stock.Get(ctx, f.tenant, f.productID)
	require.NoError(t, err)
	assert.True(t, bal.QuantityOnHand.Equal(decimal.NewFromInt(8)))

	cur, err := f.cash.Current(ctx, f.tenant)
	require.NoError(t, err)
	assert.True(t, cur.ExpectedAmount.Equal(decimal.NewFromInt(73800)), cur.ExpectedAmount.String())

	doc, err := f.repos.Filing.GetByInvoiceID(ctx, f.tenant, out.Value.InvoiceID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, entity.FilingStatusDraft, doc.Status)
}

func TestPostgres_FailedSaleRollsBack(t *testing.T) {
	pool := openPool(t)
	f := newPGFixture(t, pool, 1)
	ctx := context.Background()

	_, err := f.orch.CreateSale(ctx, f.tenant, "cajero-1", "venta-1", f.sale(5))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	rem, err := f.allocator.PeekRemaining(ctx, f.tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(100), rem.Count, "el número no se consume")

	_, err = f.orch.CreateSale(ctx, f.tenant, "cajero-1", "venta-1", f.sale(5))
	var recorded *domain.RecordedFailure
	require.ErrorAs(t, err, &recorded)
	assert.Equal(t, "INSUFFICIENT_STOCK", recorded.Code)
}

func TestPostgres_ConcurrentSalesAreGapless(t *testing.T) {
	pool := openPool(t)
	f := newPGFixture(t, pool, 6)
	ctx := context.Background()

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[int64]bool{}
		okCount int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := f.orch.CreateSale(ctx, f.tenant, "cajero-1", fmt.Sprintf("venta-%d", i), f.sale(1))
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
				return
			}
			mu.Lock()
			numbers[out.Value.Number] = true
			okCount++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 6, okCount)
	for i := int64(1); i <= 6; i++ {
		assert.True(t, numbers[i], "falta el número %d", i)
	}
	bal, err := f.repos.Stock.Get(ctx, f.tenant, f.productID)
	require.NoError(t, err)
	assert.True(t, bal.QuantityOnHand.IsZero())
}

func TestPostgres_FilingClaimIsExclusive(t *testing.T) {
	pool := openPool(t)
	f := newPGFixture(t, pool, 5)
	ctx := context.Background()
	_, err := f.orch.CreateSale(ctx, f.tenant, "cajero-1", "venta-1", f.sale(1))
	require.NoError(t, err)

	now := time.Now().UTC().Add(time.Second)
	first, err := f.repos.Filing.ClaimDue(ctx, "worker-a", now, time.Minute, 1000)
	require.NoError(t, err)
	second, err := f.repos.Filing.ClaimDue(ctx, "worker-b", now, time.Minute, 1000)
	require.NoError(t, err)

	mine := func(docs []*entity.FilingDocument) int {
		n := 0
		for _, d := range docs {
			if d.TenantID == f.tenant {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, mine(first))
	assert.Zero(t, mine(second), "un documento reclamado no se entrega a otro worker mientras dura el lease")
}
