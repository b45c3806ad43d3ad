package numbering_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/application/numbering"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/jhoicas/pos-core/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "tenant-1"

func setup(t *testing.T, lowThreshold int64) (*numbering.Allocator, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return numbering.NewAllocator(store.Repos().Numbering, lowThreshold, nil, zerolog.Nop()), store
}

func rangeConfig(prefix string, from, to int64) numbering.RangeConfig {
	today := time.Now().UTC()
	return numbering.RangeConfig{
		ResolutionNumber: "18760000001",
		TechnicalKey:     "fc8eac422eba16e22ffd8c6f94b3f40a6e38162c",
		Prefix:           prefix,
		RangeFrom:        from,
		RangeTo:          to,
		DateFrom:         today.AddDate(0, -1, 0),
		DateTo:           today.AddDate(1, 0, 0),
		Environment:      "2",
	}
}

func configure(t *testing.T, a *numbering.Allocator, store *memory.Store, cfg numbering.RangeConfig) *entity.NumberingRange {
	t.Helper()
	var rg *entity.NumberingRange
	err := store.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		var err error
		rg, err = a.Configure(ctx, r, tenant, cfg)
		return err
	})
	require.NoError(t, err)
	return rg
}

func allocate(a *numbering.Allocator, store *memory.Store) (*numbering.Allocation, error) {
	var out *numbering.Allocation
	err := store.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		var err error
		out, err = a.Allocate(ctx, r, tenant, time.Now().UTC())
		return err
	})
	return out, err
}

func TestAllocate_NotConfigured(t *testing.T) {
	a, store := setup(t, 10)
	_, err := allocate(a, store)
	assert.ErrorIs(t, err, domain.ErrRangeNotConfigured)
}

func TestAllocate_SequentialUntilExhausted(t *testing.T) {
	a, store := setup(t, 1)
	configure(t, a, store, rangeConfig("SETP", 990, 992))

	for _, want := range []int64{990, 991, 992} {
		alloc, err := allocate(a, store)
		require.NoError(t, err)
		assert.Equal(t, want, alloc.Number)
		assert.Equal(t, entity.FormatInvoiceNumber("SETP", want), alloc.Formatted)
		assert.Equal(t, int64(992)-want, alloc.Remaining)
	}

	_, err := allocate(a, store)
	assert.ErrorIs(t, err, domain.ErrRangeExhausted)

	rg, err := a.Active(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, entity.RangeStatusExhausted, rg.Status)
	assert.Equal(t, int64(0), rg.Remaining())
}

func TestAllocate_RollbackReturnsNumber(t *testing.T) {
	a, store := setup(t, 0)
	configure(t, a, store, rangeConfig("FE", 1, 100))

	boom := errors.New("fallo posterior")
	err := store.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		alloc, err := a.Allocate(ctx, r, tenant, time.Now().UTC())
		require.NoError(t, err)
		assert.Equal(t, int64(1), alloc.Number)
		return boom
	})
	require.ErrorIs(t, err, boom)

	alloc, err := allocate(a, store)
	require.NoError(t, err)
	assert.Equal(t, int64(1), alloc.Number)
}

func TestAllocate_ExpiredResolution(t *testing.T) {
	a, store := setup(t, 0)
	cfg := rangeConfig("FE", 1, 100)
	cfg.DateFrom = time.Now().UTC().AddDate(-2, 0, 0)
	cfg.DateTo = time.Now().UTC().AddDate(0, 0, -1)
	configure(t, a, store, cfg)

	_, err := allocate(a, store)
	assert.ErrorIs(t, err, domain.ErrRangeExpired)
}

func TestAllocate_ConcurrentNumbersAreUnique(t *testing.T) {
	a, store := setup(t, 0)
	configure(t, a, store, rangeConfig("FE", 1, 1000))

	const workers = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alloc, err := allocate(a, store)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[alloc.Number], "número repetido %d", alloc.Number)
			seen[alloc.Number] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
	for n := int64(1); n <= workers; n++ {
		assert.True(t, seen[n], "hueco en la numeración: falta %d", n)
	}
}

func TestConfigure_SamePrefixKeepsNextNumber(t *testing.T) {
	a, store := setup(t, 0)
	configure(t, a, store, rangeConfig("FE", 1, 10))
	for i := 0; i < 4; i++ {
		_, err := allocate(a, store)
		require.NoError(t, err)
	}

	rg := configure(t, a, store, rangeConfig("FE", 1, 50))
	assert.Equal(t, int64(5), rg.NextNumber)
	assert.Equal(t, int64(50), rg.RangeTo)

	alloc, err := allocate(a, store)
	require.NoError(t, err)
	assert.Equal(t, int64(5), alloc.Number)
}

func TestConfigure_ReopensExhaustedRangeWhenExtended(t *testing.T) {
	a, store := setup(t, 0)
	configure(t, a, store, rangeConfig("FE", 1, 1))
	_, err := allocate(a, store)
	require.NoError(t, err)
	_, err = allocate(a, store)
	require.ErrorIs(t, err, domain.ErrRangeExhausted)

	rg := configure(t, a, store, rangeConfig("FE", 1, 5))
	assert.Equal(t, entity.RangeStatusActive, rg.Status)

	alloc, err := allocate(a, store)
	require.NoError(t, err)
	assert.Equal(t, int64(2), alloc.Number)
}

func TestConfigure_NewPrefixSupersedes(t *testing.T) {
	a, store := setup(t, 0)
	old := configure(t, a, store, rangeConfig("FE", 1, 10))
	_, err := allocate(a, store)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	rg := configure(t, a, store, rangeConfig("SETP", 990000000, 995000000))
	assert.NotEqual(t, old.ID, rg.ID)

	alloc, err := allocate(a, store)
	require.NoError(t, err)
	assert.Equal(t, "SETP", alloc.Prefix)
	assert.Equal(t, int64(990000000), alloc.Number)

	prev, err := store.Repos().Numbering.GetByID(context.Background(), tenant, old.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RangeStatusSuperseded, prev.Status)
}

func TestConfigure_Validation(t *testing.T) {
	a, store := setup(t, 0)
	cfg := rangeConfig(" ", 10, 5)
	cfg.ResolutionNumber = ""

	err := store.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		_, err := a.Configure(ctx, r, tenant, cfg)
		return err
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "prefix")
	assert.Contains(t, verr.Fields, "resolution_number")
	assert.Contains(t, verr.Fields, "range_to")
}

func TestConfigure_RangeToBelowIssuedNumbers(t *testing.T) {
	a, store := setup(t, 0)
	configure(t, a, store, rangeConfig("SETP", 1, 100))
	for i := 0; i < 50; i++ {
		_, err := allocate(a, store)
		require.NoError(t, err)
	}

	err := store.Run(context.Background(), func(ctx context.Context, r repository.TxRepos) error {
		_, err := a.Configure(ctx, r, tenant, rangeConfig("SETP", 1, 10))
		return err
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "range_to")

	rg, err := a.Active(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(100), rg.RangeTo, "el rango anterior sigue intacto")
	assert.Equal(t, int64(51), rg.NextNumber)

	// cerrar el rango justo en el último número emitido es válido y lo agota
	rg = configure(t, a, store, rangeConfig("SETP", 1, 50))
	assert.Equal(t, int64(51), rg.NextNumber)
	assert.Equal(t, entity.RangeStatusExhausted, rg.Status)
	_, err = allocate(a, store)
	assert.ErrorIs(t, err, domain.ErrRangeExhausted)
}

func TestPeekRemaining(t *testing.T) {
	a, store := setup(t, 5)

	rem, err := a.PeekRemaining(context.Background(), tenant)
	require.NoError(t, err)
	assert.True(t, rem.LowRange)
	assert.Zero(t, rem.Count)

	configure(t, a, store, rangeConfig("FE", 1, 10))
	rem, err = a.PeekRemaining(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(10), rem.Count)
	assert.False(t, rem.LowRange)

	for i := 0; i < 5; i++ {
		_, err := allocate(a, store)
		require.NoError(t, err)
	}
	rem, err = a.PeekRemaining(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rem.Count)
	assert.True(t, rem.LowRange)
}

func TestService_ConfigureIsIdempotent(t *testing.T) {
	a, store := setup(t, 0)
	gate := idempotency.NewGate(store, store.Repos().Idempotency, idempotency.Options{Logger: zerolog.Nop()})
	svc := numbering.NewService(gate, a)
	ctx := context.Background()
	today := time.Now().UTC()
	req := dto.ConfigureNumberingRequest{
		ResolutionNumber: "18760000001",
		Prefix:           "FE",
		RangeFrom:        1,
		RangeTo:          100,
		DateFrom:         today.AddDate(0, -1, 0).Format(time.DateOnly),
		DateTo:           today.AddDate(1, 0, 0).Format(time.DateOnly),
		Environment:      "2",
	}

	first, err := svc.Configure(ctx, tenant, "cfg-1", req)
	require.NoError(t, err)
	assert.Equal(t, int64(100), first.Value.Remaining)

	second, err := svc.Configure(ctx, tenant, "cfg-1", req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Body, second.Body)

	cur, err := svc.Current(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, first.Value.ID, cur.ID)
	assert.Equal(t, "FE", cur.Prefix)

	rem, err := svc.Remaining(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(100), rem.Remaining)
}

func TestService_ConfigureRejectsBadDates(t *testing.T) {
	a, store := setup(t, 0)
	gate := idempotency.NewGate(store, store.Repos().Idempotency, idempotency.Options{Logger: zerolog.Nop()})
	svc := numbering.NewService(gate, a)

	_, err := svc.Configure(context.Background(), tenant, "cfg-1", dto.ConfigureNumberingRequest{
		ResolutionNumber: "1",
		Prefix:           "FE",
		RangeFrom:        1,
		RangeTo:          10,
		DateFrom:         "01/01/2026",
		DateTo:           "2027-01-01",
		Environment:      "2",
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "date_from")
}

func TestService_CurrentWithoutRange(t *testing.T) {
	a, store := setup(t, 0)
	gate := idempotency.NewGate(store, store.Repos().Idempotency, idempotency.Options{Logger: zerolog.Nop()})
	_, err := numbering.NewService(gate, a).Current(context.Background(), tenant)
	assert.ErrorIs(t, err, domain.ErrRangeNotConfigured)
}
