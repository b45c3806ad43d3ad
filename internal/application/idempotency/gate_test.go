package idempotency_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/jhoicas/pos-core/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "tenant-1"

type result struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

type payload struct {
	Total int `json:"total"`
}

func newGate(t *testing.T, opts idempotency.Options) (*idempotency.Gate, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	opts.Logger = zerolog.Nop()
	return idempotency.NewGate(store, store.Repos().Idempotency, opts), store
}

func request(key string, total int) idempotency.Request {
	return idempotency.Request{
		TenantID:      tenant,
		Key:           key,
		Operation:     "sale.create",
		Payload:       payload{Total: total},
		SuccessStatus: http.StatusCreated,
	}
}

func TestExecute_ReplaysIdenticalBody(t *testing.T) {
	gate, store := newGate(t, idempotency.Options{})
	ctx := context.Background()
	calls := 0
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) {
		calls++
		return result{ID: "venta-1", Total: 100}, nil
	}

	first, err := idempotency.Execute(ctx, gate, request("k-1", 100), fn)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.Equal(t, http.StatusCreated, first.Status)

	second, err := idempotency.Execute(ctx, gate, request("k-1", 100), fn)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, http.StatusCreated, second.Status)
	assert.Equal(t, 1, calls)

	rec, err := store.Repos().Idempotency.Get(ctx, tenant, "k-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, entity.IdempotencyCompleted, rec.Status)
	assert.Equal(t, first.Body, rec.ResponseBody)
}

func TestExecute_KeysAreScopedPerTenant(t *testing.T) {
	gate, _ := newGate(t, idempotency.Options{})
	ctx := context.Background()
	calls := 0
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) {
		calls++
		return result{ID: "x"}, nil
	}

	_, err := idempotency.Execute(ctx, gate, request("k-1", 1), fn)
	require.NoError(t, err)
	other := request("k-1", 1)
	other.TenantID = "tenant-2"
	out, err := idempotency.Execute(ctx, gate, other, fn)
	require.NoError(t, err)
	assert.False(t, out.Replayed)
	assert.Equal(t, 2, calls)
}

func TestExecute_MismatchedPayload(t *testing.T) {
	gate, _ := newGate(t, idempotency.Options{})
	ctx := context.Background()
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) {
		return result{ID: "venta-1"}, nil
	}

	_, err := idempotency.Execute(ctx, gate, request("k-1", 100), fn)
	require.NoError(t, err)

	_, err = idempotency.Execute(ctx, gate, request("k-1", 200), fn)
	assert.ErrorIs(t, err, domain.ErrIdempotencyMismatch)

	otherOp := request("k-1", 100)
	otherOp.Operation = "quote.create"
	_, err = idempotency.Execute(ctx, gate, otherOp, fn)
	assert.ErrorIs(t, err, domain.ErrIdempotencyMismatch)
}

func TestExecute_DeterministicFailureIsRecorded(t *testing.T) {
	gate, store := newGate(t, idempotency.Options{})
	ctx := context.Background()
	calls := 0
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) {
		calls++
		return result{}, &domain.InsufficientStockError{ProductID: "p-1", Requested: "5", Available: "2"}
	}

	_, err := idempotency.Execute(ctx, gate, request("k-1", 100), fn)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = idempotency.Execute(ctx, gate, request("k-1", 100), fn)
	require.Error(t, err)
	var recorded *domain.RecordedFailure
	require.True(t, errors.As(err, &recorded))
	assert.Equal(t, "INSUFFICIENT_STOCK", recorded.Code)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 1, calls)

	rec, err := store.Repos().Idempotency.Get(ctx, tenant, "k-1")
	require.NoError(t, err)
	assert.Equal(t, entity.IdempotencyFailed, rec.Status)
}

func TestExecute_TransientFailureReleasesKey(t *testing.T) {
	gate, _ := newGate(t, idempotency.Options{})
	ctx := context.Background()
	calls := 0
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) {
		calls++
		if calls == 1 {
			return result{}, errors.New("conexión reiniciada")
		}
		return result{ID: "venta-1"}, nil
	}

	_, err := idempotency.Execute(ctx, gate, request("k-1", 100), fn)
	require.Error(t, err)

	out, err := idempotency.Execute(ctx, gate, request("k-1", 100), fn)
	require.NoError(t, err)
	assert.False(t, out.Replayed)
	assert.Equal(t, "venta-1", out.Value.ID)
	assert.Equal(t, 2, calls)
}

func TestExecute_FailureRollsBackWrites(t *testing.T) {
	gate, store := newGate(t, idempotency.Options{})
	ctx := context.Background()
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) {
		if err := r.Companies.Create(ctx, &entity.Company{ID: "c-1", Name: "Tienda"}); err != nil {
			return result{}, err
		}
		return result{}, domain.ErrConflict
	}

	_, err := idempotency.Execute(ctx, gate, request("k-1", 100), fn)
	require.ErrorIs(t, err, domain.ErrConflict)

	c, err := store.Repos().Companies.GetByID(ctx, "c-1")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestExecute_InProgressKey(t *testing.T) {
	gate, store := newGate(t, idempotency.Options{})
	ctx := context.Background()
	hash, err := idempotency.RequestHash(payload{Total: 100})
	require.NoError(t, err)
	now := time.Now().UTC()
	_, err = store.Repos().Idempotency.Insert(ctx, &entity.IdempotencyRecord{
		TenantID:      tenant,
		RequestKey:    "k-1",
		OperationType: "sale.create",
		RequestHash:   hash,
		Status:        entity.IdempotencyInProgress,
		Attempt:       1,
		LockedUntil:   now.Add(20 * time.Second),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.NoError(t, err)

	_, err = idempotency.Execute(ctx, gate, request("k-1", 100), func(ctx context.Context, r repository.TxRepos) (result, error) {
		t.Fatal("no debe ejecutarse mientras otra solicitud tiene la clave")
		return result{}, nil
	})
	var busy *domain.InProgressError
	require.True(t, errors.As(err, &busy))
	assert.Greater(t, busy.RetryAfter, time.Duration(0))
	assert.ErrorIs(t, err, domain.ErrRequestInProgress)
}

func TestExecute_ReclaimsExpiredLease(t *testing.T) {
	gate, store := newGate(t, idempotency.Options{})
	ctx := context.Background()
	hash, err := idempotency.RequestHash(payload{Total: 100})
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Minute)
	_, err = store.Repos().Idempotency.Insert(ctx, &entity.IdempotencyRecord{
		TenantID:      tenant,
		RequestKey:    "k-1",
		OperationType: "sale.create",
		RequestHash:   hash,
		Status:        entity.IdempotencyInProgress,
		Attempt:       1,
		LockedUntil:   past,
		CreatedAt:     past,
		UpdatedAt:     past,
	})
	require.NoError(t, err)

	out, err := idempotency.Execute(ctx, gate, request("k-1", 100), func(ctx context.Context, r repository.TxRepos) (result, error) {
		return result{ID: "venta-1"}, nil
	})
	require.NoError(t, err)
	assert.False(t, out.Replayed)

	rec, err := gate.Lookup(ctx, tenant, "k-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Attempt)
	assert.Equal(t, entity.IdempotencyCompleted, rec.Status)
}

func TestExecute_ConcurrentSameKeyRunsOnce(t *testing.T) {
	gate, _ := newGate(t, idempotency.Options{})
	ctx := context.Background()
	var mu sync.Mutex
	calls := 0
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return result{ID: "venta-1"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := idempotency.Execute(ctx, gate, request("k-1", 100), fn)
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrRequestInProgress)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
}

func TestExecute_RejectsInvalidKey(t *testing.T) {
	gate, _ := newGate(t, idempotency.Options{})
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) { return result{}, nil }

	_, err := idempotency.Execute(context.Background(), gate, request("", 1), fn)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "idempotency_key")

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	_, err = idempotency.Execute(context.Background(), gate, request(string(long), 1), fn)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]idempotency.CachedResponse
	fail    bool
}

func (c *fakeCache) Get(_ context.Context, tenantID, key string) (*idempotency.CachedResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errors.New("redis caído")
	}
	if resp, ok := c.entries[tenantID+"|"+key]; ok {
		return &resp, nil
	}
	return nil, nil
}

func (c *fakeCache) Put(_ context.Context, tenantID, key string, resp idempotency.CachedResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("redis caído")
	}
	c.entries[tenantID+"|"+key] = resp
	return nil
}

func TestExecute_ReplayCache(t *testing.T) {
	cache := &fakeCache{entries: map[string]idempotency.CachedResponse{}}
	gate, _ := newGate(t, idempotency.Options{Cache: cache})
	ctx := context.Background()
	calls := 0
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) {
		calls++
		return result{ID: "venta-1", Total: 5}, nil
	}

	first, err := idempotency.Execute(ctx, gate, request("k-1", 5), fn)
	require.NoError(t, err)
	require.Contains(t, cache.entries, tenant+"|k-1")

	second, err := idempotency.Execute(ctx, gate, request("k-1", 5), fn)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, 1, calls)
}

func TestExecute_CacheOutageFallsBackToStore(t *testing.T) {
	cache := &fakeCache{entries: map[string]idempotency.CachedResponse{}, fail: true}
	gate, _ := newGate(t, idempotency.Options{Cache: cache})
	ctx := context.Background()
	calls := 0
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) {
		calls++
		return result{ID: "venta-1"}, nil
	}

	_, err := idempotency.Execute(ctx, gate, request("k-1", 5), fn)
	require.NoError(t, err)
	out, err := idempotency.Execute(ctx, gate, request("k-1", 5), fn)
	require.NoError(t, err)
	assert.True(t, out.Replayed)
	assert.Equal(t, 1, calls)
}

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (c *countingRecorder) IdempotencyResult(_, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[result]++
}

func TestExecute_RecordsResults(t *testing.T) {
	rec := &countingRecorder{results: map[string]int{}}
	gate, _ := newGate(t, idempotency.Options{Metrics: rec})
	ctx := context.Background()
	fn := func(ctx context.Context, r repository.TxRepos) (result, error) { return result{ID: "x"}, nil }

	_, _ = idempotency.Execute(ctx, gate, request("k-1", 1), fn)
	_, _ = idempotency.Execute(ctx, gate, request("k-1", 1), fn)
	_, _ = idempotency.Execute(ctx, gate, request("k-1", 2), fn)

	assert.Equal(t, 1, rec.results[idempotency.ResultExecuted])
	assert.Equal(t, 1, rec.results[idempotency.ResultReplayed])
	assert.Equal(t, 1, rec.results[idempotency.ResultMismatch])
}

func TestLookup_UnknownKey(t *testing.T) {
	gate, _ := newGate(t, idempotency.Options{})
	_, err := gate.Lookup(context.Background(), tenant, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
