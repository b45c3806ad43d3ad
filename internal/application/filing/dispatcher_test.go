package filing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/pos-core/internal/application/filing"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "tenant-1"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeBuilder struct {
	calls   int
	bundles []*filing.Bundle
	err     error
}

func (b *fakeBuilder) Build(_ context.Context, bundle *filing.Bundle) (*filing.Signed, error) {
	b.calls++
	b.bundles = append(b.bundles, bundle)
	if b.err != nil {
		return nil, b.err
	}
	return &filing.Signed{
		XML:      []byte("<Invoice/>"),
		CUFE:     "cufe-" + bundle.Invoice.FullNumber(),
		QRData:   "https://catalogo-vpfe-hab.dian.gov.co/document/searchqr?documentkey=x",
		FileName: "z0090012345600026000000001.zip",
	}, nil
}

type fakeSubmitter struct {
	mu          sync.Mutex
	submitErr   error
	submitRes   *filing.SubmitResult
	statusErr   error
	statusRes   *filing.StatusResult
	submits     int
	statusCalls int
}

func (s *fakeSubmitter) Submit(_ context.Context, fileName string, signedXML []byte) (*filing.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	if s.submitRes != nil {
		return s.submitRes, nil
	}
	return &filing.SubmitResult{TrackID: "track-1", Accepted: true}, nil
}

func (s *fakeSubmitter) Status(_ context.Context, trackID string) (*filing.StatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	if s.statusRes != nil {
		return s.statusRes, nil
	}
	return &filing.StatusResult{Done: true, Accepted: true}, nil
}

type busyLocker struct{ busy bool }

type noopUnlock struct{}

func (noopUnlock) Release(context.Context) error { return nil }

func (l *busyLocker) Obtain(context.Context, string, time.Duration) (filing.Unlocker, error) {
	if l.busy {
		return nil, filing.ErrLockBusy
	}
	return noopUnlock{}, nil
}

type transitions struct {
	mu      sync.Mutex
	moves   []string
	retries int
}

func (t *transitions) FilingTransition(from, to string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.moves = append(t.moves, from+"→"+to)
}

func (t *transitions) FilingRetry(string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retries++
}

var cfg = filing.Config{
	PollInterval: time.Second,
	BatchSize:    10,
	MaxAttempts:  3,
	BaseBackoff:  10 * time.Second,
	MaxBackoff:   time.Minute,
	Lease:        30 * time.Second,
}

type fixture struct {
	store     *memory.Store
	clock     *clock
	builder   *fakeBuilder
	submitter *fakeSubmitter
	metrics   *transitions
	docID     string
	invoiceID string
}

// newFixture factura emitida con su documento DRAFT listo para procesar.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repos()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Companies.Create(ctx, &entity.Company{ID: tenant, Name: "Tienda", NIT: "900123456-7"}))
	require.NoError(t, repos.Products.Create(ctx, &entity.Product{ID: "p-1", CompanyID: tenant, Name: "Café", Price: decimal.NewFromInt(1000), IsActive: true}))
	rg := &entity.NumberingRange{
		ID: "rg-1", TenantID: tenant, Prefix: "SETP", RangeFrom: 1, RangeTo: 100, NextNumber: 2,
		DateFrom: now.AddDate(0, -1, 0), DateTo: now.AddDate(1, 0, 0), Status: entity.RangeStatusActive, CreatedAt: now,
	}
	require.NoError(t, repos.Numbering.Create(ctx, rg))
	inv := &entity.Invoice{
		ID: "inv-1", TenantID: tenant, SaleID: "sale-1", RangeID: rg.ID, Prefix: "SETP", Number: 1, Date: now,
		NetTotal: decimal.NewFromInt(1000), GrandTotal: decimal.NewFromInt(1000), Status: entity.InvoiceStatusIssued,
		CreatedAt: now, UpdatedAt: now,
	}
	details := []*entity.InvoiceDetail{{
		ID: "det-1", InvoiceID: inv.ID, ProductID: "p-1", Quantity: decimal.NewFromInt(1),
		UnitPrice: decimal.NewFromInt(1000), Subtotal: decimal.NewFromInt(1000),
	}}
	require.NoError(t, repos.Invoices.Create(ctx, inv, details))
	doc := &entity.FilingDocument{
		ID: "doc-1", TenantID: tenant, InvoiceID: inv.ID, Status: entity.FilingStatusDraft,
		NextAttemptAt: &now, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repos.Filing.Create(ctx, doc))

	return &fixture{
		store:     store,
		clock:     &clock{now: now},
		builder:   &fakeBuilder{},
		submitter: &fakeSubmitter{},
		metrics:   &transitions{},
		docID:     doc.ID,
		invoiceID: inv.ID,
	}
}

func (f *fixture) dispatcher(locker filing.Locker) *filing.Dispatcher {
	return filing.NewDispatcher(f.store.Repos(), f.builder, f.submitter, cfg, filing.Options{
		Locker:   locker,
		Metrics:  f.metrics,
		Logger:   zerolog.Nop(),
		WorkerID: "worker-test",
		Clock:    f.clock.Now,
	})
}

func (f *fixture) doc(t *testing.T) *entity.FilingDocument {
	t.Helper()
	d, err := f.store.Repos().Filing.GetByID(context.Background(), tenant, f.docID)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func runOnce(t *testing.T, d *filing.Dispatcher) int {
	t.Helper()
	n, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	return n
}

func TestDispatcher_HappyPath(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(nil)

	assert.Equal(t, 1, runOnce(t, d))
	doc := f.doc(t)
	assert.Equal(t, entity.FilingStatusSigned, doc.Status)
	assert.Equal(t, "cufe-SETP1", doc.CUFE)
	require.Len(t, f.builder.bundles, 1)
	assert.Equal(t, "Tienda", f.builder.bundles[0].Company.Name)
	assert.Equal(t, "rg-1", f.builder.bundles[0].Range.ID)
	assert.Equal(t, "Consumidor final", f.builder.bundles[0].Customer.Name)

	assert.Equal(t, 1, runOnce(t, d))
	doc = f.doc(t)
	assert.Equal(t, entity.FilingStatusSent, doc.Status)
	assert.Equal(t, "track-1", doc.TrackID)

	// La consulta de estado espera el backoff base.
	assert.Equal(t, 0, runOnce(t, d))
	f.clock.Advance(cfg.BaseBackoff)
	assert.Equal(t, 1, runOnce(t, d))

	doc = f.doc(t)
	assert.Equal(t, entity.FilingStatusAccepted, doc.Status)
	assert.Nil(t, doc.NextAttemptAt)
	assert.NotNil(t, doc.CompletedAt)
	assert.Equal(t, []string{"DRAFT→SIGNED", "SIGNED→SENT", "SENT→ACCEPTED"}, f.metrics.moves)

	f.clock.Advance(time.Hour)
	assert.Equal(t, 0, runOnce(t, d), "un documento terminal no se vuelve a reclamar")
}

func TestDispatcher_TransportFailuresBackOffThenExhaust(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(nil)
	runOnce(t, d) // firma
	f.submitter.submitErr = errors.New("dial tcp: i/o timeout")

	runOnce(t, d)
	doc := f.doc(t)
	assert.Equal(t, entity.FilingStatusSigned, doc.Status)
	assert.Equal(t, 1, doc.Attempts)
	require.NotNil(t, doc.NextAttemptAt)
	assert.Equal(t, f.clock.Now().Add(10*time.Second), *doc.NextAttemptAt)
	assert.Contains(t, doc.LastError, "timeout")

	f.clock.Advance(10 * time.Second)
	runOnce(t, d)
	doc = f.doc(t)
	assert.Equal(t, 2, doc.Attempts)
	assert.Equal(t, f.clock.Now().Add(20*time.Second), *doc.NextAttemptAt)

	f.clock.Advance(20 * time.Second)
	runOnce(t, d)
	doc = f.doc(t)
	assert.Equal(t, 3, doc.Attempts)
	assert.Nil(t, doc.NextAttemptAt, "reintentos agotados")
	assert.Equal(t, 3, f.submitter.submits)

	f.clock.Advance(time.Hour)
	assert.Equal(t, 0, runOnce(t, d))

	// La factura sigue emitida: el envío nunca la invalida.
	inv, err := f.store.Repos().Invoices.GetByID(context.Background(), tenant, f.invoiceID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusIssued, inv.Status)

	// Un operador lo reencola y el envío se completa.
	f.submitter.submitErr = nil
	requeued, err := d.Requeue(context.Background(), tenant, f.docID)
	require.NoError(t, err)
	assert.Zero(t, requeued.Attempts)
	runOnce(t, d)
	assert.Equal(t, entity.FilingStatusSent, f.doc(t).Status)
}

func TestDispatcher_BuildErrorIsRetried(t *testing.T) {
	f := newFixture(t)
	f.builder.err = errors.New("certificado vencido")
	d := f.dispatcher(nil)

	runOnce(t, d)
	doc := f.doc(t)
	assert.Equal(t, entity.FilingStatusDraft, doc.Status)
	assert.Equal(t, 1, doc.Attempts)
	assert.Equal(t, 1, f.metrics.retries)
}

func TestDispatcher_RejectedAtReception(t *testing.T) {
	f := newFixture(t)
	f.submitter.submitRes = &filing.SubmitResult{Accepted: false, Errors: "Regla: FAD06, Rechazo: NIT no autorizado"}
	d := f.dispatcher(nil)

	runOnce(t, d)
	runOnce(t, d)
	doc := f.doc(t)
	assert.Equal(t, entity.FilingStatusRejected, doc.Status)
	assert.Contains(t, doc.LastError, "FAD06")
	assert.Nil(t, doc.NextAttemptAt)

	_, err := d.Requeue(context.Background(), tenant, f.docID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDispatcher_RejectedAfterValidation(t *testing.T) {
	f := newFixture(t)
	f.submitter.statusRes = &filing.StatusResult{Done: true, Accepted: false, Errors: "FAK24"}
	d := f.dispatcher(nil)

	runOnce(t, d)
	runOnce(t, d)
	f.clock.Advance(cfg.BaseBackoff)
	runOnce(t, d)
	doc := f.doc(t)
	assert.Equal(t, entity.FilingStatusRejected, doc.Status)
	assert.Equal(t, "FAK24", doc.LastError)
}

func TestDispatcher_StillProcessingKeepsPolling(t *testing.T) {
	f := newFixture(t)
	f.submitter.statusRes = &filing.StatusResult{Done: false}
	d := f.dispatcher(nil)

	runOnce(t, d)
	runOnce(t, d)
	f.clock.Advance(cfg.BaseBackoff)
	runOnce(t, d)

	doc := f.doc(t)
	assert.Equal(t, entity.FilingStatusSent, doc.Status)
	assert.Equal(t, 1, doc.Attempts)
	assert.Equal(t, 1, f.submitter.statusCalls)

	f.submitter.statusRes = nil
	f.clock.Advance(cfg.BaseBackoff)
	runOnce(t, d)
	assert.Equal(t, entity.FilingStatusAccepted, f.doc(t).Status)
}

func TestDispatcher_BusyLockPostponesWithoutAttempt(t *testing.T) {
	f := newFixture(t)
	locker := &busyLocker{busy: true}
	d := f.dispatcher(locker)

	runOnce(t, d)
	runOnce(t, d)
	doc := f.doc(t)
	assert.Equal(t, entity.FilingStatusSigned, doc.Status)
	assert.Zero(t, doc.Attempts)
	assert.Equal(t, f.clock.Now().Add(cfg.PollInterval), *doc.NextAttemptAt)
	assert.Zero(t, f.submitter.submits)

	locker.busy = false
	f.clock.Advance(cfg.PollInterval)
	runOnce(t, d)
	assert.Equal(t, entity.FilingStatusSent, f.doc(t).Status)
}

func TestDispatcher_RequeueRequiresExhaustedDocument(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(nil)
	_, err := d.Requeue(context.Background(), tenant, f.docID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = d.Requeue(context.Background(), tenant, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	d.Notify()
	d.Notify()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run no terminó tras cancelar el contexto")
	}
}

func TestBackoff(t *testing.T) {
	base, ceiling := 5*time.Second, time.Minute
	cases := map[int]time.Duration{
		0: 5 * time.Second,
		1: 5 * time.Second,
		2: 10 * time.Second,
		3: 20 * time.Second,
		4: 40 * time.Second,
		5: time.Minute,
		9: time.Minute,
	}
	for attempt, want := range cases {
		assert.Equal(t, want, filing.Backoff(base, ceiling, attempt), "intento %d", attempt)
	}
}
