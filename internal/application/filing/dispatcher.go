// Package filing envía las facturas emitidas a la DIAN fuera de la transacción de la venta.
// Cada documento avanza DRAFT → SIGNED → SENT → ACCEPTED | REJECTED; los fallos de transporte
// se reprograman con backoff exponencial y nunca afectan la venta ni la factura.
package filing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/rs/zerolog"
)

var errStillProcessing = errors.New("la DIAN aún no termina de validar el documento")

// Config parámetros del worker.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	Lease        time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 5 * time.Second
	}
	if c.MaxBackoff < c.BaseBackoff {
		c.MaxBackoff = c.BaseBackoff
	}
	if c.Lease <= 0 {
		c.Lease = time.Minute
	}
	return c
}

// Options dependencias opcionales.
type Options struct {
	Locker   Locker
	Metrics  Recorder
	Logger   zerolog.Logger
	WorkerID string
	Clock    func() time.Time
}

// Dispatcher procesa la cola durable de documentos electrónicos.
type Dispatcher struct {
	repos     repository.TxRepos
	builder   Builder
	submitter Submitter
	locker    Locker
	cfg       Config
	metrics   Recorder
	log       zerolog.Logger
	workerID  string
	now       func() time.Time
	wake      chan struct{}
}

// NewDispatcher construye el despachador. repos deben operar fuera de transacción (pool).
func NewDispatcher(repos repository.TxRepos, builder Builder, submitter Submitter, cfg Config, opts Options) *Dispatcher {
	if opts.WorkerID == "" {
		host, _ := os.Hostname()
		opts.WorkerID = host + "-" + uuid.New().String()[:8]
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Dispatcher{
		repos:     repos,
		builder:   builder,
		submitter: submitter,
		locker:    opts.Locker,
		cfg:       cfg.withDefaults(),
		metrics:   opts.Metrics,
		log:       opts.Logger,
		workerID:  opts.WorkerID,
		now:       opts.Clock,
		wake:      make(chan struct{}, 1),
	}
}

// Notify despierta al worker sin esperar el siguiente tick. Nunca bloquea.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run procesa lotes hasta que ctx se cancele.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.log.Info().Str("worker_id", d.workerID).Dur("poll_interval", d.cfg.PollInterval).Msg("despachador DIAN iniciado")
	for {
		if _, err := d.RunOnce(ctx); err != nil && ctx.Err() == nil {
			d.log.Error().Err(err).Msg("error procesando lote de documentos")
		}
		select {
		case <-ctx.Done():
			d.log.Info().Msg("despachador DIAN detenido")
			return nil
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// RunOnce reclama un lote de documentos vencidos y los avanza un paso. Devuelve cuántos procesó.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	docs, err := d.repos.Filing.ClaimDue(ctx, d.workerID, d.now(), d.cfg.Lease, d.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("reclamar documentos: %w", err)
	}
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		d.process(ctx, doc)
	}
	return len(docs), nil
}

// Requeue reprograma un documento que agotó sus reintentos. REJECTED no se reencola.
func (d *Dispatcher) Requeue(ctx context.Context, tenantID, id string) (*entity.FilingDocument, error) {
	doc, err := d.repos.Filing.Requeue(ctx, tenantID, id, d.now())
	if err != nil {
		return nil, err
	}
	d.log.Info().Str("tenant_id", tenantID).Str("filing_id", id).Msg("documento reencolado")
	d.Notify()
	return doc, nil
}

func (d *Dispatcher) process(ctx context.Context, doc *entity.FilingDocument) {
	var err error
	switch doc.Status {
	case entity.FilingStatusDraft:
		err = d.sign(ctx, doc)
	case entity.FilingStatusSigned:
		err = d.submit(ctx, doc)
	case entity.FilingStatusSent:
		err = d.poll(ctx, doc)
	default:
		return
	}
	if errors.Is(err, domain.ErrLeaseLost) {
		d.log.Warn().Str("filing_id", doc.ID).Msg("otro worker tomó el documento; se descarta el resultado")
		return
	}
	if err != nil {
		d.log.Error().Err(err).Str("filing_id", doc.ID).Str("status", doc.Status).Msg("no se pudo guardar el documento")
	}
}

// ── Pasos ──

func (d *Dispatcher) sign(ctx context.Context, doc *entity.FilingDocument) error {
	bundle, err := d.load(ctx, doc)
	if err != nil {
		return d.retry(ctx, doc, err)
	}
	signed, err := d.builder.Build(ctx, bundle)
	if err != nil {
		return d.retry(ctx, doc, err)
	}
	doc.SignedXML = signed.XML
	doc.CUFE = signed.CUFE
	doc.QRData = signed.QRData
	doc.ZipName = signed.FileName
	return d.transition(ctx, doc, entity.FilingStatusSigned, "")
}

func (d *Dispatcher) submit(ctx context.Context, doc *entity.FilingDocument) error {
	if d.locker != nil {
		lock, err := d.locker.Obtain(ctx, "filing:submit:"+doc.TenantID, d.cfg.Lease)
		if errors.Is(err, ErrLockBusy) {
			return d.postpone(ctx, doc)
		}
		if err != nil {
			return d.retry(ctx, doc, fmt.Errorf("lock de envío: %w", err))
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				d.log.Warn().Err(err).Str("tenant_id", doc.TenantID).Msg("no se pudo liberar el lock de envío")
			}
		}()
	}

	res, err := d.submitter.Submit(ctx, doc.ZipName, doc.SignedXML)
	if err != nil {
		return d.retry(ctx, doc, err)
	}
	if !res.Accepted || res.TrackID == "" {
		return d.transition(ctx, doc, entity.FilingStatusRejected, res.Errors)
	}
	doc.TrackID = res.TrackID
	return d.transition(ctx, doc, entity.FilingStatusSent, "")
}

func (d *Dispatcher) poll(ctx context.Context, doc *entity.FilingDocument) error {
	res, err := d.submitter.Status(ctx, doc.TrackID)
	if err != nil {
		return d.retry(ctx, doc, err)
	}
	if !res.Done {
		return d.retry(ctx, doc, errStillProcessing)
	}
	if !res.Accepted {
		return d.transition(ctx, doc, entity.FilingStatusRejected, res.Errors)
	}
	return d.transition(ctx, doc, entity.FilingStatusAccepted, "")
}

// ── Persistencia ──

// transition guarda el cambio de estado con compare-and-set sobre el estado anterior.
func (d *Dispatcher) transition(ctx context.Context, doc *entity.FilingDocument, to, lastError string) error {
	from := doc.Status
	if !entity.CanTransition(from, to) {
		return fmt.Errorf("%w: %s → %s", domain.ErrInvalidTransition, from, to)
	}
	now := d.now()
	doc.Status = to
	doc.Attempts = 0
	doc.LastError = lastError
	doc.UpdatedAt = now
	if doc.IsTerminal() {
		doc.NextAttemptAt = nil
		doc.CompletedAt = &now
	} else {
		next := now
		if to == entity.FilingStatusSent {
			next = now.Add(d.cfg.BaseBackoff)
		}
		doc.NextAttemptAt = &next
	}
	if err := d.repos.Filing.Save(ctx, doc, from); err != nil {
		return err
	}
	if d.metrics != nil {
		d.metrics.FilingTransition(from, to)
	}
	ev := d.log.Info()
	if to == entity.FilingStatusRejected {
		ev = d.log.Warn().Str("errors", lastError)
	}
	ev.Str("filing_id", doc.ID).Str("invoice_id", doc.InvoiceID).Str("from", from).Str("to", to).Msg("documento DIAN actualizado")
	return nil
}

// retry deja el documento en su estado y lo reprograma con backoff; al agotar intentos
// queda sin próxima ejecución hasta que un operador lo reencole.
func (d *Dispatcher) retry(ctx context.Context, doc *entity.FilingDocument, cause error) error {
	now := d.now()
	doc.Attempts++
	doc.LastError = cause.Error()
	doc.UpdatedAt = now
	exhausted := doc.Attempts >= d.cfg.MaxAttempts
	if exhausted {
		doc.NextAttemptAt = nil
	} else {
		next := now.Add(Backoff(d.cfg.BaseBackoff, d.cfg.MaxBackoff, doc.Attempts))
		doc.NextAttemptAt = &next
	}
	if err := d.repos.Filing.Save(ctx, doc, doc.Status); err != nil {
		return err
	}
	if d.metrics != nil {
		d.metrics.FilingRetry(doc.Status, exhausted)
	}
	switch {
	case exhausted:
		d.log.Error().Err(cause).Str("filing_id", doc.ID).Str("status", doc.Status).Int("attempts", doc.Attempts).
			Msg("documento sin reintentos pendientes; requiere reencolar")
	case errors.Is(cause, errStillProcessing):
		d.log.Debug().Str("filing_id", doc.ID).Time("next_attempt_at", *doc.NextAttemptAt).Msg("documento en validación")
	default:
		d.log.Warn().Err(cause).Str("filing_id", doc.ID).Str("status", doc.Status).Int("attempts", doc.Attempts).
			Time("next_attempt_at", *doc.NextAttemptAt).Msg("fallo transitorio; se reprograma")
	}
	return nil
}

// postpone devuelve el documento a la cola sin consumir un intento.
func (d *Dispatcher) postpone(ctx context.Context, doc *entity.FilingDocument) error {
	next := d.now().Add(d.cfg.PollInterval)
	doc.NextAttemptAt = &next
	return d.repos.Filing.Save(ctx, doc, doc.Status)
}

// Backoff base * 2^(attempt-1), con tope.
func Backoff(base, ceiling time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}

func (d *Dispatcher) load(ctx context.Context, doc *entity.FilingDocument) (*Bundle, error) {
	r := d.repos
	inv, err := r.Invoices.GetByID(ctx, doc.TenantID, doc.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("factura %s: %w", doc.InvoiceID, domain.ErrNotFound)
	}
	details, err := r.Invoices.GetDetails(ctx, doc.TenantID, inv.ID)
	if err != nil {
		return nil, err
	}
	company, err := r.Companies.GetByID(ctx, doc.TenantID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("empresa emisora: %w", domain.ErrNotFound)
	}
	customer := entity.FinalConsumer(doc.TenantID)
	if inv.CustomerID != "" {
		c, err := r.Customers.GetByID(ctx, doc.TenantID, inv.CustomerID)
		if err != nil {
			return nil, err
		}
		if c != nil {
			customer = c
		}
	}
	rg, err := r.Numbering.GetByID(ctx, doc.TenantID, inv.RangeID)
	if err != nil {
		return nil, err
	}
	if rg == nil {
		return nil, fmt.Errorf("resolución de la factura: %w", domain.ErrNotFound)
	}
	products := make(map[string]*entity.Product, len(details))
	for _, det := range details {
		if _, ok := products[det.ProductID]; ok {
			continue
		}
		p, err := r.Products.GetByID(ctx, doc.TenantID, det.ProductID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			products[det.ProductID] = p
		}
	}
	sale, err := r.Sales.GetByID(ctx, doc.TenantID, inv.SaleID)
	if err != nil {
		return nil, err
	}
	return &Bundle{Invoice: inv, Sale: sale, Details: details, Products: products, Company: company, Customer: customer, Range: rg}, nil
}
