// Package offlinequeue guarda en el cliente las mutaciones que el servidor no confirmó y las
// reenvía con la misma clave de idempotencia cuando vuelve la conexión. Una operación sale de
// la cola solo con una respuesta definitiva del servidor o por decisión explícita del usuario.
package offlinequeue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrQueued el resultado de la operación es desconocido; quedó en cola para reenvío.
var ErrQueued = errors.New("sin respuesta definitiva del servidor, la operación quedó en cola")

// Cabeceras del protocolo de idempotencia del servidor.
const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	headerRetryAfter     = "Retry-After"
)

// Result respuesta HTTP del servidor.
type Result struct {
	Status     int
	Body       []byte
	Replayed   bool
	RetryAfter string
}

// Options configuración de la cola.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration                        // por solicitud; por defecto 15s
	Token      func() string                        // bearer token vigente
	OnResult   func(op QueuedOperation, res Result) // respuesta definitiva de una operación reenviada
	Logger     zerolog.Logger
	Clock      func() time.Time
}

// Report resultado de una pasada de reconciliación.
type Report struct {
	Sent      int  // confirmadas con 2xx
	Rejected  int  // 4xx definitivo: se quitan de la cola
	Pending   int  // siguen en cola
	Coalesced bool // ya había una pasada en curso; se agendó otra al terminar
}

// Queue cola de operaciones pendientes de un punto de venta.
type Queue struct {
	store    Store
	baseURL  string
	client   *http.Client
	timeout  time.Duration
	token    func() string
	onResult func(QueuedOperation, Result)
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	again   bool
	idle    chan struct{} // se cierra al terminar la reconciliación en curso
}

// New construye la cola sobre store.
func New(store Store, opts Options) *Queue {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Queue{
		store:    store,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		client:   opts.HTTPClient,
		timeout:  opts.Timeout,
		token:    opts.Token,
		onResult: opts.OnResult,
		log:      opts.Logger,
		now:      opts.Clock,
	}
}

// NewRequestKey genera la clave de idempotencia de una operación nueva.
func NewRequestKey() string {
	return uuid.NewString()
}

// Enqueue agrega la operación. Si ya hay una con la misma clave no hace nada y devuelve false.
func (q *Queue) Enqueue(ctx context.Context, requestKey, method, path string, body []byte, label string) (bool, error) {
	if requestKey == "" {
		return false, errors.New("la clave de idempotencia es obligatoria")
	}
	op := &QueuedOperation{
		ID:        requestKey,
		Method:    method,
		Path:      path,
		Body:      body,
		Label:     label,
		CreatedAt: q.now().UTC(),
	}
	added, err := q.store.Insert(ctx, op)
	if err != nil {
		return false, err
	}
	if added {
		q.log.Info().Str("idempotency_key", requestKey).Str("path", path).Str("label", label).Msg("operación en cola")
	}
	return added, nil
}

// Pending operaciones en cola, en orden de llegada.
func (q *Queue) Pending(ctx context.Context) ([]QueuedOperation, error) {
	return q.store.List(ctx)
}

// Count cantidad de operaciones en cola.
func (q *Queue) Count(ctx context.Context) (int, error) {
	return q.store.Count(ctx)
}

// Remove descarta una operación por decisión del usuario.
func (q *Queue) Remove(ctx context.Context, requestKey string) error {
	if err := q.store.Delete(ctx, requestKey); err != nil {
		return err
	}
	q.log.Warn().Str("idempotency_key", requestKey).Msg("operación descartada por el usuario")
	return nil
}

// Submit envía una mutación nueva. Con respuesta definitiva devuelve el Result (2xx o 4xx);
// si no se sabe si el servidor la aplicó, la guarda en la cola y devuelve ErrQueued.
func (q *Queue) Submit(ctx context.Context, requestKey, method, path string, body []byte, label string) (*Result, error) {
	op := QueuedOperation{ID: requestKey, Method: method, Path: path, Body: body, Label: label}
	res, err := q.send(ctx, op)
	if err == nil && !retryable(res) {
		return res, nil
	}
	cause := err
	if cause == nil {
		cause = fmt.Errorf("respuesta HTTP %d", res.Status)
	}
	if _, qerr := q.Enqueue(context.WithoutCancel(ctx), requestKey, method, path, body, label); qerr != nil {
		return nil, fmt.Errorf("no se pudo encolar la operación (%v): %w", cause, qerr)
	}
	return nil, fmt.Errorf("%w: %v", ErrQueued, cause)
}

// ConnectivityRestored dispara una reconciliación en segundo plano sin bloquear al llamador.
func (q *Queue) ConnectivityRestored() {
	go func() {
		if _, err := q.RetryAll(context.Background()); err != nil {
			q.log.Error().Err(err).Msg("reconciliación de la cola fallida")
		}
	}()
}

// RetryAll reenvía todas las operaciones en cola. Solo corre una reconciliación a la vez; las
// solicitudes que llegan durante una pasada se agrupan en una pasada adicional.
func (q *Queue) RetryAll(ctx context.Context) (Report, error) {
	q.mu.Lock()
	if q.running {
		q.again = true
		q.mu.Unlock()
		return Report{Coalesced: true}, nil
	}
	q.running = true
	q.idle = make(chan struct{})
	q.mu.Unlock()

	var total Report
	for {
		rep, err := q.reconcile(ctx)
		total.Sent += rep.Sent
		total.Rejected += rep.Rejected
		total.Pending = rep.Pending

		q.mu.Lock()
		if err != nil || !q.again || ctx.Err() != nil {
			q.running, q.again = false, false
			close(q.idle)
			q.mu.Unlock()
			return total, err
		}
		q.again = false
		q.mu.Unlock()
	}
}

// Wait bloquea hasta que termine la reconciliación en curso (si la hay).
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	running := q.running
	q.mu.Unlock()
	if !running {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reconcile una pasada sobre la cola. Un error de transporte corta la pasada: el servidor no
// está alcanzable y las demás operaciones fallarían igual.
func (q *Queue) reconcile(ctx context.Context) (Report, error) {
	ops, err := q.store.List(ctx)
	if err != nil {
		return Report{}, err
	}
	var rep Report
	for i, op := range ops {
		if ctx.Err() != nil {
			rep.Pending += len(ops) - i
			break
		}
		logger := q.log.With().Str("idempotency_key", op.ID).Str("path", op.Path).Logger()

		res, sendErr := q.send(ctx, op)
		if sendErr != nil {
			logger.Warn().Err(sendErr).Msg("servidor no disponible, la operación sigue en cola")
			if err := q.store.MarkAttempt(ctx, op.ID, q.now().UTC(), sendErr.Error()); err != nil && !errors.Is(err, ErrNotQueued) {
				return rep, err
			}
			rep.Pending += len(ops) - i
			break
		}
		if retryable(res) {
			logger.Warn().Int("status", res.Status).Msg("respuesta transitoria, la operación sigue en cola")
			if err := q.store.MarkAttempt(ctx, op.ID, q.now().UTC(), fmt.Sprintf("HTTP %d", res.Status)); err != nil && !errors.Is(err, ErrNotQueued) {
				return rep, err
			}
			rep.Pending++
			continue
		}

		if err := q.store.Delete(ctx, op.ID); err != nil && !errors.Is(err, ErrNotQueued) {
			return rep, err
		}
		if res.Status < 300 {
			rep.Sent++
			logger.Info().Int("status", res.Status).Bool("replayed", res.Replayed).Msg("operación confirmada por el servidor")
		} else {
			rep.Rejected++
			logger.Warn().Int("status", res.Status).Str("body", string(res.Body)).Msg("operación rechazada por el servidor")
		}
		if q.onResult != nil {
			q.onResult(op, *res)
		}
	}
	return rep, nil
}

func (q *Queue) send(ctx context.Context, op QueuedOperation) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	var body io.Reader
	if len(op.Body) > 0 {
		body = bytes.NewReader(op.Body)
	}
	req, err := http.NewRequestWithContext(ctx, op.Method, q.baseURL+op.Path, body)
	if err != nil {
		return nil, fmt.Errorf("armar solicitud: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerIdempotencyKey, op.ID)
	if q.token != nil {
		if tok := q.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("leer respuesta: %w", err)
	}
	return &Result{
		Status:     resp.StatusCode,
		Body:       b,
		Replayed:   resp.Header.Get(headerReplayed) == "true",
		RetryAfter: resp.Header.Get(headerRetryAfter),
	}, nil
}

// retryable respuestas que no confirman ni descartan la operación: errores del servidor,
// límites de tasa, token vencido y solicitudes en curso con Retry-After.
func retryable(res *Result) bool {
	switch {
	case res.Status >= 500:
		return true
	case res.Status == http.StatusRequestTimeout, res.Status == http.StatusTooManyRequests:
		return true
	case res.Status == http.StatusUnauthorized:
		return true
	case res.Status == http.StatusConflict:
		return res.RetryAfter != ""
	}
	return false
}
