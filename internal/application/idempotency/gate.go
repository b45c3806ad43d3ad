// Package idempotency garantiza que una solicitud mutante repetida con la misma clave produzca
// exactamente un efecto y siempre la misma respuesta.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/rs/zerolog"
)

const maxKeyLength = 255

// Resultado de cada paso por el gate (etiqueta de métricas).
const (
	ResultExecuted = "executed"
	ResultReplayed = "replayed"
	ResultFailed   = "failed"
	ResultBusy     = "in_progress"
	ResultMismatch = "mismatch"
)

// CachedResponse respuesta COMPLETED guardada en la caché de repeticiones.
type CachedResponse struct {
	Operation   string `json:"operation"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
}

// ReplayCache caché opcional de respuestas completadas. La base de datos sigue siendo la fuente
// de verdad: un fallo de la caché nunca impide atender la solicitud.
type ReplayCache interface {
	// Get devuelve nil, nil si no hay entrada.
	Get(ctx context.Context, tenantID, key string) (*CachedResponse, error)
	Put(ctx context.Context, tenantID, key string, resp CachedResponse) error
}

// Recorder métricas del gate.
type Recorder interface {
	IdempotencyResult(operation, result string)
}

// Options parámetros del gate.
type Options struct {
	Lease   time.Duration
	Cache   ReplayCache
	Metrics Recorder
	Logger  zerolog.Logger
}

// Gate coordina el registro de idempotencia con la transacción de la operación.
type Gate struct {
	tx      repository.TxRunner
	repo    repository.IdempotencyRepository
	lease   time.Duration
	cache   ReplayCache
	metrics Recorder
	log     zerolog.Logger
}

// NewGate construye el gate. repo debe operar fuera de transacción (pool).
func NewGate(tx repository.TxRunner, repo repository.IdempotencyRepository, opts Options) *Gate {
	if opts.Lease <= 0 {
		opts.Lease = 30 * time.Second
	}
	return &Gate{
		tx:      tx,
		repo:    repo,
		lease:   opts.Lease,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		log:     opts.Logger,
	}
}

// Request identifica la solicitud. Payload es el cuerpo de negocio (sin la clave); su hash
// detecta claves reutilizadas con otro contenido.
type Request struct {
	TenantID      string
	Key           string
	Operation     string
	Payload       any
	SuccessStatus int
}

// Outcome resultado de la operación. Body son los bytes exactos que se devuelven al cliente,
// idénticos en la primera ejecución y en cada repetición.
type Outcome[T any] struct {
	Value    T
	Status   int
	Body     []byte
	Replayed bool
}

// Execute ejecuta fn a lo sumo una vez por (empresa, clave). fn corre dentro de una transacción
// junto con el cierre del registro: o se confirman ambos o ninguno.
func Execute[T any](ctx context.Context, g *Gate, req Request, fn func(ctx context.Context, r repository.TxRepos) (T, error)) (*Outcome[T], error) {
	if err := validateKey(req.Key); err != nil {
		return nil, err
	}
	if req.SuccessStatus == 0 {
		req.SuccessStatus = http.StatusOK
	}
	hash, err := RequestHash(req.Payload)
	if err != nil {
		return nil, err
	}

	if cached := g.cached(ctx, req, hash); cached != nil {
		g.record(req.Operation, ResultReplayed)
		return replay[T](cached.Status, cached.Body)
	}

	attempt, existing, err := g.begin(ctx, req, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		g.record(req.Operation, ResultReplayed)
		return replay[T](existing.ResponseCode, existing.ResponseBody)
	}

	var (
		value T
		body  []byte
	)
	err = g.tx.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		v, err := fn(ctx, r)
		if err != nil {
			return err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("serializar respuesta: %w", err)
		}
		if err := r.Idempotency.Complete(ctx, req.TenantID, req.Key, attempt, req.SuccessStatus, b); err != nil {
			return err
		}
		value, body = v, b
		return nil
	})
	if err != nil {
		return nil, g.settle(ctx, req, attempt, err)
	}

	g.record(req.Operation, ResultExecuted)
	if g.cache != nil {
		resp := CachedResponse{Operation: req.Operation, RequestHash: hash, Status: req.SuccessStatus, Body: body}
		if err := g.cache.Put(ctx, req.TenantID, req.Key, resp); err != nil {
			g.log.Warn().Err(err).Str("idempotency_key", req.Key).Msg("no se pudo guardar la respuesta en caché")
		}
	}
	return &Outcome[T]{Value: value, Status: req.SuccessStatus, Body: body}, nil
}

// begin reserva la clave. Si la clave ya estaba COMPLETED devuelve el registro para repetirlo.
func (g *Gate) begin(ctx context.Context, req Request, hash string) (int, *entity.IdempotencyRecord, error) {
	now := time.Now().UTC()
	rec := &entity.IdempotencyRecord{
		TenantID:      req.TenantID,
		RequestKey:    req.Key,
		OperationType: req.Operation,
		RequestHash:   hash,
		Status:        entity.IdempotencyInProgress,
		Attempt:       1,
		LockedUntil:   now.Add(g.lease),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	inserted, err := g.repo.Insert(ctx, rec)
	if err != nil {
		return 0, nil, fmt.Errorf("registrar clave de idempotencia: %w", err)
	}
	if inserted {
		return 1, nil, nil
	}

	existing, err := g.repo.Get(ctx, req.TenantID, req.Key)
	if err != nil {
		return 0, nil, fmt.Errorf("leer clave de idempotencia: %w", err)
	}
	if existing == nil {
		return 0, nil, fmt.Errorf("clave de idempotencia %q no encontrada tras conflicto", req.Key)
	}
	if existing.OperationType != req.Operation || existing.RequestHash != hash {
		g.record(req.Operation, ResultMismatch)
		return 0, nil, domain.ErrIdempotencyMismatch
	}

	switch existing.Status {
	case entity.IdempotencyCompleted:
		return 0, existing, nil
	case entity.IdempotencyFailed:
		g.record(req.Operation, ResultFailed)
		return 0, nil, &domain.RecordedFailure{Code: existing.ErrorCode, Message: existing.ErrorMessage}
	}

	if existing.LockedUntil.After(now) {
		g.record(req.Operation, ResultBusy)
		return 0, nil, &domain.InProgressError{RetryAfter: existing.LockedUntil.Sub(now)}
	}
	ok, err := g.repo.Reclaim(ctx, req.TenantID, req.Key, existing.Attempt, now, now.Add(g.lease))
	if err != nil {
		return 0, nil, fmt.Errorf("reclamar clave de idempotencia: %w", err)
	}
	if !ok {
		g.record(req.Operation, ResultBusy)
		return 0, nil, &domain.InProgressError{RetryAfter: g.lease}
	}
	g.log.Info().Str("idempotency_key", req.Key).Int("attempt", existing.Attempt+1).Msg("clave de idempotencia reclamada tras vencer el lease")
	return existing.Attempt + 1, nil, nil
}

// settle cierra el registro tras un fallo de la operación. Los errores deterministas quedan
// registrados y se repiten; los transitorios liberan la clave para un reintento.
func (g *Gate) settle(ctx context.Context, req Request, attempt int, cause error) error {
	if errors.Is(cause, domain.ErrLeaseLost) {
		g.record(req.Operation, ResultBusy)
		return &domain.InProgressError{RetryAfter: g.lease}
	}
	// El registro debe cerrarse aunque el cliente haya cancelado.
	ctx = context.WithoutCancel(ctx)
	logger := g.log.With().Str("idempotency_key", req.Key).Str("operation", req.Operation).Logger()

	if domain.IsDeterministic(cause) {
		g.record(req.Operation, ResultFailed)
		if err := g.repo.Fail(ctx, req.TenantID, req.Key, attempt, domain.CodeOf(cause), cause.Error()); err != nil {
			logger.Error().Err(err).Msg("no se pudo registrar el fallo de la solicitud")
		}
		return cause
	}
	if err := g.repo.Release(ctx, req.TenantID, req.Key, attempt); err != nil {
		logger.Error().Err(err).Msg("no se pudo liberar la clave de idempotencia")
	}
	logger.Warn().Err(cause).Msg("operación fallida, la clave queda disponible para reintento")
	return cause
}

func (g *Gate) cached(ctx context.Context, req Request, hash string) *CachedResponse {
	if g.cache == nil {
		return nil
	}
	resp, err := g.cache.Get(ctx, req.TenantID, req.Key)
	if err != nil {
		g.log.Warn().Err(err).Str("idempotency_key", req.Key).Msg("caché de idempotencia no disponible")
		return nil
	}
	if resp == nil || resp.Operation != req.Operation || resp.RequestHash != hash {
		return nil
	}
	return resp
}

func (g *Gate) record(operation, result string) {
	if g.metrics != nil {
		g.metrics.IdempotencyResult(operation, result)
	}
}

// Lookup estado del registro de una clave. domain.ErrNotFound si no existe.
func (g *Gate) Lookup(ctx context.Context, tenantID, key string) (*entity.IdempotencyRecord, error) {
	rec, err := g.repo.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

// RequestHash SHA-256 del payload serializado en JSON.
func RequestHash(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("serializar solicitud: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func validateKey(key string) error {
	if key == "" {
		return domain.NewValidationError("idempotency_key", "es obligatorio")
	}
	if len(key) > maxKeyLength {
		return domain.NewValidationError("idempotency_key", fmt.Sprintf("máximo %d caracteres", maxKeyLength))
	}
	return nil
}

func replay[T any](status int, body []byte) (*Outcome[T], error) {
	out := &Outcome[T]{Status: status, Body: body, Replayed: true}
	if err := json.Unmarshal(body, &out.Value); err != nil {
		return nil, fmt.Errorf("decodificar respuesta registrada: %w", err)
	}
	return out, nil
}
