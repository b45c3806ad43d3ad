package offlinequeue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotQueued la operación no está en la cola.
var ErrNotQueued = errors.New("la operación no está en la cola")

// QueuedOperation mutación que el servidor todavía no confirmó. ID es la clave de idempotencia
// con la que se envió la primera vez y con la que se reenvía siempre.
type QueuedOperation struct {
	ID            string
	Method        string
	Path          string
	Body          []byte
	Label         string // texto para la interfaz ("Venta $45.000")
	CreatedAt     time.Time
	Attempts      int
	LastError     string
	LastAttemptAt *time.Time
}

// Store almacenamiento durable de la cola.
type Store interface {
	// Insert devuelve false si ya existe una operación con el mismo ID.
	Insert(ctx context.Context, op *QueuedOperation) (bool, error)
	// List en orden de llegada.
	List(ctx context.Context) ([]QueuedOperation, error)
	Count(ctx context.Context) (int, error)
	// Delete devuelve ErrNotQueued si no existe.
	Delete(ctx context.Context, id string) error
	MarkAttempt(ctx context.Context, id string, at time.Time, lastErr string) error
	Close() error
}

// MemoryStore cola en memoria (pruebas y clientes sin disco).
type MemoryStore struct {
	mu  sync.Mutex
	ops map[string]QueuedOperation
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore construye una cola vacía.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[string]QueuedOperation)}
}

func (s *MemoryStore) Insert(_ context.Context, op *QueuedOperation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[op.ID]; ok {
		return false, nil
	}
	cp := *op
	cp.Body = append([]byte(nil), op.Body...)
	s.ops[op.ID] = cp
	return true, nil
}

func (s *MemoryStore) List(_ context.Context) ([]QueuedOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QueuedOperation, 0, len(s.ops))
	for _, op := range s.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ops), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[id]; !ok {
		return ErrNotQueued
	}
	delete(s.ops, id)
	return nil
}

func (s *MemoryStore) MarkAttempt(_ context.Context, id string, at time.Time, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[id]
	if !ok {
		return ErrNotQueued
	}
	op.Attempts++
	op.LastError = lastErr
	op.LastAttemptAt = &at
	s.ops[id] = op
	return nil
}

func (s *MemoryStore) Close() error { return nil }
