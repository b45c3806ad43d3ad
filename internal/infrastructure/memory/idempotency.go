package memory

import (
	"context"
	"time"

	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var _ repository.IdempotencyRepository = (*IdempotencyRepo)(nil)

// IdempotencyRepo registros de idempotencia en memoria.
type IdempotencyRepo struct{ v view }

func (r *IdempotencyRepo) Insert(_ context.Context, rec *entity.IdempotencyRecord) (bool, error) {
	inserted := false
	err := r.v.write(func(st *state) error {
		k := tenantKey(rec.TenantID, rec.RequestKey)
		if _, ok := st.idempotency[k]; ok {
			return nil
		}
		st.idempotency[k] = *rec
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *IdempotencyRepo) Get(_ context.Context, tenantID, key string) (*entity.IdempotencyRecord, error) {
	var out *entity.IdempotencyRecord
	err := r.v.read(func(st *state) error {
		if rec, ok := st.idempotency[tenantKey(tenantID, key)]; ok {
			out = &rec
		}
		return nil
	})
	return out, err
}

func (r *IdempotencyRepo) Reclaim(_ context.Context, tenantID, key string, attempt int, now, lockedUntil time.Time) (bool, error) {
	ok := false
	err := r.v.write(func(st *state) error {
		k := tenantKey(tenantID, key)
		rec, found := st.idempotency[k]
		if !found || rec.Status != entity.IdempotencyInProgress || rec.Attempt != attempt || rec.LockedUntil.After(now) {
			return nil
		}
		rec.Attempt++
		rec.LockedUntil = lockedUntil
		rec.UpdatedAt = now
		st.idempotency[k] = rec
		ok = true
		return nil
	})
	return ok, err
}

func (r *IdempotencyRepo) Complete(_ context.Context, tenantID, key string, attempt, responseCode int, body []byte) error {
	return r.v.write(func(st *state) error {
		rec, err := st.ownedRecord(tenantID, key, attempt)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		rec.Status = entity.IdempotencyCompleted
		rec.ResponseCode = responseCode
		rec.ResponseBody = append([]byte(nil), body...)
		rec.CompletedAt = &now
		rec.UpdatedAt = now
		st.idempotency[tenantKey(tenantID, key)] = rec
		return nil
	})
}

func (r *IdempotencyRepo) Fail(_ context.Context, tenantID, key string, attempt int, code, message string) error {
	return r.v.write(func(st *state) error {
		rec, err := st.ownedRecord(tenantID, key, attempt)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		rec.Status = entity.IdempotencyFailed
		rec.ErrorCode = code
		rec.ErrorMessage = message
		rec.CompletedAt = &now
		rec.UpdatedAt = now
		st.idempotency[tenantKey(tenantID, key)] = rec
		return nil
	})
}

func (r *IdempotencyRepo) Release(_ context.Context, tenantID, key string, attempt int) error {
	return r.v.write(func(st *state) error {
		rec, err := st.ownedRecord(tenantID, key, attempt)
		if err != nil {
			return err
		}
		rec.LockedUntil = time.Now().UTC()
		rec.UpdatedAt = rec.LockedUntil
		st.idempotency[tenantKey(tenantID, key)] = rec
		return nil
	})
}

func (st *state) ownedRecord(tenantID, key string, attempt int) (entity.IdempotencyRecord, error) {
	rec, ok := st.idempotency[tenantKey(tenantID, key)]
	if !ok || rec.Status != entity.IdempotencyInProgress || rec.Attempt != attempt {
		return rec, domain.ErrLeaseLost
	}
	return rec, nil
}
