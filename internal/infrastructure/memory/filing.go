package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var _ repository.FilingRepository = (*FilingRepo)(nil)

// FilingRepo cola de documentos electrónicos en memoria.
type FilingRepo struct{ v view }

func (r *FilingRepo) Create(_ context.Context, d *entity.FilingDocument) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		for _, other := range st.filing {
			if other.TenantID == d.TenantID && other.InvoiceID == d.InvoiceID {
				return domain.ErrDuplicate
			}
		}
		st.filing[d.ID] = *d
		return nil
	})
}

func (r *FilingRepo) GetByID(_ context.Context, tenantID, id string) (*entity.FilingDocument, error) {
	var out *entity.FilingDocument
	err := r.v.read(func(st *state) error {
		if d, ok := st.filing[id]; ok && d.TenantID == tenantID {
			out = &d
		}
		return nil
	})
	return out, err
}

func (r *FilingRepo) GetByInvoiceID(_ context.Context, tenantID, invoiceID string) (*entity.FilingDocument, error) {
	var out *entity.FilingDocument
	err := r.v.read(func(st *state) error {
		for _, d := range st.filing {
			if d.TenantID == tenantID && d.InvoiceID == invoiceID {
				found := d
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *FilingRepo) ClaimDue(_ context.Context, workerID string, now time.Time, lease time.Duration, limit int) ([]*entity.FilingDocument, error) {
	var claimed []*entity.FilingDocument
	err := r.v.write(func(st *state) error {
		var due []entity.FilingDocument
		for _, d := range st.filing {
			if d.IsTerminal() || d.NextAttemptAt == nil || d.NextAttemptAt.After(now) {
				continue
			}
			if d.LockedUntil != nil && d.LockedUntil.After(now) {
				continue
			}
			due = append(due, d)
		}
		sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(*due[j].NextAttemptAt) })
		if limit > 0 && len(due) > limit {
			due = due[:limit]
		}
		until := now.Add(lease)
		for _, d := range due {
			d.LockedBy = workerID
			d.LockedUntil = &until
			st.filing[d.ID] = d
			found := d
			claimed = append(claimed, &found)
		}
		return nil
	})
	return claimed, err
}

func (r *FilingRepo) Save(_ context.Context, d *entity.FilingDocument, expectedStatus string) error {
	return r.v.write(func(st *state) error {
		cur, ok := st.filing[d.ID]
		if !ok || cur.Status != expectedStatus || cur.LockedBy != d.LockedBy {
			return domain.ErrLeaseLost
		}
		d.LockedBy = ""
		d.LockedUntil = nil
		st.filing[d.ID] = *d
		return nil
	})
}

func (r *FilingRepo) Requeue(_ context.Context, tenantID, id string, now time.Time) (*entity.FilingDocument, error) {
	var out *entity.FilingDocument
	err := r.v.write(func(st *state) error {
		d, ok := st.filing[id]
		if !ok || d.TenantID != tenantID {
			return domain.ErrNotFound
		}
		if d.IsTerminal() || d.NextAttemptAt != nil {
			return domain.ErrInvalidTransition
		}
		d.Attempts = 0
		d.NextAttemptAt = &now
		d.LastError = ""
		d.UpdatedAt = now
		st.filing[id] = d
		out = &d
		return nil
	})
	return out, err
}
