package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var _ repository.CashRepository = (*CashRepo)(nil)

// CashRepo sesiones de caja en memoria.
type CashRepo struct{ v view }

func (r *CashRepo) Open(_ context.Context, s *entity.CashSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		for _, other := range st.sessions {
			if other.TenantID == s.TenantID && other.IsOpen() {
				return domain.ErrSessionAlreadyOpen
			}
		}
		st.sessions[s.ID] = *s
		return nil
	})
}

func (r *CashRepo) GetByID(_ context.Context, tenantID, id string) (*entity.CashSession, error) {
	var out *entity.CashSession
	err := r.v.read(func(st *state) error {
		if s, ok := st.sessions[id]; ok && s.TenantID == tenantID {
			out = &s
		}
		return nil
	})
	return out, err
}

func (r *CashRepo) GetOpen(_ context.Context, tenantID string) (*entity.CashSession, error) {
	var out *entity.CashSession
	err := r.v.read(func(st *state) error {
		for _, s := range st.sessions {
			if s.TenantID == tenantID && s.IsOpen() {
				found := s
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *CashRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.CashSession, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *CashRepo) AddMovement(_ context.Context, m *entity.CashMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		s, ok := st.sessions[m.SessionID]
		if !ok || s.TenantID != m.TenantID {
			return domain.ErrNotFound
		}
		if !s.IsOpen() {
			return domain.ErrSessionClosed
		}
		st.cashMovements = append(st.cashMovements, *m)
		return nil
	})
}

func (r *CashRepo) ListMovements(_ context.Context, tenantID, sessionID string) ([]*entity.CashMovement, error) {
	var list []*entity.CashMovement
	err := r.v.read(func(st *state) error {
		for _, m := range st.cashMovements {
			if m.TenantID == tenantID && m.SessionID == sessionID {
				found := m
				list = append(list, &found)
			}
		}
		return nil
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, err
}

func (r *CashRepo) Close(_ context.Context, s *entity.CashSession) error {
	return r.v.write(func(st *state) error {
		cur, ok := st.sessions[s.ID]
		if !ok || cur.TenantID != s.TenantID {
			return domain.ErrNotFound
		}
		if !cur.IsOpen() {
			return domain.ErrSessionClosed
		}
		st.sessions[s.ID] = *s
		return nil
	})
}
