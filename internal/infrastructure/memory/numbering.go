package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
)

var _ repository.NumberingRepository = (*NumberingRepo)(nil)

// NumberingRepo rangos de numeración en memoria.
type NumberingRepo struct{ v view }

func (r *NumberingRepo) AllocateNext(_ context.Context, tenantID string, today time.Time) (*entity.NumberingRange, int64, error) {
	var out *entity.NumberingRange
	var number int64
	err := r.v.write(func(st *state) error {
		for id, rg := range st.ranges {
			if rg.TenantID != tenantID || rg.Status != entity.RangeStatusActive {
				continue
			}
			if rg.NextNumber > rg.RangeTo || !rg.ValidOn(today) {
				return nil
			}
			number = rg.NextNumber
			rg.NextNumber++
			if rg.NextNumber > rg.RangeTo {
				rg.Status = entity.RangeStatusExhausted
			}
			rg.UpdatedAt = time.Now().UTC()
			st.ranges[id] = rg
			out = &rg
			return nil
		}
		return nil
	})
	return out, number, err
}

func (r *NumberingRepo) GetActive(_ context.Context, tenantID string) (*entity.NumberingRange, error) {
	return r.find(tenantID, func(rg entity.NumberingRange) bool { return rg.Status == entity.RangeStatusActive })
}

func (r *NumberingRepo) Latest(_ context.Context, tenantID string) (*entity.NumberingRange, error) {
	return r.find(tenantID, func(rg entity.NumberingRange) bool { return rg.Status != entity.RangeStatusSuperseded })
}

func (r *NumberingRepo) find(tenantID string, match func(entity.NumberingRange) bool) (*entity.NumberingRange, error) {
	var out *entity.NumberingRange
	err := r.v.read(func(st *state) error {
		for _, rg := range st.ranges {
			if rg.TenantID != tenantID || !match(rg) {
				continue
			}
			if out == nil || rg.CreatedAt.After(out.CreatedAt) {
				found := rg
				out = &found
			}
		}
		return nil
	})
	return out, err
}

func (r *NumberingRepo) GetByID(_ context.Context, tenantID, id string) (*entity.NumberingRange, error) {
	var out *entity.NumberingRange
	err := r.v.read(func(st *state) error {
		if rg, ok := st.ranges[id]; ok && rg.TenantID == tenantID {
			out = &rg
		}
		return nil
	})
	return out, err
}

func (r *NumberingRepo) Create(_ context.Context, rg *entity.NumberingRange) error {
	if rg.ID == "" {
		rg.ID = uuid.New().String()
	}
	return r.v.write(func(st *state) error {
		st.ranges[rg.ID] = *rg
		return nil
	})
}

func (r *NumberingRepo) Update(_ context.Context, rg *entity.NumberingRange) error {
	return r.v.write(func(st *state) error {
		st.ranges[rg.ID] = *rg
		return nil
	})
}

func (r *NumberingRepo) Supersede(_ context.Context, tenantID string) error {
	return r.v.write(func(st *state) error {
		for id, rg := range st.ranges {
			if rg.TenantID == tenantID && rg.Status != entity.RangeStatusSuperseded {
				rg.Status = entity.RangeStatusSuperseded
				rg.UpdatedAt = time.Now().UTC()
				st.ranges[id] = rg
			}
		}
		return nil
	})
}
