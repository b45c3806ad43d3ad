package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/pos-core/internal/domain"
)

// Querier lo cumplen *pgxpool.Pool y pgx.Tx: los repos funcionan igual dentro o fuera de una transacción.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// pgxScanner pgx.Row o pgx.Rows.
type pgxScanner interface {
	Scan(dest ...any) error
}

const sqlStateUniqueViolation = "23505"

func pgError(err error) *pgconn.PgError {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

func isUniqueViolation(err error) bool {
	pe := pgError(err)
	return pe != nil && pe.Code == sqlStateUniqueViolation
}

func constraintName(err error) string {
	if pe := pgError(err); pe != nil {
		return pe.ConstraintName
	}
	return ""
}

// insertErr traduce la violación de unicidad a domain.ErrDuplicate.
func insertErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return domain.ErrDuplicate
	}
	return fmt.Errorf("insert %s: %w", what, err)
}

// scanOne sin filas es (nil, nil): los repos devuelven nil y el caso de uso decide el 404.
func scanOne[T any](row pgx.Row, what string, scan func(pgxScanner, *T) error) (*T, error) {
	var v T
	if err := scan(row, &v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", what, err)
	}
	return &v, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
