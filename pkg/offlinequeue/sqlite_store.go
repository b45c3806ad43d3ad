package offlinequeue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore cola durable en un archivo SQLite local (modo WAL). Sobrevive a cierres de la
// aplicación y a cortes de energía del punto de venta.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite abre (o crea) la cola en path. ":memory:" sirve para pruebas.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("abrir cola sqlite: %w", err)
	}
	// Un único escritor: el cliente es de un solo hilo y así se evita SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrar cola sqlite: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS queued_operations (
		id              TEXT PRIMARY KEY,
		method          TEXT NOT NULL,
		path            TEXT NOT NULL,
		body            BLOB,
		label           TEXT NOT NULL DEFAULT '',
		created_at      INTEGER NOT NULL,
		attempts        INTEGER NOT NULL DEFAULT 0,
		last_error      TEXT NOT NULL DEFAULT '',
		last_attempt_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_queued_operations_created
		ON queued_operations(created_at, id);`
	_, err := s.db.Exec(schema)
	return err
}

// Close cierra la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, op *QueuedOperation) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO queued_operations (id, method, path, body, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		op.ID, op.Method, op.Path, op.Body, op.Label, op.CreatedAt.UTC().UnixNano())
	if err != nil {
		return false, fmt.Errorf("encolar %s: %w", op.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]QueuedOperation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, method, path, body, label, created_at, attempts, last_error, last_attempt_at
		FROM queued_operations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listar cola: %w", err)
	}
	defer rows.Close()

	var out []QueuedOperation
	for rows.Next() {
		var (
			op          QueuedOperation
			createdAt   int64
			lastAttempt sql.NullInt64
		)
		if err := rows.Scan(&op.ID, &op.Method, &op.Path, &op.Body, &op.Label, &createdAt,
			&op.Attempts, &op.LastError, &lastAttempt); err != nil {
			return nil, fmt.Errorf("leer cola: %w", err)
		}
		op.CreatedAt = time.Unix(0, createdAt).UTC()
		if lastAttempt.Valid {
			t := time.Unix(0, lastAttempt.Int64).UTC()
			op.LastAttemptAt = &t
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queued_operations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("contar cola: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queued_operations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("quitar %s de la cola: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotQueued
	}
	return nil
}

func (s *SQLiteStore) MarkAttempt(ctx context.Context, id string, at time.Time, lastErr string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE queued_operations
		SET attempts = attempts + 1, last_error = ?, last_attempt_at = ?
		WHERE id = ?`, lastErr, at.UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("registrar intento de %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotQueued
	}
	return nil
}
