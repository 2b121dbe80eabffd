package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// SQLiteBackend stores every namespace as rows in a single key/value
// table, WAL-mode, one connection pool for the process. Grounded
// almost verbatim on the teacher's internal/database/db.go connection
// wrapper (profile-driven PRAGMAs, bounded pool, absolute-path
// resolution) — a signal store needs the exact same durability
// properties as the teacher's ledger database, just one table instead
// of a full schema.
type SQLiteBackend struct {
	conn *sql.DB
	path string
}

// NewSQLiteBackend opens (creating if needed) a WAL-mode SQLite
// database at path and ensures the key/value table exists.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	connStr := absPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(FULL)" + // ledger-grade: fsync every write
		"&_pragma=foreign_keys(1)" +
		"&_pragma=wal_autocheckpoint(1000)" +
		"&_pragma=cache_size(-64000)"

	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", absPath, err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite %s: %w", absPath, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
)`
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create kv_store table: %w", err)
	}

	return &SQLiteBackend{conn: conn, path: absPath}, nil
}

func (b *SQLiteBackend) Close() error { return b.conn.Close() }

func (b *SQLiteBackend) EnsureNamespace(context.Context, string) error {
	return nil // the shared table needs no per-namespace setup
}

// WriteData relies on SQLite's own transactional durability (WAL mode,
// synchronous=FULL) for atomicity rather than a temp+rename dance: a
// single INSERT ... ON CONFLICT DO UPDATE upsert is already
// all-or-nothing, and a crash
// mid-write leaves the prior row (if any) intact because SQLite never
// makes an in-progress write visible.
func (b *SQLiteBackend) WriteData(ctx context.Context, namespace, key string, data []byte) error {
	_, err := b.conn.ExecContext(ctx,
		`INSERT INTO kv_store (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, data, time.Now().UnixMilli())
	return err
}

func (b *SQLiteBackend) ReadData(ctx context.Context, namespace, key string) ([]byte, error) {
	var data []byte
	err := b.conn.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE namespace = ? AND key = ?`, namespace, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nil // read failures are non-fatal per spec.md §7
	}
	return data, nil
}

func (b *SQLiteBackend) DeleteData(ctx context.Context, namespace, key string) error {
	_, err := b.conn.ExecContext(ctx, `DELETE FROM kv_store WHERE namespace = ? AND key = ?`, namespace, key)
	return err
}

func (b *SQLiteBackend) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	rows, err := b.conn.QueryContext(ctx, `SELECT key FROM kv_store WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
