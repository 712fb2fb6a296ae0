package lock

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cruciblehq/forge/internal/paths"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Lock store backed by a sqlite database shared by all processes of the
// user. Rows outlive the processes that wrote them.
type SQLiteStore struct {
	pool *sqlitemigration.Pool
}

// Opens the lock database at path, creating it and its parent directory
// if needed. Schema migrations run in the background and are awaited by
// the first query.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = paths.LockDatabase()
	}
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockStore, err)
	}

	pool := sqlitemigration.NewPool(path, loadSchema(), sqlitemigration.Options{
		Flags:       sqlite.OpenCreate | sqlite.OpenReadWrite,
		PrepareConn: prepareConn,
		OnStartMigrate: func() {
			slog.Debug("migrating lock database", "path", path)
		},
		OnError: func(err error) {
			slog.Error("lock database migration failed", "path", path, "error", err)
		},
	})

	return &SQLiteStore{pool: pool}, nil
}

// Returns the current value of the lock row, zero if absent.
func (s *SQLiteStore) Value(ctx context.Context, key Key) (value int, err error) {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLockStore, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "value.sql", &sqlitex.ExecOptions{
		Named: map[string]any{":key": int64(key)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = int(stmt.GetInt64("value"))
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLockStore, err)
	}
	return value, nil
}

// Sets the lock row to one and records the calling process as holder.
func (s *SQLiteStore) Set(ctx context.Context, key Key, path string) (err error) {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLockStore, err)
	}
	defer s.pool.Put(conn)

	hostname, _ := os.Hostname()
	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "set.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":key":         int64(key),
			":path":        path,
			":pid":         int64(os.Getpid()),
			":hostname":    hostname,
			":acquired_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLockStore, err)
	}
	return nil
}

// Deletes the lock row.
func (s *SQLiteStore) Clear(ctx context.Context, key Key) error {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLockStore, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "clear.sql", &sqlitex.ExecOptions{
		Named: map[string]any{":key": int64(key)},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLockStore, err)
	}
	return nil
}

// Returns the recorded holder of a held lock, or nil.
func (s *SQLiteStore) Holder(ctx context.Context, key Key) (*Holder, error) {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockStore, err)
	}
	defer s.pool.Put(conn)

	var h *Holder
	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "holder.sql", &sqlitex.ExecOptions{
		Named: map[string]any{":key": int64(key)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			h = &Holder{
				Path:     stmt.GetText("path"),
				PID:      int(stmt.GetInt64("pid")),
				Hostname: stmt.GetText("hostname"),
			}
			h.AcquiredAt, _ = time.Parse(time.RFC3339, stmt.GetText("acquired_at"))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockStore, err)
	}
	return h, nil
}

// Closes all database connections.
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}

func prepareConn(conn *sqlite.Conn) error {
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode = wal;", nil); err != nil {
		return err
	}
	return sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout = 10000;", nil)
}

//go:embed sql/*.sql
//go:embed sql/schema/*.sql
var rawSQLFiles embed.FS

func sqlFiles() fs.FS {
	sub, err := fs.Sub(rawSQLFiles, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

var schemaState struct {
	init   sync.Once
	schema sqlitemigration.Schema
	err    error
}

func loadSchema() sqlitemigration.Schema {
	schemaState.init.Do(func() {
		for i := 1; ; i++ {
			migration, err := fs.ReadFile(sqlFiles(), fmt.Sprintf("schema/%02d.sql", i))
			if errors.Is(err, fs.ErrNotExist) {
				break
			}
			if err != nil {
				schemaState.err = err
				return
			}
			schemaState.schema.Migrations = append(schemaState.schema.Migrations, string(migration))
		}
	})

	if schemaState.err != nil {
		panic(schemaState.err)
	}
	return schemaState.schema
}
