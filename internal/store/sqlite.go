package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/calvinalkan/taskboard/internal/fs"
	"github.com/calvinalkan/taskboard/internal/view"
)

// schemaVersion is stored in SQLite's user_version pragma.
// Increment this whenever the schema changes.
const schemaVersion = 1

// sqliteBusyTimeout is the time SQLite waits when the database is locked.
const sqliteBusyTimeout = 10000 // milliseconds

// SQLite stores every dashboard's snapshot as one row of a single database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path. The parent
// directory is created through fsys.
func OpenSQLite(ctx context.Context, fsys fs.FS, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("open sqlite: path is empty")
	}

	err := fsys.MkdirAll(filepath.Dir(path), dirPerms)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	err = applyPragmas(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	err = migrate(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// applyPragmas configures the connection using a single batch statement.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = FULL;
		PRAGMA temp_store = MEMORY;
	`, sqliteBusyTimeout))
	if err != nil {
		return fmt.Errorf("apply pragmas: %w", err)
	}

	return nil
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	row := db.QueryRowContext(ctx, "PRAGMA user_version")

	var version int

	err := row.Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}

	return version, nil
}

func migrate(ctx context.Context, db *sql.DB) (err error) {
	version, err := userVersion(ctx, db)
	if err != nil {
		return err
	}

	if version == schemaVersion {
		return nil
	}

	if version > schemaVersion {
		return fmt.Errorf("sqlite schema version %d is newer than supported %d", version, schemaVersion)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS view_stores (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	) WITHOUT ROWID`)
	if err != nil {
		return fmt.Errorf("create view_stores: %w", err)
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	if err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	committed = true

	return nil
}

func (s *SQLite) Load(ctx context.Context, key string) (view.Snapshot, bool, error) {
	err := validateKey(key)
	if err != nil {
		return view.Snapshot{}, false, err
	}

	var data []byte

	err = s.db.QueryRowContext(ctx, "SELECT data FROM view_stores WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return view.Snapshot{}, false, nil
	}

	if err != nil {
		return view.Snapshot{}, false, fmt.Errorf("query snapshot %s: %w", key, err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return view.Snapshot{}, false, fmt.Errorf("load %s: %w", key, err)
	}

	return snap, true, nil
}

func (s *SQLite) Save(ctx context.Context, key string, snap view.Snapshot) error {
	err := validateKey(key)
	if err != nil {
		return err
	}

	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO view_stores (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}

	return nil
}

// Keys lists the stored dashboard keys in ascending order.
func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM view_stores ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}

	defer func() { _ = rows.Close() }()

	keys := []string{}

	for rows.Next() {
		var key string

		err = rows.Scan(&key)
		if err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}

		keys = append(keys, key)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}

	return keys, nil
}

// Delete removes the row of key.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	err := validateKey(key)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM view_stores WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}

var _ Bridge = (*SQLite)(nil)
