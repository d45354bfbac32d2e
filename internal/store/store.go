// Package store persists view snapshots. It provides two [view.Bridge]
// implementations: [File], one hujson document per dashboard key, and
// [SQLite], one row per key in a single database.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/taskboard/internal/fs"
	"github.com/calvinalkan/taskboard/internal/view"
)

// Backend names a bridge implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Bridge is a [view.Bridge] over every dashboard of one store directory.
type Bridge interface {
	view.Bridge

	// Keys lists the dashboards with a stored snapshot, ascending.
	Keys(ctx context.Context) ([]string, error)

	// Delete removes a dashboard's snapshot. A key with no snapshot
	// returns [ErrNotFound].
	Delete(ctx context.Context, key string) error

	Close() error
}

// Open returns the bridge for backend rooted at dir.
func Open(ctx context.Context, fsys fs.FS, backend Backend, dir string) (Bridge, error) {
	if dir == "" {
		return nil, fmt.Errorf("open store: %w", ErrDirEmpty)
	}

	switch backend {
	case BackendFile, "":
		return NewFile(fsys, dir), nil
	case BackendSQLite:
		return OpenSQLite(ctx, fsys, filepath.Join(dir, "views.sqlite"))
	default:
		return nil, fmt.Errorf("open store: %w: %q", ErrUnknownBackend, backend)
	}
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return nil
}

// decodeSnapshot accepts JSON with comments and trailing commas so snapshot
// files stay hand-editable.
func decodeSnapshot(data []byte) (view.Snapshot, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return view.Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var snap view.Snapshot

	err = json.Unmarshal(std, &snap)
	if err != nil {
		return view.Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return snap, nil
}

func encodeSnapshot(snap view.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return append(data, '\n'), nil
}
