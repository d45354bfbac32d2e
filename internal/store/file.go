package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/taskboard/internal/fs"
	"github.com/calvinalkan/taskboard/internal/view"
)

const (
	filePerms = 0o644
	dirPerms  = 0o755
)

// File stores each snapshot as "<dir>/<key>.json". Writes are atomic and
// serialized across processes by a lock file.
type File struct {
	fs  fs.FS
	dir string
}

// NewFile returns a File bridge rooted at dir.
func NewFile(fsys fs.FS, dir string) *File {
	return &File{fs: fsys, dir: filepath.Clean(dir)}
}

// Path returns the file a key is stored in.
func (f *File) Path(key string) string {
	return filepath.Join(f.dir, key+snapshotExt)
}

func (f *File) Load(ctx context.Context, key string) (view.Snapshot, bool, error) {
	err := validateKey(key)
	if err != nil {
		return view.Snapshot{}, false, err
	}

	if err := ctx.Err(); err != nil {
		return view.Snapshot{}, false, err
	}

	data, err := f.fs.ReadFile(f.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return view.Snapshot{}, false, nil
	}

	if err != nil {
		return view.Snapshot{}, false, fmt.Errorf("read snapshot %s: %w", key, err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return view.Snapshot{}, false, fmt.Errorf("load %s: %w", key, err)
	}

	return snap, true, nil
}

func (f *File) Save(ctx context.Context, key string, snap view.Snapshot) (err error) {
	err = validateKey(key)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	err = f.fs.MkdirAll(f.dir, dirPerms)
	if err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	path := f.Path(key)

	lock, err := f.fs.Lock(path)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}

	defer func() {
		err = errors.Join(err, lock.Close())
	}()

	err = f.fs.WriteFileAtomic(path, data, filePerms)
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}

	return nil
}

const snapshotExt = ".json"

// Keys lists the keys of the snapshot files in the store directory. A missing
// directory holds no keys.
func (f *File) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := f.fs.ReadDir(f.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	keys := []string{}

	for _, e := range entries {
		key, ok := strings.CutSuffix(e.Name(), snapshotExt)
		if !ok || !e.Type().IsRegular() || validateKey(key) != nil {
			continue
		}

		keys = append(keys, key)
	}

	return keys, nil
}

// Delete removes the snapshot file of key under the same lock as [File.Save].
func (f *File) Delete(ctx context.Context, key string) (err error) {
	err = validateKey(key)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	path := f.Path(key)

	lock, err := f.fs.Lock(path)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}

	defer func() {
		err = errors.Join(err, lock.Close())
	}()

	err = f.fs.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}

	return nil
}

// Close is a no-op; File holds no resources between calls.
func (f *File) Close() error {
	return nil
}

var _ Bridge = (*File)(nil)
