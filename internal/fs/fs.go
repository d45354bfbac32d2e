// Package fs provides the filesystem abstraction used by the file-backed
// view store bridge.
//
// The main types are:
//   - [FS]: interface for the few filesystem operations the bridge needs
//   - [Real]: production implementation using [os], atomic renames and flock
//   - [Faulty]: testing implementation that fails chosen operations
package fs

import (
	"io"
	"os"
)

// Locker represents a held file lock.
// Call [Locker.Close] to release the lock.
type Locker interface {
	io.Closer
}

// FS defines the filesystem operations needed to persist whole documents.
type FS interface {
	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic writes data to a file atomically.
	// Uses a temp file + rename to prevent partial writes on crash.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// ReadDir lists a directory sorted by name. See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// Remove deletes a file. See [os.Remove].
	Remove(path string) error

	// Lock acquires an exclusive lock guarding path.
	// Blocks until the lock is acquired or returns an error on timeout.
	Lock(path string) (Locker, error)
}
