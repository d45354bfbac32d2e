package store

import "errors"

// ErrCorrupt reports a stored snapshot that cannot be decoded.
var ErrCorrupt = errors.New("snapshot corrupt")

// ErrInvalidKey reports a dashboard key that cannot name a snapshot.
var ErrInvalidKey = errors.New("invalid key")

// ErrUnknownBackend reports a backend name [Open] does not know.
var ErrUnknownBackend = errors.New("unknown backend")

// ErrNotFound reports a dashboard key with no stored snapshot.
var ErrNotFound = errors.New("dashboard not found")

// ErrDirEmpty reports a missing store directory.
var ErrDirEmpty = errors.New("store directory is empty")
