package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups for ids the store has never seen or
// has purged.
var ErrNotFound = errors.New("not found")

// ErrDuplicateLink is returned by Add when the draft's non-empty link is
// already taken. The link is the sole dedup key, so two rows sharing one
// would corrupt every later dedup decision.
var ErrDuplicateLink = errors.New("link already exists")

// StorageError wraps an I/O failure from a backend. It is fatal to the
// operation that hit it: the store makes no rollback attempt, so callers
// must re-read before trusting in-memory state.
type StorageError struct {
	Backend string // "file", "sqlite", "postgres"
	Op      string // "add", "update", "save", ...
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err; a nil err returns nil so call sites can wrap
// unconditionally.
func NewStorageError(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Backend: backend, Op: op, Err: err}
}

// IsStorageError reports whether err carries a *StorageError anywhere in
// its chain.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
