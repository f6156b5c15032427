package areastore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrWriteTokenHeld is returned by AcquireWriteToken when another
// area-derivation run already holds the write token.
var ErrWriteTokenHeld = errors.New("areastore: write token already held")

// WriteToken is the dispatcher protocol's area-derivation write token (§5):
// mutually exclusive with every other writer, but never blocks a reader of
// the previously committed snapshot. It is represented as a lock file so
// the exclusion holds across the separate worker processes the external
// dispatcher coordinates, not just within one process.
type WriteToken struct {
	path string
}

// AcquireWriteToken creates the lock file under lockDir, failing with
// ErrWriteTokenHeld if a write is already in flight. The caller must call
// Release once the run (commit or rollback) has finished.
func AcquireWriteToken(lockDir string) (*WriteToken, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("areastore: create lock dir: %w", err)
	}
	path := filepath.Join(lockDir, "area_write.lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrWriteTokenHeld
		}
		return nil, fmt.Errorf("areastore: acquire write token: %w", err)
	}
	_ = f.Close()
	return &WriteToken{path: path}, nil
}

// Release drops the write token, allowing the next area-derivation run to
// acquire it.
func (t *WriteToken) Release() error {
	if t == nil {
		return nil
	}
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("areastore: release write token: %w", err)
	}
	return nil
}
