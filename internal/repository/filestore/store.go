// Package filestore keeps projects on the local file system: one directory per project
// holding a YAML metadata file and a CBOR resource document.
package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"framekit/internal/domain"
	"framekit/internal/domain/repositories"

	"github.com/google/uuid"
)

const (
	projectFile   = "project.yaml"
	resourcesFile = "resources.cbor"
)

// Store is the shared state of the file-backed repositories
type Store struct {
	dir    string
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewStore creates dir if needed and returns a store rooted there
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) projectDir(id string) string {
	return filepath.Join(s.dir, id)
}

// checkID rejects anything that is not a project id, so ids never escape the data dir
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &domain.NotFoundError{Message: fmt.Sprintf("project %s not found", id)}
	}
	return nil
}

// writeAtomic replaces dir/name by renaming a synced temp file over it
func writeAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, name))
}

// TransactionManager serialises writers. The file store has no rollback: a failing fn
// leaves whatever it already wrote.
type TransactionManager struct {
	store *Store
	mu    sync.Mutex
}

// NewTransactionManager creates a transaction manager for the store
func NewTransactionManager(store *Store) repositories.TransactionManager {
	return &TransactionManager{store: store}
}

// ExecTx runs fn while holding the writer lock
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
