package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rpggio/worklog/internal/domain/ledger"
)

// DefaultLockTimeout bounds how long an update waits for another process.
const DefaultLockTimeout = 5 * time.Second

// StateStore keeps the ledger in a single JSON document.
type StateStore struct {
	path        string
	lockTimeout time.Duration
	logger      *slog.Logger
}

// NewStateStore creates a store for the ledger file at path.
func NewStateStore(path string, lockTimeout time.Duration, logger *slog.Logger) *StateStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StateStore{path: path, lockTimeout: lockTimeout, logger: logger}
}

// Path returns the ledger file location.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the ledger without locking. A missing or malformed file yields
// an empty ledger.
func (s *StateStore) Load(_ context.Context) (*ledger.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ledger.NewState(), nil
		}
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	var st ledger.State
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("ledger file is malformed, starting from empty state", "path", s.path, "error", err)
		return ledger.NewState(), nil
	}
	st.Normalize()
	return &st, nil
}

// Update locks the ledger, applies fn and writes the result. Nothing is
// written when fn fails.
func (s *StateStore) Update(ctx context.Context, fn func(*ledger.State) error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	lock, err := acquireLock(ctx, s.path+".lock", s.lockTimeout)
	if err != nil {
		s.logger.Warn("ledger lock unavailable", "path", s.path, "error", err)
		return err
	}
	defer func() {
		if err := lock.release(); err != nil {
			s.logger.Warn("releasing ledger lock", "path", s.path, "error", err)
		}
	}()

	st, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return writeJSON(s.path, st)
}
