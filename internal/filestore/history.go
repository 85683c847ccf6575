package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/repository"
)

// HistoryStore keeps consolidation history as a JSON array, newest first.
// It is kept apart from the ledger so it can grow without slowing hooks.
// Appends are serialized by the ledger lock held around consolidation.
type HistoryStore struct {
	path   string
	logger *slog.Logger
}

// NewHistoryStore creates a history store at path.
func NewHistoryStore(path string, logger *slog.Logger) *HistoryStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HistoryStore{path: path, logger: logger}
}

// Append prepends entry. A corrupt history file is never overwritten.
func (s *HistoryStore) Append(_ context.Context, entry ledger.HistoryEntry) error {
	entries, err := s.read()
	if err != nil {
		return err
	}
	entries = append([]ledger.HistoryEntry{entry}, entries...)
	return writeJSON(s.path, entries)
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (s *HistoryStore) List(_ context.Context, limit int) ([]ledger.HistoryEntry, error) {
	entries, err := s.read()
	if err != nil {
		if errors.Is(err, repository.ErrCorrupt) {
			s.logger.Warn("history file is malformed", "path", s.path, "error", err)
			return []ledger.HistoryEntry{}, nil
		}
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *HistoryStore) read() ([]ledger.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []ledger.HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []ledger.HistoryEntry{}, nil
	}
	var entries []ledger.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrCorrupt, s.path, err)
	}
	if entries == nil {
		entries = []ledger.HistoryEntry{}
	}
	return entries, nil
}
