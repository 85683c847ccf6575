package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/repository"
)

// HistoryRepository implements ledger.HistoryRepository for SQLite
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts a new history entry
func (r *HistoryRepository) Append(ctx context.Context, entry ledger.HistoryEntry) error {
	query := `
		INSERT INTO consolidation_history (
			date, summary, debt_before, debt_after,
			sessions_processed, bookmarks_processed
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.Date,
		entry.Summary,
		entry.DebtBefore,
		entry.DebtAfter,
		entry.SessionsProcessed,
		entry.BookmarksProcessed,
	)
	if err != nil {
		if isBusy(err) {
			return fmt.Errorf("failed to append history: %w", repository.ErrLockTimeout)
		}
		return fmt.Errorf("failed to append history: %w", err)
	}

	return nil
}

// List returns history entries, newest first
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]ledger.HistoryEntry, error) {
	query := `
		SELECT
			date, summary, debt_before, debt_after,
			sessions_processed, bookmarks_processed
		FROM consolidation_history
		ORDER BY id DESC
	`

	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []ledger.HistoryEntry{}
	for rows.Next() {
		var entry ledger.HistoryEntry
		if err := rows.Scan(
			&entry.Date,
			&entry.Summary,
			&entry.DebtBefore,
			&entry.DebtAfter,
			&entry.SessionsProcessed,
			&entry.BookmarksProcessed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return entries, nil
}
