package ledger

import "context"

// StateRepository persists the ledger aggregate. Update runs fn against the
// current state and persists the result only when fn returns nil.
type StateRepository interface {
	Load(ctx context.Context) (*State, error)
	Update(ctx context.Context, fn func(*State) error) error
}

// HistoryRepository persists the append-only consolidation history.
type HistoryRepository interface {
	Append(ctx context.Context, entry HistoryEntry) error
	List(ctx context.Context, limit int) ([]HistoryEntry, error)
}
