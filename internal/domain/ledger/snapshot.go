package ledger

import "time"

const (
	snapshotBookmarks = 5
	snapshotKnowledge = 5
	warmWindow        = 14 * 24 * time.Hour
)

// Snapshot is a read-only summary of the ledger for display.
type Snapshot struct {
	Debt               int            `json:"debt"`
	DebtThreshold      int            `json:"debtThreshold"`
	NeedsConsolidation bool           `json:"needsConsolidation"`
	LastConsolidation  Consolidation  `json:"lastConsolidation"`
	ConsolidationEpoch *time.Time     `json:"consolidationEpoch"`
	Sessions           int            `json:"sessions"`
	UnscoredSessions   int            `json:"unscoredSessions"`
	BookmarkCount      int            `json:"bookmarkCount"`
	Bookmarks          []Bookmark     `json:"bookmarks"`
	PendingChanges     int            `json:"pendingChanges"`
	ActiveTriggers     int            `json:"activeTriggers"`
	WarmKnowledge      []KnowledgeUse `json:"warmKnowledge"`
}

// Snapshot summarizes the ledger. A threshold of zero or less never flags
// the ledger as needing consolidation.
func (s *State) Snapshot(now time.Time, threshold int) Snapshot {
	return Snapshot{
		Debt:               s.Debt,
		DebtThreshold:      threshold,
		NeedsConsolidation: threshold > 0 && s.Debt >= threshold,
		LastConsolidation:  s.LastConsolidation,
		ConsolidationEpoch: s.ConsolidationEpoch,
		Sessions:           len(s.Sessions),
		UnscoredSessions:   s.UnscoredSessions(),
		BookmarkCount:      len(s.Bookmarks),
		Bookmarks:          s.TopBookmarks(snapshotBookmarks),
		PendingChanges:     len(s.ChangeLog),
		ActiveTriggers:     s.ActiveTriggers(),
		WarmKnowledge:      s.WarmKnowledge(now, warmWindow, snapshotKnowledge),
	}
}
