package ledger

import (
	"strings"
	"time"
)

// HistoryDateFormat is the layout of HistoryEntry.Date.
const HistoryDateFormat = "2006-01-02"

// StartResult describes a consolidation start. Previous is set when an
// unfinished consolidation was overwritten.
type StartResult struct {
	Epoch    time.Time
	Previous *time.Time
}

// StartConsolidation marks the epoch before which ledger contents will be
// cleared by CompleteConsolidation. Calling it again while a consolidation
// is in progress replaces the epoch.
func (s *State) StartConsolidation(now time.Time) StartResult {
	result := StartResult{Epoch: now}
	if s.ConsolidationEpoch != nil {
		result.Previous = timePtr(*s.ConsolidationEpoch)
	}
	s.ConsolidationEpoch = timePtr(now)
	return result
}

// CompleteConsolidation clears everything recorded up to the epoch, prunes
// expired triggers, and returns the history entry for this run. Work
// recorded after the epoch is kept. Without an epoch everything is cleared.
func (s *State) CompleteConsolidation(summary string, now time.Time) (HistoryEntry, error) {
	summary = strings.TrimSpace(summary)
	if err := requireText(summary); err != nil {
		return HistoryEntry{}, err
	}

	debtBefore := s.Debt
	var sessionsProcessed, bookmarksProcessed int

	if epoch := s.ConsolidationEpoch; epoch != nil {
		retained := make([]SessionRecord, 0, len(s.Sessions))
		for _, sess := range s.Sessions {
			if sess.StoppedAt != nil && sess.StoppedAt.After(*epoch) {
				retained = append(retained, sess)
				continue
			}
			sessionsProcessed++
		}
		s.Sessions = retained

		keptBookmarks := make([]Bookmark, 0, len(s.Bookmarks))
		for _, b := range s.Bookmarks {
			if b.CreatedAt.After(*epoch) {
				keptBookmarks = append(keptBookmarks, b)
				continue
			}
			bookmarksProcessed++
		}
		s.Bookmarks = keptBookmarks

		keptChanges := make([]DashboardChange, 0, len(s.ChangeLog))
		for _, c := range s.ChangeLog {
			if c.Timestamp.After(*epoch) {
				keptChanges = append(keptChanges, c)
			}
		}
		s.ChangeLog = keptChanges

		s.Debt = s.ScoredDebt()
	} else {
		sessionsProcessed = len(s.Sessions)
		bookmarksProcessed = len(s.Bookmarks)
		s.Sessions = []SessionRecord{}
		s.Bookmarks = []Bookmark{}
		s.ChangeLog = []DashboardChange{}
		s.Debt = 0
	}

	s.PruneExpiredTriggers()

	s.LastConsolidation = Consolidation{At: timePtr(now), Summary: &summary}
	s.ConsolidationEpoch = nil

	return HistoryEntry{
		Date:               now.Format(HistoryDateFormat),
		Summary:            summary,
		DebtBefore:         debtBefore,
		DebtAfter:          s.Debt,
		SessionsProcessed:  sessionsProcessed,
		BookmarksProcessed: bookmarksProcessed,
	}, nil
}
