package hook

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rpggio/worklog/internal/domain/ledger"
)

// RenderSessionStart writes the session-start briefing.
func RenderSessionStart(w io.Writer, result *ledger.SessionStartResult) error {
	var b strings.Builder
	snap := result.Snapshot

	b.WriteString("## Worklog\n\n")
	writeDebtLine(&b, snap)
	if snap.LastConsolidation.At != nil {
		fmt.Fprintf(&b, "Last consolidation: %s", snap.LastConsolidation.At.Format(time.DateOnly))
		if snap.LastConsolidation.Summary != nil {
			fmt.Fprintf(&b, " (%s)", *snap.LastConsolidation.Summary)
		}
		b.WriteString("\n")
	}
	if snap.ConsolidationEpoch != nil {
		fmt.Fprintf(&b, "Consolidation in progress since %s\n", snap.ConsolidationEpoch.Format(time.RFC3339))
	}
	if result.Analyzed > 0 {
		fmt.Fprintf(&b, "Scored %d pending session(s)\n", result.Analyzed)
	}
	if snap.PendingChanges > 0 {
		fmt.Fprintf(&b, "Unconsolidated dashboard changes: %d\n", snap.PendingChanges)
	}

	if len(result.Fired) > 0 {
		b.WriteString("\n### Reminders\n")
		for _, f := range result.Fired {
			fmt.Fprintf(&b, "- %s (%d/%d)\n", f.Remind, f.FiredCount, f.MaxFires)
		}
	}

	if len(snap.Bookmarks) > 0 {
		fmt.Fprintf(&b, "\n### Bookmarks (%d)\n", snap.BookmarkCount)
		for _, bm := range snap.Bookmarks {
			fmt.Fprintf(&b, "- [%s] %s\n", strings.Repeat("*", bm.Salience), bm.Message)
		}
	}

	if len(snap.WarmKnowledge) > 0 {
		b.WriteString("\n### Recently used knowledge\n")
		for _, k := range snap.WarmKnowledge {
			fmt.Fprintf(&b, "- %s (%dx)\n", k.Slug, k.Count)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderBriefing writes the lighter subagent briefing.
func RenderBriefing(w io.Writer, snap *ledger.Snapshot) error {
	var b strings.Builder
	writeDebtLine(&b, *snap)
	for _, bm := range snap.Bookmarks {
		if bm.Salience == 3 {
			fmt.Fprintf(&b, "- %s\n", bm.Message)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeDebtLine(b *strings.Builder, snap ledger.Snapshot) {
	fmt.Fprintf(b, "Consolidation debt: %d", snap.Debt)
	if snap.DebtThreshold > 0 {
		fmt.Fprintf(b, "/%d", snap.DebtThreshold)
	}
	if snap.NeedsConsolidation {
		b.WriteString(" - consolidation recommended")
	}
	b.WriteString("\n")
	if snap.UnscoredSessions > 0 {
		fmt.Fprintf(b, "Sessions awaiting analysis: %d\n", snap.UnscoredSessions)
	}
}
