package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/spf13/cobra"
)

func (a *App) statusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show debt, bookmarks, triggers and pending changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				snap, err := svc.Status(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), snap)
				}
				printStatus(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	return cmd
}

func (a *App) debtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debt",
		Short: "Print the current consolidation debt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				snap, err := svc.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), snap.Debt)
				return nil
			})
		},
	}
}

func (a *App) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <score 1-3> <description>",
		Short: "Add manual debt for work no transcript captured",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: score must be an integer from 1 to 3", ledger.ErrInvalidScore)
			}
			description := strings.Join(args[1:], " ")
			return a.withLedger(func(svc *ledger.Service) error {
				rec, err := svc.AddDebt(cmd.Context(), score, description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d debt (%s)\n", *rec.Score, rec.SessionID)
				return nil
			})
		},
	}
}

func (a *App) startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Mark the consolidation epoch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				result, err := svc.StartConsolidation(cmd.Context())
				if err != nil {
					return err
				}
				if result.Previous != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: consolidation already started at %s; epoch replaced\n",
						result.Previous.Format(time.RFC3339))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Consolidation started at %s\n", result.Epoch.Format(time.RFC3339))
				return nil
			})
		},
	}
}

func (a *App) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <summary>",
		Short: "Finish consolidation and record it in history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary := strings.Join(args, " ")
			return a.withLedger(func(svc *ledger.Service) error {
				entry, err := svc.CompleteConsolidation(cmd.Context(), summary)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Consolidated: debt %d -> %d, %d session(s), %d bookmark(s)\n",
					entry.DebtBefore, entry.DebtAfter, entry.SessionsProcessed, entry.BookmarksProcessed)
				return nil
			})
		},
	}
}

func (a *App) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past consolidations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				entries, err := svc.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No consolidations yet.")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s  debt %d -> %d  sessions %d  bookmarks %d\n    %s\n",
						e.Date, e.DebtBefore, e.DebtAfter, e.SessionsProcessed, e.BookmarksProcessed, e.Summary)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "count", "n", 10, "Number of entries to show")
	return cmd
}

func printStatus(w io.Writer, snap *ledger.Snapshot) {
	fmt.Fprintf(w, "Debt: %d/%d", snap.Debt, snap.DebtThreshold)
	if snap.NeedsConsolidation {
		fmt.Fprint(w, " (consolidation recommended)")
	}
	fmt.Fprintln(w)
	if snap.LastConsolidation.At != nil {
		fmt.Fprintf(w, "Last consolidation: %s\n", snap.LastConsolidation.At.Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "Last consolidation: never")
	}
	if snap.ConsolidationEpoch != nil {
		fmt.Fprintf(w, "Consolidation in progress since %s\n", snap.ConsolidationEpoch.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Sessions: %d (%d awaiting analysis)\n", snap.Sessions, snap.UnscoredSessions)
	fmt.Fprintf(w, "Bookmarks: %d\n", snap.BookmarkCount)
	for _, b := range snap.Bookmarks {
		fmt.Fprintf(w, "  [%d] %s\n", b.Salience, b.Message)
	}
	fmt.Fprintf(w, "Pending changes: %d\n", snap.PendingChanges)
	fmt.Fprintf(w, "Active triggers: %d\n", snap.ActiveTriggers)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
