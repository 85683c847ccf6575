package cli

import (
	"fmt"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/spf13/cobra"
)

func (a *App) knowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Track knowledge entry reads",
	}
	touch := &cobra.Command{
		Use:   "touch <slug>",
		Short: "Record that a knowledge entry was read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				rec, err := svc.TouchKnowledge(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s read %d time(s)\n", args[0], rec.Count)
				return nil
			})
		},
	}
	cmd.AddCommand(touch)
	return cmd
}

func (a *App) changesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "changes",
		Short: "List folded dashboard changes since the last consolidation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				changes, err := svc.ListChanges(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(changes) == 0 {
					fmt.Fprintln(out, "No pending changes.")
					return nil
				}
				for _, c := range changes {
					fmt.Fprintf(out, "%s  %s\n", c.Timestamp.Format("2006-01-02 15:04"), c.Summary)
				}
				return nil
			})
		},
	}
}
