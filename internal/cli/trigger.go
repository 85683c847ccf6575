package cli

import (
	"fmt"
	"strings"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/spf13/cobra"
)

func (a *App) triggerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Manage prospective reminders",
	}

	var source string
	var maxFires int
	add := &cobra.Command{
		Use:   "add <keywords> <reminder>",
		Short: "Remind when any keyword appears in session context",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				t, err := svc.AddTrigger(cmd.Context(), ledger.TriggerInput{
					When:     args[0],
					Remind:   strings.Join(args[1:], " "),
					Source:   source,
					MaxFires: maxFires,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added trigger %s (fires up to %d times)\n", t.ID, t.MaxFires)
				return nil
			})
		},
	}
	add.Flags().StringVar(&source, "source", "", "Where the reminder came from")
	add.Flags().IntVar(&maxFires, "max-fires", ledger.DefaultMaxFires, "How many times the trigger may fire")

	list := &cobra.Command{
		Use:   "list",
		Short: "List triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				triggers, err := svc.ListTriggers(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(triggers) == 0 {
					fmt.Fprintln(out, "No triggers.")
					return nil
				}
				for _, t := range triggers {
					state := fmt.Sprintf("%d/%d", t.FiredCount, t.MaxFires)
					if t.Expired() {
						state += " expired"
					}
					fmt.Fprintf(out, "%s  when %q  %s  %s\n", t.ID, t.When, state, t.Remind)
				}
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				if err := svc.RemoveTrigger(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}
