package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/hook"
	"github.com/spf13/cobra"
)

// hookCmd groups the runtime hook entry points. Hook failures are logged
// and never reported as a non-zero exit, so a broken ledger cannot block
// the agent runtime.
func (a *App) hookCmd() *cobra.Command {
	var flags hook.Input
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Entry points called by the agent runtime",
	}
	cmd.PersistentFlags().StringVar(&flags.SessionID, "session-id", "", "Session id (overrides stdin)")
	cmd.PersistentFlags().StringVar(&flags.TranscriptPath, "transcript", "", "Transcript path (overrides stdin)")

	var lastMessage string
	stop := &cobra.Command{
		Use:   "stop",
		Short: "Record a finished session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			override := flags
			override.LastAssistantMessage = lastMessage
			a.runHook(cmd, "stop", true, override, func(r *hook.Runner, in hook.Input) error {
				return r.Stop(cmd.Context(), in)
			})
			return nil
		},
	}
	stop.Flags().StringVar(&lastMessage, "last-message", "", "Last assistant message (overrides stdin)")

	var matchContext string
	sessionStart := &cobra.Command{
		Use:   "session-start",
		Short: "Score pending sessions, fire triggers and print the ledger briefing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.runHook(cmd, "session-start", true, flags, func(r *hook.Runner, in hook.Input) error {
				return r.SessionStart(cmd.Context(), in, matchContext)
			})
			return nil
		},
	}
	sessionStart.Flags().StringVar(&matchContext, "context", "", "Extra text to match trigger keywords against")

	subagentStart := &cobra.Command{
		Use:   "subagent-start",
		Short: "Print a short briefing without touching the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.runHook(cmd, "subagent-start", false, flags, func(r *hook.Runner, _ hook.Input) error {
				return r.SubagentStart(cmd.Context())
			})
			return nil
		},
	}

	cmd.AddCommand(stop, sessionStart, subagentStart)
	return cmd
}

// runHook reads the runtime payload only when the hook uses it and stdin is
// not a terminal; an interactive run would otherwise wait for EOF.
func (a *App) runHook(cmd *cobra.Command, name string, readPayload bool, override hook.Input, fn func(*hook.Runner, hook.Input) error) {
	var in hook.Input
	if stdin := cmd.InOrStdin(); readPayload && !isTerminal(stdin) {
		var err error
		in, err = hook.ReadInput(stdin)
		if err != nil {
			a.Logger.Warn("ignoring unreadable hook input", "hook", name, "error", err)
		}
	}
	in = in.Merge(override)

	err := a.withLedger(func(svc *ledger.Service) error {
		r := hook.NewRunner(svc, cmd.OutOrStdout(), a.Config.Ledger.DeferAnalysis, a.Logger)
		return fn(r, in)
	})
	if err != nil {
		a.Logger.Error("hook failed", "hook", name, "session_id", in.SessionID, "error", err)
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
