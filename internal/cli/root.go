// Package cli implements the worklog command line.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/rpggio/worklog/internal/config"
	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/spf13/cobra"
)

// App carries what every command needs.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Version string
}

// Execute runs the command line with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.newRootCommand()
	root.SetArgs(args)
	root.SetIn(a.In)
	root.SetOut(a.Out)
	root.SetErr(a.Err)
	return root.ExecuteContext(ctx)
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "worklog",
		Short: "Track consolidation debt across agent sessions",
		Long: `worklog scores each agent session by how much it changed, keeps a running
consolidation debt, and clears it when you consolidate.

Hooks record sessions automatically; the other commands inspect and manage the ledger.`,
		Version:       a.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		a.statusCmd(),
		a.debtCmd(),
		a.addCmd(),
		a.startCmd(),
		a.doneCmd(),
		a.historyCmd(),
		a.bookmarkCmd(),
		a.triggerCmd(),
		a.changesCmd(),
		a.knowledgeCmd(),
		a.hookCmd(),
		a.serveCmd(),
	)
	return root
}

// withLedger opens the ledger for the duration of fn.
func (a *App) withLedger(fn func(*ledger.Service) error) error {
	svc, closer, err := openLedger(a.Config, a.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			a.Logger.Warn("closing history backend", "error", err)
		}
	}()
	return fn(svc)
}
