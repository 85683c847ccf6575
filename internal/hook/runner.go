package hook

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rpggio/worklog/internal/domain/ledger"
)

// Ledger is the part of the ledger service the hooks use.
type Ledger interface {
	RecordStop(ctx context.Context, req ledger.StopRequest) (*ledger.SessionRecord, error)
	SessionStart(ctx context.Context, req ledger.SessionStartRequest) (*ledger.SessionStartResult, error)
	Status(ctx context.Context) (*ledger.Snapshot, error)
}

// Runner executes hooks against a ledger and writes their output.
type Runner struct {
	ledger        Ledger
	out           io.Writer
	logger        *slog.Logger
	deferAnalysis bool
}

// NewRunner creates a hook runner. With deferAnalysis set, the stop hook
// leaves transcripts unscored until the next session start.
func NewRunner(l Ledger, out io.Writer, deferAnalysis bool, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{ledger: l, out: out, logger: logger, deferAnalysis: deferAnalysis}
}

// Stop records a finished session. It writes nothing to out.
func (r *Runner) Stop(ctx context.Context, in Input) error {
	if in.SessionID == "" {
		r.logger.Warn("stop hook without session id, skipping")
		return nil
	}
	rec, err := r.ledger.RecordStop(ctx, ledger.StopRequest{
		SessionID:      in.SessionID,
		TranscriptPath: in.TranscriptPath,
		LastMessage:    truncateRunes(in.LastAssistantMessage, maxLastMessageRunes),
		Defer:          r.deferAnalysis,
	})
	if err != nil {
		return fmt.Errorf("stop hook: %w", err)
	}
	r.logger.Debug("stop hook recorded", "session_id", rec.SessionID)
	return nil
}

// SessionStart scores pending sessions, fires triggers and prints the
// ledger snapshot for the new session.
func (r *Runner) SessionStart(ctx context.Context, in Input, matchContext string) error {
	result, err := r.ledger.SessionStart(ctx, ledger.SessionStartRequest{
		SessionID: in.SessionID,
		Context:   matchContext,
	})
	if err != nil {
		return fmt.Errorf("session-start hook: %w", err)
	}
	return RenderSessionStart(r.out, result)
}

// SubagentStart prints a short briefing. It never writes the ledger.
func (r *Runner) SubagentStart(ctx context.Context) error {
	snap, err := r.ledger.Status(ctx)
	if err != nil {
		return fmt.Errorf("subagent-start hook: %w", err)
	}
	return RenderBriefing(r.out, snap)
}
