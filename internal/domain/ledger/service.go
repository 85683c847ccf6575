package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDebtThreshold is the debt at which consolidation is recommended.
const DefaultDebtThreshold = 6

// Service runs ledger operations as one load/mutate/store cycle each.
type Service struct {
	state     StateRepository
	history   HistoryRepository
	analyzer  Analyzer
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	threshold int
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithDebtThreshold sets the debt at which consolidation is recommended.
func WithDebtThreshold(threshold int) Option {
	return func(s *Service) { s.threshold = threshold }
}

// NewService creates a new ledger service.
func NewService(state StateRepository, history HistoryRepository, analyzer Analyzer, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		state:     state,
		history:   history,
		analyzer:  analyzer,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
		threshold: DefaultDebtThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StopRequest describes a session stop delivered by the agent runtime.
type StopRequest struct {
	SessionID      string
	TranscriptPath string
	LastMessage    string
	// Defer leaves the session unscored until the next AnalyzePending.
	Defer bool
}

// RecordStop analyzes the transcript and upserts the session.
func (s *Service) RecordStop(ctx context.Context, req StopRequest) (*SessionRecord, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}

	var activity Activity
	if !req.Defer && req.TranscriptPath != "" && s.analyzer != nil {
		activity = s.analyzer.Analyze(req.TranscriptPath)
	}

	var rec SessionRecord
	err := s.state.Update(ctx, func(st *State) error {
		if req.Defer {
			rec = st.RecordPending(req.SessionID, req.TranscriptPath, req.LastMessage, s.now())
			return nil
		}
		rec = st.RecordStop(StopInput{
			SessionID:      req.SessionID,
			TranscriptPath: req.TranscriptPath,
			LastMessage:    req.LastMessage,
			Activity:       activity,
		}, s.now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording stop: %w", err)
	}

	s.logger.Info("session stopped", "session_id", rec.SessionID, "score", scoreAttr(rec.Score), "deferred", req.Defer)
	return &rec, nil
}

// AnalyzePending scores all unscored sessions in a single write.
func (s *Service) AnalyzePending(ctx context.Context) (int, error) {
	analyzer := s.prefetchPending(ctx)
	var analyzed int
	err := s.state.Update(ctx, func(st *State) error {
		analyzed = st.AnalyzePending(analyzer)
		if analyzed == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return 0, fmt.Errorf("analyzing pending sessions: %w", err)
	}
	return analyzed, nil
}

// SessionStartRequest describes a new session starting.
type SessionStartRequest struct {
	SessionID string
	// Context is caller-supplied match text such as active task names and tags.
	Context string
}

// SessionStartResult is what a starting session should be told.
type SessionStartResult struct {
	Analyzed int            `json:"analyzed"`
	Fired    []FiredTrigger `json:"fired"`
	Snapshot Snapshot       `json:"snapshot"`
}

// SessionStart scores pending sessions, fires matching triggers against the
// supplied context plus recent bookmark text, and returns a snapshot. All
// mutations are persisted together.
func (s *Service) SessionStart(ctx context.Context, req SessionStartRequest) (*SessionStartResult, error) {
	analyzer := s.prefetchPending(ctx)
	result := &SessionStartResult{}
	err := s.state.Update(ctx, func(st *State) error {
		now := s.now()
		result.Analyzed = st.AnalyzePending(analyzer)
		result.Fired = st.MatchAndFire(matchContext(st, req.Context))
		result.Snapshot = st.Snapshot(now, s.threshold)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	s.logger.Info("session started", "session_id", req.SessionID, "analyzed", result.Analyzed, "fired", len(result.Fired))
	return result, nil
}

// Status returns a read-only snapshot.
func (s *Service) Status(ctx context.Context) (*Snapshot, error) {
	st, err := s.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	snap := st.Snapshot(s.now(), s.threshold)
	return &snap, nil
}

// State returns the full ledger.
func (s *Service) State(ctx context.Context) (*State, error) {
	st, err := s.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	return st, nil
}

// AddDebt injects manual debt that bypasses transcript scoring.
func (s *Service) AddDebt(ctx context.Context, score int, description string) (*SessionRecord, error) {
	if err := ValidateManualScore(score); err != nil {
		return nil, err
	}
	if err := requireText(description); err != nil {
		return nil, err
	}

	var rec SessionRecord
	err := s.state.Update(ctx, func(st *State) error {
		var err error
		rec, err = st.AddManualDebt(s.newID(), score, strings.TrimSpace(description), s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("adding debt: %w", err)
	}
	return &rec, nil
}

// StartConsolidation sets the consolidation epoch. Restarting an unfinished
// consolidation overwrites the earlier epoch and is logged as a warning.
func (s *Service) StartConsolidation(ctx context.Context) (*StartResult, error) {
	var result StartResult
	err := s.state.Update(ctx, func(st *State) error {
		result = st.StartConsolidation(s.now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("starting consolidation: %w", err)
	}

	if result.Previous != nil {
		s.logger.Warn("consolidation already in progress, epoch overwritten",
			"previous_epoch", result.Previous.Format(time.RFC3339),
			"epoch", result.Epoch.Format(time.RFC3339))
	}
	return &result, nil
}

// CompleteOption adjusts CompleteConsolidation.
type CompleteOption func(*completeOptions)

type completeOptions struct {
	reportSleep bool
}

// WithSleepChange records the run as a sleep create change in the same
// write that clears the ledger.
func WithSleepChange() CompleteOption {
	return func(o *completeOptions) {
		o.reportSleep = true
	}
}

// CompleteConsolidation clears consolidated work and appends a history
// entry. The history append happens inside the state write, so a failed
// append leaves the ledger untouched.
func (s *Service) CompleteConsolidation(ctx context.Context, summary string, opts ...CompleteOption) (*HistoryEntry, error) {
	if err := requireText(summary); err != nil {
		return nil, err
	}
	var o completeOptions
	for _, opt := range opts {
		opt(&o)
	}

	var entry HistoryEntry
	err := s.state.Update(ctx, func(st *State) error {
		now := s.now()
		var err error
		entry, err = st.CompleteConsolidation(summary, now)
		if err != nil {
			return err
		}
		if o.reportSleep {
			err := st.RecordChange(ChangeInput{
				Entity:  EntitySleep,
				Action:  ActionCreate,
				Target:  entry.Date,
				Summary: "consolidated: " + entry.Summary,
			}, now)
			if err != nil {
				return err
			}
		}
		if err := s.history.Append(ctx, entry); err != nil {
			return fmt.Errorf("appending history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("completing consolidation: %w", err)
	}

	s.logger.Info("consolidation complete",
		"debt_before", entry.DebtBefore,
		"debt_after", entry.DebtAfter,
		"sessions", entry.SessionsProcessed,
		"bookmarks", entry.BookmarksProcessed)
	return &entry, nil
}

// History lists consolidation history, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	entries, err := s.history.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return entries, nil
}

// AddBookmark records a salient moment.
func (s *Service) AddBookmark(ctx context.Context, in BookmarkInput) (*Bookmark, error) {
	if err := requireText(in.Message); err != nil {
		return nil, err
	}
	if err := ValidateSalience(in.Salience); err != nil {
		return nil, err
	}

	var b Bookmark
	err := s.state.Update(ctx, func(st *State) error {
		var err error
		b, err = st.AddBookmark(s.newID(), in, s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("adding bookmark: %w", err)
	}
	return &b, nil
}

// ListBookmarks returns bookmarks newest first.
func (s *Service) ListBookmarks(ctx context.Context) ([]Bookmark, error) {
	st, err := s.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	return st.Bookmarks, nil
}

// RemoveBookmark deletes one bookmark.
func (s *Service) RemoveBookmark(ctx context.Context, id string) error {
	err := s.state.Update(ctx, func(st *State) error {
		return st.RemoveBookmark(id)
	})
	if err != nil {
		return fmt.Errorf("removing bookmark: %w", err)
	}
	return nil
}

// ClearBookmarks deletes all bookmarks.
func (s *Service) ClearBookmarks(ctx context.Context) (int, error) {
	var n int
	err := s.state.Update(ctx, func(st *State) error {
		n = st.ClearBookmarks()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clearing bookmarks: %w", err)
	}
	return n, nil
}

// AddTrigger registers a prospective reminder.
func (s *Service) AddTrigger(ctx context.Context, in TriggerInput) (*Trigger, error) {
	var t Trigger
	err := s.state.Update(ctx, func(st *State) error {
		var err error
		t, err = st.AddTrigger(s.newID(), in, s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("adding trigger: %w", err)
	}
	return &t, nil
}

// ListTriggers returns all triggers, including expired ones awaiting pruning.
func (s *Service) ListTriggers(ctx context.Context) ([]Trigger, error) {
	st, err := s.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	return st.Triggers, nil
}

// RemoveTrigger deletes one trigger.
func (s *Service) RemoveTrigger(ctx context.Context, id string) error {
	err := s.state.Update(ctx, func(st *State) error {
		return st.RemoveTrigger(id)
	})
	if err != nil {
		return fmt.Errorf("removing trigger: %w", err)
	}
	return nil
}

// FireTriggers fires triggers matching matchContext.
func (s *Service) FireTriggers(ctx context.Context, matchContext string) ([]FiredTrigger, error) {
	var fired []FiredTrigger
	err := s.state.Update(ctx, func(st *State) error {
		fired = st.MatchAndFire(matchContext)
		if len(fired) == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return nil, fmt.Errorf("firing triggers: %w", err)
	}
	return fired, nil
}

// RecordChange folds a dashboard change into the change log.
func (s *Service) RecordChange(ctx context.Context, in ChangeInput) error {
	if err := ValidateChange(in); err != nil {
		return err
	}
	err := s.state.Update(ctx, func(st *State) error {
		return st.RecordChange(in, s.now())
	})
	if err != nil {
		return fmt.Errorf("recording change: %w", err)
	}
	s.logger.Debug("change recorded", "entity", in.Entity, "action", in.Action, "target", in.Target, "fields", len(in.Fields))
	return nil
}

// ListChanges returns the folded change log, newest first.
func (s *Service) ListChanges(ctx context.Context) ([]DashboardChange, error) {
	st, err := s.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	return st.ChangeLog, nil
}

// TouchKnowledge records a read of a knowledge entry.
func (s *Service) TouchKnowledge(ctx context.Context, slug string) (*AccessRecord, error) {
	var rec AccessRecord
	err := s.state.Update(ctx, func(st *State) error {
		var err error
		rec, err = st.TouchKnowledge(slug, s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("touching knowledge: %w", err)
	}
	return &rec, nil
}

// errNoChange aborts an update whose mutation turned out to be a no-op.
var errNoChange = errors.New("no change")

// prefetchPending reads the transcripts of unscored sessions before the
// ledger lock is taken, so large transcripts never hold other writers up.
// Sessions that turn up pending only once the lock is held fall back to
// the real analyzer.
func (s *Service) prefetchPending(ctx context.Context) Analyzer {
	if s.analyzer == nil {
		return nil
	}
	st, err := s.state.Load(ctx)
	if err != nil {
		return s.analyzer
	}
	results := map[string]Activity{}
	for _, sess := range st.Sessions {
		if sess.Score != nil || sess.TranscriptPath == nil {
			continue
		}
		path := *sess.TranscriptPath
		if _, ok := results[path]; !ok {
			results[path] = s.analyzer.Analyze(path)
		}
	}
	if len(results) == 0 {
		return s.analyzer
	}
	return prefetchedAnalyzer{results: results, fallback: s.analyzer}
}

type prefetchedAnalyzer struct {
	results  map[string]Activity
	fallback Analyzer
}

func (p prefetchedAnalyzer) Analyze(path string) Activity {
	if activity, ok := p.results[path]; ok {
		return activity
	}
	return p.fallback.Analyze(path)
}

func matchContext(st *State, extra string) string {
	parts := []string{extra}
	for _, b := range st.TopBookmarks(snapshotBookmarks) {
		parts = append(parts, b.Message)
	}
	return strings.Join(parts, "\n")
}

func scoreAttr(score *int) any {
	if score == nil {
		return "pending"
	}
	return *score
}
