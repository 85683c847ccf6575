package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/repository"
	"github.com/rpggio/worklog/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	state    *mocks.StateRepository
	history  *mocks.HistoryRepository
	analyzer *mocks.Analyzer
	svc      *ledger.Service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:    mocks.NewStateRepository(),
		history:  new(mocks.HistoryRepository),
		analyzer: new(mocks.Analyzer),
		now:      clock,
	}
	ids := 0
	f.svc = ledger.NewService(f.state, f.history, f.analyzer, nil,
		ledger.WithClock(func() time.Time { return f.now }),
		ledger.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		}),
	)
	f.state.On("Load", mock.Anything).Return(nil).Maybe()
	f.state.On("Update", mock.Anything).Return(nil).Maybe()
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestService_RecordStopTwiceKeepsOneSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.analyzer.On("Analyze", "/t/s1.jsonl").Return(ledger.Activity{ChangeCount: 5, ToolCount: 12})

	req := ledger.StopRequest{SessionID: "s1", TranscriptPath: "/t/s1.jsonl"}
	_, err := f.svc.RecordStop(ctx, req)
	require.NoError(t, err)
	f.advance(time.Minute)
	rec, err := f.svc.RecordStop(ctx, req)
	require.NoError(t, err)

	require.Equal(t, 2, *rec.Score)
	require.Equal(t, 2, f.state.State.Debt)
	require.Len(t, f.state.State.Sessions, 1)
	f.analyzer.AssertNumberOfCalls(t, "Analyze", 2)
}

func TestService_RecordStopRequiresSessionID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordStop(context.Background(), ledger.StopRequest{SessionID: " "})
	require.ErrorIs(t, err, ledger.ErrInvalidInput)
	f.state.AssertNotCalled(t, "Update", mock.Anything)
}

func TestService_DeferredStopIsScoredAtSessionStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.analyzer.On("Analyze", "/t/s1.jsonl").Return(ledger.Activity{ChangeCount: 9}).Once()

	rec, err := f.svc.RecordStop(ctx, ledger.StopRequest{SessionID: "s1", TranscriptPath: "/t/s1.jsonl", Defer: true})
	require.NoError(t, err)
	require.Nil(t, rec.Score)
	require.Equal(t, 0, f.state.State.Debt)
	f.analyzer.AssertNotCalled(t, "Analyze", mock.Anything)

	result, err := f.svc.SessionStart(ctx, ledger.SessionStartRequest{SessionID: "s2"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Analyzed)
	require.Equal(t, 3, result.Snapshot.Debt)
	require.Equal(t, 3, f.state.State.Debt)
	f.analyzer.AssertExpectations(t)
}

func TestService_AnalyzePendingWithNothingToDo(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.AnalyzePending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestService_SessionStartFiresTriggersFromContextAndBookmarks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.AddTrigger(ctx, ledger.TriggerInput{When: "oauth", Remind: "rotate the client secret"})
	require.NoError(t, err)
	_, err = f.svc.AddTrigger(ctx, ledger.TriggerInput{When: "flaky", Remind: "check the retry budget"})
	require.NoError(t, err)
	_, err = f.svc.AddBookmark(ctx, ledger.BookmarkInput{Message: "flaky integration test in CI", Salience: 2})
	require.NoError(t, err)

	result, err := f.svc.SessionStart(ctx, ledger.SessionStartRequest{SessionID: "s1", Context: "task: OAuth login"})
	require.NoError(t, err)

	require.Len(t, result.Fired, 2)
	require.Equal(t, "rotate the client secret", result.Fired[0].Remind)
	require.Equal(t, "check the retry budget", result.Fired[1].Remind)
	require.Equal(t, 2, result.Snapshot.ActiveTriggers)
	require.Equal(t, 1, f.state.State.Triggers[0].FiredCount)
}

func TestService_AddDebt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rec, err := f.svc.AddDebt(ctx, 2, "pairing session off the record")
	require.NoError(t, err)
	require.Equal(t, "manual-id-1", rec.SessionID)
	require.Equal(t, 2, f.state.State.Debt)

	_, err = f.svc.AddDebt(ctx, 4, "too much")
	require.ErrorIs(t, err, ledger.ErrInvalidScore)
	_, err = f.svc.AddDebt(ctx, 1, "")
	require.ErrorIs(t, err, ledger.ErrInvalidInput)
	require.Equal(t, 2, f.state.State.Debt)
}

func TestService_ConsolidationCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.analyzer.On("Analyze", mock.Anything).Return(ledger.Activity{ChangeCount: 9})

	_, err := f.svc.RecordStop(ctx, ledger.StopRequest{SessionID: "old", TranscriptPath: "/t/old.jsonl"})
	require.NoError(t, err)
	f.advance(time.Minute)

	start, err := f.svc.StartConsolidation(ctx)
	require.NoError(t, err)
	require.Nil(t, start.Previous)
	f.advance(time.Minute)

	_, err = f.svc.RecordStop(ctx, ledger.StopRequest{SessionID: "new", TranscriptPath: "/t/new.jsonl"})
	require.NoError(t, err)
	f.advance(time.Minute)

	expected := ledger.HistoryEntry{
		Date:              "2026-03-01",
		Summary:           "merged notes",
		DebtBefore:        6,
		DebtAfter:         3,
		SessionsProcessed: 1,
	}
	f.history.On("Append", mock.Anything, expected).Return(nil).Once()

	entry, err := f.svc.CompleteConsolidation(ctx, "merged notes")
	require.NoError(t, err)
	require.Equal(t, expected, *entry)
	require.Len(t, f.state.State.Sessions, 1)
	require.Equal(t, "new", f.state.State.Sessions[0].SessionID)
	require.Nil(t, f.state.State.ConsolidationEpoch)
	f.history.AssertExpectations(t)
}

func TestService_CompleteConsolidationFailedAppendLeavesLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.analyzer.On("Analyze", mock.Anything).Return(ledger.Activity{ChangeCount: 2})
	_, err := f.svc.RecordStop(ctx, ledger.StopRequest{SessionID: "s1", TranscriptPath: "/t/s1.jsonl"})
	require.NoError(t, err)

	f.history.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err = f.svc.CompleteConsolidation(ctx, "summary")
	require.Error(t, err)
	require.Len(t, f.state.State.Sessions, 1)
	require.Equal(t, 1, f.state.State.Debt)
	require.Nil(t, f.state.State.LastConsolidation.At)
}

func TestService_CompleteConsolidationWithSleepChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.CompleteConsolidation(ctx, "tidy notes", ledger.WithSleepChange())
	require.NoError(t, err)
	f.state.AssertNumberOfCalls(t, "Update", 1)

	require.Len(t, f.state.State.ChangeLog, 1)
	change := f.state.State.ChangeLog[0]
	require.Equal(t, ledger.EntitySleep, change.Entity)
	require.Equal(t, ledger.ActionCreate, change.Action)
	require.Equal(t, "2026-03-01", change.Target)
}

func TestService_CompleteConsolidationFailedAppendDropsSleepChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.history.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := f.svc.CompleteConsolidation(ctx, "tidy notes", ledger.WithSleepChange())
	require.Error(t, err)
	require.Empty(t, f.state.State.ChangeLog)
}

func TestService_CompleteConsolidationRequiresSummary(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CompleteConsolidation(context.Background(), "")
	require.ErrorIs(t, err, ledger.ErrInvalidInput)
	f.history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestService_StartConsolidationTwiceReportsPrevious(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.StartConsolidation(ctx)
	require.NoError(t, err)
	first := f.now
	f.advance(time.Hour)

	result, err := f.svc.StartConsolidation(ctx)
	require.NoError(t, err)
	require.NotNil(t, result.Previous)
	require.Equal(t, first, *result.Previous)
	require.Equal(t, f.now, *f.state.State.ConsolidationEpoch)
}

type lockTrackingRepo struct {
	*mocks.StateRepository
	locked bool
}

func (r *lockTrackingRepo) Update(ctx context.Context, fn func(*ledger.State) error) error {
	r.locked = true
	defer func() { r.locked = false }()
	return r.StateRepository.Update(ctx, fn)
}

type lockCheckingAnalyzer struct {
	repo         *lockTrackingRepo
	calls        int
	calledLocked bool
}

func (a *lockCheckingAnalyzer) Analyze(string) ledger.Activity {
	a.calls++
	if a.repo.locked {
		a.calledLocked = true
	}
	return ledger.Activity{ChangeCount: 4}
}

func TestService_SessionStartAnalyzesOutsideLock(t *testing.T) {
	ctx := context.Background()
	repo := &lockTrackingRepo{StateRepository: mocks.NewStateRepository()}
	repo.On("Load", mock.Anything).Return(nil).Maybe()
	repo.On("Update", mock.Anything).Return(nil).Maybe()
	analyzer := &lockCheckingAnalyzer{repo: repo}
	svc := ledger.NewService(repo, new(mocks.HistoryRepository), analyzer, nil)

	for _, id := range []string{"s1", "s2"} {
		_, err := svc.RecordStop(ctx, ledger.StopRequest{SessionID: id, TranscriptPath: "/t/" + id + ".jsonl", Defer: true})
		require.NoError(t, err)
	}

	result, err := svc.SessionStart(ctx, ledger.SessionStartRequest{SessionID: "s3"})
	require.NoError(t, err)
	require.Equal(t, 2, result.Analyzed)
	require.Equal(t, 4, repo.State.Debt)
	require.Equal(t, 2, analyzer.calls)
	require.False(t, analyzer.calledLocked)
}

func TestService_LockTimeoutPropagates(t *testing.T) {
	state := new(mocks.StateRepository)
	state.On("Update", mock.Anything).Return(repository.ErrLockTimeout)
	svc := ledger.NewService(state, new(mocks.HistoryRepository), nil, nil)

	_, err := svc.AddDebt(context.Background(), 1, "x")
	require.ErrorIs(t, err, repository.ErrLockTimeout)
}

func TestService_History(t *testing.T) {
	f := newFixture(t)
	entries := []ledger.HistoryEntry{{Date: "2026-03-01", Summary: "a"}}
	f.history.On("List", mock.Anything, 10).Return(entries, nil)

	got, err := f.svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, entries, got)
}

func TestService_Bookmarks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.svc.AddBookmark(ctx, ledger.BookmarkInput{Message: "watch the cache", Salience: 3})
	require.NoError(t, err)
	_, err = f.svc.AddBookmark(ctx, ledger.BookmarkInput{Message: "bad", Salience: 0})
	require.ErrorIs(t, err, ledger.ErrInvalidSalience)

	list, err := f.svc.ListBookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.ErrorIs(t, f.svc.RemoveBookmark(ctx, "nope"), ledger.ErrBookmarkNotFound)
	require.ErrorIs(t, f.svc.RemoveBookmark(ctx, "nope"), repository.ErrNotFound)
	require.NoError(t, f.svc.RemoveBookmark(ctx, b.ID))

	n, err := f.svc.ClearBookmarks(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestService_TriggersAndFire(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tr, err := f.svc.AddTrigger(ctx, ledger.TriggerInput{When: "deploy", Remind: "check dashboards", MaxFires: 1})
	require.NoError(t, err)

	fired, err := f.svc.FireTriggers(ctx, "about to deploy")
	require.NoError(t, err)
	require.Len(t, fired, 1)

	fired, err = f.svc.FireTriggers(ctx, "about to deploy")
	require.NoError(t, err)
	require.Empty(t, fired)

	list, err := f.svc.ListTriggers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].Expired())

	require.NoError(t, f.svc.RemoveTrigger(ctx, tr.ID))
	require.ErrorIs(t, f.svc.RemoveTrigger(ctx, tr.ID), ledger.ErrTriggerNotFound)
	require.ErrorIs(t, f.svc.RemoveTrigger(ctx, tr.ID), repository.ErrNotFound)
}

func TestService_RecordChangeAndKnowledge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	change := ledger.ChangeInput{
		Entity: ledger.EntityTask,
		Action: ledger.ActionUpdate,
		Target: "T-9",
		Fields: []ledger.FieldChange{{Field: "status", From: "todo", To: "doing"}},
	}
	require.NoError(t, f.svc.RecordChange(ctx, change))

	change.Fields = []ledger.FieldChange{{Field: "status", From: "doing", To: "todo"}}
	require.NoError(t, f.svc.RecordChange(ctx, change))

	changes, err := f.svc.ListChanges(ctx)
	require.NoError(t, err)
	require.Empty(t, changes)

	require.ErrorIs(t, f.svc.RecordChange(ctx, ledger.ChangeInput{Entity: "widget", Action: ledger.ActionCreate, Target: "x"}), ledger.ErrInvalidEntity)

	rec, err := f.svc.TouchKnowledge(ctx, "go-errors")
	require.NoError(t, err)
	require.Equal(t, 1, rec.Count)

	snap, err := f.svc.Status(ctx)
	require.NoError(t, err)
	require.Len(t, snap.WarmKnowledge, 1)
	require.False(t, snap.NeedsConsolidation)
}
