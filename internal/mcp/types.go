package mcp

import (
	"time"

	"github.com/rpggio/worklog/internal/domain/ledger"
)

type EmptyParams struct{}

type StatusResponse struct {
	Debt                 int                `json:"debt"`
	DebtThreshold        int                `json:"debt_threshold"`
	NeedsConsolidation   bool               `json:"needs_consolidation"`
	LastConsolidationAt  string             `json:"last_consolidation_at,omitempty"`
	LastSummary          string             `json:"last_summary,omitempty"`
	ConsolidationStarted string             `json:"consolidation_started,omitempty"`
	Sessions             int                `json:"sessions"`
	UnscoredSessions     int                `json:"unscored_sessions"`
	BookmarkCount        int                `json:"bookmark_count"`
	Bookmarks            []BookmarkResponse `json:"bookmarks"`
	PendingChanges       int                `json:"pending_changes"`
	ActiveTriggers       int                `json:"active_triggers"`
	WarmKnowledge        []KnowledgeRef     `json:"warm_knowledge"`
}

type KnowledgeRef struct {
	Slug         string `json:"slug"`
	LastAccessed string `json:"last_accessed"`
	Count        int    `json:"count"`
}

type AddDebtParams struct {
	Score       int    `json:"score" jsonschema:"debt score from 1 to 3"`
	Description string `json:"description" jsonschema:"what the untracked work was"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Score     *int   `json:"score"`
	StoppedAt string `json:"stopped_at,omitempty"`
}

type StartConsolidationResponse struct {
	Epoch    string `json:"epoch"`
	Previous string `json:"previous,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

type CompleteConsolidationParams struct {
	Summary string `json:"summary" jsonschema:"what was consolidated"`
}

type HistoryParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum entries, newest first (default 10)"`
}

type HistoryResponse struct {
	Entries []ledger.HistoryEntry `json:"entries"`
}

type AddBookmarkParams struct {
	Message   string `json:"message" jsonschema:"what is worth revisiting"`
	Salience  int    `json:"salience" jsonschema:"importance from 1 to 3"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session the bookmark came from"`
}

type BookmarkResponse struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Salience  int    `json:"salience"`
	CreatedAt string `json:"created_at"`
	SessionID string `json:"session_id,omitempty"`
}

type BookmarkListResponse struct {
	Bookmarks []BookmarkResponse `json:"bookmarks"`
}

type IDParams struct {
	ID string `json:"id"`
}

type RemovedResponse struct {
	ID      string `json:"id"`
	Removed bool   `json:"removed"`
}

type AddTriggerParams struct {
	When     string `json:"when" jsonschema:"keywords separated by spaces or commas"`
	Remind   string `json:"remind" jsonschema:"reminder text shown when a keyword matches"`
	Source   string `json:"source,omitempty" jsonschema:"where the reminder came from"`
	MaxFires int    `json:"max_fires,omitempty" jsonschema:"how many times the trigger may fire (default 3)"`
}

type TriggerResponse struct {
	ID         string `json:"id"`
	When       string `json:"when"`
	Remind     string `json:"remind"`
	Source     string `json:"source,omitempty"`
	CreatedAt  string `json:"created_at"`
	FiredCount int    `json:"fired_count"`
	MaxFires   int    `json:"max_fires"`
	Expired    bool   `json:"expired"`
}

type TriggerListResponse struct {
	Triggers []TriggerResponse `json:"triggers"`
}

type FireTriggersParams struct {
	Context string `json:"context" jsonschema:"text to match trigger keywords against"`
}

type FiredResponse struct {
	Fired []FiredRef `json:"fired"`
}

type FiredRef struct {
	ID         string `json:"id"`
	Remind     string `json:"remind"`
	FiredCount int    `json:"fired_count"`
	MaxFires   int    `json:"max_fires"`
}

type FieldChangeParams struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

type RecordChangeParams struct {
	Entity  string              `json:"entity" jsonschema:"task, core, knowledge, feature or sleep"`
	Action  string              `json:"action" jsonschema:"create, update or delete"`
	Target  string              `json:"target" jsonschema:"identifier of the changed resource"`
	Fields  []FieldChangeParams `json:"fields,omitempty" jsonschema:"field transitions for updates"`
	Summary string              `json:"summary,omitempty" jsonschema:"description for create and delete events"`
}

type RecordChangeResponse struct {
	Recorded       bool `json:"recorded"`
	PendingChanges int  `json:"pending_changes"`
}

type ChangeRef struct {
	Timestamp string `json:"timestamp"`
	Entity    string `json:"entity"`
	Action    string `json:"action"`
	Target    string `json:"target"`
	Field     string `json:"field,omitempty"`
	Summary   string `json:"summary"`
}

type ChangeListResponse struct {
	Changes []ChangeRef `json:"changes"`
}

type TouchKnowledgeParams struct {
	Slug string `json:"slug" jsonschema:"knowledge entry identifier"`
}

type KnowledgeResponse struct {
	Slug         string `json:"slug"`
	LastAccessed string `json:"last_accessed"`
	Count        int    `json:"count"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toStatusResponse(snap *ledger.Snapshot) StatusResponse {
	resp := StatusResponse{
		Debt:                 snap.Debt,
		DebtThreshold:        snap.DebtThreshold,
		NeedsConsolidation:   snap.NeedsConsolidation,
		LastConsolidationAt:  formatTimePtr(snap.LastConsolidation.At),
		LastSummary:          derefString(snap.LastConsolidation.Summary),
		ConsolidationStarted: formatTimePtr(snap.ConsolidationEpoch),
		Sessions:             snap.Sessions,
		UnscoredSessions:     snap.UnscoredSessions,
		BookmarkCount:        snap.BookmarkCount,
		Bookmarks:            toBookmarkResponses(snap.Bookmarks),
		PendingChanges:       snap.PendingChanges,
		ActiveTriggers:       snap.ActiveTriggers,
		WarmKnowledge:        make([]KnowledgeRef, 0, len(snap.WarmKnowledge)),
	}
	for _, k := range snap.WarmKnowledge {
		resp.WarmKnowledge = append(resp.WarmKnowledge, KnowledgeRef{
			Slug:         k.Slug,
			LastAccessed: formatTime(k.LastAccessed),
			Count:        k.Count,
		})
	}
	return resp
}

func toBookmarkResponse(b ledger.Bookmark) BookmarkResponse {
	return BookmarkResponse{
		ID:        b.ID,
		Message:   b.Message,
		Salience:  b.Salience,
		CreatedAt: formatTime(b.CreatedAt),
		SessionID: derefString(b.SessionID),
	}
}

func toBookmarkResponses(bookmarks []ledger.Bookmark) []BookmarkResponse {
	resp := make([]BookmarkResponse, 0, len(bookmarks))
	for _, b := range bookmarks {
		resp = append(resp, toBookmarkResponse(b))
	}
	return resp
}

func toTriggerResponse(t ledger.Trigger) TriggerResponse {
	return TriggerResponse{
		ID:         t.ID,
		When:       t.When,
		Remind:     t.Remind,
		Source:     derefString(t.Source),
		CreatedAt:  formatTime(t.CreatedAt),
		FiredCount: t.FiredCount,
		MaxFires:   t.MaxFires,
		Expired:    t.Expired(),
	}
}
