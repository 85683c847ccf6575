package ledger

import "time"

// EntityKind tags the kind of resource a dashboard change touched.
type EntityKind string

const (
	EntityTask      EntityKind = "task"
	EntityCore      EntityKind = "core"
	EntityKnowledge EntityKind = "knowledge"
	EntityFeature   EntityKind = "feature"
	EntitySleep     EntityKind = "sleep"
)

// Action is the kind of mutation a dashboard change describes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// State is the persisted ledger aggregate for one project.
type State struct {
	Debt               int                     `json:"debt"`
	LastConsolidation  Consolidation           `json:"lastConsolidation"`
	ConsolidationEpoch *time.Time              `json:"consolidationEpoch"`
	Sessions           []SessionRecord         `json:"sessions"`
	Bookmarks          []Bookmark              `json:"bookmarks"`
	Triggers           []Trigger               `json:"triggers"`
	KnowledgeAccess    map[string]AccessRecord `json:"knowledgeAccess"`
	ChangeLog          []DashboardChange       `json:"changeLog"`
}

// Consolidation describes the most recent completed consolidation.
type Consolidation struct {
	At      *time.Time `json:"at"`
	Summary *string    `json:"summary"`
}

// SessionRecord tracks one agent session and its debt contribution.
// A nil Score means the session has not been analyzed yet.
type SessionRecord struct {
	SessionID      string     `json:"sessionId"`
	TranscriptPath *string    `json:"transcriptPath"`
	StoppedAt      *time.Time `json:"stoppedAt"`
	LastMessage    *string    `json:"lastMessage"`
	ChangeCount    *int       `json:"changeCount"`
	ToolCount      *int       `json:"toolCount"`
	Score          *int       `json:"score"`
}

// Bookmark marks a salient moment worth revisiting at consolidation.
type Bookmark struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Salience  int       `json:"salience"`
	CreatedAt time.Time `json:"createdAt"`
	SessionID *string   `json:"sessionId"`
}

// Trigger is a prospective reminder fired when its keywords show up in context.
type Trigger struct {
	ID         string    `json:"id"`
	When       string    `json:"when"`
	Remind     string    `json:"remind"`
	Source     *string   `json:"source"`
	CreatedAt  time.Time `json:"createdAt"`
	FiredCount int       `json:"firedCount"`
	MaxFires   int       `json:"maxFires"`
}

// Expired reports whether the trigger has used up its fires.
func (t Trigger) Expired() bool {
	return t.FiredCount >= t.MaxFires
}

// AccessRecord counts reads of a knowledge entry.
type AccessRecord struct {
	LastAccessed time.Time `json:"lastAccessed"`
	Count        int       `json:"count"`
}

// DashboardChange is one entry of the folded change log.
type DashboardChange struct {
	Timestamp time.Time     `json:"timestamp"`
	Entity    EntityKind    `json:"entity"`
	Action    Action        `json:"action"`
	Target    string        `json:"target"`
	Field     string        `json:"field,omitempty"`
	Fields    []FieldChange `json:"fields,omitempty"`
	Summary   string        `json:"summary"`
}

// FieldChange is the net transition of a single field.
// From and To hold JSON scalars, arrays, or nil.
type FieldChange struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

// HistoryEntry records one completed consolidation. Entries are append-only.
type HistoryEntry struct {
	Date               string `json:"date"`
	Summary            string `json:"summary"`
	DebtBefore         int    `json:"debtBefore"`
	DebtAfter          int    `json:"debtAfter"`
	SessionsProcessed  int    `json:"sessionsProcessed"`
	BookmarksProcessed int    `json:"bookmarksProcessed"`
}

// Activity is the analyzer's reading of a transcript.
type Activity struct {
	ChangeCount int `json:"changeCount"`
	ToolCount   int `json:"toolCount"`
}

// NewState returns an empty ledger.
func NewState() *State {
	s := &State{}
	s.Normalize()
	return s
}

// Normalize replaces nil collections so the ledger always serializes as
// empty arrays and objects rather than null.
func (s *State) Normalize() {
	if s.Sessions == nil {
		s.Sessions = []SessionRecord{}
	}
	if s.Bookmarks == nil {
		s.Bookmarks = []Bookmark{}
	}
	if s.Triggers == nil {
		s.Triggers = []Trigger{}
	}
	if s.KnowledgeAccess == nil {
		s.KnowledgeAccess = map[string]AccessRecord{}
	}
	if s.ChangeLog == nil {
		s.ChangeLog = []DashboardChange{}
	}
}

// ScoredDebt sums the scores of all analyzed sessions. After every ledger
// operation Debt equals ScoredDebt.
func (s *State) ScoredDebt() int {
	total := 0
	for _, sess := range s.Sessions {
		if sess.Score != nil {
			total += *sess.Score
		}
	}
	return total
}

// InProgress reports whether a consolidation has been started and not finished.
func (s *State) InProgress() bool {
	return s.ConsolidationEpoch != nil
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func intPtr(value int) *int {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}
