package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DefaultMaxFires is used when a trigger is added without a fire limit.
const DefaultMaxFires = 3

// TriggerInput describes a new trigger.
type TriggerInput struct {
	When     string
	Remind   string
	Source   string
	MaxFires int
}

// FiredTrigger is a reminder emitted by MatchAndFire.
type FiredTrigger struct {
	ID         string `json:"id"`
	Remind     string `json:"remind"`
	FiredCount int    `json:"firedCount"`
	MaxFires   int    `json:"maxFires"`
}

// AddTrigger appends a trigger with the given id.
func (s *State) AddTrigger(id string, in TriggerInput, now time.Time) (Trigger, error) {
	if len(Keywords(in.When)) == 0 {
		return Trigger{}, fmt.Errorf("%w: trigger needs at least one keyword", ErrInvalidInput)
	}
	if err := requireText(in.Remind); err != nil {
		return Trigger{}, err
	}
	maxFires := in.MaxFires
	if maxFires <= 0 {
		maxFires = DefaultMaxFires
	}

	t := Trigger{
		ID:        id,
		When:      strings.TrimSpace(in.When),
		Remind:    strings.TrimSpace(in.Remind),
		Source:    stringPtr(strings.TrimSpace(in.Source)),
		CreatedAt: now,
		MaxFires:  maxFires,
	}
	s.Triggers = append(s.Triggers, t)
	return t, nil
}

// RemoveTrigger deletes a trigger by id.
func (s *State) RemoveTrigger(id string) error {
	for i, t := range s.Triggers {
		if t.ID == id {
			s.Triggers = append(s.Triggers[:i], s.Triggers[i+1:]...)
			return nil
		}
	}
	return ErrTriggerNotFound
}

// MatchAndFire fires every live trigger that has a keyword contained in
// matchContext. Matching is case-insensitive substring containment.
func (s *State) MatchAndFire(matchContext string) []FiredTrigger {
	haystack := strings.ToLower(matchContext)
	if strings.TrimSpace(haystack) == "" {
		return nil
	}

	var fired []FiredTrigger
	for i := range s.Triggers {
		t := &s.Triggers[i]
		if t.Expired() || !matchesAny(haystack, Keywords(t.When)) {
			continue
		}
		t.FiredCount++
		fired = append(fired, FiredTrigger{
			ID:         t.ID,
			Remind:     t.Remind,
			FiredCount: t.FiredCount,
			MaxFires:   t.MaxFires,
		})
	}
	return fired
}

// PruneExpiredTriggers drops triggers that reached their fire limit and
// returns how many were removed.
func (s *State) PruneExpiredTriggers() int {
	kept := make([]Trigger, 0, len(s.Triggers))
	for _, t := range s.Triggers {
		if !t.Expired() {
			kept = append(kept, t)
		}
	}
	pruned := len(s.Triggers) - len(kept)
	s.Triggers = kept
	return pruned
}

// ActiveTriggers counts triggers that can still fire.
func (s *State) ActiveTriggers() int {
	n := 0
	for _, t := range s.Triggers {
		if !t.Expired() {
			n++
		}
	}
	return n
}

// Keywords splits a trigger expression on whitespace and commas into
// lowercase tokens.
func Keywords(when string) []string {
	return strings.FieldsFunc(strings.ToLower(when), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func matchesAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
