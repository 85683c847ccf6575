package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ChangeInput is a change reported by a dashboard mutation.
type ChangeInput struct {
	Entity  EntityKind
	Action  Action
	Target  string
	Fields  []FieldChange
	Summary string
}

// RecordChange folds a change into the change log so that each
// (target, field) pair carries only its net transition since the last
// consolidation. Creates, deletes and field-less updates are one-shot
// events and are prepended as-is.
func (s *State) RecordChange(in ChangeInput, now time.Time) error {
	if err := ValidateChange(in); err != nil {
		return err
	}

	if in.Action != ActionUpdate || len(in.Fields) == 0 {
		s.prependChange(DashboardChange{
			Timestamp: now,
			Entity:    in.Entity,
			Action:    in.Action,
			Target:    in.Target,
			Summary:   eventSummary(in),
		})
		return nil
	}

	var remaining []FieldChange
	for _, fc := range in.Fields {
		fc.From = decodedValue(fc.From)
		fc.To = decodedValue(fc.To)
		if !s.foldField(in.Target, fc) {
			remaining = foldPending(remaining, fc)
		}
	}
	if len(remaining) == 0 {
		return nil
	}

	entry := DashboardChange{
		Timestamp: now,
		Entity:    in.Entity,
		Action:    ActionUpdate,
		Target:    in.Target,
		Fields:    remaining,
	}
	entry.refresh()
	s.prependChange(entry)
	return nil
}

// foldField merges fc into the first log entry that already tracks the same
// (target, field). It reports whether such an entry existed.
func (s *State) foldField(target string, fc FieldChange) bool {
	for i := range s.ChangeLog {
		entry := &s.ChangeLog[i]
		if entry.Action != ActionUpdate || entry.Target != target {
			continue
		}
		for j := range entry.Fields {
			ef := &entry.Fields[j]
			if ef.Field != fc.Field {
				continue
			}

			if ValuesEqual(fc.To, ef.From) {
				entry.Fields = append(entry.Fields[:j], entry.Fields[j+1:]...)
				if len(entry.Fields) == 0 {
					s.ChangeLog = append(s.ChangeLog[:i], s.ChangeLog[i+1:]...)
					return true
				}
			} else {
				ef.To = fc.To
			}
			entry.refresh()
			return true
		}
	}
	return false
}

// foldPending applies the same net-change rule to a field repeated within
// one change, so a new entry never carries two transitions for one field.
func foldPending(pending []FieldChange, fc FieldChange) []FieldChange {
	for i := range pending {
		if pending[i].Field != fc.Field {
			continue
		}
		if ValuesEqual(fc.To, pending[i].From) {
			return append(pending[:i], pending[i+1:]...)
		}
		pending[i].To = fc.To
		return pending
	}
	return append(pending, fc)
}

func (s *State) prependChange(entry DashboardChange) {
	s.ChangeLog = append([]DashboardChange{entry}, s.ChangeLog...)
}

// refresh regenerates the derived Field and Summary of an update entry.
func (c *DashboardChange) refresh() {
	names := make([]string, 0, len(c.Fields))
	parts := make([]string, 0, len(c.Fields))
	for _, fc := range c.Fields {
		names = append(names, fc.Field)
		parts = append(parts, fmt.Sprintf("%s %s → %s", fc.Field, formatValue(fc.From), formatValue(fc.To)))
	}
	c.Field = strings.Join(names, ", ")
	c.Summary = fmt.Sprintf("updated %s %s: %s", c.Entity, c.Target, strings.Join(parts, "; "))
}

func eventSummary(in ChangeInput) string {
	if summary := strings.TrimSpace(in.Summary); summary != "" {
		return summary
	}
	verb := map[Action]string{
		ActionCreate: "created",
		ActionUpdate: "updated",
		ActionDelete: "deleted",
	}[in.Action]
	return fmt.Sprintf("%s %s %s", verb, in.Entity, in.Target)
}

// ValuesEqual compares two field values by their JSON encoding, so numbers
// compare by value regardless of Go type and arrays compare element-wise.
func ValuesEqual(a, b any) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// decodedValue returns v as it reads back from the ledger file, so a state
// held in memory equals the same state after a save and load. Numbers
// become float64, structs become maps.
func decodedValue(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	const maxLen = 60
	if runes := []rune(string(data)); len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return string(data)
}
