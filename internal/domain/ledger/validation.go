package ledger

import (
	"fmt"
	"strings"
)

var validEntities = map[EntityKind]bool{
	EntityTask:      true,
	EntityCore:      true,
	EntityKnowledge: true,
	EntityFeature:   true,
	EntitySleep:     true,
}

var validActions = map[Action]bool{
	ActionCreate: true,
	ActionUpdate: true,
	ActionDelete: true,
}

// ParseEntityKind validates a raw entity tag.
func ParseEntityKind(raw string) (EntityKind, error) {
	kind := EntityKind(strings.ToLower(strings.TrimSpace(raw)))
	if !validEntities[kind] {
		return "", fmt.Errorf("%w %q: must be one of task, core, knowledge, feature, sleep", ErrInvalidEntity, raw)
	}
	return kind, nil
}

// ParseAction validates a raw action name.
func ParseAction(raw string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(raw)))
	if !validActions[action] {
		return "", fmt.Errorf("%w %q: must be one of create, update, delete", ErrInvalidAction, raw)
	}
	return action, nil
}

// ValidateManualScore checks a manually injected debt score.
func ValidateManualScore(score int) error {
	if score < 1 || score > 3 {
		return ErrInvalidScore
	}
	return nil
}

// ValidateSalience checks a bookmark salience.
func ValidateSalience(salience int) error {
	if salience < 1 || salience > 3 {
		return ErrInvalidSalience
	}
	return nil
}

// ValidateChange checks a dashboard change report.
func ValidateChange(in ChangeInput) error {
	if !validEntities[in.Entity] {
		return fmt.Errorf("%w %q", ErrInvalidEntity, in.Entity)
	}
	if !validActions[in.Action] {
		return fmt.Errorf("%w %q", ErrInvalidAction, in.Action)
	}
	if strings.TrimSpace(in.Target) == "" {
		return fmt.Errorf("%w: target is required", ErrInvalidInput)
	}
	for _, fc := range in.Fields {
		if strings.TrimSpace(fc.Field) == "" {
			return fmt.Errorf("%w: field name is required", ErrInvalidInput)
		}
	}
	return nil
}

func requireText(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	return nil
}
