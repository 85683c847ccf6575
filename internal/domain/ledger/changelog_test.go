package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func update(target string, fields ...FieldChange) ChangeInput {
	return ChangeInput{Entity: EntityTask, Action: ActionUpdate, Target: target, Fields: fields}
}

func fc(field string, from, to any) FieldChange {
	return FieldChange{Field: field, From: from, To: to}
}

func TestRecordChange_NetZeroRemovesEntry(t *testing.T) {
	s := NewState()

	require.NoError(t, s.RecordChange(update("T-1", fc("status", "todo", "doing")), at(0)))
	require.NoError(t, s.RecordChange(update("T-1", fc("status", "doing", "todo")), at(1)))

	require.Empty(t, s.ChangeLog)
}

func TestRecordChange_CumulativeFolding(t *testing.T) {
	s := NewState()

	require.NoError(t, s.RecordChange(update("T-1", fc("status", "A", "B")), at(0)))
	require.NoError(t, s.RecordChange(update("T-1", fc("status", "B", "C")), at(1)))
	require.NoError(t, s.RecordChange(update("T-1", fc("status", "C", "D")), at(2)))

	require.Len(t, s.ChangeLog, 1)
	entry := s.ChangeLog[0]
	require.Equal(t, []FieldChange{fc("status", "A", "D")}, entry.Fields)
	require.Equal(t, "status", entry.Field)
	require.Equal(t, at(0), entry.Timestamp)
	require.Equal(t, `updated task T-1: status "A" → "D"`, entry.Summary)
}

func TestRecordChange_NetZeroKeepsOtherFields(t *testing.T) {
	s := NewState()

	require.NoError(t, s.RecordChange(update("T-1",
		fc("status", "todo", "done"),
		fc("priority", 1, 2),
	), at(0)))
	require.NoError(t, s.RecordChange(update("T-1", fc("status", "done", "todo")), at(1)))

	require.Len(t, s.ChangeLog, 1)
	entry := s.ChangeLog[0]
	require.Len(t, entry.Fields, 1)
	require.Equal(t, "priority", entry.Fields[0].Field)
	require.Equal(t, "priority", entry.Field)
	require.Equal(t, "updated task T-1: priority 1 → 2", entry.Summary)
}

func TestRecordChange_UnmatchedFieldsBecomeNewEntry(t *testing.T) {
	s := NewState()

	require.NoError(t, s.RecordChange(update("T-1", fc("status", "todo", "doing")), at(0)))
	require.NoError(t, s.RecordChange(update("T-1",
		fc("status", "doing", "done"),
		fc("title", "Old", "New"),
	), at(1)))

	require.Len(t, s.ChangeLog, 2)
	newest := s.ChangeLog[0]
	require.Equal(t, at(1), newest.Timestamp)
	require.Equal(t, []FieldChange{fc("title", "Old", "New")}, newest.Fields)

	oldest := s.ChangeLog[1]
	require.Equal(t, []FieldChange{fc("status", "todo", "done")}, oldest.Fields)
}

func TestRecordChange_AtMostOneEntryPerTargetField(t *testing.T) {
	s := NewState()

	for i, step := range []FieldChange{
		fc("status", "a", "b"),
		fc("tags", nil, []any{"x"}),
		fc("status", "b", "c"),
		fc("tags", []any{"x"}, []any{"x", "y"}),
		fc("status", "c", "d"),
	} {
		require.NoError(t, s.RecordChange(update("T-1", step), at(i)))
	}

	seen := map[string]int{}
	for _, entry := range s.ChangeLog {
		for _, f := range entry.Fields {
			seen[entry.Target+"/"+f.Field]++
		}
	}
	require.Equal(t, map[string]int{"T-1/status": 1, "T-1/tags": 1}, seen)
}

func TestRecordChange_DifferentTargetsDoNotFold(t *testing.T) {
	s := NewState()

	require.NoError(t, s.RecordChange(update("T-1", fc("status", "a", "b")), at(0)))
	require.NoError(t, s.RecordChange(update("T-2", fc("status", "b", "a")), at(1)))

	require.Len(t, s.ChangeLog, 2)
}

func TestRecordChange_ArrayNetZero(t *testing.T) {
	s := NewState()

	require.NoError(t, s.RecordChange(update("T-1", fc("tags", []any{"a", "b"}, []any{"a"})), at(0)))
	require.NoError(t, s.RecordChange(update("T-1", fc("tags", []string{"a"}, []string{"a", "b"})), at(1)))

	require.Empty(t, s.ChangeLog)
}

func TestRecordChange_OneShotEventsAppend(t *testing.T) {
	s := NewState()

	require.NoError(t, s.RecordChange(ChangeInput{Entity: EntityFeature, Action: ActionCreate, Target: "search"}, at(0)))
	require.NoError(t, s.RecordChange(ChangeInput{Entity: EntityFeature, Action: ActionCreate, Target: "search"}, at(1)))
	require.NoError(t, s.RecordChange(ChangeInput{Entity: EntityKnowledge, Action: ActionUpdate, Target: "k1", Summary: "rewrote body"}, at(2)))
	require.NoError(t, s.RecordChange(ChangeInput{Entity: EntityFeature, Action: ActionDelete, Target: "search"}, at(3)))

	require.Len(t, s.ChangeLog, 4)
	require.Equal(t, "deleted feature search", s.ChangeLog[0].Summary)
	require.Equal(t, "rewrote body", s.ChangeLog[1].Summary)
	require.Equal(t, "created feature search", s.ChangeLog[3].Summary)
}

func TestRecordChange_UpdateDoesNotFoldIntoCreate(t *testing.T) {
	s := NewState()

	require.NoError(t, s.RecordChange(ChangeInput{
		Entity: EntityTask, Action: ActionCreate, Target: "T-1",
		Fields: []FieldChange{fc("status", nil, "todo")},
	}, at(0)))
	require.NoError(t, s.RecordChange(update("T-1", fc("status", "todo", nil)), at(1)))

	require.Len(t, s.ChangeLog, 2)
}

func TestRecordChange_Validation(t *testing.T) {
	s := NewState()

	err := s.RecordChange(ChangeInput{Entity: "tsk", Action: ActionUpdate, Target: "T-1"}, at(0))
	require.ErrorIs(t, err, ErrInvalidEntity)

	err = s.RecordChange(ChangeInput{Entity: EntityTask, Action: "patch", Target: "T-1"}, at(0))
	require.ErrorIs(t, err, ErrInvalidAction)

	err = s.RecordChange(ChangeInput{Entity: EntityTask, Action: ActionUpdate, Target: " "}, at(0))
	require.ErrorIs(t, err, ErrInvalidInput)

	err = s.RecordChange(update("T-1", fc("", "a", "b")), at(0))
	require.ErrorIs(t, err, ErrInvalidInput)

	require.Empty(t, s.ChangeLog)
}

func TestValuesEqual(t *testing.T) {
	require.True(t, ValuesEqual(nil, nil))
	require.True(t, ValuesEqual(1, 1.0))
	require.True(t, ValuesEqual(int64(2), float64(2)))
	require.True(t, ValuesEqual([]any{"a", 1}, []any{"a", 1.0}))
	require.True(t, ValuesEqual([]string{"a"}, []any{"a"}))
	require.False(t, ValuesEqual([]any{"a", "b"}, []any{"b", "a"}))
	require.False(t, ValuesEqual("1", 1))
	require.False(t, ValuesEqual(nil, ""))
}

func TestParseEntityKindAndAction(t *testing.T) {
	kind, err := ParseEntityKind(" Knowledge ")
	require.NoError(t, err)
	require.Equal(t, EntityKnowledge, kind)

	_, err = ParseEntityKind("epic")
	require.ErrorIs(t, err, ErrInvalidEntity)

	action, err := ParseAction("DELETE")
	require.NoError(t, err)
	require.Equal(t, ActionDelete, action)

	_, err = ParseAction("upsert")
	require.ErrorIs(t, err, ErrInvalidAction)
}

func TestRecordChange_RepeatedFieldInOneChange(t *testing.T) {
	s := NewState()

	require.NoError(t, s.RecordChange(update("T-1",
		fc("status", "a", "b"),
		fc("status", "b", "c"),
	), at(0)))

	require.Len(t, s.ChangeLog, 1)
	require.Equal(t, []FieldChange{fc("status", "a", "c")}, s.ChangeLog[0].Fields)
	require.Equal(t, "status", s.ChangeLog[0].Field)

	require.NoError(t, s.RecordChange(update("T-1", fc("status", "c", "a")), at(1)))
	require.Empty(t, s.ChangeLog)
}

func TestRecordChange_RepeatedFieldCancelsWithinChange(t *testing.T) {
	s := NewState()

	require.NoError(t, s.RecordChange(update("T-1",
		fc("status", "a", "b"),
		fc("owner", "ann", "bo"),
		fc("status", "b", "a"),
	), at(0)))

	require.Len(t, s.ChangeLog, 1)
	require.Equal(t, []FieldChange{fc("owner", "ann", "bo")}, s.ChangeLog[0].Fields)
}
