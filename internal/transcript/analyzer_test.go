package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/stretchr/testify/require"
)

func toolLine(id, name string) string {
	return fmt.Sprintf(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":%q,"name":%q,"input":{}}]}}`, id, name)
}

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestCount_EditsAndTools(t *testing.T) {
	transcript := strings.Join([]string{
		`{"type":"user","message":{"content":"please fix it"}}`,
		toolLine("t1", "Read"),
		toolLine("t2", "Edit"),
		toolLine("t3", "Bash"),
		toolLine("t4", "Write"),
		`{"type":"assistant","message":{"content":[{"type":"text","text":"done"}]}}`,
	}, "\n")

	activity, err := Count(strings.NewReader(transcript))
	require.NoError(t, err)
	require.Equal(t, ledger.Activity{ChangeCount: 2, ToolCount: 4}, activity)
}

func TestCount_DeduplicatesStreamedToolCalls(t *testing.T) {
	transcript := strings.Join([]string{
		toolLine("t1", "Edit"),
		toolLine("t1", "Edit"),
		toolLine("t2", "MultiEdit"),
	}, "\n")

	activity, err := Count(strings.NewReader(transcript))
	require.NoError(t, err)
	require.Equal(t, ledger.Activity{ChangeCount: 2, ToolCount: 2}, activity)
}

func TestCount_SkipsMalformedLines(t *testing.T) {
	transcript := strings.Join([]string{
		`not json`,
		`{"type":"assistant","message":{"content":"plain string"}}`,
		toolLine("t1", "NotebookEdit"),
	}, "\n")

	activity, err := Count(strings.NewReader(transcript))
	require.NoError(t, err)
	require.Equal(t, ledger.Activity{ChangeCount: 1, ToolCount: 1}, activity)
}

func TestAnalyze_FiveWritesScoresTwo(t *testing.T) {
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, toolLine(fmt.Sprintf("w%d", i), "Write"))
	}
	path := writeTranscript(t, lines...)

	activity := NewAnalyzer(nil).Analyze(path)
	require.Equal(t, ledger.Activity{ChangeCount: 5, ToolCount: 5}, activity)
	require.Equal(t, 2, ledger.Score(activity.ChangeCount, activity.ToolCount))
}

func TestAnalyze_MissingOrEmpty(t *testing.T) {
	analyzer := NewAnalyzer(nil)
	require.Equal(t, ledger.Activity{}, analyzer.Analyze(""))
	require.Equal(t, ledger.Activity{}, analyzer.Analyze(filepath.Join(t.TempDir(), "missing.jsonl")))

	empty := filepath.Join(t.TempDir(), "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	require.Equal(t, ledger.Activity{}, analyzer.Analyze(empty))
}

func TestAnalyze_Oversized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.WriteString(toolLine("t1", "Edit") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxTranscriptBytes+1))
	require.NoError(t, f.Close())

	require.Equal(t, ledger.Activity{}, NewAnalyzer(nil).Analyze(path))
}
