// Package transcript reads agent session transcripts (JSON lines) and counts
// the tool calls they contain.
package transcript

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/rpggio/worklog/internal/domain/ledger"
)

// MaxTranscriptBytes is the largest transcript that will be analyzed.
const MaxTranscriptBytes = 50 << 20

const maxLineBytes = 8 << 20

// editTools are the tool names that modify files.
var editTools = map[string]bool{
	"Edit":         true,
	"MultiEdit":    true,
	"Write":        true,
	"NotebookEdit": true,
}

// Analyzer implements ledger.Analyzer over transcript files.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates a transcript analyzer.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Analyzer{logger: logger}
}

type line struct {
	Type    string `json:"type"`
	Message struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type block struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Analyze counts edit-class and total tool calls. Missing, empty, oversized
// or unreadable transcripts count as no activity.
func (a *Analyzer) Analyze(path string) ledger.Activity {
	if path == "" {
		return ledger.Activity{}
	}
	info, err := os.Stat(path)
	if err != nil {
		a.logger.Debug("transcript unavailable", "path", path, "error", err)
		return ledger.Activity{}
	}
	if info.Size() == 0 || info.Size() > MaxTranscriptBytes {
		a.logger.Debug("transcript skipped", "path", path, "size", info.Size())
		return ledger.Activity{}
	}

	f, err := os.Open(path)
	if err != nil {
		a.logger.Warn("opening transcript", "path", path, "error", err)
		return ledger.Activity{}
	}
	defer f.Close()

	activity, err := Count(f)
	if err != nil {
		a.logger.Warn("reading transcript", "path", path, "error", err)
	}
	return activity
}

// Count scans a JSONL transcript. Tool calls repeated across streamed
// message lines are counted once by id. On a read error the counts gathered
// so far are returned with the error.
func Count(r io.Reader) (ledger.Activity, error) {
	var activity ledger.Activity
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		var l line
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			continue
		}
		if l.Type != "assistant" || len(l.Message.Content) == 0 {
			continue
		}
		var blocks []block
		if err := json.Unmarshal(l.Message.Content, &blocks); err != nil {
			continue
		}
		for _, b := range blocks {
			if b.Type != "tool_use" {
				continue
			}
			if b.ID != "" {
				if seen[b.ID] {
					continue
				}
				seen[b.ID] = true
			}
			activity.ToolCount++
			if editTools[b.Name] {
				activity.ChangeCount++
			}
		}
	}
	return activity, scanner.Err()
}
