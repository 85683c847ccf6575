// Package hook implements the entry points the agent runtime calls when a
// session stops, a session starts, and a subagent starts.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// maxLastMessageRunes caps the assistant message kept on a session record.
const maxLastMessageRunes = 500

// Input is the JSON payload the runtime writes to a hook's stdin.
type Input struct {
	SessionID            string `json:"session_id"`
	TranscriptPath       string `json:"transcript_path"`
	LastAssistantMessage string `json:"last_assistant_message"`
	HookEventName        string `json:"hook_event_name,omitempty"`
	Cwd                  string `json:"cwd,omitempty"`
}

// ReadInput decodes a hook payload. An empty reader yields a zero Input.
func ReadInput(r io.Reader) (Input, error) {
	var in Input
	if r == nil {
		return in, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return in, fmt.Errorf("reading hook input: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return in, nil
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return Input{}, fmt.Errorf("decoding hook input: %w", err)
	}
	return in, nil
}

// Merge overlays non-empty fields of override onto in.
func (in Input) Merge(override Input) Input {
	if override.SessionID != "" {
		in.SessionID = override.SessionID
	}
	if override.TranscriptPath != "" {
		in.TranscriptPath = override.TranscriptPath
	}
	if override.LastAssistantMessage != "" {
		in.LastAssistantMessage = override.LastAssistantMessage
	}
	return in
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
