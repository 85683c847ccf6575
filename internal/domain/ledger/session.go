package ledger

import "time"

// Analyzer reads a session transcript. Implementations must return a zero
// Activity for missing, empty, or unreadable transcripts instead of failing.
type Analyzer interface {
	Analyze(path string) Activity
}

// StopInput describes a session stop event.
type StopInput struct {
	SessionID      string
	TranscriptPath string
	LastMessage    string
	Activity       Activity
}

// RecordStop upserts the session and keeps Debt equal to the sum of session
// scores. A repeated stop for the same session replaces its previous score
// instead of adding to it.
func (s *State) RecordStop(in StopInput, now time.Time) SessionRecord {
	score := Score(in.Activity.ChangeCount, in.Activity.ToolCount)

	idx := s.sessionIndex(in.SessionID)
	if idx < 0 {
		s.Sessions = append([]SessionRecord{{SessionID: in.SessionID}}, s.Sessions...)
		idx = 0
	} else if prev := s.Sessions[idx].Score; prev != nil {
		s.Debt -= *prev
	}

	sess := &s.Sessions[idx]
	sess.TranscriptPath = stringPtr(in.TranscriptPath)
	sess.StoppedAt = timePtr(now)
	sess.LastMessage = stringPtr(in.LastMessage)
	sess.ChangeCount = intPtr(in.Activity.ChangeCount)
	sess.ToolCount = intPtr(in.Activity.ToolCount)
	sess.Score = intPtr(score)
	s.Debt += score

	return *sess
}

// RecordPending upserts the session without analyzing it. The session keeps a
// nil score until AnalyzePending runs.
func (s *State) RecordPending(sessionID, transcriptPath, lastMessage string, now time.Time) SessionRecord {
	idx := s.sessionIndex(sessionID)
	if idx < 0 {
		s.Sessions = append([]SessionRecord{{SessionID: sessionID}}, s.Sessions...)
		idx = 0
	} else if prev := s.Sessions[idx].Score; prev != nil {
		s.Debt -= *prev
	}

	sess := &s.Sessions[idx]
	sess.TranscriptPath = stringPtr(transcriptPath)
	sess.StoppedAt = timePtr(now)
	sess.LastMessage = stringPtr(lastMessage)
	sess.ChangeCount = nil
	sess.ToolCount = nil
	sess.Score = nil

	return *sess
}

// AnalyzePending scores every session that has no score yet and returns how
// many were scored. Sessions without a transcript score zero.
func (s *State) AnalyzePending(analyzer Analyzer) int {
	analyzed := 0
	for i := range s.Sessions {
		sess := &s.Sessions[i]
		if sess.Score != nil {
			continue
		}

		var activity Activity
		if sess.TranscriptPath != nil && analyzer != nil {
			activity = analyzer.Analyze(*sess.TranscriptPath)
		}
		score := Score(activity.ChangeCount, activity.ToolCount)

		sess.ChangeCount = intPtr(activity.ChangeCount)
		sess.ToolCount = intPtr(activity.ToolCount)
		sess.Score = intPtr(score)
		s.Debt += score
		analyzed++
	}
	return analyzed
}

// AddManualDebt injects debt that bypasses scoring. It is stored as a
// synthetic stopped session so Debt stays equal to the sum of scores.
func (s *State) AddManualDebt(id string, score int, description string, now time.Time) (SessionRecord, error) {
	if err := ValidateManualScore(score); err != nil {
		return SessionRecord{}, err
	}
	if err := requireText(description); err != nil {
		return SessionRecord{}, err
	}

	sess := SessionRecord{
		SessionID:   "manual-" + id,
		StoppedAt:   timePtr(now),
		LastMessage: stringPtr(description),
		Score:       intPtr(score),
	}
	s.Sessions = append([]SessionRecord{sess}, s.Sessions...)
	s.Debt += score
	return sess, nil
}

// UnscoredSessions counts sessions waiting for analysis.
func (s *State) UnscoredSessions() int {
	n := 0
	for _, sess := range s.Sessions {
		if sess.Score == nil {
			n++
		}
	}
	return n
}

func (s *State) sessionIndex(sessionID string) int {
	for i, sess := range s.Sessions {
		if sess.SessionID == sessionID {
			return i
		}
	}
	return -1
}
