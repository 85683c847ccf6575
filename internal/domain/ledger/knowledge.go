package ledger

import (
	"sort"
	"strings"
	"time"
)

// KnowledgeUse pairs a knowledge slug with its access record.
type KnowledgeUse struct {
	Slug string `json:"slug"`
	AccessRecord
}

// TouchKnowledge records a read of a knowledge entry.
func (s *State) TouchKnowledge(slug string, now time.Time) (AccessRecord, error) {
	slug = strings.TrimSpace(slug)
	if err := requireText(slug); err != nil {
		return AccessRecord{}, err
	}
	rec := s.KnowledgeAccess[slug]
	rec.LastAccessed = now
	rec.Count++
	s.KnowledgeAccess[slug] = rec
	return rec, nil
}

// WarmKnowledge lists entries accessed within window of now, most recently
// accessed first.
func (s *State) WarmKnowledge(now time.Time, window time.Duration, limit int) []KnowledgeUse {
	cutoff := now.Add(-window)
	var warm []KnowledgeUse
	for slug, rec := range s.KnowledgeAccess {
		if rec.LastAccessed.After(cutoff) {
			warm = append(warm, KnowledgeUse{Slug: slug, AccessRecord: rec})
		}
	}
	sort.Slice(warm, func(i, j int) bool {
		if !warm[i].LastAccessed.Equal(warm[j].LastAccessed) {
			return warm[i].LastAccessed.After(warm[j].LastAccessed)
		}
		return warm[i].Slug < warm[j].Slug
	})
	if limit > 0 && len(warm) > limit {
		warm = warm[:limit]
	}
	return warm
}
