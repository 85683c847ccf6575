package ledger

import (
	"sort"
	"strings"
	"time"
)

// BookmarkInput describes a new bookmark.
type BookmarkInput struct {
	Message   string
	Salience  int
	SessionID string
}

// AddBookmark prepends a bookmark with the given id.
func (s *State) AddBookmark(id string, in BookmarkInput, now time.Time) (Bookmark, error) {
	if err := requireText(in.Message); err != nil {
		return Bookmark{}, err
	}
	if err := ValidateSalience(in.Salience); err != nil {
		return Bookmark{}, err
	}

	b := Bookmark{
		ID:        id,
		Message:   strings.TrimSpace(in.Message),
		Salience:  in.Salience,
		CreatedAt: now,
		SessionID: stringPtr(strings.TrimSpace(in.SessionID)),
	}
	s.Bookmarks = append([]Bookmark{b}, s.Bookmarks...)
	return b, nil
}

// RemoveBookmark deletes a bookmark by id.
func (s *State) RemoveBookmark(id string) error {
	for i, b := range s.Bookmarks {
		if b.ID == id {
			s.Bookmarks = append(s.Bookmarks[:i], s.Bookmarks[i+1:]...)
			return nil
		}
	}
	return ErrBookmarkNotFound
}

// ClearBookmarks removes all bookmarks and returns how many there were.
func (s *State) ClearBookmarks() int {
	n := len(s.Bookmarks)
	s.Bookmarks = []Bookmark{}
	return n
}

// TopBookmarks returns up to limit bookmarks, highest salience first and
// newest first within a salience level.
func (s *State) TopBookmarks(limit int) []Bookmark {
	top := make([]Bookmark, len(s.Bookmarks))
	copy(top, s.Bookmarks)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Salience > top[j].Salience
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top
}
