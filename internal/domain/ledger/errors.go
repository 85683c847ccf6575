package ledger

import (
	"errors"
	"fmt"

	"github.com/rpggio/worklog/internal/repository"
)

var (
	// ErrInvalidInput indicates missing or malformed input.
	ErrInvalidInput = errors.New("invalid ledger input")
	// ErrInvalidScore indicates a manual score outside 1..3.
	ErrInvalidScore = errors.New("score must be between 1 and 3")
	// ErrInvalidSalience indicates a bookmark salience outside 1..3.
	ErrInvalidSalience = errors.New("salience must be between 1 and 3")
	// ErrInvalidEntity indicates an unknown change entity kind.
	ErrInvalidEntity = errors.New("unknown change entity")
	// ErrInvalidAction indicates an unknown change action.
	ErrInvalidAction = errors.New("unknown change action")
	// ErrTriggerNotFound indicates the trigger doesn't exist.
	ErrTriggerNotFound = fmt.Errorf("trigger %w", repository.ErrNotFound)
	// ErrBookmarkNotFound indicates the bookmark doesn't exist.
	ErrBookmarkNotFound = fmt.Errorf("bookmark %w", repository.ErrNotFound)
)
