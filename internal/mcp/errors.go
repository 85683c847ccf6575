package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/repository"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ledger.ErrInvalidScore):
		return &APIError{Code: "INVALID_SCORE", Message: err.Error(), RecoveryHint: "Use a score from 1 to 3"}
	case errors.Is(err, ledger.ErrInvalidSalience):
		return &APIError{Code: "INVALID_SALIENCE", Message: err.Error(), RecoveryHint: "Use a salience from 1 to 3"}
	case errors.Is(err, ledger.ErrInvalidEntity):
		return &APIError{Code: "INVALID_ENTITY", Message: err.Error(), RecoveryHint: "Use task, core, knowledge, feature or sleep"}
	case errors.Is(err, ledger.ErrInvalidAction):
		return &APIError{Code: "INVALID_ACTION", Message: err.Error(), RecoveryHint: "Use create, update or delete"}
	case errors.Is(err, ledger.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, ledger.ErrBookmarkNotFound):
		return &APIError{Code: "BOOKMARK_NOT_FOUND", Message: "bookmark not found", RecoveryHint: "Call bookmark_list for ids"}
	case errors.Is(err, ledger.ErrTriggerNotFound):
		return &APIError{Code: "TRIGGER_NOT_FOUND", Message: "trigger not found", RecoveryHint: "Call trigger_list for ids"}
	case errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, repository.ErrLockTimeout):
		return &APIError{Code: "LEDGER_BUSY", Message: "ledger is locked by another process", RecoveryHint: "Retry shortly"}
	case errors.Is(err, repository.ErrCorrupt):
		return &APIError{Code: "HISTORY_CORRUPT", Message: err.Error(), RecoveryHint: "Repair or move the history file"}
	default:
		return nil
	}
}

func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
