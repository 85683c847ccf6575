package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/repository"
)

const defaultHistoryLimit = 10

// Ledger is the read and change-reporting surface served over HTTP.
type Ledger interface {
	Status(ctx context.Context) (*ledger.Snapshot, error)
	State(ctx context.Context) (*ledger.State, error)
	History(ctx context.Context, limit int) ([]ledger.HistoryEntry, error)
	RecordChange(ctx context.Context, in ledger.ChangeInput) error
}

// Server wires HTTP handlers.
type Server struct {
	ledger Ledger
	logger *slog.Logger
}

// NewServer creates the HTTP router. mcpHandler serves /mcp; authMiddleware
// guards everything except /health.
func NewServer(l Ledger, mcpHandler http.Handler, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{ledger: l, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		if mcpHandler != nil {
			r.Handle("/mcp", mcpHandler)
			r.Handle("/mcp/*", mcpHandler)
		}
		r.Route("/api", func(r chi.Router) {
			r.Get("/ledger", srv.handleStatus)
			r.Get("/ledger/state", srv.handleState)
			r.Get("/history", srv.handleHistory)
			r.Post("/changes", srv.handleRecordChange)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.State(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "n must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries, err := s.ledger.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type changeRequest struct {
	Entity  string               `json:"entity"`
	Action  string               `json:"action"`
	Target  string               `json:"target"`
	Fields  []ledger.FieldChange `json:"fields,omitempty"`
	Summary string               `json:"summary,omitempty"`
}

func (s *Server) handleRecordChange(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	entity, err := ledger.ParseEntityKind(req.Entity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	action, err := ledger.ParseAction(req.Action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.ledger.RecordChange(r.Context(), ledger.ChangeInput{
		Entity:  entity,
		Action:  action,
		Target:  req.Target,
		Fields:  req.Fields,
		Summary: req.Summary,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidEntity),
		errors.Is(err, ledger.ErrInvalidAction):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrLockTimeout):
		status = http.StatusServiceUnavailable
	default:
		s.logger.Error("http request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
