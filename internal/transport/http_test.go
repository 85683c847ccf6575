package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/repository"
	"github.com/rpggio/worklog/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, token string) (*httptest.Server, *mocks.StateRepository, *mocks.HistoryRepository) {
	t.Helper()
	state := mocks.NewStateRepository()
	state.On("Load", mock.Anything).Return(nil).Maybe()
	state.On("Update", mock.Anything).Return(nil).Maybe()
	history := new(mocks.HistoryRepository)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := ledger.NewService(state, history, nil, nil, ledger.WithClock(func() time.Time { return now }))

	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	server := httptest.NewServer(NewServer(svc, mcpHandler, TokenMiddleware(token), nil))
	t.Cleanup(server.Close)
	return server, state, history
}

func TestHTTPServer_Health(t *testing.T) {
	server, _, _ := newTestServer(t, "secret")

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_MCPIsMountedBehindAuth(t *testing.T) {
	server, _, _ := newTestServer(t, "secret")

	resp, err := http.Post(server.URL+"/mcp", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestHTTPServer_LedgerStatus(t *testing.T) {
	server, state, _ := newTestServer(t, "")
	state.State.RecordStop(ledger.StopInput{SessionID: "s1", Activity: ledger.Activity{ChangeCount: 9}}, time.Now())

	resp, err := http.Get(server.URL + "/api/ledger")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap ledger.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Equal(t, 3, snap.Debt)
	require.Equal(t, 1, snap.Sessions)
}

func TestHTTPServer_RecordChange(t *testing.T) {
	server, state, _ := newTestServer(t, "")

	body := `{"entity":"task","action":"update","target":"T-1","fields":[{"field":"status","from":"todo","to":"done"}]}`
	resp, err := http.Post(server.URL+"/api/changes", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Len(t, state.State.ChangeLog, 1)
	require.Equal(t, `updated task T-1: status "todo" → "done"`, state.State.ChangeLog[0].Summary)

	resp, err = http.Post(server.URL+"/api/changes", "application/json", bytes.NewBufferString(`{"entity":"widget","action":"update","target":"x"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(server.URL+"/api/changes", "application/json", bytes.NewBufferString(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServer_History(t *testing.T) {
	server, _, history := newTestServer(t, "")
	history.On("List", mock.Anything, 2).Return([]ledger.HistoryEntry{{Date: "2026-03-01", Summary: "a"}}, nil)

	resp, err := http.Get(server.URL + "/api/history?n=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []ledger.HistoryEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)

	bad, err := http.Get(server.URL + "/api/history?n=abc")
	require.NoError(t, err)
	bad.Body.Close()
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestHTTPServer_LockTimeoutIsUnavailable(t *testing.T) {
	state := new(mocks.StateRepository)
	state.On("Load", mock.Anything).Return(repository.ErrLockTimeout)
	svc := ledger.NewService(state, new(mocks.HistoryRepository), nil, nil)
	server := httptest.NewServer(NewServer(svc, nil, nil, nil))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/api/ledger")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTPServer_NotFound(t *testing.T) {
	server, _, history := newTestServer(t, "")
	history.On("List", mock.Anything, 10).Return(nil, repository.ErrNotFound)

	resp, err := http.Get(server.URL + "/api/history")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

var _ Ledger = (*ledger.Service)(nil)
