// Package testserver runs the full HTTP stack over a temporary ledger for
// end-to-end tests.
package testserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/filestore"
	"github.com/rpggio/worklog/internal/mcp"
	"github.com/rpggio/worklog/internal/transcript"
	"github.com/rpggio/worklog/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server *httptest.Server
	Ledger *ledger.Service
	Dir    string
	Token  string
}

func New(t *testing.T, token string) *TestServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	svc := ledger.NewService(
		filestore.NewStateStore(filepath.Join(dir, "ledger.json"), 5*time.Second, logger),
		filestore.NewHistoryStore(filepath.Join(dir, "history.json"), logger),
		transcript.NewAnalyzer(logger),
		logger,
	)

	mcpServer := mcp.NewServer(mcp.Config{
		Ledger:     svc,
		Version:    "test",
		Logger:     logger,
		LedgerPath: filepath.Join(dir, "ledger.json"),
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)
	server := httptest.NewServer(transport.NewServer(svc, mcpHandler, transport.TokenMiddleware(token), logger))
	t.Cleanup(server.Close)

	return &TestServer{Server: server, Ledger: svc, Dir: dir, Token: token}
}

// Connect opens an MCP client session against the server.
func (ts *TestServer) Connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: &bearerTransport{token: ts.Token}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

type bearerTransport struct {
	token string
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	return http.DefaultTransport.RoundTrip(req)
}
