package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/worklog/internal/domain/ledger"
)

// LedgerService defines the ledger operations exposed over MCP.
type LedgerService interface {
	Status(ctx context.Context) (*ledger.Snapshot, error)
	AddDebt(ctx context.Context, score int, description string) (*ledger.SessionRecord, error)
	StartConsolidation(ctx context.Context) (*ledger.StartResult, error)
	CompleteConsolidation(ctx context.Context, summary string, opts ...ledger.CompleteOption) (*ledger.HistoryEntry, error)
	History(ctx context.Context, limit int) ([]ledger.HistoryEntry, error)
	AddBookmark(ctx context.Context, in ledger.BookmarkInput) (*ledger.Bookmark, error)
	ListBookmarks(ctx context.Context) ([]ledger.Bookmark, error)
	RemoveBookmark(ctx context.Context, id string) error
	AddTrigger(ctx context.Context, in ledger.TriggerInput) (*ledger.Trigger, error)
	ListTriggers(ctx context.Context) ([]ledger.Trigger, error)
	RemoveTrigger(ctx context.Context, id string) error
	FireTriggers(ctx context.Context, matchContext string) ([]ledger.FiredTrigger, error)
	RecordChange(ctx context.Context, in ledger.ChangeInput) error
	ListChanges(ctx context.Context) ([]ledger.DashboardChange, error)
	TouchKnowledge(ctx context.Context, slug string) (*ledger.AccessRecord, error)
}

// Config contains server configuration.
type Config struct {
	Ledger  LedgerService
	Version string
	Logger  *slog.Logger
	// LedgerPath names the state file in tool call logs.
	LedgerPath string
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "worklog",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(toolCallLogging(cfg.Logger, cfg.LedgerPath))

	registerTools(server, cfg.Ledger)

	return server
}
