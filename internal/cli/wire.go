package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/worklog/internal/config"
	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/filestore"
	"github.com/rpggio/worklog/internal/sqlite"
	"github.com/rpggio/worklog/internal/transcript"
)

// openLedger builds the ledger service for cfg. The returned closer releases
// the history backend.
func openLedger(cfg config.Config, logger *slog.Logger) (*ledger.Service, io.Closer, error) {
	state := filestore.NewStateStore(cfg.StatePath(), cfg.Ledger.LockTimeout, logger)

	history, closer, err := openHistory(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	svc := ledger.NewService(state, history, transcript.NewAnalyzer(logger), logger,
		ledger.WithDebtThreshold(cfg.Ledger.DebtThreshold),
	)
	return svc, closer, nil
}

func openHistory(cfg config.Config, logger *slog.Logger) (ledger.HistoryRepository, io.Closer, error) {
	switch cfg.History.Backend {
	case "sqlite":
		path := cfg.HistoryDBPath()
		if err := ensureDir(path); err != nil {
			return nil, nil, fmt.Errorf("preparing history database path: %w", err)
		}
		db, err := sqlite.New(path)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewHistoryRepository(db), db, nil
	default:
		return filestore.NewHistoryStore(cfg.HistoryPath(), logger), nopCloser{}, nil
	}
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
