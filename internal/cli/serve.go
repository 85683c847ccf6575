package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/rpggio/worklog/internal/mcp"
	"github.com/rpggio/worklog/internal/transport"
	"github.com/spf13/cobra"
)

func (a *App) serveCmd() *cobra.Command {
	var transportMode string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over MCP (stdio) or HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("transport") {
				a.Config.Server.Transport = transportMode
			}
			if cmd.Flags().Changed("port") {
				a.Config.Server.Port = port
			}
			if err := a.Config.Validate(); err != nil {
				return err
			}
			return a.withLedger(func(svc *ledger.Service) error {
				mcpServer := mcp.NewServer(mcp.Config{
					Ledger:     svc,
					Version:    a.Version,
					Logger:     a.Logger,
					LedgerPath: a.Config.StatePath(),
				})
				if a.Config.Server.Transport == "stdio" {
					return a.runStdio(cmd.Context(), mcpServer)
				}
				return a.runHTTP(cmd.Context(), svc, mcpServer)
			})
		},
	}
	cmd.Flags().StringVar(&transportMode, "transport", "stdio", "Transport: stdio or http")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port")
	return cmd
}

func (a *App) runStdio(ctx context.Context, mcpServer *sdkmcp.Server) error {
	a.Logger.Info("starting stdio transport")
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func (a *App) runHTTP(ctx context.Context, svc *ledger.Service, mcpServer *sdkmcp.Server) error {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: 30 * time.Minute,
		},
	)
	router := transport.NewServer(svc, mcpHandler, transport.TokenMiddleware(a.Config.Server.Token), a.Logger)

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
