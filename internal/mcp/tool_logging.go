package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolCallLogging logs one line per tools/call naming the tool, the ledger
// it ran against and the error code when the tool failed. Arguments and
// results are only logged at debug level.
func toolCallLogging(logger *slog.Logger, ledgerPath string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil {
				return next(ctx, method, req)
			}
			call, ok := req.(*sdkmcp.CallToolRequest)
			if !ok || call.Params == nil {
				if !strings.HasPrefix(method, "notifications/") {
					logger.Debug("mcp request", "method", method, "session_id", sessionID(req))
				}
				return next(ctx, method, req)
			}

			start := time.Now()
			result, err := next(ctx, method, req)

			attrs := []any{
				"tool", call.Params.Name,
				"ledger", ledgerPath,
				"session_id", sessionID(req),
				"duration", time.Since(start),
			}
			switch {
			case err != nil:
				logger.Warn("tool call failed", append(attrs, "error", err)...)
			case isToolError(result):
				logger.Warn("tool call failed", append(attrs, "code", toolErrorCode(result))...)
			default:
				logger.Info("tool call", attrs...)
			}
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Debug("tool payload", "tool", call.Params.Name,
					"arguments", string(call.Params.Arguments), "result", formatPayload(result))
			}
			return result, err
		}
	}
}

func sessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	// A request built without a live session panics on ID.
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func isToolError(result sdkmcp.Result) bool {
	res, ok := result.(*sdkmcp.CallToolResult)
	return ok && res != nil && res.IsError
}

// toolErrorCode extracts the APIError code from a failed tool result.
func toolErrorCode(result sdkmcp.Result) string {
	res, ok := result.(*sdkmcp.CallToolResult)
	if !ok || res == nil {
		return ""
	}
	for _, content := range res.Content {
		text, ok := content.(*sdkmcp.TextContent)
		if !ok {
			continue
		}
		code, _, found := strings.Cut(text.Text, ":")
		if found && code != "" && strings.ToUpper(code) == code && !strings.Contains(code, " ") {
			return code
		}
		return "UNKNOWN"
	}
	return "UNKNOWN"
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
