package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/worklog/internal/domain/ledger"
)

const defaultHistoryLimit = 10

// registerTools adds every ledger tool to server.
func registerTools(server *sdkmcp.Server, svc LedgerService) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "ledger_status",
		Description: "Show consolidation debt, pending work, bookmarks and active triggers",
	}, statusHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "debt_add",
		Description: "Add manual consolidation debt (score 1-3) for work no transcript captured",
	}, addDebtHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "consolidation_start",
		Description: "Mark the consolidation epoch; work recorded after this point survives consolidation_done",
	}, startConsolidationHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "consolidation_done",
		Description: "Finish consolidation: clear work recorded before the epoch and append a history entry",
	}, completeConsolidationHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "history_list",
		Description: "List past consolidations, newest first",
	}, historyHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "bookmark_add",
		Description: "Bookmark a salient moment to revisit at the next consolidation",
	}, addBookmarkHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "bookmark_list",
		Description: "List bookmarks, newest first",
	}, listBookmarksHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "bookmark_remove",
		Description: "Remove a bookmark by id",
	}, removeBookmarkHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "trigger_add",
		Description: "Register a reminder that fires when one of its keywords appears in session context",
	}, addTriggerHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "trigger_list",
		Description: "List triggers including expired ones awaiting the next consolidation",
	}, listTriggersHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "trigger_remove",
		Description: "Remove a trigger by id",
	}, removeTriggerHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "trigger_fire",
		Description: "Fire every live trigger whose keywords appear in the given context",
	}, fireTriggersHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "ledger_record_change",
		Description: "Report a dashboard mutation so it is folded into the change log",
	}, recordChangeHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "change_list",
		Description: "List folded dashboard changes since the last consolidation",
	}, listChangesHandler(svc))
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "knowledge_touch",
		Description: "Record that a knowledge entry was read",
	}, touchKnowledgeHandler(svc))
}

func statusHandler(svc LedgerService) sdkmcp.ToolHandlerFor[EmptyParams, StatusResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, StatusResponse, error) {
		snap, err := svc.Status(ctx)
		if err != nil {
			return nil, StatusResponse{}, toolError(err)
		}
		return nil, toStatusResponse(snap), nil
	}
}

func addDebtHandler(svc LedgerService) sdkmcp.ToolHandlerFor[AddDebtParams, SessionResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddDebtParams) (*sdkmcp.CallToolResult, SessionResponse, error) {
		rec, err := svc.AddDebt(ctx, in.Score, in.Description)
		if err != nil {
			return nil, SessionResponse{}, toolError(err)
		}
		return nil, SessionResponse{
			SessionID: rec.SessionID,
			Score:     rec.Score,
			StoppedAt: formatTimePtr(rec.StoppedAt),
		}, nil
	}
}

func startConsolidationHandler(svc LedgerService) sdkmcp.ToolHandlerFor[EmptyParams, StartConsolidationResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, StartConsolidationResponse, error) {
		result, err := svc.StartConsolidation(ctx)
		if err != nil {
			return nil, StartConsolidationResponse{}, toolError(err)
		}
		resp := StartConsolidationResponse{
			Epoch:    formatTime(result.Epoch),
			Previous: formatTimePtr(result.Previous),
		}
		if result.Previous != nil {
			resp.Warning = "a consolidation was already in progress; its epoch was replaced"
		}
		return nil, resp, nil
	}
}

// completeConsolidationHandler reports the run as a sleep entity change in
// the same write as the consolidation itself.
func completeConsolidationHandler(svc LedgerService) sdkmcp.ToolHandlerFor[CompleteConsolidationParams, ledger.HistoryEntry] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in CompleteConsolidationParams) (*sdkmcp.CallToolResult, ledger.HistoryEntry, error) {
		entry, err := svc.CompleteConsolidation(ctx, in.Summary, ledger.WithSleepChange())
		if err != nil {
			return nil, ledger.HistoryEntry{}, toolError(err)
		}
		return nil, *entry, nil
	}
}

func historyHandler(svc LedgerService) sdkmcp.ToolHandlerFor[HistoryParams, HistoryResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in HistoryParams) (*sdkmcp.CallToolResult, HistoryResponse, error) {
		limit := in.Limit
		if limit <= 0 {
			limit = defaultHistoryLimit
		}
		entries, err := svc.History(ctx, limit)
		if err != nil {
			return nil, HistoryResponse{}, toolError(err)
		}
		return nil, HistoryResponse{Entries: entries}, nil
	}
}

func addBookmarkHandler(svc LedgerService) sdkmcp.ToolHandlerFor[AddBookmarkParams, BookmarkResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddBookmarkParams) (*sdkmcp.CallToolResult, BookmarkResponse, error) {
		b, err := svc.AddBookmark(ctx, ledger.BookmarkInput{
			Message:   in.Message,
			Salience:  in.Salience,
			SessionID: in.SessionID,
		})
		if err != nil {
			return nil, BookmarkResponse{}, toolError(err)
		}
		return nil, toBookmarkResponse(*b), nil
	}
}

func listBookmarksHandler(svc LedgerService) sdkmcp.ToolHandlerFor[EmptyParams, BookmarkListResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, BookmarkListResponse, error) {
		bookmarks, err := svc.ListBookmarks(ctx)
		if err != nil {
			return nil, BookmarkListResponse{}, toolError(err)
		}
		return nil, BookmarkListResponse{Bookmarks: toBookmarkResponses(bookmarks)}, nil
	}
}

func removeBookmarkHandler(svc LedgerService) sdkmcp.ToolHandlerFor[IDParams, RemovedResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in IDParams) (*sdkmcp.CallToolResult, RemovedResponse, error) {
		if err := svc.RemoveBookmark(ctx, in.ID); err != nil {
			return nil, RemovedResponse{}, toolError(err)
		}
		return nil, RemovedResponse{ID: in.ID, Removed: true}, nil
	}
}

func addTriggerHandler(svc LedgerService) sdkmcp.ToolHandlerFor[AddTriggerParams, TriggerResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddTriggerParams) (*sdkmcp.CallToolResult, TriggerResponse, error) {
		t, err := svc.AddTrigger(ctx, ledger.TriggerInput{
			When:     in.When,
			Remind:   in.Remind,
			Source:   in.Source,
			MaxFires: in.MaxFires,
		})
		if err != nil {
			return nil, TriggerResponse{}, toolError(err)
		}
		return nil, toTriggerResponse(*t), nil
	}
}

func listTriggersHandler(svc LedgerService) sdkmcp.ToolHandlerFor[EmptyParams, TriggerListResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, TriggerListResponse, error) {
		triggers, err := svc.ListTriggers(ctx)
		if err != nil {
			return nil, TriggerListResponse{}, toolError(err)
		}
		resp := TriggerListResponse{Triggers: make([]TriggerResponse, 0, len(triggers))}
		for _, t := range triggers {
			resp.Triggers = append(resp.Triggers, toTriggerResponse(t))
		}
		return nil, resp, nil
	}
}

func removeTriggerHandler(svc LedgerService) sdkmcp.ToolHandlerFor[IDParams, RemovedResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in IDParams) (*sdkmcp.CallToolResult, RemovedResponse, error) {
		if err := svc.RemoveTrigger(ctx, in.ID); err != nil {
			return nil, RemovedResponse{}, toolError(err)
		}
		return nil, RemovedResponse{ID: in.ID, Removed: true}, nil
	}
}

func fireTriggersHandler(svc LedgerService) sdkmcp.ToolHandlerFor[FireTriggersParams, FiredResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in FireTriggersParams) (*sdkmcp.CallToolResult, FiredResponse, error) {
		fired, err := svc.FireTriggers(ctx, in.Context)
		if err != nil {
			return nil, FiredResponse{}, toolError(err)
		}
		resp := FiredResponse{Fired: make([]FiredRef, 0, len(fired))}
		for _, f := range fired {
			resp.Fired = append(resp.Fired, FiredRef{
				ID:         f.ID,
				Remind:     f.Remind,
				FiredCount: f.FiredCount,
				MaxFires:   f.MaxFires,
			})
		}
		return nil, resp, nil
	}
}

func recordChangeHandler(svc LedgerService) sdkmcp.ToolHandlerFor[RecordChangeParams, RecordChangeResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecordChangeParams) (*sdkmcp.CallToolResult, RecordChangeResponse, error) {
		entity, err := ledger.ParseEntityKind(in.Entity)
		if err != nil {
			return nil, RecordChangeResponse{}, toolError(err)
		}
		action, err := ledger.ParseAction(in.Action)
		if err != nil {
			return nil, RecordChangeResponse{}, toolError(err)
		}
		change := ledger.ChangeInput{
			Entity:  entity,
			Action:  action,
			Target:  in.Target,
			Summary: in.Summary,
		}
		for _, f := range in.Fields {
			change.Fields = append(change.Fields, ledger.FieldChange{Field: f.Field, From: f.From, To: f.To})
		}
		if err := svc.RecordChange(ctx, change); err != nil {
			return nil, RecordChangeResponse{}, toolError(err)
		}

		changes, err := svc.ListChanges(ctx)
		if err != nil {
			return nil, RecordChangeResponse{}, toolError(err)
		}
		return nil, RecordChangeResponse{Recorded: true, PendingChanges: len(changes)}, nil
	}
}

func listChangesHandler(svc LedgerService) sdkmcp.ToolHandlerFor[EmptyParams, ChangeListResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, ChangeListResponse, error) {
		changes, err := svc.ListChanges(ctx)
		if err != nil {
			return nil, ChangeListResponse{}, toolError(err)
		}
		resp := ChangeListResponse{Changes: make([]ChangeRef, 0, len(changes))}
		for _, c := range changes {
			resp.Changes = append(resp.Changes, ChangeRef{
				Timestamp: formatTime(c.Timestamp),
				Entity:    string(c.Entity),
				Action:    string(c.Action),
				Target:    c.Target,
				Field:     c.Field,
				Summary:   c.Summary,
			})
		}
		return nil, resp, nil
	}
}

func touchKnowledgeHandler(svc LedgerService) sdkmcp.ToolHandlerFor[TouchKnowledgeParams, KnowledgeResponse] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in TouchKnowledgeParams) (*sdkmcp.CallToolResult, KnowledgeResponse, error) {
		rec, err := svc.TouchKnowledge(ctx, in.Slug)
		if err != nil {
			return nil, KnowledgeResponse{}, toolError(err)
		}
		return nil, KnowledgeResponse{
			Slug:         in.Slug,
			LastAccessed: formatTime(rec.LastAccessed),
			Count:        rec.Count,
		}, nil
	}
}
