package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `worklog tracks consolidation debt: how much unreviewed work has piled up since the last time memory was consolidated.

Core concepts:
- Session: one agent session. Its score (0-3) comes from how many file edits and tool calls its transcript shows.
- Debt: the sum of session scores. When it reaches the threshold, consolidation is recommended.
- Consolidation: consolidation_start marks an epoch, consolidation_done clears everything recorded up to it and writes a history entry.
- Bookmark: a salient moment (salience 1-3) to revisit during consolidation.
- Trigger: a reminder that fires when its keywords show up in session context, at most max_fires times.
- Change log: dashboard mutations folded to their net effect per (target, field).

Workflow:
1) Orient: ledger_status.
2) While working: bookmark_add for anything worth revisiting, trigger_add for future reminders, ledger_record_change for every dashboard mutation.
3) When debt is high: consolidation_start, review bookmarks and change_list, then consolidation_done with a summary.

Docs:
- worklog://docs/consolidation
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "worklog://docs/consolidation",
		Name:        "docs_consolidation",
		Title:       "Consolidation guide",
		Description: "What consolidation clears, what it keeps, and how to report changes.",
		Content: `# Consolidation guide

## Scoring

A session scores the larger of two signals:

- File edits: 0 -> 0, 1-3 -> 1, 4-8 -> 2, 9+ -> 3
- Tool calls: 0 -> 0, 1-15 -> 1, 16-40 -> 2, 41+ -> 3

Recording the same session twice replaces its score.

## Epochs

consolidation_start records the current time as the epoch. Sessions, bookmarks and changes
recorded after the epoch survive consolidation_done, so work can continue while you consolidate.
Calling consolidation_start again replaces the epoch and returns a warning.

consolidation_done also drops triggers that have used all their fires.

## Reporting changes

Report every dashboard mutation with ledger_record_change:

- create and delete are logged as single events.
- update carries field transitions. A transition that undoes an earlier one removes it;
  successive transitions of the same field collapse into one from -> to entry.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
