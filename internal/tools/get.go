package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// GetTool handles the get_issue MCP tool.
type GetTool struct {
	tracker  Tracker
	defaults tracker.Scope
}

// NewGetTool creates a GetTool.
func NewGetTool(t Tracker, defaults tracker.Scope) *GetTool {
	return &GetTool{tracker: t, defaults: defaults}
}

// Definition returns the MCP tool definition for get_issue.
func (t *GetTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Fetch a single issue by its id, including all fields the tracker stores."),
		mcp.WithString("issue",
			mcp.Required(),
			mcp.Description("Issue id, e.g. SB-42"),
		),
	}
	return mcp.NewTool("get_issue", append(opts, scopeOptions()...)...)
}

// Handle processes the get_issue tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("issue", "")
	if id == "" {
		return mcp.NewToolResultError("'issue' is required"), nil
	}

	issue, err := t.tracker.GetIssue(ctx, id, resolveScope(req, t.defaults))
	if err != nil {
		return nil, fmt.Errorf("getting issue %s: %w", id, err)
	}
	return jsonResult(issue)
}
