package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// Update statuses reported by update_issue.
const (
	StatusUpdated = "updated"
	StatusFailed  = "failed"
)

// UpdateTool handles the update_issue MCP tool.
type UpdateTool struct {
	tracker  Tracker
	defaults tracker.Scope
	logger   *slog.Logger
}

// NewUpdateTool creates an UpdateTool.
func NewUpdateTool(t Tracker, defaults tracker.Scope, logger *slog.Logger) *UpdateTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdateTool{tracker: t, defaults: defaults, logger: logger}
}

// Definition returns the MCP tool definition for update_issue.
func (t *UpdateTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Update fields of an existing issue. Only the fields you pass are changed. " +
				"Use this to close an issue, reassign it, or refine its text.",
		),
		mcp.WithString("issue",
			mcp.Required(),
			mcp.Description("Issue id to update"),
		),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("New status, e.g. Open or Closed")),
		mcp.WithString("priority", mcp.Description("New priority")),
		mcp.WithString("assignee", mcp.Description("New assignee")),
		labelsOption("Replacement label set"),
	}
	return mcp.NewTool("update_issue", append(opts, scopeOptions()...)...)
}

// UpdateOutput is the update_issue result payload.
type UpdateOutput struct {
	IssueID string `json:"issue_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// Handle processes the update_issue tool call. Tracker rejections are
// reported as a failed status, not as a handler error.
func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("issue", "")
	if id == "" {
		return mcp.NewToolResultError("'issue' is required"), nil
	}

	params := tracker.UpdateParams{
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		Status:      req.GetString("status", ""),
		Priority:    req.GetString("priority", ""),
		Assignee:    req.GetString("assignee", ""),
		Labels:      stringsArg(req, "labels"),
		Scope:       resolveScope(req, t.defaults),
	}
	return jsonResult(t.update(ctx, id, params))
}

func (t *UpdateTool) update(ctx context.Context, id string, params tracker.UpdateParams) UpdateOutput {
	if len(params.Fields()) == 0 {
		return UpdateOutput{IssueID: id, Status: StatusFailed, Message: "No fields provided to update."}
	}

	issue, err := t.tracker.UpdateIssue(ctx, id, params)
	if err != nil {
		if errors.Is(err, tracker.ErrNoUpdateFields) {
			return UpdateOutput{IssueID: id, Status: StatusFailed, Message: "No fields provided to update."}
		}
		t.logger.Error("update_issue failed", "issue", id, "error", err)
		return UpdateOutput{IssueID: id, Status: StatusFailed, Message: fmt.Sprintf("An error occurred: %v", err)}
	}

	if got := issue.ID(); got != "" {
		id = got
	}
	return UpdateOutput{
		IssueID: id,
		Status:  StatusUpdated,
		Message: fmt.Sprintf("Successfully updated issue %s.", id),
		URL:     issue.URL(),
	}
}
