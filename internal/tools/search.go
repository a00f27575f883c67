package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// SearchTool handles the search_issues MCP tool.
type SearchTool struct {
	tracker  Tracker
	defaults tracker.Scope
	logger   *slog.Logger
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(t Tracker, defaults tracker.Scope, logger *slog.Logger) *SearchTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchTool{tracker: t, defaults: defaults, logger: logger}
}

// Definition returns the MCP tool definition for search_issues.
func (t *SearchTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Search existing issues in the SpaceBridge tracker. Use full_text for keyword " +
				"matching or similarity for semantic matching. Run this before filing a new issue.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query text"),
		),
		mcp.WithString("search_type",
			mcp.Description("full_text (default) or similarity"),
			mcp.Enum(string(tracker.SearchFullText), string(tracker.SearchSimilarity)),
			mcp.DefaultString(string(tracker.SearchFullText)),
		),
		mcp.WithString("status",
			mcp.Description("Filter by status, e.g. Open or Closed"),
		),
		labelsOption("Filter by labels (all must match)"),
		mcp.WithString("assignee",
			mcp.Description("Filter by assignee"),
		),
		mcp.WithString("priority",
			mcp.Description("Filter by priority"),
		),
	}
	return mcp.NewTool("search_issues", append(opts, scopeOptions()...)...)
}

// searchOutput is the search_issues result payload.
type searchOutput struct {
	Results []tracker.IssueSummary `json:"results"`
}

// Handle processes the search_issues tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	searchType := tracker.SearchType(req.GetString("search_type", string(tracker.SearchFullText)))
	if !searchType.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf(
			"invalid search_type %q: must be %q or %q", searchType, tracker.SearchFullText, tracker.SearchSimilarity,
		)), nil
	}

	scope := resolveScope(req, t.defaults)
	issues, err := t.tracker.SearchIssues(ctx, tracker.SearchParams{
		Query:    query,
		Type:     searchType,
		Scope:    scope,
		Status:   req.GetString("status", ""),
		Labels:   stringsArg(req, "labels"),
		Assignee: req.GetString("assignee", ""),
		Priority: req.GetString("priority", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}

	summaries, err := tracker.Summaries(issues)
	if err != nil {
		return nil, fmt.Errorf("processing search results: %w", err)
	}

	t.logger.Debug("search_issues", "search_type", searchType, "results", len(summaries))
	return jsonResult(searchOutput{Results: summaries})
}
