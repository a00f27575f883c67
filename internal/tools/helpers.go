// Package tools implements the MCP tool handlers for the issue tracker.
//
// Each tool follows the same pattern:
//   - A struct with its dependencies injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Bad arguments produce a tool-level error result. Upstream failures that
// the caller must see (a failed create) are returned as handler errors.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// Tracker is the subset of the tracker client the tools depend on.
type Tracker interface {
	SearchIssues(ctx context.Context, p tracker.SearchParams) ([]tracker.Issue, error)
	GetIssue(ctx context.Context, id string, scope tracker.Scope) (tracker.Issue, error)
	CreateIssue(ctx context.Context, p tracker.CreateParams) (tracker.Issue, error)
	UpdateIssue(ctx context.Context, id string, p tracker.UpdateParams) (tracker.Issue, error)
}

// resolveScope applies tool-argument priority: a non-empty org/project
// argument wins, otherwise the startup default is used.
func resolveScope(req mcp.CallToolRequest, defaults tracker.Scope) tracker.Scope {
	scope := defaults
	if org := strings.TrimSpace(req.GetString("org", "")); org != "" {
		scope.Org = org
	}
	if project := strings.TrimSpace(req.GetString("project", "")); project != "" {
		scope.Project = project
	}
	return scope
}

// stringsArg extracts a list of strings. Hosts send either a JSON array or
// a comma-separated string; both are accepted. Blank entries are dropped.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	var raw []string
	switch v := req.GetArguments()[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = v
	case string:
		raw = strings.Split(v, ",")
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// scopeOptions are the org/project arguments shared by every tool.
func scopeOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("org",
			mcp.Description("Organization name. Overrides the server's default organization."),
		),
		mcp.WithString("project",
			mcp.Description("Project name. Overrides the server's default project."),
		),
	}
}

func labelsOption(desc string) mcp.ToolOption {
	return mcp.WithArray("labels",
		mcp.Description(desc),
		mcp.Items(map[string]any{"type": "string"}),
	)
}
