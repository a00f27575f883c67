// Package resources implements MCP resource handlers for tracker issues.
//
// Resources provide read-only data that the host can consume for context.
// Issues are addressed as spacebridge://api/v1/issues/{issue_id}.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

const (
	issueURIPrefix   = "spacebridge://api/v1/issues/"
	issueURITemplate = issueURIPrefix + "{issue_id}"
)

// IssueGetter fetches a single issue.
type IssueGetter interface {
	GetIssue(ctx context.Context, id string, scope tracker.Scope) (tracker.Issue, error)
}

// Handler serves issue resources.
type Handler struct {
	issues IssueGetter
	scope  tracker.Scope
}

// NewHandler creates a resource Handler. Issues are read in the startup
// scope.
func NewHandler(issues IssueGetter, scope tracker.Scope) *Handler {
	return &Handler{issues: issues, scope: scope}
}

// IssueTemplate returns the MCP resource template for single issues.
func (h *Handler) IssueTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		issueURITemplate,
		"SpaceBridge Issue",
		mcp.WithTemplateDescription("A single tracker issue with all of its fields, as JSON"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// HandleIssue returns the raw issue as JSON.
func (h *Handler) HandleIssue(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := IssueIDFromURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	issue, err := h.issues.GetIssue(ctx, id, h.scope)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(issue, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling issue: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// IssueURI builds the resource URI for an issue id.
func IssueURI(id string) string {
	return issueURIPrefix + url.PathEscape(id)
}

// IssueIDFromURI extracts the issue id from a resource URI.
func IssueIDFromURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, issueURIPrefix)
	if !ok || rest == "" {
		return "", fmt.Errorf("invalid issue resource URI %q", uri)
	}
	id, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("invalid issue resource URI %q: %w", uri, err)
	}
	if strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid issue resource URI %q", uri)
	}
	return id, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
