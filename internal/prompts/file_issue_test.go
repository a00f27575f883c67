package prompts

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptText(t *testing.T, r *mcp.GetPromptResult) string {
	t.Helper()
	require.NotNil(t, r)
	require.Len(t, r.Messages, 1)
	tc, ok := r.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestFileIssuePrompt_Definition(t *testing.T) {
	def := NewFileIssuePrompt().Definition()
	assert.Equal(t, "file-issue", def.Name)
	require.Len(t, def.Arguments, 2)
	assert.Equal(t, "summary", def.Arguments[0].Name)
}

func TestFileIssuePrompt_WithSummary(t *testing.T) {
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"summary": "checkout button does nothing", "labels": "bug,ui"}

	r, err := NewFileIssuePrompt().Handle(context.Background(), req)
	require.NoError(t, err)

	text := promptText(t, r)
	assert.Contains(t, text, "checkout button does nothing")
	assert.Contains(t, text, "create_issue")
	assert.Contains(t, text, `labels="bug,ui"`)
	assert.Equal(t, "File issue: checkout button does nothing", r.Description)
	assert.Equal(t, mcp.RoleUser, r.Messages[0].Role)
}

func TestFileIssuePrompt_NoArguments(t *testing.T) {
	r, err := NewFileIssuePrompt().Handle(context.Background(), mcp.GetPromptRequest{})
	require.NoError(t, err)

	text := promptText(t, r)
	assert.Contains(t, text, "Ask me what the problem is")
	assert.NotContains(t, text, "labels=")
}
