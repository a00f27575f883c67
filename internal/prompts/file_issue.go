// Package prompts implements MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// FileIssuePrompt handles the file-issue MCP prompt.
// It guides the AI to phrase a problem as an issue and file it with
// create_issue, which checks for duplicates first.
type FileIssuePrompt struct{}

// NewFileIssuePrompt creates a FileIssuePrompt.
func NewFileIssuePrompt() *FileIssuePrompt {
	return &FileIssuePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *FileIssuePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("file-issue",
		mcp.WithPromptDescription(
			"File an issue in the SpaceBridge tracker. "+
				"The assistant writes a clear title and description and files it, "+
				"reusing an existing issue when one already covers the problem.",
		),
		mcp.WithArgument("summary",
			mcp.ArgumentDescription("What went wrong or what should be built"),
		),
		mcp.WithArgument("labels",
			mcp.ArgumentDescription("Comma-separated labels to apply"),
		),
	)
}

// Handle processes the file-issue prompt request.
func (p *FileIssuePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	summary := ""
	labels := ""
	if args := req.Params.Arguments; args != nil {
		summary = strings.TrimSpace(args["summary"])
		labels = strings.TrimSpace(args["labels"])
	}

	var b strings.Builder
	if summary != "" {
		fmt.Fprintf(&b, "I want to file an issue about: %s\n\n", summary)
	} else {
		b.WriteString("I want to file an issue. Ask me what the problem is before doing anything else.\n\n")
	}

	b.WriteString("Please:\n" +
		"1. Write a short title in the present tense that states the problem (e.g. 'Login fails on retry', not 'Fixed login')\n" +
		"2. Write a description covering what happens, what was expected, and how to reproduce it\n" +
		"3. Run `create_issue` with that title and description")
	if labels != "" {
		fmt.Fprintf(&b, " and labels=%q", labels)
	}
	b.WriteString("\n" +
		"4. If the result status is `existing_duplicate_found`, tell me which issue already covers this and offer to add details with `update_issue`\n" +
		"5. Otherwise tell me the new issue id and link\n")

	description := "File a new issue"
	if summary != "" {
		description = fmt.Sprintf("File issue: %s", summary)
	}

	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(b.String()),
			},
		},
	}, nil
}
