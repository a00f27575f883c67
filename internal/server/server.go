// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the tracker and LLM clients,
// selects the duplicate detector, and injects them into the tools,
// prompts and resources. No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/spacebridge-io/spacebridge-mcp/internal/config"
	"github.com/spacebridge-io/spacebridge-mcp/internal/duplicates"
	"github.com/spacebridge-io/spacebridge-mcp/internal/llm"
	"github.com/spacebridge-io/spacebridge-mcp/internal/prompts"
	"github.com/spacebridge-io/spacebridge-mcp/internal/resources"
	"github.com/spacebridge-io/spacebridge-mcp/internal/tools"
	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server bundles the MCP server with the handles the entry point needs
// after construction (the version check talks to Tracker directly).
type Server struct {
	MCP      *server.MCPServer
	Tracker  *tracker.Client
	Detector duplicates.Detector
}

// New creates and configures the MCP server with all tools, prompts and
// resources registered. This is the single place where all dependencies
// are resolved.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// --- Create shared dependencies ---

	tc, err := tracker.NewClient(tracker.Config{
		BaseURL:   cfg.APIURL,
		APIKey:    cfg.APIKey,
		Timeout:   cfg.Timeout,
		UserAgent: "spacebridge-mcp/" + Version,
		Logger:    logger.With("component", "tracker"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating tracker client: %w", err)
	}

	detector := duplicates.Select(duplicates.SelectorConfig{
		Strategy:  cfg.DuplicateStrategy,
		LLMAPIKey: cfg.AnthropicAPIKey,
		Threshold: cfg.SimilarityThreshold,
		TopN:      cfg.DuplicateTopN,
	}, newCompleter(cfg, logger), logger.With("component", "duplicates"))

	scope := cfg.Scope()
	logger.Info("startup context", "org", scope.Org, "project", scope.Project, "detector", detector.Name())

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"spacebridge-mcp",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	searchTool := tools.NewSearchTool(tc, scope, logger)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	getTool := tools.NewGetTool(tc, scope)
	s.AddTool(getTool.Definition(), getTool.Handle)

	createTool := tools.NewCreateTool(tc, detector, scope, logger)
	s.AddTool(createTool.Definition(), createTool.Handle)

	updateTool := tools.NewUpdateTool(tc, scope, logger)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	// --- Register prompts ---

	fileIssue := prompts.NewFileIssuePrompt()
	s.AddPrompt(fileIssue.Definition(), fileIssue.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(tc, scope)
	s.AddResourceTemplate(resourceHandler.IssueTemplate(), resourceHandler.HandleIssue)

	return &Server{MCP: s, Tracker: tc, Detector: detector}, nil
}

// newCompleter builds the Anthropic client when LLM detection can be used.
// It returns a nil interface (never a typed nil) when there is none.
func newCompleter(cfg *config.Config, logger *slog.Logger) duplicates.Completer {
	if cfg.AnthropicAPIKey == "" || cfg.DuplicateStrategy != duplicates.StrategyAuto {
		return nil
	}
	c, err := llm.NewClient(llm.Config{
		APIKey:  cfg.AnthropicAPIKey,
		BaseURL: cfg.AnthropicBaseURL,
		Model:   cfg.AnthropicModel,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		logger.Warn("could not create Anthropic client", "error", err)
		return nil
	}
	logger.Info("LLM duplicate detection enabled", "model", c.Model())
	return c
}

// serverInstructions returns the system instructions that tell the AI
// how to use the tracker tools.
func serverInstructions() string {
	return `You have access to SpaceBridge, an issue tracker, through these tools:

- search_issues: find existing issues (full_text for keywords, similarity for meaning)
- get_issue: read one issue with all of its fields
- create_issue: file a new issue
- update_issue: change fields of an existing issue (status, assignee, text, labels)

## Filing issues

create_issue checks for duplicates before it creates anything. If the result
status is existing_duplicate_found, NO new issue was created: tell the user
which issue already covers the problem and offer to update it instead.

Write titles in the present tense and state the problem, e.g. "Login fails on
retry". Descriptions should say what happens, what was expected, and how to
reproduce it.

## Organization and project

Every tool accepts optional org and project arguments. Leave them out to use
the server's default context (configured at startup or taken from the git
remote). Pass them only when the user names a different organization or
project.

## Resources

Issues are also readable as resources at spacebridge://api/v1/issues/{issue_id}.`
}
