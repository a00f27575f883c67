package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spacebridge-io/spacebridge-mcp/internal/duplicates"
	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// Create statuses reported by create_issue.
const (
	StatusCreated        = "created"
	StatusDuplicateFound = "existing_duplicate_found"
)

// unknownIssueID is reported when the tracker's create response has no id.
const unknownIssueID = "UNKNOWN"

// CreateTool handles the create_issue MCP tool. Before creating, it runs a
// similarity search and asks the configured detector whether the new issue
// duplicates one that already exists.
type CreateTool struct {
	tracker  Tracker
	detector duplicates.Detector
	defaults tracker.Scope
	logger   *slog.Logger
}

// NewCreateTool creates a CreateTool. A nil detector disables duplicate
// detection.
func NewCreateTool(t Tracker, d duplicates.Detector, defaults tracker.Scope, logger *slog.Logger) *CreateTool {
	if d == nil {
		d = duplicates.NullDetector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateTool{tracker: t, detector: d, defaults: defaults, logger: logger}
}

// Definition returns the MCP tool definition for create_issue.
func (t *CreateTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"File a new issue. The server first searches for similar issues and, when one is a " +
				"likely duplicate, returns it instead of creating a new one. Phrase the title in " +
				"the present tense, e.g. 'Login fails on retry'.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Issue title"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Issue description: what happens, what was expected, how to reproduce"),
		),
		labelsOption("Labels to apply"),
		mcp.WithString("assignee", mcp.Description("Assignee")),
		mcp.WithString("priority", mcp.Description("Priority")),
		mcp.WithString("status", mcp.Description("Initial status")),
		mcp.WithBoolean("similarity_search",
			mcp.Description("Check for duplicates before creating (default: true)"),
			mcp.DefaultBool(true),
		),
	}
	return mcp.NewTool("create_issue", append(opts, scopeOptions()...)...)
}

// CreateInput is a fully resolved create_issue request.
type CreateInput struct {
	Title            string
	Description      string
	Scope            tracker.Scope
	Labels           []string
	Assignee         string
	Priority         string
	Status           string
	SimilaritySearch bool
}

// CreateOutput is the create_issue result payload.
type CreateOutput struct {
	IssueID string `json:"issue_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// Handle processes the create_issue tool call.
func (t *CreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	description := req.GetString("description", "")
	if description == "" {
		return mcp.NewToolResultError("'description' is required"), nil
	}

	out, err := t.Create(ctx, CreateInput{
		Title:            title,
		Description:      description,
		Scope:            resolveScope(req, t.defaults),
		Labels:           stringsArg(req, "labels"),
		Assignee:         req.GetString("assignee", ""),
		Priority:         req.GetString("priority", ""),
		Status:           req.GetString("status", ""),
		SimilaritySearch: boolArg(req, "similarity_search", true),
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(out)
}

// Create runs search, detection and creation for in. Only a failed create
// is returned as an error; search and detector failures fall through to
// creating the issue.
func (t *CreateTool) Create(ctx context.Context, in CreateInput) (CreateOutput, error) {
	log := t.logger.With("request_id", uuid.NewString(), "org", in.Scope.Org, "project", in.Scope.Project)

	if in.SimilaritySearch {
		candidates := t.candidates(ctx, log, in)
		if len(candidates) > 0 {
			decision := t.detect(ctx, log, in, candidates)
			duplicates.RecordDecision(ctx, t.detector.Name(), decision.Status)

			switch {
			case decision.Status == duplicates.StatusDuplicate && decision.DuplicateIssue != nil:
				dup := decision.DuplicateIssue
				log.Info("duplicate found; not creating", "duplicate", dup.ID)
				return CreateOutput{
					IssueID: dup.ID,
					Status:  StatusDuplicateFound,
					Message: fmt.Sprintf("Found a likely duplicate of issue %s. No new issue created.", dup.ID),
					URL:     dup.URL,
				}, nil
			case decision.Status == duplicates.StatusDuplicate:
				log.Error("detector reported a duplicate without an issue; creating anyway", "detector", t.detector.Name())
			default:
				log.Info("no duplicate found", "detector", t.detector.Name(), "status", decision.Status)
			}
		} else {
			log.Info("no similar issues found")
		}
	}

	issue, err := t.tracker.CreateIssue(ctx, tracker.CreateParams{
		Title:       in.Title,
		Description: in.Description,
		Scope:       in.Scope,
		Labels:      in.Labels,
		Assignee:    in.Assignee,
		Priority:    in.Priority,
		Status:      in.Status,
	})
	if err != nil {
		log.Error("create failed", "error", err)
		return CreateOutput{}, fmt.Errorf("creating issue: %w", err)
	}

	id := issue.ID()
	if id == "" {
		id = unknownIssueID
	}
	log.Info("issue created", "issue", id)
	return CreateOutput{
		IssueID: id,
		Status:  StatusCreated,
		Message: "Successfully created new issue.",
		URL:     issue.URL(),
	}, nil
}

// candidates runs the similarity search. Failures are logged and yield
// no candidates.
func (t *CreateTool) candidates(ctx context.Context, log *slog.Logger, in CreateInput) []tracker.IssueSummary {
	issues, err := t.tracker.SearchIssues(ctx, tracker.SearchParams{
		Query: in.Title + "\n\n" + in.Description,
		Type:  tracker.SearchSimilarity,
		Scope: in.Scope,
	})
	if err != nil {
		log.Warn("similarity search failed; skipping duplicate check", "error", err)
		return nil
	}
	summaries, err := tracker.Summaries(issues)
	if err != nil {
		log.Warn("similarity search returned malformed results; skipping duplicate check", "error", err)
		return nil
	}
	log.Debug("similarity search", "candidates", len(summaries))
	return summaries
}

// detect runs the detector, turning errors and panics into undetermined.
func (t *CreateTool) detect(ctx context.Context, log *slog.Logger, in CreateInput, candidates []tracker.IssueSummary) (decision duplicates.Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("duplicate detector panicked", "detector", t.detector.Name(), "panic", r)
			decision = duplicates.Undetermined()
		}
	}()

	decision, err := t.detector.CheckDuplicates(ctx, in.Title, in.Description, candidates)
	if err != nil {
		log.Error("duplicate detector failed", "detector", t.detector.Name(), "error", err)
		return duplicates.Undetermined()
	}
	return decision
}
