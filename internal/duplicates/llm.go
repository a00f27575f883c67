package duplicates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/template"

	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

const (
	// DefaultTopN is how many candidates are shown to the model.
	DefaultTopN = 3

	llmTemperature = 0.0
	llmMaxTokens   = 50

	verdictDuplicate    = "DUPLICATE:"
	verdictNotDuplicate = "NOT_DUPLICATE"
)

// Completer is a single-turn text completion backend.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int64) (string, error)
}

// ErrNilCompleter is returned when an LLMDetector is built without a backend.
var ErrNilCompleter = errors.New("llm detector requires a completion client")

// LLMDetector asks a language model to compare the new issue against the
// top candidates. Any failure of the model call yields undetermined.
type LLMDetector struct {
	completer Completer
	topN      int
	prompt    *template.Template
	logger    *slog.Logger
}

// NewLLMDetector returns a detector over c. topN <= 0 means DefaultTopN.
func NewLLMDetector(c Completer, topN int, logger *slog.Logger) (*LLMDetector, error) {
	if c == nil {
		return nil, ErrNilCompleter
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.New("duplicate-check").Funcs(template.FuncMap{
		"orNA":  orNA,
		"score": formatScore,
	}).Parse(comparisonPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &LLMDetector{completer: c, topN: topN, prompt: tmpl, logger: logger}, nil
}

// TopN returns how many candidates are sent to the model.
func (d *LLMDetector) TopN() int { return d.topN }

func (d *LLMDetector) Name() string { return "llm" }

func (d *LLMDetector) CheckDuplicates(ctx context.Context, title, description string, candidates []tracker.IssueSummary) (Decision, error) {
	if len(candidates) == 0 {
		return NotDuplicate(), nil
	}

	sent := candidates
	if len(sent) > d.topN {
		sent = sent[:d.topN]
	}

	prompt, err := d.renderPrompt(title, description, sent)
	if err != nil {
		d.logger.Error("rendering duplicate-check prompt", "error", err)
		return Undetermined(), nil
	}

	d.logger.Info("asking model about possible duplicates", "title", title, "candidates", len(sent))
	raw, err := d.completer.Complete(ctx, prompt, llmTemperature, llmMaxTokens)
	if err != nil {
		d.logger.Error("duplicate-check completion failed", "error", err)
		return Undetermined(), nil
	}
	d.logger.Info("model verdict received", "verdict", strings.TrimSpace(raw))

	decision := ParseVerdict(raw, sent)
	if decision.Status == StatusUndetermined {
		d.logger.Warn("model verdict not usable", "verdict", strings.TrimSpace(raw))
	}
	return decision, nil
}

// ParseVerdict interprets a model reply against the candidates that were
// actually shown to it. A DUPLICATE verdict naming an id outside sent is
// undetermined.
func ParseVerdict(raw string, sent []tracker.IssueSummary) Decision {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, verdictDuplicate) {
		_, id, _ := strings.Cut(text, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return Undetermined()
		}
		for _, c := range sent {
			if c.ID == id {
				return Duplicate(c)
			}
		}
		return Undetermined()
	}

	if text == verdictNotDuplicate {
		return NotDuplicate()
	}
	return Undetermined()
}

type promptData struct {
	Title       string
	Description string
	Candidates  []tracker.IssueSummary
}

func (d *LLMDetector) renderPrompt(title, description string, sent []tracker.IssueSummary) (string, error) {
	var b strings.Builder
	err := d.prompt.Execute(&b, promptData{Title: title, Description: description, Candidates: sent})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatScore(score *float64) string {
	if score == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*score, 'g', -1, 64)
}

const comparisonPromptTemplate = `You are an expert issue tracker assistant. Your task is to determine if a new issue is a duplicate of existing issues.

New Issue Details:
Title: {{.Title}}
Description: {{.Description}}

Potential Existing Duplicates Found via Similarity Search:
---
{{range $i, $c := .Candidates}}{{if $i}}

{{end}}Existing Issue ID: {{$c.ID}}
Title: {{$c.Title}}
Description: {{orNA $c.Description}}
Score: {{score $c.Score}}{{end}}
---

Based on the information above, is the 'New Issue' a likely duplicate of *any* of the 'Potential Existing Duplicates'?

Respond with ONLY one of the following:
1.  If it IS a duplicate: DUPLICATE: [ID of the existing issue, e.g., SB-123]
2.  If it is NOT a duplicate: NOT_DUPLICATE
`
