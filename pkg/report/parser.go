package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/zen-systems/lattice/pkg/backend"
	"github.com/zen-systems/lattice/pkg/llm"
	"github.com/zen-systems/lattice/pkg/router"
)

// ErrNoTitle reports that the model could not produce a usable title. The
// orchestrator treats it as a hard parse failure.
var ErrNoTitle = errors.New("bug report has no title")

// ConversationMessage is one message of the inbound thread.
type ConversationMessage struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

const parseSystemPrompt = `You are a bug triage assistant. Read the conversation and extract a structured bug report.
Respond with a single JSON object with keys: title, description, steps_to_reproduce (array),
expected_behavior, actual_behavior, severity (Critical|High|Medium|Low),
affected_components (array of file or module names), additional_context.`

// Parser turns a conversation thread into a BugReport via a routed model call.
type Parser struct {
	caller *llm.Caller
}

// NewParser creates a parser over the given caller.
func NewParser(caller *llm.Caller) *Parser {
	return &Parser{caller: caller}
}

// Parse routes the parse_bug_report task and decodes the model's JSON reply.
func (p *Parser) Parse(ctx context.Context, conversation []ConversationMessage) (*BugReport, error) {
	if len(conversation) == 0 {
		return nil, fmt.Errorf("conversation is empty")
	}

	var b strings.Builder
	for _, m := range conversation {
		fmt.Fprintf(&b, "%s: %s\n", m.Author, m.Text)
	}
	text := b.String()

	features := router.DetectFeatures(text)
	features.ConversationDepth = len(conversation)

	result, err := p.caller.Complete(ctx, "parse_bug_report", features, backend.Request{
		Messages: []backend.Message{
			{Role: backend.RoleSystem, Content: parseSystemPrompt},
			{Role: backend.RoleUser, Content: text},
		},
		MaxTokens:   2500,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("parse bug report: %w", err)
	}

	report, err := decodeReport(result.Text)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// decodeReport extracts the first JSON object from model output and maps it
// to a BugReport. Model replies often wrap the object in prose or fences, so
// the slice between the first '{' and the last '}' is what gets parsed.
func decodeReport(text string) (*BugReport, error) {
	raw := ExtractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	parsed := gjson.Parse(raw)
	r := &BugReport{
		Title:             strings.TrimSpace(parsed.Get("title").String()),
		Description:       parsed.Get("description").String(),
		ExpectedBehavior:  parsed.Get("expected_behavior").String(),
		ActualBehavior:    parsed.Get("actual_behavior").String(),
		Severity:          ParseSeverity(parsed.Get("severity").String()),
		AdditionalContext: parsed.Get("additional_context").String(),
	}
	for _, step := range parsed.Get("steps_to_reproduce").Array() {
		r.StepsToReproduce = append(r.StepsToReproduce, step.String())
	}

	// affected_components shows up as either an array or a bare string.
	components := parsed.Get("affected_components")
	if components.IsArray() {
		for _, c := range components.Array() {
			if c.String() != "" {
				r.AffectedComponents = append(r.AffectedComponents, c.String())
			}
		}
	} else if components.String() != "" {
		r.AffectedComponents = append(r.AffectedComponents, components.String())
	}

	if r.Title == "" {
		return nil, ErrNoTitle
	}
	return r, nil
}

// ExtractJSON returns the slice of text between the first '{' and the last
// '}', or "" when no object is present or the slice is not valid JSON.
func ExtractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	raw := text[start : end+1]
	if !gjson.Valid(raw) {
		return ""
	}
	return raw
}
