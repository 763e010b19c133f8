// Package report defines the structured bug report produced from a
// conversation thread and the keyword derivation used for code search.
package report

import (
	"strings"
)

// Severity is the reported impact level of a bug.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// ParseSeverity maps free-form model output to a Severity, defaulting to
// Medium on anything unrecognized.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "blocker":
		return SeverityCritical
	case "high", "major":
		return SeverityHigh
	case "low", "minor", "trivial":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// JiraPriority returns the issue-tracker priority name for the severity.
func (s Severity) JiraPriority() string {
	switch s {
	case SeverityCritical:
		return "Highest"
	case SeverityHigh:
		return "High"
	case SeverityLow:
		return "Low"
	default:
		return "Medium"
	}
}

// BugReport is the structured form of an informal bug report.
type BugReport struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	StepsToReproduce   []string `json:"steps_to_reproduce,omitempty"`
	ExpectedBehavior   string   `json:"expected_behavior,omitempty"`
	ActualBehavior     string   `json:"actual_behavior,omitempty"`
	Severity           Severity `json:"severity"`
	AffectedComponents []string `json:"affected_components,omitempty"`
	AdditionalContext  string   `json:"additional_context,omitempty"`
}

// RenderDescription produces the ticket body for the report.
func (r *BugReport) RenderDescription() string {
	var b strings.Builder

	b.WriteString(r.Description)

	if len(r.StepsToReproduce) > 0 {
		b.WriteString("\n\nSteps to reproduce:\n")
		for i, step := range r.StepsToReproduce {
			b.WriteString(strings.TrimSpace(step))
			if i < len(r.StepsToReproduce)-1 {
				b.WriteString("\n")
			}
		}
	}
	if r.ExpectedBehavior != "" {
		b.WriteString("\n\nExpected behavior:\n" + r.ExpectedBehavior)
	}
	if r.ActualBehavior != "" {
		b.WriteString("\n\nActual behavior:\n" + r.ActualBehavior)
	}
	if len(r.AffectedComponents) > 0 {
		b.WriteString("\n\nAffected components: " + strings.Join(r.AffectedComponents, ", "))
	}
	if r.AdditionalContext != "" {
		b.WriteString("\n\nAdditional context:\n" + r.AdditionalContext)
	}

	return b.String()
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {},
	"into": {}, "when": {}, "where": {}, "this": {}, "that": {},
	"after": {}, "before": {}, "error": {}, "issue": {}, "fails": {},
}

// Keywords derives code-search queries from the report: title tokens longer
// than three characters plus the affected components, minus stopwords,
// capped at max.
func Keywords(r *BugReport, max int) []string {
	var keywords []string
	seen := make(map[string]struct{})

	add := func(k string) {
		k = strings.Trim(k, ".,:;!?\"'()[]")
		if len(k) <= 3 {
			return
		}
		lower := strings.ToLower(k)
		if _, stop := stopwords[lower]; stop {
			return
		}
		if _, dup := seen[lower]; dup {
			return
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, k)
	}

	for _, word := range strings.Fields(r.Title) {
		add(word)
	}
	for _, component := range r.AffectedComponents {
		add(component)
	}

	if max > 0 && len(keywords) > max {
		keywords = keywords[:max]
	}
	return keywords
}
