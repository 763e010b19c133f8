package report

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"Critical", SeverityCritical},
		{"blocker", SeverityCritical},
		{"HIGH", SeverityHigh},
		{"major", SeverityHigh},
		{"low", SeverityLow},
		{"Trivial", SeverityLow},
		{"medium", SeverityMedium},
		{"", SeverityMedium},
		{"unknown nonsense", SeverityMedium},
		{"  high  ", SeverityHigh},
	}

	for _, tt := range tests {
		if got := ParseSeverity(tt.in); got != tt.want {
			t.Fatalf("ParseSeverity(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestJiraPriority(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityCritical, "Highest"},
		{SeverityHigh, "High"},
		{SeverityMedium, "Medium"},
		{SeverityLow, "Low"},
	}
	for _, tt := range tests {
		if got := tt.severity.JiraPriority(); got != tt.want {
			t.Fatalf("%s.JiraPriority() = %s, want %s", tt.severity, got, tt.want)
		}
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		name   string
		report BugReport
		max    int
		want   []string
	}{
		{
			name:   "title tokens longer than three chars",
			report: BugReport{Title: "API 500 when user pays twice"},
			max:    5,
			want:   []string{"user", "pays", "twice"},
		},
		{
			name:   "stopwords removed",
			report: BugReport{Title: "Error after checkout fails with timeout"},
			max:    5,
			want:   []string{"checkout", "timeout"},
		},
		{
			name: "components appended and deduped case-insensitively",
			report: BugReport{
				Title:              "Payment handler crash",
				AffectedComponents: []string{"payment", "billing"},
			},
			max:  5,
			want: []string{"Payment", "handler", "crash", "billing"},
		},
		{
			name: "capped at max",
			report: BugReport{
				Title: "alpha1 beta2 gamma3 delta4 epsilon5 zeta6 eta7",
			},
			max:  5,
			want: []string{"alpha1", "beta2", "gamma3", "delta4", "epsilon5"},
		},
		{
			name:   "punctuation trimmed",
			report: BugReport{Title: "Crash: checkout, (payment)"},
			max:    5,
			want:   []string{"Crash", "checkout", "payment"},
		},
		{
			name:   "empty report",
			report: BugReport{},
			max:    5,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Keywords(&tt.report, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Keywords = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"title":"x"}`,
			want: `{"title":"x"}`,
		},
		{
			name: "wrapped in prose",
			in:   "Here is the report:\n{\"title\":\"x\"}\nHope that helps!",
			want: `{"title":"x"}`,
		},
		{
			name: "fenced",
			in:   "```json\n{\"title\":\"x\"}\n```",
			want: `{"title":"x"}`,
		},
		{
			name: "no object",
			in:   "sorry, I cannot help with that",
			want: "",
		},
		{
			name: "invalid json between braces",
			in:   "{not valid}",
			want: "",
		},
		{
			name: "nested objects kept whole",
			in:   `{"a":{"b":1}}`,
			want: `{"a":{"b":1}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Fatalf("ExtractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderDescription(t *testing.T) {
	r := &BugReport{
		Title:              "Payment timeout",
		Description:        "Requests hang.",
		StepsToReproduce:   []string{"Open checkout", "Click pay"},
		ExpectedBehavior:   "Fast response",
		ActualBehavior:     "504 after 30s",
		AffectedComponents: []string{"payment", "gateway"},
		AdditionalContext:  "Started after the v2 deploy.",
	}

	got := r.RenderDescription()
	for _, want := range []string{
		"Requests hang.",
		"Steps to reproduce:",
		"Open checkout",
		"Expected behavior:\nFast response",
		"Actual behavior:\n504 after 30s",
		"Affected components: payment, gateway",
		"Additional context:\nStarted after the v2 deploy.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("description missing %q:\n%s", want, got)
		}
	}
}
