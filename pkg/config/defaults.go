package config

// DefaultRoutingConfig returns the built-in routing rules.
// Order matters: the explicit task rule runs first so callers that tag their
// requests always win, then content detection (with a nested per-language
// router for code), then the cost-priority hint, then length, then depth.
func DefaultRoutingConfig() *RoutingConfig {
	codeRouter := &RoutingConfig{
		Rules: []RuleConfig{
			{
				Name: "code-language-router",
				Kind: RuleKindLanguage,
				Triggers: map[string]DecisionConfig{
					"python":     {Backend: "anthropic/claude-3-5-sonnet-latest"},
					"javascript": {Backend: "openai/gpt-4o"},
					"go":         {Backend: "anthropic/claude-3-5-sonnet-latest"},
					"rust":       {Backend: "anthropic/claude-3-5-sonnet-latest"},
					"sql":        {Backend: "openai/gpt-4o"},
				},
			},
		},
		Default: "anthropic/claude-3-5-sonnet-latest",
	}

	return &RoutingConfig{
		Rules: []RuleConfig{
			{
				Name: "task-router",
				Kind: RuleKindTask,
				Triggers: map[string]DecisionConfig{
					"locate_change_target": {Backend: "openai/gpt-4o"},
					"generate_patch":       {Backend: "openai/gpt-4o"},
					"code_fix":             {Backend: "openai/gpt-4o"},
					"pr_edit":              {Backend: "openai/gpt-4o"},
					"parse_bug_report":     {Backend: "anthropic/claude-3-5-sonnet-latest"},
					"ticket_creation":      {Backend: "anthropic/claude-3-5-sonnet-latest"},
					"bug_analysis":         {Backend: "anthropic/claude-3-5-sonnet-latest"},
					"pr_description":       {Backend: "openai/gpt-4o-mini"},
					"summarize":            {Backend: "openai/gpt-4o-mini"},
					"simple":               {Backend: "openai/gpt-4o-mini"},
				},
			},
			{
				Name: "code-detector",
				Kind: RuleKindContent,
				Code: &DecisionConfig{Router: codeRouter},
			},
			{
				Name: "cost-priority-router",
				Kind: RuleKindCost,
				Priorities: map[string]string{
					"low_cost":     "google/gemini-2.0-flash",
					"balanced":     "openai/gpt-4o-mini",
					"high_quality": "anthropic/claude-3-5-sonnet-latest",
					"max_quality":  "openai/gpt-4o",
				},
			},
			{
				Name:           "length-router",
				Kind:           RuleKindLength,
				ShortThreshold: 500,
				LongThreshold:  3000,
				ShortBackend:   "openai/gpt-4o-mini",
				MediumBackend:  "openai/gpt-4o",
				LongBackend:    "openai/gpt-4o",
			},
			{
				Name:              "context-router",
				Kind:              RuleKindDepth,
				NewThreshold:      2,
				DeepThreshold:     5,
				NewBackend:        "openai/gpt-4o-mini",
				DevelopingBackend: "openai/gpt-4o",
				DeepBackend:       "openai/gpt-4o",
			},
		},
		Default:         "openai/gpt-4o-mini",
		FallbackBackend: "openai/gpt-4o-mini",
	}
}

// DefaultWorkflowConfig returns the built-in orchestrator thresholds.
func DefaultWorkflowConfig() *WorkflowConfig {
	return &WorkflowConfig{
		LocateConfidenceThreshold: 0.6,
		PatchConfidenceThreshold:  0.6,
		MaxRelevantFiles:          5,
		MaxContextFiles:           3,
		MaxContextBytes:           24576,
		MaxKeywords:               5,
		SimilarIssueLimit:         5,
		StatusRetention:           1024,
	}
}
