package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule kinds understood by the router.
const (
	RuleKindTask     = "task"
	RuleKindContent  = "content"
	RuleKindLanguage = "language"
	RuleKindLength   = "length"
	RuleKindDepth    = "depth"
	RuleKindCost     = "cost"
)

// RoutingConfig holds the ordered routing rules configuration.
// Rule order is significant: the router evaluates rules top to bottom and
// stops at the first match, so callers express priority by ordering.
type RoutingConfig struct {
	Rules           []RuleConfig `yaml:"rules"`
	Default         string       `yaml:"default"`
	FallbackBackend string       `yaml:"fallback_backend"`
}

// RuleConfig describes a single routing rule. Kind selects which of the
// kind-specific fields apply; a Decision may name a backend directly or
// delegate to a nested rule list.
type RuleConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// task: explicit task tag -> decision.
	// language: detected content language -> decision.
	Triggers map[string]DecisionConfig `yaml:"triggers,omitempty"`

	// content: branch on detected code markers.
	Code    *DecisionConfig `yaml:"code,omitempty"`
	NotCode *DecisionConfig `yaml:"not_code,omitempty"`

	// length: branch on message length in characters.
	ShortThreshold int    `yaml:"short_threshold,omitempty"`
	LongThreshold  int    `yaml:"long_threshold,omitempty"`
	ShortBackend   string `yaml:"short_backend,omitempty"`
	MediumBackend  string `yaml:"medium_backend,omitempty"`
	LongBackend    string `yaml:"long_backend,omitempty"`

	// depth: branch on conversation depth in messages.
	NewThreshold      int    `yaml:"new_threshold,omitempty"`
	DeepThreshold     int    `yaml:"deep_threshold,omitempty"`
	NewBackend        string `yaml:"new_backend,omitempty"`
	DevelopingBackend string `yaml:"developing_backend,omitempty"`
	DeepBackend       string `yaml:"deep_backend,omitempty"`

	// cost: explicit cost-priority hint -> backend.
	Priorities map[string]string `yaml:"priorities,omitempty"`
}

// DecisionConfig is either a backend id or a nested router definition.
// Exactly one of the two fields may be set.
type DecisionConfig struct {
	Backend string         `yaml:"backend,omitempty"`
	Router  *RoutingConfig `yaml:"router,omitempty"`
}

// WorkflowConfig holds orchestrator thresholds and caps. The confidence
// thresholds gate irreversible downstream actions and are configuration,
// not invariants.
type WorkflowConfig struct {
	LocateConfidenceThreshold float64 `yaml:"locate_confidence_threshold"`
	PatchConfidenceThreshold  float64 `yaml:"patch_confidence_threshold"`
	MaxRelevantFiles          int     `yaml:"max_relevant_files"`
	MaxContextFiles           int     `yaml:"max_context_files"`
	MaxContextBytes           int     `yaml:"max_context_bytes"`
	MaxKeywords               int     `yaml:"max_keywords"`
	SimilarIssueLimit         int     `yaml:"similar_issue_limit"`
	StatusRetention           int     `yaml:"status_retention"`
}

// LoadRoutingConfig reads routing configuration from a YAML file.
func LoadRoutingConfig(path string) (*RoutingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing config: %w", err)
	}

	var cfg RoutingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse routing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural requirements on the routing configuration.
func (c *RoutingConfig) Validate() error {
	if c.Default == "" {
		return fmt.Errorf("routing config: default backend is required")
	}
	for i, rule := range c.Rules {
		if err := rule.validate(); err != nil {
			return fmt.Errorf("routing config: rule %d (%s): %w", i, rule.Name, err)
		}
	}
	return nil
}

func (r *RuleConfig) validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch r.Kind {
	case RuleKindTask, RuleKindLanguage:
		if len(r.Triggers) == 0 {
			return fmt.Errorf("%s rule needs at least one trigger", r.Kind)
		}
		for task, d := range r.Triggers {
			if err := d.validate(); err != nil {
				return fmt.Errorf("trigger %q: %w", task, err)
			}
		}
	case RuleKindContent:
		if r.Code == nil && r.NotCode == nil {
			return fmt.Errorf("content rule needs a code or not_code branch")
		}
		for _, d := range []*DecisionConfig{r.Code, r.NotCode} {
			if d == nil {
				continue
			}
			if err := d.validate(); err != nil {
				return err
			}
		}
	case RuleKindLength:
		if r.ShortThreshold <= 0 || r.LongThreshold <= r.ShortThreshold {
			return fmt.Errorf("length rule thresholds must satisfy 0 < short < long")
		}
	case RuleKindDepth:
		if r.NewThreshold <= 0 || r.DeepThreshold <= r.NewThreshold {
			return fmt.Errorf("depth rule thresholds must satisfy 0 < new < deep")
		}
	case RuleKindCost:
		if len(r.Priorities) == 0 {
			return fmt.Errorf("cost rule needs at least one priority mapping")
		}
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
	return nil
}

func (d *DecisionConfig) validate() error {
	if d.Backend != "" && d.Router != nil {
		return fmt.Errorf("decision cannot name both a backend and a nested router")
	}
	if d.Backend == "" && d.Router == nil {
		return fmt.Errorf("decision needs a backend or a nested router")
	}
	if d.Router != nil {
		return d.Router.Validate()
	}
	return nil
}
