// Package router selects a backend for a task by evaluating an ordered list
// of rules. Evaluation stops at the first match; a rule's decision may
// delegate to a nested router, which is evaluated recursively with the same
// features. If nothing matches, the router's default backend is used. The
// router is a pure function over its inputs and cannot fail.
package router

import (
	"fmt"

	"github.com/zen-systems/lattice/pkg/config"
)

// Router is an ordered list of rules plus a default backend.
type Router struct {
	name  string
	rules []Rule
	def   string
}

// New creates a router. Rule order is significant and preserved: an earlier
// rule that matches shadows any later one, so callers configure priority by
// putting the most specific rules first.
func New(name string, rules []Rule, defaultBackend string) *Router {
	return &Router{name: name, rules: rules, def: defaultBackend}
}

// Name returns the router's identifier.
func (r *Router) Name() string { return r.name }

// Default returns the router's fallback backend id.
func (r *Router) Default() string { return r.def }

// Rules returns the configured rule names in evaluation order.
func (r *Router) Rules() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name()
	}
	return names
}

// Decide evaluates the rules in order against the task tag and features and
// returns the first matching decision, recursing through delegations. The
// explanation lists every rule consulted, in order, including rules inside
// nested routers.
func (r *Router) Decide(task string, f Features) RoutingDecision {
	var trace []Trace

	for _, rule := range r.rules {
		decision, matched := rule.Evaluate(task, f)
		trace = append(trace, Trace{Rule: rule.Name(), Matched: matched})
		if !matched {
			continue
		}

		if decision.IsDelegate() {
			nested := decision.delegate.Decide(task, f)
			matchedRule := nested.MatchedRule
			if matchedRule == "" {
				matchedRule = rule.Name()
			}
			return RoutingDecision{
				SelectedBackend: nested.SelectedBackend,
				MatchedRule:     matchedRule,
				Explanation:     append(trace, nested.Explanation...),
			}
		}

		return RoutingDecision{
			SelectedBackend: decision.BackendID(),
			MatchedRule:     rule.Name(),
			Explanation:     trace,
		}
	}

	return RoutingDecision{
		SelectedBackend: r.def,
		Explanation:     trace,
	}
}

// FromConfig builds a router from routing configuration, preserving the
// configured rule order.
func FromConfig(cfg *config.RoutingConfig) (*Router, error) {
	return fromConfig("lattice-router", cfg)
}

func fromConfig(name string, cfg *config.RoutingConfig) (*Router, error) {
	if cfg == nil {
		return nil, fmt.Errorf("routing config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(cfg.Rules))
	for _, rc := range cfg.Rules {
		rule, err := ruleFromConfig(rc)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return New(name, rules, cfg.Default), nil
}

func ruleFromConfig(rc config.RuleConfig) (Rule, error) {
	switch rc.Kind {
	case config.RuleKindTask:
		triggers := make(map[string]Decision, len(rc.Triggers))
		for task, dc := range rc.Triggers {
			d, err := decisionFromConfig(rc.Name+"/"+task, dc)
			if err != nil {
				return nil, err
			}
			triggers[task] = d
		}
		return NewTaskRule(rc.Name, triggers), nil

	case config.RuleKindLanguage:
		triggers := make(map[string]Decision, len(rc.Triggers))
		for lang, dc := range rc.Triggers {
			d, err := decisionFromConfig(rc.Name+"/"+lang, dc)
			if err != nil {
				return nil, err
			}
			triggers[lang] = d
		}
		return NewLanguageRule(rc.Name, triggers), nil

	case config.RuleKindContent:
		var code, notCode *Decision
		if rc.Code != nil {
			d, err := decisionFromConfig(rc.Name+"/code", *rc.Code)
			if err != nil {
				return nil, err
			}
			code = &d
		}
		if rc.NotCode != nil {
			d, err := decisionFromConfig(rc.Name+"/not_code", *rc.NotCode)
			if err != nil {
				return nil, err
			}
			notCode = &d
		}
		return NewContentRule(rc.Name, code, notCode), nil

	case config.RuleKindLength:
		return NewLengthRule(rc.Name, rc.ShortThreshold, rc.LongThreshold,
			rc.ShortBackend, rc.MediumBackend, rc.LongBackend), nil

	case config.RuleKindDepth:
		return NewDepthRule(rc.Name, rc.NewThreshold, rc.DeepThreshold,
			rc.NewBackend, rc.DevelopingBackend, rc.DeepBackend), nil

	case config.RuleKindCost:
		return NewCostRule(rc.Name, rc.Priorities), nil
	}
	return nil, fmt.Errorf("unknown rule kind %q", rc.Kind)
}

func decisionFromConfig(name string, dc config.DecisionConfig) (Decision, error) {
	if dc.Router != nil {
		nested, err := fromConfig(name, dc.Router)
		if err != nil {
			return Decision{}, err
		}
		return Delegate(nested), nil
	}
	return Backend(dc.Backend), nil
}
