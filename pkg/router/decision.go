package router

// Decision is the outcome of a rule evaluation: either a concrete backend id
// or a delegation to a nested router. The zero Decision is invalid; rules
// report "no match" through their boolean return, never through a Decision
// value, so a missing match can never be confused with a real one.
type Decision struct {
	backend  string
	delegate *Router
}

// Backend returns a decision naming a backend id.
func Backend(id string) Decision {
	return Decision{backend: id}
}

// Delegate returns a decision that hands evaluation to a nested router.
func Delegate(r *Router) Decision {
	return Decision{delegate: r}
}

// IsDelegate reports whether the decision delegates to a nested router.
func (d Decision) IsDelegate() bool {
	return d.delegate != nil
}

// BackendID returns the backend id for a non-delegating decision.
func (d Decision) BackendID() string {
	return d.backend
}

// Trace records one rule evaluation in a routing explanation.
type Trace struct {
	Rule    string `json:"rule"`
	Matched bool   `json:"matched"`
}

// RoutingDecision is the result of a Router.Decide call.
type RoutingDecision struct {
	SelectedBackend string  `json:"selected_backend"`
	MatchedRule     string  `json:"matched_rule,omitempty"`
	Explanation     []Trace `json:"explanation,omitempty"`
}
