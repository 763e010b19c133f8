package router

// Rule is a single predicate-to-decision mapping. Evaluate returns the
// decision and true on a match, or a zero Decision and false otherwise.
// Rules are pure functions of their inputs and immutable once constructed.
type Rule interface {
	Name() string
	Evaluate(task string, f Features) (Decision, bool)
}

// TaskRule maps explicit task tags to decisions.
type TaskRule struct {
	name     string
	triggers map[string]Decision
}

// NewTaskRule creates a rule matching on the caller-supplied task tag.
func NewTaskRule(name string, triggers map[string]Decision) *TaskRule {
	copied := make(map[string]Decision, len(triggers))
	for k, v := range triggers {
		copied[k] = v
	}
	return &TaskRule{name: name, triggers: copied}
}

func (r *TaskRule) Name() string { return r.name }

func (r *TaskRule) Evaluate(task string, _ Features) (Decision, bool) {
	d, ok := r.triggers[task]
	return d, ok
}

// LanguageRule maps the detected content language to a decision. It is the
// usual target of a ContentRule delegation: "is code" first, then sub-route
// by language.
type LanguageRule struct {
	name     string
	triggers map[string]Decision
}

// NewLanguageRule creates a rule matching on the detected content language.
func NewLanguageRule(name string, triggers map[string]Decision) *LanguageRule {
	copied := make(map[string]Decision, len(triggers))
	for k, v := range triggers {
		copied[k] = v
	}
	return &LanguageRule{name: name, triggers: copied}
}

func (r *LanguageRule) Name() string { return r.name }

func (r *LanguageRule) Evaluate(_ string, f Features) (Decision, bool) {
	if f.CodeLanguage == "" {
		return Decision{}, false
	}
	d, ok := r.triggers[f.CodeLanguage]
	return d, ok
}

// ContentRule branches on detected code markers. Either branch may be nil,
// in which case that side does not match and evaluation falls through to the
// next rule.
type ContentRule struct {
	name    string
	code    *Decision
	notCode *Decision
}

// NewContentRule creates a code-detection rule.
func NewContentRule(name string, code, notCode *Decision) *ContentRule {
	return &ContentRule{name: name, code: code, notCode: notCode}
}

func (r *ContentRule) Name() string { return r.name }

func (r *ContentRule) Evaluate(_ string, f Features) (Decision, bool) {
	branch := r.notCode
	if f.HasCodeMarkers {
		branch = r.code
	}
	if branch == nil {
		return Decision{}, false
	}
	return *branch, true
}

// LengthRule buckets requests by message length. A zero length means the
// feature is absent and the rule does not match.
type LengthRule struct {
	name           string
	shortThreshold int
	longThreshold  int
	short          string
	medium         string
	long           string
}

// NewLengthRule creates a message-length rule with short/long cutoffs.
func NewLengthRule(name string, shortThreshold, longThreshold int, short, medium, long string) *LengthRule {
	return &LengthRule{
		name:           name,
		shortThreshold: shortThreshold,
		longThreshold:  longThreshold,
		short:          short,
		medium:         medium,
		long:           long,
	}
}

func (r *LengthRule) Name() string { return r.name }

func (r *LengthRule) Evaluate(_ string, f Features) (Decision, bool) {
	if f.MessageLength <= 0 {
		return Decision{}, false
	}
	switch {
	case f.MessageLength < r.shortThreshold:
		return Backend(r.short), r.short != ""
	case f.MessageLength < r.longThreshold:
		return Backend(r.medium), r.medium != ""
	default:
		return Backend(r.long), r.long != ""
	}
}

// DepthRule buckets requests by conversation depth.
type DepthRule struct {
	name          string
	newThreshold  int
	deepThreshold int
	fresh         string
	developing    string
	deep          string
}

// NewDepthRule creates a conversation-depth rule with new/deep cutoffs.
func NewDepthRule(name string, newThreshold, deepThreshold int, fresh, developing, deep string) *DepthRule {
	return &DepthRule{
		name:          name,
		newThreshold:  newThreshold,
		deepThreshold: deepThreshold,
		fresh:         fresh,
		developing:    developing,
		deep:          deep,
	}
}

func (r *DepthRule) Name() string { return r.name }

func (r *DepthRule) Evaluate(_ string, f Features) (Decision, bool) {
	if f.ConversationDepth <= 0 {
		return Decision{}, false
	}
	switch {
	case f.ConversationDepth <= r.newThreshold:
		return Backend(r.fresh), r.fresh != ""
	case f.ConversationDepth <= r.deepThreshold:
		return Backend(r.developing), r.developing != ""
	default:
		return Backend(r.deep), r.deep != ""
	}
}

// CostRule maps an explicit cost-priority hint to a backend.
type CostRule struct {
	name       string
	priorities map[string]string
}

// NewCostRule creates a cost-priority rule.
func NewCostRule(name string, priorities map[string]string) *CostRule {
	copied := make(map[string]string, len(priorities))
	for k, v := range priorities {
		copied[k] = v
	}
	return &CostRule{name: name, priorities: copied}
}

func (r *CostRule) Name() string { return r.name }

func (r *CostRule) Evaluate(_ string, f Features) (Decision, bool) {
	if f.CostPriority == "" {
		return Decision{}, false
	}
	backend, ok := r.priorities[f.CostPriority]
	if !ok {
		return Decision{}, false
	}
	return Backend(backend), true
}
