package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zen-systems/lattice/pkg/backend"
	"github.com/zen-systems/lattice/pkg/config"
	"github.com/zen-systems/lattice/pkg/llm"
	"github.com/zen-systems/lattice/pkg/report"
	"github.com/zen-systems/lattice/pkg/router"
	"github.com/zen-systems/lattice/pkg/sourcehost"
	"github.com/zen-systems/lattice/pkg/tracker"

	"github.com/tidwall/gjson"
)

// Orchestrator sequences the bug-report workflow. Steps within one run
// execute strictly sequentially; distinct runs share only the Store.
type Orchestrator struct {
	caller  *llm.Caller
	parser  *report.Parser
	tracker tracker.Tracker
	host    sourcehost.SourceHost
	store   *Store
	cfg     *config.WorkflowConfig
}

// New creates an orchestrator. A nil cfg uses the defaults.
func New(caller *llm.Caller, trk tracker.Tracker, host sourcehost.SourceHost, store *Store, cfg *config.WorkflowConfig) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultWorkflowConfig()
	}
	return &Orchestrator{
		caller:  caller,
		parser:  report.NewParser(caller),
		tracker: trk,
		host:    host,
		store:   store,
		cfg:     cfg,
	}
}

// Status returns a read-only snapshot of a run's trace, or nil if unknown.
func (o *Orchestrator) Status(workflowID string) *Run {
	return o.store.Get(workflowID)
}

// Run executes the workflow for one conversation thread. It always returns
// a terminal Result: success=false only when no ticket was created.
func (o *Orchestrator) Run(ctx context.Context, conversation []report.ConversationMessage, channelID, threadID string) *Result {
	workflowID := WorkflowID(channelID, threadID)
	start := time.Now()

	if len(conversation) == 0 {
		return &Result{
			Success:    false,
			WorkflowID: workflowID,
			Error:      "conversation is empty",
			Message:    "Failed to process bug report: conversation is empty",
		}
	}

	if _, err := o.store.Begin(workflowID); err != nil {
		return &Result{
			Success:    false,
			WorkflowID: workflowID,
			Error:      err.Error(),
			Message:    fmt.Sprintf("Failed to process bug report: %v", err),
		}
	}

	slog.Info("workflow started", "workflow_id", workflowID, "messages", len(conversation))

	result := o.run(ctx, workflowID, conversation)

	outcome := outcomeFailed
	if result.Success {
		outcome = outcomeCompleted
		if result.PRURL == "" && result.IssueKey != "" {
			outcome = outcomeDegraded
		}
	}
	workflowsTotal.WithLabelValues(outcome).Inc()
	workflowDuration.Observe(time.Since(start).Seconds())

	slog.Info("workflow finished",
		"workflow_id", workflowID,
		"success", result.Success,
		"issue_key", result.IssueKey,
		"pr_url", result.PRURL)
	return result
}

func (o *Orchestrator) run(ctx context.Context, workflowID string, conversation []report.ConversationMessage) (result *Result) {
	var issue *tracker.Issue

	// Ticket creation is the line past which the workflow has succeeded:
	// even a panic in the fix/review portion must not report failure once
	// the ticket exists.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("workflow panicked", "workflow_id", workflowID, "panic", r)
			if issue != nil {
				o.append(workflowID, StatusCompleted, map[string]any{
					"issue_key": issue.Key,
					"panic":     fmt.Sprintf("%v", r),
				})
				result = &Result{
					Success:    true,
					WorkflowID: workflowID,
					IssueKey:   issue.Key,
					IssueURL:   issue.URL,
					Message:    fmt.Sprintf("Successfully created ticket %s (manual fix required)", issue.Key),
				}
				return
			}
			result = o.fail(workflowID, fmt.Errorf("internal error: %v", r))
		}
	}()

	// Step 1: parse the bug report.
	o.append(workflowID, StatusParsing, map[string]any{"messages": len(conversation)})
	bugReport, err := o.parser.Parse(ctx, conversation)
	if err != nil {
		return o.fail(workflowID, fmt.Errorf("parse bug report: %w", err))
	}

	// Step 2: duplicate check. Search errors are absorbed: logged and
	// treated as "no similar issues", never propagated.
	o.append(workflowID, StatusDuplicateCheck, map[string]any{"bug_title": bugReport.Title})
	similar, err := o.tracker.SearchSimilar(ctx, bugReport.Title, o.cfg.SimilarIssueLimit)
	if err != nil {
		slog.Warn("duplicate check failed, continuing without it",
			"workflow_id", workflowID, "error", err)
		similar = nil
	}

	// Step 3: gather code context.
	keywords := report.Keywords(bugReport, o.cfg.MaxKeywords)
	o.append(workflowID, StatusAnalyzingCodebase, map[string]any{"keywords": keywords})
	relevantFiles, codeContext := o.gatherContext(ctx, workflowID, keywords)

	// Step 4: locate the change target. A failed call degrades to an empty
	// location; the gate below then routes to manual investigation.
	o.append(workflowID, StatusLocatingTarget, map[string]any{"context_files": len(relevantFiles)})
	location := o.locateTarget(ctx, workflowID, bugReport, codeContext, len(conversation))

	// Step 5: generate a patch, gated on location confidence.
	var fix *PatchResult
	if location.Usable(o.cfg.LocateConfidenceThreshold) {
		target := location.Targets[0]
		o.append(workflowID, StatusGeneratingPatch, map[string]any{
			"target_path": target.Path,
			"confidence":  location.Confidence,
		})
		fix = o.generatePatch(ctx, workflowID, bugReport, target, relevantFiles, len(conversation))
	} else {
		slog.Info("skipping patch generation",
			"workflow_id", workflowID,
			"confidence", location.Confidence,
			"targets", len(location.Targets))
	}

	// Step 6: create the ticket. First irreversible action; failure here is
	// fatal and terminal.
	o.append(workflowID, StatusCreatingTicket, map[string]any{"has_fix": fix != nil})
	issue, err = o.tracker.CreateIssue(ctx, bugReport)
	if err != nil {
		return o.fail(workflowID, fmt.Errorf("create ticket: %w", err))
	}
	slog.Info("ticket created", "workflow_id", workflowID, "issue_key", issue.Key)

	// Step 7: branch + patches + review request, only with a usable fix.
	// Everything past the ticket degrades instead of failing.
	var prURL string
	if fix.Usable(o.cfg.PatchConfidenceThreshold) {
		o.append(workflowID, StatusCreatingReviewRequest, map[string]any{"issue_key": issue.Key})
		prURL = o.createReviewRequest(ctx, workflowID, issue, bugReport, fix)
	} else {
		o.comment(ctx, workflowID, issue.Key,
			"No automated fix generated. Manual investigation required.")
	}

	o.append(workflowID, StatusCompleted, map[string]any{
		"issue_key": issue.Key,
		"pr_url":    prURL,
	})

	message := fmt.Sprintf("Successfully created ticket %s", issue.Key)
	if prURL != "" {
		message += fmt.Sprintf(" and review request %s", prURL)
	} else {
		message += " (manual fix required)"
	}

	return &Result{
		Success:       true,
		WorkflowID:    workflowID,
		IssueKey:      issue.Key,
		IssueURL:      issue.URL,
		PRURL:         prURL,
		BugTitle:      bugReport.Title,
		Severity:      bugReport.Severity,
		SimilarIssues: similar,
		Message:       message,
	}
}

// gatherContext fetches relevant files and assembles the code-context string
// from full file contents, bounded by the configured caps. Search errors
// degrade to an empty context.
func (o *Orchestrator) gatherContext(ctx context.Context, workflowID string, keywords []string) ([]sourcehost.File, string) {
	if len(keywords) == 0 {
		return nil, ""
	}

	files, err := o.host.SearchRelevantFiles(ctx, keywords, o.cfg.MaxRelevantFiles)
	if err != nil {
		slog.Warn("code search failed, continuing without context",
			"workflow_id", workflowID, "error", err)
		return nil, ""
	}

	var b strings.Builder
	count := 0
	for _, f := range files {
		if count >= o.cfg.MaxContextFiles {
			break
		}
		section := fmt.Sprintf("=== FILE: %s ===\n%s\n\n", f.Path, f.Content)
		if b.Len()+len(section) > o.cfg.MaxContextBytes {
			break
		}
		b.WriteString(section)
		count++
	}
	return files, strings.TrimRight(b.String(), "\n")
}

const locateSystemPrompt = `You are a code analysis expert. Locate the exact code region that must change to fix the reported bug.
Respond with a single JSON object: {"targets": [{"path", "anchor_before", "anchor_after", "reason"}], "confidence": 0.0-1.0}.`

// locateTarget routes the locate_change_target task. The caller retries once
// on the fixed fallback backend; if both fail, the result is an empty
// location and the workflow downgrades to manual investigation.
func (o *Orchestrator) locateTarget(ctx context.Context, workflowID string, r *report.BugReport, codeContext string, depth int) *LocationResult {
	prompt := fmt.Sprintf(`Bug Report:
Title: %s
Description: %s
Expected: %s
Actual: %s

Code Context:
%s

Find the exact file and region that needs to be changed.`,
		r.Title, r.Description, r.ExpectedBehavior, r.ActualBehavior, codeContext)

	features := router.DetectFeatures(prompt)
	features.ConversationDepth = depth

	result, err := o.caller.Complete(ctx, "locate_change_target", features, backend.Request{
		Messages: []backend.Message{
			{Role: backend.RoleSystem, Content: locateSystemPrompt},
			{Role: backend.RoleUser, Content: prompt},
		},
		MaxTokens:   2500,
		Temperature: 0.2,
	})
	if err != nil {
		slog.Warn("locate call failed after fallback",
			"workflow_id", workflowID, "error", err)
		return &LocationResult{}
	}

	location := decodeLocation(result.Text)
	slog.Info("located change target",
		"workflow_id", workflowID,
		"backend", result.Backend,
		"confidence", location.Confidence,
		"targets", len(location.Targets))
	return location
}

const patchSystemPrompt = `You are a precise code editor. Generate a minimal unified diff to fix the issue.
Respond with a single JSON object: {"patches": [{"path", "unified_diff"}], "commit_message", "confidence": 0.0-1.0}.`

// generatePatch routes the generate_patch task against the located target's
// full content, fetching the file on demand when it is not already in
// context. Any failure yields a nil fix, never a workflow failure.
func (o *Orchestrator) generatePatch(ctx context.Context, workflowID string, r *report.BugReport, target Target, files []sourcehost.File, depth int) *PatchResult {
	var codeSlice string
	for _, f := range files {
		if f.Path == target.Path {
			codeSlice = f.Content
			break
		}
	}
	if codeSlice == "" && target.Path != "" {
		content, err := o.host.GetFileContent(ctx, target.Path)
		if err != nil {
			slog.Warn("target file not found in context or repository",
				"workflow_id", workflowID, "path", target.Path, "error", err)
			return nil
		}
		codeSlice = content
	}
	if codeSlice == "" {
		return nil
	}

	prompt := fmt.Sprintf(`Target File: %s
Reason for Change: %s

Original Code:
%s

Change Required: %s

Generate a unified diff (git format) with minimal changes.`,
		target.Path, target.Reason, codeSlice, r.Description)

	features := router.DetectFeatures(prompt)
	features.ConversationDepth = depth

	result, err := o.caller.Complete(ctx, "generate_patch", features, backend.Request{
		Messages: []backend.Message{
			{Role: backend.RoleSystem, Content: patchSystemPrompt},
			{Role: backend.RoleUser, Content: prompt},
		},
		MaxTokens:   2500,
		Temperature: 0.2,
	})
	if err != nil {
		slog.Warn("patch call failed after fallback",
			"workflow_id", workflowID, "error", err)
		return nil
	}

	fix := decodePatch(result.Text)
	if !fix.Usable(o.cfg.PatchConfidenceThreshold) {
		slog.Info("patch confidence too low",
			"workflow_id", workflowID, "confidence", fix.Confidence)
		return nil
	}
	return fix
}

// Analyze parses a conversation into a bug report and checks the tracker for
// similar issues. Search failures degrade to an empty similar-issue list.
func (o *Orchestrator) Analyze(ctx context.Context, conversation []report.ConversationMessage) (*report.BugReport, []tracker.Issue, error) {
	bugReport, err := o.parser.Parse(ctx, conversation)
	if err != nil {
		return nil, nil, fmt.Errorf("parse bug report: %w", err)
	}
	similar, err := o.tracker.SearchSimilar(ctx, bugReport.Title, o.cfg.SimilarIssueLimit)
	if err != nil {
		slog.Warn("similar-issue search failed", "bug_title", bugReport.Title, "error", err)
		similar = nil
	}
	return bugReport, similar, nil
}

// PlanFix gathers code context, locates the change target, and generates a
// patch for an already-parsed bug report. A fix below the confidence gate
// comes back nil alongside the location.
func (o *Orchestrator) PlanFix(ctx context.Context, workflowID string, r *report.BugReport) (*LocationResult, *PatchResult) {
	keywords := report.Keywords(r, o.cfg.MaxKeywords)
	files, codeContext := o.gatherContext(ctx, workflowID, keywords)

	location := o.locateTarget(ctx, workflowID, r, codeContext, 1)
	if !location.Usable(o.cfg.LocateConfidenceThreshold) {
		return location, nil
	}
	fix := o.generatePatch(ctx, workflowID, r, location.Targets[0], files, 1)
	return location, fix
}

// CreateTicket files the bug report with the issue tracker.
func (o *Orchestrator) CreateTicket(ctx context.Context, r *report.BugReport) (*tracker.Issue, error) {
	return o.tracker.CreateIssue(ctx, r)
}

// OpenReviewRequest creates the fix branch, commits the patches, and opens a
// review request linking back to the ticket.
func (o *Orchestrator) OpenReviewRequest(ctx context.Context, issue *tracker.Issue, r *report.BugReport, fix *PatchResult) (*sourcehost.ReviewRequest, error) {
	branch := sourcehost.BranchName(issue.Key, r.Title)

	if err := o.host.CreateBranch(ctx, branch, ""); err != nil {
		return nil, fmt.Errorf("create branch %s: %w", branch, err)
	}

	commitMessage := fix.CommitMessage
	if commitMessage == "" {
		commitMessage = fmt.Sprintf("Fix: %s", r.Title)
	}
	applied, err := o.host.ApplyPatches(ctx, branch, fix.Patches, commitMessage)
	if err != nil {
		return nil, fmt.Errorf("apply patches to %s: %w", branch, err)
	}
	if applied == 0 {
		return nil, fmt.Errorf("no patches applied cleanly to %s", branch)
	}

	title := fmt.Sprintf("%s: %s", issue.Key, r.Title)
	body := fmt.Sprintf("Automated fix for %s.\n\n%s\n\nGenerated patch confidence: %.2f",
		issue.Key, r.Description, fix.Confidence)
	pr, err := o.host.CreateReviewRequest(ctx, branch, title, body, "")
	if err != nil {
		return nil, fmt.Errorf("open review request from %s: %w", branch, err)
	}
	if pr == nil {
		return nil, fmt.Errorf("review request from %s was not created", branch)
	}
	return pr, nil
}

// createReviewRequest runs OpenReviewRequest with degrade-on-failure
// semantics: any error becomes an explanatory ticket comment instead of a
// workflow failure, since the ticket is never rolled back.
func (o *Orchestrator) createReviewRequest(ctx context.Context, workflowID string, issue *tracker.Issue, r *report.BugReport, fix *PatchResult) string {
	pr, err := o.OpenReviewRequest(ctx, issue, r, fix)
	if err != nil {
		slog.Warn("review request delivery failed",
			"workflow_id", workflowID, "issue_key", issue.Key, "error", err)
		o.comment(ctx, workflowID, issue.Key,
			"Automated fix was generated but could not be delivered: "+err.Error()+". Manual investigation required.")
		return ""
	}
	o.comment(ctx, workflowID, issue.Key, "Review request created: "+pr.URL)
	return pr.URL
}

// comment adds a best-effort ticket comment.
func (o *Orchestrator) comment(ctx context.Context, workflowID, issueKey, body string) {
	if err := o.tracker.AddComment(ctx, issueKey, body); err != nil {
		slog.Warn("ticket comment failed",
			"workflow_id", workflowID, "issue_key", issueKey, "error", err)
	}
}

// append records a step transition, logging rather than propagating the
// bookkeeping error: a full trace is diagnostics, not a workflow dependency.
func (o *Orchestrator) append(workflowID string, status Status, data map[string]any) {
	if err := o.store.Append(workflowID, status, data); err != nil {
		slog.Error("step record append failed",
			"workflow_id", workflowID, "status", status, "error", err)
	}
}

func (o *Orchestrator) fail(workflowID string, err error) *Result {
	o.append(workflowID, StatusFailed, map[string]any{"error": err.Error()})
	return &Result{
		Success:    false,
		WorkflowID: workflowID,
		Error:      err.Error(),
		Message:    fmt.Sprintf("Failed to process bug report: %v", err),
	}
}

func decodeLocation(text string) *LocationResult {
	raw := report.ExtractJSON(text)
	if raw == "" {
		return &LocationResult{}
	}
	parsed := gjson.Parse(raw)

	location := &LocationResult{Confidence: parsed.Get("confidence").Float()}
	for _, t := range parsed.Get("targets").Array() {
		target := Target{
			Path:         t.Get("path").String(),
			AnchorBefore: t.Get("anchor_before").String(),
			AnchorAfter:  t.Get("anchor_after").String(),
			Reason:       t.Get("reason").String(),
		}
		if target.Path != "" {
			location.Targets = append(location.Targets, target)
		}
	}
	return location
}

func decodePatch(text string) *PatchResult {
	raw := report.ExtractJSON(text)
	if raw == "" {
		return &PatchResult{}
	}
	parsed := gjson.Parse(raw)

	fix := &PatchResult{
		CommitMessage: parsed.Get("commit_message").String(),
		Confidence:    parsed.Get("confidence").Float(),
	}
	for _, p := range parsed.Get("patches").Array() {
		patch := sourcehost.Patch{
			Path:        p.Get("path").String(),
			UnifiedDiff: p.Get("unified_diff").String(),
		}
		if patch.Path != "" && patch.UnifiedDiff != "" {
			fix.Patches = append(fix.Patches, patch)
		}
	}
	return fix
}
