package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	v3 "github.com/ctreminiom/go-atlassian/v2/jira/v3"
	"github.com/ctreminiom/go-atlassian/v2/pkg/infra/models"

	"github.com/zen-systems/lattice/pkg/config"
	"github.com/zen-systems/lattice/pkg/report"
)

// Jira implements Tracker against a Jira Cloud instance.
type Jira struct {
	jira       *v3.Client
	baseURL    string
	projectKey string
}

// NewJira creates a Jira tracker with basic auth.
func NewJira(cfg config.JiraConfig) (*Jira, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jira base URL is required")
	}
	if cfg.Email == "" {
		return nil, fmt.Errorf("jira email is required")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("jira API token is required")
	}
	if cfg.ProjectKey == "" {
		return nil, fmt.Errorf("jira project key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	client, err := v3.New(&http.Client{Timeout: 30 * time.Second}, baseURL)
	if err != nil {
		return nil, fmt.Errorf("create jira client: %w", err)
	}

	client.Auth.SetBasicAuth(cfg.Email, cfg.APIToken)
	client.Auth.SetUserAgent("lattice/1.0")

	return &Jira{jira: client, baseURL: baseURL, projectKey: cfg.ProjectKey}, nil
}

// SearchSimilar runs a summary JQL search scoped to the configured project.
func (j *Jira) SearchSimilar(ctx context.Context, title string, limit int) ([]Issue, error) {
	if limit <= 0 {
		limit = 5
	}
	jql := fmt.Sprintf(`project = %s AND summary ~ "%s" ORDER BY created DESC`,
		j.projectKey, escapeJQL(title))

	result, resp, err := j.jira.Issue.Search.SearchJQL(
		ctx,
		jql,
		[]string{"summary", "status"},
		nil,
		limit,
		"",
	)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("jira search (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("jira search: %w", err)
	}

	issues := make([]Issue, 0, len(result.Issues))
	for _, issue := range result.Issues {
		converted := Issue{
			Key: issue.Key,
			ID:  issue.ID,
			URL: j.browseURL(issue.Key),
		}
		if issue.Fields != nil {
			converted.Summary = issue.Fields.Summary
			if issue.Fields.Status != nil {
				converted.Status = issue.Fields.Status.Name
			}
		}
		issues = append(issues, converted)
	}
	return issues, nil
}

// CreateIssue files a Bug issue with the report's rendered description.
func (j *Jira) CreateIssue(ctx context.Context, r *report.BugReport) (*Issue, error) {
	if r == nil || r.Title == "" {
		return nil, fmt.Errorf("bug report with a title is required")
	}

	payload := &models.IssueScheme{
		Fields: &models.IssueFieldsScheme{
			Summary:     r.Title,
			Project:     &models.ProjectScheme{Key: j.projectKey},
			IssueType:   &models.IssueTypeScheme{Name: "Bug"},
			Priority:    &models.PriorityScheme{Name: r.Severity.JiraPriority()},
			Labels:      []string{"lattice", "auto-filed"},
			Description: textToADF(r.RenderDescription()),
		},
	}

	created, resp, err := j.jira.Issue.Create(ctx, payload, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("jira create issue (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("jira create issue: %w", err)
	}

	return &Issue{
		Key:     created.Key,
		ID:      created.ID,
		Summary: r.Title,
		URL:     j.browseURL(created.Key),
	}, nil
}

// AddComment appends a plain-text comment to the issue.
func (j *Jira) AddComment(ctx context.Context, issueKey, body string) error {
	payload := &models.CommentPayloadScheme{Body: textToADF(body)}

	_, resp, err := j.jira.Issue.Comment.Add(ctx, issueKey, payload, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("jira add comment (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("jira add comment: %w", err)
	}
	return nil
}

func (j *Jira) browseURL(key string) string {
	return j.baseURL + "/browse/" + key
}

func escapeJQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// textToADF wraps plain text in a minimal Atlassian Document Format tree:
// one paragraph per blank-line-separated block, hard breaks within a block.
func textToADF(text string) *models.CommentNodeScheme {
	doc := &models.CommentNodeScheme{
		Version: 1,
		Type:    "doc",
	}

	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimRight(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}

		paragraph := &models.CommentNodeScheme{Type: "paragraph"}
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			if line != "" {
				paragraph.Content = append(paragraph.Content, &models.CommentNodeScheme{
					Type: "text",
					Text: line,
				})
			}
			if i < len(lines)-1 {
				paragraph.Content = append(paragraph.Content, &models.CommentNodeScheme{
					Type: "hardBreak",
				})
			}
		}
		doc.Content = append(doc.Content, paragraph)
	}

	if len(doc.Content) == 0 {
		doc.Content = append(doc.Content, &models.CommentNodeScheme{Type: "paragraph"})
	}
	return doc
}
