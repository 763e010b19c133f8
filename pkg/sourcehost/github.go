package sourcehost

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v82/github"

	"github.com/zen-systems/lattice/pkg/config"
	"github.com/zen-systems/lattice/pkg/relevance"
)

// Compile-time interface check.
var _ SourceHost = (*GitHub)(nil)

// fetchBudget bounds how many blobs a single search will download.
const fetchBudget = 40

// maxBlobSize skips files too large to be useful model context.
const maxBlobSize = 200 * 1024

// GitHub implements SourceHost using the go-github library.
type GitHub struct {
	client *gogithub.Client
	owner  string
	repo   string
	base   string
}

// NewGitHub creates a GitHub source host from config.
func NewGitHub(cfg config.GitHubConfig) (*GitHub, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}

	httpClient := &http.Client{
		Transport: &oauth2Transport{token: cfg.Token},
		Timeout:   30 * time.Second,
	}

	base := cfg.BaseBranch
	if base == "" {
		base = "main"
	}

	return &GitHub{
		client: gogithub.NewClient(httpClient),
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		base:   base,
	}, nil
}

// oauth2Transport adds an Authorization header to every request.
type oauth2Transport struct {
	token string
	base  http.RoundTripper
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", "Bearer "+t.token)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req2)
}

var codeExtensions = []string{
	".go", ".py", ".js", ".ts", ".jsx", ".tsx", ".java", ".rb",
	".php", ".cs", ".cpp", ".c", ".h", ".rs", ".sql", ".kt",
}

func isCodeFile(path string) bool {
	for _, ext := range codeExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// SearchRelevantFiles walks the base branch tree, downloads the most
// promising blobs, and ranks them with the relevance scorer.
func (g *GitHub) SearchRelevantFiles(ctx context.Context, queries []string, max int) ([]File, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	tree, _, err := g.client.Git.GetTree(ctx, g.owner, g.repo, g.base, true)
	if err != nil {
		return nil, fmt.Errorf("get tree for %s: %w", g.base, err)
	}

	// Rank candidate paths by how many queries they mention before spending
	// the fetch budget on content downloads.
	type candidate struct {
		path     string
		pathHits int
	}
	var candidates []candidate
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || !isCodeFile(entry.GetPath()) {
			continue
		}
		if entry.GetSize() > maxBlobSize {
			continue
		}
		path := entry.GetPath()
		if relevance.SkippedDir(path) {
			continue
		}
		hits := 0
		pathLower := strings.ToLower(path)
		for _, q := range queries {
			if strings.Contains(pathLower, strings.ToLower(q)) {
				hits++
			}
		}
		candidates = append(candidates, candidate{path: path, pathHits: hits})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].pathHits > candidates[j].pathHits
	})
	if len(candidates) > fetchBudget {
		candidates = candidates[:fetchBudget]
	}

	var files []relevance.File
	for _, c := range candidates {
		content, err := g.GetFileContent(ctx, c.path)
		if err != nil {
			slog.Debug("skipping unreadable file", "path", c.path, "error", err)
			continue
		}
		files = append(files, relevance.File{Path: c.path, Content: content})
	}

	selected := relevance.Select(files, queries, max)
	out := make([]File, 0, len(selected))
	for _, f := range selected {
		out = append(out, File{Path: f.Path, Content: f.Content, Relevance: f.Score})
	}
	return out, nil
}

// GetFileContent fetches one file's decoded content from the base branch.
func (g *GitHub) GetFileContent(ctx context.Context, path string) (string, error) {
	return g.fileContentAt(ctx, path, g.base)
}

func (g *GitHub) fileContentAt(ctx context.Context, path, ref string) (string, error) {
	fileContent, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path,
		&gogithub.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", fmt.Errorf("get contents of %s@%s: %w", path, ref, err)
	}
	if fileContent == nil {
		return "", fmt.Errorf("%s is not a file", path)
	}
	content, err := fileContent.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return content, nil
}

// CreateBranch creates a branch pointing at base's head.
func (g *GitHub) CreateBranch(ctx context.Context, name, base string) error {
	if base == "" {
		base = g.base
	}
	baseRef, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "refs/heads/"+base)
	if err != nil {
		return fmt.Errorf("get ref for %s: %w", base, err)
	}

	ref := gogithub.CreateRef{
		Ref: "refs/heads/" + name,
		SHA: baseRef.Object.GetSHA(),
	}
	if _, _, err := g.client.Git.CreateRef(ctx, g.owner, g.repo, ref); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

// ApplyPatches commits each patch to the branch as a content-replacement
// edit. A patch whose hunks no longer match the current file content is
// skipped with a warning; the step fails only if nothing could be applied.
func (g *GitHub) ApplyPatches(ctx context.Context, branch string, patches []Patch, commitMessage string) (int, error) {
	applied := 0

	for _, patch := range patches {
		current, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, patch.Path,
			&gogithub.RepositoryContentGetOptions{Ref: branch})
		if err != nil || current == nil {
			slog.Warn("patch target missing, skipping", "path", patch.Path, "error", err)
			continue
		}
		content, err := current.GetContent()
		if err != nil {
			slog.Warn("patch target unreadable, skipping", "path", patch.Path, "error", err)
			continue
		}

		updated, matched, err := ApplyToContent(content, patch)
		if err != nil {
			slog.Warn("unparseable patch, skipping", "path", patch.Path, "error", err)
			continue
		}
		if matched == 0 {
			slog.Warn("patch anchors no longer match, skipping", "path", patch.Path)
			continue
		}

		_, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, patch.Path,
			&gogithub.RepositoryContentFileOptions{
				Message: gogithub.Ptr(commitMessage),
				Content: []byte(updated),
				SHA:     current.SHA,
				Branch:  gogithub.Ptr(branch),
			})
		if err != nil {
			return applied, fmt.Errorf("commit %s to %s: %w", patch.Path, branch, err)
		}
		applied++
	}

	if applied == 0 && len(patches) > 0 {
		return 0, fmt.Errorf("no patches could be applied to %s", branch)
	}
	return applied, nil
}

// CreateReviewRequest opens a pull request from branch into base.
func (g *GitHub) CreateReviewRequest(ctx context.Context, branch, title, body, base string) (*ReviewRequest, error) {
	if base == "" {
		base = g.base
	}
	newPR := &gogithub.NewPullRequest{
		Title: gogithub.Ptr(title),
		Body:  gogithub.Ptr(body),
		Head:  gogithub.Ptr(branch),
		Base:  gogithub.Ptr(base),
	}

	created, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, newPR)
	if err != nil {
		return nil, fmt.Errorf("create review request: %w", err)
	}

	return &ReviewRequest{
		Number: created.GetNumber(),
		URL:    created.GetHTMLURL(),
	}, nil
}

// BranchName derives a branch name from the issue key and bug title.
func BranchName(issueKey, title string) string {
	slug := strings.ToLower(title)
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '/':
			b.WriteRune('-')
		}
	}
	cleaned := strings.Trim(b.String(), "-")
	for strings.Contains(cleaned, "--") {
		cleaned = strings.ReplaceAll(cleaned, "--", "-")
	}
	if len(cleaned) > 40 {
		cleaned = strings.Trim(cleaned[:40], "-")
	}
	if cleaned == "" {
		return "fix/" + strings.ToLower(issueKey)
	}
	return "fix/" + strings.ToLower(issueKey) + "-" + cleaned
}
