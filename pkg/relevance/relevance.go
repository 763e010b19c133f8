// Package relevance scores repository files against code-search queries.
// Scoring is a pure function of its inputs: identical content, path, and
// queries always yield the identical float.
package relevance

import (
	"math"
	"sort"
	"strings"
)

// Threshold below which a file is not considered a candidate.
const Threshold = 0.1

// File is a scored repository file.
type File struct {
	Path    string
	Content string
	Score   float64
}

var skipDirs = []string{
	"node_modules/",
	"vendor/",
	".git/",
	"__pycache__/",
	".venv/",
	"venv/",
	"dist/",
	"build/",
	"target/",
	".next/",
	"coverage/",
	".pytest_cache/",
}

// SkippedDir reports whether the path sits under an excluded directory
// (build output, dependency caches, version-control metadata).
func SkippedDir(path string) bool {
	p := strings.ToLower(path)
	for _, dir := range skipDirs {
		if strings.HasPrefix(p, dir) || strings.Contains(p, "/"+dir) {
			return true
		}
	}
	return false
}

// Score rates how relevant a file is to the queries, in [0,1].
// Per query: +0.5 for a path substring match, up to +0.3 for content
// occurrences (0.1*log(n+1), capped), +0.3 for a definition of the queried
// symbol, +0.2 for an import of it. The sum is normalized by the query count
// and clamped.
func Score(content, path string, queries []string) float64 {
	if len(queries) == 0 {
		return 0
	}

	contentLower := strings.ToLower(content)
	pathLower := strings.ToLower(path)

	score := 0.0
	for _, query := range queries {
		q := strings.ToLower(query)
		if q == "" {
			continue
		}

		if strings.Contains(pathLower, q) {
			score += 0.5
		}

		if occurrences := strings.Count(contentLower, q); occurrences > 0 {
			score += math.Min(0.3, 0.1*math.Log(float64(occurrences)+1))
		}

		if declaresSymbol(contentLower, q) {
			score += 0.3
		}

		if importsName(contentLower, q) {
			score += 0.2
		}
	}

	return math.Min(1.0, score/float64(len(queries)))
}

// declaresSymbol checks for a language-agnostic definition of the name:
// function, class, method, type, or const declaration syntax.
func declaresSymbol(contentLower, name string) bool {
	prefixes := []string{
		"def " + name,
		"class " + name,
		"func " + name,
		"function " + name,
		"type " + name,
	}
	for _, p := range prefixes {
		if strings.Contains(contentLower, p) {
			return true
		}
	}
	// Go method: "func (r receiver) name("
	if idx := strings.Index(contentLower, ") "+name+"("); idx > 0 {
		if strings.LastIndex(contentLower[:idx], "func (") >= 0 {
			return true
		}
	}
	return false
}

func importsName(contentLower, name string) bool {
	patterns := []string{
		"import " + name,
		"import \"" + name,
		"from " + name + " import",
		"require('" + name,
		"require(\"" + name,
		"#include \"" + name,
		"#include <" + name,
	}
	for _, p := range patterns {
		if strings.Contains(contentLower, p) {
			return true
		}
	}
	return false
}

// Select scores the files, drops those at or below the threshold and those
// under skipped directories, and returns at most max files ordered by
// descending score with ascending path as the tiebreak so the ordering is
// deterministic.
func Select(files []File, queries []string, max int) []File {
	var candidates []File
	for _, f := range files {
		if SkippedDir(f.Path) {
			continue
		}
		score := Score(f.Content, f.Path, queries)
		if score <= Threshold {
			continue
		}
		f.Score = score
		candidates = append(candidates, f)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Path < candidates[j].Path
	})

	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}
