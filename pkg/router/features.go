package router

import "strings"

// Features is the bag of request properties rules evaluate against. Missing
// fields (zero values) simply cause dependent rules to not match.
type Features struct {
	// MessageLength is the request text length in characters.
	MessageLength int
	// HasCodeMarkers reports whether code was detected in the content.
	HasCodeMarkers bool
	// CodeLanguage is the detected content language, when code is present.
	CodeLanguage string
	// ConversationDepth is the number of messages in the thread so far.
	ConversationDepth int
	// CostPriority is an explicit caller hint such as "low_cost".
	CostPriority string
}

// DetectFeatures derives content features from raw text. Task type and
// conversation depth are caller-supplied and left zero here.
func DetectFeatures(text string) Features {
	f := Features{MessageLength: len(text)}
	f.HasCodeMarkers = hasCodeMarkers(text)
	if f.HasCodeMarkers {
		f.CodeLanguage = detectLanguage(text)
	}
	return f
}

func hasCodeMarkers(text string) bool {
	if strings.Contains(text, "```") {
		return true
	}
	markers := []string{"def ", "func ", "class ", "import ", "#include", "SELECT ", "console.log", "=> {", "};"}
	hits := 0
	for _, m := range markers {
		if strings.Contains(text, m) {
			hits++
		}
	}
	return hits >= 2
}

var languageHints = []struct {
	language string
	hints    []string
}{
	{"python", []string{"def ", "self.", "import numpy", "__init__", ".py"}},
	{"go", []string{"func ", ":= ", "package main", ".go"}},
	{"javascript", []string{"console.log", "const ", "=> {", ".js", ".ts"}},
	{"rust", []string{"fn ", "let mut", "::<", ".rs"}},
	{"sql", []string{"SELECT ", "INSERT INTO", "FROM ", "WHERE "}},
}

func detectLanguage(text string) string {
	if fence := fencedLanguage(text); fence != "" {
		return fence
	}

	best := ""
	bestHits := 1 // require at least two hints to claim a language
	for _, entry := range languageHints {
		hits := 0
		for _, h := range entry.hints {
			if strings.Contains(text, h) {
				hits++
			}
		}
		if hits > bestHits {
			best = entry.language
			bestHits = hits
		}
	}
	return best
}

// fencedLanguage reads the info string of the first ``` fence, if any.
func fencedLanguage(text string) string {
	idx := strings.Index(text, "```")
	if idx == -1 {
		return ""
	}
	rest := text[idx+3:]
	end := strings.IndexAny(rest, "\n \t`")
	if end <= 0 {
		return ""
	}
	lang := strings.ToLower(rest[:end])
	switch lang {
	case "py", "python":
		return "python"
	case "js", "javascript", "ts", "typescript":
		return "javascript"
	case "go", "golang":
		return "go"
	case "rs", "rust":
		return "rust"
	case "sql":
		return "sql"
	}
	return ""
}
