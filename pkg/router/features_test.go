package router

import "testing"

func TestDetectFeaturesCodeMarkers(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantCode     bool
		wantLanguage string
	}{
		{
			name: "plain prose",
			text: "The checkout page times out after thirty seconds.",
		},
		{
			name:         "fenced block with info string",
			text:         "It crashes here:\n```python\ndef handle(req):\n    pass\n```",
			wantCode:     true,
			wantLanguage: "python",
		},
		{
			name:     "bare fence without language",
			text:     "```\nsome output\n```",
			wantCode: true,
		},
		{
			name:         "inline go snippets",
			text:         "import \"fmt\" then func main() { x := 1 } panics",
			wantCode:     true,
			wantLanguage: "go",
		},
		{
			name: "single marker is not enough",
			text: "please import the spreadsheet into the tracker",
		},
		{
			name:         "fenced sql",
			text:         "this query hangs:\n```sql\nSELECT id FROM users WHERE active\n```",
			wantCode:     true,
			wantLanguage: "sql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DetectFeatures(tt.text)
			if f.HasCodeMarkers != tt.wantCode {
				t.Fatalf("HasCodeMarkers = %v, want %v", f.HasCodeMarkers, tt.wantCode)
			}
			if f.CodeLanguage != tt.wantLanguage {
				t.Fatalf("CodeLanguage = %q, want %q", f.CodeLanguage, tt.wantLanguage)
			}
			if f.MessageLength != len(tt.text) {
				t.Fatalf("MessageLength = %d, want %d", f.MessageLength, len(tt.text))
			}
		})
	}
}

func TestDetectFeaturesLeavesCallerFieldsZero(t *testing.T) {
	f := DetectFeatures("hello")
	if f.ConversationDepth != 0 || f.CostPriority != "" {
		t.Fatalf("caller-supplied fields must stay zero: %+v", f)
	}
}
