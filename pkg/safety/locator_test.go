package safety

import (
	"testing"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name         string
		body         map[string]any
		wantOK       bool
		wantText     string
		wantField    string
		wantParent   string
		wantSections int
	}{
		{
			name:      "content field",
			body:      map[string]any{"content": "hello", "prompt": "ignored"},
			wantOK:    true,
			wantText:  "hello",
			wantField: "content",
		},
		{
			name:      "message field",
			body:      map[string]any{"message": "hi there", "model": "x"},
			wantOK:    true,
			wantText:  "hi there",
			wantField: "message",
		},
		{
			name:         "top-level sections",
			body:         map[string]any{"task": "do it", "system": "be nice", "output": "json"},
			wantOK:       true,
			wantText:     "be nice\n\ndo it\n\njson",
			wantSections: 3,
		},
		{
			name: "nested sections",
			body: map[string]any{"prompt": map[string]any{
				"system": "sys", "process": "proc", "task": "task", "output": "out",
			}},
			wantOK:       true,
			wantText:     "sys\n\nproc\n\ntask\n\nout",
			wantParent:   "prompt",
			wantSections: 4,
		},
		{
			name:   "nothing to check",
			body:   map[string]any{"content": "", "count": 3},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok := Locate(tt.body)
			if ok != tt.wantOK {
				t.Fatalf("Locate() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if loc.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", loc.Text, tt.wantText)
			}
			if loc.Field != tt.wantField || loc.Parent != tt.wantParent {
				t.Errorf("Field/Parent = %q/%q, want %q/%q", loc.Field, loc.Parent, tt.wantField, tt.wantParent)
			}
			if len(loc.Sections) != tt.wantSections {
				t.Errorf("Sections = %v, want %d", loc.Sections, tt.wantSections)
			}
		})
	}
}

func TestReinjectPlainField(t *testing.T) {
	body := map[string]any{"prompt": "mail john@example.com"}
	loc, _ := Locate(body)
	Reinject(body, loc, "mail [EMAIL_REDACTED]")
	if body["prompt"] != "mail [EMAIL_REDACTED]" {
		t.Errorf("prompt = %v", body["prompt"])
	}
}

func TestReinjectSections(t *testing.T) {
	body := map[string]any{
		"system": "You help.\n\nBe brief.",
		"task":   "Email john@example.com",
	}
	loc, _ := Locate(body)
	Reinject(body, loc, "You help.\n\nBe brief.\n\nEmail [EMAIL_REDACTED]")

	if body["system"] != "You help.\n\nBe brief." {
		t.Errorf("system = %q", body["system"])
	}
	if body["task"] != "Email [EMAIL_REDACTED]" {
		t.Errorf("task = %q", body["task"])
	}
	if _, ok := body["sanitizedContent"]; ok {
		t.Error("sanitizedContent should not be set when parts line up")
	}
}

func TestReinjectSectionsMismatch(t *testing.T) {
	body := map[string]any{"prompt": map[string]any{"system": "a", "task": "b"}}
	loc, _ := Locate(body)
	Reinject(body, loc, "a b merged")

	nested := body["prompt"].(map[string]any)
	if nested["system"] != "a" || nested["task"] != "b" {
		t.Errorf("sections changed on mismatch: %v", nested)
	}
	if nested["sanitizedContent"] != "a b merged" {
		t.Errorf("sanitizedContent = %v", nested["sanitizedContent"])
	}
}
