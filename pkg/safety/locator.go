package safety

import (
	"strings"
)

// ContentFields are the request fields searched for plain text, in order.
var ContentFields = []string{"content", "prompt", "text", "message"}

// HierarchicalSections are the sections of a hierarchical prompt, in the
// order they are joined.
var HierarchicalSections = []string{"system", "process", "task", "output"}

const sectionSeparator = "\n\n"

// Located describes where checkable text was found in a request body.
type Located struct {
	// Text is the content to check.
	Text string

	// Field is the plain field the text came from. Empty for hierarchical prompts.
	Field string

	// Parent is the key of the object holding the sections, or empty when
	// the sections sit at the top level of the body.
	Parent string

	// Sections lists the hierarchical sections joined into Text.
	Sections []string
}

// Hierarchical reports whether the text was assembled from prompt sections.
func (l *Located) Hierarchical() bool {
	return len(l.Sections) > 0
}

// Locate finds the text to check in a decoded JSON body. Plain fields win
// over hierarchical sections. It returns false when the body holds no text.
func Locate(body map[string]any) (*Located, bool) {
	for _, f := range ContentFields {
		if s, ok := body[f].(string); ok && s != "" {
			return &Located{Text: s, Field: f}, true
		}
	}

	if loc, ok := locateSections(body, ""); ok {
		return loc, true
	}
	for _, f := range ContentFields {
		if nested, ok := body[f].(map[string]any); ok {
			if loc, ok := locateSections(nested, f); ok {
				return loc, true
			}
		}
	}
	return nil, false
}

func locateSections(obj map[string]any, parent string) (*Located, bool) {
	var parts, names []string
	for _, sec := range HierarchicalSections {
		if s, ok := obj[sec].(string); ok && s != "" {
			parts = append(parts, s)
			names = append(names, sec)
		}
	}
	if len(parts) == 0 {
		return nil, false
	}
	return &Located{
		Text:     strings.Join(parts, sectionSeparator),
		Parent:   parent,
		Sections: names,
	}, true
}

// Reinject writes sanitized text back into body where loc found it.
//
// For hierarchical prompts the sanitized text is split on blank lines and
// redistributed when the number of parts matches the original sections.
// Otherwise the sections are left alone and the text is stored under
// "sanitizedContent" next to them.
func Reinject(body map[string]any, loc *Located, sanitized string) {
	if loc == nil {
		return
	}
	if !loc.Hierarchical() {
		body[loc.Field] = sanitized
		return
	}

	target := body
	if loc.Parent != "" {
		nested, ok := body[loc.Parent].(map[string]any)
		if !ok {
			body["sanitizedContent"] = sanitized
			return
		}
		target = nested
	}

	// Sections may themselves contain blank lines, so count the parts each
	// one contributes.
	counts := make([]int, len(loc.Sections))
	total := 0
	for i, sec := range loc.Sections {
		s, _ := target[sec].(string)
		counts[i] = strings.Count(s, sectionSeparator) + 1
		total += counts[i]
	}

	parts := strings.Split(sanitized, sectionSeparator)
	if len(parts) != total {
		target["sanitizedContent"] = sanitized
		return
	}
	for i, sec := range loc.Sections {
		target[sec] = strings.Join(parts[:counts[i]], sectionSeparator)
		parts = parts[counts[i]:]
	}
}
