package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Entry is a compiled, named detection pattern.
type Entry struct {
	// Name identifies the pattern within its category.
	Name string

	// Category is the family the pattern belongs to.
	Category Category

	// Pattern is the compiled expression. Regexps are safe for concurrent use.
	Pattern *regexp.Regexp

	// Severity is assigned to every issue produced by this pattern.
	Severity Severity

	// Label is the human-readable subcategory (e.g. "harassment").
	Label string

	// PIIType is set for pii entries (e.g. "email").
	PIIType string

	// Redaction is the replacement token for pii entries.
	Redaction string

	// Description explains what a match means.
	Description string
}

// ID returns the qualified "category/name" identifier.
func (e Entry) ID() string {
	return string(e.Category) + "/" + e.Name
}

// Spec is an uncompiled pattern definition, as found in a pattern pack.
type Spec struct {
	Category      Category `yaml:"category" json:"category"`
	Name          string   `yaml:"name" json:"name"`
	Pattern       string   `yaml:"pattern" json:"pattern"`
	Severity      Severity `yaml:"severity,omitempty" json:"severity,omitempty"`
	Label         string   `yaml:"label,omitempty" json:"label,omitempty"`
	PIIType       string   `yaml:"pii_type,omitempty" json:"piiType,omitempty"`
	Redaction     string   `yaml:"redaction,omitempty" json:"redaction,omitempty"`
	Description   string   `yaml:"description,omitempty" json:"description,omitempty"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty" json:"caseSensitive,omitempty"`
}

// Compile validates s and compiles it into an Entry.
func (s Spec) Compile() (Entry, error) {
	if !s.Category.Valid() {
		return Entry{}, NewPatternError(s.Category, s.Name, fmt.Errorf("unknown category"))
	}
	if strings.TrimSpace(s.Name) == "" {
		return Entry{}, NewPatternError(s.Category, s.Name, errors.New("name is required"))
	}
	if s.Pattern == "" {
		return Entry{}, NewPatternError(s.Category, s.Name, errors.New("pattern is required"))
	}

	sev := s.Severity
	if sev == 0 && s.Category == CategoryDrift {
		sev = SeverityInfo
	}
	if !sev.Valid() {
		return Entry{}, NewPatternError(s.Category, s.Name, errors.New("severity is required"))
	}

	expr := s.Pattern
	if !s.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Entry{}, NewPatternError(s.Category, s.Name, err)
	}
	if re.MatchString("") {
		return Entry{}, NewPatternError(s.Category, s.Name, errors.New("pattern matches the empty string"))
	}

	e := Entry{
		Name:        s.Name,
		Category:    s.Category,
		Pattern:     re,
		Severity:    sev,
		Label:       s.Label,
		PIIType:     s.PIIType,
		Redaction:   s.Redaction,
		Description: s.Description,
	}
	if e.Label == "" {
		e.Label = s.Name
	}
	if s.Category == CategoryPII {
		if e.PIIType == "" {
			e.PIIType = s.Name
		}
		if e.Redaction == "" {
			e.Redaction = "[" + strings.ToUpper(e.PIIType) + "_REDACTED]"
		}
	}
	return e, nil
}

// Registry is an immutable set of compiled patterns grouped by category.
type Registry struct {
	entries  map[Category][]Entry
	sources  []string
	loadedAt time.Time
}

// Entries returns the patterns of a category in definition order.
// The returned slice is a copy.
func (r *Registry) Entries(c Category) []Entry {
	if r == nil {
		return nil
	}
	return append([]Entry(nil), r.entries[c]...)
}

// Lookup finds an entry by category and name.
func (r *Registry) Lookup(c Category, name string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	for _, e := range r.entries[c] {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the total number of entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, es := range r.entries {
		n += len(es)
	}
	return n
}

// Counts returns the number of entries per category.
func (r *Registry) Counts() map[Category]int {
	counts := make(map[Category]int, len(AllCategories))
	if r == nil {
		return counts
	}
	for c, es := range r.entries {
		counts[c] = len(es)
	}
	return counts
}

// Sources lists where the registry's patterns came from ("builtin" or file paths).
func (r *Registry) Sources() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.sources...)
}

// LoadedAt returns when the registry was built.
func (r *Registry) LoadedAt() time.Time {
	if r == nil {
		return time.Time{}
	}
	return r.loadedAt
}

// Builder accumulates entries and produces a Registry.
// A Builder is not safe for concurrent use.
type Builder struct {
	entries map[Category][]Entry
	index   map[string]int
	sources []string
	errs    []error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		entries: make(map[Category][]Entry),
		index:   make(map[string]int),
	}
}

// Add compiles and appends a spec. A spec with the same category and name
// as an existing entry replaces it in place.
func (b *Builder) Add(s Spec) error {
	e, err := s.Compile()
	if err != nil {
		b.errs = append(b.errs, err)
		return err
	}
	b.put(e)
	return nil
}

// AddEntry appends an already compiled entry.
func (b *Builder) AddEntry(e Entry) {
	b.put(e)
}

func (b *Builder) put(e Entry) {
	id := e.ID()
	if i, ok := b.index[id]; ok {
		b.entries[e.Category][i] = e
		return
	}
	b.index[id] = len(b.entries[e.Category])
	b.entries[e.Category] = append(b.entries[e.Category], e)
}

// AddBuiltins adds every built-in pattern.
func (b *Builder) AddBuiltins() {
	for _, e := range builtinEntries() {
		b.put(e)
	}
	b.addSource("builtin")
}

// Disable removes entries by "category/name" identifier.
// Unknown identifiers are reported as errors.
func (b *Builder) Disable(ids ...string) error {
	var errs []error
	for _, id := range ids {
		pos, ok := b.index[id]
		if !ok {
			errs = append(errs, fmt.Errorf("cannot disable unknown pattern %q", id))
			continue
		}
		cat, _, _ := strings.Cut(id, "/")
		c := Category(cat)
		es := b.entries[c]
		b.entries[c] = append(es[:pos:pos], es[pos+1:]...)
		b.reindex(c)
	}
	err := errors.Join(errs...)
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return err
}

func (b *Builder) reindex(c Category) {
	for id := range b.index {
		if strings.HasPrefix(id, string(c)+"/") {
			delete(b.index, id)
		}
	}
	for i, e := range b.entries[c] {
		b.index[e.ID()] = i
	}
}

func (b *Builder) addSource(src string) {
	for _, s := range b.sources {
		if s == src {
			return
		}
	}
	b.sources = append(b.sources, src)
}

// Err returns every error collected by Add and Disable.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// Build returns the registry. It fails if any Add or Disable call failed.
func (b *Builder) Build() (*Registry, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	entries := make(map[Category][]Entry, len(b.entries))
	for c, es := range b.entries {
		entries[c] = append([]Entry(nil), es...)
	}
	return &Registry{
		entries:  entries,
		sources:  append([]string(nil), b.sources...),
		loadedAt: time.Now(),
	}, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	b := NewBuilder()
	b.AddBuiltins()
	reg, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("patterns: invalid builtin table: %v", err))
	}
	return reg
})

// Default returns the registry of built-in patterns.
func Default() *Registry {
	return defaultRegistry()
}

// Summary describes one entry without its compiled expression.
type Summary struct {
	ID          string   `json:"id" yaml:"id"`
	Category    Category `json:"category" yaml:"category"`
	Name        string   `json:"name" yaml:"name"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Expression  string   `json:"expression" yaml:"expression"`
}

// Summaries lists every entry, ordered by category then definition order.
func (r *Registry) Summaries() []Summary {
	if r == nil {
		return nil
	}
	var out []Summary
	for _, c := range AllCategories {
		for _, e := range r.entries[c] {
			out = append(out, Summary{
				ID:          e.ID(),
				Category:    c,
				Name:        e.Name,
				Severity:    e.Severity,
				Label:       e.Label,
				Description: e.Description,
				Expression:  e.Pattern.String(),
			})
		}
	}
	return out
}
