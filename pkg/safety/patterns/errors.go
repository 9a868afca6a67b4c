package patterns

import "fmt"

// PatternError is returned when a single pattern definition is invalid.
type PatternError struct {
	Category Category
	Name     string
	Err      error
}

func (e *PatternError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("pattern in category %q: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("pattern %s/%s: %v", e.Category, e.Name, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// NewPatternError creates a new pattern error.
func NewPatternError(category Category, name string, err error) *PatternError {
	return &PatternError{Category: category, Name: name, Err: err}
}

// LoadError is returned when a pattern pack cannot be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load pattern pack %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a new load error.
func NewLoadError(path string, err error) *LoadError {
	return &LoadError{Path: path, Err: err}
}
