package safety

import "fmt"

// DetectorError records a detector that panicked during a check. The
// check continues without that detector's findings.
type DetectorError struct {
	Category Category
	Value    any
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("%s detector failed: %v", e.Category, e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *DetectorError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
