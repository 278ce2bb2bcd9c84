package analysis

import "fmt"

// DomainError reports a numeric input outside the valid domain of an
// analysis function, such as a zero holding cost or non-positive units.
type DomainError struct {
	Op     string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("analysis: %s: %s", e.Op, e.Reason)
}

// InsufficientDataError reports a sample smaller than the minimum an
// analysis function needs to produce a meaningful result.
type InsufficientDataError struct {
	Op       string
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("analysis: %s: needs at least %d data points, got %d", e.Op, e.Required, e.Got)
}

// ZeroVarianceError reports capability analysis attempted on constant data,
// where the process spread is zero and the indices are undefined.
type ZeroVarianceError struct {
	Op string
}

func (e *ZeroVarianceError) Error() string {
	return fmt.Sprintf("analysis: %s: zero variance in sample data", e.Op)
}
