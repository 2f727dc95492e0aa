package workload

import (
	"errors"
	"fmt"
)

// ErrCapacityExceeded is matched by every CapacityError.
var ErrCapacityExceeded = errors.New("flow capacity exceeded")

// ParseError reports a malformed flow description. Line is 1-based; 0 means
// the error concerns the source as a whole.
type ParseError struct {
	Source string
	Line   int
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Field, e.Err)
	}
	return fmt.Sprintf("%s:%d: %s: %v", e.Source, e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CapacityError reports a description declaring more flows than a run accepts.
type CapacityError struct {
	Declared int
	Max      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%d flows declared, at most %d supported", e.Declared, e.Max)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }
