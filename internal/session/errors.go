package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for session operations.
var (
	// ErrEmptyQuery indicates the input was empty or whitespace-only.
	// The controller stays Idle; callers should simply re-prompt.
	ErrEmptyQuery = errors.New("empty query")

	// ErrBusy indicates a query arrived while another was in flight.
	// The controller processes one query at a time.
	ErrBusy = errors.New("session busy")

	// ErrGeneration indicates the chat completion failed. The query cycle
	// aborts and no conversation turn is recorded.
	ErrGeneration = errors.New("generation failed")
)

// ValidationError reports one rejected parameter adjustment. The other
// parameter in the same call, if valid, is still applied.
type ValidationError struct {
	Param string
	Value float64
	Min   float64
	Max   float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %g out of range [%g, %g]", e.Param, e.Value, e.Min, e.Max)
}
