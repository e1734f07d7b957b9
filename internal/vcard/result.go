package vcard

import (
	"fmt"
	"runtime/debug"
)

// InvalidItem is an input line that failed to parse.
type InvalidItem struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// Outcome classifies a finished run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// GenerateResult is the terminal outcome of one generation run. It is only
// handed out once the run has finished and must be treated as read-only.
type GenerateResult struct {
	// InvalidItems is ordered by ascending line number.
	InvalidItems []InvalidItem
	// Exceptions holds unexpected errors. A non-empty list means the run
	// stopped early and the output may be incomplete.
	Exceptions []error

	TotalLines int // lines in the input, blank ones included
	Processed  int // lines handled before the run finished or stopped
	Written    int // vCard entries written to the sink
	Skipped    int // blank lines
}

// Outcome reports failure if any exception was captured, partial success if
// some lines were invalid, and success otherwise.
func (r GenerateResult) Outcome() Outcome {
	switch {
	case len(r.Exceptions) > 0:
		return OutcomeFailure
	case len(r.InvalidItems) > 0:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

// PanicError is a panic recovered inside the generator.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Format prints the stack trace for %+v.
func (e *PanicError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s\n\n%s", e.Error(), e.Stack)
		return
	}
	fmt.Fprint(s, e.Error())
}

// LineError is an unexpected error tied to the input line being processed.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Format keeps the wrapped error's detail (e.g. a panic stack) for %+v.
func (e *LineError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "line %d: %+v", e.Line, e.Err)
		return
	}
	fmt.Fprint(s, e.Error())
}
