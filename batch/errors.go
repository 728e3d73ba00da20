package batch

import "fmt"

// NotFoundError reports a missing input or template file. It is fatal
// and aborts the run before any processing.
type NotFoundError struct {
	Kind string // "input table" or "template"
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Path)
}

// EmptyInputError reports an input table with no records, or one where
// no record carries all required parameters. Fatal, raised before the
// output table is built.
type EmptyInputError struct {
	Reason string
}

func (e *EmptyInputError) Error() string { return e.Reason }

// CaseError wraps a failure while driving the engine for one record.
// The runner recovers it: the case is skipped and the batch continues.
type CaseError struct {
	Index int
	Err   error
}

func (e *CaseError) Error() string {
	return fmt.Sprintf("case %d: %v", e.Index, e.Err)
}

func (e *CaseError) Unwrap() error { return e.Err }
