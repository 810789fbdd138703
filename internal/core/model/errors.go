package model

import "fmt"

// ParseError reports a malformed query fragment. Parsing fails fast: no
// partial query graph is ever returned alongside one.
type ParseError struct {
	Fragment string
	Msg      string
}

func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("parse error: %s", e.Msg)
	}
	return fmt.Sprintf("parse error at %q: %s", e.Fragment, e.Msg)
}

// ValidationError reports a semantically invalid value caught before any
// query text is emitted.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// ExecutionError wraps a graph store failure verbatim. Execution is never
// retried; callers inspect the cause through Unwrap.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
