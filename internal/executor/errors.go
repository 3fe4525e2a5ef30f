package executor

import "fmt"

// QueryExecutionError means the text-analysis engine could not be reached or did not answer in time.
type QueryExecutionError struct {
	Err error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// ParseError means the engine answered but the answer did not have the expected shape.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse model response: %s: %v", e.Reason, e.Err)
	}
	return "parse model response: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }
