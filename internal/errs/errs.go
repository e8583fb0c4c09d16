// Package errs defines the error taxonomy shared by the graph, task, index and
// store packages.
//
// Every error produced by those packages is an *Error whose Kind is one of the
// sentinel values below, so callers branch with errors.Is:
//
//	if errors.Is(err, errs.ErrNotFound) { ... }
//
// None of the kinds are fatal. Callers decide whether to retry with corrected
// input, fall back to a backup, or exit.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrValidationFailed = errors.New("validation failed")
	ErrPolicyViolation  = errors.New("policy violation")
	ErrStorageFailure   = errors.New("storage failure")
)

// Violation is a single failed constraint, located by a dotted field path
// such as "success_criteria[2].text".
type Violation struct {
	Path string
	Msg  string
}

func (v Violation) String() string {
	if v.Path != "" {
		return fmt.Sprintf("%s: %s", v.Path, v.Msg)
	}
	return v.Msg
}

// Error is the concrete error type for every kind.
type Error struct {
	Kind       error       // one of the sentinel kinds
	Op         string      // operation that failed, e.g. "graph.insert"
	ID         string      // subject id, when there is one
	Violations []Violation // for validation and policy failures
	Err        error       // underlying cause
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.ID != "" {
		fmt.Fprintf(&b, "%q: ", e.ID)
	}
	b.WriteString(e.Kind.Error())
	if len(e.Violations) > 0 {
		parts := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			parts[i] = v.String()
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// NotFound reports an unknown node or edge.
func NotFound(op, id string) *Error {
	return &Error{Kind: ErrNotFound, Op: op, ID: id}
}

// AlreadyExists reports a duplicate id or edge.
func AlreadyExists(op, id string) *Error {
	return &Error{Kind: ErrAlreadyExists, Op: op, ID: id}
}

// Validation reports structural constraint failures.
func Validation(op, id string, violations ...Violation) *Error {
	return &Error{Kind: ErrValidationFailed, Op: op, ID: id, Violations: violations}
}

// Invalid is a convenience for a single validation failure.
func Invalid(op, id, path, format string, args ...any) *Error {
	return Validation(op, id, Violation{Path: path, Msg: fmt.Sprintf(format, args...)})
}

// Policy reports atomicity heuristic failures.
func Policy(op, id string, violations ...Violation) *Error {
	return &Error{Kind: ErrPolicyViolation, Op: op, ID: id, Violations: violations}
}

// Storage wraps an I/O or decoding failure.
func Storage(op string, err error) *Error {
	return &Error{Kind: ErrStorageFailure, Op: op, Err: err}
}

// KindOf returns the sentinel kind of err, or nil if err is not from this
// taxonomy.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// ViolationsOf returns the violations carried by err, if any.
func ViolationsOf(err error) []Violation {
	var e *Error
	if errors.As(err, &e) {
		return e.Violations
	}
	return nil
}
