// Package engineerr defines the typed error kinds the project data engine
// returns from commands. Callers (CLI, HTTP layer) classify errors by Kind
// rather than by matching on Go types directly.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind tags the category of failure a command can return.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindSchema         Kind = "schema"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindPermission     Kind = "permission_denied"
	KindInvariant      Kind = "invariant_violation"
	KindFilesystem     Kind = "filesystem_error"
	KindSolver         Kind = "solver_error"
)

// Error is the engine's single error type, tagged with a Kind so the CLI or
// HTTP layer can map it to an exit code / status code without inspecting
// the message.
type Error struct {
	Kind       Kind
	Op         string // operation that failed, e.g. "moveCard", "resource.rename"
	Target     string // card key or resource name the operation concerned
	Underlying error
}

func (e *Error) Error() string {
	if e.Target != "" {
		if e.Underlying != nil {
			return fmt.Sprintf("%s: %s %q: %v", e.Kind, e.Op, e.Target, e.Underlying)
		}
		return fmt.Sprintf("%s: %s %q", e.Kind, e.Op, e.Target)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Unwrap() error { return e.Underlying }

func new(kind Kind, op, target string, underlying error) *Error {
	return &Error{Kind: kind, Op: op, Target: target, Underlying: underlying}
}

func Validation(op, target string, underlying error) *Error {
	return new(KindValidation, op, target, underlying)
}

func Schema(op, target string, underlying error) *Error {
	return new(KindSchema, op, target, underlying)
}

func NotFound(op, target string) *Error {
	return new(KindNotFound, op, target, nil)
}

func Conflict(op, target string) *Error {
	return new(KindConflict, op, target, nil)
}

func PermissionDenied(op, target, reason string) *Error {
	return new(KindPermission, op, target, errors.New(reason))
}

func Invariant(op, target, reason string) *Error {
	return new(KindInvariant, op, target, errors.New(reason))
}

func Filesystem(op, target string, underlying error) *Error {
	return new(KindFilesystem, op, target, underlying)
}

func Solver(op string, underlying error) *Error {
	return new(KindSolver, op, "", underlying)
}

// Classify extracts the Kind of err, or "" if err is not (or does not wrap)
// an *Error.
func Classify(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return Classify(err) == kind
}

// ExitCode maps a Kind to the CLI exit codes of spec §6: 0 success, 1 user
// error, 2 internal error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Classify(err) {
	case KindValidation, KindSchema, KindNotFound, KindConflict, KindPermission:
		return 1
	default:
		return 2
	}
}
