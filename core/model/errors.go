package model

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can tell bad data from an
// over-constrained night or an exhausted time budget.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindInfeasible   Kind = "infeasible"
	KindTimeout      Kind = "timeout"
	KindPrecondition Kind = "precondition"
	KindEngine       Kind = "engine"
)

// ErrNoPlan is wrapped by every failure that leaves the run without a plan.
var ErrNoPlan = errors.New("no feasible plan")

// Error is a failure tagged with its kind and the operation that raised it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError tags err with a kind. A nil err yields nil.
func NewError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validationf builds a validation failure.
func Validationf(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// Infeasible reports that the constraints admit no assignment.
func Infeasible(op string) error {
	return &Error{Kind: KindInfeasible, Op: op, Err: fmt.Errorf("%w: constraints cannot be satisfied", ErrNoPlan)}
}

// Timeout reports that the time budget expired before any assignment was found.
func Timeout(op string) error {
	return &Error{Kind: KindTimeout, Op: op, Err: fmt.Errorf("%w: time budget exhausted", ErrNoPlan)}
}

// KindOf returns the kind of the first tagged error in the chain, or an
// empty kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }
