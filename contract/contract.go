// Package contract wraps public operations with explicit
// precondition, postcondition and system-invariant checks. The checks
// are plain Result-returning functions composed around each call, so
// the contract of an operation is visible at its call site.
package contract

import (
	"errors"

	"github.com/macroforge/macroforge/operr"
)

// Pre validates an operation's input before the call. It may return a
// taxonomy error directly (e.g. ValidationError, NotFound); any other
// error is reported as a PreconditionViolation.
type Pre[In any] func(In) error

// Post validates the operation's result against its input. Any error
// is reported as a PostconditionViolation: the operation produced a
// result that breaks its own contract, which is always a defect and
// never a user error.
type Post[In, Out any] func(In, Out) error

// Invariant checks whole-system consistency. It runs before and after
// every guarded call.
type Invariant func() error

// Run executes call guarded by the given checks, in order: invariant,
// precondition, call, postcondition, invariant. The first failure
// aborts and is returned as a tagged error; the call itself only runs
// once every entry check passed.
func Run[In, Out any](op string, inv Invariant, pre Pre[In], post Post[In, Out], in In, call func(In) (Out, error)) (Out, error) {
	var zero Out

	if inv != nil {
		if err := inv(); err != nil {
			return zero, operr.Wrap(operr.KindPrecondition,
				op+": system invariant violated before call",
				"this is an internal defect; report it with the operation name", err)
		}
	}

	if pre != nil {
		if err := pre(in); err != nil {
			return zero, asPrecondition(op, err)
		}
	}

	out, err := call(in)
	if err != nil {
		return zero, err
	}

	if post != nil {
		if err := post(in, out); err != nil {
			return zero, operr.Wrap(operr.KindPostcondition,
				op+": result violates the operation's contract",
				"this is an internal defect; report it with the operation name", err)
		}
	}

	if inv != nil {
		if err := inv(); err != nil {
			return zero, operr.Wrap(operr.KindPostcondition,
				op+": system invariant violated after call",
				"this is an internal defect; report it with the operation name", err)
		}
	}
	return out, nil
}

// asPrecondition preserves an already-tagged error and wraps anything
// else as a PreconditionViolation.
func asPrecondition(op string, err error) error {
	var tagged *operr.Error
	if errors.As(err, &tagged) {
		return err
	}
	return operr.Wrap(operr.KindPrecondition,
		op+": precondition failed",
		"this is an internal defect; report it with the operation name", err)
}
