// Package execution contains the execution plans and their compiler, the
// step-versioned table manager, and the semi-naive chase engine that
// drives rule evaluation to a fixpoint.
package execution

import "errors"

// Sentinel error kinds. Callers match them with errors.Is; the evaluation
// loop itself only surfaces reading errors and cancellation, everything
// else is fatal at compile or load time.
var (
	// ErrParse marks rule-program parse failures.
	ErrParse = errors.New("parse error")
	// ErrType marks predicate/column type mismatches and illegal
	// coercions detected at compile time.
	ErrType = errors.New("type error")
	// ErrReading marks failures of external inputs.
	ErrReading = errors.New("reading error")
	// ErrPlan marks unplannable rules (unbound head variables, cyclic
	// constructors, unsupported export formats).
	ErrPlan = errors.New("plan error")
	// ErrInternal marks invariant violations. Always fatal.
	ErrInternal = errors.New("internal error")
)
