/*
errors.go - Centralized error taxonomy for claim processing

PURPOSE:
  All error categories in one place. The taxonomy mirrors how failures
  propagate:

  1. Structural errors - the event fails shape validation and is rejected
     at the boundary; it never reaches an aggregate.
  2. Out-of-scope errors - the event is valid but the case cannot be
     automated; the employer's in-flight periods are escalated to legacy
     handling. Processing of other employers continues.
  3. Contradictions - two accepted inputs cannot both be true; the
     affected period is escalated.
  4. Schema-too-old - a persisted snapshot predates the current reader;
     replay is refused, never silently upgraded.

USAGE:
  Collaborators classify with errors.Is:

    if errors.Is(err, claim.ErrSchemaTooOld) { ... }

SEE ALSO:
  - person.go: converts out-of-scope errors into escalations
  - serde: wraps ErrSchemaTooOld with version context
*/
package claim

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStructural is returned when an event fails shape validation.
	// Such events are rejected before reaching any aggregate.
	ErrStructural = errors.New("event failed structural validation")

	// ErrOutOfScope is returned when a structurally valid case cannot be
	// automated and must go to legacy handling.
	ErrOutOfScope = errors.New("case is outside automated scope")

	// ErrContradiction is returned when two accepted inputs cannot both
	// be true.
	ErrContradiction = errors.New("accepted inputs contradict each other")

	// ErrSchemaTooOld is returned when a persisted snapshot's schema
	// version predates the current reader.
	ErrSchemaTooOld = errors.New("snapshot schema too old")

	// ErrUnknownPeriod is returned when an event references a claim
	// period this person does not have.
	ErrUnknownPeriod = errors.New("unknown claim period")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StructuralError describes why an event failed validation.
type StructuralError struct {
	Event  string
	Field  string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Event, e.Field, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// OutOfScopeError explains why a case left automated scope.
type OutOfScopeError struct {
	Reason string
}

func (e *OutOfScopeError) Error() string { return e.Reason }

func (e *OutOfScopeError) Unwrap() error { return ErrOutOfScope }

// ContradictionError identifies the two inputs that disagree.
type ContradictionError struct {
	Reason string
}

func (e *ContradictionError) Error() string { return e.Reason }

func (e *ContradictionError) Unwrap() error { return ErrContradiction }

// SchemaTooOldError carries the version mismatch for the operator.
type SchemaTooOldError struct {
	Found    int
	Required int
}

func (e *SchemaTooOldError) Error() string {
	return fmt.Sprintf("snapshot schema version %d predates required version %d", e.Found, e.Required)
}

func (e *SchemaTooOldError) Unwrap() error { return ErrSchemaTooOld }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsStructural(err error) bool    { return errors.Is(err, ErrStructural) }
func IsOutOfScope(err error) bool    { return errors.Is(err, ErrOutOfScope) }
func IsContradiction(err error) bool { return errors.Is(err, ErrContradiction) }
func IsSchemaTooOld(err error) bool  { return errors.Is(err, ErrSchemaTooOld) }
