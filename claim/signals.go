/*
signals.go - Explicit processing results

PURPOSE:
  Applying an event returns an Outcome instead of notifying observers or
  throwing. The Outcome says what happened to the event (applied,
  escalated, rejected) and carries the signals collaborators act on: data
  the engine still needs, state transitions for projections, and
  readiness for payment.

  The audit trail rides along the same way. Audit timestamps come from
  the triggering event's production time, never from a clock, so replay
  reproduces the trail byte for byte.

SEE ALSO:
  - person.go: builds the Outcome around routing
  - mediator: turns signals into outbound messages
*/
package claim

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// OUTCOME
// =============================================================================

// Status classifies what applying an event did.
type Status string

const (
	// StatusApplied means the event changed (or legitimately confirmed)
	// engine state.
	StatusApplied Status = "applied"

	// StatusEscalated means the event was understood but the affected
	// case left automated scope.
	StatusEscalated Status = "escalated"

	// StatusRejected means the event was refused at the boundary and
	// changed nothing.
	StatusRejected Status = "rejected"
)

// Outcome is the complete result of applying one event.
type Outcome struct {
	Status  Status
	Err     error
	Signals []Signal
	Audit   []AuditEntry
}

// =============================================================================
// SIGNALS
// =============================================================================

// Signal is an instruction to the outside world produced by event
// application.
type Signal interface{ isSignal() }

// DataKind names a piece of data the engine is waiting for.
type DataKind string

const (
	DataClaimApplication DataKind = "claim_application"
	DataEmployerNotice   DataKind = "employer_notice"
	DataEligibility      DataKind = "eligibility"
	DataBenefitHistory   DataKind = "benefit_history"
	DataSimulation       DataKind = "payment_simulation"
	DataManualApproval   DataKind = "manual_approval"
)

// NeedsData asks collaborators to fetch or await a piece of data for a
// claim period.
type NeedsData struct {
	PeriodID uuid.UUID
	Kind     DataKind
}

// StateChanged reports a claim period transition, for projections and
// reminder scheduling.
type StateChanged struct {
	PeriodID uuid.UUID
	Previous State
	Current  State
}

// ReadyForPayment asks the payment collaborator to issue the order.
type ReadyForPayment struct {
	PeriodID uuid.UUID
}

func (NeedsData) isSignal()       {}
func (StateChanged) isSignal()    {}
func (ReadyForPayment) isSignal() {}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

// AuditLevel grades an audit entry.
type AuditLevel string

const (
	AuditInfo    AuditLevel = "info"
	AuditWarning AuditLevel = "warning"
	AuditError   AuditLevel = "error"
)

// AuditEntry is one line of the processing trail.
type AuditEntry struct {
	At      time.Time
	Level   AuditLevel
	Message string
	EventID string
}

// =============================================================================
// EFFECTS COLLECTOR - Internal accumulation during routing
// =============================================================================

// effects gathers signals and audit entries while an event works its way
// through the aggregates. The triggering event's meta stamps every entry.
type effects struct {
	meta      EventMeta
	signals   []Signal
	audit     []AuditEntry
	escalated bool
	failure   error
}

func newEffects(meta EventMeta) *effects {
	return &effects{meta: meta}
}

func (fx *effects) signal(s Signal) {
	fx.signals = append(fx.signals, s)
}

func (fx *effects) info(msg string)    { fx.log(AuditInfo, msg) }
func (fx *effects) warning(msg string) { fx.log(AuditWarning, msg) }
func (fx *effects) error(msg string)   { fx.log(AuditError, msg) }

func (fx *effects) log(level AuditLevel, msg string) {
	fx.audit = append(fx.audit, AuditEntry{
		At:      fx.meta.At,
		Level:   level,
		Message: msg,
		EventID: fx.meta.ID,
	})
}

// markEscalated records that some period left automated scope while the
// event was being applied. The first cause wins.
func (fx *effects) markEscalated(cause error) {
	if !fx.escalated {
		fx.escalated = true
		fx.failure = cause
	}
}

func (fx *effects) outcome(status Status, err error) Outcome {
	return Outcome{Status: status, Err: err, Signals: fx.signals, Audit: fx.audit}
}
