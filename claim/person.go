/*
person.go - The per-person aggregate root

PURPOSE:
  Person is the engine's entry point: one aggregate per insured person,
  holding one EmployerContext per employment relationship. Apply() takes
  any event and returns an Outcome; it never panics, never throws, and
  never touches a clock.

PROCESSING ORDER:
  1. Structural validation: a malformed event is rejected before it can
     touch state.
  2. Scope checks: graded sickness, unsupported period types, late
     applications, and absences running concurrently with another
     employer's case are not automated. The affected employer's open
     periods escalate; other employers keep processing.
  3. Routing: the employer context places the event.

SEE ALSO:
  - employer.go: routing inside one employment relationship
  - serde: snapshots a Person through the memento in memento.go
*/
package claim

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/benefit-engine/timeline"
)

// Person is the aggregate root for one insured person.
type Person struct {
	employeeID string
	employers  map[string]*EmployerContext
	order      []string
}

// NewPerson creates an empty aggregate for an insured person.
func NewPerson(employeeID string) *Person {
	return &Person{
		employeeID: employeeID,
		employers:  map[string]*EmployerContext{},
	}
}

func (p *Person) EmployeeID() string { return p.employeeID }

// Employers returns the employment relationships in the order they were
// first seen. The order is part of the replayed state and must stay
// deterministic.
func (p *Person) Employers() []*EmployerContext {
	out := make([]*EmployerContext, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.employers[id])
	}
	return out
}

// FindPeriod locates a claim period by id across all employers.
func (p *Person) FindPeriod(id uuid.UUID) (*ClaimPeriod, bool) {
	for _, ec := range p.Employers() {
		if period, ok := ec.PeriodByID(id); ok {
			return period, true
		}
	}
	return nil, false
}

// =============================================================================
// APPLY - The single entry point
// =============================================================================

// Apply validates, scope-checks, and routes one event. The returned
// Outcome carries everything collaborators need; the error inside it is
// classifiable with the helpers in errors.go.
func (p *Person) Apply(ev Event) Outcome {
	fx := newEffects(ev.Meta())

	if err := ev.Validate(); err != nil {
		fx.error(err.Error())
		return fx.outcome(StatusRejected, err)
	}
	if ev.Meta().EmployeeID != p.employeeID {
		err := &StructuralError{Event: "event", Field: "employee_id", Reason: "does not match this person"}
		fx.error(err.Error())
		return fx.outcome(StatusRejected, err)
	}

	switch e := ev.(type) {
	case MedicalCertificate:
		return p.applyCertificate(e, fx)
	case ClaimApplication:
		return p.applyApplication(e, fx)
	case EmployerNotice:
		return p.applyNotice(e, fx)
	case EligibilityData:
		return p.applyFollowUp(e.EmployerID, e.PeriodID, func(cp *ClaimPeriod, fx *effects) { cp.applyEligibility(e, fx) }, fx)
	case BenefitHistory:
		return p.applyFollowUp(e.EmployerID, e.PeriodID, func(cp *ClaimPeriod, fx *effects) { cp.applyBenefitHistory(e, fx) }, fx)
	case SimulationResult:
		return p.applyFollowUp(e.EmployerID, e.PeriodID, func(cp *ClaimPeriod, fx *effects) { cp.applySimulation(e, fx) }, fx)
	case ManualDecision:
		return p.applyFollowUp(e.EmployerID, e.PeriodID, func(cp *ClaimPeriod, fx *effects) { cp.applyManualDecision(e, fx) }, fx)
	case PaymentReceipt:
		return p.applyFollowUp(e.EmployerID, e.PeriodID, func(cp *ClaimPeriod, fx *effects) { cp.applyPaymentReceipt(e, fx) }, fx)
	case Reminder:
		return p.applyFollowUp(e.EmployerID, e.PeriodID, func(cp *ClaimPeriod, fx *effects) { cp.applyReminder(e, fx) }, fx)
	default:
		err := &StructuralError{Event: fmt.Sprintf("%T", ev), Field: "", Reason: "unknown event type"}
		fx.error(err.Error())
		return fx.outcome(StatusRejected, err)
	}
}

// =============================================================================
// DOCUMENT EVENTS
// =============================================================================

func (p *Person) applyCertificate(e MedicalCertificate, fx *effects) Outcome {
	if err := e.scopeCheck(); err != nil {
		return p.escalateEmployer(e.EmployerID, err, fx)
	}
	if err := p.concurrentEmployerCheck(e.EmployerID, e.Timeline()); err != nil {
		return p.escalateEmployer(e.EmployerID, err, fx)
	}

	ec := p.employer(e.EmployerID)
	if err := ec.handleCertificate(e, fx); err != nil {
		return fx.outcome(StatusEscalated, err)
	}
	return p.settle(fx)
}

func (p *Person) applyApplication(e ClaimApplication, fx *effects) Outcome {
	if err := e.scopeCheck(); err != nil {
		return p.escalateEmployer(e.EmployerID, err, fx)
	}

	ec, ok := p.employers[e.EmployerID]
	if !ok {
		fx.warning("application for an unknown employment relationship")
		return fx.outcome(StatusRejected, ErrUnknownPeriod)
	}
	if err := ec.handleApplication(e, fx); err != nil {
		return fx.outcome(StatusRejected, err)
	}
	return p.settle(fx)
}

func (p *Person) applyNotice(e EmployerNotice, fx *effects) Outcome {
	ec, ok := p.employers[e.EmployerID]
	if !ok {
		fx.warning("employer notice for an unknown employment relationship")
		return fx.outcome(StatusRejected, ErrUnknownPeriod)
	}
	if err := ec.handleNotice(e, fx); err != nil {
		return fx.outcome(StatusRejected, err)
	}
	return p.settle(fx)
}

// =============================================================================
// FOLLOW-UP EVENTS
// =============================================================================

func (p *Person) applyFollowUp(employerID string, periodID uuid.UUID, apply func(*ClaimPeriod, *effects), fx *effects) Outcome {
	ec, ok := p.employers[employerID]
	if !ok {
		fx.warning("follow-up for an unknown employment relationship")
		return fx.outcome(StatusRejected, ErrUnknownPeriod)
	}
	if err := ec.handleFollowUp(periodID, apply, fx); err != nil {
		fx.warning(fmt.Sprintf("follow-up references unknown claim period %s", periodID))
		return fx.outcome(StatusRejected, err)
	}
	return p.settle(fx)
}

// =============================================================================
// SCOPE / HELPERS
// =============================================================================

// concurrentEmployerCheck refuses absences that run at the same time as
// another employer's case. Sequential employments stay independent.
func (p *Person) concurrentEmployerCheck(employerID string, declared timeline.Timeline) error {
	for _, ec := range p.Employers() {
		if ec.employerID == employerID {
			continue
		}
		for _, other := range ec.periods {
			if declared.Distance(other.Timeline()) < 0 {
				return &OutOfScopeError{Reason: "concurrent sickness with more than one employer is not automated"}
			}
		}
	}
	return nil
}

// escalateEmployer hands the named employer's open periods to legacy
// handling after an out-of-scope event. Other employers are untouched.
func (p *Person) escalateEmployer(employerID string, cause error, fx *effects) Outcome {
	fx.error(cause.Error())
	if ec, ok := p.employers[employerID]; ok {
		ec.escalateAll(cause, fx)
	}
	return fx.outcome(StatusEscalated, cause)
}

func (p *Person) employer(id string) *EmployerContext {
	if ec, ok := p.employers[id]; ok {
		return ec
	}
	ec := newEmployerContext(id)
	p.employers[id] = ec
	p.order = append(p.order, id)
	return ec
}

// settle converts the collected effects into the final Outcome.
func (p *Person) settle(fx *effects) Outcome {
	if fx.escalated {
		return fx.outcome(StatusEscalated, fx.failure)
	}
	return fx.outcome(StatusApplied, nil)
}
