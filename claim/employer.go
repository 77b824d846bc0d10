/*
employer.go - Per-employer routing and ordering

PURPOSE:
  An EmployerContext owns every claim period the engine tracks for one
  employment relationship, in chronological order. It decides where an
  inbound document lands:

  - a certificate overlapping an open period refines that period
  - a certificate overlapping a finished period escalates the employer's
    open periods; the engine will not rewrite settled history
  - a certificate adjacent to the latest period (distance zero, or a gap
    bridged entirely by a weekend) opens an extension
  - anything else opens a new period after a gap

  It also runs the closure cascade: when a period reaches a terminal
  state, every later period held behind it gets another chance to move.

SEE ALSO:
  - period.go: the per-period state machine
  - person.go: the per-person entry point above this
*/
package claim

import (
	"sort"

	"github.com/google/uuid"
	"github.com/warp/benefit-engine/timeline"
)

// EmployerContext holds the claim periods for one employer.
type EmployerContext struct {
	employerID string
	periods    []*ClaimPeriod
}

func newEmployerContext(employerID string) *EmployerContext {
	return &EmployerContext{employerID: employerID}
}

func (ec *EmployerContext) EmployerID() string { return ec.employerID }

// Periods returns the claim periods in chronological order.
func (ec *EmployerContext) Periods() []*ClaimPeriod {
	out := make([]*ClaimPeriod, len(ec.periods))
	copy(out, ec.periods)
	return out
}

// PeriodByID finds a claim period by id.
func (ec *EmployerContext) PeriodByID(id uuid.UUID) (*ClaimPeriod, bool) {
	for _, p := range ec.periods {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}

// =============================================================================
// DOCUMENT ROUTING
// =============================================================================

func (ec *EmployerContext) handleCertificate(e MedicalCertificate, fx *effects) error {
	declared := e.Timeline()

	for _, p := range ec.periods {
		if declared.Distance(p.Timeline()) >= 0 {
			continue
		}
		if p.state.Terminal() {
			cause := &OutOfScopeError{Reason: "certificate overlaps a finished period"}
			ec.escalateAll(cause, fx)
			return cause
		}
		p.applyCertificate(e, declared, fx)
		ec.cascade(fx)
		return nil
	}

	extension := false
	var groupID uuid.UUID
	var firstAbsence timeline.Date
	if pred := ec.predecessorOf(declared); pred != nil {
		d := pred.Timeline().Distance(declared)
		if d == 0 || pred.Timeline().GapIsAllWeekend(declared) {
			extension = true
			groupID = pred.groupID
			firstAbsence = pred.FirstAbsence()
		}
	}

	unsettled := !ec.allEarlierTerminal(declared.First())
	p := newClaimPeriod(e, declared, extension, unsettled, groupID, firstAbsence, fx)
	ec.insert(p)
	ec.cascade(fx)
	return nil
}

func (ec *EmployerContext) handleApplication(e ClaimApplication, fx *effects) error {
	declared := e.Timeline()
	target := ec.overlappingPeriod(declared)
	if target == nil {
		fx.warning("no claim period matches the application")
		return ErrUnknownPeriod
	}
	settled := ec.allEarlierTerminal(target.Timeline().First())
	target.applyApplication(e, settled, fx)
	ec.cascade(fx)
	return nil
}

func (ec *EmployerContext) handleNotice(e EmployerNotice, fx *effects) error {
	target := ec.noticeTarget(e)
	if target == nil {
		fx.warning("no claim period matches the employer notice")
		return ErrUnknownPeriod
	}
	settled := ec.allEarlierTerminal(target.Timeline().First())
	target.applyNotice(e, settled, fx)
	ec.cascade(fx)
	return nil
}

// noticeTarget picks the period a notice belongs to: the one whose
// timeline overlaps the notice's declared absence, or contains the
// reported first absence day.
func (ec *EmployerContext) noticeTarget(e EmployerNotice) *ClaimPeriod {
	declared := e.Timeline()
	for _, p := range ec.periods {
		if p.Timeline().Distance(declared) < 0 || p.Timeline().Range().Contains(e.FirstAbsenceDay) {
			return p
		}
	}
	return nil
}

// =============================================================================
// FOLLOW-UP ROUTING
// =============================================================================

func (ec *EmployerContext) handleFollowUp(periodID uuid.UUID, apply func(*ClaimPeriod, *effects), fx *effects) error {
	p, ok := ec.PeriodByID(periodID)
	if !ok {
		return ErrUnknownPeriod
	}
	apply(p, fx)
	ec.cascade(fx)
	return nil
}

// =============================================================================
// ORDERING / CASCADE
// =============================================================================

func (ec *EmployerContext) insert(p *ClaimPeriod) {
	ec.periods = append(ec.periods, p)
	sort.SliceStable(ec.periods, func(i, j int) bool {
		return ec.periods[i].Timeline().First().Before(ec.periods[j].Timeline().First())
	})
}

// overlappingPeriod finds the first period whose timeline overlaps the
// declared one.
func (ec *EmployerContext) overlappingPeriod(declared timeline.Timeline) *ClaimPeriod {
	for _, p := range ec.periods {
		if p.Timeline().Distance(declared) < 0 {
			return p
		}
	}
	return nil
}

// predecessorOf is the latest period that ends before the declared
// timeline starts.
func (ec *EmployerContext) predecessorOf(declared timeline.Timeline) *ClaimPeriod {
	var pred *ClaimPeriod
	for _, p := range ec.periods {
		if p.Timeline().Last().Before(declared.First()) {
			pred = p
		}
	}
	return pred
}

// allEarlierTerminal reports whether every period starting before the
// given date has reached a terminal state.
func (ec *EmployerContext) allEarlierTerminal(before timeline.Date) bool {
	for _, p := range ec.periods {
		if p.Timeline().First().Before(before) && !p.state.Terminal() {
			return false
		}
	}
	return true
}

// cascade resumes periods that were held behind earlier ones and are now
// free to move. Each pass may settle a period whose own closure frees the
// next, so it loops until the order is stable.
func (ec *EmployerContext) cascade(fx *effects) {
	for {
		moved := false
		for _, p := range ec.periods {
			if p.state.Unsettled() && ec.allEarlierTerminal(p.Timeline().First()) {
				p.resume(fx)
				moved = true
			}
		}
		if !moved {
			return
		}
	}
}

// escalateAll hands every open period for this employer to legacy
// handling.
func (ec *EmployerContext) escalateAll(cause error, fx *effects) {
	for _, p := range ec.periods {
		if !p.state.Terminal() {
			p.escalate(cause, fx)
		}
	}
}
