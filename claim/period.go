/*
period.go - The claim period aggregate

PURPOSE:
  A ClaimPeriod tracks one contiguous sickness case with one employer
  from the first document to a terminal state. It owns:

  - the merge history: an append-only list of (event, declared timeline,
    merged timeline) entries. The current timeline is always the last
    entry's merged result; earlier entries are the audit trail.
  - the state machine: which documents are still missing, where the
    period is in the adjudication chain, and the terminal outcomes.

  Periods never consult a clock and never generate randomness: ids are
  derived from the opening event, timestamps come from the triggering
  events, so replaying a stored event stream reproduces every field.

EXTENSION PERIODS:
  A period that directly continues a running episode is an extension: it
  inherits the episode's group id and first absence day, skips the
  employer notice requirement, and never re-runs the employer-paid
  period.

SEE ALSO:
  - employer.go: routes events to periods and cascades closures
  - state.go: the state catalog
*/
package claim

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/benefit-engine/timeline"
)

const (
	// benefitHistoryLookbackMonths is how far back prior benefit payments
	// disqualify automated handling.
	benefitHistoryLookbackMonths = 6

	// minimumEmploymentDays is the employment run-up required before the
	// first absence day.
	minimumEmploymentDays = 28
)

// HistoryEntry is one step of the merge history.
type HistoryEntry struct {
	EventID  string
	At       timeline.Date
	Declared timeline.Timeline
	Merged   timeline.Timeline
}

// ClaimPeriod is the per-case aggregate.
type ClaimPeriod struct {
	id         uuid.UUID
	groupID    uuid.UUID
	employeeID string
	employerID string
	state      State
	extension  bool

	history      []HistoryEntry
	firstAbsence timeline.Date

	applicationSeen   bool
	noticeSeen        bool
	noticeFingerprint string

	employmentStart timeline.Date
	incomes         []MonthlyIncome
	priorPayments   []PriorPayment
}

// periodIDNamespace seeds deterministic id derivation. Ids are a pure
// function of the opening event so that replay reproduces them.
var periodIDNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func derivePeriodID(openingEventID string) uuid.UUID {
	return uuid.NewSHA1(periodIDNamespace, []byte("period:"+openingEventID))
}

func deriveGroupID(openingEventID string) uuid.UUID {
	return uuid.NewSHA1(periodIDNamespace, []byte("group:"+openingEventID))
}

// newClaimPeriod opens a period from the first medical certificate.
// groupID and firstAbsence are inherited when the period extends a
// running episode; both are zero for a gap period.
func newClaimPeriod(e MedicalCertificate, declared timeline.Timeline, extension bool, unsettled bool, inheritedGroup uuid.UUID, inheritedFirstAbsence timeline.Date, fx *effects) *ClaimPeriod {
	p := &ClaimPeriod{
		id:         derivePeriodID(e.ID),
		employeeID: e.EmployeeID,
		employerID: e.EmployerID,
		extension:  extension,
	}
	if extension {
		p.groupID = inheritedGroup
		p.firstAbsence = inheritedFirstAbsence
	} else {
		p.groupID = deriveGroupID(e.ID)
	}

	p.record(e.EventMeta, declared, declared)

	switch {
	case extension && unsettled:
		p.state = StateAwaitingApplicationExtensionUnsettled
	case extension:
		p.state = StateAwaitingApplicationExtension
	case unsettled:
		p.state = StateAwaitingApplicationAndNoticeGapUnsettled
	default:
		p.state = StateAwaitingApplicationAndNoticeGap
	}

	fx.info(fmt.Sprintf("claim period %s opened in state %s", p.id, p.state))
	fx.signal(NeedsData{PeriodID: p.id, Kind: DataClaimApplication})
	if !extension {
		fx.signal(NeedsData{PeriodID: p.id, Kind: DataEmployerNotice})
	}
	return p
}

// =============================================================================
// ACCESSORS
// =============================================================================

func (p *ClaimPeriod) ID() uuid.UUID       { return p.id }
func (p *ClaimPeriod) GroupID() uuid.UUID  { return p.groupID }
func (p *ClaimPeriod) State() State        { return p.state }
func (p *ClaimPeriod) Extension() bool     { return p.extension }
func (p *ClaimPeriod) EmployerID() string  { return p.employerID }

// FirstAbsence is the employer-reported first day of absence, or the
// timeline's first day until a notice arrives.
func (p *ClaimPeriod) FirstAbsence() timeline.Date {
	if !p.firstAbsence.IsZero() {
		return p.firstAbsence
	}
	return p.Timeline().First()
}

// Timeline is the current merged timeline.
func (p *ClaimPeriod) Timeline() timeline.Timeline {
	if len(p.history) == 0 {
		return timeline.Empty()
	}
	return p.history[len(p.history)-1].Merged
}

// History returns a copy of the merge history.
func (p *ClaimPeriod) History() []HistoryEntry {
	out := make([]HistoryEntry, len(p.history))
	copy(out, p.history)
	return out
}

// =============================================================================
// MERGE HISTORY
// =============================================================================

func (p *ClaimPeriod) record(meta EventMeta, declared, merged timeline.Timeline) {
	p.history = append(p.history, HistoryEntry{
		EventID:  meta.ID,
		At:       timeline.DateOf(meta.At),
		Declared: declared,
		Merged:   merged,
	})
}

// merge folds a declared timeline into the period under the given
// tournament. A merge that produces undetermined days is a contradiction
// between accepted inputs; the period escalates.
func (p *ClaimPeriod) merge(meta EventMeta, declared timeline.Timeline, tournament timeline.Tournament, fx *effects) bool {
	merged := p.Timeline().Merge(declared, tournament)
	p.record(meta, declared, merged)
	if n := merged.UndeterminedCount(); n > 0 {
		p.escalate(&ContradictionError{Reason: fmt.Sprintf("merge left %d days undetermined", n)}, fx)
		return false
	}
	return true
}

// =============================================================================
// DOCUMENT EVENTS
// =============================================================================

// applyCertificate folds an additional certificate into an open period.
func (p *ClaimPeriod) applyCertificate(e MedicalCertificate, declared timeline.Timeline, fx *effects) {
	if !p.merge(e.EventMeta, declared, timeline.Standard, fx) {
		return
	}
	fx.info(fmt.Sprintf("claim period %s absorbed certificate %s", p.id, e.ID))
}

func (p *ClaimPeriod) applyApplication(e ClaimApplication, settled bool, fx *effects) {
	if p.applicationSeen || !p.state.CollectingDocuments() {
		p.escalate(&ContradictionError{Reason: "second claim application for the same period"}, fx)
		return
	}
	if !p.merge(e.EventMeta, e.Timeline(), timeline.Standard, fx) {
		return
	}
	p.applicationSeen = true

	switch p.state {
	case StateAwaitingApplicationAndNoticeGap:
		p.transitionTo(StateAwaitingNoticeGap, fx)
	case StateAwaitingApplicationAndNoticeGapUnsettled:
		p.transitionTo(StateAwaitingNoticeGapUnsettled, fx)
	case StateAwaitingApplicationGap, StateAwaitingApplicationExtension:
		p.documentsComplete(settled, fx)
	case StateAwaitingApplicationGapUnsettled, StateAwaitingApplicationExtensionUnsettled:
		p.documentsComplete(false, fx)
	default:
		p.escalate(&OutOfScopeError{Reason: fmt.Sprintf("claim application in state %s", p.state)}, fx)
	}
}

func (p *ClaimPeriod) applyNotice(e EmployerNotice, settled bool, fx *effects) {
	if p.noticeSeen {
		if p.noticeFingerprint == e.Fingerprint() {
			// Re-delivery of the same notice: re-merge under the strict
			// tournament, which is a no-op for identical content.
			p.merge(e.EventMeta, e.Timeline(), timeline.IdenticalKindOnly, fx)
			fx.info(fmt.Sprintf("claim period %s ignored re-delivered notice %s", p.id, e.ID))
			return
		}
		p.escalate(&ContradictionError{Reason: "employer sent a conflicting notice for the same period"}, fx)
		return
	}
	if p.state.Terminal() && p.state != StateClosedWithoutPayment {
		p.escalate(&OutOfScopeError{Reason: "employer notice for a finished period"}, fx)
		return
	}

	if !p.merge(e.EventMeta, e.Timeline(), timeline.Standard, fx) {
		return
	}
	p.noticeSeen = true
	p.noticeFingerprint = e.Fingerprint()
	if !p.extension {
		p.firstAbsence = e.FirstAbsenceDay
	}

	switch p.state {
	case StateAwaitingApplicationAndNoticeGap:
		p.transitionTo(StateAwaitingApplicationGap, fx)
	case StateAwaitingApplicationAndNoticeGapUnsettled:
		p.transitionTo(StateAwaitingApplicationGapUnsettled, fx)
	case StateAwaitingNoticeGap:
		p.documentsComplete(settled, fx)
	case StateAwaitingNoticeGapUnsettled:
		p.documentsComplete(false, fx)
	case StateAwaitingApplicationExtension, StateAwaitingApplicationExtensionUnsettled:
		// An extension does not need the notice, but the employer's
		// account still refines the timeline.
		fx.warning(fmt.Sprintf("claim period %s received a notice it did not need", p.id))
	case StateClosedWithoutPayment:
		// The case closed short of the employer-paid period before the
		// notice arrived; record that the employer has now reported.
		p.transitionTo(StateClosedWithoutPaymentWithNotice, fx)
	default:
		fx.warning(fmt.Sprintf("claim period %s absorbed late notice in state %s", p.id, p.state))
	}
}

// documentsComplete decides where a fully documented period goes next.
func (p *ClaimPeriod) documentsComplete(settled bool, fx *effects) {
	if p.payableSpanDays() <= timeline.EmployerPaidPeriodDays {
		fx.info(fmt.Sprintf("claim period %s ends inside the employer-paid period", p.id))
		if p.noticeSeen {
			p.transitionTo(StateClosedWithoutPaymentWithNotice, fx)
		} else {
			p.transitionTo(StateClosedWithoutPayment, fx)
		}
		return
	}
	if !settled {
		p.transitionTo(StateAwaitingPriorPeriod, fx)
		return
	}
	p.transitionTo(StateAwaitingEligibilityCheck, fx)
	fx.signal(NeedsData{PeriodID: p.id, Kind: DataEligibility})
}

// payableSpanDays is the calendar length of the case from the first
// absence day through the last sick weekday. A span inside the
// employer-paid period leaves nothing for the engine to pay.
func (p *ClaimPeriod) payableSpanDays() int {
	trimmed := p.Timeline().Trim()
	if trimmed.IsEmpty() {
		return 0
	}
	return timeline.DaysBetween(p.FirstAbsence(), trimmed.Last()) + 1
}

// =============================================================================
// ADJUDICATION CHAIN
// =============================================================================

func (p *ClaimPeriod) applyEligibility(e EligibilityData, fx *effects) {
	if p.state != StateAwaitingEligibilityCheck {
		fx.warning(fmt.Sprintf("eligibility data for claim period %s ignored in state %s", p.id, p.state))
		return
	}
	p.employmentStart = e.EmploymentStart
	p.incomes = e.Incomes

	if e.EmploymentStart.IsZero() || timeline.DaysBetween(e.EmploymentStart, p.FirstAbsence()) < minimumEmploymentDays {
		p.escalate(&OutOfScopeError{Reason: "employment run-up shorter than four weeks"}, fx)
		return
	}
	if !hasReportedIncome(e.Incomes) {
		p.escalate(&OutOfScopeError{Reason: "no reported income in the eligibility window"}, fx)
		return
	}
	p.transitionTo(StateAwaitingBenefitHistory, fx)
	fx.signal(NeedsData{PeriodID: p.id, Kind: DataBenefitHistory})
}

func hasReportedIncome(incomes []MonthlyIncome) bool {
	for _, inc := range incomes {
		if inc.Amount.IsPositive() {
			return true
		}
	}
	return false
}

func (p *ClaimPeriod) applyBenefitHistory(e BenefitHistory, fx *effects) {
	if p.state != StateAwaitingBenefitHistory {
		fx.warning(fmt.Sprintf("benefit history for claim period %s ignored in state %s", p.id, p.state))
		return
	}
	p.priorPayments = e.Payments

	cutoff := p.FirstAbsence().AddMonths(-benefitHistoryLookbackMonths)
	for _, payment := range e.Payments {
		if payment.To.AfterOrEqual(cutoff) {
			p.escalate(&OutOfScopeError{Reason: "prior benefit payment inside the six month lookback"}, fx)
			return
		}
	}
	p.transitionTo(StateAwaitingSimulation, fx)
	fx.signal(NeedsData{PeriodID: p.id, Kind: DataSimulation})
}

func (p *ClaimPeriod) applySimulation(e SimulationResult, fx *effects) {
	if p.state != StateAwaitingSimulation {
		fx.warning(fmt.Sprintf("simulation result for claim period %s ignored in state %s", p.id, p.state))
		return
	}
	if !e.OK {
		p.escalate(&OutOfScopeError{Reason: "payment simulation failed: " + e.Message}, fx)
		return
	}
	p.transitionTo(StateAwaitingManualApproval, fx)
	fx.signal(NeedsData{PeriodID: p.id, Kind: DataManualApproval})
}

func (p *ClaimPeriod) applyManualDecision(e ManualDecision, fx *effects) {
	if p.state != StateAwaitingManualApproval {
		fx.warning(fmt.Sprintf("manual decision for claim period %s ignored in state %s", p.id, p.state))
		return
	}
	if !e.Approved {
		p.escalate(&OutOfScopeError{Reason: "rejected by caseworker " + e.CaseworkerID}, fx)
		return
	}
	fx.info(fmt.Sprintf("claim period %s approved by caseworker %s", p.id, e.CaseworkerID))
	p.transitionTo(StatePaying, fx)
	fx.signal(ReadyForPayment{PeriodID: p.id})
}

func (p *ClaimPeriod) applyPaymentReceipt(e PaymentReceipt, fx *effects) {
	if p.state != StatePaying {
		fx.warning(fmt.Sprintf("payment receipt for claim period %s ignored in state %s", p.id, p.state))
		return
	}
	if !e.Accepted {
		fx.error(fmt.Sprintf("payment order for claim period %s was refused", p.id))
		p.transitionTo(StatePaymentFailed, fx)
		return
	}
	p.transitionTo(StateClosed, fx)
}

// applyReminder re-emits the pending request for a period stuck in a
// waiting state. A reminder scheduled for a state the period has since
// left is stale and only audit-logged.
func (p *ClaimPeriod) applyReminder(e Reminder, fx *effects) {
	if e.InState != p.state {
		fx.warning(fmt.Sprintf("stale reminder for claim period %s: scheduled for %s, now %s", p.id, e.InState, p.state))
		return
	}
	switch {
	case p.state.CollectingDocuments():
		if !p.applicationSeen {
			fx.signal(NeedsData{PeriodID: p.id, Kind: DataClaimApplication})
		}
		if !p.noticeSeen && !p.extension {
			fx.signal(NeedsData{PeriodID: p.id, Kind: DataEmployerNotice})
		}
	case p.state == StateAwaitingEligibilityCheck:
		fx.signal(NeedsData{PeriodID: p.id, Kind: DataEligibility})
	case p.state == StateAwaitingBenefitHistory:
		fx.signal(NeedsData{PeriodID: p.id, Kind: DataBenefitHistory})
	case p.state == StateAwaitingSimulation:
		fx.signal(NeedsData{PeriodID: p.id, Kind: DataSimulation})
	case p.state == StateAwaitingManualApproval:
		fx.signal(NeedsData{PeriodID: p.id, Kind: DataManualApproval})
	default:
		fx.warning(fmt.Sprintf("reminder for claim period %s has nothing to re-request in state %s", p.id, p.state))
	}
}

// =============================================================================
// TRANSITIONS / CASCADE
// =============================================================================

func (p *ClaimPeriod) transitionTo(next State, fx *effects) {
	if p.state == next {
		return
	}
	prev := p.state
	p.state = next
	fx.signal(StateChanged{PeriodID: p.id, Previous: prev, Current: next})
}

// escalate hands the period to legacy handling.
func (p *ClaimPeriod) escalate(cause error, fx *effects) {
	fx.error(fmt.Sprintf("claim period %s handed to legacy system: %s", p.id, cause))
	fx.markEscalated(cause)
	p.transitionTo(StateHandedToLegacySystem, fx)
}

// resume unblocks a period held behind earlier periods once they have
// all finished.
func (p *ClaimPeriod) resume(fx *effects) {
	if !p.state.Unsettled() {
		return
	}
	settled := p.state.Settled()
	wasHeld := p.state == StateAwaitingPriorPeriod
	p.transitionTo(settled, fx)
	if wasHeld {
		fx.signal(NeedsData{PeriodID: p.id, Kind: DataEligibility})
	}
}
