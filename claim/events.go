/*
events.go - The inbound event vocabulary

PURPOSE:
  Every fact the engine learns arrives as one of these events. Events are
  immutable values: they carry their own identity and production time, and
  the engine never consults a wall clock, so replaying a stored event
  stream reproduces the same decisions.

  Document events (certificate, application, employer notice) declare a
  partial timeline that gets merged into the claim period's history.
  Follow-up events (eligibility data, benefit history, simulation result,
  manual decision, payment receipt, reminder) reference an existing claim
  period by id.

VALIDATION:
  Validate() checks shape only: required ids, ordered date ranges, grade
  bounds. Scope checks (what the engine refuses to automate) live with the
  routing in person.go so that rejection and escalation stay distinct.

SEE ALSO:
  - person.go: entry point that validates, scope-checks, and routes
  - period.go: per-period handling of each event type
*/
package claim

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/benefit-engine/timeline"
)

// applicationDeadlineMonths is how long after the last declared day an
// application may arrive and still be automated.
const applicationDeadlineMonths = 3

// =============================================================================
// EVENT INTERFACE
// =============================================================================

// Event is anything the engine can be handed.
type Event interface {
	Meta() EventMeta
	Validate() error
}

// EventMeta identifies an event and the parties it concerns. At is the
// production time supplied by the event source; the engine uses it for
// audit timestamps instead of reading a clock.
type EventMeta struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	EmployerID string    `json:"employer_id"`
	At         time.Time `json:"at"`
}

func (m EventMeta) Meta() EventMeta { return m }

func (m EventMeta) validate(event string) error {
	switch {
	case m.ID == "":
		return &StructuralError{Event: event, Field: "id", Reason: "missing"}
	case m.EmployeeID == "":
		return &StructuralError{Event: event, Field: "employee_id", Reason: "missing"}
	case m.EmployerID == "":
		return &StructuralError{Event: event, Field: "employer_id", Reason: "missing"}
	case m.At.IsZero():
		return &StructuralError{Event: event, Field: "at", Reason: "missing"}
	}
	return nil
}

// Interval is a closed date range as declared by a document event.
type Interval struct {
	From timeline.Date `json:"from"`
	To   timeline.Date `json:"to"`
}

func (i Interval) validate(event, field string) error {
	if i.From.IsZero() || i.To.IsZero() || i.To.Before(i.From) {
		return &StructuralError{Event: event, Field: field, Reason: "invalid date range"}
	}
	return nil
}

func (i Interval) dateRange() timeline.DateRange {
	return timeline.NewDateRange(i.From, i.To)
}

// =============================================================================
// MEDICAL CERTIFICATE
// =============================================================================

// CertificatePeriod is one certified sickness stretch with its grade
// (percent incapacity, 100 = fully sick).
type CertificatePeriod struct {
	Interval
	Grade int `json:"grade"`
}

// MedicalCertificate is the physician's certification of sickness. It is
// the only event that can open a new claim period.
type MedicalCertificate struct {
	EventMeta
	Periods []CertificatePeriod `json:"periods"`
}

func (e MedicalCertificate) Validate() error {
	if err := e.EventMeta.validate("medical_certificate"); err != nil {
		return err
	}
	if len(e.Periods) == 0 {
		return &StructuralError{Event: "medical_certificate", Field: "periods", Reason: "empty"}
	}
	for _, p := range e.Periods {
		if err := p.validate("medical_certificate", "periods"); err != nil {
			return err
		}
		if p.Grade < 0 || p.Grade > 100 {
			return &StructuralError{Event: "medical_certificate", Field: "grade", Reason: "outside 0-100"}
		}
	}
	return nil
}

// Timeline builds the certificate's declared partial timeline.
func (e MedicalCertificate) Timeline() timeline.Timeline {
	var t timeline.Timeline
	for _, p := range e.Periods {
		part := timeline.SickDays(p.dateRange(), p.Grade, timeline.SourceCertificate, e.ID)
		t = t.Merge(part, timeline.Standard)
	}
	return t
}

// scopeCheck refuses what the engine cannot automate yet.
func (e MedicalCertificate) scopeCheck() error {
	for _, p := range e.Periods {
		if p.Grade < 100 {
			return &OutOfScopeError{Reason: "graded sickness is not automated"}
		}
	}
	return nil
}

// =============================================================================
// CLAIM APPLICATION
// =============================================================================

// PeriodType classifies one stretch of an application.
type PeriodType string

const (
	PeriodSick          PeriodType = "sick"
	PeriodSelfCertified PeriodType = "self_certified"
	PeriodVacation      PeriodType = "vacation"
	PeriodLeave         PeriodType = "leave"
	PeriodStudy         PeriodType = "study"
	PeriodWork          PeriodType = "work"
	PeriodForeign       PeriodType = "foreign"
)

func (pt PeriodType) known() bool {
	switch pt {
	case PeriodSick, PeriodSelfCertified, PeriodVacation, PeriodLeave, PeriodStudy, PeriodWork, PeriodForeign:
		return true
	}
	return false
}

// ApplicationPeriod is one declared stretch of a claim application.
// Grade applies to sick periods only.
type ApplicationPeriod struct {
	Interval
	Type  PeriodType `json:"type"`
	Grade int        `json:"grade,omitempty"`
}

// ClaimApplication is the employee's own account of the absence.
type ClaimApplication struct {
	EventMeta
	SubmittedAt time.Time           `json:"submitted_at"`
	Periods     []ApplicationPeriod `json:"periods"`
}

func (e ClaimApplication) Validate() error {
	if err := e.EventMeta.validate("claim_application"); err != nil {
		return err
	}
	if e.SubmittedAt.IsZero() {
		return &StructuralError{Event: "claim_application", Field: "submitted_at", Reason: "missing"}
	}
	if len(e.Periods) == 0 {
		return &StructuralError{Event: "claim_application", Field: "periods", Reason: "empty"}
	}
	for _, p := range e.Periods {
		if err := p.validate("claim_application", "periods"); err != nil {
			return err
		}
		if !p.Type.known() {
			return &StructuralError{Event: "claim_application", Field: "periods", Reason: fmt.Sprintf("unknown period type %q", p.Type)}
		}
		if p.Type == PeriodSick && (p.Grade < 0 || p.Grade > 100) {
			return &StructuralError{Event: "claim_application", Field: "grade", Reason: "outside 0-100"}
		}
	}
	return nil
}

// Timeline builds the application's declared partial timeline by folding
// its period stretches in declared order.
func (e ClaimApplication) Timeline() timeline.Timeline {
	var t timeline.Timeline
	for _, p := range e.Periods {
		t = t.Merge(e.periodTimeline(p), timeline.Standard)
	}
	return t
}

func (e ClaimApplication) periodTimeline(p ApplicationPeriod) timeline.Timeline {
	r := p.dateRange()
	switch p.Type {
	case PeriodSick:
		return timeline.SickDays(r, p.Grade, timeline.SourceApplication, e.ID)
	case PeriodSelfCertified:
		return timeline.SelfCertifiedDays(r, timeline.SourceApplication, e.ID)
	case PeriodVacation:
		return timeline.VacationDays(r, timeline.SourceApplication, e.ID)
	case PeriodLeave:
		return timeline.LeaveDays(r, timeline.SourceApplication, e.ID)
	case PeriodStudy:
		return timeline.StudyDays(r, timeline.SourceApplication, e.ID)
	case PeriodForeign:
		return timeline.ForeignDays(r, timeline.SourceApplication, e.ID)
	default:
		return timeline.WorkDays(r, timeline.SourceApplication, e.ID)
	}
}

// lastDeclaredDay is the latest date the application covers.
func (e ClaimApplication) lastDeclaredDay() timeline.Date {
	var last timeline.Date
	for _, p := range e.Periods {
		if last.IsZero() || p.To.After(last) {
			last = p.To
		}
	}
	return last
}

func (e ClaimApplication) scopeCheck() error {
	hasGraded := false
	hasOtherKind := false
	for _, p := range e.Periods {
		switch p.Type {
		case PeriodStudy, PeriodForeign:
			return &OutOfScopeError{Reason: fmt.Sprintf("application with %s periods is not automated", p.Type)}
		case PeriodSick:
			if p.Grade < 100 {
				hasGraded = true
			}
		default:
			hasOtherKind = true
		}
	}
	if hasGraded && hasOtherKind {
		return &OutOfScopeError{Reason: "graded sickness mixed with other period types is not automated"}
	}
	deadline := e.lastDeclaredDay().AddMonths(applicationDeadlineMonths)
	if timeline.DateOf(e.SubmittedAt).After(deadline) {
		return &OutOfScopeError{Reason: "application submitted more than three months after the absence"}
	}
	return nil
}

// =============================================================================
// EMPLOYER NOTICE
// =============================================================================

// EmployerNotice is the employer's report of the absence: the stretch it
// paid itself, any vacation it knows of, the first day of absence, and
// when its claim to reimbursement ends, if ever.
type EmployerNotice struct {
	EventMeta
	FirstAbsenceDay     timeline.Date  `json:"first_absence_day"`
	EmployerPaidPeriods []Interval     `json:"employer_paid_periods"`
	VacationPeriods     []Interval     `json:"vacation_periods,omitempty"`
	ReimbursementEnd    *timeline.Date `json:"reimbursement_end,omitempty"`
}

func (e EmployerNotice) Validate() error {
	if err := e.EventMeta.validate("employer_notice"); err != nil {
		return err
	}
	if e.FirstAbsenceDay.IsZero() {
		return &StructuralError{Event: "employer_notice", Field: "first_absence_day", Reason: "missing"}
	}
	if len(e.EmployerPaidPeriods) == 0 {
		return &StructuralError{Event: "employer_notice", Field: "employer_paid_periods", Reason: "empty"}
	}
	for _, p := range e.EmployerPaidPeriods {
		if err := p.validate("employer_notice", "employer_paid_periods"); err != nil {
			return err
		}
	}
	for _, p := range e.VacationPeriods {
		if err := p.validate("employer_notice", "vacation_periods"); err != nil {
			return err
		}
	}
	return nil
}

// Timeline builds the notice's declared partial timeline. The composite
// keeps assumed-work padding: the notice implicitly asserts the employee
// worked until the first absence.
func (e EmployerNotice) Timeline() timeline.Timeline {
	var t timeline.Timeline
	for _, p := range e.EmployerPaidPeriods {
		t = t.Merge(timeline.EmployerPaidDays(p.dateRange(), timeline.SourceEmployerNotice, e.ID), timeline.Standard)
	}
	for _, p := range e.VacationPeriods {
		t = t.Merge(timeline.VacationDays(p.dateRange(), timeline.SourceEmployerNotice, e.ID), timeline.Standard)
	}
	return t.WithPad(timeline.PadAssumedWork)
}

// Fingerprint is a content digest for duplicate detection. Two notices
// with the same fingerprint are re-deliveries; the same employer sending
// a different fingerprint for the same period is a contradiction.
func (e EmployerNotice) Fingerprint() string {
	paid := make([]string, 0, len(e.EmployerPaidPeriods))
	for _, p := range e.EmployerPaidPeriods {
		paid = append(paid, p.From.String()+".."+p.To.String())
	}
	vac := make([]string, 0, len(e.VacationPeriods))
	for _, p := range e.VacationPeriods {
		vac = append(vac, p.From.String()+".."+p.To.String())
	}
	sort.Strings(paid)
	sort.Strings(vac)
	reimb := "open"
	if e.ReimbursementEnd != nil {
		reimb = e.ReimbursementEnd.String()
	}
	return fmt.Sprintf("first=%s paid=%v vacation=%v reimbursement=%s", e.FirstAbsenceDay, paid, vac, reimb)
}

// =============================================================================
// FOLLOW-UP EVENTS - Reference an existing claim period
// =============================================================================

// MonthlyIncome is one month of reported income.
type MonthlyIncome struct {
	Year   int             `json:"year"`
	Month  time.Month      `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// EligibilityData answers the eligibility check: reported incomes and the
// start of the employment relationship.
type EligibilityData struct {
	EventMeta
	PeriodID        uuid.UUID       `json:"period_id"`
	Incomes         []MonthlyIncome `json:"incomes"`
	EmploymentStart timeline.Date   `json:"employment_start"`
}

func (e EligibilityData) Validate() error {
	if err := e.EventMeta.validate("eligibility_data"); err != nil {
		return err
	}
	if e.PeriodID == uuid.Nil {
		return &StructuralError{Event: "eligibility_data", Field: "period_id", Reason: "missing"}
	}
	for _, inc := range e.Incomes {
		if inc.Amount.IsNegative() {
			return &StructuralError{Event: "eligibility_data", Field: "incomes", Reason: "negative amount"}
		}
	}
	return nil
}

// PriorPayment is one historic benefit payment stretch.
type PriorPayment struct {
	Interval
	DailyAmount decimal.Decimal `json:"daily_amount"`
}

// BenefitHistory lists prior benefit payments inside the lookback window.
type BenefitHistory struct {
	EventMeta
	PeriodID uuid.UUID      `json:"period_id"`
	Payments []PriorPayment `json:"payments"`
}

func (e BenefitHistory) Validate() error {
	if err := e.EventMeta.validate("benefit_history"); err != nil {
		return err
	}
	if e.PeriodID == uuid.Nil {
		return &StructuralError{Event: "benefit_history", Field: "period_id", Reason: "missing"}
	}
	for _, p := range e.Payments {
		if err := p.validate("benefit_history", "payments"); err != nil {
			return err
		}
		if p.DailyAmount.IsNegative() {
			return &StructuralError{Event: "benefit_history", Field: "payments", Reason: "negative amount"}
		}
	}
	return nil
}

// SimulationResult reports whether the payment simulation succeeded.
type SimulationResult struct {
	EventMeta
	PeriodID uuid.UUID `json:"period_id"`
	OK       bool      `json:"ok"`
	Message  string    `json:"message,omitempty"`
}

func (e SimulationResult) Validate() error {
	if err := e.EventMeta.validate("simulation_result"); err != nil {
		return err
	}
	if e.PeriodID == uuid.Nil {
		return &StructuralError{Event: "simulation_result", Field: "period_id", Reason: "missing"}
	}
	return nil
}

// ManualDecision is the caseworker's approval or rejection.
type ManualDecision struct {
	EventMeta
	PeriodID     uuid.UUID `json:"period_id"`
	Approved     bool      `json:"approved"`
	CaseworkerID string    `json:"caseworker_id"`
}

func (e ManualDecision) Validate() error {
	if err := e.EventMeta.validate("manual_decision"); err != nil {
		return err
	}
	if e.PeriodID == uuid.Nil {
		return &StructuralError{Event: "manual_decision", Field: "period_id", Reason: "missing"}
	}
	if e.CaseworkerID == "" {
		return &StructuralError{Event: "manual_decision", Field: "caseworker_id", Reason: "missing"}
	}
	return nil
}

// PaymentReceipt reports whether the payment order was accepted.
type PaymentReceipt struct {
	EventMeta
	PeriodID uuid.UUID `json:"period_id"`
	Accepted bool      `json:"accepted"`
}

func (e PaymentReceipt) Validate() error {
	if err := e.EventMeta.validate("payment_receipt"); err != nil {
		return err
	}
	if e.PeriodID == uuid.Nil {
		return &StructuralError{Event: "payment_receipt", Field: "period_id", Reason: "missing"}
	}
	return nil
}

// Reminder fires when a period has sat in a state longer than the
// scheduler tolerates. It names the state it was scheduled for; a
// reminder for a state the period has since left is stale.
type Reminder struct {
	EventMeta
	PeriodID uuid.UUID `json:"period_id"`
	InState  State     `json:"in_state"`
}

func (e Reminder) Validate() error {
	if err := e.EventMeta.validate("reminder"); err != nil {
		return err
	}
	if e.PeriodID == uuid.Nil {
		return &StructuralError{Event: "reminder", Field: "period_id", Reason: "missing"}
	}
	if e.InState == "" {
		return &StructuralError{Event: "reminder", Field: "in_state", Reason: "missing"}
	}
	return nil
}
