package claim_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/benefit-engine/claim"
	"github.com/warp/benefit-engine/timeline"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// January 2018 starts on a Monday; Jan 3 is a Wednesday, Jan 26 a Friday.

func jan(day int) timeline.Date { return timeline.NewDate(2018, time.January, day) }
func feb(day int) timeline.Date { return timeline.NewDate(2018, time.February, day) }
func may(day int) timeline.Date { return timeline.NewDate(2018, time.May, day) }

func meta(id, employer string) claim.EventMeta {
	return claim.EventMeta{
		ID:         id,
		EmployeeID: "12029912345",
		EmployerID: employer,
		At:         time.Date(2018, time.February, 1, 9, 0, 0, 0, time.UTC),
	}
}

func certificate(id, employer string, from, to timeline.Date, grade int) claim.MedicalCertificate {
	return claim.MedicalCertificate{
		EventMeta: meta(id, employer),
		Periods:   []claim.CertificatePeriod{{Interval: claim.Interval{From: from, To: to}, Grade: grade}},
	}
}

func application(id, employer string, from, to timeline.Date) claim.ClaimApplication {
	return claim.ClaimApplication{
		EventMeta:   meta(id, employer),
		SubmittedAt: time.Date(2018, time.February, 1, 9, 0, 0, 0, time.UTC),
		Periods:     []claim.ApplicationPeriod{{Interval: claim.Interval{From: from, To: to}, Type: claim.PeriodSick, Grade: 100}},
	}
}

func notice(id, employer string, firstAbsence, paidFrom, paidTo timeline.Date) claim.EmployerNotice {
	return claim.EmployerNotice{
		EventMeta:           meta(id, employer),
		FirstAbsenceDay:     firstAbsence,
		EmployerPaidPeriods: []claim.Interval{{From: paidFrom, To: paidTo}},
	}
}

func eligibility(id string, p *claim.ClaimPeriod) claim.EligibilityData {
	incomes := make([]claim.MonthlyIncome, 0, 12)
	for m := time.January; m <= time.December; m++ {
		incomes = append(incomes, claim.MonthlyIncome{Year: 2017, Month: m, Amount: decimal.NewFromInt(31000)})
	}
	return claim.EligibilityData{
		EventMeta:       meta(id, p.EmployerID()),
		PeriodID:        p.ID(),
		Incomes:         incomes,
		EmploymentStart: timeline.NewDate(2016, time.August, 1),
	}
}

func onlyPeriod(t *testing.T, p *claim.Person) *claim.ClaimPeriod {
	t.Helper()
	employers := p.Employers()
	require.Len(t, employers, 1)
	periods := employers[0].Periods()
	require.Len(t, periods, 1)
	return periods[0]
}

func requireApplied(t *testing.T, out claim.Outcome) {
	t.Helper()
	require.Equal(t, claim.StatusApplied, out.Status, "outcome: %+v", out.Audit)
}

func dataRequests(out claim.Outcome) []claim.DataKind {
	var kinds []claim.DataKind
	for _, s := range out.Signals {
		if nd, ok := s.(claim.NeedsData); ok {
			kinds = append(kinds, nd.Kind)
		}
	}
	return kinds
}

func hasSignal[S claim.Signal](out claim.Outcome) bool {
	for _, s := range out.Signals {
		if _, ok := s.(S); ok {
			return true
		}
	}
	return false
}

// =============================================================================
// FULL LIFECYCLE
// =============================================================================

func TestAdjudication_FullLifecycle(t *testing.T) {
	// GIVEN: A certificate for Jan 3-26, the matching application, and the
	//        employer's notice covering the paid period Jan 3-18
	// THEN: The period walks the whole chain and ends closed after the
	//       payment receipt

	person := claim.NewPerson("12029912345")

	out := person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100))
	requireApplied(t, out)
	assert.ElementsMatch(t, []claim.DataKind{claim.DataClaimApplication, claim.DataEmployerNotice}, dataRequests(out))

	period := onlyPeriod(t, person)
	assert.Equal(t, claim.StateAwaitingApplicationAndNoticeGap, period.State())
	assert.False(t, period.Extension())

	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(26))))
	assert.Equal(t, claim.StateAwaitingNoticeGap, period.State())

	out = person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(18)))
	requireApplied(t, out)
	assert.Equal(t, claim.StateAwaitingEligibilityCheck, period.State())
	assert.Equal(t, jan(3), period.FirstAbsence())
	assert.Contains(t, dataRequests(out), claim.DataEligibility)

	out = person.Apply(eligibility("elig-1", period))
	requireApplied(t, out)
	assert.Equal(t, claim.StateAwaitingBenefitHistory, period.State())

	out = person.Apply(claim.BenefitHistory{EventMeta: meta("hist-1", "org-1"), PeriodID: period.ID()})
	requireApplied(t, out)
	assert.Equal(t, claim.StateAwaitingSimulation, period.State())

	out = person.Apply(claim.SimulationResult{EventMeta: meta("sim-1", "org-1"), PeriodID: period.ID(), OK: true})
	requireApplied(t, out)
	assert.Equal(t, claim.StateAwaitingManualApproval, period.State())

	out = person.Apply(claim.ManualDecision{EventMeta: meta("dec-1", "org-1"), PeriodID: period.ID(), Approved: true, CaseworkerID: "Z999999"})
	requireApplied(t, out)
	assert.Equal(t, claim.StatePaying, period.State())
	assert.True(t, hasSignal[claim.ReadyForPayment](out))

	requireApplied(t, person.Apply(claim.PaymentReceipt{EventMeta: meta("pay-1", "org-1"), PeriodID: period.ID(), Accepted: true}))
	assert.Equal(t, claim.StateClosed, period.State())
}

func TestAdjudication_MergedTimelinePrefersTheEmployerAccount(t *testing.T) {
	// The notice outranks the certificate inside the employer-paid period;
	// the application's sick days survive after it.

	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(26))))
	requireApplied(t, person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(18))))

	tl := onlyPeriod(t, person).Timeline()
	d, ok := tl.At(jan(10))
	require.True(t, ok)
	assert.Equal(t, timeline.KindEmployerOnlySick, d.Kind)
	d, ok = tl.At(jan(22))
	require.True(t, ok)
	assert.Equal(t, timeline.KindSick, d.Kind)
}

// =============================================================================
// VALIDATION AND SCOPE
// =============================================================================

func TestApply_MalformedEventIsRejected(t *testing.T) {
	person := claim.NewPerson("12029912345")

	out := person.Apply(claim.MedicalCertificate{EventMeta: meta("cert-1", "org-1")})

	assert.Equal(t, claim.StatusRejected, out.Status)
	assert.True(t, claim.IsStructural(out.Err))
	assert.Empty(t, person.Employers(), "a rejected event must not touch state")
}

func TestApply_WrongEmployeeIsRejected(t *testing.T) {
	person := claim.NewPerson("someone-else")

	out := person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100))

	assert.Equal(t, claim.StatusRejected, out.Status)
	assert.True(t, claim.IsStructural(out.Err))
}

func TestCertificate_GradedSicknessEscalates(t *testing.T) {
	person := claim.NewPerson("12029912345")

	out := person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 60))

	assert.Equal(t, claim.StatusEscalated, out.Status)
	assert.True(t, claim.IsOutOfScope(out.Err))
	assert.Empty(t, person.Employers())
}

func TestApplication_SubmittedTooLateEscalates(t *testing.T) {
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))

	late := application("app-1", "org-1", jan(3), jan(26))
	late.SubmittedAt = time.Date(2018, time.May, 2, 9, 0, 0, 0, time.UTC)

	out := person.Apply(late)

	assert.Equal(t, claim.StatusEscalated, out.Status)
	assert.True(t, claim.IsOutOfScope(out.Err))
	assert.Equal(t, claim.StateHandedToLegacySystem, onlyPeriod(t, person).State())
}

func TestApplication_WithStudyPeriodsEscalates(t *testing.T) {
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))

	app := application("app-1", "org-1", jan(3), jan(19))
	app.Periods = append(app.Periods, claim.ApplicationPeriod{
		Interval: claim.Interval{From: jan(22), To: jan(26)},
		Type:     claim.PeriodStudy,
	})

	out := person.Apply(app)

	assert.Equal(t, claim.StatusEscalated, out.Status)
	assert.True(t, claim.IsOutOfScope(out.Err))
}

func TestApplication_WithNoMatchingPeriodIsRejected(t *testing.T) {
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))

	out := person.Apply(application("app-1", "org-1", may(1), may(20)))

	assert.Equal(t, claim.StatusRejected, out.Status)
	assert.ErrorIs(t, out.Err, claim.ErrUnknownPeriod)
}

func TestMultiEmployer_ConcurrentAbsenceEscalates(t *testing.T) {
	// GIVEN: An open case with org-1 for January
	// WHEN: A second employer certifies an overlapping absence
	// THEN: The second employer's case is out of scope; org-1 is untouched

	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))

	out := person.Apply(certificate("cert-2", "org-2", jan(10), jan(20), 100))

	assert.Equal(t, claim.StatusEscalated, out.Status)
	assert.True(t, claim.IsOutOfScope(out.Err))
	assert.Equal(t, claim.StateAwaitingApplicationAndNoticeGap, onlyPeriod(t, person).State())
}

// =============================================================================
// CONTRADICTIONS AND DUPLICATES
// =============================================================================

func TestDuplicateNotice_SameContentIsIdempotent(t *testing.T) {
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(26))))
	requireApplied(t, person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(18))))

	period := onlyPeriod(t, person)
	before := period.Timeline()

	out := person.Apply(notice("not-2", "org-1", jan(3), jan(3), jan(18)))

	requireApplied(t, out)
	assert.Equal(t, claim.StateAwaitingEligibilityCheck, period.State())
	assert.True(t, period.Timeline().Equal(before), "a re-delivered notice must not change the timeline")
}

func TestConflictingNotice_EscalatesOnlyThisEmployer(t *testing.T) {
	// GIVEN: Finished document collection with org-1, and an unrelated
	//        case with org-2 later in the year
	// WHEN: org-1 sends a second notice with different content
	// THEN: org-1's period escalates as a contradiction; org-2's does not

	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(26))))
	requireApplied(t, person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(18))))
	requireApplied(t, person.Apply(certificate("cert-2", "org-2", may(2), may(25), 100)))

	out := person.Apply(notice("not-2", "org-1", jan(3), jan(3), jan(16)))

	assert.Equal(t, claim.StatusEscalated, out.Status)
	assert.True(t, claim.IsContradiction(out.Err))

	employers := person.Employers()
	require.Len(t, employers, 2)
	assert.Equal(t, claim.StateHandedToLegacySystem, employers[0].Periods()[0].State())
	assert.Equal(t, claim.StateAwaitingApplicationAndNoticeGap, employers[1].Periods()[0].State())
}

// =============================================================================
// REMINDERS
// =============================================================================

func TestReminder_RepeatsThePendingRequest(t *testing.T) {
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(26))))
	period := onlyPeriod(t, person)

	out := person.Apply(claim.Reminder{EventMeta: meta("rem-1", "org-1"), PeriodID: period.ID(), InState: claim.StateAwaitingNoticeGap})

	requireApplied(t, out)
	assert.Equal(t, []claim.DataKind{claim.DataEmployerNotice}, dataRequests(out))
}

func TestReminder_StaleReminderIsAuditLoggedAndIgnored(t *testing.T) {
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(26))))
	requireApplied(t, person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(18))))
	period := onlyPeriod(t, person)

	out := person.Apply(claim.Reminder{EventMeta: meta("rem-1", "org-1"), PeriodID: period.ID(), InState: claim.StateAwaitingNoticeGap})

	requireApplied(t, out)
	assert.Empty(t, dataRequests(out))
	assert.Equal(t, claim.StateAwaitingEligibilityCheck, period.State())

	found := false
	for _, entry := range out.Audit {
		if entry.Level == claim.AuditWarning {
			found = true
		}
	}
	assert.True(t, found, "a stale reminder leaves a warning in the audit trail")
}

// =============================================================================
// REPLAY DETERMINISM
// =============================================================================

func TestReplay_SameEventsProduceIdenticalState(t *testing.T) {
	// Ids are derived from the opening event and timestamps come from the
	// events themselves, so two fresh replays agree on every field.

	run := func() claim.PersonMemento {
		person := claim.NewPerson("12029912345")
		person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100))
		person.Apply(application("app-1", "org-1", jan(3), jan(26)))
		person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(18)))
		period := onlyPeriod(t, person)
		person.Apply(eligibility("elig-1", period))
		person.Apply(claim.BenefitHistory{EventMeta: meta("hist-1", "org-1"), PeriodID: period.ID()})
		return person.Memento()
	}

	require.Equal(t, run(), run())
}

func TestMemento_RoundTripsThroughRestore(t *testing.T) {
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(26))))
	requireApplied(t, person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(18))))

	restored := claim.RestorePerson(person.Memento())

	require.Equal(t, person.Memento(), restored.Memento())

	// The restored aggregate keeps processing where the original left off.
	period := onlyPeriod(t, restored)
	out := restored.Apply(eligibility("elig-1", period))
	requireApplied(t, out)
	assert.Equal(t, claim.StateAwaitingBenefitHistory, period.State())
}
