package claim_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/benefit-engine/claim"
	"github.com/warp/benefit-engine/timeline"
)

// =============================================================================
// GAP VERSUS EXTENSION
// =============================================================================
// Jan 26 2018 is a Friday, Jan 29 the following Monday.

func TestCertificate_DirectlyAdjacentOpensAnExtension(t *testing.T) {
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(1), jan(12), 100)))
	requireApplied(t, person.Apply(certificate("cert-2", "org-1", jan(13), jan(25), 100)))

	periods := person.Employers()[0].Periods()
	require.Len(t, periods, 2)

	first, second := periods[0], periods[1]
	assert.False(t, first.Extension())
	assert.True(t, second.Extension())
	assert.Equal(t, first.GroupID(), second.GroupID(), "an extension stays in the episode's group")
	assert.Equal(t, claim.StateAwaitingApplicationExtensionUnsettled, second.State())
}

func TestCertificate_WeekendBridgedGapStillExtends(t *testing.T) {
	// The gap Jan 27-28 is Saturday and Sunday only.

	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	requireApplied(t, person.Apply(certificate("cert-2", "org-1", jan(29), feb(9), 100)))

	periods := person.Employers()[0].Periods()
	require.Len(t, periods, 2)
	assert.True(t, periods[1].Extension())
}

func TestCertificate_WorkdayInTheGapOpensANewPeriod(t *testing.T) {
	// Starting Tuesday Jan 30 leaves Monday the 29th uncovered, so the
	// new period is a gap case and needs its own employer notice.

	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	out := person.Apply(certificate("cert-2", "org-1", jan(30), feb(9), 100))
	requireApplied(t, out)

	periods := person.Employers()[0].Periods()
	require.Len(t, periods, 2)
	assert.False(t, periods[1].Extension())
	assert.Equal(t, claim.StateAwaitingApplicationAndNoticeGapUnsettled, periods[1].State())
	assert.Contains(t, dataRequests(out), claim.DataEmployerNotice)
}

func TestExtension_InheritsTheFirstAbsenceDay(t *testing.T) {
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(26))))
	requireApplied(t, person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(18))))
	requireApplied(t, person.Apply(certificate("cert-2", "org-1", jan(29), feb(9), 100)))

	periods := person.Employers()[0].Periods()
	require.Len(t, periods, 2)
	assert.Equal(t, jan(3), periods[1].FirstAbsence())
}

func TestCertificate_OverlappingAnOpenPeriodRefinesIt(t *testing.T) {
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(19), 100)))
	requireApplied(t, person.Apply(certificate("cert-2", "org-1", jan(15), jan(26), 100)))

	periods := person.Employers()[0].Periods()
	require.Len(t, periods, 1, "an overlapping certificate extends the same period")
	assert.Equal(t, jan(3), periods[0].Timeline().First())
	assert.Equal(t, jan(26), periods[0].Timeline().Last())
}

// =============================================================================
// SHORT CASES AND FINISHED PERIODS
// =============================================================================

func TestShortCase_ClosesWithoutPayment(t *testing.T) {
	// GIVEN: A ten day absence, fully inside the employer-paid period
	// THEN: Nothing is payable; the period closes when documents complete

	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(12), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(12))))
	requireApplied(t, person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(12))))

	assert.Equal(t, claim.StateClosedWithoutPaymentWithNotice, onlyPeriod(t, person).State())
}

func TestShortExtension_LateNoticeUpgradesTheClosure(t *testing.T) {
	// GIVEN: A short episode whose extension closed before any notice.
	//        The extension never required one, so it closes plain.
	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(1), jan(5), 100)))
	requireApplied(t, person.Apply(certificate("cert-2", "org-1", jan(8), jan(12), 100)))
	requireApplied(t, person.Apply(application("app-2", "org-1", jan(8), jan(12))))

	periods := person.Employers()[0].Periods()
	require.Len(t, periods, 2)
	second := periods[1]
	require.Equal(t, claim.StateClosedWithoutPayment, second.State())

	// WHEN: The employer's notice arrives after the closure
	out := person.Apply(notice("not-1", "org-1", jan(8), jan(8), jan(12)))

	// THEN: The closure records the employer's report instead of escalating
	requireApplied(t, out)
	assert.Equal(t, claim.StateClosedWithoutPaymentWithNotice, second.State())
}

func TestCertificate_OverlappingAFinishedPeriodEscalates(t *testing.T) {
	// The engine never rewrites settled history.

	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(12), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(12))))
	requireApplied(t, person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(12))))

	out := person.Apply(certificate("cert-2", "org-1", jan(8), jan(20), 100))

	assert.Equal(t, claim.StatusEscalated, out.Status)
	assert.True(t, claim.IsOutOfScope(out.Err))
	require.Len(t, person.Employers()[0].Periods(), 1, "no new period opens over settled history")
}

// =============================================================================
// CLOSURE CASCADE
// =============================================================================

func TestCascade_ClosureResumesTheHeldExtension(t *testing.T) {
	// GIVEN: A first period in its adjudication chain and an extension
	//        held behind it with complete documents
	// WHEN: The first period closes
	// THEN: The extension moves to the eligibility check on its own

	person := claim.NewPerson("12029912345")
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(26))))
	requireApplied(t, person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(18))))

	requireApplied(t, person.Apply(certificate("cert-2", "org-1", jan(29), feb(9), 100)))
	requireApplied(t, person.Apply(application("app-2", "org-1", jan(29), feb(9))))

	periods := person.Employers()[0].Periods()
	require.Len(t, periods, 2)
	first, second := periods[0], periods[1]
	require.Equal(t, claim.StateAwaitingPriorPeriod, second.State())

	// Walk the first period to closure.
	requireApplied(t, person.Apply(eligibility("elig-1", first)))
	requireApplied(t, person.Apply(claim.BenefitHistory{EventMeta: meta("hist-1", "org-1"), PeriodID: first.ID()}))
	requireApplied(t, person.Apply(claim.SimulationResult{EventMeta: meta("sim-1", "org-1"), PeriodID: first.ID(), OK: true}))
	requireApplied(t, person.Apply(claim.ManualDecision{EventMeta: meta("dec-1", "org-1"), PeriodID: first.ID(), Approved: true, CaseworkerID: "Z999999"}))
	out := person.Apply(claim.PaymentReceipt{EventMeta: meta("pay-1", "org-1"), PeriodID: first.ID(), Accepted: true})
	requireApplied(t, out)

	assert.Equal(t, claim.StateClosed, first.State())
	assert.Equal(t, claim.StateAwaitingEligibilityCheck, second.State())
	assert.Contains(t, dataRequests(out), claim.DataEligibility)
}

// =============================================================================
// DOWNSTREAM FAILURES
// =============================================================================

func adjudicatedPeriod(t *testing.T, person *claim.Person) *claim.ClaimPeriod {
	t.Helper()
	requireApplied(t, person.Apply(certificate("cert-1", "org-1", jan(3), jan(26), 100)))
	requireApplied(t, person.Apply(application("app-1", "org-1", jan(3), jan(26))))
	requireApplied(t, person.Apply(notice("not-1", "org-1", jan(3), jan(3), jan(18))))
	return onlyPeriod(t, person)
}

func TestEligibility_ShortEmploymentEscalates(t *testing.T) {
	person := claim.NewPerson("12029912345")
	period := adjudicatedPeriod(t, person)

	data := eligibility("elig-1", period)
	data.EmploymentStart = timeline.NewDate(2017, time.December, 20)

	out := person.Apply(data)

	assert.Equal(t, claim.StatusEscalated, out.Status)
	assert.Equal(t, claim.StateHandedToLegacySystem, period.State())
}

func TestBenefitHistory_PaymentInsideLookbackEscalates(t *testing.T) {
	person := claim.NewPerson("12029912345")
	period := adjudicatedPeriod(t, person)
	requireApplied(t, person.Apply(eligibility("elig-1", period)))

	history := claim.BenefitHistory{
		EventMeta: meta("hist-1", "org-1"),
		PeriodID:  period.ID(),
		Payments: []claim.PriorPayment{{
			Interval: claim.Interval{From: timeline.NewDate(2017, time.September, 1), To: timeline.NewDate(2017, time.October, 15)},
		}},
	}

	out := person.Apply(history)

	assert.Equal(t, claim.StatusEscalated, out.Status)
	assert.Equal(t, claim.StateHandedToLegacySystem, period.State())
}

func TestBenefitHistory_OldPaymentsAreFine(t *testing.T) {
	person := claim.NewPerson("12029912345")
	period := adjudicatedPeriod(t, person)
	requireApplied(t, person.Apply(eligibility("elig-1", period)))

	history := claim.BenefitHistory{
		EventMeta: meta("hist-1", "org-1"),
		PeriodID:  period.ID(),
		Payments: []claim.PriorPayment{{
			Interval: claim.Interval{From: timeline.NewDate(2017, time.March, 1), To: timeline.NewDate(2017, time.April, 30)},
		}},
	}

	requireApplied(t, person.Apply(history))
	assert.Equal(t, claim.StateAwaitingSimulation, period.State())
}

func TestSimulationFailure_Escalates(t *testing.T) {
	person := claim.NewPerson("12029912345")
	period := adjudicatedPeriod(t, person)
	requireApplied(t, person.Apply(eligibility("elig-1", period)))
	requireApplied(t, person.Apply(claim.BenefitHistory{EventMeta: meta("hist-1", "org-1"), PeriodID: period.ID()}))

	out := person.Apply(claim.SimulationResult{EventMeta: meta("sim-1", "org-1"), PeriodID: period.ID(), OK: false, Message: "no open account"})

	assert.Equal(t, claim.StatusEscalated, out.Status)
	assert.Equal(t, claim.StateHandedToLegacySystem, period.State())
}

func TestManualRejection_Escalates(t *testing.T) {
	person := claim.NewPerson("12029912345")
	period := adjudicatedPeriod(t, person)
	requireApplied(t, person.Apply(eligibility("elig-1", period)))
	requireApplied(t, person.Apply(claim.BenefitHistory{EventMeta: meta("hist-1", "org-1"), PeriodID: period.ID()}))
	requireApplied(t, person.Apply(claim.SimulationResult{EventMeta: meta("sim-1", "org-1"), PeriodID: period.ID(), OK: true}))

	out := person.Apply(claim.ManualDecision{EventMeta: meta("dec-1", "org-1"), PeriodID: period.ID(), Approved: false, CaseworkerID: "Z999999"})

	assert.Equal(t, claim.StatusEscalated, out.Status)
	assert.Equal(t, claim.StateHandedToLegacySystem, period.State())
}

func TestRefusedPayment_EndsInPaymentFailed(t *testing.T) {
	person := claim.NewPerson("12029912345")
	period := adjudicatedPeriod(t, person)
	requireApplied(t, person.Apply(eligibility("elig-1", period)))
	requireApplied(t, person.Apply(claim.BenefitHistory{EventMeta: meta("hist-1", "org-1"), PeriodID: period.ID()}))
	requireApplied(t, person.Apply(claim.SimulationResult{EventMeta: meta("sim-1", "org-1"), PeriodID: period.ID(), OK: true}))
	requireApplied(t, person.Apply(claim.ManualDecision{EventMeta: meta("dec-1", "org-1"), PeriodID: period.ID(), Approved: true, CaseworkerID: "Z999999"}))

	out := person.Apply(claim.PaymentReceipt{EventMeta: meta("pay-1", "org-1"), PeriodID: period.ID(), Accepted: false})

	requireApplied(t, out)
	assert.Equal(t, claim.StatePaymentFailed, period.State())
}
