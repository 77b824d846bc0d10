/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	event streams for testing and demos. Each scenario resets the database
	and dispatches a fixed sequence of inbound events through the mediator,
	exactly the way production traffic would arrive.

AVAILABLE SCENARIOS:

	full-lifecycle:     One absence driven from certificate to payment
	short-absence:      Absence inside the employer-paid period, no payout
	extension-chain:    Back-to-back absences, the second held behind the first
	conflicting-notice: Employer contradicts itself, case leaves automation

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Dispatch the scenario's document events
 3. Look up the claim periods the engine opened
 4. Dispatch follow-up events against those periods

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "full-lifecycle"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Event intake and employee views
  - mediator: the dispatch path scenarios reuse
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/benefit-engine/claim"
	"github.com/warp/benefit-engine/timeline"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "full-lifecycle",
		Name:        "Full Lifecycle",
		Description: "One absence driven from medical certificate to accepted payment",
	},
	{
		ID:          "short-absence",
		Name:        "Short Absence",
		Description: "Absence inside the employer-paid period, closed without payment",
	},
	{
		ID:          "extension-chain",
		Name:        "Extension Chain",
		Description: "Back-to-back absences where the second waits for the first to finish",
	},
	{
		ID:          "conflicting-notice",
		Name:        "Conflicting Notice",
		Description: "The employer sends two different notices and the case leaves automation",
	},
}

const (
	demoEmployeeID = "12029912345"
	demoEmployerID = "972674818"
)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "full-lifecycle":
		err = h.loadFullLifecycleScenario(ctx)
	case "short-absence":
		err = h.loadShortAbsenceScenario(ctx)
	case "extension-chain":
		err = h.loadExtensionChainScenario(ctx)
	case "conflicting-notice":
		err = h.loadConflictingNoticeScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadFullLifecycleScenario drives one absence all the way to payment:
// 24 calendar days of certified sickness, 16 employer-paid, then the full
// follow-up chain through eligibility, history, simulation, and approval.
func (h *Handler) loadFullLifecycleScenario(ctx context.Context) error {
	docs := []claim.Event{
		claim.MedicalCertificate{
			EventMeta: demoMeta("demo-cert-1", 0),
			Periods: []claim.CertificatePeriod{
				{Interval: demoInterval(3, 26), Grade: 100},
			},
		},
		claim.ClaimApplication{
			EventMeta:   demoMeta("demo-app-1", 1),
			SubmittedAt: time.Date(2018, time.February, 1, 9, 0, 0, 0, time.UTC),
			Periods: []claim.ApplicationPeriod{
				{Interval: demoInterval(3, 26), Type: claim.PeriodSick, Grade: 100},
			},
		},
		claim.EmployerNotice{
			EventMeta:           demoMeta("demo-notice-1", 2),
			FirstAbsenceDay:     timeline.NewDate(2018, time.January, 3),
			EmployerPaidPeriods: []claim.Interval{demoInterval(3, 18)},
		},
	}
	if err := h.dispatchAll(ctx, docs); err != nil {
		return err
	}

	periodID, err := h.demoPeriodID(ctx, 0)
	if err != nil {
		return err
	}

	followUps := []claim.Event{
		claim.EligibilityData{
			EventMeta: demoMeta("demo-elig-1", 3),
			PeriodID:  periodID,
			Incomes: []claim.MonthlyIncome{
				{Year: 2017, Month: time.October, Amount: decimal.NewFromInt(31000)},
				{Year: 2017, Month: time.November, Amount: decimal.NewFromInt(31000)},
				{Year: 2017, Month: time.December, Amount: decimal.NewFromInt(31000)},
			},
			EmploymentStart: timeline.NewDate(2015, time.June, 1),
		},
		claim.BenefitHistory{
			EventMeta: demoMeta("demo-hist-1", 4),
			PeriodID:  periodID,
		},
		claim.SimulationResult{
			EventMeta: demoMeta("demo-sim-1", 5),
			PeriodID:  periodID,
			OK:        true,
		},
		claim.ManualDecision{
			EventMeta:    demoMeta("demo-dec-1", 6),
			PeriodID:     periodID,
			Approved:     true,
			CaseworkerID: "Z990011",
		},
		claim.PaymentReceipt{
			EventMeta: demoMeta("demo-pay-1", 7),
			PeriodID:  periodID,
			Accepted:  true,
		},
	}
	return h.dispatchAll(ctx, followUps)
}

// loadShortAbsenceScenario stays inside the 16 employer-paid days, so the
// period closes without any payout from the scheme.
func (h *Handler) loadShortAbsenceScenario(ctx context.Context) error {
	return h.dispatchAll(ctx, []claim.Event{
		claim.MedicalCertificate{
			EventMeta: demoMeta("demo-cert-1", 0),
			Periods: []claim.CertificatePeriod{
				{Interval: demoInterval(3, 12), Grade: 100},
			},
		},
		claim.ClaimApplication{
			EventMeta:   demoMeta("demo-app-1", 1),
			SubmittedAt: time.Date(2018, time.February, 1, 9, 0, 0, 0, time.UTC),
			Periods: []claim.ApplicationPeriod{
				{Interval: demoInterval(3, 12), Type: claim.PeriodSick, Grade: 100},
			},
		},
		claim.EmployerNotice{
			EventMeta:           demoMeta("demo-notice-1", 2),
			FirstAbsenceDay:     timeline.NewDate(2018, time.January, 3),
			EmployerPaidPeriods: []claim.Interval{demoInterval(3, 12)},
		},
	})
}

// loadExtensionChainScenario opens a second period directly after the
// first. The extension collects its application, then waits for the first
// period to reach a terminal state before continuing.
func (h *Handler) loadExtensionChainScenario(ctx context.Context) error {
	docs := []claim.Event{
		claim.MedicalCertificate{
			EventMeta: demoMeta("demo-cert-1", 0),
			Periods: []claim.CertificatePeriod{
				{Interval: demoInterval(1, 12), Grade: 100},
			},
		},
		claim.MedicalCertificate{
			EventMeta: demoMeta("demo-cert-2", 1),
			Periods: []claim.CertificatePeriod{
				{Interval: demoInterval(15, 25), Grade: 100},
			},
		},
		claim.ClaimApplication{
			EventMeta:   demoMeta("demo-app-1", 2),
			SubmittedAt: time.Date(2018, time.February, 1, 9, 0, 0, 0, time.UTC),
			Periods: []claim.ApplicationPeriod{
				{Interval: demoInterval(1, 12), Type: claim.PeriodSick, Grade: 100},
			},
		},
		claim.ClaimApplication{
			EventMeta:   demoMeta("demo-app-2", 4),
			SubmittedAt: time.Date(2018, time.February, 1, 9, 30, 0, 0, time.UTC),
			Periods: []claim.ApplicationPeriod{
				{Interval: demoInterval(15, 25), Type: claim.PeriodSick, Grade: 100},
			},
		},
		// The notice arrives last: it completes the first period, and the
		// cascade releases the held extension.
		claim.EmployerNotice{
			EventMeta:           demoMeta("demo-notice-1", 5),
			FirstAbsenceDay:     timeline.NewDate(2018, time.January, 1),
			EmployerPaidPeriods: []claim.Interval{demoInterval(1, 12)},
		},
	}
	return h.dispatchAll(ctx, docs)
}

// loadConflictingNoticeScenario has the employer contradict its own
// earlier notice, which hands the case to manual processing.
func (h *Handler) loadConflictingNoticeScenario(ctx context.Context) error {
	return h.dispatchAll(ctx, []claim.Event{
		claim.MedicalCertificate{
			EventMeta: demoMeta("demo-cert-1", 0),
			Periods: []claim.CertificatePeriod{
				{Interval: demoInterval(3, 26), Grade: 100},
			},
		},
		claim.EmployerNotice{
			EventMeta:           demoMeta("demo-notice-1", 1),
			FirstAbsenceDay:     timeline.NewDate(2018, time.January, 3),
			EmployerPaidPeriods: []claim.Interval{demoInterval(3, 18)},
		},
		claim.EmployerNotice{
			EventMeta:           demoMeta("demo-notice-2", 2),
			FirstAbsenceDay:     timeline.NewDate(2018, time.January, 3),
			EmployerPaidPeriods: []claim.Interval{demoInterval(3, 10)},
		},
	})
}

// =============================================================================
// SCENARIO HELPERS
// =============================================================================

// dispatchAll runs the events through the mediator in order. Escalated and
// rejected outcomes are part of the demo, not loader failures.
func (h *Handler) dispatchAll(ctx context.Context, events []claim.Event) error {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode scenario event %s: %w", ev.Meta().ID, err)
		}
		if _, err := h.Mediator.Dispatch(ctx, ev, payload); err != nil {
			return fmt.Errorf("dispatch scenario event %s: %w", ev.Meta().ID, err)
		}
	}
	return nil
}

// demoPeriodID looks up the id of the demo employee's nth claim period.
func (h *Handler) demoPeriodID(ctx context.Context, index int) (uuid.UUID, error) {
	person, err := h.Mediator.Load(ctx, demoEmployeeID)
	if err != nil {
		return uuid.Nil, err
	}
	for _, ec := range person.Employers() {
		if ec.EmployerID() != demoEmployerID {
			continue
		}
		periods := ec.Periods()
		if index >= len(periods) {
			break
		}
		return periods[index].ID(), nil
	}
	return uuid.Nil, fmt.Errorf("scenario expected claim period %d to exist", index)
}

func demoMeta(id string, minuteOffset int) claim.EventMeta {
	return claim.EventMeta{
		ID:         id,
		EmployeeID: demoEmployeeID,
		EmployerID: demoEmployerID,
		At:         time.Date(2018, time.February, 1, 9, minuteOffset, 0, 0, time.UTC),
	}
}

func demoInterval(fromDay, toDay int) claim.Interval {
	return claim.Interval{
		From: timeline.NewDate(2018, time.January, fromDay),
		To:   timeline.NewDate(2018, time.January, toDay),
	}
}
