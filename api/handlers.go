/*
handlers.go - HTTP API handlers for the benefit engine

PURPOSE:
  Exposes the adjudication engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the mediator.

ENDPOINTS:
  Events:
    POST   /api/events                    Submit an inbound event

  Employees:
    GET    /api/employees                 List employees with stored claims
    GET    /api/employees/{id}            Current claim state
    GET    /api/employees/{id}/periods/{periodID}  Period detail with timeline
    GET    /api/employees/{id}/audit      Processing trail
    GET    /api/employees/{id}/events     Stored inbound events

  Scenarios:
    GET    /api/scenarios                 List demo scenarios
    POST   /api/scenarios/load            Load a demo scenario

  Admin:
    POST   /api/admin/reset               Database reset (dev only)

REQUEST FLOW:
  1. Parse HTTP request
  2. Decode the event envelope by kind
  3. Dispatch through the mediator
  4. Serialize the outcome
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, unknown event kind, rejected event
  - 404: Unknown employee or period
  - 409: Re-delivered event id
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/warp/benefit-engine/claim"
	"github.com/warp/benefit-engine/mediator"
	"github.com/warp/benefit-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Mediator *mediator.Mediator
	Store    *sqlite.Store

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(med *mediator.Mediator, store *sqlite.Store) *Handler {
	return &Handler{Mediator: med, Store: store}
}

// =============================================================================
// EVENT INTAKE
// =============================================================================

// SubmitEvent decodes an event envelope and runs it through the engine.
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	var envelope EventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ev, err := decodeEvent(envelope)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event", err)
		return
	}

	out, err := h.Mediator.Dispatch(r.Context(), ev, envelope.Event)
	if err != nil {
		if errors.Is(err, mediator.ErrDuplicateEvent) {
			writeError(w, http.StatusConflict, "Event already processed", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to process event", err)
		return
	}

	status := http.StatusCreated
	if out.Status == claim.StatusRejected {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, toOutcomeDTO(out))
}

// decodeEvent maps the envelope kind to a concrete event type.
func decodeEvent(envelope EventEnvelope) (claim.Event, error) {
	switch envelope.Kind {
	case "medical_certificate":
		var ev claim.MedicalCertificate
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "claim_application":
		var ev claim.ClaimApplication
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "employer_notice":
		var ev claim.EmployerNotice
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "eligibility_data":
		var ev claim.EligibilityData
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "benefit_history":
		var ev claim.BenefitHistory
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "simulation_result":
		var ev claim.SimulationResult
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "manual_decision":
		var ev claim.ManualDecision
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "payment_receipt":
		var ev claim.PaymentReceipt
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "reminder":
		var ev claim.Reminder
		if err := json.Unmarshal(envelope.Event, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", envelope.Kind)
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns every employee with stored claims.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": ids})
}

// GetEmployee returns the current claim state for one employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	person, status, err := h.loadKnownPerson(r, id)
	if err != nil {
		writeError(w, status, "Failed to load employee", err)
		return
	}
	if person == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toPersonDTO(person))
}

// GetPeriod returns one claim period with its merged timeline and history.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period id", err)
		return
	}

	person, status, err := h.loadKnownPerson(r, id)
	if err != nil {
		writeError(w, status, "Failed to load employee", err)
		return
	}
	if person == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	period, ok := person.FindPeriod(periodID)
	if !ok {
		writeError(w, http.StatusNotFound, "Claim period not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toPeriodDetailDTO(period))
}

// GetAudit returns the processing trail for one employee.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.Store.LoadAudit(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load audit trail", err)
		return
	}

	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, toAuditEntryDTO(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": dtos})
}

// GetEvents returns the stored inbound events for one employee in replay
// order.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	records, err := h.Store.LoadEvents(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load events", err)
		return
	}

	dtos := make([]EventRecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toEventRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": dtos})
}

// loadKnownPerson loads the aggregate only for employees that actually
// have a stored snapshot; a fresh Person for an unknown id reads as 404.
func (h *Handler) loadKnownPerson(r *http.Request, employeeID string) (*claim.Person, int, error) {
	snapshot, err := h.Store.LoadSnapshot(r.Context(), employeeID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if snapshot == nil {
		return nil, http.StatusNotFound, nil
	}
	person, err := h.Mediator.Load(r.Context(), employeeID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return person, http.StatusOK, nil
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
