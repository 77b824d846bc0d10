/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal aggregate from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific projections (a caseworker view, not a memento)
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - EventEnvelope: Request body for inbound events

TYPES:
  Person:
    PersonDTO, EmployerDTO, PeriodDTO, PeriodDetailDTO

  Timeline:
    DayDTO, HistoryEntryDTO

  Processing:
    OutcomeDTO, SignalDTO, AuditEntryDTO, EventRecordDTO

SEE ALSO:
  - handlers.go: Uses these types
  - claim: the aggregate these project
*/
package api

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/warp/benefit-engine/claim"
	"github.com/warp/benefit-engine/store/sqlite"
	"github.com/warp/benefit-engine/timeline"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EventEnvelope wraps an inbound event with its kind discriminator.
type EventEnvelope struct {
	Kind  string          `json:"kind"`
	Event json.RawMessage `json:"event"`
}

// PersonDTO is the caseworker view of one employee's claims.
type PersonDTO struct {
	EmployeeID string        `json:"employee_id"`
	Employers  []EmployerDTO `json:"employers"`
}

// EmployerDTO groups one employer's claim periods.
type EmployerDTO struct {
	EmployerID string      `json:"employer_id"`
	Periods    []PeriodDTO `json:"periods"`
}

// PeriodDTO summarizes one claim period.
type PeriodDTO struct {
	ID           string `json:"id"`
	GroupID      string `json:"group_id"`
	State        string `json:"state"`
	Extension    bool   `json:"extension"`
	Terminal     bool   `json:"terminal"`
	FirstAbsence string `json:"first_absence,omitempty"`
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
	SickDays     int    `json:"sick_days"`
}

// PeriodDetailDTO adds the merged timeline and the merge history.
type PeriodDetailDTO struct {
	PeriodDTO
	Days    []DayDTO          `json:"days"`
	History []HistoryEntryDTO `json:"history"`
}

// DayDTO is one classified date of a merged timeline.
type DayDTO struct {
	Date     string   `json:"date"`
	Kind     string   `json:"kind"`
	Source   string   `json:"source"`
	Grade    int      `json:"grade,omitempty"`
	EventID  string   `json:"event_id"`
	Replaced []DayDTO `json:"replaced,omitempty"`
}

// HistoryEntryDTO is one merge step of a period's history.
type HistoryEntryDTO struct {
	EventID string `json:"event_id"`
	At      string `json:"at"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// OutcomeDTO reports what processing one event did.
type OutcomeDTO struct {
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Signals []SignalDTO     `json:"signals"`
	Audit   []AuditEntryDTO `json:"audit"`
}

// SignalDTO is one follow-up request or notification.
type SignalDTO struct {
	Type     string `json:"type"`
	PeriodID string `json:"period_id"`
	Kind     string `json:"kind,omitempty"`
	Previous string `json:"previous,omitempty"`
	Current  string `json:"current,omitempty"`
}

// AuditEntryDTO is one processing trail line.
type AuditEntryDTO struct {
	At      string `json:"at"`
	Level   string `json:"level"`
	Message string `json:"message"`
	EventID string `json:"event_id"`
}

// EventRecordDTO is one stored inbound event.
type EventRecordDTO struct {
	ID         string `json:"id"`
	EmployerID string `json:"employer_id"`
	Kind       string `json:"kind"`
	ProducedAt string `json:"produced_at"`
	StoredAt   string `json:"stored_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPersonDTO(p *claim.Person) PersonDTO {
	employers := make([]EmployerDTO, 0, len(p.Employers()))
	for _, ec := range p.Employers() {
		periods := make([]PeriodDTO, 0, len(ec.Periods()))
		for _, period := range ec.Periods() {
			periods = append(periods, toPeriodDTO(period))
		}
		employers = append(employers, EmployerDTO{
			EmployerID: ec.EmployerID(),
			Periods:    periods,
		})
	}
	return PersonDTO{EmployeeID: p.EmployeeID(), Employers: employers}
}

func toPeriodDTO(p *claim.ClaimPeriod) PeriodDTO {
	dto := PeriodDTO{
		ID:        p.ID().String(),
		GroupID:   p.GroupID().String(),
		State:     string(p.State()),
		Extension: p.Extension(),
		Terminal:  p.State().Terminal(),
		SickDays:  p.Timeline().SickDayCount(),
	}
	if !p.FirstAbsence().IsZero() {
		dto.FirstAbsence = p.FirstAbsence().String()
	}
	if !p.Timeline().IsEmpty() {
		dto.From = p.Timeline().First().String()
		dto.To = p.Timeline().Last().String()
	}
	return dto
}

func toPeriodDetailDTO(p *claim.ClaimPeriod) PeriodDetailDTO {
	days := make([]DayDTO, 0, p.Timeline().Length())
	for _, d := range p.Timeline().Days() {
		days = append(days, toDayDTO(d))
	}
	history := make([]HistoryEntryDTO, 0, len(p.History()))
	for _, h := range p.History() {
		entry := HistoryEntryDTO{EventID: h.EventID, At: h.At.String()}
		if !h.Merged.IsEmpty() {
			entry.From = h.Merged.First().String()
			entry.To = h.Merged.Last().String()
		}
		history = append(history, entry)
	}
	return PeriodDetailDTO{
		PeriodDTO: toPeriodDTO(p),
		Days:      days,
		History:   history,
	}
}

func toDayDTO(d timeline.Day) DayDTO {
	dto := DayDTO{
		Date:    d.Date.String(),
		Kind:    string(d.Kind),
		Source:  string(d.Source),
		Grade:   d.Grade,
		EventID: d.EventID,
	}
	for _, r := range d.Replaced {
		dto.Replaced = append(dto.Replaced, toDayDTO(r))
	}
	return dto
}

func toOutcomeDTO(out claim.Outcome) OutcomeDTO {
	dto := OutcomeDTO{
		Status:  string(out.Status),
		Signals: make([]SignalDTO, 0, len(out.Signals)),
		Audit:   make([]AuditEntryDTO, 0, len(out.Audit)),
	}
	if out.Err != nil {
		dto.Error = out.Err.Error()
	}
	for _, s := range out.Signals {
		dto.Signals = append(dto.Signals, toSignalDTO(s))
	}
	for _, a := range out.Audit {
		dto.Audit = append(dto.Audit, toAuditEntryDTO(a))
	}
	return dto
}

func toSignalDTO(s claim.Signal) SignalDTO {
	switch sig := s.(type) {
	case claim.NeedsData:
		return SignalDTO{Type: "needs_data", PeriodID: sig.PeriodID.String(), Kind: string(sig.Kind)}
	case claim.StateChanged:
		return SignalDTO{
			Type:     "state_changed",
			PeriodID: sig.PeriodID.String(),
			Previous: string(sig.Previous),
			Current:  string(sig.Current),
		}
	case claim.ReadyForPayment:
		return SignalDTO{Type: "ready_for_payment", PeriodID: sig.PeriodID.String()}
	default:
		return SignalDTO{Type: "unknown"}
	}
}

func toAuditEntryDTO(a claim.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		At:      a.At.Format(time.RFC3339),
		Level:   string(a.Level),
		Message: a.Message,
		EventID: a.EventID,
	}
}

func toEventRecordDTO(rec sqlite.EventRecord) EventRecordDTO {
	return EventRecordDTO{
		ID:         rec.ID,
		EmployerID: rec.EmployerID,
		Kind:       rec.Kind,
		ProducedAt: rec.ProducedAt.Format(time.RFC3339),
		StoredAt:   rec.StoredAt.Format(time.RFC3339),
	}
}
