/*
memento.go - Snapshot projection of the aggregates

PURPOSE:
  A Person is rebuilt from a stored snapshot between events, so every
  field that influences future decisions must round-trip. The memento is
  the explicit, exported projection of the aggregate tree; the serde
  package serializes it. Keeping the projection here means the aggregate
  fields can stay unexported.

  Everything is plain slices in stable order, never maps, so the encoded
  snapshot of a replayed aggregate is byte-identical to the original's.

SEE ALSO:
  - serde: encodes the memento and enforces the schema version
*/
package claim

import (
	"github.com/google/uuid"
	"github.com/warp/benefit-engine/timeline"
)

type PersonMemento struct {
	EmployeeID string            `json:"employee_id"`
	Employers  []EmployerMemento `json:"employers"`
}

type EmployerMemento struct {
	EmployerID string          `json:"employer_id"`
	Periods    []PeriodMemento `json:"periods"`
}

type PeriodMemento struct {
	ID                uuid.UUID        `json:"id"`
	GroupID           uuid.UUID        `json:"group_id"`
	State             State            `json:"state"`
	Extension         bool             `json:"extension"`
	FirstAbsence      timeline.Date    `json:"first_absence"`
	ApplicationSeen   bool             `json:"application_seen"`
	NoticeSeen        bool             `json:"notice_seen"`
	NoticeFingerprint string           `json:"notice_fingerprint,omitempty"`
	EmploymentStart   timeline.Date    `json:"employment_start"`
	Incomes           []MonthlyIncome  `json:"incomes,omitempty"`
	PriorPayments     []PriorPayment   `json:"prior_payments,omitempty"`
	History           []HistoryMemento `json:"history"`
}

type HistoryMemento struct {
	EventID  string          `json:"event_id"`
	At       timeline.Date   `json:"at"`
	Declared TimelineMemento `json:"declared"`
	Merged   TimelineMemento `json:"merged"`
}

type TimelineMemento struct {
	Pad     timeline.PadRule `json:"pad"`
	Source  timeline.Source  `json:"source"`
	EventID string           `json:"event_id"`
	Days    []DayMemento     `json:"days"`
}

type DayMemento struct {
	Date     timeline.Date   `json:"date"`
	Kind     timeline.Kind   `json:"kind"`
	Source   timeline.Source `json:"source"`
	Grade    int             `json:"grade,omitempty"`
	EventID  string          `json:"event_id"`
	Replaced []DayMemento    `json:"replaced,omitempty"`
}

// =============================================================================
// CAPTURE
// =============================================================================

// Memento projects the aggregate tree into its snapshot form.
func (p *Person) Memento() PersonMemento {
	m := PersonMemento{EmployeeID: p.employeeID}
	for _, ec := range p.Employers() {
		em := EmployerMemento{EmployerID: ec.employerID}
		for _, period := range ec.periods {
			em.Periods = append(em.Periods, period.memento())
		}
		m.Employers = append(m.Employers, em)
	}
	return m
}

func (p *ClaimPeriod) memento() PeriodMemento {
	m := PeriodMemento{
		ID:                p.id,
		GroupID:           p.groupID,
		State:             p.state,
		Extension:         p.extension,
		FirstAbsence:      p.firstAbsence,
		ApplicationSeen:   p.applicationSeen,
		NoticeSeen:        p.noticeSeen,
		NoticeFingerprint: p.noticeFingerprint,
		EmploymentStart:   p.employmentStart,
		Incomes:           p.incomes,
		PriorPayments:     p.priorPayments,
	}
	for _, h := range p.history {
		m.History = append(m.History, HistoryMemento{
			EventID:  h.EventID,
			At:       h.At,
			Declared: timelineMemento(h.Declared),
			Merged:   timelineMemento(h.Merged),
		})
	}
	return m
}

func timelineMemento(t timeline.Timeline) TimelineMemento {
	m := TimelineMemento{Pad: t.Pad(), Source: t.Source(), EventID: t.EventID()}
	for _, d := range t.Days() {
		m.Days = append(m.Days, dayMemento(d))
	}
	return m
}

func dayMemento(d timeline.Day) DayMemento {
	m := DayMemento{Date: d.Date, Kind: d.Kind, Source: d.Source, Grade: d.Grade, EventID: d.EventID}
	for _, r := range d.Replaced {
		m.Replaced = append(m.Replaced, dayMemento(r))
	}
	return m
}

// =============================================================================
// RESTORE
// =============================================================================

// RestorePerson rebuilds the aggregate tree from a snapshot.
func RestorePerson(m PersonMemento) *Person {
	p := NewPerson(m.EmployeeID)
	for _, em := range m.Employers {
		ec := p.employer(em.EmployerID)
		for _, pm := range em.Periods {
			ec.periods = append(ec.periods, restorePeriod(m.EmployeeID, em.EmployerID, pm))
		}
	}
	return p
}

func restorePeriod(employeeID, employerID string, m PeriodMemento) *ClaimPeriod {
	p := &ClaimPeriod{
		id:                m.ID,
		groupID:           m.GroupID,
		employeeID:        employeeID,
		employerID:        employerID,
		state:             m.State,
		extension:         m.Extension,
		firstAbsence:      m.FirstAbsence,
		applicationSeen:   m.ApplicationSeen,
		noticeSeen:        m.NoticeSeen,
		noticeFingerprint: m.NoticeFingerprint,
		employmentStart:   m.EmploymentStart,
		incomes:           m.Incomes,
		priorPayments:     m.PriorPayments,
	}
	for _, h := range m.History {
		p.history = append(p.history, HistoryEntry{
			EventID:  h.EventID,
			At:       h.At,
			Declared: restoreTimeline(h.Declared),
			Merged:   restoreTimeline(h.Merged),
		})
	}
	return p
}

func restoreTimeline(m TimelineMemento) timeline.Timeline {
	days := make([]timeline.Day, 0, len(m.Days))
	for _, dm := range m.Days {
		days = append(days, restoreDay(dm))
	}
	return timeline.New(days, m.Pad, m.Source, m.EventID)
}

func restoreDay(m DayMemento) timeline.Day {
	d := timeline.Day{Date: m.Date, Kind: m.Kind, Source: m.Source, Grade: m.Grade, EventID: m.EventID}
	for _, r := range m.Replaced {
		d.Replaced = append(d.Replaced, restoreDay(r))
	}
	return d
}
