/*
day.go - Per-day classification

PURPOSE:
  A Day is one calendar date's classification: was the employee sick,
  at work, on vacation, and so on. Days arrive from independent sources
  and the same date is routinely classified differently by different
  sources; the tournament (tournament.go) decides which one wins.

CRITICAL INVARIANTS:
  1. IMMUTABLE: a Day is never modified once constructed. Merge produces
     new Days.
  2. SOURCE-TAGGED: precedence depends on both the day kind and which
     source reported it, so every Day carries its source.
  3. AUDIT-ONLY REPLACEMENTS: when a Day wins a merge it records the Days
     it displaced. That list exists for caseworkers, never for logic.

SEE ALSO:
  - tournament.go: conflict resolution between two Days
  - timeline.go: the contiguous sequence of Days
*/
package timeline

// =============================================================================
// DAY KIND - What happened on a given date
// =============================================================================

type Kind string

const (
	KindImplicit         Kind = "implicit"           // no explicit classification
	KindWork             Kind = "work"               // at work (reported or assumed)
	KindSick             Kind = "sick"               // certified sick, weekday
	KindSickWeekend      Kind = "sick_weekend"       // certified sick, weekend
	KindSelfCertified    Kind = "self_certified"     // self-certified sick day
	KindEmployerOnlySick Kind = "employer_only_sick" // sick day reported only by the employer
	KindVacation         Kind = "vacation"           // vacation day
	KindLeave            Kind = "leave"              // leave of absence
	KindStudy            Kind = "study"              // study day
	KindForeign          Kind = "foreign"            // abroad
	KindUndetermined     Kind = "undetermined"       // conflicting reports, unresolved
)

// Graded reports whether the kind carries a sickness grade.
func (k Kind) Graded() bool {
	switch k {
	case KindSick, KindSickWeekend, KindEmployerOnlySick:
		return true
	}
	return false
}

// Sick reports whether the kind counts as a sick day at all.
func (k Kind) Sick() bool {
	switch k {
	case KindSick, KindSickWeekend, KindSelfCertified, KindEmployerOnlySick:
		return true
	}
	return false
}

// =============================================================================
// SOURCE - Which inbound event reported the day
// =============================================================================

type Source string

const (
	SourceRegistry       Source = "registry"
	SourceCertificate    Source = "medical_certificate"
	SourceApplication    Source = "claim_application"
	SourceEmployerNotice Source = "employer_notice"
)

// sourceRank orders sources for same-kind conflicts. A later, more specific
// report wins over an earlier, more generic one.
func sourceRank(s Source) int {
	switch s {
	case SourceEmployerNotice:
		return 3
	case SourceApplication:
		return 2
	case SourceCertificate:
		return 1
	default:
		return 0
	}
}

// =============================================================================
// DAY - One date's classification
// =============================================================================

type Day struct {
	Date    Date
	Kind    Kind
	Source  Source
	Grade   int    // 0..100, meaningful only when Kind.Graded()
	EventID string // originating event

	// Replaced lists the Days this one displaced during merges.
	// Audit trail only; no business rule ever reads it.
	Replaced []Day
}

// NewSickDay classifies a date as certified sick, switching to the
// weekend variant on Saturdays and Sundays.
func NewSickDay(date Date, grade int, source Source, eventID string) Day {
	kind := KindSick
	if date.IsWeekend() {
		kind = KindSickWeekend
	}
	return Day{Date: date, Kind: kind, Source: source, Grade: grade, EventID: eventID}
}

// NewWorkDay classifies a date as worked. Weekends are not working days,
// so they fall back to the implicit classification.
func NewWorkDay(date Date, source Source, eventID string) Day {
	if date.IsWeekend() {
		return NewImplicitDay(date, source, eventID)
	}
	return Day{Date: date, Kind: KindWork, Source: source, EventID: eventID}
}

// NewEmployerPaidDay classifies a date inside the employer-paid period.
func NewEmployerPaidDay(date Date, grade int, source Source, eventID string) Day {
	if date.IsWeekend() {
		return Day{Date: date, Kind: KindSickWeekend, Source: source, Grade: grade, EventID: eventID}
	}
	return Day{Date: date, Kind: KindEmployerOnlySick, Source: source, Grade: grade, EventID: eventID}
}

func NewSelfCertifiedDay(date Date, source Source, eventID string) Day {
	if date.IsWeekend() {
		return Day{Date: date, Kind: KindSickWeekend, Source: source, Grade: 100, EventID: eventID}
	}
	return Day{Date: date, Kind: KindSelfCertified, Source: source, Grade: 100, EventID: eventID}
}

func NewVacationDay(date Date, source Source, eventID string) Day {
	if date.IsWeekend() {
		return NewImplicitDay(date, source, eventID)
	}
	return Day{Date: date, Kind: KindVacation, Source: source, EventID: eventID}
}

func NewLeaveDay(date Date, source Source, eventID string) Day {
	return Day{Date: date, Kind: KindLeave, Source: source, EventID: eventID}
}

func NewStudyDay(date Date, source Source, eventID string) Day {
	return Day{Date: date, Kind: KindStudy, Source: source, EventID: eventID}
}

func NewForeignDay(date Date, source Source, eventID string) Day {
	return Day{Date: date, Kind: KindForeign, Source: source, EventID: eventID}
}

func NewImplicitDay(date Date, source Source, eventID string) Day {
	return Day{Date: date, Kind: KindImplicit, Source: source, EventID: eventID}
}

// NewUndeterminedDay marks a date whose conflicting reports could not be
// reconciled. Both candidates end up in the replacement audit list.
func NewUndeterminedDay(date Date, source Source, eventID string) Day {
	return Day{Date: date, Kind: KindUndetermined, Source: source, EventID: eventID}
}

// sickWeekday reports whether the day is a sick day on a weekday. Trimming
// and episode boundaries hinge on sick weekdays: a lone sick weekend never
// anchors an episode.
func (d Day) sickWeekday() bool {
	switch d.Kind {
	case KindSick, KindSelfCertified, KindEmployerOnlySick:
		return true
	}
	return false
}

// sameClassification compares everything the tournament is allowed to see:
// kind, source, and grade. Replacement audit and event identity are ignored.
func (d Day) sameClassification(other Day) bool {
	return d.Kind == other.Kind && d.Source == other.Source && d.Grade == other.Grade
}

// replacing returns a copy of the winner with the loser (and everything the
// loser had itself displaced) folded into the audit list.
func (d Day) replacing(loser Day) Day {
	replaced := make([]Day, 0, len(d.Replaced)+len(loser.Replaced)+1)
	replaced = append(replaced, d.Replaced...)
	replaced = append(replaced, loser.Replaced...)
	stripped := loser
	stripped.Replaced = nil
	replaced = append(replaced, stripped)
	out := d
	out.Replaced = replaced
	return out
}
