/*
timeline.go - The contiguous, date-indexed sequence of Days

PURPOSE:
  A Timeline is the merged calendar for a span of dates: exactly one Day
  per date, no gaps between the first and last date. Each inbound event
  declares a partial timeline; merging folds it into the history.

CRITICAL INVARIANTS:
  1. CONTIGUITY: every date between First() and Last() has exactly one Day.
  2. VALUE SEMANTICS: a Timeline is never mutated after construction;
     every operation returns a new Timeline.
  3. DETERMINISM: Merge depends only on the two operands and the
     tournament, never on wall clock or arrival bookkeeping, so replaying
     the same inputs reproduces the same timeline.

PADDING ("trailing classification"):
  During a merge each side must produce a Day for every date in the union
  range. A side with no explicit Day synthesizes one: normally an implicit
  day, but an employer notice synthesizes assumed work days for the dates
  before its own range (the notice implicitly asserts the employee worked
  until the first absence).

SEE ALSO:
  - tournament.go: picks the winner when both sides classify a date
  - segment.go: splits a timeline into contiguous sickness episodes
*/
package timeline

// PadRule is a timeline's rule for classifying dates it has no explicit
// Day for during a merge.
type PadRule string

const (
	// PadImplicit synthesizes implicit days everywhere.
	PadImplicit PadRule = "implicit"

	// PadAssumedWork synthesizes assumed work days (weekdays only) for
	// dates before the timeline's own range, implicit days after it.
	PadAssumedWork PadRule = "assumed_work"
)

// =============================================================================
// TIMELINE
// =============================================================================

type Timeline struct {
	days    []Day
	pad     PadRule
	source  Source
	eventID string
}

// New builds a timeline from explicit days. The days must already be in
// date order and contiguous; constructors in this package guarantee that.
func New(days []Day, pad PadRule, source Source, eventID string) Timeline {
	return Timeline{days: days, pad: pad, source: source, eventID: eventID}
}

// Empty returns a zero-length timeline.
func Empty() Timeline { return Timeline{} }

// Pad, Source and EventID expose the construction metadata, which
// snapshots must carry to keep later merges faithful.
func (t Timeline) Pad() PadRule    { return t.pad }
func (t Timeline) Source() Source  { return t.source }
func (t Timeline) EventID() string { return t.eventID }

func (t Timeline) IsEmpty() bool { return len(t.days) == 0 }
func (t Timeline) Length() int   { return len(t.days) }

func (t Timeline) First() Date {
	if t.IsEmpty() {
		return Date{}
	}
	return t.days[0].Date
}

func (t Timeline) Last() Date {
	if t.IsEmpty() {
		return Date{}
	}
	return t.days[len(t.days)-1].Date
}

func (t Timeline) Range() DateRange { return DateRange{From: t.First(), To: t.Last()} }

// Days returns a copy of the underlying days in date order.
func (t Timeline) Days() []Day {
	out := make([]Day, len(t.days))
	copy(out, t.days)
	return out
}

// At returns the explicit Day for a date, if the timeline has one.
func (t Timeline) At(date Date) (Day, bool) {
	if t.IsEmpty() || date.Before(t.First()) || date.After(t.Last()) {
		return Day{}, false
	}
	return t.days[DaysBetween(t.First(), date)], true
}

// dayFor fetches or synthesizes this side's Day for a date during a merge.
func (t Timeline) dayFor(date Date) Day {
	if d, ok := t.At(date); ok {
		return d
	}
	if t.pad == PadAssumedWork && !t.IsEmpty() && date.Before(t.First()) {
		return NewWorkDay(date, t.source, t.eventID)
	}
	return NewImplicitDay(date, t.source, t.eventID)
}

// =============================================================================
// CONSTRUCTORS - One partial timeline per declared event period
// =============================================================================

func buildRange(r DateRange, fill func(Date) Day) Timeline {
	days := make([]Day, 0, r.Length())
	for _, date := range r.Days() {
		days = append(days, fill(date))
	}
	return Timeline{days: days, pad: PadImplicit}
}

// SickDays builds a certified-sick timeline for a closed range.
func SickDays(r DateRange, grade int, source Source, eventID string) Timeline {
	t := buildRange(r, func(d Date) Day { return NewSickDay(d, grade, source, eventID) })
	t.source, t.eventID = source, eventID
	return t
}

// SelfCertifiedDays builds a self-certified sickness timeline.
func SelfCertifiedDays(r DateRange, source Source, eventID string) Timeline {
	t := buildRange(r, func(d Date) Day { return NewSelfCertifiedDay(d, source, eventID) })
	t.source, t.eventID = source, eventID
	return t
}

// VacationDays builds a vacation timeline.
func VacationDays(r DateRange, source Source, eventID string) Timeline {
	t := buildRange(r, func(d Date) Day { return NewVacationDay(d, source, eventID) })
	t.source, t.eventID = source, eventID
	return t
}

// LeaveDays builds a leave-of-absence timeline.
func LeaveDays(r DateRange, source Source, eventID string) Timeline {
	t := buildRange(r, func(d Date) Day { return NewLeaveDay(d, source, eventID) })
	t.source, t.eventID = source, eventID
	return t
}

// StudyDays builds a study timeline.
func StudyDays(r DateRange, source Source, eventID string) Timeline {
	t := buildRange(r, func(d Date) Day { return NewStudyDay(d, source, eventID) })
	t.source, t.eventID = source, eventID
	return t
}

// WorkDays builds a worked timeline (weekends implicit).
func WorkDays(r DateRange, source Source, eventID string) Timeline {
	t := buildRange(r, func(d Date) Day { return NewWorkDay(d, source, eventID) })
	t.source, t.eventID = source, eventID
	return t
}

// ForeignDays builds a timeline for days spent abroad.
func ForeignDays(r DateRange, source Source, eventID string) Timeline {
	t := buildRange(r, func(d Date) Day { return NewForeignDay(d, source, eventID) })
	t.source, t.eventID = source, eventID
	return t
}

// EmployerPaidDays builds the employer-paid part of a sickness period as
// declared by an employer notice. The resulting timeline pads earlier
// dates with assumed work days when merged.
func EmployerPaidDays(r DateRange, source Source, eventID string) Timeline {
	t := buildRange(r, func(d Date) Day { return NewEmployerPaidDay(d, 100, source, eventID) })
	t.pad = PadAssumedWork
	t.source, t.eventID = source, eventID
	return t
}

// =============================================================================
// MERGE - The core algebra
// =============================================================================

// Merge folds two timelines into one covering the union of their ranges.
// For each date: a side without an explicit Day synthesizes one via its
// pad rule, then the tournament picks the winner. The result is always
// contiguous and pads implicitly in later merges.
func (t Timeline) Merge(other Timeline, tournament Tournament) Timeline {
	if t.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return t
	}

	from := MinDate(t.First(), other.First())
	to := MaxDate(t.Last(), other.Last())

	days := make([]Day, 0, DaysBetween(from, to)+1)
	for date := from; date.BeforeOrEqual(to); date = date.AddDays(1) {
		days = append(days, tournament(t.dayFor(date), other.dayFor(date)))
	}
	return Timeline{days: days, pad: PadImplicit, source: t.source, eventID: t.eventID}
}

// WithPad returns a copy of the timeline with a different pad rule. Used
// when a composite declaration (such as an employer notice with both paid
// and vacation parts) must keep assumed-work padding after its parts are
// merged.
func (t Timeline) WithPad(pad PadRule) Timeline {
	t.pad = pad
	return t
}

// Distance measures how far apart two timelines are, in calendar days.
//
//	< 0: the timelines overlap; -min(len) when one contains the other,
//	     otherwise the negative overlap magnitude
//	  0: directly adjacent (no free day between them)
//	> 0: a true gap of that many days
func (t Timeline) Distance(other Timeline) int {
	switch {
	case t.contains(other) || other.contains(t):
		return -min(t.Length(), other.Length())
	case t.overlaps(other):
		return max(t.overlapDistance(other), other.overlapDistance(t))
	default:
		return min(t.gapTo(other), other.gapTo(t))
	}
}

func (t Timeline) contains(other Timeline) bool {
	return t.Range().Contains(other.First()) && t.Range().Contains(other.Last())
}

func (t Timeline) overlaps(other Timeline) bool {
	return t.Range().Overlaps(other.Range())
}

func (t Timeline) overlapDistance(other Timeline) int {
	return -(abs(DaysBetween(t.Last(), other.First())) + 1)
}

func (t Timeline) gapTo(other Timeline) int {
	return abs(DaysBetween(t.Last(), other.First())) - 1
}

// GapIsAllWeekend reports whether every date strictly between this
// timeline's last day and the other's first day falls on a weekend. A
// weekend-bridged gap still counts as adjacency for extension purposes.
func (t Timeline) GapIsAllWeekend(other Timeline) bool {
	gap := t.Distance(other)
	if gap <= 0 {
		return false
	}
	first, second := t, other
	if second.First().Before(first.Last()) {
		first, second = other, t
	}
	for d := first.Last().AddDays(1); d.Before(second.First()); d = d.AddDays(1) {
		if !d.IsWeekend() {
			return false
		}
	}
	return true
}

// =============================================================================
// TRIM / COUNTS
// =============================================================================

// Trim drops leading and trailing days until the timeline starts and ends
// on a sick weekday. A timeline without any sick weekday trims to empty.
func (t Timeline) Trim() Timeline {
	days := t.days
	for len(days) > 0 && !days[0].sickWeekday() {
		days = days[1:]
	}
	for len(days) > 0 && !days[len(days)-1].sickWeekday() {
		days = days[:len(days)-1]
	}
	out := make([]Day, len(days))
	copy(out, days)
	return Timeline{days: out, pad: t.pad, source: t.source, eventID: t.eventID}
}

// SickDayCount counts days classified as sick, weekends included.
func (t Timeline) SickDayCount() int {
	n := 0
	for _, d := range t.days {
		if d.Kind.Sick() {
			n++
		}
	}
	return n
}

// UndeterminedCount counts unresolved days; any nonzero count means the
// timeline carries a contradiction.
func (t Timeline) UndeterminedCount() int {
	n := 0
	for _, d := range t.days {
		if d.Kind == KindUndetermined {
			n++
		}
	}
	return n
}

// Contiguous verifies the structural invariant; it exists for tests and
// for boundary validation after deserialization.
func (t Timeline) Contiguous() bool {
	if t.IsEmpty() {
		return true
	}
	if len(t.days) != DaysBetween(t.First(), t.Last())+1 {
		return false
	}
	for i, d := range t.days {
		if !d.Date.Equal(t.First().AddDays(i)) {
			return false
		}
	}
	return true
}

// Equal compares two timelines by classification: same dates, kinds,
// sources, and grades. Replacement audit lists are ignored, which makes
// merge idempotence a meaningful property.
func (t Timeline) Equal(other Timeline) bool {
	if len(t.days) != len(other.days) {
		return false
	}
	for i := range t.days {
		if !t.days[i].Date.Equal(other.days[i].Date) || !t.days[i].sameClassification(other.days[i]) {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
