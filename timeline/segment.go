/*
segment.go - Episode segmentation

PURPOSE:
  Splits a timeline into contiguous sickness episodes. A new episode
  starts when 16 or more calendar days without sickness separate two sick
  stretches. The counting automaton walks the timeline in date order.

THE ASYMMETRIC WEEKEND RULE:
  A weekend between two sick stretches never breaks an episode and counts
  nothing by itself. But a weekend followed by a non-sick weekday counts
  two days toward the gap, regardless of whether one or both weekend days
  were actually inside the gap. Vacation directly after a sick stretch
  also counts nothing until a non-sick weekday follows.

STATES:
  Initial              before the first sick day of an episode
  InEmployerPeriodSick sick, within the first 16 sick days
  InPaidSick           sick, beyond the employer-paid period
  InEmployerPeriodGap  counting non-sick days, employer-period phase
  InPaidGap            counting non-sick days, paid phase
  Resting              weekend or post-sick vacation, counting suspended
*/
package timeline

// episodeGapDays is the number of consecutive non-sick calendar days that
// closes a sickness episode. It matches the employer-paid period length.
const episodeGapDays = 16

// EmployerPaidPeriodDays is the maximum length of the employer-paid
// period at the start of an episode.
const EmployerPaidPeriodDays = 16

type segmenterState int

const (
	segInitial segmenterState = iota
	segInEmployerPeriodSick
	segInEmployerPeriodGap
	segResting
	segInPaidSick
	segInPaidGap
)

// Episodes partitions the timeline into contiguous sickness episodes.
// The result is never empty: a timeline with no sick days yields a single
// trimmed (possibly empty) episode. Pure function of the input.
func (t Timeline) Episodes() []Timeline {
	s := &segmenter{pad: t.pad, source: t.source, eventID: t.eventID}
	for _, day := range t.days {
		s.next(day)
	}
	if len(s.current) > 0 || len(s.episodes) == 0 {
		s.closeEpisode()
	}
	return s.episodes
}

type segmenter struct {
	state         segmenterState
	gapDays       int  // non-sick days counted toward the 16-day break
	sickDays      int  // sick days in the current episode, for phase tracking
	afterVacation bool // resting because of post-sick vacation, not weekend

	current  []Day
	episodes []Timeline

	pad     PadRule
	source  Source
	eventID string
}

func (s *segmenter) next(day Day) {
	s.current = append(s.current, day)

	switch classify(day) {
	case daySick:
		s.onSick()
	case daySickWeekend:
		s.onSickWeekend()
	case dayRestWeekend:
		s.onWeekend()
	case dayVacation:
		s.onVacation()
	default: // non-sick weekday: work, leave, study, implicit, foreign
		s.onNonSickWeekday()
	}
}

type dayClass int

const (
	daySick dayClass = iota
	daySickWeekend
	dayRestWeekend
	dayVacation
	dayNonSickWeekday
)

func classify(d Day) dayClass {
	switch {
	case d.Kind == KindSickWeekend:
		return daySickWeekend
	case d.Kind.Sick():
		return daySick
	case d.Kind == KindVacation:
		return dayVacation
	case d.Date.IsWeekend():
		return dayRestWeekend
	default:
		return dayNonSickWeekday
	}
}

func (s *segmenter) onSick() {
	s.gapDays = 0
	s.sickDays++
	if s.sickDays > EmployerPaidPeriodDays {
		s.state = segInPaidSick
	} else {
		s.state = segInEmployerPeriodSick
	}
}

func (s *segmenter) onSickWeekend() {
	// A sick weekend counts toward the employer-paid period like any
	// other sick day; only non-sick weekends rest the episode.
	s.onSick()
}

func (s *segmenter) onWeekend() {
	switch s.state {
	case segInitial:
		// nothing to rest from
	case segResting:
		// A weekend supersedes a vacation rest: the asymmetric weekend
		// rule applies when a weekday eventually follows.
		s.afterVacation = false
	default:
		s.afterVacation = false
		s.state = segResting
	}
}

func (s *segmenter) onVacation() {
	switch s.state {
	case segInitial:
		// vacation before any sickness: plain non-episode day
	case segInEmployerPeriodSick, segInPaidSick:
		// Vacation directly after sick days suspends counting.
		s.afterVacation = true
		s.state = segResting
	case segResting:
		// A vacation day extends the rest without counting.
	default:
		s.countGap(1)
	}
}

func (s *segmenter) onNonSickWeekday() {
	switch s.state {
	case segInitial:
		// before the first sick day: nothing to count
	case segInEmployerPeriodSick, segInPaidSick:
		s.enterGap()
		s.countGap(1)
	case segResting:
		if s.afterVacation {
			// Post-sick vacation never counted; the weekday does.
			s.leaveRest(0)
		} else {
			// The weekend retroactively counts two days.
			s.leaveRest(2)
		}
		s.countGap(1)
	default:
		s.countGap(1)
	}
}

func (s *segmenter) enterGap() {
	if s.sickDays > EmployerPaidPeriodDays {
		s.state = segInPaidGap
	} else {
		s.state = segInEmployerPeriodGap
	}
}

func (s *segmenter) leaveRest(weekendDays int) {
	s.enterGap()
	s.gapDays += weekendDays
}

func (s *segmenter) countGap(n int) {
	s.gapDays += n
	if s.gapDays >= episodeGapDays {
		s.closeEpisode()
	}
}

// closeEpisode trims and emits the accumulated days, then resets the
// automaton for the next episode.
func (s *segmenter) closeEpisode() {
	days := make([]Day, len(s.current))
	copy(days, s.current)
	episode := Timeline{days: days, pad: s.pad, source: s.source, eventID: s.eventID}.Trim()
	s.episodes = append(s.episodes, episode)

	s.current = nil
	s.gapDays = 0
	s.sickDays = 0
	s.state = segInitial
	s.afterVacation = false
}
