/*
tournament.go - Conflict resolution between two Days for the same date

PURPOSE:
  When two timelines both classify the same date, a tournament picks the
  winner. A tournament is a pure function of the two candidates' kinds,
  sources, and grades - never of arrival order - so repeated merges of the
  same inputs are idempotent.

POLICIES:
  Standard:          broad precedence order used for ordinary adjudication.
                     Irreconcilable pairs produce an undetermined day.
  IdenticalKindOnly: strict policy used when an employer notice re-merges
                     its own earlier partial timeline. Only identical kinds
                     resolve; everything else is undetermined.

NOTE ON COMPOSITION:
  Each pairwise comparison is commutative, but because the claim layer
  selects a policy per triggering event, the overall multi-event fold is
  not associative. That behavior is inherited deliberately; see the
  reordering tests in timeline_test.go.
*/
package timeline

// A Tournament resolves which of two candidate classifications for the same
// date wins a merge. Implementations must depend only on the candidates'
// classification (kind, source, grade), never on argument order.
type Tournament func(left, right Day) Day

// Standard is the broad precedence order used for ordinary adjudication:
//
//	undetermined > employer-only sick > sick family > vacation/leave/study > work > implicit
//
// with unresolvable cross-kind pairs (leave vs sick, foreign vs anything
// explicit, ...) collapsing to an undetermined day.
func Standard(left, right Day) Day {
	if d, ok := resolveTrivial(left, right); ok {
		return d
	}
	if irreconcilable(left.Kind, right.Kind) {
		return NewUndeterminedDay(left.Date, left.Source, left.EventID).replacing(left).replacing(right)
	}

	lr, rr := standardRank(left.Kind), standardRank(right.Kind)
	switch {
	case lr < 0 || rr < 0 || lr == rr:
		// Cross-kind pair with no defined precedence.
		return NewUndeterminedDay(left.Date, left.Source, left.EventID).replacing(left).replacing(right)
	case lr > rr:
		return left.replacing(right)
	default:
		return right.replacing(left)
	}
}

// irreconcilable lists the cross-kind pairs where neither report can be
// trusted over the other: being on leave, studying, or abroad cannot be
// reconciled with a sickness report for the same date.
func irreconcilable(a, b Kind) bool {
	conflicting := func(k Kind) bool {
		return k == KindLeave || k == KindStudy || k == KindForeign
	}
	return (conflicting(a) && sickFamily(b)) || (conflicting(b) && sickFamily(a))
}

// IdenticalKindOnly resolves only when both sides report the same kind;
// any genuine disagreement is left undetermined. Used when re-merging a
// re-delivered employer notice, where nothing new may win.
func IdenticalKindOnly(left, right Day) Day {
	if d, ok := resolveTrivial(left, right); ok {
		return d
	}
	return NewUndeterminedDay(left.Date, left.Source, left.EventID).replacing(left).replacing(right)
}

// resolveTrivial handles the cases every policy agrees on: implicit days
// always lose, undetermined days absorb everything, and same-kind pairs
// resolve by source precedence.
func resolveTrivial(left, right Day) (Day, bool) {
	switch {
	case left.Kind == KindUndetermined:
		return left.replacing(right), true
	case right.Kind == KindUndetermined:
		return right.replacing(left), true
	case left.Kind == KindImplicit && right.Kind == KindImplicit:
		return bySource(left, right), true
	case left.Kind == KindImplicit:
		return right.replacing(left), true
	case right.Kind == KindImplicit:
		return left.replacing(right), true
	case sickFamily(left.Kind) && sickFamily(right.Kind):
		// Weekend and weekday variants of the same sickness report are the
		// same classification for precedence purposes.
		return bySource(left, right), true
	case left.Kind == right.Kind:
		return bySource(left, right), true
	}
	return Day{}, false
}

// bySource resolves a same-kind conflict: the more specific source wins,
// and on a tie the left candidate is kept (the candidates are then
// interchangeable, so the choice cannot affect the merged result).
func bySource(left, right Day) Day {
	if sourceRank(right.Source) > sourceRank(left.Source) {
		return right.replacing(left)
	}
	return left.replacing(right)
}

// standardRank orders kinds for the Standard policy. A negative rank means
// the kind never resolves against a different kind.
func standardRank(k Kind) int {
	switch k {
	case KindEmployerOnlySick:
		return 5
	case KindSick, KindSickWeekend, KindSelfCertified:
		return 4
	case KindVacation:
		return 3
	case KindLeave, KindStudy:
		// Leave and study days conflict with sickness rather than losing
		// to it; only plain work days rank below them.
		return 2
	case KindWork:
		return 1
	default:
		return -1 // foreign, undetermined, implicit: handled elsewhere
	}
}

func sickFamily(k Kind) bool {
	switch k {
	case KindSick, KindSickWeekend, KindSelfCertified, KindEmployerOnlySick:
		return true
	}
	return false
}
