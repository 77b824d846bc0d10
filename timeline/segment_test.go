package timeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/benefit-engine/timeline"
)

// =============================================================================
// EPISODE SEGMENTATION
// =============================================================================
// The boundary rule: 16 or more consecutive non-sick calendar days close an
// episode. Dates are from 2018: Jan 1 is a Monday.

func TestEpisodes_SixteenDayGap_SplitsIntoTwoEpisodes(t *testing.T) {
	// GIVEN: 20 sick days, then 16 non-sick days (Jan 21 - Feb 5), then
	//        10 sick days
	// THEN: Exactly two episodes, trimmed to their sick cores

	tl := sick(jan(1), jan(20)).
		Merge(work(jan(21), feb(5)), timeline.Standard).
		Merge(sick(feb(6), feb(15)), timeline.Standard)

	episodes := tl.Episodes()

	require.Len(t, episodes, 2)
	assert.Equal(t, jan(1), episodes[0].First())
	assert.Equal(t, jan(19), episodes[0].Last(), "trailing sick weekend is trimmed")
	assert.Equal(t, feb(6), episodes[1].First())
	assert.Equal(t, feb(15), episodes[1].Last())
}

func TestEpisodes_FifteenDayGap_StaysOneEpisode(t *testing.T) {
	// GIVEN: The same shape with a 15-day gap (Jan 21 - Feb 4)
	// THEN: One episode spanning both sick stretches

	tl := sick(jan(1), jan(20)).
		Merge(work(jan(21), feb(4)), timeline.Standard).
		Merge(sick(feb(5), feb(14)), timeline.Standard)

	episodes := tl.Episodes()

	require.Len(t, episodes, 1)
	assert.Equal(t, jan(1), episodes[0].First())
	assert.Equal(t, feb(14), episodes[0].Last())
}

func TestEpisodes_WeekendAdjacentToSickDays_DoesNotBreakTheRun(t *testing.T) {
	// GIVEN: Sick Mon-Fri, free weekend, sick the next week
	// THEN: One episode; the weekend neither breaks nor counts

	tl := sick(jan(1), jan(5)).
		Merge(sick(jan(8), jan(12)), timeline.Standard)

	episodes := tl.Episodes()

	require.Len(t, episodes, 1)
	assert.Equal(t, jan(1), episodes[0].First())
	assert.Equal(t, jan(12), episodes[0].Last())
}

func TestEpisodes_VacationAfterSickDays_DoesNotCountTowardTheGap(t *testing.T) {
	// GIVEN: 5 sick days, 15 vacation days directly after, then sick again
	// WHEN: A non-sick weekday never follows the vacation
	// THEN: The vacation counts nothing and the episode holds together

	tl := sick(jan(1), jan(5)).
		Merge(vacation(jan(8), jan(26)), timeline.Standard).
		Merge(sick(jan(29), feb(2)), timeline.Standard)

	episodes := tl.Episodes()

	require.Len(t, episodes, 1)
}

func TestEpisodes_NoSickDays_YieldsSingleEmptyEpisode(t *testing.T) {
	episodes := work(jan(1), jan(12)).Episodes()

	require.Len(t, episodes, 1)
	assert.True(t, episodes[0].IsEmpty())
}

func TestEpisodes_Restartable(t *testing.T) {
	// Pure function of the input: running it twice gives identical output.

	tl := sick(jan(1), jan(20)).
		Merge(work(jan(21), feb(5)), timeline.Standard).
		Merge(sick(feb(6), feb(15)), timeline.Standard)

	first := tl.Episodes()
	second := tl.Episodes()

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].Equal(second[i]))
	}
}
