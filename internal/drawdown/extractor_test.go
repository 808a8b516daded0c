package drawdown

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantrisk/internal/timeseries"
)

var baseDay = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func navFrom(t *testing.T, values ...float64) timeseries.ValueSeries {
	t.Helper()
	times := make([]time.Time, len(values))
	for i := range values {
		times[i] = baseDay.AddDate(0, 0, i)
	}
	nav, err := timeseries.ValueSeriesFrom(times, values)
	require.NoError(t, err)
	return nav
}

func TestTopDrawdowns_DeclineAndFullRecovery(t *testing.T) {
	// 10기간 동안 -20%, 다음 10기간 동안 완전 회복
	var values []float64
	for i := 0; i <= 10; i++ {
		values = append(values, 100-2*float64(i))
	}
	for k := 1; k <= 10; k++ {
		values = append(values, 80+2*float64(k))
	}
	values = append(values, 101, 102)

	nav := navFrom(t, values...)
	episodes := TopDrawdowns(nav, 5)

	require.Len(t, episodes, 1)
	e := episodes[0]
	assert.InDelta(t, 0.20, e.Magnitude, 1e-12)
	assert.Equal(t, baseDay, e.Peak)
	assert.Equal(t, baseDay.AddDate(0, 0, 10), e.Valley)
	assert.Equal(t, baseDay.AddDate(0, 0, 20), e.Recovery)
	assert.True(t, e.Recovered)
	assert.Equal(t, 20, e.Periods)
	assert.Equal(t, timeseries.BusinessDaysBetween(e.Peak, e.Recovery), e.Duration)
}

func TestTopDrawdowns_OrderedAndNonOverlapping(t *testing.T) {
	nav := navFrom(t,
		100, 95, 100, // 5%
		102, 80, 90, 102, // 21.6%
		103, 93, 103, // 9.7%
		104, 103, 104, // ~1%
	)

	episodes := TopDrawdowns(nav, 10)
	require.Len(t, episodes, 4, "fewer episodes than requested is not an error")

	assert.InDelta(t, 22.0/102.0, episodes[0].Magnitude, 1e-12)
	assert.InDelta(t, 10.0/103.0, episodes[1].Magnitude, 1e-12)
	assert.InDelta(t, 0.05, episodes[2].Magnitude, 1e-12)
	assert.InDelta(t, 1.0/104.0, episodes[3].Magnitude, 1e-12)

	assertInvariants(t, episodes)
}

func TestTopDrawdowns_AdjacentEpisodesShareBoundary(t *testing.T) {
	nav := navFrom(t, 100, 90, 100, 95, 100)

	episodes := TopDrawdowns(nav, 2)
	require.Len(t, episodes, 2)

	assert.Equal(t, baseDay, episodes[0].Peak)
	assert.Equal(t, baseDay.AddDate(0, 0, 2), episodes[0].Recovery)

	// 두 번째 구간의 peak는 첫 구간의 recovery 지점
	assert.Equal(t, baseDay.AddDate(0, 0, 2), episodes[1].Peak)
	assert.Equal(t, baseDay.AddDate(0, 0, 4), episodes[1].Recovery)
	assert.InDelta(t, 0.05, episodes[1].Magnitude, 1e-12)
	assert.False(t, episodes[0].Overlaps(episodes[1]))
}

func TestTopDrawdowns_OpenDrawdown(t *testing.T) {
	nav := navFrom(t, 100, 110, 90, 95)

	e, ok := MaxDrawdown(nav)
	require.True(t, ok)

	assert.False(t, e.Recovered)
	assert.Equal(t, baseDay.AddDate(0, 0, 1), e.Peak)
	assert.Equal(t, baseDay.AddDate(0, 0, 2), e.Valley)
	assert.Equal(t, baseDay.AddDate(0, 0, 3), e.Recovery, "recovery falls back to series end")
	assert.InDelta(t, 20.0/110.0, e.Magnitude, 1e-12)
}

func TestTopDrawdowns_DrawdownFromSeriesOrigin(t *testing.T) {
	// 첫 점부터 하락: peak은 시계열 시작
	nav := navFrom(t, 100, 70, 80, 60, 75)

	episodes := TopDrawdowns(nav, 3)
	require.Len(t, episodes, 1)
	assert.Equal(t, baseDay, episodes[0].Peak)
	assert.Equal(t, baseDay.AddDate(0, 0, 3), episodes[0].Valley)
	assert.InDelta(t, 0.40, episodes[0].Magnitude, 1e-12)
	assert.False(t, episodes[0].Recovered)
}

func TestFindPeak_ImplicitAnchor(t *testing.T) {
	// U = 0 지점이 valley 앞에 없으면 첫 인덱스가 peak
	underwater := []float64{0.5, 1.0, 2.0, 1.5}
	assert.Equal(t, 0, findPeak(underwater, 2))

	underwater = []float64{0, 1, 0, 3, 1}
	assert.Equal(t, 2, findPeak(underwater, 3))
}

func TestTopDrawdowns_RankedByMagnitudeNotAbsoluteLoss(t *testing.T) {
	// 작은 NAV에서 20% 하락 vs 큰 NAV에서 15% 하락 (절대 손실은 후자가 큼)
	nav := navFrom(t, 10, 8, 10, 100, 85, 100)

	episodes := TopDrawdowns(nav, 2)
	require.Len(t, episodes, 2)
	assert.InDelta(t, 0.20, episodes[0].Magnitude, 1e-12)
	assert.InDelta(t, 0.15, episodes[1].Magnitude, 1e-12)
}

func TestTopDrawdowns_Degenerate(t *testing.T) {
	assert.Empty(t, TopDrawdowns(navFrom(t, 1, 2, 3, 4), 5), "monotone series has no drawdown")
	assert.Empty(t, TopDrawdowns(navFrom(t, 5), 5))
	assert.Empty(t, TopDrawdowns(navFrom(t, 5, 4, 5), 0))

	_, ok := MaxDrawdown(navFrom(t, 1, 1, 1))
	assert.False(t, ok)
}

func TestTopDrawdowns_HugeN(t *testing.T) {
	nav := navFrom(t, 1, 0.9, 1, 0.8, 1)

	var episodes []Episode
	require.NotPanics(t, func() { episodes = TopDrawdowns(nav, math.MaxInt) })
	require.Len(t, episodes, 2)
	assert.InDelta(t, 0.2, episodes[0].Magnitude, 1e-12)
	assert.InDelta(t, 0.1, episodes[1].Magnitude, 1e-12)
	assertInvariants(t, episodes)

	assert.Len(t, Table(nav, math.MaxInt), 2)
}

func TestTopDrawdowns_RandomWalkInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	returns := make([]float64, 750)
	times := make([]time.Time, len(returns))
	for i := range returns {
		returns[i] = rng.NormFloat64() * 0.015
		times[i] = baseDay.AddDate(0, 0, i)
	}
	rs, err := timeseries.ReturnSeriesFrom(times, returns)
	require.NoError(t, err)
	nav, err := rs.NAV(1)
	require.NoError(t, err)

	episodes := TopDrawdowns(nav, 10)
	require.NotEmpty(t, episodes)
	assertInvariants(t, episodes)

	// 최대 drawdown은 단순 루프 결과와 일치
	peak, maxDD := 0.0, 0.0
	for i, v := range nav.Values() {
		if i == 0 || v > peak {
			peak = v
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	assert.InDelta(t, maxDD, episodes[0].Magnitude, 1e-12)
}

func TestTable(t *testing.T) {
	nav := navFrom(t, 100, 90, 100, 110, 99)

	rows := Table(nav, 5)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Rank)
	assert.InDelta(t, 10.0, rows[0].NetDrawdownPct, 1e-9)
	assert.Equal(t, "2024-01-01", rows[0].PeakDate)
	assert.Equal(t, "2024-01-03", rows[0].RecoveryDate)
	assert.Equal(t, RecoveryOpen, rows[1].RecoveryDate)

	uw := Underwater(nav)
	require.Len(t, uw, 5)
	assert.InDelta(t, -0.1, uw[1].Value, 1e-12)
	assert.InDelta(t, 0.0, uw[3].Value, 1e-12)
	assert.InDelta(t, -0.1, uw[4].Value, 1e-12)
}

func assertInvariants(t *testing.T, episodes []Episode) {
	t.Helper()
	for i, e := range episodes {
		assert.GreaterOrEqual(t, e.Magnitude, 0.0)
		assert.Less(t, e.Magnitude, 1.0)
		assert.False(t, e.Valley.Before(e.Peak), "episode %d: valley before peak", i)
		assert.False(t, e.Recovery.Before(e.Valley), "episode %d: recovery before valley", i)

		if i > 0 {
			assert.GreaterOrEqual(t, episodes[i-1].Magnitude, e.Magnitude, "episode %d out of order", i)
		}
		for j := i + 1; j < len(episodes); j++ {
			assert.False(t, e.Overlaps(episodes[j]), "episodes %d and %d overlap", i, j)
		}
	}
}
