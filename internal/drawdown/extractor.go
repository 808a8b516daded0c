package drawdown

import (
	"sort"
	"time"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// =============================================================================
// Drawdown Episode
// =============================================================================

// Episode 하나의 peak → valley → recovery 구간
// ⭐ 불변식: Peak ≤ Valley ≤ Recovery, 0 ≤ Magnitude < 1
type Episode struct {
	Peak        time.Time `json:"peak"`
	Valley      time.Time `json:"valley"`
	Recovery    time.Time `json:"recovery"`     // 미회복이면 시계열 마지막 시점
	PeakValue   float64   `json:"peak_value"`   // NAV(peak)
	ValleyValue float64   `json:"valley_value"` // NAV(valley)
	Magnitude   float64   `json:"magnitude"`    // (NAV(peak) - NAV(valley)) / NAV(peak)
	Duration    int       `json:"duration"`     // peak~recovery 영업일 수 (양 끝 포함)
	Periods     int       `json:"periods"`      // peak~recovery 관측 간격 수
	Recovered   bool      `json:"recovered"`    // false = 열린 drawdown

	peakIdx, valleyIdx, recoveryIdx int
}

// Overlaps 두 구간의 내부가 겹치는지 (끝점 하나 공유는 겹침이 아님)
func (e Episode) Overlaps(o Episode) bool {
	return e.peakIdx < o.recoveryIdx && o.peakIdx < e.recoveryIdx
}

// =============================================================================
// Extractor
// =============================================================================

// interval 제외된 [start, end] 인덱스 구간 (양 끝 포함)
type interval struct {
	start, end int
}

// extractor 한 번의 TopDrawdowns 호출 상태
type extractor struct {
	nav        []float64
	runMax     []float64
	underwater []float64
	excluded   []interval // start 기준 정렬 유지
}

func newExtractor(nav timeseries.ValueSeries) *extractor {
	values := nav.Values()
	n := len(values)

	ex := &extractor{
		nav:        values,
		runMax:     make([]float64, n),
		underwater: make([]float64, n),
	}

	// R(t) = max(NAV(0..t)), U(t) = R(t) - NAV(t)
	peak := 0.0
	for i, v := range values {
		if i == 0 || v > peak {
			peak = v
		}
		ex.runMax[i] = peak
		ex.underwater[i] = peak - v
	}
	return ex
}

// TopDrawdowns NAV 곡선에서 가장 큰 drawdown n개를 큰 순서대로 추출
// 구간이 모자라면 n개보다 적게 반환 (에러 아님)
func TopDrawdowns(nav timeseries.ValueSeries, n int) []Episode {
	if n <= 0 || nav.Len() < 2 {
		return []Episode{}
	}

	ex := newExtractor(nav)
	times := nav.Times()

	// 에피소드는 겹치지 않으므로 nav.Len()/2+1개를 넘을 수 없다
	episodes := make([]Episode, 0, min(n, nav.Len()/2+1))
	for len(episodes) < n {
		valley, ok := ex.deepestValley()
		if !ok {
			break
		}

		peak := ex.findPeak(valley)
		recovery, recovered := ex.findRecovery(valley)

		episodes = append(episodes, ex.episode(times, peak, valley, recovery, recovered))
		ex.exclude(peak, recovery)
	}
	return episodes
}

// MaxDrawdown 가장 큰 drawdown 하나
func MaxDrawdown(nav timeseries.ValueSeries) (Episode, bool) {
	top := TopDrawdowns(nav, 1)
	if len(top) == 0 {
		return Episode{}, false
	}
	return top[0], true
}

// deepestValley 제외 구간 밖에서 깊이(U/R)가 가장 큰 인덱스 (동률이면 먼저 나온 쪽)
// R은 하나의 수중 구간 안에서 일정하므로 구간 내 valley는 U의 argmax와 같다
func (ex *extractor) deepestValley() (int, bool) {
	best, bestDepth := -1, 0.0

	next := 0 // 다음에 확인할 제외 구간
	for i := 0; i < len(ex.underwater); i++ {
		for next < len(ex.excluded) && ex.excluded[next].end < i {
			next++
		}
		if next < len(ex.excluded) && i >= ex.excluded[next].start {
			i = ex.excluded[next].end
			continue
		}

		u := ex.underwater[i]
		if u <= 0 {
			continue
		}
		depth := u / ex.runMax[i]
		if depth > bestDepth {
			best, bestDepth = i, depth
		}
	}
	return best, best >= 0
}

// findPeak valley 이전 마지막 U = 0 지점
// U = 0 지점이 없으면 시계열 첫 인덱스를 암묵적 0 지점으로 사용한다
func (ex *extractor) findPeak(valley int) int {
	return findPeak(ex.underwater, valley)
}

func findPeak(underwater []float64, valley int) int {
	for i := valley; i >= 0; i-- {
		if underwater[i] == 0 {
			return i
		}
	}
	return 0
}

// findRecovery valley 이후 첫 U = 0 지점, 없으면 시계열 마지막 (미회복)
func (ex *extractor) findRecovery(valley int) (int, bool) {
	for i := valley; i < len(ex.underwater); i++ {
		if ex.underwater[i] == 0 {
			return i, true
		}
	}
	return len(ex.underwater) - 1, false
}

// exclude [start, end]를 제외 구간에 추가 (정렬 유지)
func (ex *extractor) exclude(start, end int) {
	iv := interval{start: start, end: end}
	pos := sort.Search(len(ex.excluded), func(k int) bool {
		return ex.excluded[k].start > start
	})
	ex.excluded = append(ex.excluded, interval{})
	copy(ex.excluded[pos+1:], ex.excluded[pos:])
	ex.excluded[pos] = iv
}

func (ex *extractor) episode(times []time.Time, peak, valley, recovery int, recovered bool) Episode {
	peakValue := ex.nav[peak]
	valleyValue := ex.nav[valley]

	magnitude := timeseries.Undefined
	if peakValue > 0 {
		magnitude = (peakValue - valleyValue) / peakValue
	}

	return Episode{
		Peak:        times[peak],
		Valley:      times[valley],
		Recovery:    times[recovery],
		PeakValue:   peakValue,
		ValleyValue: valleyValue,
		Magnitude:   magnitude,
		Duration:    timeseries.BusinessDaysBetween(times[peak], times[recovery]),
		Periods:     recovery - peak,
		Recovered:   recovered,
		peakIdx:     peak,
		valleyIdx:   valley,
		recoveryIdx: recovery,
	}
}
