package timeseries

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout 날짜 표기 포맷 (리포트/CSV/API 공통)
const DateLayout = "2006-01-02"

// Point 시계열의 한 점
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// MarshalJSON Undefined 값은 null로 출력
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time  time.Time `json:"time"`
		Value *float64  `json:"value"`
	}{p.Time, Nullable(p.Value)})
}

// =============================================================================
// Series - 불변 시계열 (공통 기반)
// =============================================================================

// Series 시간 오름차순으로 정렬된 불변 시계열
// ⭐ 생성 후 수정 불가: 접근자는 복사본을 반환하고, Slice는 같은 배열을 공유한다
type Series struct {
	points []Point
}

func newSeries(points []Point) (Series, error) {
	cp := make([]Point, len(points))
	copy(cp, points)

	for i, p := range cp {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return Series{}, fmt.Errorf("%w: index %d (%s)", ErrInvalidValue, i, p.Time.Format(DateLayout))
		}
		if i > 0 && !p.Time.After(cp[i-1].Time) {
			return Series{}, fmt.Errorf("%w: index %d (%s) after %s",
				ErrUnordered, i, p.Time.Format(DateLayout), cp[i-1].Time.Format(DateLayout))
		}
	}
	return Series{points: cp}, nil
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.points) }

// At returns the i-th point.
func (s Series) At(i int) Point { return s.points[i] }

// Time returns the i-th timestamp.
func (s Series) Time(i int) time.Time { return s.points[i].Time }

// Value returns the i-th value.
func (s Series) Value(i int) float64 { return s.points[i].Value }

// First 첫 번째 점 (빈 시계열이면 zero Point)
func (s Series) First() Point {
	if len(s.points) == 0 {
		return Point{}
	}
	return s.points[0]
}

// Last 마지막 점 (빈 시계열이면 zero Point)
func (s Series) Last() Point {
	if len(s.points) == 0 {
		return Point{}
	}
	return s.points[len(s.points)-1]
}

// Points 전체 점 복사본
func (s Series) Points() []Point {
	cp := make([]Point, len(s.points))
	copy(cp, s.points)
	return cp
}

// Times 타임스탬프 복사본
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Time
	}
	return out
}

// Values 값 복사본
func (s Series) Values() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// Slice returns points [i, j).
func (s Series) Slice(i, j int) Series {
	return Series{points: s.points[i:j:j]}
}

// Index 타임스탬프 t의 위치 (이진 탐색)
func (s Series) Index(t time.Time) (int, bool) {
	i := sort.Search(len(s.points), func(k int) bool {
		return !s.points[k].Time.Before(t)
	})
	if i < len(s.points) && s.points[i].Time.Equal(t) {
		return i, true
	}
	return i, false
}

// ValueAt 타임스탬프 t의 값
func (s Series) ValueAt(t time.Time) (float64, bool) {
	i, ok := s.Index(t)
	if !ok {
		return 0, false
	}
	return s.points[i].Value, true
}

// CountBefore t보다 엄격히 이전인 점의 개수
func (s Series) CountBefore(t time.Time) int {
	i, _ := s.Index(t)
	return i
}

// =============================================================================
// ReturnSeries - 기간 단순 수익률
// =============================================================================

// ReturnSeries 기간별 단순 수익률 시계열 (예: 일별)
type ReturnSeries struct {
	Series
}

// NewReturnSeries 수익률 시계열 생성 (타임스탬프 엄격 증가, 유한값)
func NewReturnSeries(points []Point) (ReturnSeries, error) {
	s, err := newSeries(points)
	if err != nil {
		return ReturnSeries{}, fmt.Errorf("return series: %w", err)
	}
	return ReturnSeries{Series: s}, nil
}

// ReturnSeriesFrom builds a ReturnSeries from parallel slices.
func ReturnSeriesFrom(times []time.Time, values []float64) (ReturnSeries, error) {
	if len(times) != len(values) {
		return ReturnSeries{}, fmt.Errorf("return series: %d timestamps for %d values", len(times), len(values))
	}
	points := make([]Point, len(times))
	for i := range times {
		points[i] = Point{Time: times[i], Value: values[i]}
	}
	return NewReturnSeries(points)
}

// Slice returns returns [i, j).
func (r ReturnSeries) Slice(i, j int) ReturnSeries {
	return ReturnSeries{Series: r.Series.Slice(i, j)}
}

// Before t보다 엄격히 이전 구간
func (r ReturnSeries) Before(t time.Time) ReturnSeries {
	return r.Slice(0, r.CountBefore(t))
}

// Between from ≤ t ≤ to 구간 (양 끝 포함)
func (r ReturnSeries) Between(from, to time.Time) ReturnSeries {
	i := r.CountBefore(from)
	j, ok := r.Index(to)
	if ok {
		j++
	}
	if j < i {
		j = i
	}
	return r.Slice(i, j)
}

// NAV 누적 가치 곡선: NAV(t_i) = start · Π_{k≤i}(1 + r_k)
// 타임스탬프는 수익률과 동일. start ≤ 0 또는 NAV가 0 이하로 떨어지면 ErrNonPositiveValue
func (r ReturnSeries) NAV(start float64) (ValueSeries, error) {
	if !(start > 0) {
		return ValueSeries{}, fmt.Errorf("%w: start value %v", ErrNonPositiveValue, start)
	}

	points := make([]Point, len(r.points))
	nav := start
	for i, p := range r.points {
		nav *= 1 + p.Value
		if !(nav > 0) {
			return ValueSeries{}, fmt.Errorf("%w: NAV %v at %s", ErrNonPositiveValue, nav, p.Time.Format(DateLayout))
		}
		points[i] = Point{Time: p.Time, Value: nav}
	}
	return ValueSeries{Series: Series{points: points}}, nil
}

// =============================================================================
// ValueSeries - 누적 가치 곡선 (NAV)
// =============================================================================

// ValueSeries NAV 곡선. 불변식: 모든 값 > 0
type ValueSeries struct {
	Series
}

// NewValueSeries NAV 시계열 생성
func NewValueSeries(points []Point) (ValueSeries, error) {
	s, err := newSeries(points)
	if err != nil {
		return ValueSeries{}, fmt.Errorf("value series: %w", err)
	}
	for i, p := range s.points {
		if !(p.Value > 0) {
			return ValueSeries{}, fmt.Errorf("value series: %w: index %d (%s) = %v",
				ErrNonPositiveValue, i, p.Time.Format(DateLayout), p.Value)
		}
	}
	return ValueSeries{Series: s}, nil
}

// ValueSeriesFrom builds a ValueSeries from parallel slices.
func ValueSeriesFrom(times []time.Time, values []float64) (ValueSeries, error) {
	if len(times) != len(values) {
		return ValueSeries{}, fmt.Errorf("value series: %d timestamps for %d values", len(times), len(values))
	}
	points := make([]Point, len(times))
	for i := range times {
		points[i] = Point{Time: times[i], Value: values[i]}
	}
	return NewValueSeries(points)
}

// Slice returns values [i, j).
func (v ValueSeries) Slice(i, j int) ValueSeries {
	return ValueSeries{Series: v.Series.Slice(i, j)}
}

// PctChange 퍼센트 변화 (첫 점은 제외되므로 길이 n-1)
func (v ValueSeries) PctChange() ReturnSeries {
	if len(v.points) < 2 {
		return ReturnSeries{}
	}
	points := make([]Point, len(v.points)-1)
	for i := 1; i < len(v.points); i++ {
		points[i-1] = Point{
			Time:  v.points[i].Time,
			Value: v.points[i].Value/v.points[i-1].Value - 1,
		}
	}
	return ReturnSeries{Series: Series{points: points}}
}
