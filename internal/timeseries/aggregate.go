package timeseries

import (
	"fmt"
	"strings"
	"time"
)

// Period 수익률 집계 주기
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// ParsePeriod 문자열 → Period
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case Daily, Weekly, Monthly, Yearly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q (daily|weekly|monthly|yearly)", s)
	}
}

// Aggregate 일별 수익률을 주/월/연 단위 복리 수익률로 변환
// 각 구간의 결과는 구간 마지막 타임스탬프에 찍힌다
// 주 구간은 (연, 월, ISO 주) 기준이라 월 경계를 걸친 주는 두 구간으로 나뉜다
func Aggregate(returns ReturnSeries, period Period) (ReturnSeries, error) {
	if period == Daily {
		return returns, nil
	}

	key, err := bucketKey(period)
	if err != nil {
		return ReturnSeries{}, err
	}

	var out []Point
	growth := 1.0
	for i, p := range returns.points {
		growth *= 1 + p.Value
		last := i == len(returns.points)-1
		if last || key(returns.points[i+1].Time) != key(p.Time) {
			out = append(out, Point{Time: p.Time, Value: growth - 1})
			growth = 1.0
		}
	}
	return ReturnSeries{Series: Series{points: out}}, nil
}

func bucketKey(period Period) (func(time.Time) int, error) {
	switch period {
	case Weekly:
		return func(t time.Time) int {
			_, w := t.ISOWeek()
			return (t.Year()*100+int(t.Month()))*100 + w
		}, nil
	case Monthly:
		return func(t time.Time) int { return t.Year()*100 + int(t.Month()) }, nil
	case Yearly:
		return func(t time.Time) int { return t.Year() }, nil
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}
}
