package timeseries

import (
	"strings"
	"time"
)

// IsBusinessDay 월~금 여부 (공휴일 달력은 사용하지 않음)
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextBusinessDay t 다음 영업일
func NextBusinessDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for !IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// BusinessDaysAfter t 이후 n개의 영업일 (t 자체는 포함하지 않음)
func BusinessDaysAfter(t time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	cur := t
	for len(out) < n {
		cur = NextBusinessDay(cur)
		out = append(out, cur)
	}
	return out
}

// BusinessDaysBetween from~to 구간의 영업일 수 (양 끝 포함)
func BusinessDaysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	start := truncateDay(from)
	end := truncateDay(to)

	days := int(end.Sub(start).Hours()/24) + 1
	weeks := days / 7
	count := weeks * 5

	cur := start.AddDate(0, 0, weeks*7)
	for !cur.After(end) {
		if IsBusinessDay(cur) {
			count++
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return count
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate YYYY-MM-DD 또는 RFC3339
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
