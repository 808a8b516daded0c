package drawdown

import (
	"github.com/wonny/quantrisk/internal/timeseries"
)

// RecoveryOpen 미회복 drawdown의 recovery 표기
const RecoveryOpen = "open"

// Row drawdown 리포트 한 줄
type Row struct {
	Rank           int     `json:"rank"`
	NetDrawdownPct float64 `json:"net_drawdown_pct"`
	PeakDate       string  `json:"peak_date"`
	ValleyDate     string  `json:"valley_date"`
	RecoveryDate   string  `json:"recovery_date"`
	Duration       int     `json:"duration"`
}

// Table top-n drawdown 리포트
func Table(nav timeseries.ValueSeries, n int) []Row {
	episodes := TopDrawdowns(nav, n)
	rows := make([]Row, len(episodes))
	for i, e := range episodes {
		recovery := e.Recovery.Format(timeseries.DateLayout)
		if !e.Recovered {
			recovery = RecoveryOpen
		}
		rows[i] = Row{
			Rank:           i + 1,
			NetDrawdownPct: e.Magnitude * 100,
			PeakDate:       e.Peak.Format(timeseries.DateLayout),
			ValleyDate:     e.Valley.Format(timeseries.DateLayout),
			RecoveryDate:   recovery,
			Duration:       e.Duration,
		}
	}
	return rows
}

// Underwater 상대 수중 곡선 (NAV/R - 1, 항상 ≤ 0)
func Underwater(nav timeseries.ValueSeries) []timeseries.Point {
	out := make([]timeseries.Point, nav.Len())
	peak := 0.0
	for i := 0; i < nav.Len(); i++ {
		p := nav.At(i)
		if i == 0 || p.Value > peak {
			peak = p.Value
		}
		out[i] = timeseries.Point{Time: p.Time, Value: p.Value/peak - 1}
	}
	return out
}
