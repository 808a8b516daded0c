package cone

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// Phase 콘 구간
type Phase string

const (
	PhaseFit    Phase = "fit"    // 웜업 (추세 적합 구간)
	PhaseOOS    Phase = "oos"    // 표본 외 (관측 있음)
	PhaseFuture Phase = "future" // 미래 (관측 없음)
)

// minWarmUpPoints 변동성 추정에 필요한 최소 웜업 길이
const minWarmUpPoints = 3

// =============================================================================
// Output Types
// =============================================================================

// ConeBand 콘의 한 시점
// ⭐ 불변식: NumStdev ≥ 0 이면 Upper ≥ Line ≥ Lower (Line 부호와 무관). Actual은 future에서만 nil
type ConeBand struct {
	Time   time.Time `json:"time"`
	Phase  Phase     `json:"phase"`
	Actual *float64  `json:"actual,omitempty"` // NAV (시작 1.0)
	Line   float64   `json:"line"`
	Upper  float64   `json:"upper"`
	Lower  float64   `json:"lower"`
}

// FitSummary 웜업 추세 적합 결과
type FitSummary struct {
	Slope               float64   `json:"slope"`
	Intercept           float64   `json:"intercept"`
	RSquared            float64   `json:"r_squared"`
	WarmUpVol           float64   `json:"warm_up_vol"`            // 일별 NAV 변화율 모표준편차
	WarmUpVolAnnualized float64   `json:"warm_up_vol_annualized"` // WarmUpVol · √A
	WarmUpPoints        int       `json:"warm_up_points"`
	Cutoff              time.Time `json:"cutoff"` // 첫 OOS 시점 (없으면 zero)
}

// MarshalJSON R²가 정의되지 않으면 (평탄한 NAV) null로 출력
func (f FitSummary) MarshalJSON() ([]byte, error) {
	type alias FitSummary
	return json.Marshal(struct {
		alias
		RSquared *float64 `json:"r_squared"`
	}{alias(f), timeseries.Nullable(f.RSquared)})
}

// Cone 성과 콘 전체
type Cone struct {
	Bands       []ConeBand `json:"bands"`
	Fit         FitSummary `json:"fit"`
	OOSShift    float64    `json:"oos_shift"`    // 웜업 마지막 시점 actual - line
	FutureShift float64    `json:"future_shift"` // 마지막 관측 시점 actual - line
}

// Phase 특정 구간의 밴드만 추출
func (c *Cone) Phase(p Phase) []ConeBand {
	var out []ConeBand
	for _, b := range c.Bands {
		if b.Phase == p {
			out = append(out, b)
		}
	}
	return out
}

// =============================================================================
// Projector
// =============================================================================

// trend NAV = slope·x + intercept
type trend struct {
	slope, intercept float64
}

func (t trend) at(x int) float64 {
	return t.slope*float64(x) + t.intercept
}

func fitTrend(xs, nav []float64) trend {
	intercept, slope := stat.LinearRegression(xs, nav, nil, false)
	return trend{slope: slope, intercept: intercept}
}

// popStd 모표준편차 (ddof = 0)
func popStd(x []float64) float64 {
	return math.Sqrt(stat.PopVariance(x, nil))
}

// band 반폭 = |line|·width
func band(t time.Time, phase Phase, actual *float64, line, width float64) ConeBand {
	half := math.Abs(line) * width
	return ConeBand{
		Time:   t,
		Phase:  phase,
		Actual: actual,
		Line:   line,
		Upper:  line + half,
		Lower:  line - half,
	}
}

// Project 웜업 구간에 선형 추세를 적합하고 표본 외 구간과 미래로 변동성 밴드를 투영
//
//  1. fit: 웜업 NAV를 0부터의 인덱스에 회귀, 밴드 = line ± |line|·k·σ·√A
//  2. oos: 웜업 마지막 시점에서 actual과 line이 만나도록 평행 이동, 밴드 = line ± |line|·k·σ·√d
//  3. future: 마지막 관측 다음 영업일부터 H일, 마지막 관측에서 다시 평행 이동
func Project(returns timeseries.ReturnSeries, cfg Config) (*Cone, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := cfg.warmUpPoints(returns)
	if m < minWarmUpPoints {
		return nil, fmt.Errorf("%w: warm-up has %d points, need at least %d",
			timeseries.ErrInsufficientData, m, minWarmUpPoints)
	}

	navSeries, err := returns.NAV(1)
	if err != nil {
		return nil, fmt.Errorf("cone: %w", err)
	}

	n := navSeries.Len()
	times := navSeries.Times()
	nav := navSeries.Values()
	pct := navSeries.PctChange().Values() // pct[i] = nav[i+1]/nav[i] - 1

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	// 1. 웜업 적합
	fitLine := fitTrend(xs[:m], nav[:m])
	sigma := popStd(pct[:m-1])
	width := cfg.NumStdev * sigma * math.Sqrt(cfg.VolAnnualizationFactor)

	c := &Cone{
		Bands: make([]ConeBand, 0, n+cfg.FutureHorizonDays),
		Fit: FitSummary{
			Slope:               fitLine.slope,
			Intercept:           fitLine.intercept,
			RSquared:            stat.RSquared(xs[:m], nav[:m], nil, fitLine.intercept, fitLine.slope),
			WarmUpVol:           sigma,
			WarmUpVolAnnualized: sigma * math.Sqrt(cfg.VolAnnualizationFactor),
			WarmUpPoints:        m,
		},
	}
	if m < n {
		c.Fit.Cutoff = times[m]
	}

	for j := 0; j < m; j++ {
		actual := nav[j]
		c.Bands = append(c.Bands, band(times[j], PhaseFit, &actual, fitLine.at(j), width))
	}

	// 2. 표본 외 구간
	current := fitLine // 마지막으로 사용한 추세
	shift := 0.0       // 마지막 행에 적용된 누적 이동량
	if m < n {
		c.OOSShift = nav[m-1] - fitLine.at(m-1)
		shift = c.OOSShift

		for p, d := m, 1; p < n; p, d = p+1, d+1 {
			if !cfg.ExtendFitTrend {
				current = fitTrend(xs[:p+1], nav[:p+1])
			}

			vol := sigma
			if cfg.UpdateVolRolling {
				vol = popStd(pct[:p])
			}

			actual := nav[p]
			line := current.at(p) + shift
			c.Bands = append(c.Bands, band(times[p], PhaseOOS, &actual, line,
				cfg.NumStdev*vol*math.Sqrt(float64(d))))
		}
	}

	// 3. 미래 콘
	if cfg.MakeFutureCone && cfg.FutureHorizonDays > 0 {
		last := c.Bands[len(c.Bands)-1]
		c.FutureShift = *last.Actual - last.Line
		shift += c.FutureShift

		for d, t := range timeseries.BusinessDaysAfter(times[n-1], cfg.FutureHorizonDays) {
			line := current.at(n+d) + shift
			c.Bands = append(c.Bands, band(t, PhaseFuture, nil, line,
				cfg.NumStdev*sigma*math.Sqrt(float64(d+1))))
		}
	}

	return c, nil
}
