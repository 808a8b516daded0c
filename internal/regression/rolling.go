package regression

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// BenchmarkFactor 단일 팩터 회귀에서 벤치마크 팩터 이름
const BenchmarkFactor = "benchmark"

// =============================================================================
// Output Types
// =============================================================================

// RegressionWindow 윈도우 하나의 회귀 결과
// ⭐ Time = 윈도우 바로 다음 관측 시점 (t[i+W]), 출력 길이 = len(series) - W
type RegressionWindow struct {
	Time         time.Time          `json:"time"`
	WindowStart  time.Time          `json:"window_start"`
	WindowEnd    time.Time          `json:"window_end"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
	Observations int                `json:"observations"`
	Undefined    bool               `json:"undefined"`
	Reason       error              `json:"-"` // ErrInsufficientData / ErrDegenerate
}

// BetaPoint 단일 팩터(벤치마크) 회귀 결과
type BetaPoint struct {
	Time         time.Time `json:"time"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	Alpha        float64   `json:"alpha"`
	Beta         float64   `json:"beta"`
	Observations int       `json:"observations"`
	Undefined    bool      `json:"undefined"`
	Reason       error     `json:"-"`
}

// MarshalJSON Undefined 값은 null, Reason은 문자열로 출력
func (w RegressionWindow) MarshalJSON() ([]byte, error) {
	coef := make(map[string]*float64, len(w.Coefficients))
	for name, v := range w.Coefficients {
		coef[name] = timeseries.Nullable(v)
	}
	return json.Marshal(struct {
		Time         time.Time           `json:"time"`
		WindowStart  time.Time           `json:"window_start"`
		WindowEnd    time.Time           `json:"window_end"`
		Intercept    *float64            `json:"intercept"`
		Coefficients map[string]*float64 `json:"coefficients"`
		Observations int                 `json:"observations"`
		Undefined    bool                `json:"undefined"`
		Reason       string              `json:"reason,omitempty"`
	}{
		Time:         w.Time,
		WindowStart:  w.WindowStart,
		WindowEnd:    w.WindowEnd,
		Intercept:    timeseries.Nullable(w.Intercept),
		Coefficients: coef,
		Observations: w.Observations,
		Undefined:    w.Undefined,
		Reason:       timeseries.ReasonText(w.Reason),
	})
}

// MarshalJSON Undefined 값은 null, Reason은 문자열로 출력
func (p BetaPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time         time.Time `json:"time"`
		WindowStart  time.Time `json:"window_start"`
		WindowEnd    time.Time `json:"window_end"`
		Alpha        *float64  `json:"alpha"`
		Beta         *float64  `json:"beta"`
		Observations int       `json:"observations"`
		Undefined    bool      `json:"undefined"`
		Reason       string    `json:"reason,omitempty"`
	}{
		Time:         p.Time,
		WindowStart:  p.WindowStart,
		WindowEnd:    p.WindowEnd,
		Alpha:        timeseries.Nullable(p.Alpha),
		Beta:         timeseries.Nullable(p.Beta),
		Observations: p.Observations,
		Undefined:    p.Undefined,
		Reason:       timeseries.ReasonText(p.Reason),
	})
}

// =============================================================================
// Rolling Regression Engine
// =============================================================================

// RollingBeta 벤치마크 대비 롤링 alpha/beta
func RollingBeta(series, benchmark timeseries.ReturnSeries, cfg Config) ([]BetaPoint, error) {
	windows, err := RollingMultiFactor(series, map[string]timeseries.ReturnSeries{BenchmarkFactor: benchmark}, cfg)
	if err != nil {
		return nil, err
	}

	out := make([]BetaPoint, len(windows))
	for i, w := range windows {
		out[i] = toBetaPoint(w)
	}
	return out, nil
}

// RollingMultiFactor 다중 팩터 롤링 회귀
// 반환 error는 fatal (윈도우 길이, 정렬 계약 위반). 윈도우별 계산 불가는 Undefined로 표시
func RollingMultiFactor(series timeseries.ReturnSeries, factors map[string]timeseries.ReturnSeries, cfg Config) ([]RegressionWindow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n, w := series.Len(), cfg.Window
	if w < 2 || w >= n {
		return nil, fmt.Errorf("%w: window %d needs 2 <= window < %d", timeseries.ErrInsufficientData, w, n)
	}

	p, err := newPanel(series, factors)
	if err != nil {
		return nil, err
	}

	fits := make([]fit, n-w)
	g := new(errgroup.Group)
	g.SetLimit(cfg.workers())
	for i := range fits {
		g.Go(func() error {
			fits[i] = p.fit(i, i+w)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]RegressionWindow, len(fits))
	for i, f := range fits {
		out[i] = p.window(f, cfg)
		out[i].Time = p.times[i+w]
		out[i].WindowStart = p.times[i]
		out[i].WindowEnd = p.times[i+w-1]
	}
	return out, nil
}

// AlphaBeta 전체 구간 alpha/beta
// Undefined 결과면 원인(non-fatal)을 error로도 반환한다
func AlphaBeta(series, benchmark timeseries.ReturnSeries, cfg Config) (BetaPoint, error) {
	w, err := MultiFactorAlpha(series, map[string]timeseries.ReturnSeries{BenchmarkFactor: benchmark}, cfg)
	return toBetaPoint(w), err
}

// MultiFactorAlpha 전체 구간 다중 팩터 회귀
func MultiFactorAlpha(series timeseries.ReturnSeries, factors map[string]timeseries.ReturnSeries, cfg Config) (RegressionWindow, error) {
	if err := cfg.Validate(); err != nil {
		return RegressionWindow{}, err
	}
	p, err := newPanel(series, factors)
	if err != nil {
		return RegressionWindow{}, err
	}

	n := series.Len()
	out := p.window(p.fit(0, n), cfg)
	if n > 0 {
		out.Time = p.times[n-1]
		out.WindowStart = p.times[0]
		out.WindowEnd = p.times[n-1]
	}
	return out, out.Reason
}

func toBetaPoint(w RegressionWindow) BetaPoint {
	beta, ok := w.Coefficients[BenchmarkFactor]
	if !ok {
		beta = timeseries.Undefined
	}
	return BetaPoint{
		Time:         w.Time,
		WindowStart:  w.WindowStart,
		WindowEnd:    w.WindowEnd,
		Alpha:        w.Intercept,
		Beta:         beta,
		Observations: w.Observations,
		Undefined:    w.Undefined,
		Reason:       w.Reason,
	}
}

// =============================================================================
// Panel - 응답/팩터 정렬
// =============================================================================

// panel 응답 타임스탬프 기준으로 정렬된 팩터 값 (관측 없음 = NaN)
type panel struct {
	times []time.Time
	y     []float64
	names []string    // 정렬된 팩터 이름
	x     [][]float64 // x[f][i]
}

func newPanel(series timeseries.ReturnSeries, factors map[string]timeseries.ReturnSeries) (*panel, error) {
	if len(factors) == 0 {
		return nil, ErrNoFactors
	}

	names := make([]string, 0, len(factors))
	for name := range factors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := timeseries.CheckCoverage(name, series.Series, factors[name].Series); err != nil {
			return nil, err
		}
	}

	p := &panel{
		times: series.Times(),
		y:     series.Values(),
		names: names,
		x:     make([][]float64, len(names)),
	}
	for f, name := range names {
		fs := factors[name]
		col := make([]float64, len(p.times))
		for i, t := range p.times {
			v, ok := fs.ValueAt(t)
			if !ok {
				v = math.NaN()
			}
			col[i] = v
		}
		p.x[f] = col
	}
	return p, nil
}

// fit [start, end) 구간 회귀. 팩터 값이 하나라도 없는 행은 제외
func (p *panel) fit(start, end int) fit {
	y := make([]float64, 0, end-start)
	x := make([][]float64, len(p.names))
	for f := range x {
		x[f] = make([]float64, 0, end-start)
	}

	for i := start; i < end; i++ {
		if !p.complete(i) {
			continue
		}
		y = append(y, p.y[i])
		for f := range x {
			x[f] = append(x[f], p.x[f][i])
		}
	}
	return fitOLS(y, x)
}

func (p *panel) complete(i int) bool {
	for f := range p.x {
		if math.IsNaN(p.x[f][i]) {
			return false
		}
	}
	return true
}

func (p *panel) window(f fit, cfg Config) RegressionWindow {
	coef := make(map[string]float64, len(p.names))
	for i, name := range p.names {
		coef[name] = f.coef[i]
	}
	return RegressionWindow{
		Intercept:    cfg.scaleAlpha(f.intercept),
		Coefficients: coef,
		Observations: f.observations,
		Undefined:    f.err != nil,
		Reason:       f.err,
	}
}
