package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/quantrisk/internal/drawdown"
	"github.com/wonny/quantrisk/internal/timeseries"
)

// =============================================================================
// Engine - 순수 계산기
// =============================================================================

// Engine 성과/리스크 통계 엔진 (순수 계산기)
// ⭐ SSOT: 데이터 로딩과 리포트 조립은 상위 레이어(audit, api, cmd)에서 담당
// internal/risk는 순수 계산만 담당
type Engine struct{}

// NewEngine 새 리스크 엔진 생성
func NewEngine() *Engine {
	return &Engine{}
}

// =============================================================================
// VaR/CVaR Calculation (Pure)
// =============================================================================

// VaR Historical VaR 계산
// returns: 일별 수익률 (양수=이익, 음수=손실)
// confidence: 신뢰수준 (예: 0.95, 0.99)
// 반환: VaRResult (손실을 양수로 표현)
func (e *Engine) VaR(returns []float64, confidence float64) VaRResult {
	return HistoricalVaR(returns, confidence)
}

// ParametricVaR 정규분포 가정 VaR 계산
func (e *Engine) ParametricVaR(mean, stdDev, confidence float64) VaRResult {
	return NormalVaR(mean, stdDev, confidence)
}

// =============================================================================
// Performance Statistics (Pure)
// =============================================================================

// AnnualReturn 연 수익률
func (e *Engine) AnnualReturn(returns timeseries.ReturnSeries, style ReturnStyle) (float64, error) {
	n := returns.Len()
	if n < 1 {
		return timeseries.Undefined, fmt.Errorf("annual return: %w", timeseries.ErrInsufficientData)
	}
	values := returns.Values()

	switch style {
	case StyleCalendar:
		growth := 1.0
		for _, r := range values {
			growth *= 1 + r
		}
		years := float64(n) / TradingDaysPerYear
		return (growth - 1) / years, nil
	case StyleCompound:
		return math.Pow(1+stat.Mean(values, nil), TradingDaysPerYear) - 1, nil
	case StyleArithmetic:
		return stat.Mean(values, nil) * TradingDaysPerYear, nil
	default:
		return timeseries.Undefined, fmt.Errorf("%w: unknown return style %q", timeseries.ErrInvalidConfig, style)
	}
}

// AnnualVolatility 연율화 변동성 (표본 표준편차 · √252)
func (e *Engine) AnnualVolatility(returns timeseries.ReturnSeries) (float64, error) {
	if returns.Len() < 2 {
		return timeseries.Undefined, fmt.Errorf("annual volatility: %w", timeseries.ErrInsufficientData)
	}
	return stat.StdDev(returns.Values(), nil) * math.Sqrt(TradingDaysPerYear), nil
}

// SharpeRatio 연 수익률 / 연 변동성 (무위험 수익률 0)
func (e *Engine) SharpeRatio(returns timeseries.ReturnSeries, style ReturnStyle) (float64, error) {
	ret, err := e.AnnualReturn(returns, style)
	if err != nil {
		return timeseries.Undefined, err
	}
	vol, err := e.AnnualVolatility(returns)
	if err != nil {
		return timeseries.Undefined, err
	}
	return ratio("sharpe ratio", ret, vol)
}

// MaxDrawdown 최대 낙폭 (손실 양수, 낙폭 없으면 0)
func (e *Engine) MaxDrawdown(returns timeseries.ReturnSeries) (float64, error) {
	if returns.Len() < 1 {
		return timeseries.Undefined, fmt.Errorf("max drawdown: %w", timeseries.ErrInsufficientData)
	}
	nav, err := returns.NAV(1)
	if err != nil {
		return timeseries.Undefined, fmt.Errorf("max drawdown: %w", err)
	}

	episode, ok := drawdown.MaxDrawdown(nav)
	if !ok {
		return 0, nil
	}
	return episode.Magnitude, nil
}

// CalmarRatio 연 수익률 / 최대 낙폭
func (e *Engine) CalmarRatio(returns timeseries.ReturnSeries, style ReturnStyle) (float64, error) {
	mdd, err := e.MaxDrawdown(returns)
	if err != nil {
		return timeseries.Undefined, err
	}
	ret, err := e.AnnualReturn(returns, style)
	if err != nil {
		return timeseries.Undefined, err
	}
	return ratio("calmar ratio", ret, mdd)
}

// Stability log10(NAV)를 인덱스에 선형 회귀한 R²
func (e *Engine) Stability(returns timeseries.ReturnSeries) (float64, error) {
	if returns.Len() < 2 {
		return timeseries.Undefined, fmt.Errorf("stability: %w", timeseries.ErrInsufficientData)
	}
	nav, err := returns.NAV(100)
	if err != nil {
		return timeseries.Undefined, fmt.Errorf("stability: %w", err)
	}

	values := nav.Values()
	xs := make([]float64, len(values))
	ys := make([]float64, len(values))
	for i, v := range values {
		xs[i] = float64(i)
		ys[i] = math.Log10(v)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, intercept, slope)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return timeseries.Undefined, fmt.Errorf("stability: %w: flat NAV", timeseries.ErrDegenerate)
	}
	return r2, nil
}

// RollingSharpe 롤링 Sharpe (평균 / 표본 표준편차 · √252)
// 각 점은 윈도우 마지막 시점에 찍힌다 (출력 길이 = len - window + 1)
func (e *Engine) RollingSharpe(returns timeseries.ReturnSeries, window int) ([]timeseries.Point, error) {
	n := returns.Len()
	if window < 2 || window > n {
		return nil, fmt.Errorf("rolling sharpe: %w: window %d for %d observations",
			timeseries.ErrInsufficientData, window, n)
	}

	values := returns.Values()
	out := make([]timeseries.Point, 0, n-window+1)
	for end := window; end <= n; end++ {
		mean, std := stat.MeanStdDev(values[end-window:end], nil)
		v := timeseries.Undefined
		if std > 0 {
			v = mean / std * math.Sqrt(TradingDaysPerYear)
		}
		out = append(out, timeseries.Point{Time: returns.Time(end - 1), Value: v})
	}
	return out, nil
}

// PerfStats 성과 지표 묶음 계산
// 개별 지표의 계산 불가(non-fatal)는 Undefined로 남기고, 그 밖의 에러만 반환한다
func (e *Engine) PerfStats(returns timeseries.ReturnSeries, style ReturnStyle) (PerfStats, error) {
	ps := PerfStats{
		Start:        returns.First().Time,
		End:          returns.Last().Time,
		Observations: returns.Len(),
		ReturnStyle:  style,
		VaR95:        e.VaR(returns.Values(), 0.95),
	}
	if returns.Len() >= 2 {
		mean, std := stat.MeanStdDev(returns.Values(), nil)
		ps.ParametricVaR95 = e.ParametricVaR(mean, std, 0.95)
	} else {
		ps.ParametricVaR95 = VaRResult{Confidence: 0.95}
	}

	var err error
	if ps.AnnualReturn, err = nonFatal(e.AnnualReturn(returns, style)); err != nil {
		return PerfStats{}, err
	}
	if ps.AnnualVolatility, err = nonFatal(e.AnnualVolatility(returns)); err != nil {
		return PerfStats{}, err
	}
	if ps.SharpeRatio, err = nonFatal(e.SharpeRatio(returns, style)); err != nil {
		return PerfStats{}, err
	}
	if ps.CalmarRatio, err = nonFatal(e.CalmarRatio(returns, style)); err != nil {
		return PerfStats{}, err
	}
	if ps.Stability, err = nonFatal(e.Stability(returns)); err != nil {
		return PerfStats{}, err
	}
	if ps.MaxDrawdown, err = nonFatal(e.MaxDrawdown(returns)); err != nil {
		return PerfStats{}, err
	}
	return ps, nil
}

// =============================================================================
// Risk Check (진단용 - 순수 계산)
// =============================================================================

// CheckLimits 리스크 한도 체크 (순수 계산)
func (e *Engine) CheckLimits(returns timeseries.ReturnSeries, limits RiskLimits) (*RiskCheckResult, error) {
	mdd, err := e.MaxDrawdown(returns)
	if err != nil {
		return nil, err
	}
	varResult := e.VaR(returns.Values(), 0.95)

	result := &RiskCheckResult{
		Passed:      true,
		VaR95:       varResult.VaR,
		CVaR95:      varResult.CVaR,
		MaxDrawdown: mdd,
		Limits:      limits,
		Violations:  make([]string, 0),
	}

	// VaR 한도 체크
	if varResult.VaR > limits.MaxVaR95 {
		result.Passed = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("VaR95 %.4f exceeds limit %.4f", varResult.VaR, limits.MaxVaR95))
	}

	// CVaR 한도 체크
	if varResult.CVaR > limits.MaxCVaR95 {
		result.Passed = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("CVaR95 %.4f exceeds limit %.4f", varResult.CVaR, limits.MaxCVaR95))
	}

	// MDD 한도 체크
	if mdd > limits.MaxDrawdown {
		result.Passed = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("MaxDrawdown %.4f exceeds limit %.4f", mdd, limits.MaxDrawdown))
	}

	return result, nil
}

// =============================================================================
// Helpers
// =============================================================================

func ratio(name string, num, den float64) (float64, error) {
	if den == 0 {
		return timeseries.Undefined, fmt.Errorf("%s: %w: zero denominator", name, timeseries.ErrDegenerate)
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return timeseries.Undefined, fmt.Errorf("%s: %w: non-finite ratio", name, timeseries.ErrDegenerate)
	}
	return v, nil
}

// nonFatal non-fatal 에러는 Undefined 값으로 흡수
func nonFatal(v float64, err error) (float64, error) {
	if err == nil {
		return v, nil
	}
	if timeseries.IsNonFatal(err) {
		return timeseries.Undefined, nil
	}
	return timeseries.Undefined, err
}
