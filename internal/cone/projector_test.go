package cone

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/quantrisk/internal/timeseries"
)

func businessDays(n int) []time.Time {
	return timeseries.BusinessDaysAfter(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), n)
}

func randomWalk(t *testing.T, seed int64, n int) timeseries.ReturnSeries {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = 0.0004 + rng.NormFloat64()*0.01
	}
	rs, err := timeseries.ReturnSeriesFrom(businessDays(n), values)
	require.NoError(t, err)
	return rs
}

// linearNAV NAV(i) = 1 + step·(i+1) 가 되는 수익률
func linearNAV(t *testing.T, n int, step float64) timeseries.ReturnSeries {
	t.Helper()
	values := make([]float64, n)
	prev := 1.0
	for i := range values {
		next := 1 + step*float64(i+1)
		values[i] = next/prev - 1
		prev = next
	}
	rs, err := timeseries.ReturnSeriesFrom(businessDays(n), values)
	require.NoError(t, err)
	return rs
}

func TestProject_PhaseLayout(t *testing.T) {
	returns := randomWalk(t, 1, 200)

	c, err := Project(returns, DefaultConfig())
	require.NoError(t, err)

	fit := c.Phase(PhaseFit)
	oos := c.Phase(PhaseOOS)
	future := c.Phase(PhaseFuture)

	assert.Len(t, fit, 100)
	assert.Len(t, oos, 100)
	assert.Len(t, future, 252)
	assert.Equal(t, 100, c.Fit.WarmUpPoints)
	assert.Equal(t, returns.Time(100), c.Fit.Cutoff)

	for i, b := range c.Bands {
		if i < 200 {
			require.NotNil(t, b.Actual, "band %d", i)
			assert.Equal(t, returns.Time(i), b.Time)
		} else {
			assert.Nil(t, b.Actual, "band %d", i)
		}
		assert.GreaterOrEqual(t, b.Upper, b.Line, "band %d", i)
		assert.GreaterOrEqual(t, b.Line, b.Lower, "band %d", i)
		if i > 0 {
			assert.True(t, b.Time.After(c.Bands[i-1].Time), "band %d not after previous", i)
		}
	}

	// 미래 콘은 마지막 관측 다음 영업일부터
	assert.Equal(t, timeseries.NextBusinessDay(returns.Last().Time), future[0].Time)
	for _, b := range future {
		assert.True(t, timeseries.IsBusinessDay(b.Time))
	}
}

func TestProject_ZeroStdevCollapsesBands(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumStdev = 0
	cfg.UpdateVolRolling = true

	c, err := Project(randomWalk(t, 2, 120), cfg)
	require.NoError(t, err)

	for i, b := range c.Bands {
		assert.Equal(t, b.Line, b.Upper, "band %d", i)
		assert.Equal(t, b.Line, b.Lower, "band %d", i)
	}
}

func TestProject_LinearNAV(t *testing.T) {
	c, err := Project(linearNAV(t, 100, 0.01), DefaultConfig())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, c.Fit.RSquared, 1e-9)
	assert.InDelta(t, 0.01, c.Fit.Slope, 1e-9)
	assert.InDelta(t, 1.01, c.Fit.Intercept, 1e-9)
	assert.InDelta(t, 0.0, c.OOSShift, 1e-9)

	for _, b := range c.Phase(PhaseFit) {
		assert.InDelta(t, *b.Actual, b.Line, 1e-9)
	}
	// 추세가 그대로 이어지므로 OOS에서도 actual = line
	for _, b := range c.Phase(PhaseOOS) {
		assert.InDelta(t, *b.Actual, b.Line, 1e-9)
	}
}

func TestProject_ContinuityAtBoundaries(t *testing.T) {
	returns := randomWalk(t, 3, 150)

	c, err := Project(returns, DefaultConfig())
	require.NoError(t, err)

	fit := c.Phase(PhaseFit)
	oos := c.Phase(PhaseOOS)
	future := c.Phase(PhaseFuture)

	lastFit := fit[len(fit)-1]
	assert.InDelta(t, *lastFit.Actual-lastFit.Line, c.OOSShift, 1e-12)
	assert.InDelta(t, *lastFit.Actual+c.Fit.Slope, oos[0].Line, 1e-12)

	lastOOS := oos[len(oos)-1]
	assert.InDelta(t, *lastOOS.Actual-lastOOS.Line, c.FutureShift, 1e-12)
	assert.InDelta(t, *lastOOS.Actual+c.Fit.Slope, future[0].Line, 1e-12)

	// 밴드 폭은 경과 일수의 제곱근에 비례
	k := DefaultConfig().NumStdev
	for d, b := range oos {
		want := k * c.Fit.WarmUpVol * math.Sqrt(float64(d+1))
		assert.InDelta(t, want, b.Upper/b.Line-1, 1e-12)
	}
	for d, b := range future {
		want := k * c.Fit.WarmUpVol * math.Sqrt(float64(d+1))
		assert.InDelta(t, want, 1-b.Lower/b.Line, 1e-12)
	}
	// 웜업 밴드는 연율화 변동성
	assert.InDelta(t, k*c.Fit.WarmUpVolAnnualized, fit[0].Upper/fit[0].Line-1, 1e-12)
}

func TestProject_RefitTrendAndRollingVol(t *testing.T) {
	returns := randomWalk(t, 4, 120)
	nav, err := returns.NAV(1)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.ExtendFitTrend = false
	cfg.UpdateVolRolling = true
	cfg.FutureHorizonDays = 10

	c, err := Project(returns, cfg)
	require.NoError(t, err)

	oos := c.Phase(PhaseOOS)
	future := c.Phase(PhaseFuture)
	require.Len(t, oos, 60)
	require.Len(t, future, 10)

	// 마지막 OOS 시점: 전체 NAV 재적합 + OOS 이동량
	xs := make([]float64, nav.Len())
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, nav.Values(), nil, false)
	last := nav.Len() - 1
	assert.InDelta(t, slope*float64(last)+intercept+c.OOSShift, oos[len(oos)-1].Line, 1e-9)

	// 마지막 OOS 밴드는 전체 NAV 변화율의 모표준편차 사용
	vol := math.Sqrt(stat.PopVariance(nav.PctChange().Values(), nil))
	assert.InDelta(t, cfg.NumStdev*vol*math.Sqrt(60), oos[len(oos)-1].Upper/oos[len(oos)-1].Line-1, 1e-9)

	// 미래 콘은 최종 재적합 추세의 기울기로 이어진다
	assert.InDelta(t, *oos[len(oos)-1].Actual+slope, future[0].Line, 1e-9)
}

func TestProject_WarmUpCutoff(t *testing.T) {
	returns := randomWalk(t, 5, 80)

	cfg := DefaultConfig()
	cfg.WarmUpCutoff = returns.Time(30)
	cfg.WarmUpFraction = 0 // cutoff가 있으면 무시

	c, err := Project(returns, cfg)
	require.NoError(t, err)
	assert.Len(t, c.Phase(PhaseFit), 30)
	assert.Len(t, c.Phase(PhaseOOS), 50)
	assert.Equal(t, returns.Time(30), c.Fit.Cutoff)
}

func TestProject_NoOutOfSample(t *testing.T) {
	returns := randomWalk(t, 6, 40)

	cfg := DefaultConfig()
	cfg.WarmUpFraction = 1
	cfg.FutureHorizonDays = 5

	c, err := Project(returns, cfg)
	require.NoError(t, err)

	assert.Empty(t, c.Phase(PhaseOOS))
	assert.True(t, c.Fit.Cutoff.IsZero())
	assert.Equal(t, 0.0, c.OOSShift)

	fit := c.Phase(PhaseFit)
	future := c.Phase(PhaseFuture)
	require.Len(t, future, 5)
	last := fit[len(fit)-1]
	assert.InDelta(t, *last.Actual-last.Line, c.FutureShift, 1e-12)
	assert.InDelta(t, *last.Actual+c.Fit.Slope, future[0].Line, 1e-12)

	cfg.MakeFutureCone = false
	c, err = Project(returns, cfg)
	require.NoError(t, err)
	assert.Empty(t, c.Phase(PhaseFuture))
	assert.Len(t, c.Bands, 40)
}

func TestProject_BandOrderOnDecliningNAV(t *testing.T) {
	// NAV 1.0 → 0.5, 미래 구간에서 추세선이 0 아래로 내려간다
	returns := linearNAV(t, 100, -0.005)

	c, err := Project(returns, DefaultConfig())
	require.NoError(t, err)

	future := c.Phase(PhaseFuture)
	require.NotEmpty(t, future)
	require.Less(t, future[len(future)-1].Line, 0.0)

	for i, b := range c.Bands {
		assert.GreaterOrEqual(t, b.Upper, b.Line, "band %d (%s)", i, b.Phase)
		assert.LessOrEqual(t, b.Lower, b.Line, "band %d (%s)", i, b.Phase)
		assert.InDelta(t, b.Upper-b.Line, b.Line-b.Lower, 1e-12, "band %d symmetric", i)
	}
}

func TestConfig_MaxFutureHorizon(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FutureHorizonDays = MaxFutureHorizonDays
	assert.NoError(t, cfg.Validate())

	cfg.FutureHorizonDays++
	assert.ErrorIs(t, cfg.Validate(), timeseries.ErrInvalidConfig)
}

func TestProject_Errors(t *testing.T) {
	_, err := Project(randomWalk(t, 7, 5), DefaultConfig())
	assert.ErrorIs(t, err, timeseries.ErrInsufficientData, "5 points at half leaves a 2-point warm-up")

	returns := randomWalk(t, 7, 50)
	cutoff := DefaultConfig()
	cutoff.WarmUpCutoff = returns.Time(0)
	_, err = Project(returns, cutoff)
	assert.ErrorIs(t, err, timeseries.ErrInsufficientData)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero fraction", func(c *Config) { c.WarmUpFraction = 0 }},
		{"fraction above one", func(c *Config) { c.WarmUpFraction = 1.5 }},
		{"zero annualization", func(c *Config) { c.VolAnnualizationFactor = 0 }},
		{"negative horizon", func(c *Config) { c.FutureHorizonDays = -1 }},
		{"horizon above max", func(c *Config) { c.FutureHorizonDays = MaxFutureHorizonDays + 1 }},
		{"huge horizon", func(c *Config) { c.FutureHorizonDays = math.MaxInt }},
		{"nan stdev", func(c *Config) { c.NumStdev = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := Project(returns, cfg)
			assert.ErrorIs(t, err, timeseries.ErrInvalidConfig)
		})
	}
}
