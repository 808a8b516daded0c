package cone

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// MaxFutureHorizonDays 미래 콘 최대 길이 (10년 영업일)
const MaxFutureHorizonDays = 10 * 252

// Config 성과 콘 설정
type Config struct {
	NumStdev               float64   `json:"num_stdev"`                // 밴드 폭 (표준편차 배수)
	WarmUpFraction         float64   `json:"warm_up_fraction"`         // 웜업 비율 (WarmUpCutoff가 0일 때)
	WarmUpCutoff           time.Time `json:"warm_up_cutoff"`           // 이 시점 이전(미포함)이 웜업
	VolAnnualizationFactor float64   `json:"vol_annualization_factor"` // 웜업 밴드 연율화 배수
	ExtendFitTrend         bool      `json:"extend_fit_trend"`         // false면 OOS 매 시점 재적합
	UpdateVolRolling       bool      `json:"update_vol_rolling"`       // true면 OOS 변동성을 누적 재계산
	MakeFutureCone         bool      `json:"make_future_cone"`
	FutureHorizonDays      int       `json:"future_horizon_days"` // 미래 콘 영업일 수
}

// DefaultConfig 기본 설정
func DefaultConfig() Config {
	return Config{
		NumStdev:               1.5,
		WarmUpFraction:         0.5,
		VolAnnualizationFactor: 252,
		ExtendFitTrend:         true,
		UpdateVolRolling:       false,
		MakeFutureCone:         true,
		FutureHorizonDays:      252,
	}
}

// Validate 설정 검증
func (c Config) Validate() error {
	if math.IsNaN(c.NumStdev) || math.IsInf(c.NumStdev, 0) {
		return fmt.Errorf("%w: num_stdev must be finite", timeseries.ErrInvalidConfig)
	}
	if c.WarmUpCutoff.IsZero() && !(c.WarmUpFraction > 0 && c.WarmUpFraction <= 1) {
		return fmt.Errorf("%w: warm_up_fraction must be in (0, 1], got %v",
			timeseries.ErrInvalidConfig, c.WarmUpFraction)
	}
	if !(c.VolAnnualizationFactor > 0) {
		return fmt.Errorf("%w: vol_annualization_factor must be positive, got %v",
			timeseries.ErrInvalidConfig, c.VolAnnualizationFactor)
	}
	if c.FutureHorizonDays < 0 || c.FutureHorizonDays > MaxFutureHorizonDays {
		return fmt.Errorf("%w: future_horizon_days must be in [0, %d], got %d",
			timeseries.ErrInvalidConfig, MaxFutureHorizonDays, c.FutureHorizonDays)
	}
	return nil
}

// warmUpPoints 웜업 구간 길이
func (c Config) warmUpPoints(returns timeseries.ReturnSeries) int {
	if !c.WarmUpCutoff.IsZero() {
		return returns.CountBefore(c.WarmUpCutoff)
	}
	return int(math.Floor(c.WarmUpFraction * float64(returns.Len())))
}
