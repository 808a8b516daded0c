package analysisconfig

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/quantrisk/internal/cone"
	"github.com/wonny/quantrisk/internal/risk"
	"github.com/wonny/quantrisk/internal/timeseries"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap errors.Is(err, timeseries.ErrInvalidConfig) 지원
func (e ValidationError) Unwrap() error {
	return timeseries.ErrInvalidConfig
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.AnalysisID == "" {
		return ValidationError{"meta.analysis_id", "required"}
	}

	// === Returns ===
	if _, err := risk.ParseReturnStyle(cfg.Returns.Style); err != nil {
		return ValidationError{"returns.style", "must be calendar, compound or arithmetic"}
	}
	if _, err := timeseries.ParsePeriod(cfg.Returns.Period); err != nil {
		return ValidationError{"returns.period", "must be daily, weekly, monthly or yearly"}
	}
	if !isPositive(cfg.Returns.NAVStart) {
		return ValidationError{"returns.nav_start", "must be > 0"}
	}

	// === Drawdown ===
	if cfg.Drawdown.TopN < 1 {
		return ValidationError{"drawdown.top_n", "must be >= 1"}
	}

	// === Regression ===
	if cfg.Regression.Window < 2 {
		return ValidationError{"regression.window", "must be >= 2"}
	}
	if cfg.Regression.Annualize && !isPositive(cfg.Regression.AnnualizationFactor) {
		return ValidationError{"regression.annualization_factor", "must be > 0 when annualize is true"}
	}
	if cfg.Regression.Workers < 0 {
		return ValidationError{"regression.workers", "must be >= 0"}
	}

	// === Cone ===
	c := cfg.Cone
	if math.IsNaN(c.NumStdev) || math.IsInf(c.NumStdev, 0) || c.NumStdev < 0 {
		return ValidationError{"cone.num_stdev", "must be a finite value >= 0"}
	}
	if c.WarmUpCutoff != "" {
		if _, err := time.Parse(timeseries.DateLayout, c.WarmUpCutoff); err != nil {
			return ValidationError{"cone.warm_up_cutoff", "must be YYYY-MM-DD"}
		}
	} else if !(c.WarmUpFraction > 0 && c.WarmUpFraction <= 1) {
		return ValidationError{"cone.warm_up_fraction", "must be in (0, 1]"}
	}
	if !isPositive(c.VolAnnualizationFactor) {
		return ValidationError{"cone.vol_annualization_factor", "must be > 0"}
	}
	if c.FutureHorizonDays < 0 || c.FutureHorizonDays > cone.MaxFutureHorizonDays {
		return ValidationError{"cone.future_horizon_days", fmt.Sprintf("must be in [0, %d]", cone.MaxFutureHorizonDays)}
	}

	// === Rolling ===
	if cfg.Rolling.SharpeWindow < 2 {
		return ValidationError{"rolling.sharpe_window", "must be >= 2"}
	}

	// === RiskLimits ===
	if err := validatePctRange(cfg.RiskLimits.MaxVaR95, "risk_limits.max_var_95"); err != nil {
		return err
	}
	if err := validatePctRange(cfg.RiskLimits.MaxCVaR95, "risk_limits.max_cvar_95"); err != nil {
		return err
	}
	if err := validatePctRange(cfg.RiskLimits.MaxDrawdown, "risk_limits.max_drawdown"); err != nil {
		return err
	}
	if cfg.RiskLimits.MaxCVaR95 < cfg.RiskLimits.MaxVaR95 {
		return ValidationError{"risk_limits", "max_cvar_95 must be >= max_var_95"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 짧은 윈도우는 beta 추정이 불안정
	if cfg.Regression.Window < 20 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_REGRESSION_WINDOW",
			Message: fmt.Sprintf("regression window %d < 20: beta 추정 노이즈 큼", cfg.Regression.Window),
		})
	}

	// 웜업이 너무 짧으면 콘 변동성 추정이 불안정
	if cfg.Cone.WarmUpCutoff == "" && cfg.Cone.WarmUpFraction < 0.2 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_WARM_UP",
			Message: "warm_up_fraction < 0.2: 콘 변동성 추정 불안정",
		})
	}

	// 표본 외 구간 없음
	if cfg.Cone.WarmUpCutoff == "" && cfg.Cone.WarmUpFraction == 1 {
		warnings = append(warnings, Warning{
			Code:    "NO_OUT_OF_SAMPLE",
			Message: "warm_up_fraction = 1: 표본 외 구간 없이 미래 콘만 생성",
		})
	}

	// 주기 집계 후 연율화 배수 불일치
	if cfg.Returns.Period != string(timeseries.Daily) && cfg.Cone.VolAnnualizationFactor == 252 {
		warnings = append(warnings, Warning{
			Code:    "ANNUALIZATION_MISMATCH",
			Message: fmt.Sprintf("period=%s 인데 vol_annualization_factor=252 (일별 기준)", cfg.Returns.Period),
		})
	}

	return warnings
}

// === Helper Functions ===

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if math.IsNaN(pct) || pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
