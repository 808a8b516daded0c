package risk

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// TradingDaysPerYear 연율화 기준 영업일 수
const TradingDaysPerYear = 252

// =============================================================================
// Return Style
// =============================================================================

// ReturnStyle 연 수익률 계산 방식
type ReturnStyle string

const (
	// StyleCalendar 총 수익률 / 연수 ((NAV_end - NAV_start) / NAV_start / years)
	StyleCalendar ReturnStyle = "calendar"
	// StyleCompound (1 + 평균 일 수익률)^252 - 1
	StyleCompound ReturnStyle = "compound"
	// StyleArithmetic 평균 일 수익률 · 252
	StyleArithmetic ReturnStyle = "arithmetic"
)

// ParseReturnStyle 문자열 → ReturnStyle
func ParseReturnStyle(s string) (ReturnStyle, error) {
	switch st := ReturnStyle(strings.ToLower(strings.TrimSpace(s))); st {
	case StyleCalendar, StyleCompound, StyleArithmetic:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown return style %q (calendar|compound|arithmetic)",
			timeseries.ErrInvalidConfig, s)
	}
}

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현 (VaR=0.05 → 5% 손실 가능)
// 전체 시스템에서 이 규약을 일관되게 사용 (MaxDrawdown도 양수)
const VaRConvention = "loss_positive"

// =============================================================================
// VaR/CVaR Types
// =============================================================================

// VaRResult VaR 계산 결과
// ⭐ SSOT: VaR/CVaR는 손실을 양수로 표현
// - VaR=0.05 → 95% 신뢰수준에서 최대 5% 손실 가능
// - CVaR=0.07 → 5% tail에서 평균 7% 손실 예상
type VaRResult struct {
	Confidence float64 `json:"confidence"` // 신뢰수준 (예: 0.95, 0.99)
	VaR        float64 `json:"var"`        // Value at Risk (손실, 양수)
	CVaR       float64 `json:"cvar"`       // Conditional VaR (Expected Shortfall, 양수)
}

// =============================================================================
// Performance Stats
// =============================================================================

// PerfStats 성과 지표 묶음
// 계산 불가 지표는 timeseries.Undefined (JSON에서는 null)
type PerfStats struct {
	Start            time.Time   `json:"start"`
	End              time.Time   `json:"end"`
	Observations     int         `json:"observations"`
	ReturnStyle      ReturnStyle `json:"return_style"`
	AnnualReturn     float64     `json:"annual_return"`
	AnnualVolatility float64     `json:"annual_volatility"`
	SharpeRatio      float64     `json:"sharpe_ratio"`
	CalmarRatio      float64     `json:"calmar_ratio"`
	Stability        float64     `json:"stability"`         // log10 NAV 추세의 R²
	MaxDrawdown      float64     `json:"max_drawdown"`      // 손실 양수
	VaR95            VaRResult   `json:"var_95"`            // Historical
	ParametricVaR95  VaRResult   `json:"parametric_var_95"` // 정규분포 가정 (관측치 2개 미만이면 0)
}

// MarshalJSON Undefined 지표를 null로 출력
func (p PerfStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start            time.Time   `json:"start"`
		End              time.Time   `json:"end"`
		Observations     int         `json:"observations"`
		ReturnStyle      ReturnStyle `json:"return_style"`
		AnnualReturn     *float64    `json:"annual_return"`
		AnnualVolatility *float64    `json:"annual_volatility"`
		SharpeRatio      *float64    `json:"sharpe_ratio"`
		CalmarRatio      *float64    `json:"calmar_ratio"`
		Stability        *float64    `json:"stability"`
		MaxDrawdown      *float64    `json:"max_drawdown"`
		VaR95            VaRResult   `json:"var_95"`
		ParametricVaR95  VaRResult   `json:"parametric_var_95"`
	}{
		Start:            p.Start,
		End:              p.End,
		Observations:     p.Observations,
		ReturnStyle:      p.ReturnStyle,
		AnnualReturn:     timeseries.Nullable(p.AnnualReturn),
		AnnualVolatility: timeseries.Nullable(p.AnnualVolatility),
		SharpeRatio:      timeseries.Nullable(p.SharpeRatio),
		CalmarRatio:      timeseries.Nullable(p.CalmarRatio),
		Stability:        timeseries.Nullable(p.Stability),
		MaxDrawdown:      timeseries.Nullable(p.MaxDrawdown),
		VaR95:            p.VaR95,
		ParametricVaR95:  p.ParametricVaR95,
	})
}

// =============================================================================
// Risk Limits (진단용 한도 체크)
// =============================================================================

// RiskLimits 리스크 한도 설정
type RiskLimits struct {
	MaxVaR95    float64 `json:"max_var_95"`   // 최대 95% VaR (예: 0.05 = 5%)
	MaxCVaR95   float64 `json:"max_cvar_95"`  // 최대 95% CVaR
	MaxDrawdown float64 `json:"max_drawdown"` // 최대 MDD
}

// DefaultRiskLimits 기본 리스크 한도
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxVaR95:    0.05, // 5% VaR
		MaxCVaR95:   0.07, // 7% CVaR
		MaxDrawdown: 0.15, // 15% MDD
	}
}

// RiskCheckResult 리스크 한도 체크 결과
type RiskCheckResult struct {
	Passed      bool       `json:"passed"`
	VaR95       float64    `json:"var_95"`
	CVaR95      float64    `json:"cvar_95"`
	MaxDrawdown float64    `json:"max_drawdown"`
	Limits      RiskLimits `json:"limits"`
	Violations  []string   `json:"violations"`
}
