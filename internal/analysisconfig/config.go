package analysisconfig

import "time"

// Config 분석 실행의 전체 설정
// ⭐ SSOT: 모든 옵션은 명시적 구조체 필드 (map 사용 금지 → 해시 재현성)
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Returns    Returns    `yaml:"returns" json:"returns"`
	Drawdown   Drawdown   `yaml:"drawdown" json:"drawdown"`
	Regression Regression `yaml:"regression" json:"regression"`
	Cone       Cone       `yaml:"cone" json:"cone"`
	Rolling    Rolling    `yaml:"rolling" json:"rolling"`
	RiskLimits RiskLimits `yaml:"risk_limits" json:"risk_limits"`
}

// Meta 메타 정보
type Meta struct {
	AnalysisID  string `yaml:"analysis_id" json:"analysis_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Returns 수익률 해석 방식
type Returns struct {
	Style    string  `yaml:"style" json:"style"`         // calendar | compound | arithmetic
	Period   string  `yaml:"period" json:"period"`       // daily | weekly | monthly | yearly
	NAVStart float64 `yaml:"nav_start" json:"nav_start"` // NAV 시작값
}

// Drawdown top-N 낙폭 리포트
type Drawdown struct {
	TopN int `yaml:"top_n" json:"top_n"`
}

// Regression 롤링 회귀
type Regression struct {
	Window              int     `yaml:"window" json:"window"`
	Annualize           bool    `yaml:"annualize" json:"annualize"`
	AnnualizationFactor float64 `yaml:"annualization_factor" json:"annualization_factor"`
	Workers             int     `yaml:"workers" json:"workers"` // 0 = GOMAXPROCS
}

// Cone 성과 콘
type Cone struct {
	NumStdev               float64 `yaml:"num_stdev" json:"num_stdev"`
	WarmUpFraction         float64 `yaml:"warm_up_fraction" json:"warm_up_fraction"`
	WarmUpCutoff           string  `yaml:"warm_up_cutoff,omitempty" json:"warm_up_cutoff,omitempty"` // YYYY-MM-DD, 비어 있으면 fraction 사용
	VolAnnualizationFactor float64 `yaml:"vol_annualization_factor" json:"vol_annualization_factor"`
	ExtendFitTrend         bool    `yaml:"extend_fit_trend" json:"extend_fit_trend"`
	UpdateVolRolling       bool    `yaml:"update_vol_rolling" json:"update_vol_rolling"`
	MakeFutureCone         bool    `yaml:"make_future_cone" json:"make_future_cone"`
	FutureHorizonDays      int     `yaml:"future_horizon_days" json:"future_horizon_days"`
}

// Rolling 롤링 지표
type Rolling struct {
	SharpeWindow int `yaml:"sharpe_window" json:"sharpe_window"`
}

// RiskLimits 리스크 한도 (손실 양수)
type RiskLimits struct {
	MaxVaR95    float64 `yaml:"max_var_95" json:"max_var_95"`
	MaxCVaR95   float64 `yaml:"max_cvar_95" json:"max_cvar_95"`
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
}

// RunSnapshot 분석 실행 스냅샷 (재현성용)
type RunSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml,omitempty"`
	AnalysisID string    `json:"analysis_id"`
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}
