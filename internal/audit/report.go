package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wonny/quantrisk/internal/analysisconfig"
	"github.com/wonny/quantrisk/internal/cone"
	"github.com/wonny/quantrisk/internal/drawdown"
	"github.com/wonny/quantrisk/internal/regression"
	"github.com/wonny/quantrisk/internal/risk"
	"github.com/wonny/quantrisk/internal/timeseries"
	"github.com/wonny/quantrisk/pkg/logger"
)

// =============================================================================
// Reporter
// =============================================================================

// Reporter 성과/리스크 진단 리포트 조립기
// ⭐ SSOT: 계산은 drawdown/regression/cone/risk, 조립과 로깅은 여기서만
type Reporter struct {
	engine *risk.Engine
	log    zerolog.Logger
}

// NewReporter 새 리포터 생성
func NewReporter(engine *risk.Engine, log *logger.Logger) *Reporter {
	if engine == nil {
		engine = risk.NewEngine()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Reporter{
		engine: engine,
		log:    log.Component("audit.reporter"),
	}
}

// =============================================================================
// Report Types
// =============================================================================

// ReportInput 리포트 생성 입력
// ⭐ 데이터 로딩은 호출자(cmd, api)에서, 계산은 각 엔진에서
type ReportInput struct {
	RunID     string                             // 비어 있으면 UUID 생성
	Name      string                             // 시계열 이름 (표시용)
	Returns   timeseries.ReturnSeries            // 분석 대상 수익률
	Benchmark timeseries.ReturnSeries            // 선택: 비어 있으면 beta 생략
	Factors   map[string]timeseries.ReturnSeries // 선택: 다중 팩터 회귀
	Config    *analysisconfig.Config             // nil이면 analysisconfig.Default()
}

// Report 진단 리포트
// 계산 불가(non-fatal) 섹션은 비워두고 Warnings에 이유를 남긴다
type Report struct {
	RunID       string    `json:"run_id"`
	Name        string    `json:"name,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	AnalysisID  string    `json:"analysis_id"`
	ConfigHash  string    `json:"config_hash"`
	Period      string    `json:"period"`

	Stats         risk.PerfStats        `json:"stats"`
	Drawdowns     []drawdown.Row        `json:"drawdowns"`
	RollingSharpe []timeseries.Point    `json:"rolling_sharpe,omitempty"`
	RiskCheck     *risk.RiskCheckResult `json:"risk_check,omitempty"`

	Beta           *regression.BetaPoint         `json:"beta,omitempty"`
	RollingBeta    []regression.BetaPoint        `json:"rolling_beta,omitempty"`
	FactorAlpha    *regression.RegressionWindow  `json:"factor_alpha,omitempty"`
	RollingFactors []regression.RegressionWindow `json:"rolling_factors,omitempty"`

	Cone *cone.Cone `json:"cone,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// =============================================================================
// Report Generation
// =============================================================================

// Generate 전체 진단 리포트 생성
// 반환 error는 fatal (설정 오류, 정렬 계약 위반, 잘못된 입력). 나머지는 Warnings
func (r *Reporter) Generate(ctx context.Context, input ReportInput) (*Report, error) {
	cfg := input.Config
	if cfg == nil {
		cfg = analysisconfig.Default()
	}
	if err := analysisconfig.Validate(cfg); err != nil {
		return nil, err
	}
	plan, err := newPlan(cfg)
	if err != nil {
		return nil, err
	}

	hash, err := analysisconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash config: %w", err)
	}

	runID := input.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	log := r.log.With().Str("run_id", runID).Str("analysis_id", cfg.Meta.AnalysisID).Logger()

	report := &Report{
		RunID:       runID,
		Name:        input.Name,
		GeneratedAt: time.Now(),
		AnalysisID:  cfg.Meta.AnalysisID,
		ConfigHash:  hash,
		Period:      string(plan.period),
	}

	// 0. 집계 주기 변환
	returns, err := timeseries.Aggregate(input.Returns, plan.period)
	if err != nil {
		return nil, fmt.Errorf("aggregate returns: %w", err)
	}
	if returns.Len() == 0 {
		return nil, fmt.Errorf("returns: %w", timeseries.ErrInsufficientData)
	}

	// 1. 성과 지표
	if report.Stats, err = r.engine.PerfStats(returns, plan.style); err != nil {
		return nil, fmt.Errorf("perf stats: %w", err)
	}

	// 2. Drawdown 테이블
	nav, err := returns.NAV(cfg.Returns.NAVStart)
	if err != nil {
		return nil, fmt.Errorf("nav: %w", err)
	}
	report.Drawdowns = drawdown.Table(nav, cfg.Drawdown.TopN)

	// 3. 롤링 Sharpe
	if report.RollingSharpe, err = r.engine.RollingSharpe(returns, cfg.Rolling.SharpeWindow); err != nil {
		if err := report.absorb("rolling sharpe", err); err != nil {
			return nil, err
		}
	}

	// 4. 리스크 한도 체크
	if report.RiskCheck, err = r.engine.CheckLimits(returns, plan.limits); err != nil {
		return nil, fmt.Errorf("risk check: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 5. 벤치마크 alpha/beta
	if input.Benchmark.Len() > 0 {
		benchmark, err := periodFactor("benchmark", input.Returns, input.Benchmark, plan.period)
		if err != nil {
			return nil, err
		}
		if err := r.benchmarkSection(report, returns, benchmark, plan.regression); err != nil {
			return nil, err
		}
	}

	// 6. 다중 팩터
	if len(input.Factors) > 0 {
		factors := make(map[string]timeseries.ReturnSeries, len(input.Factors))
		for name, f := range input.Factors {
			if factors[name], err = periodFactor(name, input.Returns, f, plan.period); err != nil {
				return nil, err
			}
		}
		if err := r.factorSection(report, returns, factors, plan.regression); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 7. 성과 콘
	if c, err := cone.Project(returns, plan.cone); err != nil {
		if err := report.absorb("cone", err); err != nil {
			return nil, err
		}
	} else {
		report.Cone = c
	}

	event := log.Info()
	if !report.RiskCheck.Passed {
		event = log.Warn().Strs("violations", report.RiskCheck.Violations)
	}
	event.
		Str("name", input.Name).
		Int("observations", report.Stats.Observations).
		Int("drawdowns", len(report.Drawdowns)).
		Int("rolling_beta", len(report.RollingBeta)).
		Bool("cone", report.Cone != nil).
		Int("warnings", len(report.Warnings)).
		Msg("diagnostics report generated")

	return report, nil
}

// periodFactor 일별 응답 구간 [first, last]로 자른 뒤 응답과 같은 주기로 집계
// 범위 확인은 집계 전 일별 기준 (구간 끝 타임스탬프로는 월 중간 누락이 가려진다)
func periodFactor(name string, response, factor timeseries.ReturnSeries, period timeseries.Period) (timeseries.ReturnSeries, error) {
	if err := timeseries.CheckCoverage(name, response.Series, factor.Series); err != nil {
		return timeseries.ReturnSeries{}, err
	}
	trimmed := factor.Between(response.First().Time, response.Last().Time)
	out, err := timeseries.Aggregate(trimmed, period)
	if err != nil {
		return timeseries.ReturnSeries{}, fmt.Errorf("aggregate %s: %w", name, err)
	}
	return out, nil
}

func (r *Reporter) benchmarkSection(report *Report, returns, benchmark timeseries.ReturnSeries, cfg regression.Config) error {
	full, err := regression.AlphaBeta(returns, benchmark, cfg)
	if err != nil {
		if err := report.absorb("alpha/beta", err); err != nil {
			return err
		}
	} else {
		report.Beta = &full
	}

	rolling, err := regression.RollingBeta(returns, benchmark, cfg)
	if err != nil {
		return report.absorb("rolling beta", err)
	}
	report.RollingBeta = rolling
	report.noteUndefined("rolling beta", countUndefinedBeta(rolling), len(rolling))
	return nil
}

func (r *Reporter) factorSection(report *Report, returns timeseries.ReturnSeries, factors map[string]timeseries.ReturnSeries, cfg regression.Config) error {
	full, err := regression.MultiFactorAlpha(returns, factors, cfg)
	if err != nil {
		if err := report.absorb("factor alpha", err); err != nil {
			return err
		}
	} else {
		report.FactorAlpha = &full
	}

	rolling, err := regression.RollingMultiFactor(returns, factors, cfg)
	if err != nil {
		return report.absorb("rolling factors", err)
	}
	report.RollingFactors = rolling

	undefined := 0
	for _, w := range rolling {
		if w.Undefined {
			undefined++
		}
	}
	report.noteUndefined("rolling factors", undefined, len(rolling))
	return nil
}

// absorb non-fatal 에러는 경고로 남기고, fatal 에러는 그대로 반환
func (report *Report) absorb(section string, err error) error {
	if !timeseries.IsNonFatal(err) {
		var alignErr *timeseries.AlignmentError
		if errors.As(err, &alignErr) {
			return err
		}
		return fmt.Errorf("%s: %w", section, err)
	}
	report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", section, err))
	return nil
}

func (report *Report) noteUndefined(section string, undefined, total int) {
	if undefined > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%s: %d of %d windows undefined", section, undefined, total))
	}
}

func countUndefinedBeta(points []regression.BetaPoint) int {
	n := 0
	for _, p := range points {
		if p.Undefined {
			n++
		}
	}
	return n
}

// =============================================================================
// Plan - 설정 → 컴포넌트 설정
// =============================================================================

type plan struct {
	style      risk.ReturnStyle
	period     timeseries.Period
	regression regression.Config
	cone       cone.Config
	limits     risk.RiskLimits
}

func newPlan(cfg *analysisconfig.Config) (plan, error) {
	style, err := cfg.ReturnStyle()
	if err != nil {
		return plan{}, err
	}
	period, err := cfg.Period()
	if err != nil {
		return plan{}, err
	}
	coneCfg, err := cfg.ConeConfig()
	if err != nil {
		return plan{}, err
	}
	return plan{
		style:      style,
		period:     period,
		regression: cfg.RegressionConfig(),
		cone:       coneCfg,
		limits:     cfg.Limits(),
	}, nil
}
