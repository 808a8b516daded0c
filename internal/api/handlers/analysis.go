package handlers

import (
	"net/http"

	"github.com/wonny/quantrisk/internal/analysisconfig"
	"github.com/wonny/quantrisk/internal/audit"
	"github.com/wonny/quantrisk/internal/cone"
	"github.com/wonny/quantrisk/internal/drawdown"
	"github.com/wonny/quantrisk/internal/regression"
	"github.com/wonny/quantrisk/internal/risk"
	"github.com/wonny/quantrisk/internal/timeseries"
	"github.com/wonny/quantrisk/pkg/logger"
)

// AnalysisHandler handles diagnostics API endpoints
// ⭐ SSOT: 분석 API 핸들러는 이 구조체에서만 (계산은 각 엔진 패키지)
type AnalysisHandler struct {
	engine   *risk.Engine
	reporter *audit.Reporter
	defaults *analysisconfig.Config
	logger   *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler
// defaults가 nil이면 analysisconfig.Default()
func NewAnalysisHandler(defaults *analysisconfig.Config, log *logger.Logger) *AnalysisHandler {
	if defaults == nil {
		defaults = analysisconfig.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	engine := risk.NewEngine()
	return &AnalysisHandler{
		engine:   engine,
		reporter: audit.NewReporter(engine, log),
		defaults: defaults,
		logger:   log,
	}
}

// DrawdownResponse drawdown API 응답
type DrawdownResponse struct {
	MaxDrawdown *drawdown.Episode  `json:"max_drawdown,omitempty"`
	Table       []drawdown.Row     `json:"table"`
	Underwater  []timeseries.Point `json:"underwater"`
}

// RollingBetaResponse 롤링 회귀 API 응답
// 벤치마크만 주면 Beta/Rolling, 팩터를 주면 Factor/RollingFactors
type RollingBetaResponse struct {
	Beta           *regression.BetaPoint         `json:"beta,omitempty"`
	Rolling        []regression.BetaPoint        `json:"rolling,omitempty"`
	Factor         *regression.RegressionWindow  `json:"factor,omitempty"`
	RollingFactors []regression.RegressionWindow `json:"rolling_factors,omitempty"`
	Window         int                           `json:"window"`
}

// StatsResponse 성과/리스크 지표 API 응답
type StatsResponse struct {
	Stats     risk.PerfStats        `json:"stats"`
	RiskCheck *risk.RiskCheckResult `json:"risk_check"`
	Warnings  []string              `json:"warnings,omitempty"`
}

// GetDrawdowns returns the top-N drawdown table
// POST /api/drawdowns
func (h *AnalysisHandler) GetDrawdowns(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	nav, err := in.returns.NAV(in.config.Returns.NAVStart)
	if err != nil {
		h.fail(w, "drawdowns", err)
		return
	}

	resp := DrawdownResponse{
		Table:      drawdown.Table(nav, in.config.Drawdown.TopN),
		Underwater: drawdown.Underwater(nav),
	}
	if worst, ok := drawdown.MaxDrawdown(nav); ok {
		resp.MaxDrawdown = &worst
	}
	respondData(w, resp)
}

// GetRollingBeta returns full-sample and rolling regression coefficients
// POST /api/rolling-beta
func (h *AnalysisHandler) GetRollingBeta(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	cfg := in.config.RegressionConfig()
	resp := RollingBetaResponse{Window: cfg.Window}

	switch {
	case len(in.factors) > 0:
		rolling, err := regression.RollingMultiFactor(in.returns, in.factors, cfg)
		if err != nil {
			h.fail(w, "rolling factors", err)
			return
		}
		resp.RollingFactors = rolling
		if full, err := regression.MultiFactorAlpha(in.returns, in.factors, cfg); err == nil {
			resp.Factor = &full
		}

	case in.benchmark.Len() > 0:
		rolling, err := regression.RollingBeta(in.returns, in.benchmark, cfg)
		if err != nil {
			h.fail(w, "rolling beta", err)
			return
		}
		resp.Rolling = rolling
		if full, err := regression.AlphaBeta(in.returns, in.benchmark, cfg); err == nil {
			resp.Beta = &full
		}

	default:
		respondError(w, http.StatusBadRequest, "benchmark or factors is required")
		return
	}

	respondData(w, resp)
}

// GetCone returns the performance cone
// POST /api/cone
func (h *AnalysisHandler) GetCone(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	cfg, err := in.config.ConeConfig()
	if err != nil {
		h.fail(w, "cone", err)
		return
	}
	c, err := cone.Project(in.returns, cfg)
	if err != nil {
		h.fail(w, "cone", err)
		return
	}
	respondData(w, c)
}

// GetStats returns performance statistics and the risk-limit check
// POST /api/stats
func (h *AnalysisHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	style, err := in.config.ReturnStyle()
	if err != nil {
		h.fail(w, "stats", err)
		return
	}
	stats, err := h.engine.PerfStats(in.returns, style)
	if err != nil {
		h.fail(w, "stats", err)
		return
	}
	check, err := h.engine.CheckLimits(in.returns, in.config.Limits())
	if err != nil {
		h.fail(w, "risk check", err)
		return
	}

	resp := StatsResponse{Stats: stats, RiskCheck: check}
	for _, warning := range analysisconfig.Warn(in.config) {
		resp.Warnings = append(resp.Warnings, warning.Message)
	}
	respondData(w, resp)
}

// GetReport returns the full diagnostics report
// POST /api/report
func (h *AnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	report, err := h.reporter.Generate(r.Context(), audit.ReportInput{
		Name:      in.name,
		Returns:   in.returns,
		Benchmark: in.benchmark,
		Factors:   in.factors,
		Config:    in.config,
	})
	if err != nil {
		h.fail(w, "report", err)
		return
	}
	respondData(w, report)
}

// GetConfig returns the server's default analysis config
// GET /api/config
func (h *AnalysisHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	hash, err := analysisconfig.Hash(h.defaults)
	if err != nil {
		h.fail(w, "config", err)
		return
	}
	respondData(w, map[string]interface{}{
		"config":      h.defaults,
		"config_hash": hash,
		"warnings":    analysisconfig.Warn(h.defaults),
	})
}

func (h *AnalysisHandler) decode(w http.ResponseWriter, r *http.Request) (*analysisInput, bool) {
	in, err := decodeRequest(w, r, h.defaults)
	if err != nil {
		h.fail(w, "decode", err)
		return nil, false
	}
	return in, true
}

func (h *AnalysisHandler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	entry := h.logger.WithError(err).WithFields(map[string]interface{}{
		"op":     op,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Analysis request failed")
		respondError(w, status, "internal error")
		return
	}
	entry.Debug("Analysis request rejected")
	respondError(w, status, err.Error())
}
