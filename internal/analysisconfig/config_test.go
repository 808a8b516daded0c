package analysisconfig

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantrisk/internal/cone"
	"github.com/wonny/quantrisk/internal/regression"
	"github.com/wonny/quantrisk/internal/risk"
	"github.com/wonny/quantrisk/internal/timeseries"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := "../../config/analysis/default.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Meta.AnalysisID)
	assert.Equal(t, 63, cfg.Regression.Window)
	assert.Equal(t, 126, cfg.Rolling.SharpeWindow)

	// 파일과 Default()는 같은 설정을 표현한다 (description 제외)
	fromFile := *cfg
	fromFile.Meta.Description = ""
	assert.Equal(t, *Default(), fromFile)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(cfg)
	assert.Equal(t, hash, hash2)

	t.Logf("config hash: %s", hash)
	t.Logf("yaml size: %d bytes", len(yamlData))
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
meta:
  analysis_id: short_beta
regression:
  window: 21
  annualize: true
`))
	require.NoError(t, err)

	assert.Equal(t, "short_beta", cfg.Meta.AnalysisID)
	assert.Equal(t, 21, cfg.Regression.Window)
	assert.True(t, cfg.Regression.Annualize)
	assert.Equal(t, 252.0, cfg.Regression.AnnualizationFactor)
	assert.Equal(t, Default().Cone, cfg.Cone)

	// 빈 문서 = 기본 설정
	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), empty)
}

func TestOverlay_JSONOntoBase(t *testing.T) {
	base := Default()
	base.Meta.AnalysisID = "server"
	base.Drawdown.TopN = 3

	cfg, err := Overlay(base, []byte(`{"regression": {"window": 40}, "cone": {"make_future_cone": false}}`))
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Meta.AnalysisID)
	assert.Equal(t, 3, cfg.Drawdown.TopN)
	assert.Equal(t, 40, cfg.Regression.Window)
	assert.False(t, cfg.Cone.MakeFutureCone)

	// base 불변
	assert.Equal(t, 63, base.Regression.Window)
	assert.True(t, base.Cone.MakeFutureCone)
}

func TestParse_UnknownFieldFails(t *testing.T) {
	_, err := Parse([]byte(`
cone:
  num_stdevs: 2
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "num_stdevs")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing id", func(c *Config) { c.Meta.AnalysisID = "" }, "meta.analysis_id"},
		{"bad style", func(c *Config) { c.Returns.Style = "log" }, "returns.style"},
		{"bad period", func(c *Config) { c.Returns.Period = "hourly" }, "returns.period"},
		{"nav start", func(c *Config) { c.Returns.NAVStart = 0 }, "returns.nav_start"},
		{"top n", func(c *Config) { c.Drawdown.TopN = 0 }, "drawdown.top_n"},
		{"window", func(c *Config) { c.Regression.Window = 1 }, "regression.window"},
		{"annualization", func(c *Config) {
			c.Regression.Annualize = true
			c.Regression.AnnualizationFactor = 0
		}, "regression.annualization_factor"},
		{"workers", func(c *Config) { c.Regression.Workers = -1 }, "regression.workers"},
		{"stdev", func(c *Config) { c.Cone.NumStdev = -1 }, "cone.num_stdev"},
		{"fraction", func(c *Config) { c.Cone.WarmUpFraction = 1.5 }, "cone.warm_up_fraction"},
		{"cutoff", func(c *Config) { c.Cone.WarmUpCutoff = "01/02/2024" }, "cone.warm_up_cutoff"},
		{"horizon", func(c *Config) { c.Cone.FutureHorizonDays = -1 }, "cone.future_horizon_days"},
		{"huge horizon", func(c *Config) { c.Cone.FutureHorizonDays = math.MaxInt }, "cone.future_horizon_days"},
		{"sharpe window", func(c *Config) { c.Rolling.SharpeWindow = 1 }, "rolling.sharpe_window"},
		{"var range", func(c *Config) { c.RiskLimits.MaxVaR95 = 1.2 }, "risk_limits.max_var_95"},
		{"cvar < var", func(c *Config) { c.RiskLimits.MaxCVaR95 = 0.01 }, "risk_limits"},
	}

	require.NoError(t, Validate(Default()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, timeseries.ErrInvalidConfig)
		})
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeYAML(t, "drawdown:\n  top_n: 0\n")

	_, data, err := Load(path)
	require.Error(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, err.Error(), "drawdown.top_n")

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHash_ChangesWithConfig(t *testing.T) {
	a := Default()
	b := Default()
	b.Cone.NumStdev = 2

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)

	snap, err := NewRunSnapshot(a, []byte("meta: {}"))
	require.NoError(t, err)
	assert.Equal(t, ha, snap.ConfigHash)
	assert.Equal(t, "default", snap.AnalysisID)
	assert.False(t, snap.CreatedAt.IsZero())
}

func TestComponentConfigs(t *testing.T) {
	cfg := Default()

	assert.Equal(t, regression.DefaultConfig(), cfg.RegressionConfig())
	assert.Equal(t, risk.DefaultRiskLimits(), cfg.Limits())

	coneCfg, err := cfg.ConeConfig()
	require.NoError(t, err)
	assert.Equal(t, cone.DefaultConfig(), coneCfg)

	style, err := cfg.ReturnStyle()
	require.NoError(t, err)
	assert.Equal(t, risk.StyleCalendar, style)

	period, err := cfg.Period()
	require.NoError(t, err)
	assert.Equal(t, timeseries.Daily, period)

	cfg.Cone.WarmUpCutoff = "2024-03-01"
	coneCfg, err = cfg.ConeConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), coneCfg.WarmUpCutoff)
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.Regression.Window = 10
	cfg.Cone.WarmUpFraction = 1
	cfg.Returns.Period = string(timeseries.Monthly)

	codes := make([]string, 0)
	for _, w := range Warn(cfg) {
		codes = append(codes, w.Code)
	}
	assert.ElementsMatch(t, []string{"SHORT_REGRESSION_WINDOW", "NO_OUT_OF_SAMPLE", "ANNUALIZATION_MISMATCH"}, codes)
}
