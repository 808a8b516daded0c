package analysisconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/quantrisk/internal/cone"
	"github.com/wonny/quantrisk/internal/regression"
	"github.com/wonny/quantrisk/internal/risk"
	"github.com/wonny/quantrisk/internal/timeseries"
)

// Default 기본 분석 설정 (각 컴포넌트의 DefaultConfig와 동일)
func Default() *Config {
	reg := regression.DefaultConfig()
	cn := cone.DefaultConfig()
	limits := risk.DefaultRiskLimits()

	return &Config{
		Meta: Meta{
			AnalysisID: "default",
			Version:    "1",
		},
		Returns: Returns{
			Style:    string(risk.StyleCalendar),
			Period:   string(timeseries.Daily),
			NAVStart: 1.0,
		},
		Drawdown: Drawdown{TopN: 5},
		Regression: Regression{
			Window:              reg.Window,
			Annualize:           reg.Annualize,
			AnnualizationFactor: reg.AnnualizationFactor,
			Workers:             reg.Workers,
		},
		Cone: Cone{
			NumStdev:               cn.NumStdev,
			WarmUpFraction:         cn.WarmUpFraction,
			VolAnnualizationFactor: cn.VolAnnualizationFactor,
			ExtendFitTrend:         cn.ExtendFitTrend,
			UpdateVolRolling:       cn.UpdateVolRolling,
			MakeFutureCone:         cn.MakeFutureCone,
			FutureHorizonDays:      cn.FutureHorizonDays,
		},
		Rolling: Rolling{SharpeWindow: 126},
		RiskLimits: RiskLimits{
			MaxVaR95:    limits.MaxVaR95,
			MaxCVaR95:   limits.MaxCVaR95,
			MaxDrawdown: limits.MaxDrawdown,
		},
	}
}

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
// 파일에 없는 필드는 Default() 값을 유지한다
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, data, nil
}

// Parse YAML bytes → 검증된 Config
func Parse(data []byte) (*Config, error) {
	return Overlay(Default(), data)
}

// Overlay base 설정 위에 YAML(또는 JSON) 값을 덮어쓴 복사본
// base는 수정하지 않는다
func Overlay(base *Config, data []byte) (*Config, error) {
	cp := *base
	cfg := &cp
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewRunSnapshot creates a snapshot for audit
func NewRunSnapshot(cfg *Config, yamlData []byte) (*RunSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &RunSnapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		AnalysisID: cfg.Meta.AnalysisID,
		Version:    cfg.Meta.Version,
		CreatedAt:  time.Now(),
	}, nil
}

// =============================================================================
// Component Config 변환
// =============================================================================

// ReturnStyle 연 수익률 계산 방식
func (c *Config) ReturnStyle() (risk.ReturnStyle, error) {
	return risk.ParseReturnStyle(c.Returns.Style)
}

// Period 수익률 집계 주기
func (c *Config) Period() (timeseries.Period, error) {
	return timeseries.ParsePeriod(c.Returns.Period)
}

// RegressionConfig 롤링 회귀 설정
func (c *Config) RegressionConfig() regression.Config {
	return regression.Config{
		Window:              c.Regression.Window,
		Annualize:           c.Regression.Annualize,
		AnnualizationFactor: c.Regression.AnnualizationFactor,
		Workers:             c.Regression.Workers,
	}
}

// ConeConfig 성과 콘 설정
func (c *Config) ConeConfig() (cone.Config, error) {
	cfg := cone.Config{
		NumStdev:               c.Cone.NumStdev,
		WarmUpFraction:         c.Cone.WarmUpFraction,
		VolAnnualizationFactor: c.Cone.VolAnnualizationFactor,
		ExtendFitTrend:         c.Cone.ExtendFitTrend,
		UpdateVolRolling:       c.Cone.UpdateVolRolling,
		MakeFutureCone:         c.Cone.MakeFutureCone,
		FutureHorizonDays:      c.Cone.FutureHorizonDays,
	}
	if c.Cone.WarmUpCutoff != "" {
		cutoff, err := time.Parse(timeseries.DateLayout, c.Cone.WarmUpCutoff)
		if err != nil {
			return cone.Config{}, ValidationError{"cone.warm_up_cutoff", "must be YYYY-MM-DD"}
		}
		cfg.WarmUpCutoff = cutoff
	}
	return cfg, nil
}

// Limits 리스크 한도
func (c *Config) Limits() risk.RiskLimits {
	return risk.RiskLimits{
		MaxVaR95:    c.RiskLimits.MaxVaR95,
		MaxCVaR95:   c.RiskLimits.MaxCVaR95,
		MaxDrawdown: c.RiskLimits.MaxDrawdown,
	}
}
