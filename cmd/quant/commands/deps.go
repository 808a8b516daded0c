package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quantrisk/internal/analysisconfig"
	"github.com/wonny/quantrisk/pkg/config"
	"github.com/wonny/quantrisk/pkg/logger"
)

// deps 커맨드 공통 의존성
type deps struct {
	cfg      *config.Config
	log      *logger.Logger
	analysis *analysisconfig.Config
}

// initDeps .env 설정, 로거, 분석 설정 로드
func initDeps(cmd *cobra.Command, opts *rootOptions) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.env != "" {
		cfg.Env = opts.env
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.NewWithWriter(cfg, cmd.ErrOrStderr())

	analysis, err := loadAnalysisConfig(opts.configFile, cfg.AnalysisConfigPath)
	if err != nil {
		return nil, err
	}
	for _, w := range analysisconfig.Warn(analysis) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	log.WithFields(map[string]interface{}{
		"command":     cmd.Name(),
		"analysis_id": analysis.Meta.AnalysisID,
	}).Debug("Dependencies initialized")

	return &deps{cfg: cfg, log: log, analysis: analysis}, nil
}

// loadAnalysisConfig --config 플래그 > ANALYSIS_CONFIG > 기본값
func loadAnalysisConfig(flagPath, envPath string) (*analysisconfig.Config, error) {
	path := flagPath
	if path == "" {
		path = envPath
	}
	if path == "" {
		return analysisconfig.Default(), nil
	}

	cfg, _, err := analysisconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load analysis config: %w", err)
	}
	return cfg, nil
}
