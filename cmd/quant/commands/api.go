package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quantrisk/internal/api"
	"github.com/wonny/quantrisk/internal/api/handlers"
)

func newAPICmd(opts *rootOptions) *cobra.Command {
	var apiPort string

	cmd := &cobra.Command{
		Use:   "api",
		Short: "API 서버 시작",
		Long: `REST API 서버를 시작합니다.

요청 본문으로 받은 시계열을 분석하며, DB 연결은 필요하지 않습니다.
기본 분석 설정은 --config 또는 ANALYSIS_CONFIG, 요청의 "config"가 그 위에 덮어씁니다.

Endpoints:
  GET  /health               - Health check
  GET  /api/config           - 기본 분석 설정
  POST /api/drawdowns        - Top-N drawdown
  POST /api/rolling-beta     - 롤링 alpha/beta, 다중 팩터
  POST /api/cone             - 성과 콘
  POST /api/stats            - 성과 지표 + 리스크 한도
  POST /api/report           - 전체 진단 리포트

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --config config/analysis/default.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Load config, logger, analysis defaults
			d, err := initDeps(cmd, opts)
			if err != nil {
				return err
			}

			// Override port if flag is set
			if apiPort != "" {
				d.cfg.Port = apiPort
			}

			d.log.WithFields(map[string]interface{}{
				"port":        d.cfg.Port,
				"env":         d.cfg.Env,
				"analysis_id": d.analysis.Meta.AnalysisID,
				"rate_rps":    d.cfg.RateLimit.RPS,
			}).Info("Initializing API server")

			// 2. Create handler and router
			analysisHandler := handlers.NewAnalysisHandler(d.analysis, d.log)
			router := api.NewRouter(analysisHandler, d.cfg.RateLimit, d.log)

			// 3. Run until SIGINT/SIGTERM (graceful shutdown)
			server := api.New(d.cfg, d.log, router)
			fmt.Fprintf(cmd.ErrOrStderr(), "✅ Server running on http://localhost:%s (Ctrl+C to stop)\n", d.cfg.Port)

			if err := server.Run(cmd.Context()); err != nil {
				return err
			}
			d.log.Info("Server stopped")
			return nil
		},
	}

	// Flags
	cmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: $PORT)")
	return cmd
}
