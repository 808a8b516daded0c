package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootOptions 전역 플래그
type rootOptions struct {
	configFile string // 분석 설정 YAML
	env        string
	verbose    bool
	jsonOut    bool
}

// NewRootCmd builds the command tree
// 테스트마다 새 트리를 만들 수 있도록 플래그 상태는 rootOptions에 둔다
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "quant",
		Short: "QuantRisk - 성과/리스크 진단 CLI",
		Long: `QuantRisk Unified CLI

수익률 시계열의 drawdown, 롤링 회귀(beta), 성과 콘, 리스크 지표를 계산합니다.
입력은 CSV 파일 또는 PostgreSQL(data.daily_prices)에서 읽습니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant drawdown --returns strategy.csv
  go run ./cmd/quant beta --returns strategy.csv --benchmark kospi.csv
  go run ./cmd/quant cone --source db --code 005930
  go run ./cmd/quant report --returns strategy.csv --benchmark kospi.csv --json
  go run ./cmd/quant api`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "analysis config YAML (default: $ANALYSIS_CONFIG or built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "", "environment override (development|staging|production|test)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output (debug logs)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "JSON output")

	rootCmd.AddCommand(
		newDrawdownCmd(opts),
		newBetaCmd(opts),
		newConeCmd(opts),
		newStatsCmd(opts),
		newReportCmd(opts),
		newConfigCmd(opts),
		newScheduleCmd(opts),
		newAPICmd(opts),
		newTestDBCmd(opts),
	)
	return rootCmd
}

// Execute runs the CLI with a context cancelled on SIGINT/SIGTERM.
// This is called by main.main().
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
