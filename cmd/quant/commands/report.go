package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/quantrisk/internal/audit"
	"github.com/wonny/quantrisk/internal/risk"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		in      inputFlags
		name    string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "전체 진단 리포트 (drawdown + beta + cone + 리스크)",
		Long: `성과 지표, top-N drawdown, 롤링 Sharpe, 리스크 한도, 벤치마크/팩터 회귀,
성과 콘을 하나의 리포트로 조립합니다.

데이터가 부족한 섹션은 비워두고 Notes에 이유를 남깁니다.
팩터 기간 불일치, 설정 오류는 실패로 처리합니다.

Example:
  go run ./cmd/quant report --returns strategy.csv --benchmark kospi.csv
  go run ./cmd/quant report --returns strategy.csv --factors factors.csv --json --out report.json
  go run ./cmd/quant report --config config/analysis/default.yaml --source db --code 005930 --benchmark-code 069500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := initDeps(cmd, opts)
			if err != nil {
				return err
			}
			data, err := in.load(cmd.Context(), d)
			if err != nil {
				return err
			}
			if name == "" {
				name = data.name
			}

			reporter := audit.NewReporter(risk.NewEngine(), d.log)
			report, err := reporter.Generate(cmd.Context(), audit.ReportInput{
				Name:      name,
				Returns:   data.returns,
				Benchmark: data.benchmark,
				Factors:   data.factors,
				Config:    d.analysis,
			})
			if err != nil {
				return err
			}

			var body []byte
			if opts.jsonOut {
				if body, err = report.ToJSON(); err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
				body = append(body, '\n')
			} else {
				body = []byte(report.ToSummary())
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, body, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				d.log.WithField("path", outPath).Info("Report written")
				return nil
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}

	in.register(cmd, true)
	cmd.Flags().StringVar(&name, "name", "", "series name shown in the report (default: input path or code)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the report to a file instead of stdout")
	return cmd
}
