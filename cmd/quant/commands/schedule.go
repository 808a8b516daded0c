package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quantrisk/internal/audit"
	"github.com/wonny/quantrisk/internal/risk"
	"github.com/wonny/quantrisk/internal/scheduler"
	"github.com/wonny/quantrisk/internal/scheduler/jobs"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var (
		in     inputFlags
		name   string
		spec   string
		outDir string
		runNow bool
		once   bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "진단 리포트 정기 생성 (cron)",
		Long: `cron 스케줄에 맞춰 입력을 다시 읽고 진단 리포트를 JSON 파일로 기록합니다.
파일명: <out-dir>/<name>-<YYYYMMDD-HHMMSS>.json

스케줄은 초 단위를 포함한 6필드 cron 또는 @daily, @every 1h 형식입니다.
DB 연결 실패 같은 일시적 오류만 재시도하고, 데이터/설정 오류는 즉시 실패로 기록합니다.

Example:
  go run ./cmd/quant schedule --source db --code 005930 --benchmark-code 069500 --cron "0 30 18 * * 1-5"
  go run ./cmd/quant schedule --returns strategy.csv --once --out-dir reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := initDeps(cmd, opts)
			if err != nil {
				return err
			}

			analysis := d.analysis
			loader := func(ctx context.Context) (audit.ReportInput, error) {
				data, err := in.load(ctx, d)
				if err != nil {
					return audit.ReportInput{}, err
				}
				return audit.ReportInput{
					Name:      data.name,
					Returns:   data.returns,
					Benchmark: data.benchmark,
					Factors:   data.factors,
					Config:    analysis,
				}, nil
			}

			reporter := audit.NewReporter(risk.NewEngine(), d.log)
			job := jobs.NewReportJob(name, spec, loader, reporter, outDir, d.log)

			schedCfg := scheduler.DefaultConfig()
			schedCfg.Retryable = jobs.Retryable
			sched := scheduler.New(schedCfg, d.log)
			if err := sched.AddJob(job); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if runNow || once {
				result, err := sched.RunNow(cmd.Context(), job.Name())
				if err != nil {
					return err
				}
				if !result.Success {
					if once {
						return fmt.Errorf("job %s failed: %s", result.JobName, result.Error)
					}
					PrintWarning(out, fmt.Sprintf("job %s failed: %s", result.JobName, result.Error))
				}
				if once {
					PrintSuccess(out, fmt.Sprintf("Report written to %s (%s)", outDir, result.Duration))
					return nil
				}
			}

			for jobName, next := range sched.NextRuns() {
				PrintKeyValue(out, jobName, "next run "+next.Format("2006-01-02 15:04:05"), 12)
			}
			sched.Run(cmd.Context())

			for jobName, stats := range sched.Stats() {
				d.log.WithFields(map[string]interface{}{
					"job":     jobName,
					"runs":    stats.TotalRuns,
					"success": stats.SuccessCount,
					"failure": stats.FailureCount,
				}).Info("Scheduler summary")
			}
			return nil
		},
	}

	in.register(cmd, true)
	cmd.Flags().StringVar(&name, "name", "report", "job name (used in output file names)")
	cmd.Flags().StringVar(&spec, "cron", "0 30 18 * * 1-5", "cron schedule (6 fields, seconds first)")
	cmd.Flags().StringVar(&outDir, "out-dir", "reports", "directory for report files")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run once immediately, then keep the schedule")
	cmd.Flags().BoolVar(&once, "once", false, "run once and exit")
	return cmd
}
