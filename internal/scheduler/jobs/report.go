package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/quantrisk/internal/audit"
	"github.com/wonny/quantrisk/internal/timeseries"
	"github.com/wonny/quantrisk/pkg/logger"
)

// InputLoader 실행 시점마다 분석 입력을 새로 읽는다 (DB/CSV)
type InputLoader func(ctx context.Context) (audit.ReportInput, error)

// ReportJob 진단 리포트를 주기적으로 생성해 JSON 파일로 기록
type ReportJob struct {
	name     string
	schedule string
	load     InputLoader
	reporter *audit.Reporter
	outDir   string
	logger   *logger.Logger

	now func() time.Time
}

// NewReportJob creates a new report job
func NewReportJob(name, schedule string, load InputLoader, reporter *audit.Reporter, outDir string, log *logger.Logger) *ReportJob {
	return &ReportJob{
		name:     name,
		schedule: schedule,
		load:     load,
		reporter: reporter,
		outDir:   outDir,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *ReportJob) Name() string {
	return j.name
}

// Schedule returns the cron schedule
func (j *ReportJob) Schedule() string {
	return j.schedule
}

// Run loads the inputs, generates the report and writes <outDir>/<name>-<timestamp>.json
func (j *ReportJob) Run(ctx context.Context) error {
	input, err := j.load(ctx)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	report, err := j.reporter.Generate(ctx, input)
	if err != nil {
		return err
	}
	body, err := report.ToJSON()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err := os.MkdirAll(j.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(j.outDir, fmt.Sprintf("%s-%s.json", j.name, j.now().Format("20060102-150405")))
	if err := os.WriteFile(path, append(body, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	j.logger.WithRun(report.RunID, report.AnalysisID).WithFields(map[string]interface{}{
		"job":      j.name,
		"path":     path,
		"warnings": len(report.Warnings),
	}).Info("Scheduled report written")
	return nil
}

// Retryable 데이터 계약/설정 오류는 재시도해도 같은 결과이므로 false
// DB 연결, 파일 I/O 같은 나머지 에러만 재시도한다
func Retryable(err error) bool {
	var alignErr *timeseries.AlignmentError
	switch {
	case errors.As(err, &alignErr),
		errors.Is(err, timeseries.ErrInvalidConfig),
		errors.Is(err, timeseries.ErrInsufficientData),
		errors.Is(err, timeseries.ErrDegenerate),
		errors.Is(err, timeseries.ErrUnordered),
		errors.Is(err, timeseries.ErrInvalidValue),
		errors.Is(err, timeseries.ErrNonPositiveValue):
		return false
	default:
		return true
	}
}
