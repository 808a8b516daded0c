package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/quantrisk/pkg/logger"
)

// 6필드 cron (초 분 시 일 월 요일) + @daily 같은 descriptor
var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config 재시도 설정
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
	// Retryable가 false를 반환하면 즉시 실패 처리 (nil = 모든 에러 재시도)
	Retryable func(error) bool
}

// DefaultConfig 기본 재시도 설정
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: time.Minute,
	}
}

type entry struct {
	job      Job
	schedule cron.Schedule
	history  *JobHistory
}

// Scheduler cron 기반 작업 실행기
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
	config Config

	mu      sync.RWMutex
	entries map[string]*entry
	ctx     context.Context // Start에서 받은 ctx, 예약 실행에 전달
}

// New 스케줄러 생성
func New(cfg Config, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser)),
		logger:  log,
		config:  cfg,
		entries: make(map[string]*entry),
		ctx:     context.Background(),
	}
}

// AddJob 작업 등록. 이름 중복이나 잘못된 스케줄은 에러
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	sched, err := parser.Parse(job.Schedule())
	if err != nil {
		return fmt.Errorf("invalid schedule for job %s: %w", name, err)
	}

	s.cron.Schedule(sched, cron.FuncJob(func() {
		s.runJob(s.runContext(), job)
	}))
	s.entries[name] = &entry{job: job, schedule: sched, history: &JobHistory{}}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job scheduled")
	return nil
}

// Start 예약 실행 시작. ctx는 모든 예약 실행에 전달된다
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Info("Scheduler started")
	s.cron.Start()
}

// Stop 예약 실행 중지, 실행 중인 작업이 끝날 때까지 대기
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Run ctx가 끝날 때까지 블록
func (s *Scheduler) Run(ctx context.Context) {
	s.Start(ctx)
	<-ctx.Done()
	s.Stop()
}

// RunNow 스케줄과 무관하게 즉시 실행하고 결과를 반환
func (s *Scheduler) RunNow(ctx context.Context, name string) (JobResult, error) {
	s.mu.RLock()
	e, exists := s.entries[name]
	s.mu.RUnlock()

	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", name)
	}
	return s.runJob(ctx, e.job), nil
}

// NextRuns 작업별 다음 실행 예정 시각
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	out := make(map[string]time.Time, len(s.entries))
	for name, e := range s.entries {
		out[name] = e.schedule.Next(now)
	}
	return out
}

func (s *Scheduler) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

func (s *Scheduler) runJob(ctx context.Context, job Job) JobResult {
	name := job.Name()
	log := s.logger.WithField("job", name)
	log.Info("Job started")

	start := time.Now()
	attempts, err := s.runWithRetry(ctx, job, log)
	result := JobResult{
		JobName:   name,
		StartTime: start,
		Duration:  time.Since(start),
		Attempts:  attempts,
		Success:   err == nil,
	}
	if err != nil {
		result.Error = err.Error()
	}

	s.mu.Lock()
	if e, exists := s.entries[name]; exists {
		e.history.Add(result)
	}
	s.mu.Unlock()

	fields := map[string]interface{}{
		"duration": result.Duration,
		"attempts": attempts,
	}
	if err != nil {
		log.WithError(err).WithFields(fields).Error("Job failed")
	} else {
		log.WithFields(fields).Info("Job completed")
	}
	return result
}

// runWithRetry 최대 MaxRetries번 재시도. Retryable이 false면 즉시 중단
func (s *Scheduler) runWithRetry(ctx context.Context, job Job, log *logger.Logger) (int, error) {
	var err error
	attempt := 0
	for attempt < s.config.MaxRetries+1 {
		attempt++
		if err = job.Run(ctx); err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil || (s.config.Retryable != nil && !s.config.Retryable(err)) {
			return attempt, err
		}
		if attempt > s.config.MaxRetries {
			break
		}

		log.WithError(err).WithField("attempt", attempt).Warn("Job attempt failed, retrying")
		select {
		case <-time.After(s.config.RetryDelay):
		case <-ctx.Done():
			return attempt, err
		}
	}
	return attempt, err
}

// History 작업 실행 기록 (최근 maxHistory개, 오래된 순)
func (s *Scheduler) History(name string) ([]JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return e.history.Latest(maxHistory), nil
}

// Jobs 등록된 작업 이름 (정렬)
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JobStats 작업별 실행 통계
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}

// Stats 전체 작업 통계
func (s *Scheduler) Stats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.entries))
	for name, e := range s.entries {
		failures := e.history.Failures()
		lastSuccess, lastFailure := e.history.lastOutcome()
		stats[name] = JobStats{
			JobName:      name,
			Schedule:     e.job.Schedule(),
			TotalRuns:    e.history.Len(),
			SuccessCount: e.history.Len() - failures,
			FailureCount: failures,
			SuccessRate:  e.history.SuccessRate(),
			LastSuccess:  lastSuccess,
			LastFailure:  lastFailure,
		}
	}
	return stats
}
