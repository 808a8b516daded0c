package scheduler

import (
	"context"
	"time"
)

// maxHistory job별 보관 결과 수
const maxHistory = 100

// Job 주기 실행 작업
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string
	Run(ctx context.Context) error

	// Schedule 초 단위를 포함한 6필드 cron 또는 descriptor
	// 예: "0 30 18 * * 1-5" (평일 18:30), "@daily", "@every 1h"
	Schedule() string
}

// JobResult 한 번의 실행 결과 (재시도 포함)
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory 최근 maxHistory개 실행 결과
type JobHistory struct {
	results []JobResult
}

// Add 결과 추가, 오래된 결과부터 버린다
func (h *JobHistory) Add(result JobResult) {
	h.results = append(h.results, result)
	if over := len(h.results) - maxHistory; over > 0 {
		h.results = append(h.results[:0:0], h.results[over:]...)
	}
}

// Len 보관 중인 결과 수
func (h *JobHistory) Len() int {
	return len(h.results)
}

// Latest 최근 n개 결과의 복사본 (오래된 순)
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.results) {
		n = len(h.results)
	}
	out := make([]JobResult, n)
	copy(out, h.results[len(h.results)-n:])
	return out
}

// Failures 실패 횟수
func (h *JobHistory) Failures() int {
	n := 0
	for _, r := range h.results {
		if !r.Success {
			n++
		}
	}
	return n
}

// SuccessRate 성공 비율 (0.0 ~ 1.0), 기록이 없으면 0
func (h *JobHistory) SuccessRate() float64 {
	if len(h.results) == 0 {
		return 0
	}
	return float64(len(h.results)-h.Failures()) / float64(len(h.results))
}

// lastOutcome 마지막 성공/실패 시각
func (h *JobHistory) lastOutcome() (success, failure *time.Time) {
	for i := len(h.results) - 1; i >= 0 && (success == nil || failure == nil); i-- {
		start := h.results[i].StartTime
		if h.results[i].Success && success == nil {
			success = &start
		} else if !h.results[i].Success && failure == nil {
			failure = &start
		}
	}
	return success, failure
}
