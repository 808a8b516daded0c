package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantrisk/pkg/logger"
)

var errPermanent = errors.New("permanent")

type fakeJob struct {
	name     string
	schedule string
	calls    atomic.Int32
	failures int32 // 처음 n번 실패
	err      error
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if n <= j.failures {
		return j.err
	}
	return nil
}

func testScheduler() *Scheduler {
	return New(Config{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Retryable:  func(err error) bool { return !errors.Is(err, errPermanent) },
	}, logger.Nop())
}

func TestAddJob(t *testing.T) {
	s := testScheduler()

	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "0 30 18 * * 1-5"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}))
	assert.Equal(t, []string{"a", "b"}, s.Jobs())

	assert.Error(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}), "duplicate")
	assert.Error(t, s.AddJob(&fakeJob{name: "c", schedule: "not a cron"}), "invalid schedule")

	next := s.NextRuns()
	require.Contains(t, next, "b")
	assert.Equal(t, 18, next["b"].Hour())
	assert.Equal(t, 30, next["b"].Minute())
}

func TestRunNow(t *testing.T) {
	tests := []struct {
		name      string
		job       *fakeJob
		wantOK    bool
		wantCalls int32
	}{
		{"success", &fakeJob{name: "ok", schedule: "@daily"}, true, 1},
		{"recovers after retry", &fakeJob{name: "flaky", schedule: "@daily", failures: 2, err: errors.New("db down")}, true, 3},
		{"exhausts retries", &fakeJob{name: "down", schedule: "@daily", failures: 10, err: errors.New("db down")}, false, 3},
		{"permanent error not retried", &fakeJob{name: "bad", schedule: "@daily", failures: 10, err: errPermanent}, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testScheduler()
			require.NoError(t, s.AddJob(tt.job))

			result, err := s.RunNow(context.Background(), tt.job.name)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, result.Success)
			assert.Equal(t, tt.wantCalls, tt.job.calls.Load())
			assert.Equal(t, int(tt.wantCalls), result.Attempts)
			if !tt.wantOK {
				assert.NotEmpty(t, result.Error)
			}

			history, err := s.History(tt.job.name)
			require.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}
}

func TestRunNow_UnknownJob(t *testing.T) {
	_, err := testScheduler().RunNow(context.Background(), "missing")
	assert.Error(t, err)

	_, err = testScheduler().History("missing")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	s := testScheduler()
	job := &fakeJob{name: "report", schedule: "@hourly", failures: 3, err: errPermanent}
	require.NoError(t, s.AddJob(job))

	for i := 0; i < 4; i++ {
		_, err := s.RunNow(context.Background(), "report")
		require.NoError(t, err)
	}

	stats := s.Stats()["report"]
	assert.Equal(t, "@hourly", stats.Schedule)
	assert.Equal(t, 4, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 3, stats.FailureCount)
	assert.InDelta(t, 0.25, stats.SuccessRate, 1e-12)
	require.NotNil(t, stats.LastSuccess)
	require.NotNil(t, stats.LastFailure)
	assert.True(t, stats.LastSuccess.After(*stats.LastFailure) || stats.LastSuccess.Equal(*stats.LastFailure))
}

func TestJobHistory_Bounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+10; i++ {
		h.Add(JobResult{Attempts: i, Success: i%2 == 0})
	}
	assert.Equal(t, maxHistory, h.Len())
	assert.Equal(t, maxHistory/2, h.Failures())

	latest := h.Latest(5)
	require.Len(t, latest, 5)
	assert.Equal(t, maxHistory+9, latest[4].Attempts, "newest last")
	assert.Equal(t, 10, h.Latest(maxHistory)[0].Attempts, "oldest results dropped")

	assert.Empty(t, (&JobHistory{}).Latest(5))
	assert.Zero(t, (&JobHistory{}).SuccessRate())
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-12)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := testScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "tick", schedule: "@every 1h"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
