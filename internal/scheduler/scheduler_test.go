package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/portfolio-manager/internal/database"
	testingpkg "github.com/aristath/portfolio-manager/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("every tuesday", &countingJob{name: "bad"})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestAddJobRequiresSecondsField(t *testing.T) {
	s := New(zerolog.Nop())

	assert.Error(t, s.AddJob("0 3 * * *", &countingJob{name: "five_fields"}))
	require.NoError(t, s.AddJob("0 0 3 * * *", &countingJob{name: "six_fields"}))
	assert.Equal(t, []string{"six_fields"}, s.Jobs())
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(zerolog.Nop())
	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("boom")}

	require.NoError(t, s.AddJob("@every 1s", ok))
	require.NoError(t, s.AddJob("@every 1s", failing))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return ok.runs.Load() > 0 && failing.runs.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestAddJobRejectsDuplicateNames(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "dup"}))
	assert.Error(t, s.AddJob("@every 2h", &countingJob{name: "dup"}))
	assert.Equal(t, []string{"dup"}, s.Jobs())
}

func TestTriggerRecordsStatus(t *testing.T) {
	s := New(zerolog.Nop())
	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.AddJob("@every 1h", ok))
	require.NoError(t, s.AddJob("@every 1h", failing))

	require.NoError(t, s.Trigger("ok"))
	assert.EqualError(t, s.Trigger("failing"), "boom")
	assert.ErrorIs(t, s.Trigger("nope"), ErrUnknownJob)

	status := s.Status()
	require.Len(t, status, 2)

	assert.Equal(t, "failing", status[0].Name)
	assert.Equal(t, 1, status[0].Runs)
	assert.Equal(t, 1, status[0].Failures)
	assert.Equal(t, "boom", status[0].LastError)

	assert.Equal(t, "ok", status[1].Name)
	assert.Equal(t, "@every 1h", status[1].Schedule)
	assert.Equal(t, 1, status[1].Runs)
	assert.Zero(t, status[1].Failures)
	assert.False(t, status[1].LastRun.IsZero())
	assert.Equal(t, int32(1), ok.runs.Load())
}

type panickyJob struct{ calls atomic.Int32 }

func (j *panickyJob) Name() string { return "panicky" }
func (j *panickyJob) Run() error {
	j.calls.Add(1)
	panic("job exploded")
}

func TestPanickingJobDoesNotStopScheduler(t *testing.T) {
	s := New(zerolog.Nop())
	p := &panickyJob{}
	ok := &countingJob{name: "ok"}
	require.NoError(t, s.AddJob("@every 1s", p))
	require.NoError(t, s.AddJob("@every 1s", ok))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return p.calls.Load() >= 2 && ok.runs.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWALCheckpointJob(t *testing.T) {
	portfolioDB, cleanupPortfolio := testingpkg.NewTestDB(t, "portfolio")
	defer cleanupPortfolio()
	clientDB, cleanupClient := testingpkg.NewTestDB(t, "client_data")
	defer cleanupClient()

	job := NewWALCheckpointJob(map[string]*database.DB{
		"portfolio":   portfolioDB,
		"client_data": clientDB,
		"missing":     nil,
	}, zerolog.Nop())

	assert.Equal(t, "wal_checkpoint", job.Name())
	assert.NoError(t, job.Run())
}

func TestWALCheckpointJobReportsFailures(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	cleanup()

	job := NewWALCheckpointJob(map[string]*database.DB{"portfolio": db}, zerolog.Nop())
	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portfolio")
}
