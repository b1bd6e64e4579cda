// Package scheduler runs background maintenance jobs on cron schedules.
package scheduler

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrUnknownJob is returned by Trigger for names that were never registered
var ErrUnknownJob = errors.New("unknown job")

// Job is a unit of background work
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the run history of one registered job
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

type entry struct {
	job    Job
	status JobStatus
}

// Scheduler owns the cron loop and the registered jobs.
// Schedules take a leading seconds field ("0 */5 * * * *").
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu      sync.Mutex
	order   []string
	entries map[string]*entry
}

func New(log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		entries: make(map[string]*entry),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.Jobs())).Msg("Scheduler started")
}

// Stop halts the cron loop and blocks until running jobs return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers job under schedule. Names must be unique.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	name := job.Name()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entries[name]; dup {
		return errors.New("job " + name + " already registered")
	}

	if _, err := s.cron.AddFunc(schedule, func() { _ = s.execute(name) }); err != nil {
		return err
	}

	s.entries[name] = &entry{job: job, status: JobStatus{Name: name, Schedule: schedule}}
	s.order = append(s.order, name)

	s.log.Info().Str("job", name).Str("schedule", schedule).Msg("Job registered")
	return nil
}

// Trigger runs a registered job now, outside its schedule, and returns its error
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	_, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}

	s.log.Info().Str("job", name).Msg("Job triggered manually")
	return s.execute(name)
}

// Jobs returns registered job names in registration order
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Status returns the run history of every job, sorted by name
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) execute(name string) error {
	s.mu.Lock()
	e := s.entries[name]
	s.mu.Unlock()

	started := time.Now()
	err := e.job.Run()

	s.mu.Lock()
	e.status.Runs++
	e.status.LastRun = started
	e.status.LastError = ""
	if err != nil {
		e.status.Failures++
		e.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("Job failed")
		return err
	}
	s.log.Debug().Str("job", name).Dur("took", time.Since(started)).Msg("Job completed")
	return nil
}

// cronLogger routes cron's own messages (panics, skipped runs) to zerolog
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
