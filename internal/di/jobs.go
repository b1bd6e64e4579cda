package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-manager/internal/clientdata"
	"github.com/aristath/portfolio-manager/internal/config"
	"github.com/aristath/portfolio-manager/internal/reliability"
	"github.com/aristath/portfolio-manager/internal/scheduler"
)

// walCheckpointSchedule truncates the WAL files every six hours
const walCheckpointSchedule = "0 0 */6 * * *"

// RegisterJobs creates the background jobs and schedules them.
// The scheduler is returned stopped; the caller starts it.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	jobs := &JobInstances{
		CacheCleanup:  clientdata.NewSweepJob(container.ClientCache, log),
		WALCheckpoint: scheduler.NewWALCheckpointJob(container.Databases(), log),
	}

	if err := sched.AddJob(cfg.CacheCleanupSchedule, jobs.CacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to schedule cache cleanup: %w", err)
	}
	if err := sched.AddJob(walCheckpointSchedule, jobs.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to schedule WAL checkpoint: %w", err)
	}

	if container.BackupService != nil {
		jobs.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob(cfg.Backup.Schedule, jobs.Backup); err != nil {
			return nil, fmt.Errorf("failed to schedule backup: %w", err)
		}
	}

	container.Scheduler = sched
	container.Jobs = jobs

	log.Info().Strs("jobs", sched.Jobs()).Msg("Jobs registered")
	return jobs, nil
}
