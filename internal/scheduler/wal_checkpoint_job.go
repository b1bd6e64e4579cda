package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/portfolio-manager/internal/database"
	"github.com/rs/zerolog"
)

// WALCheckpointJob truncates the write-ahead log of every database
type WALCheckpointJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a checkpoint job over the named databases
func NewWALCheckpointJob(databases map[string]*database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints each database. A failure on one database does not stop the others.
func (j *WALCheckpointJob) Run() error {
	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var failed []string
	for _, name := range names {
		db := j.databases[name]
		if db == nil {
			continue
		}
		if err := db.WALCheckpoint(ctx, "TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
			failed = append(failed, name)
			continue
		}
		j.log.Debug().Str("database", name).Msg("WAL checkpointed")
	}

	if len(failed) > 0 {
		return fmt.Errorf("WAL checkpoint failed for %v", failed)
	}
	return nil
}
