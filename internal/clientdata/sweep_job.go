package clientdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const sweepTimeout = time.Minute

// SweepJob is the scheduled job that drops expired cache rows
type SweepJob struct {
	cache *Cache
	log   zerolog.Logger
}

func NewSweepJob(cache *Cache, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		cache: cache,
		log:   log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

func (j *SweepJob) Name() string {
	return "client_data_cleanup"
}

func (j *SweepJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	started := time.Now()
	report, err := j.cache.Sweep(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Cache sweep failed")
		return err
	}
	if report.Total == 0 {
		return nil
	}

	ev := j.log.Info().Int64("total", report.Total).Dur("took", time.Since(started))
	for _, table := range Tables {
		ev = ev.Int64(string(table), report.Removed[table])
	}
	ev.Msg("Swept expired cache entries")
	return nil
}
