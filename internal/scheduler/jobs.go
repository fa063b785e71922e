package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// JobFlushSnapshots is the name of the periodic snapshot flush
const JobFlushSnapshots = "snapshots.flush"

// Flusher persists all live state
type Flusher interface {
	Flush(ctx context.Context) error
	IDs() []string
}

// FlushJob saves every live session on schedule
func FlushJob(schedule string, f Flusher) Job {
	return Job{
		Name:        JobFlushSnapshots,
		Schedule:    schedule,
		Description: "Persist every live session snapshot",
		Run: func(ctx context.Context) error {
			start := time.Now()
			if err := f.Flush(ctx); err != nil {
				return err
			}
			log.Info().Int("sessions", len(f.IDs())).Dur("took", time.Since(start)).Msg("Snapshots flushed")
			return nil
		},
	}
}
