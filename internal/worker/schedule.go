package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Schedule dispatches jobType immediately and then every interval until ctx
// is done. It stands in for Pub/Sub when no project is configured. Job
// failures are logged and do not stop the loop.
func Schedule(ctx context.Context, d *Dispatcher, jobType string, interval time.Duration, logger zerolog.Logger) error {
	msg := []byte(`{"job_type":"` + jobType + `"}`)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := d.Handle(ctx, msg); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Str("job_type", jobType).Msg("scheduled job failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
