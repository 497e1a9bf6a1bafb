package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Job types accepted by the dispatcher.
const (
	JobConditionsRefresh = "conditions_refresh"
	JobHealthCheck       = "health_check"
)

const healthCheckTimeout = 10 * time.Second

// Dispatch errors. Messages failing with these are not retried.
var (
	ErrMalformedJob = errors.New("malformed job message")
	ErrUnknownJob   = errors.New("unknown job type")
)

// JobMessage is the payload of a worker job.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// Dispatcher runs jobs decoded from raw messages.
type Dispatcher struct {
	refresh *RefreshJob
	metrics *Metrics
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher for the given refresh job.
func NewDispatcher(refresh *RefreshJob, metrics *Metrics, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{refresh: refresh, metrics: metrics, logger: logger}
}

// Handle decodes data and runs the job it names.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}

	var err error
	switch msg.JobType {
	case JobConditionsRefresh:
		err = d.conditionsRefresh(ctx)
	case JobHealthCheck:
		err = d.healthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}

	d.metrics.observeRun(msg.JobType, err)
	return err
}

func (d *Dispatcher) conditionsRefresh(ctx context.Context) error {
	result := d.refresh.Run(ctx)

	// More failures than successes points at a provider outage; let the
	// message be redelivered later.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalPoints)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("refresh interrupted: %w", err)
	}
	return nil
}

// healthCheck fetches conditions for the highest priority point to verify
// provider connectivity.
func (d *Dispatcher) healthCheck(ctx context.Context) error {
	points := d.refresh.config.AllPoints()
	if len(points) == 0 {
		return nil
	}

	result := d.refresh.withTargets(points[:1], healthCheckTimeout).Run(ctx)
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
	}

	d.logger.Debug().Msg("health check passed")
	return nil
}
