package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Receive settings. A refresh fans out to every provider so only a few jobs
// run at once, and a slow run keeps its lease for up to maxLease.
const (
	maxInFlight = 4
	maxLease    = 10 * time.Minute
)

// SubscriptionConfig configures a Pub/Sub job subscription.
type SubscriptionConfig struct {
	ProjectID  string
	Name       string
	Dispatcher *Dispatcher
	Logger     zerolog.Logger
}

// Subscription pulls job messages from Pub/Sub and hands them to a Dispatcher.
type Subscription struct {
	name       string
	client     *pubsub.Client
	subscriber *pubsub.Subscriber
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

// NewSubscription connects to Pub/Sub.
func NewSubscription(ctx context.Context, cfg SubscriptionConfig) (*Subscription, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	sub := client.Subscriber(cfg.Name)
	sub.ReceiveSettings.MaxOutstandingMessages = maxInFlight
	sub.ReceiveSettings.MaxExtension = maxLease

	return &Subscription{
		name:       cfg.Name,
		client:     client,
		subscriber: sub,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger.With().Str("subscription", cfg.Name).Logger(),
	}, nil
}

// Run receives messages until ctx is done.
func (s *Subscription) Run(ctx context.Context) error {
	s.logger.Info().Msg("receiving jobs")
	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.process(ctx, msg.ID, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close releases the Pub/Sub client.
func (s *Subscription) Close() error {
	return s.client.Close()
}

// process runs one job and reports whether the message should be acked.
// Messages redelivery cannot fix are acked and dropped.
func (s *Subscription) process(ctx context.Context, id string, data []byte) bool {
	log := s.logger.With().Str("message_id", id).Logger()
	start := time.Now()

	err := s.dispatcher.Handle(ctx, data)
	switch {
	case err == nil:
		log.Info().Dur("duration", time.Since(start)).Msg("job completed")
		return true
	case errors.Is(err, ErrMalformedJob), errors.Is(err, ErrUnknownJob):
		log.Warn().Err(err).Msg("dropping message")
		return true
	default:
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed, requesting redelivery")
		return false
	}
}
