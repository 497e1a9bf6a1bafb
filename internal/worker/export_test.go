package worker

import (
	"context"

	"github.com/rs/zerolog"
)

// NewOfflineSubscription returns a Subscription that is not connected to Pub/Sub.
func NewOfflineSubscription(d *Dispatcher) *Subscription {
	return &Subscription{dispatcher: d, logger: zerolog.Nop()}
}

// Process exposes the ack decision for a single message.
func (s *Subscription) Process(ctx context.Context, data []byte) bool {
	return s.process(ctx, "test-message", data)
}
