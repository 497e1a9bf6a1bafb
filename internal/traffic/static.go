package traffic

import (
	"context"
	"sync"
	"time"

	"github.com/routopia/routeengine/internal/geo"
)

// StaticProvider serves fixed conditions. Used for local development and tests.
type StaticProvider struct {
	mu         sync.RWMutex
	conditions Conditions
	err        error
}

// NewStaticProvider creates a provider that always returns c.
func NewStaticProvider(c Conditions) *StaticProvider {
	return &StaticProvider{conditions: c}
}

// DefaultConditions returns light urban traffic.
func DefaultConditions() Conditions {
	return Conditions{
		CongestionLevel: 0.2,
		AverageSpeed:    40,
		FreeFlowSpeed:   50,
		Density:         24,
		Confidence:      0.8,
	}
}

// Name returns the provider name.
func (p *StaticProvider) Name() string {
	return "static"
}

// GetConditions returns the configured conditions stamped with the current time.
func (p *StaticProvider) GetConditions(_ context.Context, pt geo.Point) (Conditions, error) {
	if err := pt.Validate(); err != nil {
		return Conditions{}, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.err != nil {
		return Conditions{}, p.err
	}
	c := p.conditions
	c.Timestamp = time.Now()
	return c, nil
}

// Set replaces the served conditions.
func (p *StaticProvider) Set(c Conditions) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conditions = c
}

// SetError makes every call fail with err until cleared with nil.
func (p *StaticProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}
