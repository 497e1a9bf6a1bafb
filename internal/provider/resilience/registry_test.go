package resilience_test

import (
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routopia/routeengine/internal/provider/resilience"
)

// fixedBreaker reports a fixed circuit state.
type fixedBreaker struct {
	state  gobreaker.State
	counts gobreaker.Counts
}

func (b fixedBreaker) CircuitBreakerState() gobreaker.State   { return b.state }
func (b fixedBreaker) CircuitBreakerCounts() gobreaker.Counts { return b.counts }

func TestRegistry_ClientRegistersItself(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("openweathermap")
	cfg.Registry = registry

	client := resilience.NewClient(cfg)

	assert.Equal(t, 1, registry.ProviderCount())
	health := registry.GetHealth("openweathermap")
	require.NotNil(t, health)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.Equal(t, resilience.StatusHealthy, health.Status())
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
	assert.Equal(t, "openweathermap", client.Name())
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("tomtom", fixedBreaker{state: gobreaker.StateClosed})

	registry.RecordSuccess("tomtom")
	registry.RecordFailure("tomtom", assert.AnError)

	health := registry.GetHealth("tomtom")
	require.NotNil(t, health)
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, assert.AnError.Error(), health.LastError)

	// Snapshots do not alias registry state.
	*health.LastSuccessAt = time.Time{}
	assert.False(t, registry.GetHealth("tomtom").LastSuccessAt.IsZero())
}

func TestRegistry_UnknownNames(t *testing.T) {
	registry := resilience.NewRegistry()

	assert.NotPanics(t, func() {
		registry.RecordSuccess("nonexistent")
		registry.RecordFailure("nonexistent", assert.AnError)
	})
	assert.Nil(t, registry.GetHealth("nonexistent"))
	assert.Empty(t, registry.GetProviderNames())
}

func TestRegistry_Unregister(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("openmeteo", fixedBreaker{})

	registry.Unregister("openmeteo")

	assert.Zero(t, registry.ProviderCount())
	assert.Nil(t, registry.GetHealth("openmeteo"))
}

func TestRegistry_OrderedByName(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"tomtom", "openmeteo", "openweathermap"} {
		registry.Register(name, fixedBreaker{})
	}

	assert.Equal(t, []string{"openmeteo", "openweathermap", "tomtom"}, registry.GetProviderNames())

	all := registry.GetAllHealth()
	require.Len(t, all, 3)
	assert.Equal(t, "openmeteo", all[0].Name)
	assert.Equal(t, "tomtom", all[2].Name)
}

func TestRegistry_Status(t *testing.T) {
	tests := []struct {
		name   string
		states []gobreaker.State
		want   string
	}{
		{"empty", nil, resilience.StatusHealthy},
		{"all closed", []gobreaker.State{gobreaker.StateClosed, gobreaker.StateClosed}, resilience.StatusHealthy},
		{"one half open", []gobreaker.State{gobreaker.StateClosed, gobreaker.StateHalfOpen}, resilience.StatusDegraded},
		{"one open", []gobreaker.State{gobreaker.StateOpen, gobreaker.StateClosed}, resilience.StatusDegraded},
		{"all open", []gobreaker.State{gobreaker.StateOpen, gobreaker.StateOpen}, resilience.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := resilience.NewRegistry()
			for i, s := range tt.states {
				registry.Register(string(rune('a'+i)), fixedBreaker{state: s})
			}
			assert.Equal(t, tt.want, registry.Status())
		})
	}
}

func TestProviderHealth_Status(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  string
	}{
		{gobreaker.StateClosed, resilience.StatusHealthy},
		{gobreaker.StateHalfOpen, resilience.StatusDegraded},
		{gobreaker.StateOpen, resilience.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.want, h.Status())
			assert.Equal(t, tt.state == gobreaker.StateClosed, h.IsHealthy())
			assert.Equal(t, tt.state == gobreaker.StateHalfOpen, h.IsDegraded())
			assert.Equal(t, tt.state == gobreaker.StateOpen, h.IsUnhealthy())
		})
	}
}
