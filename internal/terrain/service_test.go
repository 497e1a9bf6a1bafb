package terrain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/provider/resilience"
	"github.com/routopia/routeengine/internal/terrain"
)

func TestService_GetConditions_StaleAfterFailure(t *testing.T) {
	provider := terrain.NewStaticProvider(terrain.Conditions{Surface: terrain.SurfaceGravel, Slope: 6})
	service := terrain.NewService(terrain.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: time.Millisecond,
		Retry:    &resilience.RetryPolicy{MaxAttempts: 1},
	})

	p := geo.Point{Lat: 45.37, Lng: -121.69}
	c, err := service.GetConditions(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, terrain.SurfaceGravel, c.Surface)

	time.Sleep(5 * time.Millisecond)
	provider.SetError(errors.New("elevation service down"))

	c, err = service.GetConditions(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 6.0, c.Slope)

	_, err = service.GetConditions(context.Background(), geo.Point{Lat: 10, Lng: 10})
	assert.ErrorIs(t, err, terrain.ErrProviderUnavailable)
}
