package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/worker"
)

func newDispatcher(t *testing.T, wx *recordingWeather, points ...geo.Point) (*worker.Dispatcher, *worker.Metrics) {
	t.Helper()
	metrics := worker.NewMetrics()
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:  singleTarget(points...),
		Logger:  zerolog.Nop(),
		Weather: wx,
		Metrics: metrics,
	})
	return worker.NewDispatcher(job, metrics, zerolog.Nop()), metrics
}

func TestDispatcher_ConditionsRefresh(t *testing.T) {
	wx := &recordingWeather{}
	d, metrics := newDispatcher(t, wx, geo.Point{Lat: 52.37, Lng: 4.90}, geo.Point{Lat: 48.85, Lng: 2.35})

	err := d.Handle(context.Background(), []byte(`{"job_type":"conditions_refresh"}`))

	require.NoError(t, err)
	assert.Len(t, wx.calls(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues(worker.JobConditionsRefresh, "success")))
}

func TestDispatcher_ConditionsRefresh_MostlyFailing(t *testing.T) {
	wx := &recordingWeather{err: errors.New("quota exceeded")}
	d, metrics := newDispatcher(t, wx, geo.Point{Lat: 52.37, Lng: 4.90})

	err := d.Handle(context.Background(), []byte(`{"job_type":"conditions_refresh"}`))

	assert.ErrorContains(t, err, "too many refresh failures")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues(worker.JobConditionsRefresh, "failure")))
}

func TestDispatcher_HealthCheck_UsesSinglePoint(t *testing.T) {
	wx := &recordingWeather{}
	first := geo.Point{Lat: 52.37, Lng: 4.90}
	d, metrics := newDispatcher(t, wx, first, geo.Point{Lat: 48.85, Lng: 2.35})

	err := d.Handle(context.Background(), []byte(`{"job_type":"health_check"}`))

	require.NoError(t, err)
	assert.Equal(t, []geo.Point{first}, wx.calls())
	assert.Zero(t, testutil.ToFloat64(metrics.LastSuccess), "health checks do not count as refreshes")
}

func TestDispatcher_HealthCheck_Failure(t *testing.T) {
	wx := &recordingWeather{err: errors.New("connection refused")}
	d, _ := newDispatcher(t, wx, geo.Point{Lat: 52.37, Lng: 4.90})

	err := d.Handle(context.Background(), []byte(`{"job_type":"health_check"}`))

	assert.ErrorContains(t, err, "connection refused")
}

func TestDispatcher_RejectsBadMessages(t *testing.T) {
	d, _ := newDispatcher(t, &recordingWeather{}, geo.Point{Lat: 52.37, Lng: 4.90})

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"not json", `job`, worker.ErrMalformedJob},
		{"unknown type", `{"job_type":"alert_evaluation"}`, worker.ErrUnknownJob},
		{"missing type", `{}`, worker.ErrUnknownJob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Handle(context.Background(), []byte(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
