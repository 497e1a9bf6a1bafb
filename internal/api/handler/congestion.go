package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/api/models"
	"github.com/routopia/routeengine/internal/api/response"
	"github.com/routopia/routeengine/internal/congestion"
	"github.com/routopia/routeengine/internal/geo"
)

// CongestionHandler handles congestion forecast endpoints.
type CongestionHandler struct {
	predictor congestion.Predictor
	logger    zerolog.Logger
}

// NewCongestionHandler creates a CongestionHandler.
func NewCongestionHandler(predictor congestion.Predictor, logger zerolog.Logger) *CongestionHandler {
	return &CongestionHandler{predictor: predictor, logger: logger}
}

// PredictCongestion handles GET /v1/congestion/predictions?lat=&lng=&start=&end=.
func (h *CongestionHandler) PredictCongestion(w http.ResponseWriter, r *http.Request) {
	location, tr, ok := parseForecastQuery(w, r)
	if !ok {
		return
	}

	points, err := h.predictor.PredictCongestion(r.Context(), location, tr)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.PredictionsResponse{Location: location, Points: points})
}

// AnalyzeTrend handles GET /v1/congestion/trend?lat=&lng=&start=&end=.
func (h *CongestionHandler) AnalyzeTrend(w http.ResponseWriter, r *http.Request) {
	location, tr, ok := parseForecastQuery(w, r)
	if !ok {
		return
	}

	analysis, err := h.predictor.AnalyzeTrend(r.Context(), location, tr)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.TrendResponse{Location: location, TrendAnalysis: analysis})
}

// parseForecastQuery reads lat and lng (required) and start and end
// (optional, RFC 3339). Every malformed parameter is reported at once.
func parseForecastQuery(w http.ResponseWriter, r *http.Request) (geo.Point, congestion.TimeRange, bool) {
	q := r.URL.Query()
	var errs []models.FieldError

	number := func(key string) float64 {
		v := q.Get(key)
		if v == "" {
			errs = append(errs, required(key)...)
			return 0
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, models.FieldError{Field: key, Message: "must be a number", Code: "INVALID_NUMBER"})
		}
		return f
	}
	instant := func(key string) time.Time {
		v := q.Get(key)
		if v == "" {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errs = append(errs, models.FieldError{Field: key, Message: "must be an RFC 3339 timestamp", Code: "INVALID_TIME"})
		}
		return t
	}

	location := geo.Point{Lat: number("lat"), Lng: number("lng")}
	tr := congestion.TimeRange{Start: instant("start"), End: instant("end")}

	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", errs)
		return geo.Point{}, congestion.TimeRange{}, false
	}
	return location, tr, true
}
