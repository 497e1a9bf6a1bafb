package models

import (
	"github.com/routopia/routeengine/internal/congestion"
	"github.com/routopia/routeengine/internal/geo"
)

// PredictionsResponse is the body of GET /v1/congestion/predictions.
type PredictionsResponse struct {
	Location geo.Point                    `json:"location"`
	Points   []congestion.PredictionPoint `json:"points"`
}

// TrendResponse is the body of GET /v1/congestion/trend.
type TrendResponse struct {
	Location geo.Point `json:"location"`
	congestion.TrendAnalysis
}
