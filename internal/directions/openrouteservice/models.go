package openrouteservice

// routeRequest is the body of POST /v2/directions/{profile}.
// Coordinates are [lng, lat] pairs.
type routeRequest struct {
	Coordinates  [][2]float64  `json:"coordinates"`
	Alternatives *alternatives `json:"alternative_routes,omitempty"`
	Options      *avoidOptions `json:"options,omitempty"`
	Instructions bool          `json:"instructions"`
	Geometry     bool          `json:"geometry"`
	Units        string        `json:"units"`
	Language     string        `json:"language"`
}

type alternatives struct {
	TargetCount int `json:"target_count"`
}

type avoidOptions struct {
	AvoidFeatures []string `json:"avoid_features,omitempty"`
}

type routeResponse struct {
	Routes []route `json:"routes"`
}

// route geometry is an encoded polyline at precision 5.
type route struct {
	Summary struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"summary"`
	Segments []struct {
		Steps []step `json:"steps"`
	} `json:"segments,omitempty"`
	Geometry string `json:"geometry"`
}

type step struct {
	Distance    float64 `json:"distance"`
	Duration    float64 `json:"duration"`
	Type        int     `json:"type"`
	Instruction string  `json:"instruction"`
	Name        string  `json:"name"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Routing error codes returned with HTTP 400.
const (
	codeUnsupportedProfile = 2003
	codeRouteNotFound      = 2009
	codePointNotFound      = 2010
)
