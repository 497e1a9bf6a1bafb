package handler

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/api/models"
	"github.com/routopia/routeengine/internal/api/response"
	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/optimizer"
	"github.com/routopia/routeengine/internal/preferences"
	"github.com/routopia/routeengine/internal/routing"
)

// maxRankedRoutes bounds the routes accepted by a single ranking request.
const maxRankedRoutes = 20

// RouteEngine is the part of the routing engine exposed over HTTP.
type RouteEngine interface {
	routing.Evaluator
	routing.Generator
	routing.Ranker
}

// RouteHandler handles route planning and scoring endpoints.
type RouteHandler struct {
	optimizer   optimizer.RouteOptimizer
	engine      RouteEngine
	preferences *preferences.Service
	logger      zerolog.Logger
}

// NewRouteHandler creates a RouteHandler. prefs may be nil, in which case
// requests must carry their own preferences.
func NewRouteHandler(opt optimizer.RouteOptimizer, engine RouteEngine, prefs *preferences.Service, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		optimizer:   opt,
		engine:      engine,
		preferences: prefs,
		logger:      logger,
	}
}

// OptimizeRoute handles POST /v1/routes:optimize.
func (h *RouteHandler) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	var in models.OptimizeRequest
	if !decode(w, r, &in) {
		return
	}

	var missing []string
	if in.Start == nil {
		missing = append(missing, "start")
	}
	if in.End == nil {
		missing = append(missing, "end")
	}
	if len(missing) > 0 {
		response.BadRequest(w, r, "request validation failed", required(missing...))
		return
	}

	prefs := h.resolvePreferences(r, in.Preferences, in.UserID)
	name := in.Activity
	if name == "" {
		name = string(prefs.Activity)
	}
	activity, err := routing.ParseActivity(name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	req := optimizer.Request{
		Start:       *in.Start,
		End:         *in.End,
		Activity:    activity,
		Preferences: prefs,
		Weather:     in.Weather,
		Terrain:     in.Terrain,
	}
	if in.DepartAt != nil {
		req.Depart = in.DepartAt.Time()
	}

	res, err := h.optimizer.OptimizeRoute(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	response.JSON(w, r, http.StatusOK, optimizeResponse(res))
}

// RankRoutes handles POST /v1/routes:rank.
func (h *RouteHandler) RankRoutes(w http.ResponseWriter, r *http.Request) {
	var in models.RankRequest
	if !decode(w, r, &in) {
		return
	}
	if err := in.Preferences.Validate(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(in.Routes) > maxRankedRoutes {
		writeError(w, r, h.logger, &routing.ValidationError{
			Field:   "routes",
			Message: fmt.Sprintf("at most %d routes can be ranked at once", maxRankedRoutes),
		})
		return
	}

	routes := make([]routing.Route, 0, len(in.Routes))
	seen := make(map[string]bool, len(in.Routes))
	for i, ri := range in.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		route, err := toRoute(ri, in.Preferences, field)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if seen[route.ID] {
			writeError(w, r, h.logger, &routing.ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate route id %q", route.ID),
			})
			return
		}
		seen[route.ID] = true
		routes = append(routes, route)
	}

	result := h.engine.RankRoutes(r.Context(), routes, in.Preferences)

	response.JSON(w, r, http.StatusOK, models.RankResponse{
		Routes:    routeResponses(result.Routes),
		Scores:    result.Scores,
		Breakdown: result.Breakdown,
	})
}

// GenerateAlternatives handles POST /v1/routes:alternatives.
func (h *RouteHandler) GenerateAlternatives(w http.ResponseWriter, r *http.Request) {
	route, position, prefs, ok := h.positionedRoute(w, r)
	if !ok {
		return
	}

	variants := h.engine.GenerateAlternatives(r.Context(), route, position, prefs)

	response.JSON(w, r, http.StatusOK, models.AlternativesResponse{Routes: routeResponses(variants)})
}

// EvaluateReroute handles POST /v1/reroute:evaluate.
func (h *RouteHandler) EvaluateReroute(w http.ResponseWriter, r *http.Request) {
	route, position, prefs, ok := h.positionedRoute(w, r)
	if !ok {
		return
	}

	decision := h.engine.EvaluateRerouteNecessity(r.Context(), route, position, prefs)

	response.JSON(w, r, http.StatusOK, decision)
}

// positionedRoute decodes and validates a route with the traveller's
// position, writing a problem response on failure.
func (h *RouteHandler) positionedRoute(w http.ResponseWriter, r *http.Request) (routing.Route, geo.Point, routing.RoutePreferences, bool) {
	var in models.PositionedRouteRequest
	if !decode(w, r, &in) {
		return routing.Route{}, geo.Point{}, routing.RoutePreferences{}, false
	}
	if in.Position == nil {
		response.BadRequest(w, r, "request validation failed", required("position"))
		return routing.Route{}, geo.Point{}, routing.RoutePreferences{}, false
	}

	fail := func(err error) (routing.Route, geo.Point, routing.RoutePreferences, bool) {
		writeError(w, r, h.logger, err)
		return routing.Route{}, geo.Point{}, routing.RoutePreferences{}, false
	}

	if err := in.Position.Validate(); err != nil {
		return fail(&routing.ValidationError{Field: "position", Message: err.Error(), Err: err})
	}
	if err := in.Preferences.Validate(); err != nil {
		return fail(err)
	}
	route, err := toRoute(in.Route, in.Preferences, "route")
	if err != nil {
		return fail(err)
	}
	return route, *in.Position, in.Preferences, true
}

// resolvePreferences prefers explicit preferences over the user's stored ones.
func (h *RouteHandler) resolvePreferences(r *http.Request, explicit *routing.RoutePreferences, userID string) routing.RoutePreferences {
	if explicit != nil {
		return *explicit
	}
	if h.preferences != nil && userID != "" {
		return h.preferences.Resolve(r.Context(), userID)
	}
	return routing.RoutePreferences{}
}
