// Package handler provides the HTTP handlers of the route engine API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/api/models"
	"github.com/routopia/routeengine/internal/api/response"
	"github.com/routopia/routeengine/internal/congestion"
	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/preferences"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/pkg/polyline"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// errorCodes maps sentinel errors to machine readable field error codes.
var errorCodes = []struct {
	err  error
	code string
}{
	{routing.ErrUnknownActivity, "UNKNOWN_ACTIVITY"},
	{routing.ErrIncompatibleTerrain, "INCOMPATIBLE_TERRAIN"},
	{routing.ErrInvalidPreferences, "INVALID_PREFERENCES"},
	{routing.ErrEmptyRoute, "EMPTY_ROUTE"},
	{geo.ErrInvalidCoordinates, "INVALID_COORDINATES"},
	{congestion.ErrInvalidTimeRange, "INVALID_TIME_RANGE"},
	{preferences.ErrInvalidUserID, "INVALID_USER_ID"},
	{polyline.ErrMalformed, "MALFORMED_POLYLINE"},
}

func errorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// decode reads a JSON body into v. It writes a 400 problem and returns false
// when the body is missing, oversized or malformed.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		detail := "invalid JSON body"
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			detail = "request body is required"
		case errors.As(err, &maxErr):
			detail = fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)
		default:
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				response.BadRequest(w, r, detail, []models.FieldError{
					{Field: typeErr.Field, Message: "must be " + typeErr.Type.String()},
				})
				return false
			}
		}
		response.BadRequest(w, r, detail, nil)
		return false
	}
	return true
}

// writeError maps a service error to a problem response. Validation errors
// become 400s; anything unexpected is logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var verr *routing.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(w, r, "request validation failed", []models.FieldError{
			{Field: verr.Field, Message: verr.Message, Code: errorCode(verr)},
		})
	case errors.Is(err, preferences.ErrNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "request was cancelled before it completed")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, r, "internal server error")
	}
}

func required(fields ...string) []models.FieldError {
	errs := make([]models.FieldError, len(fields))
	for i, f := range fields {
		errs[i] = models.FieldError{Field: f, Message: "is required", Code: "REQUIRED"}
	}
	return errs
}
