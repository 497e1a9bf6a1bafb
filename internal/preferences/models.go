// Package preferences stores per-user route preferences.
package preferences

import (
	"errors"
	"time"

	"github.com/routopia/routeengine/internal/routing"
)

// Repository errors.
var (
	ErrNotFound      = errors.New("preferences not found")
	ErrInvalidUserID = errors.New("invalid user id")
)

// MaxUserIDLength bounds user identifiers.
const MaxUserIDLength = 128

// Record is a user's stored preferences.
type Record struct {
	UserID      string
	Preferences routing.RoutePreferences
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Defaults returns the preferences used for users without a record.
func Defaults() routing.RoutePreferences {
	return routing.RoutePreferences{Activity: routing.ActivityWalk}
}
