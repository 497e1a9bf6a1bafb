package models

import "github.com/routopia/routeengine/internal/routing"

// PreferencesResponse is a user's stored route preferences.
type PreferencesResponse struct {
	UserID      string                   `json:"userId"`
	Preferences routing.RoutePreferences `json:"preferences"`
	CreatedAt   Timestamp                `json:"createdAt"`
	UpdatedAt   Timestamp                `json:"updatedAt"`
}
