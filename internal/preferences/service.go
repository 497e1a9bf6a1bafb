package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/routing"
)

// Service provides preference operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	clock  func() time.Time
}

// NewService creates a new preference service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, clock: time.Now}
}

// Get returns the stored record for a user.
func (s *Service) Get(ctx context.Context, userID string) (*Record, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

// Resolve returns the user's preferences, or Defaults when none are stored
// or the store cannot be read. An empty userID resolves to Defaults.
func (s *Service) Resolve(ctx context.Context, userID string) routing.RoutePreferences {
	if userID == "" {
		return Defaults()
	}
	rec, err := s.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to load preferences, using defaults")
		}
		return Defaults()
	}
	return rec.Preferences
}

// Update validates and stores preferences for a user. A missing activity
// defaults to walking.
func (s *Service) Update(ctx context.Context, userID string, prefs routing.RoutePreferences) (*Record, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if prefs.Activity == "" {
		prefs.Activity = Defaults().Activity
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	rec := &Record{
		UserID:      userID,
		Preferences: prefs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing, err := s.repo.Get(ctx, userID); err == nil {
		rec.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("store preferences: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("activity", string(prefs.Activity)).
		Msg("preferences updated")

	return rec, nil
}

// Delete removes a user's preferences.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID)
}

func validateUserID(userID string) error {
	switch {
	case strings.TrimSpace(userID) == "":
		return &routing.ValidationError{Field: "userId", Message: "is required", Err: ErrInvalidUserID}
	case len(userID) > MaxUserIDLength:
		return &routing.ValidationError{
			Field:   "userId",
			Message: fmt.Sprintf("must be at most %d characters", MaxUserIDLength),
			Err:     ErrInvalidUserID,
		}
	}
	return nil
}
