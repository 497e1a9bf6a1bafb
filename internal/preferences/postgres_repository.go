package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/routopia/routeengine/internal/routing"
)

// Schema creates the preferences table.
const Schema = `
	CREATE TABLE IF NOT EXISTS route_preferences (
		user_id        TEXT PRIMARY KEY,
		activity       TEXT NOT NULL,
		avoid_highways BOOLEAN NOT NULL DEFAULT FALSE,
		avoid_traffic  BOOLEAN NOT NULL DEFAULT FALSE,
		prefer_scenic  BOOLEAN NOT NULL DEFAULT FALSE,
		avoid_tolls    BOOLEAN NOT NULL DEFAULT FALSE,
		weights        JSONB,
		sensitivity    DOUBLE PRECISION,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL preference repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the preferences table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create route_preferences: %w", err)
	}
	return nil
}

// Get retrieves the record for a user.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*Record, error) {
	query := `
		SELECT
			user_id, activity,
			avoid_highways, avoid_traffic, prefer_scenic, avoid_tolls,
			weights, sensitivity,
			created_at, updated_at
		FROM route_preferences
		WHERE user_id = $1
	`

	var (
		rec      Record
		activity string
		weights  []byte
	)
	p := &rec.Preferences

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&rec.UserID,
		&activity,
		&p.AvoidHighways,
		&p.AvoidTraffic,
		&p.PreferScenic,
		&p.AvoidTolls,
		&weights,
		&p.Sensitivity,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Activity = routing.Activity(activity)
	if len(weights) > 0 {
		var w routing.Weights
		if err := json.Unmarshal(weights, &w); err != nil {
			return nil, fmt.Errorf("decode weights for %s: %w", userID, err)
		}
		p.Weights = &w
	}

	return &rec, nil
}

// Upsert creates or replaces the record for a user.
func (r *PostgresRepository) Upsert(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO route_preferences (
			user_id, activity,
			avoid_highways, avoid_traffic, prefer_scenic, avoid_tolls,
			weights, sensitivity,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			activity = EXCLUDED.activity,
			avoid_highways = EXCLUDED.avoid_highways,
			avoid_traffic = EXCLUDED.avoid_traffic,
			prefer_scenic = EXCLUDED.prefer_scenic,
			avoid_tolls = EXCLUDED.avoid_tolls,
			weights = EXCLUDED.weights,
			sensitivity = EXCLUDED.sensitivity,
			updated_at = EXCLUDED.updated_at
	`

	p := record.Preferences
	var weights []byte
	if p.Weights != nil {
		var err error
		if weights, err = json.Marshal(p.Weights); err != nil {
			return fmt.Errorf("encode weights: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, query,
		record.UserID,
		string(p.Activity),
		p.AvoidHighways,
		p.AvoidTraffic,
		p.PreferScenic,
		p.AvoidTolls,
		weights,
		p.Sensitivity,
		record.CreatedAt,
		record.UpdatedAt,
	)
	return err
}

// Delete removes the record for a user.
func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM route_preferences WHERE user_id = $1`, userID)
	return err
}

var _ Repository = (*PostgresRepository)(nil)
