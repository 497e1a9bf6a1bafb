// Package database opens the PostgreSQL pool backing the preference store.
package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database connection configuration.
type Config struct {
	// URL, when set, is used as the connection string and the discrete
	// fields below are ignored.
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

// ConfigFromEnv reads DATABASE_URL or the DB_* variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     envOr("DB_HOST", "localhost"),
		User:     envOr("DB_USER", "routopia"),
		Password: envOr("DB_PASSWORD", "localdev"),
		Database: envOr("DB_NAME", "routopia"),
		SSLMode:  envOr("DB_SSL_MODE", "disable"),
	}

	var errs []error
	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"DB_PORT", 5432, &cfg.Port},
		{"DB_MAX_OPEN_CONNS", 10, &cfg.MaxConns},
		{"DB_MAX_IDLE_CONNS", 2, &cfg.MinConns},
	}
	for _, v := range ints {
		*v.dest = v.def
		raw := os.Getenv(v.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", v.key, err))
			continue
		}
		*v.dest = n
	}

	lifetime, err := time.ParseDuration(envOr("DB_CONN_MAX_LIFETIME", "5m"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err))
	}
	cfg.ConnMaxLifetime = lifetime

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the pool limits.
func (c Config) Validate() error {
	switch {
	case c.URL == "" && (c.Port <= 0 || c.Port > 65535):
		return fmt.Errorf("DB_PORT out of range: %d", c.Port)
	case c.MaxConns < 1:
		return errors.New("DB_MAX_OPEN_CONNS must be at least 1")
	case c.MinConns < 0 || c.MinConns > c.MaxConns:
		return fmt.Errorf("DB_MAX_IDLE_CONNS must be between 0 and %d", c.MaxConns)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c Config) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	return c.dsn(url.UserPassword(c.User, c.Password))
}

// Redacted returns the connection string without the password, for logs.
func (c Config) Redacted() string {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return "invalid DATABASE_URL"
		}
		return u.Redacted()
	}
	return c.dsn(url.User(c.User))
}

func (c Config) dsn(user *url.Userinfo) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Connect opens a pool and pings it once.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns) //nolint:gosec // bounded by Validate
	poolConfig.MinConns = int32(cfg.MinConns) //nolint:gosec // bounded by Validate
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
