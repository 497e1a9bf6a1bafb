package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

const defaultClientTimeout = 10 * time.Second

// ErrCircuitOpen is returned when the breaker rejects a call without reaching the upstream.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig configures a provider HTTP client.
type ClientConfig struct {
	// Name identifies the upstream in the breaker, the logs and the registry.
	Name string

	// Timeout bounds a single HTTP attempt. Default: 10s.
	Timeout time.Duration

	// Retry applies to network errors and 5xx responses.
	Retry RetryPolicy

	// CircuitBreaker defaults to DefaultCircuitBreakerConfig(Name) when nil.
	CircuitBreaker *CircuitBreakerConfig

	// Registry receives the client under Name and every call outcome.
	Registry *Registry
}

// DefaultClientConfig returns the defaults used by provider clients.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:    name,
		Timeout: defaultClientTimeout,
		Retry: RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		CircuitBreaker: &cb,
	}
}

// Client performs HTTP calls to one upstream behind a breaker with retries.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	retry    RetryPolicy
	registry *Registry
}

// NewClient builds a Client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultClientTimeout
	}
	cb := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cb = *cfg.CircuitBreaker
	}

	retry := cfg.Retry.withDefaults()
	retry.AttemptTimeout = 0 // the http.Client timeout bounds each attempt

	c := &Client{
		name:     cfg.Name,
		http:     &http.Client{Timeout: cfg.Timeout},
		breaker:  NewCircuitBreaker[*http.Response](cb), //nolint:bodyclose // type param
		retry:    retry,
		registry: cfg.Registry,
	}
	if c.registry != nil {
		c.registry.Register(c.name, c)
	}
	return c
}

// Name returns the upstream name.
func (c *Client) Name() string { return c.name }

// CircuitBreakerState returns the breaker state.
func (c *Client) CircuitBreakerState() gobreaker.State { return c.breaker.State() }

// CircuitBreakerCounts returns the breaker counters for the current generation.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts { return c.breaker.Counts() }

// Do sends req, retrying network errors and 5xx responses with backoff.
// 4xx responses are returned without retry. When retries are exhausted on a
// 5xx the last response is returned with a nil error so the caller can map
// it. An open breaker fails fast with ErrCircuitOpen.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var last *http.Response

	keep := func(resp *http.Response) {
		if last != nil && last != resp {
			last.Body.Close()
		}
		last = resp
	}

	err := backoff.Retry(func() error {
		resp, err := c.attempt(ctx, req)
		if resp != nil {
			keep(resp)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		return err
	}, c.retry.backOff(ctx))

	c.record(last, err)

	switch {
	case err == nil:
		return last, nil
	case last != nil && !errors.Is(err, ErrCircuitOpen):
		return last, nil
	default:
		if last != nil {
			last.Body.Close()
		}
		return nil, err
	}
}

// attempt runs one breaker-guarded call. A 5xx counts as a breaker failure.
func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &ServerError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

func (c *Client) record(resp *http.Response, err error) {
	if c.registry == nil {
		return
	}
	switch {
	case err != nil:
		c.registry.RecordFailure(c.name, err)
	case resp != nil && resp.StatusCode >= http.StatusBadRequest:
		c.registry.RecordFailure(c.name, errors.New(http.StatusText(resp.StatusCode)))
	default:
		c.registry.RecordSuccess(c.name)
	}
}

// ServerError is a 5xx answer from an upstream.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}
