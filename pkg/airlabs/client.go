// Package airlabs is a client for the AirLabs schedules API. It fetches the
// raw departure and arrival boards for one airport, rate-limited and retried
// with exponential backoff; client-error responses give up immediately.
package airlabs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/tunis-skies/flightwatch/internal/resilience"
)

const defaultBaseURL = "https://airlabs.co/api/v9"

// Client fetches schedule boards.
type Client interface {
	// Schedules returns the parsed entries for one direction plus the raw
	// response body for snapshotting.
	Schedules(ctx context.Context, dir Direction, airportIATA string, airlineIATAs []string) ([]Flight, json.RawMessage, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetryConfig overrides the default retry behavior.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithCircuitBreaker overrides the default breaker guarding the feed.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *httpClient) {
		c.breaker = cb
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewClient creates an AirLabs schedules client.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("airlabs", "schedules")
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(1, 2),
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Schedules(ctx context.Context, dir Direction, airportIATA string, airlineIATAs []string) ([]Flight, json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, nil, eris.New("airlabs: api key is required")
	}
	if airportIATA == "" {
		return nil, nil, eris.New("airlabs: airport iata is required")
	}

	q := url.Values{}
	q.Set(dir.queryParam(), airportIATA)
	for _, airline := range airlineIATAs {
		q.Add("airline_iata", airline)
	}
	q.Set("api_key", c.apiKey)
	reqURL := c.baseURL + "/schedules?" + q.Encode()

	// Each attempt goes through the breaker individually: once the feed has
	// failed enough times in a row, ErrCircuitOpen short-circuits the retry
	// loop because it is not transient.
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
			return c.get(ctx, reqURL)
		})
	})
	if err != nil {
		return nil, nil, eris.Wrapf(err, "airlabs: schedules %s %s", dir, airportIATA)
	}

	flights, err := ParseSchedules(body)
	if err != nil {
		return nil, nil, err
	}

	return flights, json.RawMessage(body), nil
}

func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "http get")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}
	return body, nil
}
