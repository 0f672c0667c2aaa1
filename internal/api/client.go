// Package api provides a client for the Tankille fuel price API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mtoivanen/fuelwatch/internal/models"
)

const (
	// DefaultBaseURL is the Tankille API endpoint.
	DefaultBaseURL = "https://api.tankille.fi"
	// requestTimeout bounds every API request.
	requestTimeout = 10 * time.Second
	// tokenCacheDuration is how long a fetched access token is reused.
	// Access tokens expire after 12 hours; refresh after 10.
	tokenCacheDuration = 36000 * time.Second

	deviceName = "Android SDK built for x86_64 (03280ceb8a5367a6)"
	userAgent  = "FuelFellow/3.6.2 (Android SDK built for x86_64; Android 9)"
)

// Client talks to the Tankille API. It caches the access token and
// re-fetches it from the refresh token when the cache window expires.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger

	mu             sync.Mutex
	accessToken    string
	refreshToken   string
	tokenFetchedAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used in tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Tankille API client.
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL: DefaultBaseURL,
		logger:  logger.With().Str("component", "api").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// loginResponse is the JSON response from /auth/login.
type loginResponse struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse is the JSON response from /auth/refresh.
type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// HasToken reports whether a usable access token is held.
func (c *Client) HasToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken != ""
}

// Login authenticates with email and password and caches the resulting
// refresh and access tokens. With force set, any held tokens are discarded
// first.
func (c *Client) Login(ctx context.Context, email, password string, force bool) error {
	if email == "" || password == "" {
		return &AuthenticationError{Reason: "email or password missing"}
	}

	if force {
		c.mu.Lock()
		c.accessToken = ""
		c.refreshToken = ""
		c.tokenFetchedAt = time.Time{}
		c.mu.Unlock()
	} else if c.HasToken() {
		// Already logged in; verify the token is still refreshable.
		if err := c.Authenticate(ctx); err == nil {
			return nil
		}
	}

	body := map[string]any{
		"device":   deviceName,
		"email":    email,
		"password": password,
		"force":    force,
	}

	var resp loginResponse
	if err := c.post(ctx, "/auth/login", body, &resp, true); err != nil {
		return err
	}
	if resp.RefreshToken == "" {
		return &AuthenticationError{Reason: "no refresh token in login response"}
	}

	c.mu.Lock()
	c.refreshToken = resp.RefreshToken
	c.mu.Unlock()

	if err := c.Authenticate(ctx); err != nil {
		return err
	}

	c.logger.Info().Msg("authenticated with Tankille API")
	return nil
}

// Authenticate obtains a fresh access token from the held refresh token.
// A token fetched within the cache window is reused without a request.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	refreshToken := c.refreshToken
	cached := c.accessToken != "" && time.Since(c.tokenFetchedAt) <= tokenCacheDuration
	c.mu.Unlock()

	if cached {
		return nil
	}
	if refreshToken == "" {
		return &AuthenticationError{Reason: "no refresh token available, login required"}
	}

	var resp refreshResponse
	if err := c.post(ctx, "/auth/refresh", map[string]any{"token": refreshToken}, &resp, true); err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return &AuthenticationError{Reason: "no access token in refresh response"}
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.tokenFetchedAt = time.Now()
	c.mu.Unlock()

	c.logger.Debug().Msg("refreshed access token")
	return nil
}

// GetStations fetches the full station catalog.
func (c *Client) GetStations(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	if err := c.get(ctx, "/stations", &stations); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("count", len(stations)).Msg("fetched station catalog")
	return stations, nil
}

// GetStationsByLocation fetches stations within distance meters of the
// given coordinates.
func (c *Client) GetStationsByLocation(ctx context.Context, lat, lon float64, distance int) ([]models.Station, error) {
	path := fmt.Sprintf("/stations?location=%f,%f&distance=%d", lon, lat, distance)

	var stations []models.Station
	if err := c.get(ctx, path, &stations); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("count", len(stations)).
		Float64("lat", lat).
		Float64("lon", lon).
		Int("distance", distance).
		Msg("fetched stations by location")
	return stations, nil
}

// FindStationsByName fetches the station catalog and returns the stations
// whose name exactly matches one of the given names.
func (c *Client) FindStationsByName(ctx context.Context, names []string) ([]models.Station, error) {
	if len(names) == 0 {
		return nil, nil
	}

	all, err := c.GetStations(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var matched []models.Station
	for _, st := range all {
		if wanted[st.Name] {
			matched = append(matched, st)
		}
	}

	c.logger.Debug().
		Strs("names", names).
		Int("count", len(matched)).
		Msg("matched stations by name")
	return matched, nil
}

// get performs an authenticated GET request and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, out any) error {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()

	if token == "" {
		return &AuthenticationError{Reason: "not authenticated"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &APIError{Reason: "creating request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-access-token", token)

	return c.do(req, out, false)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(ctx context.Context, path string, body any, out any, auth bool) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &APIError{Reason: "encoding request body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &APIError{Reason: "creating request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out, auth)
}

// do executes the request. Non-2xx responses on auth endpoints become
// AuthenticationError; everywhere else a 401/403 is an AuthenticationError
// and any other failure an APIError.
func (c *Client) do(req *http.Request, out any, authEndpoint bool) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{
			Reason:  "connecting to Tankille API",
			Timeout: isTimeoutError(err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		reason := fmt.Sprintf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

		if authEndpoint || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &AuthenticationError{Reason: reason}
		}
		return &APIError{Reason: reason}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Reason: "parsing response JSON", Err: err}
	}
	return nil
}

// isTimeoutError reports whether the transport error is timeout-class.
func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
