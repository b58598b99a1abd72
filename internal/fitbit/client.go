// Package fitbit is a minimal client for the Fitbit Web API: OAuth token
// exchange and refresh, plus the daily activity summary the sync worker
// reads step counts from.
package fitbit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"stridesync/internal/metrics"
)

const (
	defaultAuthorizeURL = "https://www.fitbit.com/oauth2/authorize"
	defaultTokenURL     = "https://api.fitbit.com/oauth2/token"
	defaultAPIBaseURL   = "https://api.fitbit.com"

	// TokenExpiryBuffer is how far ahead of expiry tokens are refreshed
	TokenExpiryBuffer = 5 * time.Minute

	maxElapsedRetry = 2 * time.Minute
)

// Client is a Fitbit API client
type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	logger       *slog.Logger
	rateLimiter  *RateLimiter

	// Overridable in tests
	authorizeURL string
	tokenURL     string
	apiBaseURL   string
}

// HTTPError is a non-2xx response from the Fitbit API
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fitbit API error (HTTP %d): %s", e.StatusCode, e.Body)
}

// IsUnauthorized checks if an error is a 401 from Fitbit
func IsUnauthorized(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized
}

// IsTooManyRequests checks if an error is a 429 from Fitbit
func IsTooManyRequests(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests
}

// NewClient creates a new Fitbit API client
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       slog.Default(),
		rateLimiter:  NewRateLimiter(),
		authorizeURL: defaultAuthorizeURL,
		tokenURL:     defaultTokenURL,
		apiBaseURL:   defaultAPIBaseURL,
	}
}

// SetTokenURL overrides the token endpoint (used in tests)
func (c *Client) SetTokenURL(u string) {
	c.tokenURL = u
}

// SetAPIBaseURL overrides the API base URL (used in tests)
func (c *Client) SetAPIBaseURL(u string) {
	c.apiBaseURL = u
}

// TokenResponse represents the response from a token exchange or refresh
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	FitbitUserID string `json:"user_id"`
}

// AuthorizeURL builds the Fitbit authorization URL for the activity scope
func (c *Client) AuthorizeURL(redirectURI, state string) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {c.clientID},
		"redirect_uri":  {redirectURI},
		"scope":         {"activity"},
		"state":         {state},
	}
	return fmt.Sprintf("%s?%s", c.authorizeURL, params.Encode())
}

// ExchangeCode exchanges an authorization code for access and refresh tokens.
// Fitbit requires Basic auth with the client credentials and a form body.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	return c.tokenRequest(ctx, metrics.OpExchangeCode, data)
}

// RefreshToken refreshes an access token using a refresh token
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.tokenRequest(ctx, metrics.OpRefreshToken, data)
}

func (c *Client) tokenRequest(ctx context.Context, operation string, data url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.basicCredentials())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("token request failed", "operation", operation, "error", err, "duration_ms", duration.Milliseconds())
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	c.observeRequest(operation, resp, duration)

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResp, nil
}

// dailySummaryResponse is the slice of the Fitbit daily activity payload we
// care about
type dailySummaryResponse struct {
	Summary struct {
		Steps int64 `json:"steps"`
	} `json:"summary"`
}

// GetDailySteps fetches the total step count for one local calendar date
// (YYYY-MM-DD). Transient failures are retried with exponential backoff;
// client errors other than 429 fail immediately.
func (c *Client) GetDailySteps(ctx context.Context, accessToken, date string) (int64, error) {
	path := fmt.Sprintf("%s/1/user/-/activities/date/%s.json", c.apiBaseURL, date)

	var steps int64
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", path, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(start)

		if err != nil {
			c.logger.Warn("daily steps request failed", "date", date, "error", err)
			return fmt.Errorf("daily steps request failed: %w", err)
		}
		defer resp.Body.Close()

		c.observeRequest(metrics.OpGetDailySteps, resp, duration)
		c.rateLimiter.UpdateFromHeaders(resp.Header)

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			return &HTTPError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
		}
		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(&HTTPError{StatusCode: resp.StatusCode, Body: string(bodyBytes)})
		}

		var summary dailySummaryResponse
		if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode daily summary: %w", err))
		}

		steps = summary.Summary.Steps
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsedRetry
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return 0, err
	}

	return steps, nil
}

// TokenNeedsRefresh reports whether a token expiring at the given unix time
// should be refreshed now
func TokenNeedsRefresh(expiresAt int64) bool {
	return time.Now().Add(TokenExpiryBuffer).Unix() >= expiresAt
}

func (c *Client) basicCredentials() string {
	return base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
}

func (c *Client) observeRequest(operation string, resp *http.Response, duration time.Duration) {
	statusStr := strconv.Itoa(resp.StatusCode)
	metrics.FitbitAPIRequestsTotal.WithLabelValues(operation, statusStr).Inc()
	metrics.FitbitAPIRequestDuration.WithLabelValues(operation, statusStr).Observe(duration.Seconds())
	c.logger.Debug("fitbit_api_request",
		"operation", operation,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds())
}
