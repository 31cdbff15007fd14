package smarthub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appconfig "github.com/xtxerr/meterd/config"
	"github.com/xtxerr/meterd/internal/errors"
	"github.com/xtxerr/meterd/internal/logging"
)

const (
	authPath  = "/services/oauth/auth/v2"
	usagePath = "/services/secured/utility-usage/poll"
	userAgent = "meterd/0.1"

	// The vendor builds usage reports asynchronously behind the poll
	// endpoint. These bound how long one fetch waits for completion.
	defaultPollMaxRetries = appconfig.DefaultPollMaxRetries
	defaultPollRetryDelay = appconfig.DefaultPollRetryDelay
)

// Client talks to the SmartHub vendor API. It is safe for use from a
// single coordinator goroutine; the access token is re-acquired by
// calling Authenticate before each fetch cycle.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client

	pollMaxRetries int
	pollRetryDelay time.Duration

	accessToken string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the vendor endpoint, mainly for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithPollRetry overrides the PENDING re-poll bounds.
func WithPollRetry(maxRetries int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.pollMaxRetries = maxRetries
		c.pollRetryDelay = delay
	}
}

// NewClient creates a vendor API client for one set of credentials.
func NewClient(username, password string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        appconfig.DefaultBaseURL,
		username:       username,
		password:       password,
		http:           &http.Client{Timeout: appconfig.DefaultRequestTimeout},
		pollMaxRetries: defaultPollMaxRetries,
		pollRetryDelay: defaultPollRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate obtains a bearer token from the vendor's OAuth endpoint.
// The response schema drifts between deployments, so several token field
// names are accepted.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"userId":   {c.username},
		"password": {c.password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+authPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s",
			errors.ErrAuthFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var auth struct {
		AccessToken         string `json:"access_token"`
		AccessTokenAlt      string `json:"accessToken"`
		AuthorizationToken  string `json:"authorizationToken"`
		AuthorizationToken2 string `json:"authorization_token"`
	}
	if err := json.Unmarshal(body, &auth); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUnexpectedBody, err)
	}

	token := auth.AccessToken
	for _, alt := range []string{auth.AccessTokenAlt, auth.AuthorizationToken, auth.AuthorizationToken2} {
		if token == "" {
			token = alt
		}
	}
	if token == "" {
		return errors.ErrNoAccessToken
	}

	c.accessToken = token
	logging.Component("smarthub").Debug("authenticated", "user", c.username)
	return nil
}

// UsageRequest identifies one usage fetch.
type UsageRequest struct {
	ServiceLocation string
	AccountNumber   string
	StartMs         int64
	EndMs           int64
	TimeFrame       string // HOURLY, DAILY, MONTHLY
	Industries      []string
	IncludeDemand   bool
}

// GetUsageData fetches a usage report, re-polling while the server
// reports PENDING. Returns ErrReportPending when the report never
// completed within the retry budget.
func (c *Client) GetUsageData(ctx context.Context, req UsageRequest) (*UsageResponse, error) {
	if req.TimeFrame == "" {
		req.TimeFrame = "HOURLY"
	}
	if len(req.Industries) == 0 {
		req.Industries = []string{"ELECTRIC", "GAS"}
	}

	payload := map[string]any{
		"timeFrame":             req.TimeFrame,
		"userId":                c.username,
		"screen":                "USAGE_EXPLORER",
		"includeDemand":         req.IncludeDemand,
		"serviceLocationNumber": req.ServiceLocation,
		"accountNumber":         req.AccountNumber,
		"industries":            req.Industries,
		"startDateTime":         req.StartMs,
		"endDateTime":           req.EndMs,
	}

	resp, err := c.postUsage(ctx, payload)
	if err != nil {
		return nil, err
	}

	log := logging.Component("smarthub")
	for attempt := 1; resp.Pending() && attempt <= c.pollMaxRetries; attempt++ {
		log.Debug("report pending", "attempt", attempt, "max", c.pollMaxRetries)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollRetryDelay):
		}
		resp, err = c.postUsage(ctx, payload)
		if err != nil {
			return nil, err
		}
	}

	if resp.Pending() {
		return nil, fmt.Errorf("%w: after %d attempts", errors.ErrReportPending, c.pollMaxRetries)
	}
	return resp, nil
}

func (c *Client) postUsage(ctx context.Context, payload map[string]any) (*UsageResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal usage request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+usagePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build usage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s",
			errors.ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(text)))
	}

	var usage UsageResponse
	if err := json.NewDecoder(resp.Body).Decode(&usage); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnexpectedBody, err)
	}
	return &usage, nil
}
