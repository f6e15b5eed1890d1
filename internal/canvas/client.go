// Canvas LMS REST API client.
//
// Endpoint shapes based on https://canvas.instructure.com/doc/api/
package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tmacdonald/prefsweep/internal/models"
	"github.com/tmacdonald/prefsweep/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	apiPrefix      = "/api/v1"
	defaultPerPage = 100
)

// Client issues authenticated, throttled requests against a single platform
// instance. All operations take the configured per-call timeout; a retried
// call gets a fresh timeout each attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	headers    map[string]string
	actAs      int64
	logger     *log.Logger
}

// NewClient builds a Client from the API configuration. The bearer credential
// is attached through an OAuth2 static token source and a token bucket
// throttles requests to cfg.RateLimit per second.
func NewClient(cfg shared.APIConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	httpClient := oauth2.NewClient(context.Background(), source)

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 5.0
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
		timeout:    timeout,
		headers:    cfg.Headers,
		actAs:      cfg.ActAs,
		logger:     logger,
	}
}

// doRequest performs one authenticated request. The endpoint is either a path
// relative to /api/v1 or an absolute continuation URL from a Link header.
// Response headers are returned so listing calls can follow pagination.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, result any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http") {
		apiURL = c.baseURL + apiPrefix + endpoint
	}
	apiURL = c.withActAs(apiURL)

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, apiURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("canvas request",
		"method", method, "path", req.URL.Path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp, req.URL.Path)
		if apiErr.RateLimited {
			c.logger.Warn("canvas throttled request", "path", req.URL.Path, "status", resp.StatusCode)
		}
		return resp.Header, apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.Header, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.Header, nil
}

// withActAs appends the globally configured masquerade id unless the request
// already impersonates a specific user.
func (c *Client) withActAs(rawURL string) string {
	if c.actAs == 0 {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	if q.Has("as_user_id") {
		return rawURL
	}
	q.Set("as_user_id", strconv.FormatInt(c.actAs, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchAccount retrieves the administrative account the run operates under.
// This is the first call of every run and doubles as the credential check.
func (c *Client) FetchAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	var account models.Account
	endpoint := fmt.Sprintf("/accounts/%d", accountID)
	if _, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// FetchTerm resolves an enrollment term id to its record.
func (c *Client) FetchTerm(ctx context.Context, accountID int64, termID string) (*models.Term, error) {
	var term models.Term
	endpoint := fmt.Sprintf("/accounts/%d/terms/%s", accountID, url.PathEscape(termID))
	if _, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &term); err != nil {
		return nil, err
	}
	return &term, nil
}

// ListCourses returns one page of the term's courses plus the continuation
// URL for the following page. Pass the returned URL back as pageURL until it
// comes back empty.
func (c *Client) ListCourses(ctx context.Context, accountID int64, termID string, pageURL string) ([]models.Course, string, error) {
	endpoint := pageURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("/accounts/%d/courses?enrollment_term_id=%s&per_page=%d",
			accountID, url.QueryEscape(termID), defaultPerPage)
	}

	var courses []models.Course
	header, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &courses)
	if err != nil {
		return nil, "", err
	}

	return courses, parseNextLink(header.Get("Link")), nil
}

// ListEnrollments returns one page of a course's enrollments plus the
// continuation URL, paged the same way as ListCourses.
func (c *Client) ListEnrollments(ctx context.Context, courseID int64, pageURL string) ([]models.Enrollment, string, error) {
	endpoint := pageURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("/courses/%d/enrollments?per_page=%d", courseID, defaultPerPage)
	}

	var enrollments []models.Enrollment
	header, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &enrollments)
	if err != nil {
		return nil, "", err
	}

	return enrollments, parseNextLink(header.Get("Link")), nil
}

// preferencesResponse is the platform's notification preference envelope.
type preferencesResponse struct {
	NotificationPreferences []models.Preference `json:"notification_preferences"`
}

type frequencyValue struct {
	Frequency models.Frequency `json:"frequency"`
}

// updatePayload mirrors the PUT body the platform expects.
type updatePayload struct {
	NotificationPreferences []frequencyValue `json:"notification_preferences"`
}

// ListPreferences resolves a user's primary communication channel and lists
// the channel's current notification preferences. Users without a registered
// channel return [ErrNoChannel].
func (c *Client) ListPreferences(ctx context.Context, userID int64) (*models.PreferenceSet, error) {
	var channels []models.CommunicationChannel
	endpoint := fmt.Sprintf("/users/%d/communication_channels", userID)
	if _, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &channels); err != nil {
		return nil, err
	}

	if len(channels) == 0 {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNoChannel)
	}

	primary := channels[0]
	for _, ch := range channels[1:] {
		if ch.Position < primary.Position {
			primary = ch
		}
	}

	var resp preferencesResponse
	endpoint = fmt.Sprintf("/users/self/communication_channels/%d/notification_preferences?as_user_id=%d", primary.ID, userID)
	if _, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	return &models.PreferenceSet{ChannelID: primary.ID, Preferences: resp.NotificationPreferences}, nil
}

// UpdatePreference sets the delivery frequency for one notification category
// on the user's channel, acting as that user.
func (c *Client) UpdatePreference(ctx context.Context, userID, channelID int64, notification string, frequency models.Frequency) error {
	endpoint := fmt.Sprintf("/users/self/communication_channels/%d/notification_preferences/%s?as_user_id=%d",
		channelID, url.PathEscape(notification), userID)

	payload := updatePayload{NotificationPreferences: []frequencyValue{{Frequency: frequency}}}
	_, err := c.doRequest(ctx, http.MethodPut, endpoint, payload, nil)
	return err
}
