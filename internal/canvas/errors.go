package canvas

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNoChannel reports a user without any registered communication channel.
var ErrNoChannel = fmt.Errorf("user has no communication channel")

// bodySnippetLimit caps how much of an error response body is retained.
const bodySnippetLimit = 512

// APIError represents a non-2xx response from the platform.
type APIError struct {
	StatusCode  int
	Endpoint    string
	Message     string
	Body        string
	RateLimited bool
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("canvas API error: status %d on %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("canvas API error: status %d on %s", e.StatusCode, e.Endpoint)
}

// Unauthorized reports whether the platform rejected the credential itself.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// newAPIError drains the response body and builds an APIError, decoding the
// platform's error envelope when present. The platform reports throttling as
// 429 or as 403 with "Rate Limit Exceeded" in the body.
func newAPIError(resp *http.Response, endpoint string) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, bodySnippetLimit))
	body := string(raw)

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
		Message:    decodeErrorMessage(raw),
		Body:       body,
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RateLimited = true
	}
	if resp.StatusCode == http.StatusForbidden && strings.Contains(body, "Rate Limit Exceeded") {
		apiErr.RateLimited = true
	}

	return apiErr
}

// decodeErrorMessage extracts a human-readable message from the platform's
// error envelopes: {"errors":[{"message":...}]} or {"message":...}.
func decodeErrorMessage(raw []byte) string {
	var list struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list.Errors) > 0 && list.Errors[0].Message != "" {
		return list.Errors[0].Message
	}

	var single struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.Message != "" {
		return single.Message
	}

	return ""
}
