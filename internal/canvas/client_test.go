package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tmacdonald/prefsweep/internal/models"
	"github.com/tmacdonald/prefsweep/internal/shared"
	tu "github.com/tmacdonald/prefsweep/internal/testing"
)

func testConfig(baseURL string) shared.APIConfig {
	return shared.APIConfig{
		BaseURL:        baseURL,
		Token:          "test-token",
		AccountID:      1,
		TimeoutSeconds: 5,
		RateLimit:      500,
	}
}

func TestNewClient(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		client := NewClient(shared.APIConfig{BaseURL: "https://canvas.school.edu/", Token: "t"}, nil)

		if client.baseURL != "https://canvas.school.edu" {
			t.Errorf("expected trailing slash trimmed, got %s", client.baseURL)
		}
		if client.timeout != 5*time.Second {
			t.Errorf("expected default 5s timeout, got %s", client.timeout)
		}
		if client.limiter.Limit() != 5.0 {
			t.Errorf("expected default rate 5.0, got %v", client.limiter.Limit())
		}
	})
}

func TestFetchAccount(t *testing.T) {
	t.Run("fetches and decodes account", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/accounts/1" {
				t.Errorf("expected path /api/v1/accounts/1, got %s", r.URL.Path)
			}
			if r.Method != http.MethodGet {
				t.Errorf("expected GET, got %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
				t.Errorf("expected bearer credential attached, got %q", auth)
			}
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "District"})
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)
		account, err := client.FetchAccount(context.Background(), 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if account.ID != 1 || account.Name != "District" {
			t.Errorf("expected account 1 District, got %+v", account)
		}
	})

	t.Run("rejected credential surfaces as unauthorized APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"errors":[{"message":"Invalid access token."}]}`)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)
		_, err := client.FetchAccount(context.Background(), 1)
		if err == nil {
			t.Fatal("expected error, got nil")
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if !apiErr.Unauthorized() {
			t.Errorf("expected unauthorized, got status %d", apiErr.StatusCode)
		}
		if apiErr.Message != "Invalid access token." {
			t.Errorf("expected decoded message, got %q", apiErr.Message)
		}
	})
}

func TestListCourses(t *testing.T) {
	t.Run("follows link header pagination", func(t *testing.T) {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/accounts/1/courses" {
				t.Errorf("expected courses path, got %s", r.URL.Path)
			}

			switch r.URL.Query().Get("page") {
			case "":
				if r.URL.Query().Get("enrollment_term_id") != "310" {
					t.Errorf("expected term filter 310, got %s", r.URL.Query().Get("enrollment_term_id"))
				}
				next := server.URL + "/api/v1/accounts/1/courses?enrollment_term_id=310&page=2&per_page=100"
				w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`, next, next))
				fmt.Fprint(w, `[{"id": 11, "name": "Algebra", "enrollment_term_id": 310}]`)
			case "2":
				fmt.Fprint(w, `[{"id": 12, "name": "Biology", "enrollment_term_id": 310}]`)
			default:
				t.Errorf("unexpected page %s", r.URL.Query().Get("page"))
			}
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)

		first, next, err := client.ListCourses(context.Background(), 1, "310", "")
		if err != nil {
			t.Fatalf("first page failed: %v", err)
		}
		if len(first) != 1 || first[0].Name != "Algebra" {
			t.Errorf("expected first page [Algebra], got %+v", first)
		}
		if next == "" {
			t.Fatal("expected continuation URL from Link header")
		}

		second, next, err := client.ListCourses(context.Background(), 1, "310", next)
		if err != nil {
			t.Fatalf("second page failed: %v", err)
		}
		if len(second) != 1 || second[0].Name != "Biology" {
			t.Errorf("expected second page [Biology], got %+v", second)
		}
		if next != "" {
			t.Errorf("expected pagination exhausted, got next %q", next)
		}
	})
}

func TestListEnrollments(t *testing.T) {
	t.Run("decodes enrollments with embedded users", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/courses/11/enrollments" {
				t.Errorf("expected enrollments path, got %s", r.URL.Path)
			}
			fmt.Fprint(w, `[
				{"id": 1, "course_id": 11, "user_id": 7001, "type": "ObserverEnrollment", "user": {"id": 7001, "name": "Pat"}},
				{"id": 2, "course_id": 11, "user_id": 7002, "type": "StudentEnrollment", "user": {"id": 7002, "name": "Sam"}}
			]`)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)
		enrollments, next, err := client.ListEnrollments(context.Background(), 11, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if next != "" {
			t.Errorf("expected no continuation, got %q", next)
		}
		if len(enrollments) != 2 {
			t.Fatalf("expected 2 enrollments, got %d", len(enrollments))
		}
		if enrollments[0].Role() != models.RoleObserver {
			t.Errorf("expected observer, got %s", enrollments[0].Role())
		}
		if enrollments[1].User.Name != "Sam" {
			t.Errorf("expected embedded user Sam, got %s", enrollments[1].User.Name)
		}
	})
}

func TestListPreferences(t *testing.T) {
	t.Run("resolves primary channel then lists preferences", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v1/users/7001/communication_channels":
				fmt.Fprint(w, `[
					{"id": 52, "user_id": 7001, "type": "push", "position": 2},
					{"id": 51, "user_id": 7001, "type": "email", "address": "pat@example.com", "position": 1}
				]`)
			case "/api/v1/users/self/communication_channels/51/notification_preferences":
				if r.URL.Query().Get("as_user_id") != "7001" {
					t.Errorf("expected as_user_id=7001, got %s", r.URL.Query().Get("as_user_id"))
				}
				fmt.Fprint(w, `{"notification_preferences": [
					{"notification": "new_announcement", "category": "announcement", "frequency": "immediately"},
					{"notification": "assignment_graded", "category": "grading", "frequency": "daily"}
				]}`)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)
		set, err := client.ListPreferences(context.Background(), 7001)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if set.ChannelID != 51 {
			t.Errorf("expected lowest-position channel 51, got %d", set.ChannelID)
		}
		if len(set.Preferences) != 2 {
			t.Fatalf("expected 2 preferences, got %d", len(set.Preferences))
		}
		if set.Preferences[1].Frequency != models.FrequencyDaily {
			t.Errorf("expected daily, got %s", set.Preferences[1].Frequency)
		}
	})

	t.Run("user without channels", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)
		_, err := client.ListPreferences(context.Background(), 7009)
		if !errors.Is(err, ErrNoChannel) {
			t.Errorf("expected ErrNoChannel, got %v", err)
		}
	})
}

func TestUpdatePreference(t *testing.T) {
	t.Run("issues masqueraded PUT with frequency payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Errorf("expected PUT, got %s", r.Method)
			}
			if r.URL.Path != "/api/v1/users/self/communication_channels/51/notification_preferences/new_announcement" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("as_user_id") != "7001" {
				t.Errorf("expected as_user_id=7001, got %s", r.URL.Query().Get("as_user_id"))
			}

			var payload struct {
				NotificationPreferences []struct {
					Frequency string `json:"frequency"`
				} `json:"notification_preferences"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if len(payload.NotificationPreferences) != 1 || payload.NotificationPreferences[0].Frequency != "never" {
				t.Errorf("expected frequency never in payload, got %+v", payload)
			}

			fmt.Fprint(w, `{"notification_preferences": [{"notification": "new_announcement", "frequency": "never"}]}`)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)
		err := client.UpdatePreference(context.Background(), 7001, 51, "new_announcement", models.FrequencyNever)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("permission denied becomes APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"errors":[{"message":"user not authorized to perform that action"}]}`)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)
		err := client.UpdatePreference(context.Background(), 7001, 51, "assignment_graded", models.FrequencyNever)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", apiErr.StatusCode)
		}
		if apiErr.RateLimited {
			t.Error("plain 403 should not be marked rate limited")
		}
	})
}

func TestRateLimitDetection(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
	}{
		{name: "throttled 403", status: http.StatusForbidden, body: "403 Forbidden (Rate Limit Exceeded)", rateLimited: true},
		{name: "plain 403", status: http.StatusForbidden, body: `{"errors":[{"message":"unauthorized"}]}`, rateLimited: false},
		{name: "429", status: http.StatusTooManyRequests, body: "", rateLimited: true},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", rateLimited: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL), nil)
			_, err := client.FetchAccount(context.Background(), 1)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.RateLimited != tt.rateLimited {
				t.Errorf("expected RateLimited=%v for %s, got %v", tt.rateLimited, tt.name, apiErr.RateLimited)
			}
		})
	}
}

func TestPerCallTimeout(t *testing.T) {
	t.Run("slow responses exceed the call deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		cfg := testConfig(server.URL)
		client := NewClient(cfg, nil)
		client.timeout = 50 * time.Millisecond

		start := time.Now()
		_, err := client.FetchAccount(context.Background(), 1)
		if err == nil {
			t.Fatal("expected timeout error, got nil")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("expected prompt timeout, took %s", elapsed)
		}
	})
}

func TestRequestThrottle(t *testing.T) {
	t.Run("second call waits on the limiter", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "District"})
		}))
		defer server.Close()

		cfg := testConfig(server.URL)
		cfg.RateLimit = 0.001
		client := NewClient(cfg, nil)

		// The burst token covers the first call; the second would wait
		// far past the context deadline.
		if _, err := client.FetchAccount(context.Background(), 1); err != nil {
			t.Fatalf("first call should pass on the burst token, got %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := client.FetchAccount(ctx, 1)
		if err == nil {
			t.Fatal("expected limiter interruption, got nil")
		}
		if !strings.Contains(err.Error(), "rate limiter interrupted") {
			t.Errorf("expected limiter interruption, got %v", err)
		}
	})
}

func TestTransportFailure(t *testing.T) {
	t.Run("connection errors are wrapped, not APIErrors", func(t *testing.T) {
		client := NewClient(testConfig("https://canvas.school.edu"), nil)
		client.httpClient = &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused")),
		}

		_, err := client.FetchAccount(context.Background(), 1)
		if err == nil {
			t.Fatal("expected error, got nil")
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			t.Errorf("expected transport error, got APIError %v", apiErr)
		}
		if !strings.Contains(err.Error(), "request failed") {
			t.Errorf("expected wrapped request failure, got %v", err)
		}
	})
}

func TestExtraHeadersAndActAs(t *testing.T) {
	t.Run("extra header bundle and global masquerade", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Requested-With") != "prefsweep" {
				t.Errorf("expected extra header, got %q", r.Header.Get("X-Requested-With"))
			}
			if r.URL.Query().Get("as_user_id") != "99" {
				t.Errorf("expected global as_user_id=99, got %s", r.URL.Query().Get("as_user_id"))
			}
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": "District"})
		}))
		defer server.Close()

		cfg := testConfig(server.URL)
		cfg.Headers = map[string]string{"X-Requested-With": "prefsweep"}
		cfg.ActAs = 99

		client := NewClient(cfg, nil)
		if _, err := client.FetchAccount(context.Background(), 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("global masquerade never overrides per-user impersonation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v1/users/7001/communication_channels":
				fmt.Fprint(w, `[{"id": 51, "user_id": 7001, "type": "email", "position": 1}]`)
			default:
				if r.URL.Query().Get("as_user_id") != "7001" {
					t.Errorf("expected as_user_id=7001, got %s", r.URL.Query().Get("as_user_id"))
				}
				fmt.Fprint(w, `{"notification_preferences": []}`)
			}
		}))
		defer server.Close()

		cfg := testConfig(server.URL)
		cfg.ActAs = 99

		client := NewClient(cfg, nil)
		if _, err := client.ListPreferences(context.Background(), 7001); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}
