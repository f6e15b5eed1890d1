// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"testing"

	"github.com/tmacdonald/prefsweep/internal/models"
)

// MockAPI is a configurable test double for the engine's platform surface.
// Each method delegates to its corresponding Func field; a nil field returns
// a benign empty result so tests only wire the calls they care about.
//
// UpdatePreference additionally tracks how many calls were in flight at
// once, so concurrency-bound tests can assert the worker cap held.
type MockAPI struct {
	FetchAccountFunc     func(ctx context.Context, accountID int64) (*models.Account, error)
	FetchTermFunc        func(ctx context.Context, accountID int64, termID string) (*models.Term, error)
	ListCoursesFunc      func(ctx context.Context, accountID int64, termID string, pageURL string) ([]models.Course, string, error)
	ListEnrollmentsFunc  func(ctx context.Context, courseID int64, pageURL string) ([]models.Enrollment, string, error)
	ListPreferencesFunc  func(ctx context.Context, userID int64) (*models.PreferenceSet, error)
	UpdatePreferenceFunc func(ctx context.Context, userID, channelID int64, notification string, frequency models.Frequency) error

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	updateCalls atomic.Int64
}

func (m *MockAPI) FetchAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	if m.FetchAccountFunc == nil {
		return &models.Account{ID: accountID, Name: "Mock Account"}, nil
	}
	return m.FetchAccountFunc(ctx, accountID)
}

func (m *MockAPI) FetchTerm(ctx context.Context, accountID int64, termID string) (*models.Term, error) {
	if m.FetchTermFunc == nil {
		return &models.Term{ID: 1, Name: termID}, nil
	}
	return m.FetchTermFunc(ctx, accountID, termID)
}

func (m *MockAPI) ListCourses(ctx context.Context, accountID int64, termID string, pageURL string) ([]models.Course, string, error) {
	if m.ListCoursesFunc == nil {
		return nil, "", nil
	}
	return m.ListCoursesFunc(ctx, accountID, termID, pageURL)
}

func (m *MockAPI) ListEnrollments(ctx context.Context, courseID int64, pageURL string) ([]models.Enrollment, string, error) {
	if m.ListEnrollmentsFunc == nil {
		return nil, "", nil
	}
	return m.ListEnrollmentsFunc(ctx, courseID, pageURL)
}

func (m *MockAPI) ListPreferences(ctx context.Context, userID int64) (*models.PreferenceSet, error) {
	if m.ListPreferencesFunc == nil {
		return &models.PreferenceSet{}, nil
	}
	return m.ListPreferencesFunc(ctx, userID)
}

func (m *MockAPI) UpdatePreference(ctx context.Context, userID, channelID int64, notification string, frequency models.Frequency) error {
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		max := m.maxInFlight.Load()
		if cur <= max || m.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	m.updateCalls.Add(1)

	if m.UpdatePreferenceFunc == nil {
		return nil
	}
	return m.UpdatePreferenceFunc(ctx, userID, channelID, notification, frequency)
}

// MaxInFlight reports the highest number of concurrent UpdatePreference
// calls observed so far.
func (m *MockAPI) MaxInFlight() int64 {
	return m.maxInFlight.Load()
}

// UpdateCalls reports the total number of UpdatePreference calls made.
func (m *MockAPI) UpdateCalls() int64 {
	return m.updateCalls.Load()
}

// MockRoundTripper allows custom HTTP responses for testing transport-level
// failures the platform client must classify
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
