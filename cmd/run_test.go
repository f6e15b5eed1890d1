package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tmacdonald/prefsweep/internal/canvas"
	"github.com/tmacdonald/prefsweep/internal/engine"
	"github.com/tmacdonald/prefsweep/internal/models"
	"github.com/tmacdonald/prefsweep/internal/shared"
	tu "github.com/tmacdonald/prefsweep/internal/testing"
	"github.com/urfave/cli/v3"
)

// newTestRunner builds a runner wired to the mock API, a silent logger and a
// capture buffer, plus the root command carrying its registered subcommands.
func newTestRunner(api *tu.MockAPI) (*Runner, *cli.Command, *bytes.Buffer) {
	output := &bytes.Buffer{}
	config := shared.DefaultConfig()

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: "config.toml",
		API:        api,
		Logger:     shared.NewLogger(&bytes.Buffer{}),
		Output:     output,
	})

	root := &cli.Command{
		Name:     "prefsweep",
		Commands: runner.register(),
	}

	return runner, root, output
}

// sweepMock serves one course with two observers, each holding three
// notification categories at daily.
func sweepMock() *tu.MockAPI {
	return &tu.MockAPI{
		ListCoursesFunc: func(ctx context.Context, accountID int64, termID string, pageURL string) ([]models.Course, string, error) {
			return []models.Course{{ID: 101, Name: "Biology", CourseCode: "BIO-101", TermID: 42}}, "", nil
		},
		ListEnrollmentsFunc: func(ctx context.Context, courseID int64, pageURL string) ([]models.Enrollment, string, error) {
			return []models.Enrollment{
				{UserID: 7, Type: "ObserverEnrollment", User: models.User{ID: 7, Name: "Jordan Blake"}},
				{UserID: 8, Type: "ObserverEnrollment", User: models.User{ID: 8, Name: "Sam Reyes"}},
			}, "", nil
		},
		ListPreferencesFunc: func(ctx context.Context, userID int64) (*models.PreferenceSet, error) {
			return &models.PreferenceSet{
				ChannelID: 900 + userID,
				Preferences: []models.Preference{
					{Notification: "due_date", Frequency: models.FrequencyDaily},
					{Notification: "grading", Frequency: models.FrequencyDaily},
					{Notification: "announcement", Frequency: models.FrequencyDaily},
				},
			}, nil
		},
	}
}

func TestSweepCommand(t *testing.T) {
	t.Run("runs a full sweep", func(t *testing.T) {
		api := sweepMock()
		_, root, output := newTestRunner(api)

		err := root.Run(context.Background(), []string{"prefsweep", "run", "42"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if calls := api.UpdateCalls(); calls != 6 {
			t.Errorf("expected 6 update calls, got %d", calls)
		}

		text := output.String()
		if !strings.Contains(text, "Preference sweep") {
			t.Errorf("expected summary header, got:\n%s", text)
		}
		if !strings.Contains(text, "Succeeded:") {
			t.Errorf("expected succeeded count, got:\n%s", text)
		}
	})

	t.Run("json output carries the summary", func(t *testing.T) {
		api := sweepMock()
		_, root, output := newTestRunner(api)

		err := root.Run(context.Background(), []string{"prefsweep", "run", "--json", "42"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var summary engine.RunSummary
		if err := json.Unmarshal(output.Bytes(), &summary); err != nil {
			t.Fatalf("expected JSON summary, got %v:\n%s", err, output.String())
		}
		if summary.Succeeded != 6 {
			t.Errorf("expected 6 succeeded, got %d", summary.Succeeded)
		}
		if summary.Users != 2 {
			t.Errorf("expected 2 users, got %d", summary.Users)
		}
	})

	t.Run("writes failure details to csv", func(t *testing.T) {
		api := sweepMock()
		api.UpdatePreferenceFunc = func(ctx context.Context, userID, channelID int64, notification string, frequency models.Frequency) error {
			if userID == 7 && notification == "due_date" {
				return &canvas.APIError{StatusCode: 403, Endpoint: "/users/7", Message: "forbidden"}
			}
			return nil
		}
		_, root, _ := newTestRunner(api)

		csvPath := filepath.Join(t.TempDir(), "failures.csv")
		err := root.Run(context.Background(), []string{"prefsweep", "run", "--failures", csvPath, "42"})
		if !errors.Is(err, shared.ErrRunFailed) {
			t.Fatalf("expected ErrRunFailed, got %v", err)
		}

		tu.AssertFileExists(t, csvPath)
		content := tu.MustReadFile(t, csvPath)
		if !strings.Contains(content, "UserID,UserName") {
			t.Errorf("expected CSV header, got:\n%s", content)
		}
		if !strings.Contains(content, "due_date") {
			t.Errorf("expected failing category in CSV, got:\n%s", content)
		}
		if !strings.Contains(content, "permanent") {
			t.Errorf("expected error class in CSV, got:\n%s", content)
		}
	})

	t.Run("requires a term", func(t *testing.T) {
		_, root, _ := newTestRunner(sweepMock())

		err := root.Run(context.Background(), []string{"prefsweep", "run"})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Fatalf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestTargetsCommand(t *testing.T) {
	t.Run("prints the target list", func(t *testing.T) {
		api := sweepMock()
		_, root, output := newTestRunner(api)

		err := root.Run(context.Background(), []string{"prefsweep", "targets", "42"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		text := output.String()
		if !strings.Contains(text, "Sweep Targets") {
			t.Errorf("expected header, got:\n%s", text)
		}
		if !strings.Contains(text, "Jordan Blake (user 7) via BIO-101") {
			t.Errorf("expected target line, got:\n%s", text)
		}
		if !strings.Contains(text, "2 users across 1 courses") {
			t.Errorf("expected footer, got:\n%s", text)
		}
		if calls := api.UpdateCalls(); calls != 0 {
			t.Errorf("expected no update calls, got %d", calls)
		}
	})

	t.Run("json output lists targets", func(t *testing.T) {
		_, root, output := newTestRunner(sweepMock())

		err := root.Run(context.Background(), []string{"prefsweep", "targets", "--json", "42"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var targets []engine.Target
		if err := json.Unmarshal(output.Bytes(), &targets); err != nil {
			t.Fatalf("expected JSON targets, got %v:\n%s", err, output.String())
		}
		if len(targets) != 2 {
			t.Fatalf("expected 2 targets, got %d", len(targets))
		}
		if targets[1].User.Name != "Sam Reyes" {
			t.Errorf("expected second target Sam Reyes, got %q", targets[1].User.Name)
		}
	})
}

func TestScheduleCommand(t *testing.T) {
	t.Run("rejects a bad cron spec before starting", func(t *testing.T) {
		_, root, _ := newTestRunner(sweepMock())

		err := root.Run(context.Background(), []string{"prefsweep", "schedule", "--cron", "not a spec", "42"})
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Fatalf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("requires the cron flag", func(t *testing.T) {
		_, root, _ := newTestRunner(sweepMock())

		err := root.Run(context.Background(), []string{"prefsweep", "schedule", "42"})
		if err == nil {
			t.Fatal("expected error for missing required flag")
		}
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("writes the template", func(t *testing.T) {
		_, root, output := newTestRunner(sweepMock())
		configPath := filepath.Join(t.TempDir(), "config.toml")

		err := root.Run(context.Background(), []string{"prefsweep", "setup", "--config", configPath})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, configPath)
		content := tu.MustReadFile(t, configPath)
		if !strings.Contains(content, "[sweep]") {
			t.Errorf("expected sweep section in template, got:\n%s", content)
		}
		if !strings.Contains(output.String(), "Next steps") {
			t.Errorf("expected next steps, got:\n%s", output.String())
		}
	})

	t.Run("refuses to overwrite an existing file", func(t *testing.T) {
		_, root, _ := newTestRunner(sweepMock())
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := root.Run(context.Background(), []string{"prefsweep", "setup", "--config", configPath}); err != nil {
			t.Fatalf("first setup failed: %v", err)
		}

		err := root.Run(context.Background(), []string{"prefsweep", "setup", "--config", configPath})
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Fatalf("expected already-exists error, got %v", err)
		}
	})

	t.Run("bootstraps from a curl command", func(t *testing.T) {
		_, root, _ := newTestRunner(sweepMock())
		configPath := filepath.Join(t.TempDir(), "config.toml")

		curl := `curl 'https://canvas.school.edu/api/v1/users/self' -H 'Authorization: Bearer 7~secrettoken' -H 'X-Requested-With: XMLHttpRequest'`
		err := root.Run(context.Background(), []string{"prefsweep", "setup", "--config", configPath, "--from-curl", curl})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		config, err := shared.LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if config.API.BaseURL != "https://canvas.school.edu" {
			t.Errorf("expected captured base url, got %q", config.API.BaseURL)
		}
		if config.API.Token != "7~secrettoken" {
			t.Errorf("expected captured token, got %q", config.API.Token)
		}
		if config.API.Headers["X-Requested-With"] != "XMLHttpRequest" {
			t.Errorf("expected captured header, got %v", config.API.Headers)
		}
	})

	t.Run("rejects both curl flags at once", func(t *testing.T) {
		_, root, _ := newTestRunner(sweepMock())

		err := root.Run(context.Background(), []string{
			"prefsweep", "setup", "--from-curl", "curl 'https://x.edu'", "--curl-file", "capture.txt",
		})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
