package models

import (
	"encoding/json"
	"testing"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Frequency
		wantErr bool
	}{
		{name: "never", input: "never", want: FrequencyNever},
		{name: "immediately", input: "immediately", want: FrequencyImmediately},
		{name: "daily", input: "daily", want: FrequencyDaily},
		{name: "weekly", input: "weekly", want: FrequencyWeekly},
		{name: "mixed case", input: "Weekly", want: FrequencyWeekly},
		{name: "surrounding space", input: " never ", want: FrequencyNever},
		{name: "unknown value", input: "hourly", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrequency(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Role
		wantErr bool
	}{
		{name: "plain observer", input: "observer", want: RoleObserver},
		{name: "enrollment type suffix", input: "ObserverEnrollment", want: RoleObserver},
		{name: "student type", input: "StudentEnrollment", want: RoleStudent},
		{name: "teacher type", input: "TeacherEnrollment", want: RoleTeacher},
		{name: "ta type", input: "TaEnrollment", want: RoleTA},
		{name: "designer type", input: "DesignerEnrollment", want: RoleDesigner},
		{name: "uppercase plain", input: "OBSERVER", want: RoleObserver},
		{name: "unknown role", input: "janitor", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEnrollmentRole(t *testing.T) {
	t.Run("prefers type field", func(t *testing.T) {
		e := Enrollment{Type: "ObserverEnrollment", RoleName: "CustomObserverRole"}
		if got := e.Role(); got != RoleObserver {
			t.Errorf("expected observer, got %q", got)
		}
	})

	t.Run("falls back to role name", func(t *testing.T) {
		e := Enrollment{RoleName: "StudentEnrollment"}
		if got := e.Role(); got != RoleStudent {
			t.Errorf("expected student, got %q", got)
		}
	})
}

func TestEnrollmentDecoding(t *testing.T) {
	payload := `{
		"id": 41,
		"course_id": 812,
		"user_id": 7005,
		"type": "ObserverEnrollment",
		"role": "ObserverEnrollment",
		"user": {"id": 7005, "name": "Pat Guardian", "sortable_name": "Guardian, Pat"}
	}`

	var e Enrollment
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		t.Fatalf("failed to decode enrollment: %v", err)
	}

	if e.CourseID != 812 {
		t.Errorf("expected course id 812, got %d", e.CourseID)
	}
	if e.User.ID != 7005 {
		t.Errorf("expected user id 7005, got %d", e.User.ID)
	}
	if e.Role() != RoleObserver {
		t.Errorf("expected observer role, got %q", e.Role())
	}
}

func TestPreferenceDecoding(t *testing.T) {
	payload := `{"notification": "new_announcement", "category": "announcement", "frequency": "immediately"}`

	var p Preference
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatalf("failed to decode preference: %v", err)
	}

	if p.Notification != "new_announcement" {
		t.Errorf("expected notification new_announcement, got %s", p.Notification)
	}
	if p.Frequency != FrequencyImmediately {
		t.Errorf("expected frequency immediately, got %s", p.Frequency)
	}
}
