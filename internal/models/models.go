// package models defines the data model for the notification preference sweep tool
package models

import (
	"fmt"
	"strings"
)

// Frequency is a notification delivery frequency setting.
// The platform accepts exactly four values.
type Frequency string

const (
	FrequencyNever       Frequency = "never"
	FrequencyImmediately Frequency = "immediately"
	FrequencyDaily       Frequency = "daily"
	FrequencyWeekly      Frequency = "weekly"
)

// ParseFrequency converts a raw string into a Frequency, rejecting unknown values.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("unknown frequency %q (want never, immediately, daily or weekly)", s)
	}
	return f, nil
}

// Valid reports whether f is one of the platform's accepted frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyNever, FrequencyImmediately, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

func (f Frequency) String() string { return string(f) }

// Role is an enrollment role tag. The platform reports enrollment types in
// CamelCase with an "Enrollment" suffix ("ObserverEnrollment"); ParseRole
// normalizes both that form and the plain lowercase form to the same value.
type Role string

const (
	RoleObserver Role = "observer"
	RoleStudent  Role = "student"
	RoleTeacher  Role = "teacher"
	RoleTA       Role = "ta"
	RoleDesigner Role = "designer"
)

// ParseRole normalizes a raw enrollment type or role name into a Role,
// rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := NormalizeRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown enrollment role %q", s)
	}
	return r, nil
}

// NormalizeRole lowercases a role name and strips the platform's
// "Enrollment" type suffix. The result is not guaranteed valid.
func NormalizeRole(s string) Role {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "Enrollment")
	return Role(strings.ToLower(s))
}

// Valid reports whether r is a known enrollment role.
func (r Role) Valid() bool {
	switch r {
	case RoleObserver, RoleStudent, RoleTeacher, RoleTA, RoleDesigner:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Account is the administrative account a run operates under.
type Account struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Term is an academic period grouping courses. It is the root of the
// traversal and is supplied by configuration, never discovered.
type Term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Course belongs to exactly one term. Read-only in this system.
type Course struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`
	TermID     int64  `json:"enrollment_term_id"`
}

// User is uniquely identified by its platform account id and is the unit
// of notification-preference ownership.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SortableName string `json:"sortable_name"`
}

// Enrollment binds a user to a course with a role. Enrollments are read-only
// discovery inputs; they are never mutated and only determine which users are
// in scope.
type Enrollment struct {
	ID       int64  `json:"id"`
	CourseID int64  `json:"course_id"`
	UserID   int64  `json:"user_id"`
	Type     string `json:"type"`
	RoleName string `json:"role"`
	User     User   `json:"user"`
}

// Role returns the normalized role of the enrollment, preferring the type
// field the platform always populates.
func (e Enrollment) Role() Role {
	if e.Type != "" {
		return NormalizeRole(e.Type)
	}
	return NormalizeRole(e.RoleName)
}

// CommunicationChannel is a delivery channel registered to a user. Channels
// are ordered by position; the lowest position is the user's primary channel.
type CommunicationChannel struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Type     string `json:"type"`
	Address  string `json:"address"`
	Position int    `json:"position"`
}

// Preference is one notification category's current setting on a channel.
// Notification is the specific event name and the key used when updating;
// Category is the platform's broader grouping for display.
type Preference struct {
	Notification string    `json:"notification"`
	Category     string    `json:"category"`
	Frequency    Frequency `json:"frequency"`
}

// PreferenceSet is a user's primary communication channel together with the
// channel's current notification preferences.
type PreferenceSet struct {
	ChannelID   int64
	Preferences []Preference
}
