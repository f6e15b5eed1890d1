package engine

import (
	"fmt"
	"time"

	"github.com/tmacdonald/prefsweep/internal/models"
	"github.com/tmacdonald/prefsweep/internal/shared"
)

// WorkItem is one atomic preference update: a user, the course that first put
// the user in scope, and a single notification category with the desired
// target frequency. Items are unique per (user, notification) within a run.
type WorkItem struct {
	User         models.User
	Course       models.Course
	ChannelID    int64
	Notification string
	Current      models.Frequency
	Target       models.Frequency

	attempts int
}

// OutcomeKind tags the terminal state of a WorkItem.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return ""
	}
}

// Outcome is the terminal result recorded for one WorkItem. Failures carry
// the error class and the number of call attempts made.
type Outcome struct {
	Item     WorkItem
	Kind     OutcomeKind
	Reason   string
	Class    ErrorClass
	Attempts int
	Err      error
}

func skippedOutcome(item WorkItem, reason string) Outcome {
	return Outcome{Item: item, Kind: OutcomeSkipped, Reason: reason, Attempts: item.attempts}
}

// BranchSkip records a traversal branch (term or course) left out of the run
// after its listing calls exhausted the retry budget.
type BranchSkip struct {
	Scope  string `json:"scope"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// FailureDetail identifies one failed update with enough context for a later
// manual retry pass.
type FailureDetail struct {
	UserID       int64  `json:"user_id"`
	UserName     string `json:"user_name"`
	CourseID     int64  `json:"course_id"`
	Notification string `json:"notification"`
	Class        string `json:"class"`
	Attempts     int    `json:"attempts"`
	Error        string `json:"error"`
}

func failureDetail(o Outcome) FailureDetail {
	detail := FailureDetail{
		UserID:       o.Item.User.ID,
		UserName:     o.Item.User.Name,
		CourseID:     o.Item.Course.ID,
		Notification: o.Item.Notification,
		Class:        o.Class.String(),
		Attempts:     o.Attempts,
	}
	if o.Err != nil {
		detail.Error = o.Err.Error()
	}
	return detail
}

// RunSummary aggregates every outcome of a sweep. A summary is produced even
// when branches were skipped or the run aborted partway; Fatal is set only
// for configuration-class aborts.
type RunSummary struct {
	RunID           string           `json:"run_id"`
	Terms           []string         `json:"terms"`
	Frequency       models.Frequency `json:"frequency"`
	Courses         int              `json:"courses"`
	Users           int              `json:"users"`
	Planned         int              `json:"planned"`
	Succeeded       int              `json:"succeeded"`
	Skipped         int              `json:"skipped"`
	Failed          int              `json:"failed"`
	Excluded        int              `json:"excluded"`
	Attempts        int              `json:"attempts"`
	Failures        []FailureDetail  `json:"failures,omitempty"`
	SkippedBranches []BranchSkip     `json:"skipped_branches,omitempty"`
	Fatal           string           `json:"fatal,omitempty"`
	Elapsed         time.Duration    `json:"elapsed"`
}

// Err returns the run's exit signal: nil when every item succeeded or was
// skipped, a wrapped [shared.ErrRunAborted] after a configuration abort, and
// a wrapped [shared.ErrRunFailed] when terminal failures remain. Transient
// failures that were retried to success are not failures.
func (s *RunSummary) Err() error {
	if s.Fatal != "" {
		return fmt.Errorf("%w: %s", shared.ErrRunAborted, s.Fatal)
	}
	if s.Failed > 0 {
		return fmt.Errorf("%w: %d of %d updates failed", shared.ErrRunFailed, s.Failed, s.Planned)
	}
	return nil
}
