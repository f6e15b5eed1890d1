package engine

import (
	"fmt"

	"github.com/tmacdonald/prefsweep/internal/models"
)

// ProgressUpdate represents a progress event during a sweep.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase (0 when indeterminate)
	Total   int    // Total steps in this phase (0 when indeterminate)
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Connect Phase = iota
	Enumerate
	Plan
	Execute
	Complete
	Abort
)

func (p Phase) String() string {
	switch p {
	case Connect:
		return "connect"
	case Enumerate:
		return "enumerate"
	case Plan:
		return "plan"
	case Execute:
		return "execute"
	case Complete:
		return "complete"
	case Abort:
		return "abort"
	default:
		return ""
	}
}

func connectUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Connect,
		Step:    1,
		Total:   1,
		Message: "Checking credential against the platform...",
	}
}

func connectedUpdate(account *models.Account) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Connect,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Connected to account: %s", account.Name),
		Data:    account,
	}
}

func termUpdate(step, total int, term *models.Term) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Enumerate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Enumerating term: %s", step, total, term.Name),
		Data:    term,
	}
}

func courseUpdate(courses int, course models.Course, matched int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Enumerate,
		Step:    courses,
		Message: fmt.Sprintf("Course %s: %d matching users", course.Name, matched),
		Data:    course,
	}
}

func branchSkipUpdate(skip BranchSkip) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Enumerate,
		Message: fmt.Sprintf("Skipping %s %s: %s", skip.Scope, skip.ID, skip.Reason),
		Data:    skip,
	}
}

func planUserUpdate(users int, user models.User, items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Plan,
		Step:    users,
		Message: fmt.Sprintf("Planned %s: %d categories", user.Name, items),
		Data:    user,
	}
}

func itemUpdate(completed, planned int, outcome Outcome) ProgressUpdate {
	update := ProgressUpdate{
		Phase: Execute,
		Step:  completed,
		Total: planned,
		Data:  outcome,
	}

	name := outcome.Item.User.Name
	switch outcome.Kind {
	case OutcomeSuccess:
		update.Message = fmt.Sprintf("[%d/%d] ✓ %s: %s → %s",
			completed, planned, name, outcome.Item.Notification, outcome.Item.Target)
	case OutcomeSkipped:
		update.Message = fmt.Sprintf("[%d/%d] – %s: %s", completed, planned, name, outcome.Reason)
	case OutcomeFailed:
		update.Message = fmt.Sprintf("[%d/%d] ✗ %s: %s (%s, %d attempts): %v",
			completed, planned, name, outcome.Item.Notification, outcome.Class, outcome.Attempts, outcome.Err)
	}

	return update
}

func completeUpdate(summary *RunSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase: Complete,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("Sweep complete: %d succeeded, %d skipped, %d failed",
			summary.Succeeded, summary.Skipped, summary.Failed),
		Data: summary,
	}
}

func abortUpdate(summary *RunSummary, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Abort,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Run aborted: %v", err),
		Data:    summary,
	}
}
