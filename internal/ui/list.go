package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/tmacdonald/prefsweep/internal/engine"
)

var (
	_ list.Item = failureItem{}
	_ list.Item = branchItem{}
)

// failureItem wraps [engine.FailureDetail] to implement [list.Item].
type failureItem struct {
	failure engine.FailureDetail
}

func (i failureItem) FilterValue() string { return i.failure.UserName }
func (i failureItem) Title() string {
	return fmt.Sprintf("%s • %s", i.failure.UserName, i.failure.Notification)
}
func (i failureItem) Description() string {
	return fmt.Sprintf("%s after %d attempt(s): %s", i.failure.Class, i.failure.Attempts, i.failure.Error)
}

// branchItem wraps [engine.BranchSkip] to implement [list.Item].
type branchItem struct {
	skip engine.BranchSkip
}

func (i branchItem) FilterValue() string { return i.skip.ID }
func (i branchItem) Title() string {
	return fmt.Sprintf("%s %s", i.skip.Scope, i.skip.ID)
}
func (i branchItem) Description() string { return i.skip.Reason }
