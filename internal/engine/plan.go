package engine

import (
	"context"
	"fmt"

	"github.com/tmacdonald/prefsweep/internal/models"
)

// planUser expands one in-scope user into work items: every notification
// category on the user's primary channel except the excluded set. Exclusion
// matches the exact category name, case sensitively.
//
// When the user's categories cannot be listed the user is recorded as
// skipped and the run moves on; a whole-user skip is never fatal. Returns
// false only when the run itself should stop.
func (s *sweep) planUser(ctx context.Context, tgt target) bool {
	var prefs *models.PreferenceSet

	err := withRetry(ctx, s.policy, func() error {
		var err error
		prefs, err = s.api.ListPreferences(ctx, tgt.User.ID)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if classify(err) == ClassConfiguration {
			s.abort(err)
			return false
		}

		s.logger.Warn("skipping user, categories unavailable",
			"user", tgt.User.ID, "name", tgt.User.Name, "error", err)
		s.exec.report(Outcome{
			Item:   WorkItem{User: tgt.User, Course: tgt.Course},
			Kind:   OutcomeSkipped,
			Reason: fmt.Sprintf("categories unavailable: %v", err),
		})
		return true
	}

	items := 0
	for _, pref := range prefs.Preferences {
		if s.excluded[pref.Notification] {
			s.summary.Excluded++
			continue
		}

		item := WorkItem{
			User:         tgt.User,
			Course:       tgt.Course,
			ChannelID:    prefs.ChannelID,
			Notification: pref.Notification,
			Current:      pref.Frequency,
			Target:       s.opts.Frequency,
		}
		if !s.exec.submit(ctx, item) {
			return false
		}
		items++
	}

	sendProgress(s.progress, planUserUpdate(s.summary.Users, tgt.User, items))
	return true
}
