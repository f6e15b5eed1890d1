package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tmacdonald/prefsweep/internal/models"
	"github.com/tmacdonald/prefsweep/internal/shared"
)

// Target is one deduplicated user a sweep would plan updates for, paired
// with the course whose roster first put the user in scope.
type Target struct {
	User   models.User   `json:"user"`
	Course models.Course `json:"course"`
}

// Targets performs the enumeration pass only: it walks the requested terms
// exactly as [Engine.Run] would and returns the users a run with the same
// options would touch, in traversal order, without planning or updating
// anything.
//
// The returned summary carries traversal counts and skipped branches; its
// update counters stay zero.
func (e *Engine) Targets(ctx context.Context, opts RunOpts) ([]Target, *RunSummary, error) {
	if e.api == nil {
		return nil, nil, fmt.Errorf("%w: nil api client", shared.ErrInvalidConfig)
	}
	if len(opts.TermIDs) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one term", shared.ErrMissingArgument)
	}
	opts.setDefaults()

	summary := &RunSummary{
		RunID:     shared.GenerateID(),
		Terms:     opts.TermIDs,
		Frequency: opts.Frequency,
	}
	logger := shared.WithLogger(e.logger, "targets", shared.ShortID(summary.RunID))
	policy := retryPolicy{MaxAttempts: opts.MaxAttempts, Backoff: opts.Backoff}
	started := time.Now()

	account, err := e.preflight(ctx, opts, policy)
	if err != nil {
		summary.Fatal = fmt.Sprintf("credential preflight failed: %v", err)
		summary.Elapsed = time.Since(started)
		return nil, summary, summary.Err()
	}
	logger.Info("credential accepted", "account", account.Name)

	var targets []Target
	sw := newSweep(e.api, opts, policy, logger, nil, summary, nil)
	sw.visit = func(ctx context.Context, tgt target) bool {
		targets = append(targets, Target{User: tgt.User, Course: tgt.Course})
		return true
	}
	sw.enumerate(ctx)

	if sw.fatal != nil {
		summary.Fatal = sw.fatal.Error()
	}
	if summary.Fatal == "" && ctx.Err() != nil {
		summary.Fatal = fmt.Sprintf("cancelled: %v", ctx.Err())
	}
	summary.Elapsed = time.Since(started)

	logger.Info("enumeration complete",
		"courses", summary.Courses, "users", summary.Users,
		"skipped_branches", len(summary.SkippedBranches), "elapsed", summary.Elapsed)

	return targets, summary, summary.Err()
}
