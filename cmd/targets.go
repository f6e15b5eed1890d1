package main

import (
	"context"

	"github.com/tmacdonald/prefsweep/internal/engine"
	"github.com/urfave/cli/v3"
)

// Targets prints the deduplicated users a sweep would plan updates for,
// without touching anything.
func (r *Runner) Targets(ctx context.Context, cmd *cli.Command) error {
	config := r.resolveConfig(cmd)
	opts, err := r.sweepOpts(cmd, config)
	if err != nil {
		return err
	}

	api, err := r.ensureAPI(config)
	if err != nil {
		return err
	}

	r.logger.Info("listing sweep targets", "terms", opts.TermIDs, "roles", opts.Roles)

	targets, summary, err := engine.New(api, r.logger).Targets(ctx, opts)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(targets, true)
	}

	r.writePlainHeader("Sweep Targets")
	for i, tgt := range targets {
		r.writePlain("%3d. %s (user %d) via %s\n", i+1, tgt.User.Name, tgt.User.ID, tgt.Course.CourseCode)
	}
	r.writePlain("\n%d users across %d courses\n", summary.Users, summary.Courses)

	for _, skip := range summary.SkippedBranches {
		r.writePlain("! skipped %s %s: %s\n", skip.Scope, skip.ID, skip.Reason)
	}

	return nil
}
