package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tmacdonald/prefsweep/internal/engine"
	"github.com/tmacdonald/prefsweep/internal/formatter"
	"github.com/tmacdonald/prefsweep/internal/shared"
	"github.com/urfave/cli/v3"
)

// Schedule reruns the sweep on a cron spec until interrupted. Each firing
// logs and prints its own summary; a firing that lands while the previous
// sweep is still running is skipped.
func (r *Runner) Schedule(ctx context.Context, cmd *cli.Command) error {
	config := r.resolveConfig(cmd)
	opts, err := r.sweepOpts(cmd, config)
	if err != nil {
		return err
	}

	api, err := r.ensureAPI(config)
	if err != nil {
		return err
	}

	spec := cmd.String("cron")
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w: cron spec %q: %v", shared.ErrInvalidFlag, spec, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(api, r.logger)
	wantNotify := cmd.Bool("notify")

	var running atomic.Bool
	scheduler := cron.New(cron.WithLocation(time.Local))
	if _, err := scheduler.AddFunc(spec, func() {
		if !running.CompareAndSwap(false, true) {
			r.logger.Warn("previous sweep still running, skipping this trigger")
			return
		}
		defer running.Store(false)

		summary, err := eng.Run(ctx, opts, nil)
		if err != nil {
			r.logger.Error("scheduled sweep finished with errors", "error", err)
		}
		if summary == nil {
			return
		}

		r.writePlain("\n")
		if err := formatter.WriteSummary(r.output, summary); err != nil {
			r.logger.Error("failed to write summary", "error", err)
		}

		if wantNotify {
			if err := r.notifyRun(summary); err != nil {
				r.logger.Warn("summary notification failed", "error", err)
			}
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	r.logger.Info("sweep scheduled", "cron", spec, "terms", opts.TermIDs)
	r.writePlain("Sweep scheduled with cron spec %q. Press Ctrl+C to stop.\n", spec)

	scheduler.Start()
	<-ctx.Done()

	// Stop firing new jobs and let the in-flight sweep finish.
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	r.logger.Info("scheduler stopped")

	return nil
}
