package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmacdonald/prefsweep/internal/canvas"
	"github.com/tmacdonald/prefsweep/internal/engine"
	"github.com/tmacdonald/prefsweep/internal/formatter"
	"github.com/tmacdonald/prefsweep/internal/models"
	"github.com/tmacdonald/prefsweep/internal/notify"
	"github.com/tmacdonald/prefsweep/internal/shared"
	"github.com/urfave/cli/v3"
)

// Sweep runs the bulk preference update across the requested terms.
func (r *Runner) Sweep(ctx context.Context, cmd *cli.Command) error {
	config := r.resolveConfig(cmd)
	opts, err := r.sweepOpts(cmd, config)
	if err != nil {
		return err
	}

	api, err := r.ensureAPI(config)
	if err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	r.logger.Info("starting sweep", "terms", opts.TermIDs, "frequency", opts.Frequency)

	if !useJSON {
		r.writePlain("Starting preference sweep...\n")
		r.writePlain("Terms: %s\n", strings.Join(opts.TermIDs, ", "))
		r.writePlain("Target frequency: %s\n\n", opts.Frequency)
	}

	// Create progress channel and goroutine to handle updates
	progressCh := make(chan engine.ProgressUpdate, 50)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for update := range progressCh {
			if useJSON {
				continue
			}
			switch update.Phase {
			case engine.Connect:
				r.writePlain("🔑 %s\n", update.Message)
			case engine.Enumerate:
				r.writePlain("📥 %s\n", update.Message)
			case engine.Plan:
				r.writePlain("📝 %s\n", update.Message)
			case engine.Execute:
				r.writePlain("   %s\n", update.Message)
			case engine.Abort:
				r.writePlain("\n⛔ %s\n", update.Message)
			}
		}
	}()

	// Run the engine operation
	summary, runErr := engine.New(api, r.logger).Run(ctx, opts, progressCh)
	close(progressCh)
	<-progressDone

	if summary == nil {
		return runErr
	}

	// Output summary
	if useJSON {
		if err := r.writeJSON(summary, true); err != nil {
			return err
		}
	} else {
		r.writePlain("\n")
		if err := formatter.WriteSummary(r.output, summary); err != nil {
			return err
		}
	}

	if path := cmd.String("failures"); path != "" && len(summary.Failures) > 0 {
		written, err := formatter.WriteFailuresCSV(summary, path)
		if err != nil {
			return err
		}
		if !useJSON {
			r.writePlain("Failure details written to %s\n", written)
		}
	}

	if cmd.Bool("notify") {
		if err := r.notifyRun(summary); err != nil {
			r.logger.Warn("summary notification failed", "error", err)
		}
	}

	return runErr
}

// notifyRun sends the run summary to the configured Telegram chat. The sweep
// outcome never depends on notification delivery.
func (r *Runner) notifyRun(summary *engine.RunSummary) error {
	n, err := notify.New(r.config.Notify, r.logger)
	if err != nil {
		return err
	}
	return n.NotifyRun(summary)
}

// resolveConfig returns the configuration for one command invocation. A
// --config path differing from the one the runner was built with is loaded
// fresh, with environment overlay; load failures fall back to the current
// settings.
func (r *Runner) resolveConfig(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" || path == r.configPath {
		return r.config
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using current settings", "path", path, "error", err)
		return r.config
	}

	config.ApplyEnv()
	r.config = config
	r.configPath = path
	return config
}

// ensureAPI returns the injected API when one was provided and builds a
// platform client from the validated configuration otherwise.
func (r *Runner) ensureAPI(config *shared.Config) (engine.API, error) {
	if r.api != nil {
		return r.api, nil
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return canvas.NewClient(config.API, r.logger), nil
}

// sweepOpts builds engine options for one invocation. Precedence per field:
// command line, then configuration file, then engine defaults. Client knobs
// set on the command line (--timeout, --rate) are written back onto the
// configuration before the client is built.
func (r *Runner) sweepOpts(cmd *cli.Command, config *shared.Config) (engine.RunOpts, error) {
	opts := engine.RunOpts{}

	terms := cmd.Args().Slice()
	if len(terms) == 0 {
		terms = config.Sweep.Terms
	}
	if len(terms) == 0 {
		return opts, fmt.Errorf("%w: at least one term id, as an argument or sweep.terms", shared.ErrMissingArgument)
	}
	opts.TermIDs = terms

	rawFrequency := cmd.String("frequency")
	if rawFrequency == "" {
		rawFrequency = config.Sweep.Frequency
	}
	frequency, err := models.ParseFrequency(rawFrequency)
	if err != nil {
		return opts, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	opts.Frequency = frequency

	rawRoles := cmd.StringSlice("role")
	if len(rawRoles) == 0 {
		roles, err := config.Roles()
		if err != nil {
			return opts, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		opts.Roles = roles
	} else {
		for _, rawRole := range rawRoles {
			role, err := models.ParseRole(rawRole)
			if err != nil {
				return opts, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
			}
			opts.Roles = append(opts.Roles, role)
		}
	}

	opts.Excluded = cmd.StringSlice("exclude")
	if len(opts.Excluded) == 0 {
		opts.Excluded = config.Sweep.Excluded
	}

	opts.AccountID = config.API.AccountID
	if account := cmd.Int("account"); account > 0 {
		opts.AccountID = int64(account)
	}

	opts.Workers = config.Executor.Workers
	if workers := cmd.Int("workers"); workers > 0 {
		opts.Workers = workers
	}

	opts.MaxAttempts = config.Executor.MaxAttempts
	if attempts := cmd.Int("attempts"); attempts > 0 {
		opts.MaxAttempts = attempts
	}

	opts.Backoff = config.Backoff()
	if backoff := cmd.Int("backoff"); backoff > 0 {
		opts.Backoff = time.Duration(backoff) * time.Second
	}

	opts.IncludeCurrent = !config.Sweep.SkipCurrent || cmd.Bool("include-current")

	if timeout := cmd.Int("timeout"); timeout > 0 {
		config.API.TimeoutSeconds = timeout
	}
	if rate := cmd.Float("rate"); rate > 0 {
		config.API.RateLimit = rate
	}

	return opts, nil
}
