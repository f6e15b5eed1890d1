package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tmacdonald/prefsweep/internal/models"
	"github.com/tmacdonald/prefsweep/internal/shared"
)

// API is the platform surface a sweep consumes. [canvas.Client] satisfies it;
// tests substitute a mock.
type API interface {
	FetchAccount(ctx context.Context, accountID int64) (*models.Account, error)
	FetchTerm(ctx context.Context, accountID int64, termID string) (*models.Term, error)
	ListCourses(ctx context.Context, accountID int64, termID string, pageURL string) ([]models.Course, string, error)
	ListEnrollments(ctx context.Context, courseID int64, pageURL string) ([]models.Enrollment, string, error)
	ListPreferences(ctx context.Context, userID int64) (*models.PreferenceSet, error)
	UpdatePreference(ctx context.Context, userID, channelID int64, notification string, frequency models.Frequency) error
}

// RunOpts configures a single sweep.
type RunOpts struct {
	TermIDs   []string         // Term identifiers to traverse, numeric or sis-prefixed
	AccountID int64            // Administrative account scoping term and course lookups
	Roles     []models.Role    // Enrollment roles in scope
	Excluded  []string         // Notification categories left untouched, matched exactly
	Frequency models.Frequency // Target frequency for every planned category

	Workers        int           // Parallel update calls, upper bound
	MaxAttempts    int           // Total attempts per item before a transient failure is terminal
	Backoff        time.Duration // Delay before the first re-attempt, doubling after
	IncludeCurrent bool          // Update items already at the target instead of skipping them
}

func (o *RunOpts) setDefaults() {
	if o.AccountID <= 0 {
		o.AccountID = 1
	}
	if len(o.Roles) == 0 {
		o.Roles = []models.Role{models.RoleObserver}
	}
	if o.Frequency == "" {
		o.Frequency = models.FrequencyNever
	}
	if o.Workers <= 0 {
		o.Workers = 10
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 5 * time.Second
	}
}

// Engine coordinates enumeration, planning and execution of a sweep against
// one platform instance.
type Engine struct {
	api    API
	logger *log.Logger
}

func New(api API, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{api: api, logger: logger}
}

// sendProgress delivers an update without ever blocking the run. A nil or
// full channel drops the update; the summary is the authoritative record.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run traverses the requested terms, plans preference updates for every
// in-scope user and executes them through the worker pool. The summary is
// returned even on abort, with whatever was counted up to that point.
//
// The returned error is the run's exit signal per [RunSummary.Err]; callers
// that want per-item detail read the summary instead.
func (e *Engine) Run(ctx context.Context, opts RunOpts, progress chan<- ProgressUpdate) (*RunSummary, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: nil api client", shared.ErrInvalidConfig)
	}
	if len(opts.TermIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one term", shared.ErrMissingArgument)
	}

	opts.setDefaults()
	if !opts.Frequency.Valid() {
		return nil, fmt.Errorf("%w: frequency %q", shared.ErrInvalidArgument, opts.Frequency)
	}

	summary := &RunSummary{
		RunID:     shared.GenerateID(),
		Terms:     opts.TermIDs,
		Frequency: opts.Frequency,
	}
	logger := shared.WithLogger(e.logger, "run", shared.ShortID(summary.RunID))
	policy := retryPolicy{MaxAttempts: opts.MaxAttempts, Backoff: opts.Backoff}
	started := time.Now()

	logger.Info("starting sweep",
		"terms", opts.TermIDs, "frequency", opts.Frequency,
		"roles", opts.Roles, "workers", opts.Workers)

	sendProgress(progress, connectUpdate())
	account, err := e.preflight(ctx, opts, policy)
	if err != nil {
		summary.Fatal = fmt.Sprintf("credential preflight failed: %v", err)
		summary.Elapsed = time.Since(started)
		logger.Error("aborting before enumeration", "error", err)
		sendProgress(progress, abortUpdate(summary, err))
		return summary, summary.Err()
	}
	logger.Info("credential accepted", "account", account.Name)
	sendProgress(progress, connectedUpdate(account))

	exec := newExecutor(e.api, opts, policy, logger)
	exec.start(ctx)

	done := make(chan struct{})
	go collect(exec, summary, logger, progress, done)

	sw := newSweep(e.api, opts, policy, logger, exec, summary, progress)
	sw.enumerate(ctx)

	exec.drain()
	<-done

	summary.Planned = int(exec.planned.Load())
	if exec.aborted.Load() && exec.abortErr != nil {
		summary.Fatal = exec.abortErr.Error()
	}
	if summary.Fatal == "" && ctx.Err() != nil {
		summary.Fatal = fmt.Sprintf("cancelled: %v", ctx.Err())
	}
	summary.Elapsed = time.Since(started)

	if summary.Fatal != "" {
		logger.Error("sweep aborted",
			"succeeded", summary.Succeeded, "failed", summary.Failed,
			"skipped", summary.Skipped, "reason", summary.Fatal)
		sendProgress(progress, abortUpdate(summary, fmt.Errorf("%s", summary.Fatal)))
	} else {
		logger.Info("sweep complete",
			"courses", summary.Courses, "users", summary.Users,
			"planned", summary.Planned, "succeeded", summary.Succeeded,
			"skipped", summary.Skipped, "failed", summary.Failed,
			"attempts", summary.Attempts, "elapsed", summary.Elapsed)
		sendProgress(progress, completeUpdate(summary))
	}

	return summary, summary.Err()
}

// preflight verifies the credential and endpoint before any traversal work,
// so a bad token fails the run in one call instead of one per item.
func (e *Engine) preflight(ctx context.Context, opts RunOpts, policy retryPolicy) (*models.Account, error) {
	var account *models.Account

	err := withRetry(ctx, policy, func() error {
		var err error
		account, err = e.api.FetchAccount(ctx, opts.AccountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// collect is the single consumer of executor outcomes. Counting in one place
// keeps the summary free of locks.
func collect(exec *executor, summary *RunSummary, logger *log.Logger, progress chan<- ProgressUpdate, done chan struct{}) {
	defer close(done)

	completed := 0
	for outcome := range exec.results {
		completed++
		summary.Attempts += outcome.Attempts

		switch outcome.Kind {
		case OutcomeSuccess:
			summary.Succeeded++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeFailed:
			summary.Failed++
			summary.Failures = append(summary.Failures, failureDetail(outcome))
			logger.Error("update failed",
				"user", outcome.Item.User.ID,
				"notification", outcome.Item.Notification,
				"class", outcome.Class, "attempts", outcome.Attempts,
				"error", outcome.Err)
		}

		sendProgress(progress, itemUpdate(completed, int(exec.planned.Load()), outcome))
	}
}
