package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// executor runs work items through a fixed pool of workers. Parallel calls
// never exceed the configured worker count; the jobs channel is bounded so
// the producer cannot run unbounded ahead of the pool.
//
// Accounting invariant: every submitted item holds one itemWG count until a
// terminal outcome is recorded, including across re-queued retry attempts.
// The jobs channel therefore closes exactly when no item can re-enter it.
type executor struct {
	api    API
	opts   RunOpts
	policy retryPolicy
	logger *log.Logger

	jobs    chan WorkItem
	results chan Outcome

	itemWG   sync.WaitGroup
	workerWG sync.WaitGroup

	planned   atomic.Int64
	aborted   atomic.Bool
	abortOnce sync.Once
	abortErr  error
}

func newExecutor(api API, opts RunOpts, policy retryPolicy, logger *log.Logger) *executor {
	buffer := opts.Workers * 2
	return &executor{
		api:     api,
		opts:    opts,
		policy:  policy,
		logger:  logger,
		jobs:    make(chan WorkItem, buffer),
		results: make(chan Outcome, buffer),
	}
}

func (x *executor) start(ctx context.Context) {
	for i := 0; i < x.opts.Workers; i++ {
		x.workerWG.Add(1)
		go x.worker(ctx)
	}
}

// submit hands one planned item to the pool, blocking when the queue is full.
// Returns false once the run is cancelled or aborted and no more items should
// be planned.
func (x *executor) submit(ctx context.Context, item WorkItem) bool {
	if x.aborted.Load() {
		return false
	}

	x.itemWG.Add(1)
	x.planned.Add(1)

	select {
	case x.jobs <- item:
		return true
	case <-ctx.Done():
		x.finish(skippedOutcome(item, "run cancelled"))
		return false
	}
}

// report records an outcome for something that never entered the pool, such
// as a user whose categories could not be listed. Must only be called before
// drain.
func (x *executor) report(outcome Outcome) {
	x.results <- outcome
}

// drain closes intake once every submitted item has reached a terminal
// outcome, waits for the workers, then closes the results stream.
func (x *executor) drain() {
	go func() {
		x.itemWG.Wait()
		close(x.jobs)
	}()
	x.workerWG.Wait()
	close(x.results)
}

// trip flips the run into aborted state on the first configuration-class
// failure. In-flight items finish; queued items are skipped, not dispatched.
func (x *executor) trip(err error) {
	x.abortOnce.Do(func() {
		x.abortErr = err
		x.aborted.Store(true)
		x.logger.Error("aborting run, no further updates will be dispatched", "error", err)
	})
}

func (x *executor) worker(ctx context.Context) {
	defer x.workerWG.Done()

	for item := range x.jobs {
		x.process(ctx, item)
	}
}

// process makes at most one update call for the item and records either a
// terminal outcome or a delayed re-queue. Item isolation: a failure here
// never cancels or blocks unrelated items.
func (x *executor) process(ctx context.Context, item WorkItem) {
	if x.aborted.Load() {
		x.finish(skippedOutcome(item, "aborted before dispatch"))
		return
	}
	if ctx.Err() != nil {
		x.finish(skippedOutcome(item, "run cancelled"))
		return
	}

	if !x.opts.IncludeCurrent && item.Current == item.Target {
		x.finish(skippedOutcome(item, "already at target frequency"))
		return
	}

	item.attempts++
	err := x.api.UpdatePreference(ctx, item.User.ID, item.ChannelID, item.Notification, item.Target)
	if err == nil {
		x.finish(Outcome{Item: item, Kind: OutcomeSuccess, Attempts: item.attempts})
		return
	}

	if errors.Is(err, context.Canceled) {
		x.finish(skippedOutcome(item, "run cancelled"))
		return
	}

	switch class := classify(err); class {
	case ClassConfiguration:
		x.trip(err)
		x.finish(Outcome{Item: item, Kind: OutcomeFailed, Class: class, Attempts: item.attempts, Err: err})
	case ClassTransient:
		if item.attempts < x.policy.MaxAttempts {
			x.logger.Debug("re-queueing transient failure",
				"user", item.User.ID, "notification", item.Notification,
				"attempt", item.attempts, "error", err)
			go x.requeue(ctx, item, x.policy.backoffFor(item.attempts))
			return
		}
		x.finish(Outcome{Item: item, Kind: OutcomeFailed, Class: class, Attempts: item.attempts, Err: err})
	default:
		x.finish(Outcome{Item: item, Kind: OutcomeFailed, Class: class, Attempts: item.attempts, Err: err})
	}
}

// requeue re-enters a transiently failed item after its backoff delay. The
// item keeps its attempt count and gets a fresh call timeout on dispatch.
func (x *executor) requeue(ctx context.Context, item WorkItem, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		x.finish(skippedOutcome(item, "run cancelled"))
		return
	}

	if x.aborted.Load() {
		x.finish(skippedOutcome(item, "aborted before dispatch"))
		return
	}

	select {
	case x.jobs <- item:
	case <-ctx.Done():
		x.finish(skippedOutcome(item, "run cancelled"))
	}
}

// finish records the terminal outcome and releases the item's drain count.
func (x *executor) finish(outcome Outcome) {
	x.results <- outcome
	x.itemWG.Done()
}
