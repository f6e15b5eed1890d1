// Package engine implements the bulk notification-preference sweep: it
// enumerates the observer population of the requested terms, plans one
// update per user and notification category, and executes the plan through
// a bounded worker pool.
//
// # Pipeline
//
// A run moves through fixed phases. Connect verifies the credential with a
// single account fetch before any traversal. Enumerate walks term to courses
// to enrollments, filtering by role and deduplicating users that appear on
// several rosters. Plan expands each new user into work items, one per
// non-excluded category on the user's primary channel. Execute dispatches
// items to the pool and collects outcomes into the [RunSummary].
//
// # Failure Handling
//
// Errors are classified transient, permanent or configuration. Transient
// failures re-enter the queue after a doubling backoff until the attempt cap;
// permanent failures are terminal for their item only; the first
// configuration failure aborts the run, letting in-flight calls finish and
// skipping everything still queued. Enumeration failures on a single term or
// course skip that branch and are listed in the summary.
//
// # Progress
//
// Callers may pass a [ProgressUpdate] channel to observe phase transitions
// and per-item outcomes. Delivery is best effort and never blocks the run.
package engine
