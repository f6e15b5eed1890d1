package engine

import (
	"context"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/tmacdonald/prefsweep/internal/models"
)

// target pairs a deduplicated user with the course whose roster produced
// them, kept for failure reporting.
type target struct {
	User   models.User
	Course models.Course
}

// sweep walks terms to courses to enrollments, filters by role, deduplicates
// users across course rosters, and feeds each new user to the visit hook.
// In a full run the hook is the planner; the targets listing substitutes a
// collector and runs with no executor at all.
//
// Branch failures are recorded and skipped: a course that cannot be listed
// never aborts the run unless the failure is configuration-class.
type sweep struct {
	api      API
	opts     RunOpts
	policy   retryPolicy
	logger   *log.Logger
	exec     *executor
	summary  *RunSummary
	progress chan<- ProgressUpdate
	visit    func(ctx context.Context, tgt target) bool
	fatal    error

	roleSet  map[models.Role]bool
	excluded map[string]bool
	seen     map[int64]bool
}

func newSweep(api API, opts RunOpts, policy retryPolicy, logger *log.Logger, exec *executor, summary *RunSummary, progress chan<- ProgressUpdate) *sweep {
	roles := make(map[models.Role]bool, len(opts.Roles))
	for _, role := range opts.Roles {
		roles[role] = true
	}

	excluded := make(map[string]bool, len(opts.Excluded))
	for _, name := range opts.Excluded {
		excluded[name] = true
	}

	s := &sweep{
		api:      api,
		opts:     opts,
		policy:   policy,
		logger:   logger,
		exec:     exec,
		summary:  summary,
		progress: progress,
		roleSet:  roles,
		excluded: excluded,
		seen:     make(map[int64]bool),
	}
	s.visit = s.planUser
	return s
}

// halted reports whether the traversal should stop handing out new work.
func (s *sweep) halted() bool {
	if s.fatal != nil {
		return true
	}
	return s.exec != nil && s.exec.aborted.Load()
}

// abort latches a configuration-class failure and trips the executor when
// one is attached.
func (s *sweep) abort(err error) {
	if s.fatal == nil {
		s.fatal = err
	}
	if s.exec != nil {
		s.exec.trip(err)
	}
}

// enumerate drives the full traversal for every requested term. It returns
// early only on cancellation or a tripped abort; ordinary branch failures
// leave a skip record and move on.
func (s *sweep) enumerate(ctx context.Context) {
	for i, termID := range s.opts.TermIDs {
		if ctx.Err() != nil || s.halted() {
			return
		}

		term, err := s.resolveTerm(ctx, termID)
		if err != nil {
			if classify(err) == ClassConfiguration {
				s.abort(err)
				return
			}
			s.skipBranch(ctx, "term", termID, err)
			continue
		}

		sendProgress(s.progress, termUpdate(i+1, len(s.opts.TermIDs), term))
		s.walkTerm(ctx, termID, term)
	}
}

func (s *sweep) resolveTerm(ctx context.Context, termID string) (*models.Term, error) {
	var term *models.Term

	err := withRetry(ctx, s.policy, func() error {
		var err error
		term, err = s.api.FetchTerm(ctx, s.opts.AccountID, termID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return term, nil
}

// walkTerm pages through the term's course list and visits every course.
// termID is the identifier the caller asked for, kept for skip reporting.
func (s *sweep) walkTerm(ctx context.Context, termID string, term *models.Term) {
	pageURL := ""
	resolvedID := strconv.FormatInt(term.ID, 10)

	for {
		if ctx.Err() != nil || s.halted() {
			return
		}

		var (
			courses []models.Course
			next    string
		)
		err := withRetry(ctx, s.policy, func() error {
			var err error
			courses, next, err = s.api.ListCourses(ctx, s.opts.AccountID, resolvedID, pageURL)
			return err
		})
		if err != nil {
			if classify(err) == ClassConfiguration {
				s.abort(err)
				return
			}
			s.skipBranch(ctx, "term", termID, err)
			return
		}

		for _, course := range courses {
			if ctx.Err() != nil || s.halted() {
				return
			}

			matched := s.walkCourse(ctx, course)
			s.summary.Courses++
			sendProgress(s.progress, courseUpdate(s.summary.Courses, course, matched))
		}

		if next == "" {
			return
		}
		pageURL = next
	}
}

// walkCourse pages through one course's enrollments, keeping users whose
// role matches and who have not been seen in an earlier course. Returns how
// many matching enrollments the roster held, duplicates included.
func (s *sweep) walkCourse(ctx context.Context, course models.Course) int {
	pageURL := ""
	matched := 0

	for {
		if ctx.Err() != nil || s.halted() {
			return matched
		}

		var (
			enrollments []models.Enrollment
			next        string
		)
		err := withRetry(ctx, s.policy, func() error {
			var err error
			enrollments, next, err = s.api.ListEnrollments(ctx, course.ID, pageURL)
			return err
		})
		if err != nil {
			if classify(err) == ClassConfiguration {
				s.abort(err)
				return matched
			}
			s.skipBranch(ctx, "course", strconv.FormatInt(course.ID, 10), err)
			return matched
		}

		for _, enrollment := range enrollments {
			if !s.roleSet[enrollment.Role()] {
				continue
			}
			matched++

			user := enrollment.User
			if user.ID == 0 {
				user.ID = enrollment.UserID
			}
			if user.ID == 0 || s.seen[user.ID] {
				continue
			}
			s.seen[user.ID] = true
			s.summary.Users++

			if !s.visit(ctx, target{User: user, Course: course}) {
				return matched
			}
		}

		if next == "" {
			return matched
		}
		pageURL = next
	}
}

// skipBranch records a non-fatal enumeration failure so the summary can
// report incomplete coverage.
func (s *sweep) skipBranch(ctx context.Context, scope, id string, err error) {
	if ctx.Err() != nil {
		return
	}

	enumErr := &EnumerationError{Scope: scope, ID: id, Err: err}
	s.logger.Warn("skipping branch", "scope", scope, "id", id, "error", err)

	skip := BranchSkip{Scope: scope, ID: id, Reason: enumErr.Error()}
	s.summary.SkippedBranches = append(s.summary.SkippedBranches, skip)
	sendProgress(s.progress, branchSkipUpdate(skip))
}
