package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/tmacdonald/prefsweep/internal/canvas"
)

// ErrorClass sorts failures into the retry taxonomy: transient failures are
// retried, permanent failures are terminal for their item only, and
// configuration failures abort the whole run since no further item can
// plausibly succeed.
type ErrorClass int

const (
	ClassTransient ErrorClass = iota
	ClassPermanent
	ClassConfiguration
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassConfiguration:
		return "configuration"
	default:
		return ""
	}
}

// classify maps a call error onto the retry taxonomy. Timeouts, 5xx and
// rate-limit signals are transient; rejected credentials and unresolvable
// endpoints are configuration-fatal; everything else (plain 4xx, malformed
// responses) is permanent.
func classify(err error) ErrorClass {
	var apiErr *canvas.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.RateLimited:
			return ClassTransient
		case apiErr.Unauthorized():
			return ClassConfiguration
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return ClassTransient
		default:
			return ClassPermanent
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassConfiguration
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	return ClassPermanent
}

// EnumerationError marks a traversal branch (a term or a course) whose
// listing calls exhausted their retry budget. Branch failures skip the
// branch; they never abort the run.
type EnumerationError struct {
	Scope string
	ID    string
	Err   error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("failed to enumerate %s %s: %v", e.Scope, e.ID, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }
