package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrMissingEndpoint    = fmt.Errorf("missing endpoint URL")
	ErrInvalidFrequency   = fmt.Errorf("invalid frequency setting")
	ErrInvalidRole        = fmt.Errorf("invalid enrollment role")
	ErrInvalidLogLevel    = fmt.Errorf("invalid log level")

	// Run outcomes
	ErrRunFailed  = fmt.Errorf("run finished with failures")
	ErrRunAborted = fmt.Errorf("run aborted")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
