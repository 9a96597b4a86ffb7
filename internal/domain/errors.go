package domain

import "errors"

// Common domain errors
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownBackend = errors.New("unknown backend")

	// Credential errors are fatal to an upload attempt and never retried
	ErrNoCredentials      = errors.New("credentials not available")
	ErrInvalidCredentials = errors.New("credentials rejected by backend")

	// Run lifecycle errors
	ErrRunNotFound     = errors.New("run not found")
	ErrRunNotActive    = errors.New("run is not active")
	ErrPreflightFailed = errors.New("pre-flight check failed")
)

// ItemError marks an error as recoverable for the batch: the failing
// item is recorded and reported, and processing continues with the
// next item.
type ItemError struct {
	Err     error
	Context string
}

// Error returns the error message
func (e *ItemError) Error() string {
	if e.Context != "" {
		if e.Err != nil {
			return e.Context + ": " + e.Err.Error()
		}
		return e.Context
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "item error"
}

// Unwrap returns the underlying error
func (e *ItemError) Unwrap() error {
	return e.Err
}

// NewItemError creates a new per-item recoverable error
func NewItemError(err error, context string) *ItemError {
	return &ItemError{Err: err, Context: context}
}

// IsItemError returns true if the error is recoverable for the batch
func IsItemError(err error) bool {
	var ie *ItemError
	return errors.As(err, &ie)
}

// SetupError marks an error as fatal to the whole run: the pipeline
// must not start, or must stop before reaching the Running state.
type SetupError struct {
	Err error
}

// Error returns the error message
func (e *SetupError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "setup error"
}

// Unwrap returns the underlying error
func (e *SetupError) Unwrap() error {
	return e.Err
}

// NewSetupError creates a new run-fatal error
func NewSetupError(err error) *SetupError {
	return &SetupError{Err: err}
}

// IsSetupError returns true if the error is fatal to the run
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

// IsCredentialError reports whether the error stems from absent or
// rejected credentials. Such failures surface immediately and are
// never retried.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrNoCredentials) || errors.Is(err, ErrInvalidCredentials)
}
