package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a network-related error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "dial", "read", "subscribe")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// DecodeError represents a malformed push frame or persisted record.
// Never retriable: the offending input is logged and skipped.
type DecodeError struct {
	Source string // where the bad input came from ("push", "rules", "workspace")
	Err    error
}

func (e *DecodeError) Error() string {
	return "decode [" + e.Source + "]: " + e.Err.Error()
}

func (e *DecodeError) IsRetriable() bool {
	return false
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidInstrument is returned for identifiers not of the CODE.MARKET form.
	ErrInvalidInstrument = errors.New("invalid instrument")

	// ErrStreamClosed is returned by the ingestion loop when the push
	// stream is lost permanently. Fatal for the data layer.
	ErrStreamClosed = errors.New("push stream closed")

	// ErrRateLimitExhausted annotates an upstream error that survived
	// all rate-limit retries.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

	// ErrRuleNotFound is returned for alert mutations on unknown rule IDs.
	ErrRuleNotFound = errors.New("alert rule not found")
)
