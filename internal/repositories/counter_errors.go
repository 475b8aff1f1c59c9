package repositories

import "fmt"

// CounterErrorCode categorises counter repository failures.
type CounterErrorCode string

const (
	CounterErrorInvalidInput CounterErrorCode = "invalid_input"
	CounterErrorExhausted    CounterErrorCode = "exhausted"
	CounterErrorUnavailable  CounterErrorCode = "unavailable"
)

// CounterError describes counter allocation failures with a stable code.
type CounterError struct {
	Code    CounterErrorCode
	Message string
	Err     error
}

// NewCounterError constructs a CounterError.
func NewCounterError(code CounterErrorCode, message string, err error) *CounterError {
	return &CounterError{Code: code, Message: message, Err: err}
}

// Error implements the error interface.
func (e *CounterError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("counter %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("counter %s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *CounterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound implements RepositoryError.
func (e *CounterError) IsNotFound() bool { return false }

// IsConflict implements RepositoryError.
func (e *CounterError) IsConflict() bool {
	return e != nil && e.Code == CounterErrorExhausted
}

// IsUnavailable implements RepositoryError.
func (e *CounterError) IsUnavailable() bool {
	return e != nil && e.Code == CounterErrorUnavailable
}
