package errors

import (
	stderrors "errors"
	"maps"
)

// ClassifiedError is an error with a category, a severity, a retry strategy
// and structured context. Create one with an ErrorBuilder.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// Error renders "[category:severity] message", followed by the cause.
func (e *ClassifiedError) Error() string {
	s := "[" + string(e.category) + ":" + string(e.severity) + "] " + e.message
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory { return e.category }

func (e *ClassifiedError) Severity() ErrorSeverity { return e.severity }

func (e *ClassifiedError) RetryStrategy() RetryStrategy { return e.retry }

// Message is the error text without category, severity or cause.
func (e *ClassifiedError) Message() string { return e.message }

func (e *ClassifiedError) Context() ErrorContext { return e.context }

// WithContext returns a copy of e with key set. e itself is unchanged.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	c := *e
	c.context = maps.Clone(e.context).Set(key, value)
	return &c
}

// IsFatal reports whether the error stops the run.
func (e *ClassifiedError) IsFatal() bool { return e.severity == SeverityFatal }

// CanRetry reports whether repeating the operation unchanged may succeed.
func (e *ClassifiedError) CanRetry() bool {
	return e.retry == RetryImmediate || e.retry == RetryBackoff
}

// IsTransient reports whether the failure came from the environment rather
// than the inputs. Only retryable sink failures qualify.
func (e *ClassifiedError) IsTransient() bool {
	return e.CanRetry() && (e.category == CategoryStorage || e.category == CategoryPublish)
}

// AsClassified finds the first ClassifiedError in the chain of err.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// HasCategory reports whether the first ClassifiedError in the chain of err
// has category.
func HasCategory(err error, category ErrorCategory) bool {
	ce, ok := AsClassified(err)
	return ok && ce.category == category
}
