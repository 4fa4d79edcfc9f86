package gecko

import (
	"errors"
	"fmt"

	"github.com/go-rod/gecko/lib/webdriver"
)

const (
	// ErrElementNotFound error code
	ErrElementNotFound = "cannot find element"
	// ErrTimeout error code
	ErrTimeout = "wait timeout"
	// ErrContextMismatch error code
	ErrContextMismatch = "element belongs to another context"
	// ErrStaleElement error code
	ErrStaleElement = "element is stale"
	// ErrSessionClosed error code
	ErrSessionClosed = "session is closed"
	// ErrNoNewWindow error code
	ErrNoNewWindow = "no new window"
)

// Error ...
type Error struct {
	Err     error
	Code    string
	Details interface{}
}

// Error ...
func (e *Error) Error() string {
	if e.Details == nil {
		return fmt.Sprintf("[gecko] %s", e.Code)
	}
	return fmt.Sprintf("[gecko] %s: %v", e.Code, e.Details)
}

// Unwrap ...
func (e *Error) Unwrap() error {
	return e.Err
}

// Is only the Code is compared
func (e *Error) Is(err error) bool {
	target, ok := err.(*Error)
	return ok && target.Code == e.Code
}

// IsError type matches
func IsError(err error, code string) bool {
	if err == nil {
		return false
	}

	e := &Error{}
	if !errors.As(err, &e) {
		return false
	}

	return e.Code == code || IsError(e.Err, code)
}

// wrap the webdriver errors that have a gecko error code
func wrap(err error, details interface{}) error {
	if _, ok := err.(*Error); ok {
		return err
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, webdriver.ErrNoSuchElement):
		return &Error{Err: err, Code: ErrElementNotFound, Details: details}
	case errors.Is(err, webdriver.ErrStaleElement):
		return &Error{Err: err, Code: ErrStaleElement, Details: details}
	case errors.Is(err, webdriver.ErrInvalidSession):
		return &Error{Err: err, Code: ErrSessionClosed, Details: details}
	}
	return err
}
