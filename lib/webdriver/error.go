package webdriver

import "fmt"

// Error of a webdriver command.
// The list of error codes: https://www.w3.org/TR/webdriver/#errors
type Error struct {
	Status     int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace"`
}

// Error interface
func (e *Error) Error() string {
	return fmt.Sprintf("[webdriver] %s: %s", e.Code, e.Message)
}

// Is interface, only the Code is compared
func (e *Error) Is(err error) bool {
	target, ok := err.(*Error)
	return ok && target.Code == e.Code
}

// ErrNoSuchElement type
var ErrNoSuchElement = &Error{Code: "no such element"}

// ErrStaleElement type
var ErrStaleElement = &Error{Code: "stale element reference"}

// ErrNoSuchWindow type
var ErrNoSuchWindow = &Error{Code: "no such window"}

// ErrInvalidSession type
var ErrInvalidSession = &Error{Code: "invalid session id"}

// ErrSessionNotCreated type
var ErrSessionNotCreated = &Error{Code: "session not created"}

// ErrTimeout type
var ErrTimeout = &Error{Code: "timeout"}

// ErrUnknownCommand type
var ErrUnknownCommand = &Error{Code: "unknown command"}

// ErrInvalidArgument type
var ErrInvalidArgument = &Error{Code: "invalid argument"}

// ErrNotInteractable type
var ErrNotInteractable = &Error{Code: "element not interactable"}

// ErrUnknown type
var ErrUnknown = &Error{Code: "unknown error"}

func parseError(res *Response) error {
	code := res.Value.Get("error")
	if !code.Exists() && res.Status < 400 {
		return nil
	}

	if !code.Exists() {
		return &Error{
			Status:  res.Status,
			Code:    ErrUnknown.Code,
			Message: fmt.Sprintf("unexpected http status %d: %s", res.Status, res.Value.Raw),
		}
	}

	return &Error{
		Status:     res.Status,
		Code:       code.String(),
		Message:    res.Value.Get("message").String(),
		Stacktrace: res.Value.Get("stacktrace").String(),
	}
}
