package launcher

import (
	"errors"
	"strings"
)

// ErrAlreadyLaunched is an error that indicates the launcher has already been launched.
var ErrAlreadyLaunched = errors.New("already launched")

// ErrNotFound is returned when the executable can't be found
var ErrNotFound = errors.New("[launcher] executable not found")

// ErrLaunch is returned when geckodriver exits before it reports the url
type ErrLaunch struct {
	Output string
}

// Error interface
func (e *ErrLaunch) Error() string {
	return "[launcher] geckodriver exited before listening: " + strings.TrimSpace(e.Output)
}
