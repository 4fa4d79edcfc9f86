package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/gecko"
	"github.com/go-rod/gecko/lib/bidi"
)

// Kind of a failure
type Kind string

const (
	// KindSetup means the session couldn't be started, no scenario runs after it
	KindSetup Kind = "setup"
	// KindAssertion means an observed value differs from the expected one
	KindAssertion Kind = "assertion"
	// KindTimeout means a bounded wait expired
	KindTimeout Kind = "timeout"
	// KindDriver means the browser or the driver reported an error
	KindDriver Kind = "driver"
	// KindPanic means the scenario panicked
	KindPanic Kind = "panic"
)

// Failure of a scenario or the setup
type Failure struct {
	Kind Kind
	Err  error
}

// Error interface
func (f *Failure) Error() string {
	return fmt.Sprintf("[%s] %v", f.Kind, f.Err)
}

// Unwrap interface
func (f *Failure) Unwrap() error {
	return f.Err
}

// Classify an error returned by a scenario
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	f := &Failure{}
	if errors.As(err, &f) {
		return f
	}

	if gecko.IsError(err, gecko.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: KindTimeout, Err: err}
	}

	return &Failure{Kind: KindDriver, Err: err}
}

// Result of a scenario
type Result struct {
	Name       string
	Failure    *Failure
	Skipped    bool
	SkipReason string
	Duration   time.Duration

	// Debug output captured while the scenario was running
	Debug CapturedOutput

	// Logs from the browser console while the scenario was running
	Logs []*bidi.LogEntry
}

// Failed returns true if the scenario failed
func (r Result) Failed() bool {
	return r.Failure != nil
}

// Results of a run
type Results struct {
	// Setup is not nil if the session couldn't be started
	Setup *Failure

	Scenarios []Result
	Failures  []Result

	// Teardown is the error from releasing the session, it doesn't affect OK
	Teardown error

	// TeardownCount is how many times the session was released
	TeardownCount int
}

// OK returns true if the setup and all the scenarios that ran passed
func (r Results) OK() bool {
	return r.Setup == nil && len(r.Failures) == 0
}
