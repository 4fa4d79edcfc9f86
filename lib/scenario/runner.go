// Package scenario runs a linear list of scenarios against one browser session.
// The session is created once before the first scenario and released exactly once after the
// last one, whatever the outcome is. Scenarios share the session and see each other's side
// effects, such as the tabs they opened.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-rod/gecko"
)

// DefaultStartupTimeout bounds the Setup
const DefaultStartupTimeout = 10 * time.Second

// Scenario is a named step that runs against the shared session
type Scenario struct {
	Name string
	Run  func(*Context) error
}

// Setup starts a session. If it fails after the session is partially started it should
// return the browser along with the error so that it can still be released.
type Setup func(ctx context.Context) (*gecko.Browser, error)

// Runner of a list of scenarios
type Runner struct {
	Setup     Setup
	Scenarios []Scenario

	// Filter is optional, a scenario is skipped if it returns false
	Filter Filter

	// Reporter is optional
	Reporter Reporter

	// StartupTimeout bounds the Setup, DefaultStartupTimeout is used if it's zero
	StartupTimeout time.Duration
}

// Context of a running scenario
type Context struct {
	ctx     context.Context
	name    string
	browser *gecko.Browser
	debug   CapturingLogger
}

// Context of the run
func (c *Context) Context() context.Context {
	return c.ctx
}

// Name of the scenario
func (c *Context) Name() string {
	return c.name
}

// Browser of the shared session, each action is traced into the debug output of the scenario
func (c *Context) Browser() *gecko.Browser {
	return c.browser
}

// Debug adds a message to the debug output of the scenario
func (c *Context) Debug(format string, args ...interface{}) {
	c.debug.Printf(format, args...)
}

// Assert returns an assertion failure with the message if ok is false
func (c *Context) Assert(ok bool, format string, args ...interface{}) error {
	if ok {
		return nil
	}
	return &Failure{Kind: KindAssertion, Err: fmt.Errorf(format, args...)}
}

// Run the setup, then the scenarios one by one, then release the session
func (r *Runner) Run(ctx context.Context) (res Results) {
	reporter := r.Reporter
	if reporter == nil {
		reporter = nullReporter{}
	}

	b, failure := r.setup(ctx)
	if b != nil {
		defer func() {
			res.Teardown = b.Close()
			res.TeardownCount++
			reporter.TeardownFinished(res.Teardown)
		}()
	}

	if failure != nil {
		res.Setup = failure
		reporter.SetupFailed(failure)
		return
	}

	for _, s := range r.Scenarios {
		reporter.ScenarioStarted(s.Name)

		if r.Filter != nil && !r.Filter(s.Name) {
			reason := "excluded by filter parameters"
			reporter.ScenarioSkipped(s.Name, reason)
			res.Scenarios = append(res.Scenarios, Result{Name: s.Name, Skipped: true, SkipReason: reason})
			continue
		}

		result := r.run(ctx, b, s)

		res.Scenarios = append(res.Scenarios, result)
		if result.Failed() {
			res.Failures = append(res.Failures, result)
		}
		reporter.ScenarioFinished(result)
	}

	return
}

func (r *Runner) setup(ctx context.Context) (b *gecko.Browser, failure *Failure) {
	timeout := r.StartupTimeout
	if timeout == 0 {
		timeout = DefaultStartupTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if v := recover(); v != nil {
			failure = &Failure{Kind: KindSetup, Err: fmt.Errorf("panic in setup: %v", v)}
		}
	}()

	if r.Setup == nil {
		return nil, &Failure{Kind: KindSetup, Err: errors.New("no setup")}
	}

	b, err := r.Setup(ctx)
	if err != nil {
		return b, &Failure{Kind: KindSetup, Err: err}
	}
	if b == nil {
		return nil, &Failure{Kind: KindSetup, Err: errors.New("setup returned no browser")}
	}
	return b, nil
}

func (r *Runner) run(ctx context.Context, b *gecko.Browser, s Scenario) (result Result) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &Context{ctx: ctx, name: s.Name}
	c.browser = b.Context(ctx).Logger(&c.debug).Trace(true)

	logged := len(b.Logs())
	start := time.Now()

	defer func() {
		if v := recover(); v != nil {
			result.Failure = &Failure{Kind: KindPanic, Err: fmt.Errorf("%v\n%s", v, debug.Stack())}
		}

		result.Name = s.Name
		result.Duration = time.Since(start)
		result.Debug = c.debug.Output()

		if logs := b.Logs(); len(logs) > logged {
			result.Logs = logs[logged:]
		}
	}()

	result.Failure = Classify(s.Run(c))

	return
}
