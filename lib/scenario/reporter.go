package scenario

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-rod/gecko/lib/utils"
)

// Reporter receives the progress of a run
type Reporter interface {
	SetupFailed(f *Failure)
	ScenarioStarted(name string)
	ScenarioSkipped(name, reason string)
	ScenarioFinished(r Result)
	TeardownFinished(err error)
}

type nullReporter struct{}

func (nullReporter) SetupFailed(*Failure)           {}
func (nullReporter) ScenarioStarted(string)         {}
func (nullReporter) ScenarioSkipped(string, string) {}
func (nullReporter) ScenarioFinished(Result)        {}
func (nullReporter) TeardownFinished(error)         {}

// ConsoleReporter prints colored progress to Out
type ConsoleReporter struct {
	Out io.Writer

	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

// NewConsoleReporter prints to stdout and dumps the debug output of failed scenarios
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{Out: os.Stdout, DebugOutputOnFailure: true}
}

// SetupFailed interface
func (c *ConsoleReporter) SetupFailed(f *Failure) {
	c.printf("%s\n", utils.C("SETUP FAILED", "red"))
	c.printErr(f)
}

// ScenarioStarted interface
func (c *ConsoleReporter) ScenarioStarted(name string) {
	c.printf("[%s]\n", name)
}

// ScenarioSkipped interface
func (c *ConsoleReporter) ScenarioSkipped(name, reason string) {
	if reason == "" {
		c.printf("  %s: %s\n", utils.C("SKIPPED", "yellow"), name)
	} else {
		c.printf("  %s: %s (%s)\n", utils.C("SKIPPED", "yellow"), name, reason)
	}
}

// ScenarioFinished interface
func (c *ConsoleReporter) ScenarioFinished(r Result) {
	if r.Failed() {
		c.printErr(r.Failure)
		c.printf("  %s: %s (%v)\n", utils.C("FAILED", "red"), r.Name, r.Duration)
	} else {
		c.printf("  %s: %s (%v)\n", utils.C("PASSED", "green"), r.Name, r.Duration)
	}

	if (r.Failed() && c.DebugOutputOnFailure) || (!r.Failed() && c.DebugOutputOnSuccess) {
		r.Debug.Dump(c.Out, "    DEBUG ")
		for _, e := range r.Logs {
			c.printf("    CONSOLE %s\n", e)
		}
	}
}

// TeardownFinished interface
func (c *ConsoleReporter) TeardownFinished(err error) {
	if err != nil {
		c.printf("%s %v\n", utils.C("TEARDOWN FAILED", "red"), err)
	}
}

func (c *ConsoleReporter) printErr(err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		c.printf("  %s\n", line)
	}
}

func (c *ConsoleReporter) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(c.Out, format, args...)
}
