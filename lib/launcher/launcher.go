// Package launcher for launching geckodriver and describing the Firefox it should start.
package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/alessio/shellescape"
	"github.com/go-rod/gecko/lib/defaults"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/tidwall/sjson"
	"github.com/ysmood/leakless"
)

// Launcher is a helper to launch geckodriver smartly.
// Flags are the command line flags of geckodriver, the rest of the settings go to the Firefox
// capabilities of the session.
type Launcher struct {
	ctx       context.Context
	ctxCancel func()

	driver string
	bin    string

	Flags map[string][]string `json:"flags"`

	args     []string
	prefs    map[string]interface{}
	profile  string
	keep     bool
	headless bool
	bidi     bool

	log      func(string)
	output   chan string
	pid      int
	exit     chan utils.Nil
	reap     bool
	leakless bool

	launched bool
	started  bool
	stop     sync.Once
}

// New returns the default settings to start geckodriver and a headless Firefox with a temp profile
func New() *Launcher {
	profile := defaults.Dir
	if profile == "" {
		profile = filepath.Join(os.TempDir(), "gecko", "profile", utils.RandString(8))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Launcher{
		ctx:       ctx,
		ctxCancel: cancel,
		driver:    defaults.Driver,
		bin:       defaults.Bin,
		Flags: map[string][]string{
			"host": {"127.0.0.1"},
			"port": {defaults.Port},
		},
		prefs: map[string]interface{}{
			"browser.shell.checkDefaultBrowser":          false,
			"browser.startup.homepage_override.mstone":   "ignore",
			"datareporting.policy.dataSubmissionEnabled": false,
			"toolkit.telemetry.reportingpolicy.firstRun": false,
		},
		profile:  profile,
		headless: !defaults.Show,
		bidi:     defaults.BiDi,
		output:   make(chan string),
		exit:     make(chan utils.Nil),
		reap:     true,
		leakless: true,
	}
}

// Context set the context
func (l *Launcher) Context(ctx context.Context) *Launcher {
	ctx, cancel := context.WithCancel(ctx)
	l.ctx = ctx
	l.ctxCancel = cancel
	return l
}

// Get flag's first value
func (l *Launcher) Get(name string) (string, bool) {
	list, has := l.Flags[name]

	if has {
		if len(list) == 0 {
			return "", true
		}
		return list[0], true
	}
	return "", false
}

// Set flag of geckodriver
func (l *Launcher) Set(name string, values ...string) *Launcher {
	l.Flags[strings.TrimLeft(name, "-")] = values
	return l
}

// Delete flag
func (l *Launcher) Delete(name string) *Launcher {
	delete(l.Flags, strings.TrimLeft(name, "-"))
	return l
}

// Driver set the geckodriver executable file path
func (l *Launcher) Driver(path string) *Launcher {
	l.driver = path
	return l
}

// Bin set the Firefox executable file path
func (l *Launcher) Bin(path string) *Launcher {
	l.bin = path
	return l
}

// Headless switch
func (l *Launcher) Headless(enable bool) *Launcher {
	l.headless = enable
	return l
}

// BiDi switch, when enabled the session will expose the websocket url for browser events
func (l *Launcher) BiDi(enable bool) *Launcher {
	l.bidi = enable
	return l
}

// Arg appends Firefox command line arguments
func (l *Launcher) Arg(args ...string) *Launcher {
	l.args = append(l.args, args...)
	return l
}

// Pref sets a Firefox preference, such as "devtools.console.stdout.content"
func (l *Launcher) Pref(name string, value interface{}) *Launcher {
	l.prefs[name] = value
	return l
}

// Profile is where Firefox will keep all of its state. When set to empty, geckodriver creates a temp one.
func (l *Launcher) Profile(dir string) *Launcher {
	l.profile = dir
	return l
}

// KeepProfile after the driver is stopped. By default the profile dir will be removed.
func (l *Launcher) KeepProfile() *Launcher {
	l.keep = true
	return l
}

// Log function to handle stdout and stderr from geckodriver and Firefox
func (l *Launcher) Log(log func(string)) *Launcher {
	l.log = log
	return l
}

// Reap enable/disable a guard to cleanup zombie processes
func (l *Launcher) Reap(enable bool) *Launcher {
	l.reap = enable
	return l
}

// Leakless enable/disable the guard that kills geckodriver when the current process exits
func (l *Launcher) Leakless(enable bool) *Launcher {
	l.leakless = enable
	return l
}

// FormatArgs returns the formatted arg list of geckodriver, the order is stable
func (l *Launcher) FormatArgs() []string {
	keys := []string{}
	for k := range l.Flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []string{}
	for _, k := range keys {
		args = append(args, "--"+k)
		args = append(args, l.Flags[k]...)
	}
	if l.bin != "" {
		args = append(args, "--binary", l.bin)
	}
	return args
}

// FirefoxArgs returns the command line arguments for Firefox
func (l *Launcher) FirefoxArgs() []string {
	args := []string{}
	if l.headless {
		args = append(args, "-headless")
	}
	if l.profile != "" {
		abs, err := filepath.Abs(l.profile)
		utils.E(err)
		args = append(args, "-profile", abs)
	}
	return append(args, l.args...)
}

// Capabilities returns the json of the session capabilities to match
func (l *Launcher) Capabilities() string {
	caps := `{"browserName":"firefox"}`

	caps = set(caps, "moz:firefoxOptions.args", l.FirefoxArgs())

	if l.bin != "" {
		caps = set(caps, "moz:firefoxOptions.binary", l.bin)
	}

	for name, value := range l.prefs {
		// pref names contain dots
		caps = set(caps, "moz:firefoxOptions.prefs."+strings.ReplaceAll(name, ".", `\.`), value)
	}

	if l.bidi {
		caps = set(caps, "webSocketUrl", true)
	}

	return caps
}

// Launch geckodriver and returns the url of its webdriver endpoint
func (l *Launcher) Launch() string {
	u, err := l.LaunchE()
	utils.E(err)
	return u
}

// LaunchE doc is similar to the method Launch
func (l *Launcher) LaunchE() (u string, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = e.(error)
		}
	}()

	if l.launched {
		return "", ErrAlreadyLaunched
	}
	l.launched = true

	if l.reap {
		runReaper()
	}

	defer l.ctxCancel()

	driver, err := LookDriver(l.driver)
	utils.E(err)

	// without a binary geckodriver searches on its own, keep what we found so that
	// the capabilities and the log show the same one
	if l.bin == "" {
		if bin, err := LookFirefox(""); err == nil {
			l.bin = bin
		}
	}

	if l.profile != "" {
		utils.E(utils.Mkdir(l.profile))
	}

	var ll *leakless.Launcher
	var cmd *exec.Cmd

	if l.leakless && leakless.Support() {
		ll = leakless.New()
		cmd = ll.Command(driver, l.FormatArgs()...)
	} else {
		cmd = exec.Command(driver, l.FormatArgs()...)
		l.osSetupCmd(cmd)
	}

	if l.log != nil {
		l.log(fmt.Sprintln(utils.C("Launch", "cyan"), quote(cmd.Args)))
	}

	stdout, err := cmd.StdoutPipe()
	utils.E(err)

	stderr, err := cmd.StderrPipe()
	utils.E(err)

	err = cmd.Start()
	utils.E(err)

	if ll != nil {
		select {
		case <-l.ctx.Done():
			utils.E(l.ctx.Err())
		case pid := <-ll.Pid():
			l.pid = pid
			if ll.Err() != "" {
				return "", errors.New(ll.Err())
			}
		}
	} else {
		l.pid = cmd.Process.Pid
	}

	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() { defer wg.Done(); l.read(stdout) }()
	go func() { defer wg.Done(); l.read(stderr) }()

	// exit closes after all the output is read
	go func() {
		wg.Wait()
		_ = cmd.Wait()
		close(l.exit)
	}()
	l.started = true

	u, err = l.getURL()
	if err != nil {
		l.Kill()
		return "", err
	}

	return u, nil
}

// PID returns the geckodriver process pid
func (l *Launcher) PID() int {
	return l.pid
}

// Kill geckodriver and the browsers it started, it's safe to call it multiple times
func (l *Launcher) Kill() {
	l.stop.Do(func() {
		if l.pid == 0 {
			return
		}
		killGroup(l.pid)
		p, err := os.FindProcess(l.pid)
		if err == nil {
			_ = p.Kill()
		}
	})
}

// Cleanup wait until geckodriver exits and release related resources
func (l *Launcher) Cleanup() {
	if l.started {
		<-l.exit
	}

	if l.keep || l.profile == "" || defaults.Dir != "" {
		return
	}

	if l.log != nil {
		l.log(fmt.Sprintln(utils.C("Remove", "cyan"), l.profile))
	}
	_ = os.RemoveAll(l.profile)
}

func (l *Launcher) read(reader io.Reader) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		if l.log != nil {
			l.log(scanner.Text() + "\n")
		}
		select {
		case <-l.ctx.Done():
			if l.log == nil {
				// drain so the process never blocks on a full pipe
				_, _ = io.Copy(io.Discard, reader)
				return
			}
		case l.output <- scanner.Text() + "\n":
		}
	}
}

var regListening = regexp.MustCompile(`Listening on (\S+)`)

// getURL from geckodriver output
func (l *Launcher) getURL() (u string, err error) {
	out := ""

	for {
		select {
		case <-l.ctx.Done():
			return "", l.ctx.Err()
		case e := <-l.output:
			out += e

			if m := regListening.FindStringSubmatch(out); m != nil {
				return "http://" + strings.TrimPrefix(m[1], "http://"), nil
			}
		case <-l.exit:
			return "", &ErrLaunch{Output: out}
		}
	}
}

func set(json, path string, value interface{}) string {
	out, err := sjson.Set(json, path, value)
	utils.E(err)
	return out
}

func quote(args []string) string {
	list := []string{}
	for _, a := range args {
		list = append(list, shellescape.Quote(a))
	}
	return strings.Join(list, " ")
}
