// Package gecko is a high-level driver for testing Firefox add-ons over the WebDriver protocol.
// It launches geckodriver, installs the add-on under test into a fresh Firefox, and exposes
// the small set of actions an add-on functional test needs, such as finding the toolbar button
// of the add-on in the browser chrome, clicking it, and waiting for the tab it opens.
package gecko

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/gecko/lib/bidi"
	"github.com/go-rod/gecko/lib/defaults"
	"github.com/go-rod/gecko/lib/extension"
	"github.com/go-rod/gecko/lib/launcher"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/go-rod/gecko/lib/webdriver"
)

// CloseTimeout bounds the session delete request of Browser.Close, it doesn't depend on the
// context of the Browser so that a timed out Browser can still be released.
var CloseTimeout = 10 * time.Second

// DefaultSleeper for the polling of Element and Wait
var DefaultSleeper = func() utils.Sleeper {
	return utils.BackoffSleeper(50*time.Millisecond, 500*time.Millisecond, nil)
}

// Browser represents a webdriver session of a Firefox.
// To check the env var you can use to quickly enable options from CLI, check here:
// https://pkg.go.dev/github.com/go-rod/gecko/lib/defaults
type Browser struct {
	// these are the handler for ctx
	ctx           context.Context
	ctxCancel     func()
	timeoutCancel func()

	slowmotion time.Duration // slowdown user inputs
	trace      bool          // log each action

	logger  utils.Logger
	sleeper func() utils.Sleeper

	client       *webdriver.Client
	launcher     *launcher.Launcher
	extension    string
	capabilities string

	*state
}

// New creates a controller
func New() *Browser {
	return &Browser{
		ctx:        context.Background(),
		ctxCancel:  func() {},
		trace:      defaults.Trace,
		slowmotion: defaults.Slow,
		logger:     utils.NewLogger(os.Stdout, "[gecko] "),
		sleeper:    DefaultSleeper,
		extension:  defaults.Ext,
		state:      newState(),
	}
}

// Client set the webdriver client, if not set a geckodriver will be launched
func (b *Browser) Client(c *webdriver.Client) *Browser {
	b.client = c
	return b
}

// Launcher set the launcher to launch geckodriver, if not set the default one will be used
func (b *Browser) Launcher(l *launcher.Launcher) *Browser {
	b.launcher = l
	return b
}

// Extension set the path of the add-on to install when connected, it can be an xpi file or an unpacked dir
func (b *Browser) Extension(path string) *Browser {
	b.extension = path
	return b
}

// Capabilities set the json of the capabilities to match, by default the launcher builds it
func (b *Browser) Capabilities(json string) *Browser {
	b.capabilities = json
	return b
}

// Slowmotion set the delay for each user input
func (b *Browser) Slowmotion(delay time.Duration) *Browser {
	b.slowmotion = delay
	return b
}

// Trace enables/disables the log of each action
func (b *Browser) Trace(enable bool) *Browser {
	b.trace = enable
	return b
}

// Logger to print the trace
func (b *Browser) Logger(l utils.Logger) *Browser {
	b.logger = l
	return b
}

// Sleeper for the polling of Element and Wait
func (b *Browser) Sleeper(sleeper func() utils.Sleeper) *Browser {
	b.sleeper = sleeper
	return b
}

// Connect creates the session and installs the add-on.
// If it fails after the session is created, Close should still be called to release it.
func (b *Browser) Connect() error {
	if b.client == nil {
		u := defaults.URL
		if u == "" {
			if b.launcher == nil {
				b.launcher = launcher.New()
			}
			b.state.launcher = b.launcher

			var err error
			u, err = b.launcher.Context(b.ctx).LaunchE()
			if err != nil {
				return err
			}
		}
		b.client = webdriver.New(u)
	}

	caps := b.capabilities
	if caps == "" {
		l := b.launcher
		if l == nil {
			l = launcher.New().Profile("")
		}
		caps = l.Capabilities()
	}

	session, err := b.client.NewSession(b.ctx, caps)
	if err != nil {
		return err
	}

	b.state.mu.Lock()
	b.state.session = session
	b.state.mu.Unlock()

	b.tracef("session %s", session.ID)

	if b.extension != "" {
		err = b.install(b.extension)
		if err != nil {
			return err
		}
	}

	if u := session.WebSocketURL(); u != "" {
		return b.connectBiDi(u)
	}

	return nil
}

// install the add-on as a temporary add-on, an unpacked dir will be packed first
func (b *Browser) install(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	m, err := extension.Load(path)
	if err != nil {
		return err
	}

	xpi := path
	if utils.DirExists(path) {
		xpi, err = extension.Pack(path, "")
		if err != nil {
			return err
		}
		defer func() { _ = os.Remove(xpi) }()
	}

	var id string
	err = b.call(func(ctx context.Context, s *webdriver.Session) (err error) {
		id, err = s.InstallAddon(ctx, xpi, true)
		return
	})
	if err != nil {
		return err
	}
	if id == "" {
		id = m.ID
	}

	b.state.mu.Lock()
	b.state.manifest = m
	b.state.addonID = id
	b.state.mu.Unlock()

	b.tracef("installed %s %s", id, m.Version)

	return nil
}

func (b *Browser) connectBiDi(u string) error {
	client := bidi.New(u)
	if err := client.Connect(b.ctx); err != nil {
		return err
	}

	done := make(chan utils.Nil)
	events := client.Subscribe(context.Background())
	go func() {
		defer close(done)
		for e := range events {
			if entry := bidi.ParseLogEntry(e); entry != nil {
				b.state.addLog(entry)
			}
		}
	}()

	b.state.mu.Lock()
	b.state.bidi = client
	b.state.bidiDone = done
	b.state.mu.Unlock()

	return client.SubscribeEvents(b.ctx, bidi.EventLogEntryAdded)
}

// Close the session and stop the launched geckodriver.
// Only the first call does the work, the rest return the same result.
func (b *Browser) Close() error {
	s := b.state

	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true

		if s.bidi != nil {
			_ = s.bidi.Close()
			<-s.bidiDone
		}

		if s.session != nil {
			ctx, cancel := context.WithTimeout(context.Background(), CloseTimeout)
			defer cancel()
			s.closeErr = s.session.Delete(ctx)
			b.tracef("closed %s", s.session.ID)
		}

		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
	})

	return s.closeErr
}

// Session returns the underlying webdriver session, nil if not connected
func (b *Browser) Session() *webdriver.Session {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	return b.state.session
}

// AddonID of the installed add-on
func (b *Browser) AddonID() string {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	return b.state.addonID
}

// Manifest of the installed add-on, nil if no add-on is installed
func (b *Browser) Manifest() *extension.Manifest {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	return b.state.manifest
}

// ButtonID of the toolbar button of the installed add-on
func (b *Browser) ButtonID() string {
	return extension.BrowserActionID(b.AddonID())
}

// Logs returns the console logs received so far, it's empty if bidi is not enabled
func (b *Browser) Logs() []*bidi.LogEntry {
	return b.state.getLogs()
}

// SetContext switches between webdriver.ContextChrome and webdriver.ContextContent
func (b *Browser) SetContext(name string) error {
	b.tracef("context %s", name)

	return b.call(func(ctx context.Context, s *webdriver.Session) error {
		err := s.SetContext(ctx, name)
		if err != nil {
			return err
		}
		b.state.context = name
		return nil
	})
}

// CurrentContext returns the context set by the last SetContext
func (b *Browser) CurrentContext() string {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	return b.state.context
}

// Windows returns the handles of all the windows and tabs
func (b *Browser) Windows() (Windows, error) {
	var list Windows
	err := b.call(func(ctx context.Context, s *webdriver.Session) error {
		handles, err := s.WindowHandles(ctx)
		for _, h := range handles {
			list = append(list, Window(h))
		}
		return err
	})
	return list, err
}

// Window returns the handle of the current window
func (b *Browser) Window() (Window, error) {
	var w Window
	err := b.call(func(ctx context.Context, s *webdriver.Session) error {
		h, err := s.WindowHandle(ctx)
		w = Window(h)
		return err
	})
	return w, err
}

// SwitchWindow makes the window the current one
func (b *Browser) SwitchWindow(w Window) error {
	b.tracef("switch to %s", w)

	return b.call(func(ctx context.Context, s *webdriver.Session) error {
		return s.SwitchToWindow(ctx, string(w))
	})
}

// URL of the current window
func (b *Browser) URL() (string, error) {
	var u string
	err := b.call(func(ctx context.Context, s *webdriver.Session) (err error) {
		u, err = s.CurrentURL(ctx)
		return
	})
	return u, err
}

// Navigate the current window to the url
func (b *Browser) Navigate(u string) error {
	b.trySlowmotion()
	b.tracef("navigate %s", u)

	return b.call(func(ctx context.Context, s *webdriver.Session) error {
		return s.Navigate(ctx, u)
	})
}

// Wait until fn returns true. If it doesn't happen within the timeout an *Error with
// the code ErrTimeout and the msg as the details will be returned. An error from fn stops the wait.
// fn receives a clone bounded by the timeout, calls on it won't outlive the wait.
func (b *Browser) Wait(timeout time.Duration, msg string, fn func(*Browser) (bool, error)) error {
	tb := b.Timeout(timeout)
	defer tb.CancelTimeout()

	err := utils.Retry(tb.ctx, b.sleeper(), func() (bool, error) {
		ok, err := fn(tb)
		if err != nil {
			return true, err
		}
		return ok, nil
	})

	if err != nil && tb.ctx.Err() != nil && b.ctx.Err() == nil {
		return &Error{Err: err, Code: ErrTimeout, Details: msg}
	}
	return err
}

// WaitNewWindow waits until there's exactly one more window than the before list, returns the new one
func (b *Browser) WaitNewWindow(before Windows, timeout time.Duration, msg string) (Window, error) {
	var list Windows
	err := b.Wait(timeout, msg, func(tb *Browser) (bool, error) {
		var err error
		list, err = tb.Windows()
		return len(list) == len(before)+1, err
	})
	if err != nil {
		return "", err
	}

	diff := list.Diff(before)
	if len(diff) != 1 {
		return "", &Error{Code: ErrNoNewWindow, Details: list}
	}
	return diff[0], nil
}

// WaitURL waits until the url of the current window equals u
func (b *Browser) WaitURL(u string, timeout time.Duration, msg string) error {
	return b.Wait(timeout, msg, func(tb *Browser) (bool, error) {
		cur, err := tb.URL()
		return cur == u, err
	})
}

// call the remote end, the calls are serialized
func (b *Browser) call(fn func(context.Context, *webdriver.Session) error) error {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()

	if b.state.closed || b.state.session == nil {
		return &Error{Code: ErrSessionClosed}
	}

	return wrap(fn(b.ctx, b.state.session), nil)
}

func (b *Browser) trySlowmotion() {
	if b.slowmotion == 0 {
		return
	}

	t := time.NewTimer(b.slowmotion)
	defer t.Stop()

	select {
	case <-b.ctx.Done():
	case <-t.C:
	}
}

func (b *Browser) tracef(format string, args ...interface{}) {
	if !b.trace {
		return
	}
	b.logger.Println(utils.C("trace", "cyan"), fmt.Sprintf(format, args...))
}
