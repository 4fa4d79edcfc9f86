package gecko_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/gecko"
	"github.com/go-rod/gecko/lib/fakedriver"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/go-rod/gecko/lib/webdriver"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *S) TestAddon() {
	s.Equal(fakedriver.DefaultAddonID, s.browser.AddonID())
	s.Equal("example-addon_mozilla_org-browser-action", s.browser.ButtonID())
	s.Equal("Example Add-on", s.browser.Manifest().Name)
	s.NotNil(s.browser.Session())
}

func (s *S) TestButtonTooltip() {
	b := s.browser
	b.MustSetContext(webdriver.ContextChrome)
	s.Equal(webdriver.ContextChrome, b.CurrentContext())

	el, err := b.WaitElement(gecko.SelectorByID(b.ButtonID()), time.Second)
	s.Require().NoError(err)
	s.Equal(webdriver.ContextChrome, el.FirefoxContext)
	s.NotNil(el.Browser())

	s.Equal(fakedriver.DefaultTooltip, el.MustAttribute("tooltiptext"))

	attr, err := el.Attribute("nothing")
	s.NoError(err)
	s.Nil(attr)
	s.Equal("", el.MustAttribute("nothing"))

	// the same outcome when checked again
	s.Equal(fakedriver.DefaultTooltip, b.MustElementByID(b.ButtonID()).MustAttribute("tooltiptext"))
}

func (s *S) TestClickOpensTab() {
	b := s.browser
	b.MustSetContext(webdriver.ContextChrome)

	before := b.MustWindows()
	current := b.MustWindow()

	b.MustElementByID(b.ButtonID()).MustClick()

	w, err := b.WaitNewWindow(before, 9*time.Second, "Should have opened a new tab.")
	s.Require().NoError(err)
	s.False(before.Has(w))

	b.MustSetContext(webdriver.ContextContent)
	b.MustSwitchWindow(w)

	s.NoError(b.WaitURL(fakedriver.DefaultURL, 5*time.Second, "Should have loaded mozilla.org"))
	s.Equal(fakedriver.DefaultURL, b.MustURL())

	s.NoError(b.Wait(time.Second, "no log", func(tb *gecko.Browser) (bool, error) {
		for _, e := range tb.Logs() {
			if strings.Contains(e.Text, fakedriver.DefaultURL) {
				return true, nil
			}
		}
		return false, nil
	}))

	b.MustSwitchWindow(current)
}

func (s *S) TestContextMismatch() {
	b := s.browser
	b.MustSetContext(webdriver.ContextChrome)
	el := b.MustElementByID(b.ButtonID())

	b.MustSetContext(webdriver.ContextContent)

	_, err := el.Attribute("tooltiptext")
	s.True(gecko.IsError(err, gecko.ErrContextMismatch))

	err = el.Click()
	s.True(gecko.IsError(err, gecko.ErrContextMismatch))

	s.True(b.MustHas("body"))
	s.False(b.MustHas("#" + b.ButtonID()))
}

func (s *S) TestElementTimeout() {
	b := s.browser
	b.MustSetContext(webdriver.ContextContent)

	start := time.Now()
	_, err := b.WaitElement("#nothing", 200*time.Millisecond)
	s.True(gecko.IsError(err, gecko.ErrElementNotFound))
	s.True(errors.Is(err, context.DeadlineExceeded))
	s.Less(int64(time.Since(start)), int64(2*time.Second))

	s.Panics(func() {
		b.Timeout(100 * time.Millisecond).MustElement("#nothing")
	})
}

func (s *S) TestWait() {
	b := s.browser

	err := b.Wait(100*time.Millisecond, "never", func(*gecko.Browser) (bool, error) { return false, nil })
	s.True(gecko.IsError(err, gecko.ErrTimeout))
	s.EqualError(err, "[gecko] wait timeout: never")

	errStop := errors.New("stop")
	err = b.Wait(time.Second, "", func(*gecko.Browser) (bool, error) { return false, errStop })
	s.Equal(errStop, err)

	count := 0
	b.MustWait(time.Second, "", func(*gecko.Browser) bool {
		count++
		return count == 3
	})
	s.Equal(3, count)

	s.Panics(func() {
		b.MustWaitNewWindow(b.MustWindows(), 100*time.Millisecond)
	})
}

func (s *S) TestNavigate() {
	b := s.browser.Slowmotion(time.Millisecond)
	defer s.browser.Slowmotion(0)

	b.MustSetContext(webdriver.ContextContent)
	w := b.MustWindow()

	b.MustNavigate("about:robots")
	s.Equal("about:robots", b.MustURL())

	b.MustSwitchWindow(w)

	s.Error(b.SwitchWindow("nothing"))
	s.True(errors.Is(b.SwitchWindow("nothing"), webdriver.ErrNoSuchWindow))
}

func (s *S) TestContextClone() {
	ctx, cancel := context.WithCancel(context.Background())
	b := s.browser.Context(ctx)
	s.NotEqual(s.browser.GetContext(), b.GetContext())

	cancel()
	_, err := b.Windows()
	s.True(errors.Is(err, context.Canceled))

	// the original one is not affected
	_, err = s.browser.Windows()
	s.NoError(err)
}

func TestWindows(t *testing.T) {
	a := gecko.Windows{"1", "2", "3"}
	b := gecko.Windows{"2"}

	assert.True(t, a.Has("1"))
	assert.False(t, b.Has("1"))
	assert.Equal(t, gecko.Windows{"1", "3"}, a.Diff(b))
	assert.True(t, b.Diff(a).Empty())
}

func TestSelectorByID(t *testing.T) {
	assert.Equal(t, `[id="a_b-browser-action"]`, gecko.SelectorByID("a_b-browser-action"))
	assert.Equal(t, `[id="{x\"y\\z}"]`, gecko.SelectorByID(`{x"y\z}`))
}

func TestCloseOnce(t *testing.T) {
	d, client := newDriver(t)

	b := gecko.New().Client(client).Extension(slash("fixtures/example-addon")).MustConnect()
	clone := b.Timeout(time.Minute)
	defer clone.CancelTimeout()

	assert.NoError(t, b.Close())
	assert.NoError(t, clone.Close())
	b.MustClose()

	assert.Equal(t, 1, d.Created())
	assert.Equal(t, 1, d.Deleted())
	assert.Equal(t, 0, d.Live())

	_, err := clone.Windows()
	assert.True(t, gecko.IsError(err, gecko.ErrSessionClosed))
	assert.True(t, errors.Is(err, &gecko.Error{Code: gecko.ErrSessionClosed}))
}

func TestCloseAfterFailedInstall(t *testing.T) {
	d, client := newDriver(t)

	b := gecko.New().Client(client).Extension(slash("fixtures/nothing"))
	assert.Error(t, b.Connect())
	assert.Equal(t, 1, d.Live())

	assert.NoError(t, b.Close())
	assert.Equal(t, 1, d.Deleted())
	assert.Equal(t, 0, d.Live())
}

func TestCloseAfterRejectedSession(t *testing.T) {
	d, client := newDriver(t)
	d.RejectSession = true

	b := gecko.New().Client(client)
	err := b.Connect()
	assert.True(t, errors.Is(err, webdriver.ErrSessionNotCreated))

	assert.NoError(t, b.Close())
	assert.Equal(t, 0, d.Created())
	assert.Equal(t, 0, d.Deleted())

	assert.Panics(t, func() {
		gecko.New().Client(client).MustConnect()
	})
}

func TestCloseWithoutConnect(t *testing.T) {
	assert.NoError(t, gecko.New().Close())
}

func TestWaitStalledDriver(t *testing.T) {
	d := fakedriver.New()
	d.BiDi = false

	h, release := stall(`/window/handles$`, 0, d.Handler())

	httphelpers.WithServer(h, func(server *httptest.Server) {
		defer release()

		b := gecko.New().Client(webdriver.New(server.URL)).MustConnect()
		defer b.MustClose()

		start := time.Now()
		_, err := b.WaitNewWindow(gecko.Windows{"a"}, 300*time.Millisecond, "Should have opened a new tab.")

		assert.True(t, gecko.IsError(err, gecko.ErrTimeout))
		assert.EqualError(t, err, "[gecko] wait timeout: Should have opened a new tab.")
		assert.Less(t, int64(time.Since(start)), int64(2*time.Second))

		// the browser itself is still usable after the wait gave up
		_, err = b.Window()
		assert.NoError(t, err)
	})

	assert.Equal(t, 0, d.Live())
}

func TestTrace(t *testing.T) {
	_, client := newDriver(t)

	logs := []string{}
	b := gecko.New().
		Client(client).
		Trace(true).
		Sleeper(func() utils.Sleeper { return utils.CountSleeper(2) }).
		Logger(utils.Log(func(msg ...interface{}) {
			logs = append(logs, fmt.Sprintln(msg...))
		})).
		MustConnect()
	defer b.MustClose()

	b.MustSetContext(webdriver.ContextContent)

	_, err := b.Element("#nothing")
	require.True(t, gecko.IsError(err, gecko.ErrElementNotFound))
	assert.True(t, errors.Is(err, &utils.ErrMaxSleepCount{}))

	assert.Len(t, logs, 2)
	assert.Contains(t, logs[1], "context content")
}

func TestErrors(t *testing.T) {
	err := &gecko.Error{Code: gecko.ErrTimeout, Err: &gecko.Error{Code: gecko.ErrElementNotFound}}

	assert.True(t, gecko.IsError(err, gecko.ErrTimeout))
	assert.True(t, gecko.IsError(err, gecko.ErrElementNotFound))
	assert.False(t, gecko.IsError(err, gecko.ErrNoNewWindow))
	assert.False(t, gecko.IsError(nil, gecko.ErrTimeout))
	assert.False(t, gecko.IsError(errors.New("x"), gecko.ErrTimeout))
	assert.Equal(t, "[gecko] wait timeout", (&gecko.Error{Code: gecko.ErrTimeout}).Error())
}
