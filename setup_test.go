package gecko_test

import (
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-rod/gecko"
	"github.com/go-rod/gecko/lib/fakedriver"
	"github.com/go-rod/gecko/lib/launcher"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/go-rod/gecko/lib/webdriver"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

var slash = filepath.FromSlash

// S test suite
type S struct {
	suite.Suite
	driver  *fakedriver.Driver
	browser *gecko.Browser
}

func TestMain(m *testing.M) {
	// to prevent false positive of goleak
	http.DefaultClient = &http.Client{
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}

	goleak.VerifyTestMain(
		m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("github.com/ramr/go-reaper.sigChildHandler"),
		goleak.IgnoreTopFunction("github.com/ramr/go-reaper.reapChildren"),
	)
}

func Test(t *testing.T) {
	s := new(S)

	s.driver = fakedriver.New()
	s.driver.TabDelay = 50 * time.Millisecond
	s.driver.LoadDelay = 50 * time.Millisecond

	u, stop := s.driver.Serve()
	defer stop()

	s.browser = gecko.New().
		Client(webdriver.New(u)).
		Capabilities(launcher.New().Profile("").BiDi(true).Capabilities()).
		Extension(slash("fixtures/example-addon")).
		Logger(utils.LoggerQuiet).
		MustConnect()

	defer s.browser.MustClose()

	suite.Run(t, s)
}

// newDriver starts another fake remote end for the tests that need a fresh session
func newDriver(t *testing.T) (*fakedriver.Driver, *webdriver.Client) {
	d := fakedriver.New()
	d.TabDelay = 0
	d.LoadDelay = 0

	u, stop := d.Serve()
	t.Cleanup(stop)

	return d, webdriver.New(u)
}

// stall lets the first skip requests matching the pattern through, the rest hang until
// the client gives up or the returned release is called
func stall(pattern string, skip int, h http.Handler) (http.Handler, func()) {
	release := make(chan utils.Nil)
	var count int32

	blocked := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&count, 1) <= int32(skip) {
			h.ServeHTTP(w, r)
			return
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})

	return httphelpers.HandlerForPathRegex(pattern, blocked, h), func() { close(release) }
}
