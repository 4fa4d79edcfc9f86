package webdriver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/gecko/lib/extension"
	"github.com/go-rod/gecko/lib/fakedriver"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/go-rod/gecko/lib/webdriver"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
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
	)
}

var fixture = filepath.FromSlash("../../fixtures/example-addon")

func newClient(u string) *webdriver.Client {
	return webdriver.New(u).HTTPClient(&http.Client{
		Transport: &http.Transport{DisableKeepAlives: true},
	})
}

func TestSessionCommands(t *testing.T) {
	d := fakedriver.New()
	d.TabDelay = 0
	d.LoadDelay = 0
	u, stop := d.Serve()
	defer stop()

	ctx := context.Background()
	client := newClient(u)

	ready, _, err := client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, ready)

	s, err := client.NewSession(ctx, `{"moz:firefoxOptions":{"args":["-headless"]},"webSocketUrl":true}`)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.True(t, s.Capabilities.Get("moz:headless").Bool())
	assert.True(t, strings.HasPrefix(s.WebSocketURL(), "ws://"))
	assert.Equal(t, client, s.Client())

	ready, msg, err := client.Status(ctx)
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, "Session already started", msg)

	id, err := s.InstallAddon(ctx, fixture, true)
	require.NoError(t, err)
	assert.Equal(t, fakedriver.DefaultAddonID, id)

	require.NoError(t, s.SetContext(ctx, webdriver.ContextChrome))
	assert.Error(t, s.SetContext(ctx, "nothing"))

	sel := "#" + extension.BrowserActionID(id)
	eid, err := s.FindElement(ctx, webdriver.ByCSS, sel)
	require.NoError(t, err)
	assert.NotEmpty(t, eid)

	tip, has, err := s.ElementAttribute(ctx, eid, "tooltiptext")
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, fakedriver.DefaultTooltip, tip)

	_, has, err = s.ElementAttribute(ctx, eid, "no-such-attr")
	require.NoError(t, err)
	assert.False(t, has)

	first, err := s.WindowHandle(ctx)
	require.NoError(t, err)

	require.NoError(t, s.ElementClick(ctx, eid))

	handles, err := s.WindowHandles(ctx)
	require.NoError(t, err)
	require.Len(t, handles, 2)
	assert.Equal(t, first, handles[0])

	cu, err := s.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, fakedriver.ChromeURL, cu)

	require.NoError(t, s.SetContext(ctx, webdriver.ContextContent))
	require.NoError(t, s.SwitchToWindow(ctx, handles[1]))

	cu, err = s.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, fakedriver.DefaultURL, cu)

	require.NoError(t, s.Navigate(ctx, "about:robots"))
	cu, _ = s.CurrentURL(ctx)
	assert.Equal(t, "about:robots", cu)

	require.NoError(t, s.UninstallAddon(ctx, id))
	require.NoError(t, s.Delete(ctx))

	assert.Equal(t, 1, d.Created())
	assert.Equal(t, 1, d.Deleted())
	assert.Equal(t, 0, d.Live())
}

func TestCommandErrors(t *testing.T) {
	d := fakedriver.New()
	u, stop := d.Serve()
	defer stop()

	ctx := context.Background()
	client := newClient(u)

	s, err := client.NewSession(ctx, "")
	require.NoError(t, err)
	defer func() { _ = s.Delete(ctx) }()

	_, err = client.NewSession(ctx, "")
	assert.True(t, errors.Is(err, webdriver.ErrSessionNotCreated))

	_, err = s.FindElement(ctx, webdriver.ByCSS, "#nothing")
	assert.True(t, errors.Is(err, webdriver.ErrNoSuchElement))

	werr := &webdriver.Error{}
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, http.StatusNotFound, werr.Status)
	assert.Equal(t, "[webdriver] no such element: Unable to locate element: #nothing", werr.Error())

	err = s.SetContext(ctx, "nothing")
	assert.True(t, errors.Is(err, webdriver.ErrInvalidArgument))

	err = s.SwitchToWindow(ctx, "nothing")
	assert.True(t, errors.Is(err, webdriver.ErrNoSuchWindow))

	_, err = s.InstallAddon(ctx, filepath.Join(t.TempDir(), "nothing.xpi"), true)
	assert.True(t, errors.Is(err, webdriver.ErrInvalidArgument))

	err = s.ElementClick(ctx, "nothing")
	assert.True(t, errors.Is(err, webdriver.ErrNoSuchElement))

	_, err = client.Session("nothing").WindowHandles(ctx)
	assert.True(t, errors.Is(err, webdriver.ErrInvalidSession))

	_, err = s.Call(ctx, http.MethodGet, "/nothing", "")
	assert.True(t, errors.Is(err, webdriver.ErrUnknownCommand))
}

func TestStaleElement(t *testing.T) {
	d := fakedriver.New()
	u, stop := d.Serve()
	defer stop()

	ctx := context.Background()
	s, err := newClient(u).NewSession(ctx, "")
	require.NoError(t, err)
	defer func() { _ = s.Delete(ctx) }()

	_, err = s.InstallAddon(ctx, fixture, true)
	require.NoError(t, err)
	require.NoError(t, s.SetContext(ctx, webdriver.ContextChrome))

	eid, err := s.FindElement(ctx, webdriver.ByCSS, `[id="`+extension.BrowserActionID(d.AddonID)+`"]`)
	require.NoError(t, err)

	require.NoError(t, s.SetContext(ctx, webdriver.ContextContent))

	_, _, err = s.ElementAttribute(ctx, eid, "tooltiptext")
	assert.True(t, errors.Is(err, webdriver.ErrStaleElement))
}

func TestErrorResponse(t *testing.T) {
	body := []byte(`{"value":{"error":"timeout","message":"took too long","stacktrace":"a\nb"}}`)
	handler := httphelpers.HandlerWithResponse(http.StatusInternalServerError, http.Header{"Content-Type": {"application/json"}}, body)

	httphelpers.WithServer(handler, func(server *httptest.Server) {
		_, err := newClient(server.URL).Call(context.Background(), http.MethodGet, "/status", "")

		werr := &webdriver.Error{}
		require.True(t, errors.As(err, &werr))
		assert.True(t, errors.Is(err, webdriver.ErrTimeout))
		assert.Equal(t, "took too long", werr.Message)
		assert.Equal(t, "a\nb", werr.Stacktrace)
	})
}

func TestNonJSONErrorResponse(t *testing.T) {
	handler := httphelpers.HandlerWithResponse(http.StatusBadGateway, nil, []byte("<html>bad gateway</html>"))

	httphelpers.WithServer(handler, func(server *httptest.Server) {
		_, err := newClient(server.URL).Call(context.Background(), http.MethodGet, "/status", "")

		werr := &webdriver.Error{}
		require.True(t, errors.As(err, &werr))
		assert.True(t, errors.Is(err, webdriver.ErrUnknown))
		assert.Equal(t, http.StatusBadGateway, werr.Status)
	})
}

func TestRequestFormat(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(
		httphelpers.HandlerWithResponse(http.StatusOK, nil, []byte(`{"value":null}`)),
	)

	httphelpers.WithServer(handler, func(server *httptest.Server) {
		var logs []string
		client := newClient(server.URL+"/").
			Header(http.Header{"X-Test": {"ok"}}).
			Logger(utils.Log(func(msg ...interface{}) {
				logs = append(logs, msg[0].(interface{ String() string }).String())
			}))

		assert.Equal(t, server.URL, client.URL())

		require.NoError(t, client.Session("abc").SetContext(context.Background(), webdriver.ContextChrome))

		r := <-requests
		assert.Equal(t, http.MethodPost, r.Request.Method)
		assert.Equal(t, "/session/abc/moz/context", r.Request.URL.Path)
		assert.Equal(t, "ok", r.Request.Header.Get("X-Test"))
		assert.Contains(t, r.Request.Header.Get("Content-Type"), "application/json")
		assert.Equal(t, "chrome", gjson.ParseBytes(r.Body).Get("context").String())

		require.NoError(t, client.Session("abc").ElementClick(context.Background(), "el"))
		r = <-requests
		assert.Equal(t, "{}", string(r.Body))

		require.Len(t, logs, 4)
		assert.Equal(t, `=> #1 POST /session/abc/moz/context {"context":"chrome"}`, logs[0])
		assert.Equal(t, `<= #1 200 null`, logs[1])
	})
}

func TestCallCanceled(t *testing.T) {
	d := fakedriver.New()
	u, stop := d.Serve()
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, _, err := newClient(u).Status(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
