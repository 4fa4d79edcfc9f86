// Package fakedriver is an in-process webdriver remote end that emulates geckodriver and a Firefox
// with one add-on that has a toolbar button. Clicking the button opens a new tab that loads a url.
// It's used to test the harness without a real browser.
package fakedriver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-rod/gecko/lib/extension"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/go-rod/gecko/lib/webdriver"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// Defaults of the emulated add-on
const (
	DefaultAddonID = "example-addon@mozilla.org"
	DefaultTooltip = "Visit Mozilla"
	DefaultURL     = "https://www.mozilla.org/en-US/"
)

// ChromeURL reported by the url command in the chrome context
const ChromeURL = "chrome://browser/content/browser.xhtml"

// Driver is the emulated remote end. Change the exported fields before serving.
type Driver struct {
	// AddonID returned by the add-on install command
	AddonID string

	// Tooltip of the toolbar button
	Tooltip string

	// URL the new tab loads after the button is clicked, empty means the click opens nothing
	URL string

	// TabDelay before the new tab shows up after the click
	TabDelay time.Duration

	// LoadDelay before the new tab finishes loading the URL
	LoadDelay time.Duration

	// RejectSession makes the new session command fail
	RejectSession bool

	// BiDi enables the webSocketUrl capability
	BiDi bool

	mu       sync.Mutex
	sessions map[string]*session
	created  int
	deleted  int
	calls    []string

	upgrader websocket.Upgrader
}

// New driver with the defaults of the example add-on
func New() *Driver {
	return &Driver{
		AddonID:   DefaultAddonID,
		Tooltip:   DefaultTooltip,
		URL:       DefaultURL,
		TabDelay:  100 * time.Millisecond,
		LoadDelay: 100 * time.Millisecond,
		BiDi:      true,
		sessions:  map[string]*session{},
	}
}

// Handler of the webdriver endpoints
func (d *Driver) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), d.record)

	r.GET("/status", d.status)
	r.POST("/session", d.newSession)
	r.DELETE("/session/:id", d.withSession(d.deleteSession))
	r.GET("/bidi/:id", d.withSession(d.bidi))

	r.POST("/session/:id/moz/context", d.withSession(d.setContext))
	r.POST("/session/:id/moz/addon/install", d.withSession(d.installAddon))
	r.POST("/session/:id/moz/addon/uninstall", d.withSession(d.uninstallAddon))

	r.POST("/session/:id/element", d.withSession(d.findElement))
	r.GET("/session/:id/element/:eid/attribute/:name", d.withSession(d.attribute))
	r.POST("/session/:id/element/:eid/click", d.withSession(d.click))

	r.GET("/session/:id/window", d.withSession(d.windowHandle))
	r.POST("/session/:id/window", d.withSession(d.switchWindow))
	r.GET("/session/:id/window/handles", d.withSession(d.windowHandles))

	r.GET("/session/:id/url", d.withSession(d.getURL))
	r.POST("/session/:id/url", d.withSession(d.navigate))

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, webdriver.ErrUnknownCommand.Code, c.Request.Method+" "+c.Request.URL.Path)
	})

	return r
}

// Serve on a random local port, returns the url of the remote end and the function to stop it.
func (d *Driver) Serve() (string, func()) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	utils.E(err)

	srv := &http.Server{Handler: d.Handler()}

	go func() { _ = srv.Serve(l) }()

	return "http://" + l.Addr().String(), func() {
		d.mu.Lock()
		for _, s := range d.sessions {
			s.closeWS()
		}
		d.mu.Unlock()

		utils.E(srv.Close())
	}
}

// Created is the count of the created sessions
func (d *Driver) Created() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// Deleted is the count of the deleted sessions
func (d *Driver) Deleted() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deleted
}

// Live is the count of the sessions that are not deleted yet
func (d *Driver) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// Calls returns the list of received commands, such as "POST /session/:id/element"
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.calls...)
}

func (d *Driver) record(c *gin.Context) {
	d.mu.Lock()
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	d.calls = append(d.calls, c.Request.Method+" "+path)
	d.mu.Unlock()

	c.Next()
}

func (d *Driver) withSession(h func(*gin.Context, *session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		d.mu.Lock()
		s, has := d.sessions[c.Param("id")]
		if has {
			s.tick(d)
		}
		d.mu.Unlock()

		if !has {
			fail(c, http.StatusNotFound, webdriver.ErrInvalidSession.Code, "Tried to run command without establishing a connection")
			return
		}

		h(c, s)
	}
}

func (d *Driver) status(c *gin.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	msg := ""
	if len(d.sessions) > 0 {
		msg = "Session already started"
	}

	ok(c, gin.H{"ready": len(d.sessions) == 0, "message": msg})
}

func (d *Driver) newSession(c *gin.Context) {
	body := readBody(c)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.RejectSession || len(d.sessions) > 0 {
		fail(c, http.StatusInternalServerError, webdriver.ErrSessionNotCreated.Code, "Session is already started")
		return
	}

	caps := body.Get("capabilities.alwaysMatch")

	s := newSession()
	d.sessions[s.id] = s
	d.created++

	headless := false
	for _, arg := range caps.Get("moz:firefoxOptions.args").Array() {
		if arg.String() == "-headless" || arg.String() == "--headless" {
			headless = true
		}
	}

	res := gin.H{
		"browserName":    "firefox",
		"browserVersion": "fake",
		"moz:headless":   headless,
	}
	if d.BiDi && caps.Get("webSocketUrl").Bool() {
		res["webSocketUrl"] = "ws://" + c.Request.Host + "/bidi/" + s.id
	}

	ok(c, gin.H{"sessionId": s.id, "capabilities": res})
}

func (d *Driver) deleteSession(c *gin.Context, s *session) {
	d.mu.Lock()
	delete(d.sessions, s.id)
	d.deleted++
	d.mu.Unlock()

	s.closeWS()

	ok(c, nil)
}

func (d *Driver) setContext(c *gin.Context, s *session) {
	name := readBody(c).Get("context").String()
	if name != webdriver.ContextChrome && name != webdriver.ContextContent {
		fail(c, http.StatusBadRequest, webdriver.ErrInvalidArgument.Code, "Unknown context: "+name)
		return
	}

	d.mu.Lock()
	s.context = name
	d.mu.Unlock()

	ok(c, nil)
}

func (d *Driver) installAddon(c *gin.Context, s *session) {
	path := readBody(c).Get("path").String()
	if !utils.FileExists(path) && !utils.DirExists(path) {
		fail(c, http.StatusBadRequest, webdriver.ErrInvalidArgument.Code, "Could not find add-on at '"+path+"'")
		return
	}

	d.mu.Lock()
	s.addons[d.AddonID] = true
	d.mu.Unlock()

	ok(c, d.AddonID)
}

func (d *Driver) uninstallAddon(c *gin.Context, s *session) {
	id := readBody(c).Get("id").String()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !s.addons[id] {
		fail(c, http.StatusInternalServerError, webdriver.ErrUnknown.Code, "Failed to uninstall add-on: "+id)
		return
	}
	delete(s.addons, id)

	ok(c, nil)
}

func (d *Driver) findElement(c *gin.Context, s *session) {
	body := readBody(c)
	using, value := body.Get("using").String(), body.Get("value").String()

	d.mu.Lock()
	defer d.mu.Unlock()

	kind := ""
	switch s.context {
	case webdriver.ContextChrome:
		id := extension.BrowserActionID(d.AddonID)
		if s.addons[d.AddonID] && using == webdriver.ByCSS && (value == "#"+id || value == `[id="`+id+`"]`) {
			kind = kindButton
		}
	case webdriver.ContextContent:
		if using == webdriver.ByCSS && (value == "html" || value == "body") {
			kind = value
		}
	}

	if kind == "" {
		fail(c, http.StatusNotFound, webdriver.ErrNoSuchElement.Code, "Unable to locate element: "+value)
		return
	}

	el := &element{id: uuid.New().String(), kind: kind, context: s.context}
	s.elements[el.id] = el

	ok(c, gin.H{webdriver.ElementKey: el.id})
}

func (d *Driver) attribute(c *gin.Context, s *session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := s.element(c)
	if el == nil {
		return
	}

	if el.kind != kindButton {
		ok(c, nil)
		return
	}

	switch c.Param("name") {
	case "tooltiptext", "label":
		ok(c, d.Tooltip)
	case "id":
		ok(c, extension.BrowserActionID(d.AddonID))
	default:
		ok(c, nil)
	}
}

func (d *Driver) click(c *gin.Context, s *session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := s.element(c)
	if el == nil {
		return
	}

	if el.kind == kindButton && d.URL != "" {
		s.pending = append(s.pending, time.Now().Add(d.TabDelay))
	}

	ok(c, nil)
}

func (d *Driver) windowHandle(c *gin.Context, s *session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ok(c, s.current)
}

func (d *Driver) switchWindow(c *gin.Context, s *session) {
	handle := readBody(c).Get("handle").String()

	d.mu.Lock()
	defer d.mu.Unlock()

	if s.window(handle) == nil {
		fail(c, http.StatusNotFound, webdriver.ErrNoSuchWindow.Code, "Unable to locate window: "+handle)
		return
	}
	s.current = handle

	ok(c, nil)
}

func (d *Driver) windowHandles(c *gin.Context, s *session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []string{}
	for _, w := range s.windows {
		list = append(list, w.handle)
	}
	ok(c, list)
}

func (d *Driver) getURL(c *gin.Context, s *session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.context == webdriver.ContextChrome {
		ok(c, ChromeURL)
		return
	}
	ok(c, s.window(s.current).url)
}

func (d *Driver) navigate(c *gin.Context, s *session) {
	u := readBody(c).Get("url").String()

	d.mu.Lock()
	defer d.mu.Unlock()

	w := s.window(s.current)
	w.url = u
	w.target = ""

	ok(c, nil)
}

func ok(c *gin.Context, value interface{}) {
	c.JSON(http.StatusOK, gin.H{"value": value})
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"value": gin.H{
		"error":      code,
		"message":    msg,
		"stacktrace": "",
	}})
}

func readBody(c *gin.Context) gjson.Result {
	body, _ := c.GetRawData()
	return gjson.ParseBytes(body)
}
