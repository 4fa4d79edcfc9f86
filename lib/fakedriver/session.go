package fakedriver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-rod/gecko/lib/bidi"
	"github.com/go-rod/gecko/lib/webdriver"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const kindButton = "button"

type session struct {
	id       string
	context  string
	addons   map[string]bool
	windows  []*window
	current  string
	elements map[string]*element

	// the time each new tab will show up
	pending []time.Time

	wsMu       sync.Mutex
	ws         *websocket.Conn
	subscribed map[string]bool
}

type window struct {
	handle string
	url    string

	// the url to load at loadAt
	target string
	loadAt time.Time
}

type element struct {
	id      string
	kind    string
	context string
}

func newSession() *session {
	first := &window{handle: uuid.New().String(), url: "about:blank"}

	return &session{
		id:         uuid.New().String(),
		context:    webdriver.ContextContent,
		addons:     map[string]bool{},
		windows:    []*window{first},
		current:    first.handle,
		elements:   map[string]*element{},
		subscribed: map[string]bool{},
	}
}

// tick moves the emulated browser forward to now, the caller must hold the driver lock
func (s *session) tick(d *Driver) {
	now := time.Now()

	rest := []time.Time{}
	for _, at := range s.pending {
		if now.Before(at) {
			rest = append(rest, at)
			continue
		}

		w := &window{
			handle: uuid.New().String(),
			url:    "about:blank",
			target: d.URL,
			loadAt: at.Add(d.LoadDelay),
		}
		s.windows = append(s.windows, w)
		s.emit(bidi.EventContextCreated, gin.H{"context": w.handle, "url": w.url, "children": nil, "parent": nil})
	}
	s.pending = rest

	for _, w := range s.windows {
		if w.target == "" || now.Before(w.loadAt) {
			continue
		}

		w.url = w.target
		w.target = ""
		s.emit(bidi.EventBrowsingContextLoad, gin.H{"context": w.handle, "url": w.url, "navigation": nil})
		s.emit(bidi.EventLogEntryAdded, gin.H{
			"type":      "console",
			"method":    "log",
			"level":     "info",
			"text":      "loaded " + w.url,
			"timestamp": now.UnixNano() / int64(time.Millisecond),
			"source":    gin.H{"context": w.handle, "realm": ""},
		})
	}
}

func (s *session) window(handle string) *window {
	for _, w := range s.windows {
		if w.handle == handle {
			return w
		}
	}
	return nil
}

// element from the request params, it writes the error response if not found
func (s *session) element(c *gin.Context) *element {
	el, has := s.elements[c.Param("eid")]
	if !has {
		fail(c, http.StatusNotFound, webdriver.ErrNoSuchElement.Code, "Web element reference not seen before: "+c.Param("eid"))
		return nil
	}
	if el.context != s.context {
		fail(c, http.StatusNotFound, webdriver.ErrStaleElement.Code, "The element reference of "+el.id+" is stale")
		return nil
	}
	return el
}

func (s *session) emit(method string, params interface{}) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	if s.ws == nil || !s.subscribed[method] {
		return
	}

	_ = s.ws.WriteJSON(gin.H{"type": "event", "method": method, "params": params})
}

func (s *session) send(msg interface{}) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	if s.ws != nil {
		_ = s.ws.WriteJSON(msg)
	}
}

func (s *session) closeWS() {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	if s.ws != nil {
		_ = s.ws.Close()
		s.ws = nil
	}
}

func (d *Driver) bidi(c *gin.Context, s *session) {
	conn, err := d.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	s.wsMu.Lock()
	s.ws = conn
	s.wsMu.Unlock()

	defer s.closeWS()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg := gjson.ParseBytes(data)
		id := msg.Get("id").Int()

		switch msg.Get("method").String() {
		case "session.subscribe":
			s.wsMu.Lock()
			for _, e := range msg.Get("params.events").Array() {
				s.subscribed[e.String()] = true
			}
			s.wsMu.Unlock()

			s.send(gin.H{"type": "success", "id": id, "result": gin.H{}})

		case "session.status":
			s.send(gin.H{"type": "success", "id": id, "result": gin.H{"ready": false, "message": "Session already started"}})

		default:
			s.send(gin.H{
				"type":    "error",
				"id":      id,
				"error":   "unknown command",
				"message": msg.Get("method").String(),
			})
		}
	}
}
