package webdriver

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ElementKey is the web element identifier key in the json of an element reference
const ElementKey = "element-6066-11e4-a52e-4f735466cecf"

// ByCSS is the css selector locator strategy
const ByCSS = "css selector"

// Firefox contexts for the moz/context command
const (
	ContextChrome  = "chrome"
	ContextContent = "content"
)

// Session is a webdriver session on the remote end
type Session struct {
	ID string

	// Capabilities the remote end matched
	Capabilities gjson.Result

	client *Client
}

// NewSession creates a session, alwaysMatch is the json of the capabilities to match.
func (c *Client) NewSession(ctx context.Context, alwaysMatch string) (*Session, error) {
	if alwaysMatch == "" {
		alwaysMatch = "{}"
	}

	payload, err := sjson.SetRaw("", "capabilities.alwaysMatch", alwaysMatch)
	if err != nil {
		return nil, err
	}

	val, err := c.Call(ctx, http.MethodPost, "/session", payload)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:           val.Get("sessionId").String(),
		Capabilities: val.Get("capabilities"),
		client:       c,
	}, nil
}

// Session with the existing id
func (c *Client) Session(id string) *Session {
	return &Session{ID: id, client: c}
}

// Client of the session
func (s *Session) Client() *Client {
	return s.client
}

// Call a command of the session, the path is relative to the session, such as "/url"
func (s *Session) Call(ctx context.Context, method, path, payload string) (gjson.Result, error) {
	return s.client.Call(ctx, method, "/session/"+s.ID+path, payload)
}

// WebSocketURL of the bidi connection, empty if the session is created without "webSocketUrl: true"
func (s *Session) WebSocketURL() string {
	return s.Capabilities.Get("webSocketUrl").String()
}

// Delete the session, the remote end will close the browser
func (s *Session) Delete(ctx context.Context) error {
	_, err := s.Call(ctx, http.MethodDelete, "", "")
	return err
}

// SetContext switches between the "chrome" and "content" context of Firefox
func (s *Session) SetContext(ctx context.Context, name string) error {
	_, err := s.Call(ctx, http.MethodPost, "/moz/context", set("", "context", name))
	return err
}

// FindElement returns the element id of the first match
func (s *Session) FindElement(ctx context.Context, using, value string) (string, error) {
	payload := set(set("", "using", using), "value", value)

	val, err := s.Call(ctx, http.MethodPost, "/element", payload)
	if err != nil {
		return "", err
	}

	return val.Get(ElementKey).String(), nil
}

// ElementAttribute returns the attribute value, has will be false if the attribute doesn't exist
func (s *Session) ElementAttribute(ctx context.Context, id, name string) (value string, has bool, err error) {
	val, err := s.Call(ctx, http.MethodGet, "/element/"+id+"/attribute/"+url.PathEscape(name), "")
	if err != nil {
		return "", false, err
	}
	if val.Type == gjson.Null {
		return "", false, nil
	}
	return val.String(), true, nil
}

// ElementClick clicks the center of the element
func (s *Session) ElementClick(ctx context.Context, id string) error {
	_, err := s.Call(ctx, http.MethodPost, "/element/"+id+"/click", "")
	return err
}

// WindowHandles of all the top-level browsing contexts
func (s *Session) WindowHandles(ctx context.Context) ([]string, error) {
	val, err := s.Call(ctx, http.MethodGet, "/window/handles", "")
	if err != nil {
		return nil, err
	}

	list := []string{}
	for _, h := range val.Array() {
		list = append(list, h.String())
	}
	return list, nil
}

// WindowHandle of the current top-level browsing context
func (s *Session) WindowHandle(ctx context.Context) (string, error) {
	val, err := s.Call(ctx, http.MethodGet, "/window", "")
	return val.String(), err
}

// SwitchToWindow makes the handle the current top-level browsing context
func (s *Session) SwitchToWindow(ctx context.Context, handle string) error {
	_, err := s.Call(ctx, http.MethodPost, "/window", set("", "handle", handle))
	return err
}

// CurrentURL of the current top-level browsing context
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	val, err := s.Call(ctx, http.MethodGet, "/url", "")
	return val.String(), err
}

// Navigate the current top-level browsing context to the url
func (s *Session) Navigate(ctx context.Context, u string) error {
	_, err := s.Call(ctx, http.MethodPost, "/url", set("", "url", u))
	return err
}

// InstallAddon from the path of an xpi file or an unpacked add-on directory, returns the add-on id.
// A temporary add-on is removed when the browser closes and doesn't need to be signed.
func (s *Session) InstallAddon(ctx context.Context, path string, temporary bool) (string, error) {
	payload := set("", "path", path)
	payload, err := sjson.Set(payload, "temporary", temporary)
	if err != nil {
		return "", err
	}

	val, err := s.Call(ctx, http.MethodPost, "/moz/addon/install", payload)
	return val.String(), err
}

// UninstallAddon by the add-on id
func (s *Session) UninstallAddon(ctx context.Context, id string) error {
	_, err := s.Call(ctx, http.MethodPost, "/moz/addon/uninstall", set("", "id", id))
	return err
}

// set a string field, the path is never user input so the error can be ignored
func set(json, path, value string) string {
	out, _ := sjson.Set(json, path, value)
	return out
}
