// Package webdriver for the W3C WebDriver communication with geckodriver.
// The Firefox-only commands, such as the chrome/content context switch, are included.
package webdriver

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"

	"github.com/go-rod/gecko/lib/defaults"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/tidwall/gjson"
	"github.com/ysmood/kit"
)

// Client is a webdriver connection to a remote end, such as geckodriver.
// It's safe for concurrent use.
type Client struct {
	url    string
	header http.Header
	http   *http.Client

	count uint64

	logger utils.Logger
}

// Request to send to the remote end
type Request struct {
	ID      uint64
	Method  string
	Path    string
	Payload string
}

// String interface
func (r *Request) String() string {
	return fmt.Sprintf("=> #%d %s %s %s", r.ID, r.Method, r.Path, r.Payload)
}

// Response from the remote end
type Response struct {
	ID     uint64
	Status int
	Value  gjson.Result
}

// String interface
func (r *Response) String() string {
	return fmt.Sprintf("<= #%d %d %s", r.ID, r.Status, r.Value.Raw)
}

// New creates a client for the remote end, the url should be something like http://127.0.0.1:4444
func New(url string) *Client {
	logger := utils.LoggerQuiet
	if defaults.WD {
		logger = utils.NewLogger(os.Stdout, "[wd] ")
	}

	return &Client{
		url: strings.TrimRight(url, "/"),
		header: http.Header{
			"Content-Type": {"application/json; charset=utf-8"},
		},
		http:   &http.Client{},
		logger: logger,
	}
}

// URL of the remote end
func (c *Client) URL() string {
	return c.url
}

// Header set the extra header of each request
func (c *Client) Header(header http.Header) *Client {
	for k, v := range header {
		c.header[k] = v
	}
	return c
}

// HTTPClient set the http client to use
func (c *Client) HTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Logger sets the logger to log all the requests and responses transferred between gecko and the remote end.
func (c *Client) Logger(l utils.Logger) *Client {
	c.logger = l
	return c
}

// Call a command and get the "value" field of its response.
// The payload is a json string, it will be ignored for GET and DELETE.
func (c *Client) Call(ctx context.Context, method, path, payload string) (gjson.Result, error) {
	req := &Request{
		ID:      atomic.AddUint64(&c.count, 1),
		Method:  method,
		Path:    path,
		Payload: payload,
	}

	c.logger.Println(req)

	r := kit.Req(c.url + path).
		Context(ctx).
		Client(c.http).
		Method(method).
		Headers(c.header)

	if method == http.MethodPost {
		if payload == "" {
			payload = "{}"
		}
		r = r.StringBody(payload)
	}

	httpRes, err := r.Response()
	if err != nil {
		return gjson.Result{}, err
	}
	defer func() { _ = httpRes.Body.Close() }()

	body, err := utils.ReadJSON(httpRes.Body)
	if err != nil {
		return gjson.Result{}, err
	}

	res := &Response{
		ID:     req.ID,
		Status: httpRes.StatusCode,
		Value:  body.Get("value"),
	}

	c.logger.Println(res)

	return res.Value, parseError(res)
}

// Status of the remote end, it reports whether the remote end can create new sessions
func (c *Client) Status(ctx context.Context) (ready bool, msg string, err error) {
	val, err := c.Call(ctx, http.MethodGet, "/status", "")
	if err != nil {
		return false, "", err
	}
	return val.Get("ready").Bool(), val.Get("message").String(), nil
}
