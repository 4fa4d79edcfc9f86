// Package bidi for the WebDriver BiDi communication with Firefox over websocket.
// It's mainly used to receive browser events, such as console logs, that the classic protocol can't report.
package bidi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-rod/gecko/lib/defaults"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/tidwall/gjson"
	"github.com/ysmood/goob"
)

// Client is a bidi connection instance.
type Client struct {
	ctx   context.Context
	close func()

	wsURL  string
	header http.Header
	ws     WebSocketable

	muSend sync.Mutex

	pending *pendingRequests

	event *goob.Observable

	count uint64

	logger utils.Logger
}

// Request to send to browser
type Request struct {
	ID     uint64      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// String interface
func (r *Request) String() string {
	return fmt.Sprintf("=> #%d %s %s", r.ID, r.Method, utils.MustToJSON(r.Params))
}

// Response from browser
type Response struct {
	ID     uint64
	Result gjson.Result
	Error  *Error
}

// String interface
func (r *Response) String() string {
	if r.Error != nil {
		return fmt.Sprintf("<= #%d error %s", r.ID, r.Error.Error())
	}
	return fmt.Sprintf("<= #%d %s", r.ID, r.Result.Raw)
}

// Event from browser
type Event struct {
	Method string
	Params gjson.Result
}

// String interface
func (e *Event) String() string {
	return fmt.Sprintf("<- %s %s", e.Method, e.Params.Raw)
}

// Error of a bidi command
type Error struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace"`
}

// Error interface
func (e *Error) Error() string {
	return fmt.Sprintf("[bidi] %s: %s", e.Code, e.Message)
}

// Is interface, only the Code is compared
func (e *Error) Is(err error) bool {
	target, ok := err.(*Error)
	return ok && target.Code == e.Code
}

// WebSocketable enables you to choose the websocket lib you want to use.
type WebSocketable interface {
	// Connect to server
	Connect(ctx context.Context, url string, header http.Header) error
	// Send text message only
	Send([]byte) error
	// Read returns text message only
	Read() ([]byte, error)
	// Close the connection
	Close() error
}

// New creates a bidi connection for the url from the "webSocketUrl" capability of a webdriver session.
func New(websocketURL string) *Client {
	logger := utils.LoggerQuiet
	if defaults.WD {
		logger = utils.NewLogger(os.Stdout, "[bidi] ")
	}

	return &Client{
		pending: newPendingRequests(),
		wsURL:   websocketURL,
		logger:  logger,
	}
}

// Header set the header of the websocket request
func (c *Client) Header(header http.Header) *Client {
	c.header = header
	return c
}

// Websocket set the websocket lib to use
func (c *Client) Websocket(ws WebSocketable) *Client {
	c.ws = ws
	return c
}

// Logger sets the logger to log all the requests, responses, and events transferred between gecko and the browser.
func (c *Client) Logger(l utils.Logger) *Client {
	c.logger = l
	return c
}

// Connect to browser
func (c *Client) Connect(ctx context.Context) error {
	if c.ws == nil {
		c.ws = &WebSocket{}
	}

	err := c.ws.Connect(ctx, c.wsURL, c.header)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	c.ctx = ctx
	c.close = cancel
	c.event = goob.New(ctx)

	go c.readMsgFromBrowser()

	return nil
}

// Call a method and get its result
func (c *Client) Call(ctx context.Context, method string, params interface{}) (gjson.Result, error) {
	if params == nil {
		params = map[string]interface{}{}
	}

	req := &Request{
		ID:     atomic.AddUint64(&c.count, 1),
		Method: method,
		Params: params,
	}

	c.logger.Println(req)

	data, err := json.Marshal(req)
	if err != nil {
		return gjson.Result{}, err
	}

	pending := newPendingRequest()
	if err := c.pending.add(req.ID, pending); err != nil {
		return gjson.Result{}, err
	}
	defer c.pending.delete(req.ID)

	if err := c.sendMsg(data); err != nil {
		return gjson.Result{}, err
	}

	select {
	case <-ctx.Done():
		return gjson.Result{}, ctx.Err()

	case r := <-pending.result:
		if r.err != nil {
			return gjson.Result{}, r.err
		}
		if r.response.Error != nil {
			return gjson.Result{}, r.response.Error
		}
		return r.response.Result, nil
	}
}

// Subscribe returns a channel that emits the events from the browser until the ctx is done or the connection is closed.
// Unlike the raw websocket stream, a slow subscriber won't block others.
func (c *Client) Subscribe(ctx context.Context) <-chan *Event {
	ctx, cancel := context.WithCancel(ctx)
	src := c.event.Subscribe(ctx)
	dst := make(chan *Event)

	go func() {
		defer cancel()
		defer close(dst)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.ctx.Done():
				return
			case e, ok := <-src:
				if !ok {
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-c.ctx.Done():
					return
				case dst <- e.(*Event):
				}
			}
		}
	}()

	return dst
}

// Done is closed when the connection is closed
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close the connection
func (c *Client) Close() error {
	if c.close == nil {
		return nil
	}
	err := c.ws.Close()
	c.close()
	return err
}

func (c *Client) sendMsg(data []byte) error {
	c.muSend.Lock()
	defer c.muSend.Unlock()

	err := c.ws.Send(data)
	if err != nil {
		c.wsClose(err)
		return err
	}

	return nil
}

func (c *Client) readMsgFromBrowser() {
	defer c.wsClose(nil)

	for {
		data, err := c.ws.Read()
		if err != nil {
			c.wsClose(err)
			return
		}

		msg := gjson.ParseBytes(data)

		switch msg.Get("type").String() {
		case "success":
			res := &Response{ID: msg.Get("id").Uint(), Result: msg.Get("result")}
			c.logger.Println(res)
			c.pending.fulfill(res.ID, res)

		case "error":
			e := &Error{}
			_ = json.Unmarshal(data, e)
			res := &Response{ID: msg.Get("id").Uint(), Error: e}
			c.logger.Println(res)
			if res.ID == 0 {
				continue
			}
			c.pending.fulfill(res.ID, res)

		case "event":
			evt := &Event{Method: msg.Get("method").String(), Params: msg.Get("params")}
			c.logger.Println(evt)
			c.event.Publish(evt)
		}
	}
}

func (c *Client) wsClose(err error) {
	if err != nil {
		c.logger.Println(err)
	}
	c.pending.close(&errConnClosed{err})
	c.close()
}

type errConnClosed struct {
	details error
}

func (e *errConnClosed) Error() string {
	return fmt.Sprintf("[bidi] connection closed: %v", e.details)
}

func (e *errConnClosed) Unwrap() error {
	return e.details
}

// pendingRequests tracks the requests that are waiting for responses.
type pendingRequests struct {
	mu      sync.Mutex
	err     error
	pending map[uint64]*pendingRequest
}

func newPendingRequests() *pendingRequests {
	return &pendingRequests{
		pending: make(map[uint64]*pendingRequest),
	}
}

// close marks the requests as not being able to make new requests.
// It will also close any pending requests.
func (reqs *pendingRequests) close(err error) {
	reqs.mu.Lock()
	defer reqs.mu.Unlock()

	if reqs.err != nil {
		return
	}

	if err == nil {
		err = errors.New("browser has shut down")
	}
	reqs.err = err

	for _, pending := range reqs.pending {
		pending.close(err)
	}
	reqs.pending = map[uint64]*pendingRequest{}
}

// add adds a new pending request. When the browser has disconnected
// then it will return an error.
func (reqs *pendingRequests) add(id uint64, resp *pendingRequest) error {
	reqs.mu.Lock()
	defer reqs.mu.Unlock()
	if reqs.err != nil {
		return reqs.err
	}
	reqs.pending[id] = resp
	return nil
}

// fulfill fills in a pending request and removes from the map.
func (reqs *pendingRequests) fulfill(id uint64, r *Response) {
	reqs.mu.Lock()
	defer reqs.mu.Unlock()

	pending, ok := reqs.pending[id]
	if !ok {
		return
	}
	pending.respond(r)
	delete(reqs.pending, id)
}

func (reqs *pendingRequests) delete(id uint64) {
	reqs.mu.Lock()
	defer reqs.mu.Unlock()
	delete(reqs.pending, id)
}

type pendingRequest struct {
	done   sync.Once
	result chan pendingResponse
}

type pendingResponse struct {
	response *Response
	err      error
}

func newPendingRequest() *pendingRequest {
	return &pendingRequest{result: make(chan pendingResponse, 1)}
}

func (pending *pendingRequest) respond(r *Response) {
	select {
	case pending.result <- pendingResponse{response: r}:
	default:
	}
	pending.done.Do(func() { close(pending.result) })
}

func (pending *pendingRequest) close(err error) {
	select {
	case pending.result <- pendingResponse{err: err}:
	default:
	}
	pending.done.Do(func() { close(pending.result) })
}
