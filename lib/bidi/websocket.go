package bidi

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocket is the default websocket client based on gorilla/websocket
type WebSocket struct {
	// WriteBufferSize of the dialer, default is 1MB
	WriteBufferSize int

	once sync.Once
	conn *websocket.Conn
}

var _ WebSocketable = &WebSocket{}

// Connect interface
func (ws *WebSocket) Connect(ctx context.Context, url string, header http.Header) error {
	dialer := *websocket.DefaultDialer
	dialer.WriteBufferSize = ws.WriteBufferSize
	if dialer.WriteBufferSize == 0 {
		dialer.WriteBufferSize = 1024 * 1024
	}

	conn, res, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return err
	}
	_ = res.Body.Close()

	ws.conn = conn
	return nil
}

// Send a message
func (ws *WebSocket) Send(data []byte) error {
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

// Read a message
func (ws *WebSocket) Read() ([]byte, error) {
	for {
		msgType, data, err := ws.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.TextMessage {
			return data, nil
		}
	}
}

// Close the connection, it's safe to call it multiple times
func (ws *WebSocket) Close() error {
	var err error
	ws.once.Do(func() {
		err = ws.conn.Close()
	})
	return err
}
