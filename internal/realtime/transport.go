package realtime

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

// Conn is the session's view of one transport connection. The concrete
// socket handle never leaves this package.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url, token string) (Conn, error)
}

type wsDialer struct{}

// NewWebSocketDialer returns the production Dialer backed by
// gorilla/websocket. The bearer token travels in the handshake request.
func NewWebSocketDialer() Dialer {
	return wsDialer{}
}

func (wsDialer) Dial(ctx context.Context, url, token string) (Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
