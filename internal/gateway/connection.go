package gateway

import (
	"errors"
	"sync"

	"crownbidder/internal/domain"
	"crownbidder/pkg/logger"

	"github.com/gorilla/websocket"
)

// Connection wraps one upgraded socket. All writes go through a buffered
// pump goroutine, which keeps delivery FIFO per connection.
type Connection struct {
	id       string
	bidderID string
	conn     *websocket.Conn

	sendCh    chan []byte
	closeOnce sync.Once
	closed    chan struct{}
	log       logger.Logger
}

func newConnection(id, bidderID string, conn *websocket.Conn, log logger.Logger) *Connection {
	c := &Connection{
		id:       id,
		bidderID: bidderID,
		conn:     conn,
		sendCh:   make(chan []byte, 64),
		closed:   make(chan struct{}),
		log:      log,
	}
	go c.writePump()
	return c
}

func (c *Connection) ID() string       { return c.id }
func (c *Connection) BidderID() string { return c.bidderID }

func (c *Connection) Send(msg domain.Message) error {
	frame, err := domain.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case c.sendCh <- frame:
		return nil
	case <-c.closed:
		return errors.New("connection closed")
	default:
		// a slow consumer stalls its own connection, never the room
		c.Close()
		return errors.New("send buffer full, connection dropped")
	}
}

func (c *Connection) writePump() {
	for {
		select {
		case frame := <-c.sendCh:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("Write failed, closing connection",
					"connection_id", c.id, "error", err)
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Connection) readMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
	return nil
}
