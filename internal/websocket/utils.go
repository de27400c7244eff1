package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// Conn serialises writes to a socket shared by the request loop and the
// notification pump.
type Conn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewConn wraps an upgraded connection.
func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

// WriteTyped sends a strongly-typed event payload.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// WriteError sends an ErrorEvent.
func (c *Conn) WriteError(code, msg string) error {
	return c.WriteTyped(ErrorEvent{
		Event: EventError,
		Code:  code,
		Error: msg,
	})
}

// ReadJSON reads and decodes one message with a read deadline.
func (c *Conn) ReadJSON(v interface{}) error {
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	return c.conn.ReadJSON(v)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
