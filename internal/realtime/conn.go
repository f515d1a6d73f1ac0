package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/artzymeri/miteinander/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Conn wraps one websocket session and coordinates outbound writes through a
// buffered channel. Safe for concurrent Send; reads happen on a single
// goroutine owned by the gateway so events stay in order.
type Conn struct {
	id       string
	identity auth.Identity

	ws     *websocket.Conn
	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

func newConn(identity auth.Identity, ws *websocket.Conn) *Conn {
	return &Conn{
		id:       uuid.NewString(),
		identity: identity,
		ws:       ws,
		send:     make(chan []byte, 128),
		closed:   make(chan struct{}),
	}
}

// ID returns the connection identifier used in presence entries.
func (c *Conn) ID() string { return c.id }

// Identity returns the verified identity bound at connect time.
func (c *Conn) Identity() auth.Identity { return c.identity }

// Send enqueues a frame for delivery. If the client is slow and the buffer is
// full, the connection is closed to keep backpressure bounded.
func (c *Conn) Send(frame []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	case c.send <- frame:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("connection buffer exceeded")
	}
}

// Close terminates the connection and stops the write loop.
func (c *Conn) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		if c.ws != nil {
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
			_ = c.ws.Close()
		}
	})
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.writeFrame(frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				return
			}
		}
	}
}

func (c *Conn) writeFrame(frame []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *Conn) writePing() error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}
