package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second

	// DefaultSendBuffer is the number of frames queued per connection.
	DefaultSendBuffer = 64
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("connection send buffer full")
)

// Conn is a websocket connection with a dedicated writer goroutine.
// Only the writer touches the socket for output.
type Conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

var _ Sender = (*Conn)(nil)

// NewConn wraps ws. Call Run in its own goroutine before sending.
func NewConn(id string, ws *websocket.Conn, buffer int) *Conn {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Conn{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// ID returns the connection id.
func (c *Conn) ID() string {
	return c.id
}

// Send queues env for delivery. A full buffer closes the connection.
func (c *Conn) Send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.Close()
		return ErrSlowConsumer
	}
}

// Close stops the writer. It is safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Wait blocks until the writer has exited.
func (c *Conn) Wait() {
	<-c.stopped
}

// Run drains the send queue and keeps the socket alive with pings.
func (c *Conn) Run() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		// Unblocks the reader so the handler can return.
		_ = c.ws.Close()
		close(c.stopped)
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}
