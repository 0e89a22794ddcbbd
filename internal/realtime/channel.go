package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrChannelClosed = errors.New("channel is closed")
	ErrChannelFull   = errors.New("channel send queue is full")
)

// Channel is a live delivery path to one connected client device. Send must
// never block; a dead or saturated channel fails soft and its owning
// handler is responsible for detaching it.
type Channel interface {
	Send(payload []byte) error
}

const writeTimeout = 10 * time.Second

// SocketChannel adapts a websocket connection to the Channel contract. All
// writes go through a single pump goroutine so concurrent deliveries never
// interleave frames on the wire.
type SocketChannel struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewSocketChannel(conn *websocket.Conn, sendBuffer int) *SocketChannel {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	c := &SocketChannel{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send queues the payload for delivery without blocking. A closed channel
// or a full queue reports an error and drops the payload.
func (c *SocketChannel) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrChannelClosed
	default:
		return ErrChannelFull
	}
}

// Close tears the socket down. Safe to call more than once.
func (c *SocketChannel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *SocketChannel) writePump() {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close()
				return
			}
		}
	}
}
