package gateway

import (
	"chat-gateway/errors"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn is the outbound half of a websocket. Frames are queued in a bounded
// buffer drained by a single writer goroutine, the only one writing data
// frames on the socket.
type wsConn struct {
	ws           *websocket.Conn
	log          *slog.Logger
	out          chan []byte
	done         chan struct{}
	finished     chan struct{}
	once         sync.Once
	writeTimeout time.Duration
}

func newWSConn(ws *websocket.Conn, log *slog.Logger, bufferSize int, writeTimeout time.Duration) *wsConn {
	c := &wsConn{
		ws:           ws,
		log:          log,
		out:          make(chan []byte, bufferSize),
		done:         make(chan struct{}),
		finished:     make(chan struct{}),
		writeTimeout: writeTimeout,
	}
	go c.writeLoop()
	return c
}

// Write queues a frame without blocking. A full buffer drops the frame.
func (c *wsConn) Write(frame []byte) error {
	select {
	case <-c.done:
		return errors.ErrSessionClosed
	default:
	}
	select {
	case c.out <- frame:
		return nil
	default:
		return errors.ErrBackpressure
	}
}

// Send waits for room in the buffer until ctx is done or the connection closes.
func (c *wsConn) Send(ctx context.Context, frame []byte) error {
	select {
	case <-c.done:
		return errors.ErrSessionClosed
	default:
	}
	select {
	case c.out <- frame:
		return nil
	case <-c.done:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the connection starts shutting down.
func (c *wsConn) Done() <-chan struct{} {
	return c.done
}

// Close flushes what is already queued, sends a close frame and closes the
// socket. It waits for the writer and is safe to call more than once.
func (c *wsConn) Close() error {
	c.shutdown()
	<-c.finished
	return nil
}

func (c *wsConn) shutdown() {
	c.once.Do(func() { close(c.done) })
}

func (c *wsConn) writeLoop() {
	defer close(c.finished)
	defer func() { _ = c.ws.Close() }()

	for {
		select {
		case frame := <-c.out:
			if err := c.write(frame); err != nil {
				c.log.Debug("Websocket write failed", "error", err)
				c.shutdown()
				return
			}
		case <-c.done:
			c.drain()
			deadline := time.Now().Add(c.writeTimeout)
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		}
	}
}

func (c *wsConn) drain() {
	for {
		select {
		case frame := <-c.out:
			if err := c.write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *wsConn) write(frame []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}
