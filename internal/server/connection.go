package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/eliminator/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Outgoing messages buffered per connection before it is dropped
	sendBuffer = 256
)

var ErrConnectionClosed = errors.New("connection closed")

// Connection is one player's byte stream, a raw TCP socket or a websocket
// adapted to look like one.
type Connection struct {
	rw          io.ReadWriteCloser
	send        chan []byte
	done        chan struct{}
	closing     chan struct{}
	closeOnce   sync.Once
	closingOnce sync.Once
	logger      *log.Logger

	mu     sync.RWMutex
	id     byte
	seated bool
}

// NewConnection creates a new connection wrapper
func NewConnection(rw io.ReadWriteCloser, logger *log.Logger) *Connection {
	return &Connection{
		rw:      rw,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
		logger:  logger.WithPrefix("conn"),
	}
}

// Start begins the write pump and the read loop feeding inbox
func (c *Connection) Start(inbox *Inbox) {
	go c.writePump()
	go c.readLoop(inbox)
}

// ID returns the player id assigned by the pool
func (c *Connection) ID() byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

func (c *Connection) setID(id byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.seated = true
	c.logger = c.logger.With("player", id)
}

func (c *Connection) isSeated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seated
}

func (c *Connection) log() *log.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// Send encodes and queues a message
func (c *Connection) Send(msg protocol.Message) error {
	data, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}
	return c.SendBytes(data)
}

// SendBytes queues an encoded message without blocking. A connection that
// cannot keep up is closed.
func (c *Connection) SendBytes(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		c.log().Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.rw.Close()
	})
	return err
}

// CloseAfterFlush writes whatever is already queued and then closes
func (c *Connection) CloseAfterFlush() {
	c.closingOnce.Do(func() { close(c.closing) })
}

// Done is closed once the connection has been closed
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// readLoop decodes messages into the inbox until the stream ends, then
// reports the player as disconnected.
func (c *Connection) readLoop(inbox *Inbox) {
	defer func() { _ = c.Close() }()

	r := bufio.NewReader(c.rw)
	for {
		msg, err := protocol.ReadMessage(r)
		if err != nil {
			switch {
			case errors.Is(err, protocol.ErrUnknownOpcode):
				c.log().Warn("Dropping connection after protocol error", "error", err)
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				c.log().Debug("Connection closed")
			default:
				c.log().Info("Connection read failed", "error", err)
			}
			if c.isSeated() {
				id := c.ID()
				inbox.Push(Envelope{From: id, Msg: &protocol.Disconnection{Player: id}, Internal: true, conn: c})
			}
			return
		}

		c.log().Debug("Received message", "op", msg.OpCode())
		if !inbox.Push(Envelope{From: c.ID(), Msg: msg, conn: c}) {
			return
		}
	}
}

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// writePump writes queued messages to the stream
func (c *Connection) writePump() {
	defer func() { _ = c.Close() }()

	for {
		select {
		case data := <-c.send:
			if err := c.write(data); err != nil {
				c.log().Debug("Failed to write message", "error", err)
				return
			}

		case <-c.closing:
			for {
				select {
				case data := <-c.send:
					if err := c.write(data); err != nil {
						return
					}
				default:
					return
				}
			}

		case <-c.done:
			return
		}
	}
}

func (c *Connection) write(data []byte) error {
	if d, ok := c.rw.(writeDeadliner); ok {
		_ = d.SetWriteDeadline(time.Now().Add(writeWait))
	}
	_, err := c.rw.Write(data)
	return err
}
