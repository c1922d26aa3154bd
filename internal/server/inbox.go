package server

import (
	"sync"

	"github.com/lox/eliminator/internal/protocol"
)

// Envelope is a message tagged with the connection it arrived on
type Envelope struct {
	From byte
	Msg  protocol.Message

	// Internal marks messages the server made up itself, such as the
	// disconnection a reader reports or a turn timeout.
	Internal bool
	// Turn ties a timeout to the turn it was armed for
	Turn uint64

	conn *Connection
}

// Inbox is the queue every connection reader feeds and the match runner
// drains. Messages from one connection keep their order.
type Inbox struct {
	ch        chan Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// NewInbox creates an inbox holding up to size pending messages
func NewInbox(size int) *Inbox {
	return &Inbox{
		ch:   make(chan Envelope, size),
		done: make(chan struct{}),
	}
}

// Push queues an envelope, blocking while the inbox is full. It returns
// false once the inbox has been closed.
func (i *Inbox) Push(e Envelope) bool {
	select {
	case <-i.done:
		return false
	default:
	}

	select {
	case i.ch <- e:
		return true
	case <-i.done:
		return false
	}
}

// C exposes the receive side for the single consumer
func (i *Inbox) C() <-chan Envelope {
	return i.ch
}

// Len returns how many messages are waiting
func (i *Inbox) Len() int {
	return len(i.ch)
}

// Close stops accepting messages. Pending ones are dropped.
func (i *Inbox) Close() {
	i.closeOnce.Do(func() { close(i.done) })
}
