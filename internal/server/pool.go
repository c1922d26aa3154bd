package server

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/eliminator/internal/protocol"
)

var ErrGameFull = errors.New("game is full")

// Pool holds the seated connections of a match, keyed by player id. Accept
// loops add to it while the match runner broadcasts through it.
type Pool struct {
	conns    map[byte]*Connection
	capacity int
	sealed   bool
	mu       sync.RWMutex
	logger   *log.Logger
}

// NewPool creates a pool with room for capacity players
func NewPool(capacity int, logger *log.Logger) *Pool {
	return &Pool{
		conns:    make(map[byte]*Connection, capacity),
		capacity: capacity,
		logger:   logger.WithPrefix("pool"),
	}
}

// Admit seats a new connection on the lowest free id, tells it the id and
// starts feeding inbox. A full or sealed pool answers GameIsFull and hangs up.
func (p *Pool) Admit(c *Connection, inbox *Inbox) error {
	id, err := p.add(c)
	if err != nil {
		_ = c.Send(&protocol.ConnectionResponse{Success: false, Error: protocol.GameIsFull})
		go c.writePump()
		c.CloseAfterFlush()
		p.logger.Info("Rejected connection", "reason", err)
		return err
	}

	if err := c.Send(&protocol.AssignID{Player: id}); err != nil {
		p.Remove(id, c)
		return err
	}
	c.Start(inbox)
	p.logger.Info("Seated connection", "player", id)
	return nil
}

func (p *Pool) add(c *Connection) (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sealed || len(p.conns) >= p.capacity {
		return 0, ErrGameFull
	}
	for id := 0; id < int(protocol.ServerID); id++ {
		if _, taken := p.conns[byte(id)]; !taken {
			p.conns[byte(id)] = c
			c.setID(byte(id))
			return byte(id), nil
		}
	}
	return 0, ErrGameFull
}

// Remove drops a seat and closes its connection. When c is non-nil the seat
// is only dropped if it still belongs to c. Reports whether a seat was freed.
func (p *Pool) Remove(id byte, c *Connection) bool {
	p.mu.Lock()
	existing, ok := p.conns[id]
	if !ok || (c != nil && existing != c) {
		p.mu.Unlock()
		return false
	}
	delete(p.conns, id)
	p.mu.Unlock()

	_ = existing.Close()
	return true
}

// Owns reports whether id is seated on c. A nil c matches any connection.
func (p *Pool) Owns(id byte, c *Connection) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	existing, ok := p.conns[id]
	return ok && (c == nil || existing == c)
}

// Seal stops the pool from admitting anyone else, even into freed seats
func (p *Pool) Seal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sealed = true
}

// Has reports whether id is seated
func (p *Pool) Has(id byte) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.conns[id]
	return ok
}

// IDs returns the seated player ids in ascending order
func (p *Pool) IDs() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]byte, 0, len(p.conns))
	for id := range p.conns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of seated connections
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// Send delivers a message to one player
func (p *Pool) Send(id byte, msg protocol.Message) {
	p.mu.RLock()
	c, ok := p.conns[id]
	p.mu.RUnlock()
	if !ok {
		return
	}
	if err := c.Send(msg); err != nil {
		p.logger.Debug("Failed to send message", "player", id, "op", msg.OpCode(), "error", err)
	}
}

// Broadcast delivers a message to every seated player
func (p *Pool) Broadcast(msg protocol.Message) {
	p.BroadcastExcept(msg)
}

// BroadcastExcept delivers a message to every seated player not listed
func (p *Pool) BroadcastExcept(msg protocol.Message, except ...byte) {
	data, err := protocol.Marshal(msg)
	if err != nil {
		p.logger.Error("Failed to encode broadcast", "op", msg.OpCode(), "error", err)
		return
	}

	p.mu.RLock()
	targets := make([]*Connection, 0, len(p.conns))
	for id, c := range p.conns {
		if !slices.Contains(except, id) {
			targets = append(targets, c)
		}
	}
	p.mu.RUnlock()

	for _, c := range targets {
		_ = c.SendBytes(data)
	}
}

// CloseAll flushes and closes every seated connection, waiting up to
// timeout for them to finish writing
func (p *Pool) CloseAll(timeout time.Duration) {
	p.mu.Lock()
	conns := make([]*Connection, 0, len(p.conns))
	for id, c := range p.conns {
		conns = append(conns, c)
		delete(p.conns, id)
	}
	p.sealed = true
	p.mu.Unlock()

	for _, c := range conns {
		c.CloseAfterFlush()
	}

	deadline := time.After(timeout)
	for _, c := range conns {
		select {
		case <-c.Done():
		case <-deadline:
			return
		}
	}
}
