package server

import (
	"context"

	"github.com/lox/eliminator/internal/protocol"
)

// lobby collects usernames until every seat is claimed, then seals the pool
func (r *MatchRunner) lobby(ctx context.Context) error {
	r.logger.Info("Waiting for players", "seats", r.settings.Players)

	for len(r.names) < r.settings.Players {
		select {
		case env, ok := <-r.inbox.C():
			if !ok {
				return errLobbyClosed
			}
			r.lobbyDispatch(env)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.pool.Seal()
	return nil
}

func (r *MatchRunner) lobbyDispatch(env Envelope) {
	switch m := env.Msg.(type) {
	case *protocol.Connect:
		if !r.pool.Owns(env.From, env.conn) {
			return
		}
		r.handleConnect(env.From, m)

	case *protocol.Disconnection:
		if !env.Internal || !r.pool.Remove(env.From, env.conn) {
			return
		}
		if name, ok := r.names[env.From]; ok {
			delete(r.names, env.From)
			r.logger.Info("Player left the lobby", "player", env.From, "name", name)
		} else {
			r.logger.Debug("Unnamed connection left the lobby", "player", env.From)
		}

	default:
		if env.Internal || !r.pool.Owns(env.From, env.conn) {
			return
		}
		r.reject(env.From, env.Msg.OpCode(), protocol.RejectGameNotStarted)
	}
}

func (r *MatchRunner) handleConnect(from byte, m *protocol.Connect) {
	if name, ok := r.names[from]; ok {
		r.logger.Warn("Ignoring second username", "player", from, "name", name, "requested", m.Username)
		return
	}
	for _, name := range r.names {
		if name == m.Username {
			r.pool.Send(from, &protocol.ConnectionResponse{Success: false, Error: protocol.UsernameTaken})
			r.logger.Info("Username taken", "player", from, "name", m.Username)
			return
		}
	}

	r.names[from] = m.Username
	r.pool.Send(from, &protocol.ConnectionResponse{Success: true})
	r.logger.Info("Player joined", "player", from, "name", m.Username, "seated", len(r.names), "seats", r.settings.Players)
}
