package server

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	inboxSize       = 1024
	shutdownTimeout = 5 * time.Second
)

// Server hosts a single match: it accepts players over raw TCP and
// websockets, runs the match and hangs up when it is over.
type Server struct {
	cfg    *Config
	logger *log.Logger
	pool   *Pool
	inbox  *Inbox
	runner *MatchRunner

	listener   net.Listener
	httpLn     net.Listener
	httpServer *http.Server
}

// NewServer creates a server for one match described by cfg
func NewServer(logger *log.Logger, rng *rand.Rand, cfg *Config, opts ...MatchOption) *Server {
	logger = logger.WithPrefix("server")
	pool := NewPool(cfg.Game.Players, logger)
	inbox := NewInbox(inboxSize)

	s := &Server{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		inbox:  inbox,
		runner: NewMatchRunner(logger, pool, inbox, cfg.Game, rng, opts...),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// MatchID returns the identifier of the match this server hosts
func (s *Server) MatchID() string {
	return s.runner.ID()
}

// Handler returns the HTTP side of the server: /ws and /health
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Listen binds the TCP game port and, when configured, the HTTP port
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Address, err)
	}
	s.listener = ln

	if s.cfg.Server.HTTPAddress != "" {
		hln, err := net.Listen("tcp", s.cfg.Server.HTTPAddress)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.HTTPAddress, err)
		}
		s.httpLn = hln
	}
	return nil
}

// Addr returns the bound TCP game address, or nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// HTTPAddr returns the bound HTTP address, or nil if there is none
func (s *Server) HTTPAddr() net.Addr {
	if s.httpLn == nil {
		return nil
	}
	return s.httpLn.Addr()
}

// Serve accepts players and runs the match until it finishes or ctx is
// cancelled. Listen is called first if it has not been already.
func (s *Server) Serve(ctx context.Context) (*MatchResult, error) {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info("Server listening",
		"addr", s.Addr(),
		"http_addr", s.HTTPAddr(),
		"players", s.cfg.Game.Players,
		"match_id", s.MatchID())

	var result *MatchResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		res, err := s.runner.Run(gctx)
		if err != nil {
			return err
		}
		result = res
		return nil
	})

	g.Go(func() error { return s.acceptLoop(gctx) })

	if s.httpLn != nil {
		g.Go(func() error {
			if err := s.httpServer.Serve(s.httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		_ = s.listener.Close()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.pool.CloseAll(shutdownTimeout)

	if result != nil {
		return result, nil
	}
	return nil, err
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		s.logger.Debug("Accepted connection", "remote", conn.RemoteAddr())
		_ = s.pool.Admit(NewConnection(conn, s.logger), s.inbox)
	}
}
