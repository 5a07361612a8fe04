package wrapper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gaspardpetit/mcpwrap/internal/logx"
)

// State is the lifecycle state of a Server.
type State int32

const (
	StateStopped State = iota
	StateListening
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateListening:
		return "listening"
	default:
		return "unknown"
	}
}

// BindError reports that a listen address could not be bound. It is fatal for
// the process and never retried.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Listen binds a TCP listener on addr.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	return ln, nil
}

// Port returns the TCP port ln is bound to, or 0 for non-TCP listeners.
func Port(ln net.Listener) int {
	if a, ok := ln.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// Server answers the status endpoints of one descriptor.
type Server struct {
	desc    Descriptor
	handler http.Handler
	log     zerolog.Logger
	state   atomic.Int32
}

// New builds a stopped server. A nil logger uses logx.Log.
func New(opts Options, logger *zerolog.Logger) *Server {
	l := logx.Log
	if logger != nil {
		l = *logger
	}
	return &Server{
		desc:    opts.Descriptor,
		handler: NewHandler(opts),
		log:     l,
	}
}

// Handler returns the request handler of s.
func (s *Server) Handler() http.Handler { return s.handler }

// State reports whether s is currently listening.
func (s *Server) State() State { return State(s.state.Load()) }

// Start binds addr and serves until ctx is done. Bind failures are returned
// before anything is served.
func (s *Server) Start(ctx context.Context, addr string, grace time.Duration) error {
	ln, err := Listen(addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, grace)
}

// Serve answers requests on ln until ctx is done, then shuts down, allowing
// in-flight requests up to grace to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener, grace time.Duration) error {
	port := Port(ln)
	s.state.Store(int32(StateListening))
	defer s.state.Store(int32(StateStopped))
	// the startup line is written at every level short of disabled
	s.log.Log().Int("port", port).Msgf("%s listening on port %d", s.desc.Name, port)

	if err := ServeUntilContext(ctx, ln, s.handler, grace); err != nil {
		return err
	}
	s.log.Info().Int("port", port).Msg("stopped")
	return nil
}

// ServeUntilContext serves h on ln and shuts the server down when ctx is done.
// No read or write timeouts are set.
func ServeUntilContext(ctx context.Context, ln net.Listener, h http.Handler, grace time.Duration) error {
	srv := &http.Server{Handler: h}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown %s: %w", ln.Addr(), err)
	}
	return nil
}
