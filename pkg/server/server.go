package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	nserrors "github.com/nanoserve/nanoserve/pkg/common/errors"
	"github.com/nanoserve/nanoserve/pkg/common/validation"
	"github.com/nanoserve/nanoserve/pkg/dispatch/queue"
	"github.com/nanoserve/nanoserve/pkg/dispatch/workerpool"
	"github.com/nanoserve/nanoserve/pkg/metrics"
	"github.com/nanoserve/nanoserve/pkg/transport/listener"
)

// Handler processes a single accepted connection. The server closes the
// connection after Handle returns.
type Handler interface {
	Handle(ctx context.Context, conn *listener.Conn) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, conn *listener.Conn) error

// Handle implements the Handler interface for HandlerFunc.
func (f HandlerFunc) Handle(ctx context.Context, conn *listener.Conn) error {
	return f(ctx, conn)
}

// Config holds configuration options for creating a Server.
type Config struct {
	// Port is the TCP port to listen on. Port 0 picks an ephemeral port.
	Port int

	// Backlog is the listen(2) backlog length.
	Backlog int

	// QueueCapacity bounds the dispatch queue. 0 means unbounded.
	QueueCapacity int

	// Workers is the number of handler goroutines.
	Workers int

	// Handler processes each accepted connection.
	Handler Handler

	// Metrics defaults to metrics.DefaultRegistry.
	Metrics *metrics.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is a concurrent TCP server: one accept goroutine feeding a
// bounded queue drained by a fixed worker pool.
type Server struct {
	cfg Config
	log *slog.Logger
	m   *metrics.Registry

	ln   *listener.Listener
	q    *queue.Queue[*listener.Conn]
	pool *workerpool.Pool[*listener.Conn]

	started    bool
	acceptDone chan struct{}
	acceptErr  error

	shutdownOnce sync.Once
}

// New validates the configuration and builds the listener, queue and
// worker pool. Nothing runs until Start is called.
func New(cfg Config) (*Server, error) {
	if err := validation.ValidateNotNil("server", "handler", cfg.Handler); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.DefaultRegistry
	}

	ln, err := listener.New(listener.Config{
		Port:    cfg.Port,
		Backlog: cfg.Backlog,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		log:        log,
		m:          m,
		ln:         ln,
		acceptDone: make(chan struct{}),
	}

	q, err := queue.NewWithConfig(queue.Config[*listener.Conn]{
		Capacity: cfg.QueueCapacity,
		OnDrop: func(conn *listener.Conn) {
			m.ConnectionsRejected.Inc()
			conn.Close()
		},
	})
	if err != nil {
		ln.Destroy()
		return nil, err
	}
	s.q = q

	pool, err := workerpool.New(workerpool.Config[*listener.Conn]{
		Workers: cfg.Workers,
		Queue:   q,
		Handle:  s.handle,
		Release: func(conn *listener.Conn) {
			conn.Close()
		},
		Logger: log,
	})
	if err != nil {
		ln.Destroy()
		return nil, err
	}
	s.pool = pool

	return s, nil
}

// Start begins listening, launches the workers and the accept loop.
func (s *Server) Start(ctx context.Context) error {
	if err := s.ln.Start(); err != nil {
		s.ln.Destroy()
		return err
	}
	if err := s.pool.Start(ctx); err != nil {
		s.ln.Destroy()
		return err
	}

	s.m.QueueCapacity.Set(float64(s.q.Cap()))
	s.m.WorkersStarted.Set(float64(s.pool.Size()))

	s.started = true
	go s.acceptLoop()

	s.log.Info("server started",
		"port", s.ln.Port(),
		"workers", s.pool.Size(),
		"queue_capacity", s.q.Cap())
	return nil
}

// Port returns the bound port. Useful with Config.Port 0.
func (s *Server) Port() int {
	return s.ln.Port()
}

// QueueStats returns a snapshot of the dispatch queue counters.
func (s *Server) QueueStats() queue.Stats {
	return s.q.Stats()
}

// QueueLen returns the number of connections currently queued.
func (s *Server) QueueLen() int {
	return s.q.Len()
}

// PoolStats returns a snapshot of the worker pool counters.
func (s *Server) PoolStats() workerpool.Stats {
	return s.pool.Stats()
}

// Wait blocks until the accept loop has exited and returns its terminal
// error, nil for a clean shutdown.
func (s *Server) Wait() error {
	<-s.acceptDone
	return s.acceptErr
}

// acceptLoop accepts connections and hands them to the queue. It is the
// queue's only producer; a full queue blocks here and lets the kernel
// backlog absorb the burst.
func (s *Server) acceptLoop() {
	defer close(s.acceptDone)

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, nserrors.ErrListenerClosed) {
				s.log.Debug("accept loop exiting")
				return
			}
			s.log.Error("accept failed", "error", err)
			s.acceptErr = fmt.Errorf("accept: %w", err)
			return
		}

		s.m.ConnectionsAccepted.Inc()

		if err := s.q.Push(conn); err != nil {
			// Queue closed mid-shutdown. The connection was accepted but
			// can no longer be served.
			s.m.ConnectionsRejected.Inc()
			conn.Close()
			s.log.Warn("connection rejected, queue closed",
				"conn", conn.ID(), "remote", conn.RemoteAddr())
			continue
		}
		s.m.ConnectionsDispatched.Inc()
		s.m.QueueDepth.Set(float64(s.q.Len()))
	}
}

// handle runs the configured handler with latency and outcome metrics.
func (s *Server) handle(ctx context.Context, conn *listener.Conn) error {
	s.m.QueueDepth.Set(float64(s.q.Len()))
	s.m.WorkersActive.Inc()
	start := time.Now()

	err := s.cfg.Handler.Handle(ctx, conn)

	s.m.WorkersActive.Dec()
	s.m.HandleDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		s.m.RequestsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, nserrors.ErrConnectionClosed):
		s.m.RequestsTotal.WithLabelValues("client_closed").Inc()
	default:
		s.m.RequestsTotal.WithLabelValues("error").Inc()
	}
	return err
}

// Shutdown stops the server gracefully: the accept loop is woken and
// drained first, then the workers finish the queued backlog, then every
// remaining descriptor is closed. Idempotent and safe from any goroutine.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.log.Info("server shutting down")

		s.ln.RequestShutdown()
		if s.started {
			<-s.acceptDone
		}

		s.pool.Shutdown()

		if dropped := s.q.Destroy(); dropped > 0 {
			s.log.Warn("dropped queued connections on shutdown", "count", dropped)
		}
		s.ln.Destroy()

		s.log.Info("server stopped")
	})
}
