package listener

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"

	nserrors "github.com/nanoserve/nanoserve/pkg/common/errors"
	"github.com/nanoserve/nanoserve/pkg/common/validation"
)

// Config holds configuration options for creating a Listener.
type Config struct {
	// Port is the TCP port to bind on all interfaces.
	// Port 0 asks the kernel for an ephemeral port; see Port().
	Port int

	// Backlog is the listen(2) backlog length.
	Backlog int

	// Logger is used for accept-path logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Listener is a bound TCP socket with a self-pipe cancellation source.
type Listener struct {
	port    int
	backlog int
	log     *slog.Logger

	fd    int
	wakeR int
	wakeW int

	listening bool

	shutdownOnce sync.Once
	destroyOnce  sync.Once
}

// New creates the self-pipe, creates the listening socket with SO_REUSEADDR,
// and binds it to all interfaces on cfg.Port. The socket does not accept
// connections until Start is called.
func New(cfg Config) (*Listener, error) {
	if err := validation.ValidatePort("listener", "port", cfg.Port); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("listener", "backlog", cfg.Backlog); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("create shutdown pipe: %w", err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		closePipe(pipe)
		return nil, fmt.Errorf("create socket: %w", err)
	}

	// Allows immediate reuse of the port after a restart. Not fatal.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		log.Warn("failed to set SO_REUSEADDR", "error", err)
	}

	// Zero Addr binds 0.0.0.0 (all interfaces).
	sa := &unix.SockaddrInet4{Port: cfg.Port}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		closePipe(pipe)
		return nil, fmt.Errorf("bind port %d: %w", cfg.Port, err)
	}

	return &Listener{
		port:    cfg.Port,
		backlog: cfg.Backlog,
		log:     log,
		fd:      fd,
		wakeR:   pipe[0],
		wakeW:   pipe[1],
	}, nil
}

// Start begins listening with the configured backlog.
func (l *Listener) Start() error {
	if err := unix.Listen(l.fd, l.backlog); err != nil {
		return fmt.Errorf("listen on port %d: %w", l.port, err)
	}
	l.listening = true

	// Resolve the real port when the kernel assigned an ephemeral one.
	if sa, err := unix.Getsockname(l.fd); err == nil {
		if sa4, ok := sa.(*unix.SockaddrInet4); ok {
			l.port = sa4.Port
		}
	}

	l.log.Info("listening", "port", l.port, "backlog", l.backlog)
	return nil
}

// Port returns the bound port. After Start this is the real port even when
// the listener was configured with port 0.
func (l *Listener) Port() int {
	return l.port
}

// Accept blocks until an inbound connection is ready or shutdown has been
// requested. A shutdown wake yields errors.ErrListenerClosed; every other
// returned error is an unrecoverable listener failure. Transient accept
// errors (interrupted, would-block, aborted-in-backlog connections) are
// retried internally.
//
// Accept must only be called from a single goroutine.
func (l *Listener) Accept() (*Conn, error) {
	for {
		fds := []unix.PollFd{
			{Fd: int32(l.fd), Events: unix.POLLIN},
			{Fd: int32(l.wakeR), Events: unix.POLLIN},
		}

		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, fmt.Errorf("poll: %w", err)
		}

		// The cancellation channel wins over a ready connection.
		if fds[1].Revents != 0 {
			var buf [1]byte
			unix.Read(l.wakeR, buf[:]) // drain the wake byte
			l.log.Debug("accept interrupted by shutdown signal")
			return nil, nserrors.ErrListenerClosed
		}

		if fds[0].Revents == 0 {
			continue
		}

		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC)
		if err != nil {
			if nserrors.IsTransient(err) || errors.Is(err, unix.ECONNABORTED) {
				continue
			}
			return nil, fmt.Errorf("accept: %w", err)
		}

		conn := newConn(nfd, sockaddrString(sa))
		l.log.Debug("accepted connection", "remote", conn.RemoteAddr(), "fd", nfd)
		return conn, nil
	}
}

// RequestShutdown wakes an in-progress Accept exactly once. Idempotent and
// safe to call from any goroutine.
func (l *Listener) RequestShutdown() {
	l.shutdownOnce.Do(func() {
		if _, err := unix.Write(l.wakeW, []byte{1}); err != nil {
			l.log.Warn("failed to write shutdown wake byte", "error", err)
		}
	})
}

// Destroy closes the listening socket and both pipe ends. Safe to call after
// shutdown; must not race an in-progress Accept.
func (l *Listener) Destroy() {
	l.destroyOnce.Do(func() {
		unix.Close(l.fd)
		closePipe([2]int{l.wakeR, l.wakeW})
		l.log.Debug("listener destroyed", "port", l.port)
	})
}

func closePipe(p [2]int) {
	unix.Close(p[0])
	unix.Close(p[1])
}
