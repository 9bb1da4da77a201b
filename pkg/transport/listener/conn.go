package listener

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// Conn is an accepted connection. It has exactly one owner at a time; the
// owner is responsible for calling Close exactly once, which Close enforces.
type Conn struct {
	fd     int
	id     string
	remote string
	closed atomic.Bool
}

func newConn(fd int, remote string) *Conn {
	return &Conn{
		fd:     fd,
		id:     uuid.NewString(),
		remote: remote,
	}
}

// ID returns the connection's unique identifier, assigned at accept time.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer address in host:port form.
func (c *Conn) RemoteAddr() string {
	return c.remote
}

// Fd returns the underlying file descriptor.
func (c *Conn) Fd() int {
	return c.fd
}

// Read reads up to len(p) bytes from the connection. A clean peer close is
// reported as io.EOF. Transient errors are returned as-is for the caller's
// retry policy; see errors.IsTransient.
func (c *Conn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err != nil {
		return 0, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes up to len(p) bytes to the connection. Short writes are
// possible; callers that need the whole buffer on the wire should loop.
func (c *Conn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the connection's file descriptor. Only the first call
// closes; subsequent calls return nil.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(c.fd)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3], a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%x]:%d", a.Addr, a.Port)
	default:
		return "unknown"
	}
}
