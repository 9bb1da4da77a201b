package listener

import (
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/nanoserve/nanoserve/internal/testutil"
	nserrors "github.com/nanoserve/nanoserve/pkg/common/errors"
)

func newTestListener(t *testing.T) *Listener {
	t.Helper()

	ln, err := New(Config{Port: 0, Backlog: 16})
	testutil.AssertNoError(t, err)

	err = ln.Start()
	testutil.AssertNoError(t, err)

	t.Cleanup(ln.Destroy)
	return ln
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid config",
			config: Config{Port: 0, Backlog: 16},
		},
		{
			name:    "negative port",
			config:  Config{Port: -1, Backlog: 16},
			wantErr: true,
		},
		{
			name:    "port above range",
			config:  Config{Port: 70000, Backlog: 16},
			wantErr: true,
		},
		{
			name:    "zero backlog",
			config:  Config{Port: 0, Backlog: 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln, err := New(tt.config)
			if tt.wantErr {
				testutil.AssertError(t, err)
				if !errors.Is(err, nserrors.ErrInvalidConfiguration) {
					t.Errorf("expected ErrInvalidConfiguration, got %v", err)
				}
				return
			}
			testutil.AssertNoError(t, err)
			ln.Destroy()
		})
	}
}

func TestStartResolvesEphemeralPort(t *testing.T) {
	ln := newTestListener(t)
	if ln.Port() == 0 {
		t.Error("expected a real port after Start with port 0")
	}
}

func TestAcceptConnection(t *testing.T) {
	ln := newTestListener(t)

	addr := fmt.Sprintf("127.0.0.1:%d", ln.Port())
	go func() {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return
		}
		c.Write([]byte("ping"))
		c.Close()
	}()

	conn, err := ln.Accept()
	testutil.AssertNoError(t, err)
	defer conn.Close()

	if conn.ID() == "" {
		t.Error("expected a non-empty connection ID")
	}
	if conn.RemoteAddr() == "" {
		t.Error("expected a non-empty remote address")
	}

	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "ping", string(buf[:n]))
}

func TestAcceptReadEOF(t *testing.T) {
	ln := newTestListener(t)

	addr := fmt.Sprintf("127.0.0.1:%d", ln.Port())
	go func() {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return
		}
		c.Close()
	}()

	conn, err := ln.Accept()
	testutil.AssertNoError(t, err)
	defer conn.Close()

	buf := make([]byte, 16)
	for {
		_, err = conn.Read(buf)
		if err != nil {
			break
		}
	}
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after peer close, got %v", err)
	}
}

func TestRequestShutdownUnblocksAccept(t *testing.T) {
	ln := newTestListener(t)

	done := make(chan error, 1)
	go func() {
		_, err := ln.Accept()
		done <- err
	}()

	// Give Accept a moment to block in poll before waking it.
	time.Sleep(20 * time.Millisecond)
	ln.RequestShutdown()

	select {
	case err := <-done:
		if !errors.Is(err, nserrors.ErrListenerClosed) {
			t.Errorf("expected ErrListenerClosed, got %v", err)
		}
	case <-time.After(testutil.TestTimeout):
		t.Fatal("Accept did not return after RequestShutdown")
	}
}

func TestRequestShutdownIsIdempotent(t *testing.T) {
	ln := newTestListener(t)

	ln.RequestShutdown()
	ln.RequestShutdown()
	ln.RequestShutdown()

	_, err := ln.Accept()
	if !errors.Is(err, nserrors.ErrListenerClosed) {
		t.Errorf("expected ErrListenerClosed, got %v", err)
	}
}

func TestBindPortInUse(t *testing.T) {
	ln := newTestListener(t)

	_, err := New(Config{Port: ln.Port(), Backlog: 16})
	testutil.AssertError(t, err)
}

func TestConnCloseIsIdempotent(t *testing.T) {
	ln := newTestListener(t)

	addr := fmt.Sprintf("127.0.0.1:%d", ln.Port())
	go func() {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return
		}
		c.Close()
	}()

	conn, err := ln.Accept()
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, conn.Close())
	testutil.AssertNoError(t, conn.Close())
}

func TestDestroyIsIdempotent(t *testing.T) {
	ln, err := New(Config{Port: 0, Backlog: 16})
	testutil.AssertNoError(t, err)

	ln.Destroy()
	ln.Destroy()
}
