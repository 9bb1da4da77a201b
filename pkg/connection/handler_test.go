package connection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/nanoserve/nanoserve/internal/testutil"
	nserrors "github.com/nanoserve/nanoserve/pkg/common/errors"
	"github.com/nanoserve/nanoserve/pkg/httpwire"
)

// fakeConn plays a scripted inbound byte stream and records what the
// handler writes back.
type fakeConn struct {
	in  *bytes.Reader
	out bytes.Buffer

	// readErrs is consumed one error per Read call before any data flows.
	readErrs []error
}

func newFakeConn(request string) *fakeConn {
	return &fakeConn{in: bytes.NewReader([]byte(request))}
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if len(c.readErrs) > 0 {
		err := c.readErrs[0]
		c.readErrs = c.readErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	return c.in.Read(p)
}

func (c *fakeConn) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

func (c *fakeConn) ID() string         { return "test-conn" }
func (c *fakeConn) RemoteAddr() string { return "127.0.0.1:54321" }

func newTestHandler() *Handler {
	return New(Config{ReadDelay: time.Millisecond})
}

func TestHandleGet(t *testing.T) {
	conn := newFakeConn("GET /health HTTP/1.1\r\nHost: localhost\r\n\r\n")

	err := newTestHandler().Handle(context.Background(), conn)
	testutil.AssertNoError(t, err)

	got := conn.out.String()
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("expected 200 status line, got %q", got)
	}
	want := `{"status":"success","message":"Request received","method":"GET","uri":"/health"}`
	if !strings.HasSuffix(got, want) {
		t.Errorf("expected body %q in %q", want, got)
	}
}

func TestHandlePostWithIdempotencyKey(t *testing.T) {
	body := `{"amount":100}`
	conn := newFakeConn(fmt.Sprintf(
		"POST /payments HTTP/1.1\r\nX-Idempotency-Key: pay-1\r\nContent-Length: %d\r\n\r\n%s",
		len(body), body))

	err := newTestHandler().Handle(context.Background(), conn)
	testutil.AssertNoError(t, err)

	got := conn.out.String()
	want := fmt.Sprintf(
		`{"status":"success","message":"Payment processed","idempotency_key":"pay-1","body_size":%d}`,
		len(body))
	if !strings.HasSuffix(got, want) {
		t.Errorf("expected body %q in %q", want, got)
	}
}

func TestHandlePostWithoutIdempotencyKey(t *testing.T) {
	conn := newFakeConn("POST /payments HTTP/1.1\r\nContent-Length: 0\r\n\r\n")

	err := newTestHandler().Handle(context.Background(), conn)
	testutil.AssertNoError(t, err)

	got := conn.out.String()
	if !strings.HasPrefix(got, "HTTP/1.1 422 Unprocessable Entity\r\n") {
		t.Errorf("expected 422 status line, got %q", got)
	}
	if !strings.Contains(got, `"error":"POST requests require X-Idempotency-Key header"`) {
		t.Errorf("expected error body in %q", got)
	}
}

func TestHandleReplaysIdempotentRequest(t *testing.T) {
	h := newTestHandler()
	request := "POST /payments HTTP/1.1\r\nX-Idempotency-Key: pay-7\r\nContent-Length: 2\r\n\r\nhi"

	first := newFakeConn(request)
	testutil.AssertNoError(t, h.Handle(context.Background(), first))

	second := newFakeConn(request)
	testutil.AssertNoError(t, h.Handle(context.Background(), second))

	testutil.AssertEqual(t, first.out.String(), second.out.String())
	testutil.AssertEqual(t, 1, h.ReplayCacheLen())
}

func TestHandleMalformedRequest(t *testing.T) {
	conn := newFakeConn("GET /health HTTP/1.1\r\nHost: localhost")

	err := newTestHandler().Handle(context.Background(), conn)
	testutil.AssertNoError(t, err)

	got := conn.out.String()
	if !strings.HasPrefix(got, "HTTP/1.1 400 Bad Request\r\n") {
		t.Errorf("expected 400 status line, got %q", got)
	}
	if !strings.Contains(got, `"error":"Malformed HTTP request"`) {
		t.Errorf("expected error body in %q", got)
	}
}

func TestHandleInvalidRequestLine(t *testing.T) {
	conn := newFakeConn("BREW /coffee HTTP/1.1\r\n\r\n")

	err := newTestHandler().Handle(context.Background(), conn)
	testutil.AssertNoError(t, err)

	if !strings.HasPrefix(conn.out.String(), "HTTP/1.1 400 Bad Request\r\n") {
		t.Errorf("expected 400 status line, got %q", conn.out.String())
	}
}

func TestHandleBodyTooLarge(t *testing.T) {
	conn := newFakeConn(fmt.Sprintf(
		"POST /payments HTTP/1.1\r\nX-Idempotency-Key: big\r\nContent-Length: %d\r\n\r\n",
		httpwire.MaxBodySize+1))

	err := newTestHandler().Handle(context.Background(), conn)
	testutil.AssertNoError(t, err)

	got := conn.out.String()
	if !strings.HasPrefix(got, "HTTP/1.1 413 Payload Too Large\r\n") {
		t.Errorf("expected 413 status line, got %q", got)
	}
	if !strings.Contains(got, `"error":"Request body exceeds 1MB limit"`) {
		t.Errorf("expected error body in %q", got)
	}
}

func TestHandleTruncatedBody(t *testing.T) {
	conn := newFakeConn("POST /p HTTP/1.1\r\nX-Idempotency-Key: k\r\nContent-Length: 10\r\n\r\nshort")

	err := newTestHandler().Handle(context.Background(), conn)
	testutil.AssertNoError(t, err)

	got := conn.out.String()
	if !strings.HasPrefix(got, "HTTP/1.1 400 Bad Request\r\n") {
		t.Errorf("expected 400 status line, got %q", got)
	}
	if !strings.Contains(got, `"error":"Failed to read request body"`) {
		t.Errorf("expected error body in %q", got)
	}
}

func TestHandleClientClosedEarly(t *testing.T) {
	conn := newFakeConn("")

	err := newTestHandler().Handle(context.Background(), conn)
	if !errors.Is(err, nserrors.ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
	testutil.AssertEqual(t, 0, conn.out.Len())
}

func TestHandleRetriesTransientReads(t *testing.T) {
	conn := newFakeConn("GET / HTTP/1.1\r\n\r\n")
	conn.readErrs = []error{syscall.EINTR, syscall.EAGAIN}

	err := newTestHandler().Handle(context.Background(), conn)
	testutil.AssertNoError(t, err)

	if !strings.HasPrefix(conn.out.String(), "HTTP/1.1 200 OK\r\n") {
		t.Errorf("expected 200 status line, got %q", conn.out.String())
	}
}

func TestHandleGivesUpOnPersistentTransientErrors(t *testing.T) {
	conn := newFakeConn("GET / HTTP/1.1\r\n\r\n")
	conn.readErrs = []error{
		syscall.EAGAIN, syscall.EAGAIN, syscall.EAGAIN,
		syscall.EAGAIN, syscall.EAGAIN, syscall.EAGAIN,
	}

	err := newTestHandler().Handle(context.Background(), conn)
	testutil.AssertError(t, err)
}

func TestHandleFatalReadError(t *testing.T) {
	conn := newFakeConn("GET / HTTP/1.1\r\n\r\n")
	conn.readErrs = []error{syscall.ECONNRESET}

	err := newTestHandler().Handle(context.Background(), conn)
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, 0, conn.out.Len())
}
