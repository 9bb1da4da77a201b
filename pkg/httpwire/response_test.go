package httpwire

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nanoserve/nanoserve/internal/testutil"
)

func fixedClock() time.Time {
	return time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{StatusOK, "OK"},
		{StatusBadRequest, "Bad Request"},
		{StatusNotFound, "Not Found"},
		{StatusConflict, "Conflict"},
		{StatusPayloadTooLarge, "Payload Too Large"},
		{StatusUnprocessableEntity, "Unprocessable Entity"},
		{StatusInternalServerError, "Internal Server Error"},
		{StatusNotImplemented, "Not Implemented"},
		{299, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			testutil.AssertEqual(t, tt.want, StatusText(tt.code))
		})
	}
}

func TestMarshal(t *testing.T) {
	resp := NewResponse(StatusOK)
	resp.now = fixedClock
	resp.SetJSONBody([]byte(`{"status":"success"}`))

	got := string(resp.Marshal())

	want := "HTTP/1.1 200 OK\r\n" +
		"Server: NanoServe/1.0\r\n" +
		"Date: Sat, 14 Mar 2026 09:26:53 GMT\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 20\r\n" +
		"\r\n" +
		`{"status":"success"}`
	testutil.AssertEqual(t, want, got)
}

func TestMarshalEmptyBody(t *testing.T) {
	resp := NewResponse(StatusOK)
	resp.now = fixedClock

	got := string(resp.Marshal())

	if !strings.Contains(got, "Content-Length: 0\r\n") {
		t.Errorf("expected Content-Length: 0 in %q", got)
	}
	if !strings.HasSuffix(got, "\r\n\r\n") {
		t.Errorf("expected response to end with blank line, got %q", got)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(StatusUnprocessableEntity, "POST requests require X-Idempotency-Key header")

	want := `{"error":"POST requests require X-Idempotency-Key header","status":422,"message":"Unprocessable Entity"}`
	testutil.AssertEqual(t, want, string(resp.Body))
	testutil.AssertEqual(t, "application/json", resp.Headers[0].Value)
}
