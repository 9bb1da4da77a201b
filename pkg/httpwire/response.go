package httpwire

import (
	"bytes"
	"fmt"
	"time"
)

// Status codes used by the connection handlers.
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusConflict            = 409
	StatusPayloadTooLarge     = 413
	StatusUnprocessableEntity = 422
	StatusInternalServerError = 500
	StatusNotImplemented      = 501
)

// ServerName is the value of the Server header on every response.
const ServerName = "NanoServe/1.0"

// StatusText returns the reason phrase for the given status code.
func StatusText(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusConflict:
		return "Conflict"
	case StatusPayloadTooLarge:
		return "Payload Too Large"
	case StatusUnprocessableEntity:
		return "Unprocessable Entity"
	case StatusInternalServerError:
		return "Internal Server Error"
	case StatusNotImplemented:
		return "Not Implemented"
	default:
		return "Unknown"
	}
}

// Response is an HTTP/1.1 response under construction.
type Response struct {
	Status  int
	Headers []Header
	Body    []byte

	// now overrides the Date header clock in tests.
	now func() time.Time
}

// NewResponse returns a response with the given status and no body.
func NewResponse(status int) *Response {
	return &Response{Status: status}
}

// NewErrorResponse returns a response whose body is the standard JSON
// error shape: {"error":...,"status":...,"message":...}.
func NewErrorResponse(status int, errorMessage string) *Response {
	resp := NewResponse(status)
	resp.AddHeader("Content-Type", "application/json")
	resp.Body = []byte(fmt.Sprintf(`{"error":%q,"status":%d,"message":%q}`,
		errorMessage, status, StatusText(status)))
	return resp
}

// AddHeader appends a response header. Server, Date and Content-Length
// are emitted automatically and must not be added here.
func (r *Response) AddHeader(name, value string) {
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
}

// SetJSONBody sets the body and a Content-Type: application/json header.
func (r *Response) SetJSONBody(body []byte) {
	r.AddHeader("Content-Type", "application/json")
	r.Body = body
}

// Marshal serializes the response to wire format: status line, Server and
// Date headers, custom headers, Content-Length, blank line, body.
func (r *Response) Marshal() []byte {
	clock := r.now
	if clock == nil {
		clock = time.Now
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Status, StatusText(r.Status))
	fmt.Fprintf(&buf, "Server: %s\r\n", ServerName)
	fmt.Fprintf(&buf, "Date: %s\r\n", clock().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))
	for _, h := range r.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(r.Body))
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.Bytes()
}
