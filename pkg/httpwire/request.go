package httpwire

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser limits. Requests exceeding these are rejected before any body
// handling takes place.
const (
	MaxHeaders              = 64
	MaxURILength            = 2048
	MaxHeaderNameLength     = 256
	MaxHeaderValueLength    = 8192
	MaxIdempotencyKeyLength = 256
	MaxBodySize             = 1024 * 1024
)

// IdempotencyKeyHeader is the header clients send to deduplicate retried
// payment submissions. Matched case-insensitively.
const IdempotencyKeyHeader = "X-Idempotency-Key"

// ParseError is a request parse failure with the HTTP status the handler
// should answer with.
type ParseError struct {
	Status  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse request: %d %s", e.Status, e.Message)
}

func badRequest(msg string) *ParseError {
	return &ParseError{Status: StatusBadRequest, Message: msg}
}

// Header is a single parsed request header.
type Header struct {
	Name  string
	Value string
}

// Request is a parsed HTTP/1.1 request.
type Request struct {
	Method  string
	URI     string
	Version string
	Headers []Header

	// IdempotencyKey is the value of the X-Idempotency-Key header, empty
	// when the client did not send one.
	IdempotencyKey string

	// ContentLength is the declared body length, 0 when absent.
	ContentLength int

	// Body is the request body, filled in by the caller after the head
	// has been parsed.
	Body []byte
}

// HeaderValue returns the value of the named header, matched
// case-insensitively. Returns "" when absent.
func (r *Request) HeaderValue(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// ParseHead parses the request head: the request line and headers, up to
// but not including the blank line. The caller splits the byte stream on
// "\r\n\r\n" and reads the body separately using ContentLength.
func ParseHead(head string) (*Request, error) {
	line, rest, _ := strings.Cut(head, "\r\n")

	req := &Request{}
	if err := parseRequestLine(req, line); err != nil {
		return nil, err
	}
	if err := parseHeaders(req, rest); err != nil {
		return nil, err
	}
	return req, nil
}

func parseRequestLine(req *Request, line string) error {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return badRequest("Invalid request line")
	}

	method, uri, version := parts[0], parts[1], parts[2]

	switch method {
	case "GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS", "PATCH":
	default:
		return badRequest("Invalid request line")
	}

	if len(uri) >= MaxURILength {
		return badRequest("Invalid request line")
	}
	if uri == "" || uri[0] != '/' {
		return badRequest("Invalid request line")
	}

	if version != "HTTP/1.1" && version != "HTTP/1.0" {
		return badRequest("Invalid request line")
	}

	req.Method = method
	req.URI = uri
	req.Version = version
	return nil
}

func parseHeaders(req *Request, headers string) error {
	for headers != "" {
		var line string
		line, headers, _ = strings.Cut(headers, "\r\n")
		if line == "" {
			continue
		}

		name, value, found := strings.Cut(line, ":")
		if !found {
			return badRequest("Invalid headers")
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if name == "" || len(name) >= MaxHeaderNameLength {
			return badRequest("Invalid headers")
		}
		// Oversized values are truncated, not rejected.
		if len(value) >= MaxHeaderValueLength {
			value = value[:MaxHeaderValueLength-1]
		}
		if len(req.Headers) >= MaxHeaders {
			return badRequest("Invalid headers")
		}

		req.Headers = append(req.Headers, Header{Name: name, Value: value})

		switch {
		case strings.EqualFold(name, IdempotencyKeyHeader):
			if len(value) >= MaxIdempotencyKeyLength {
				value = value[:MaxIdempotencyKeyLength-1]
			}
			req.IdempotencyKey = value
		case strings.EqualFold(name, "Content-Length"):
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return badRequest("Invalid headers")
			}
			req.ContentLength = n
		}
	}
	return nil
}
