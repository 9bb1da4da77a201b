package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"

	nserrors "github.com/nanoserve/nanoserve/pkg/common/errors"
	"github.com/nanoserve/nanoserve/pkg/httpwire"
)

// readBufferSize bounds the request head. Heads that do not fit are
// answered with 400.
const readBufferSize = 8192

// Default replay cache sizing when Config leaves it zero.
const (
	DefaultReplayCacheSize = 1024
	DefaultReplayTTL       = 5 * time.Minute
)

// Conn is the subset of the transport connection the handler needs.
// Satisfied by *listener.Conn.
type Conn interface {
	io.Reader
	io.Writer
	ID() string
	RemoteAddr() string
}

// Config holds configuration options for creating a Handler.
type Config struct {
	// ReplayCacheSize is the maximum number of idempotency keys whose
	// responses are retained for replay. Defaults to DefaultReplayCacheSize.
	ReplayCacheSize int

	// ReplayTTL is how long a cached response stays replayable.
	// Defaults to DefaultReplayTTL.
	ReplayTTL time.Duration

	// ReadAttempts bounds retries of transient read and write errors.
	// Defaults to 5.
	ReadAttempts uint

	// ReadDelay is the pause between transient retries. Defaults to 10ms.
	ReadDelay time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handler processes one HTTP request per accepted connection.
type Handler struct {
	cfg     Config
	log     *slog.Logger
	replays *expirable.LRU[string, []byte]
}

// New returns a Handler with the replay cache initialized.
func New(cfg Config) *Handler {
	if cfg.ReplayCacheSize <= 0 {
		cfg.ReplayCacheSize = DefaultReplayCacheSize
	}
	if cfg.ReplayTTL <= 0 {
		cfg.ReplayTTL = DefaultReplayTTL
	}
	if cfg.ReadAttempts == 0 {
		cfg.ReadAttempts = 5
	}
	if cfg.ReadDelay <= 0 {
		cfg.ReadDelay = 10 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Handler{
		cfg:     cfg,
		log:     cfg.Logger,
		replays: expirable.NewLRU[string, []byte](cfg.ReplayCacheSize, nil, cfg.ReplayTTL),
	}
}

// Handle reads one request from the connection, processes it, and writes
// the full response. The caller closes the connection afterwards.
func (h *Handler) Handle(ctx context.Context, conn Conn) error {
	log := h.log.With("conn", conn.ID(), "remote", conn.RemoteAddr())

	raw, err := h.readHead(ctx, conn)
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.Debug("client closed connection before sending data")
			return nserrors.ErrConnectionClosed
		}
		return fmt.Errorf("read request: %w", err)
	}

	head, leftover, found := strings.Cut(raw, "\r\n\r\n")
	if !found {
		log.Warn("malformed request, no blank line after headers")
		return h.writeResponse(ctx, conn,
			httpwire.NewErrorResponse(httpwire.StatusBadRequest, "Malformed HTTP request"))
	}

	req, err := httpwire.ParseHead(head)
	if err != nil {
		var perr *httpwire.ParseError
		if errors.As(err, &perr) {
			log.Warn("request parse failed", "status", perr.Status, "reason", perr.Message)
			return h.writeResponse(ctx, conn, httpwire.NewErrorResponse(perr.Status, perr.Message))
		}
		return fmt.Errorf("parse request: %w", err)
	}

	log.Info("request", "method", req.Method, "uri", req.URI, "version", req.Version)

	if req.ContentLength > httpwire.MaxBodySize {
		log.Warn("request body too large", "content_length", req.ContentLength)
		return h.writeResponse(ctx, conn,
			httpwire.NewErrorResponse(httpwire.StatusPayloadTooLarge, "Request body exceeds 1MB limit"))
	}

	if req.ContentLength > 0 {
		body, err := h.readBody(ctx, conn, []byte(leftover), req.ContentLength)
		if err != nil {
			log.Warn("failed to read request body", "error", err)
			return h.writeResponse(ctx, conn,
				httpwire.NewErrorResponse(httpwire.StatusBadRequest, "Failed to read request body"))
		}
		req.Body = body
		log.Debug("read request body", "bytes", len(body))
	}

	if req.Method == "POST" && req.IdempotencyKey == "" {
		log.Warn("POST request missing idempotency key", "uri", req.URI)
		return h.writeResponse(ctx, conn,
			httpwire.NewErrorResponse(httpwire.StatusUnprocessableEntity,
				"POST requests require X-Idempotency-Key header"))
	}

	if req.IdempotencyKey != "" {
		if cached, ok := h.replays.Get(req.IdempotencyKey); ok {
			log.Info("replaying cached response", "idempotency_key", req.IdempotencyKey)
			return h.writeAll(ctx, conn, cached)
		}
	}

	resp := httpwire.NewResponse(httpwire.StatusOK)
	resp.SetJSONBody(successBody(req))

	wire := resp.Marshal()
	if req.IdempotencyKey != "" {
		h.replays.Add(req.IdempotencyKey, wire)
	}
	return h.writeAll(ctx, conn, wire)
}

// ReplayCacheLen returns the number of responses currently replayable.
func (h *Handler) ReplayCacheLen() int {
	return h.replays.Len()
}

func successBody(req *httpwire.Request) []byte {
	if req.Method == "POST" && req.IdempotencyKey != "" {
		return []byte(fmt.Sprintf(
			`{"status":"success","message":"Payment processed","idempotency_key":%q,"body_size":%d}`,
			req.IdempotencyKey, len(req.Body)))
	}
	return []byte(fmt.Sprintf(
		`{"status":"success","message":"Request received","method":%q,"uri":%q}`,
		req.Method, req.URI))
}

// readHead reads until the header terminator arrives or the buffer fills.
// Transient errors are retried; EOF before any data is reported as io.EOF.
func (h *Handler) readHead(ctx context.Context, conn Conn) (string, error) {
	buf := make([]byte, 0, readBufferSize)
	chunk := make([]byte, readBufferSize)

	for len(buf) < readBufferSize {
		n, err := h.readRetry(ctx, conn, chunk)
		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				break
			}
			return "", err
		}
		buf = append(buf, chunk[:n]...)
		if strings.Contains(string(buf), "\r\n\r\n") {
			break
		}
	}
	return string(buf), nil
}

// readBody assembles the request body from bytes already buffered past the
// header terminator plus further reads.
func (h *Handler) readBody(ctx context.Context, conn Conn, leftover []byte, length int) ([]byte, error) {
	body := make([]byte, 0, length)
	if len(leftover) > length {
		leftover = leftover[:length]
	}
	body = append(body, leftover...)

	chunk := make([]byte, readBufferSize)
	for len(body) < length {
		want := length - len(body)
		if want > len(chunk) {
			want = len(chunk)
		}
		n, err := h.readRetry(ctx, conn, chunk[:want])
		if err != nil {
			return nil, err
		}
		body = append(body, chunk[:n]...)
	}
	return body, nil
}

func (h *Handler) readRetry(ctx context.Context, conn Conn, p []byte) (int, error) {
	var n int
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(h.cfg.ReadAttempts),
		retry.Delay(h.cfg.ReadDelay),
		retry.RetryIf(nserrors.IsTransient),
		retry.LastErrorOnly(true),
	).Do(func() error {
		var err error
		n, err = conn.Read(p)
		return err
	})
	return n, err
}

func (h *Handler) writeResponse(ctx context.Context, conn Conn, resp *httpwire.Response) error {
	return h.writeAll(ctx, conn, resp.Marshal())
}

// writeAll keeps writing until the whole buffer is on the wire, retrying
// transient errors and resuming after short writes.
func (h *Handler) writeAll(ctx context.Context, conn Conn, data []byte) error {
	sent := 0
	for sent < len(data) {
		var n int
		err := retry.New(
			retry.Context(ctx),
			retry.Attempts(h.cfg.ReadAttempts),
			retry.Delay(h.cfg.ReadDelay),
			retry.RetryIf(nserrors.IsTransient),
			retry.LastErrorOnly(true),
		).Do(func() error {
			var err error
			n, err = conn.Write(data[sent:])
			return err
		})
		if err != nil {
			return fmt.Errorf("write response: sent %d of %d bytes: %w", sent, len(data), err)
		}
		sent += n
	}
	return nil
}
