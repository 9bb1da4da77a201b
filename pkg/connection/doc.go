// Package connection implements the per-connection request handler.
//
// Handle owns the accepted connection for its whole lifetime: it reads
// one HTTP request, parses it with httpwire, produces a response, and
// writes the full response back before the connection is released.
// Transient socket errors (EAGAIN, EWOULDBLOCK, EINTR) are retried with
// a short backoff; everything else aborts the connection.
//
// POST requests must carry an X-Idempotency-Key header. Responses for
// keyed requests are cached in a TTL-bounded LRU so a retried submission
// replays the original response instead of being processed twice.
package connection
