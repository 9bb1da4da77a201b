// Package httpwire implements a minimal HTTP/1.1 request parser and
// response serializer for the connection handlers.
//
// The parser handles a single request per connection: a request line,
// up to 64 headers, and an optional body bounded by Content-Length. It
// recognizes the X-Idempotency-Key header specially so handlers can
// deduplicate retried payment submissions. Parse failures carry a
// suggested HTTP status so handlers can answer with a structured JSON
// error body instead of dropping the connection.
package httpwire
