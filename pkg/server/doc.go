// Package server wires the listener, the dispatch queue and the worker
// pool into a single TCP server with one graceful shutdown path.
//
// The accept goroutine owns the listener: it accepts connections and
// pushes them into the queue, blocking when the queue is full so the
// kernel backlog absorbs bursts. Workers pop connections and run the
// configured handler; the pool closes every popped connection after its
// handler returns, succeeds or not.
//
// Shutdown follows a strict order: wake the accept loop, wait for it to
// exit, drain the queue through the workers, then close the remaining
// descriptors. Connections still queued when Shutdown is called are
// handled, not dropped.
package server
