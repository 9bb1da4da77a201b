// Package listener owns the bound TCP listening socket and a cancellable
// accept operation.
//
// Accept blocks in a poll(2) readiness wait multiplexed over the listening
// socket and the read end of a self-pipe. RequestShutdown writes a single
// wake byte to the pipe, which unblocks an in-progress Accept without the
// accept goroutine ever polling a flag; Accept then reports
// errors.ErrListenerClosed, the expected terminal result (compare
// http.ErrServerClosed). The listener is not re-armable after shutdown.
//
// Each accepted connection is returned as a *Conn, an fd-backed handle with
// single-owner semantics: whoever holds the Conn is responsible for closing
// it exactly once.
package listener
