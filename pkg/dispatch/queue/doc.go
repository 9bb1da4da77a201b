// Package queue provides the bounded, thread-safe FIFO handoff between the
// connection dispatcher and the worker pool.
//
// A Queue carries ownership: a pushed item belongs to the queue until exactly
// one Pop returns it. Producers block when a bounded queue is full
// (backpressure) instead of dropping work. Shutdown is one-way and follows
// the drain-then-terminate discipline: items queued before shutdown are
// still delivered, and only then does Pop return ErrEndOfQueue.
//
// Basic usage:
//
//	q, _ := queue.New[int](10)
//
//	go func() {
//		for {
//			v, err := q.Pop()
//			if err != nil {
//				return // drained and shut down
//			}
//			process(v)
//		}
//	}()
//
//	q.Push(42)
//	q.Shutdown()
package queue
