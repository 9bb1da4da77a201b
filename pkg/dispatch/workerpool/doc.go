// Package workerpool runs a fixed set of worker goroutines that consume
// items from a dispatch queue and hand each one to a caller-provided
// handler.
//
// Workers loop on Queue.Pop until the queue reports end of queue, so a
// queue shutdown drains remaining items before the workers exit. A panic
// or error in the handler is contained to that single item: the item's
// Release hook still runs and the worker moves on to the next item.
//
// Worker startup degrades partially rather than failing the pool: when an
// OnWorkerStart hook rejects a slot, that slot is skipped and the pool
// runs with the workers that did start, as long as at least one did.
//
// Example usage:
//
//	q, _ := queue.New[*listener.Conn](64)
//	pool, err := workerpool.New(workerpool.Config[*listener.Conn]{
//		Workers: 4,
//		Queue:   q,
//		Handle:  handleConn,
//		Release: func(c *listener.Conn) { c.Close() },
//	})
//	if err != nil {
//		return err
//	}
//	pool.Start(ctx)
//	defer pool.Shutdown()
package workerpool
