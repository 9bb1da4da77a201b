/*
Package nanoserve provides a concurrent TCP server built around a bounded
dispatch queue: one accept goroutine feeds connections to a fixed worker
pool, and a single graceful shutdown path drains everything in order.

Dispatch (pkg/dispatch):
  - queue: bounded blocking FIFO with drain-then-terminate shutdown
  - workerpool: fixed worker set with per-item failure containment

Transport (pkg/transport):
  - listener: raw socket listener with self-pipe cancellable accept

Request handling:
  - httpwire: minimal HTTP/1.1 request parser and response serializer
  - connection: per-connection handler with idempotent payment replay

Server assembly:
  - server: wires listener, queue and pool with one shutdown order
  - metrics: Prometheus counters, gauges and latency histograms
  - maintenance: periodic activity snapshots on a cron runner

Example usage:

	import (
		"github.com/nanoserve/nanoserve/pkg/connection"
		"github.com/nanoserve/nanoserve/pkg/server"
		"github.com/nanoserve/nanoserve/pkg/transport/listener"
	)

	handler := connection.New(connection.Config{})
	srv, _ := server.New(server.Config{
		Port:          8080,
		Backlog:       128,
		QueueCapacity: 256,
		Workers:       8,
		Handler: server.HandlerFunc(func(ctx context.Context, conn *listener.Conn) error {
			return handler.Handle(ctx, conn)
		}),
	})
	srv.Start(ctx)
	defer srv.Shutdown()

The cmd/nanoserve command assembles the same stack from a YAML config
with flag overrides, a Prometheus scrape endpoint and live log level
reload.
*/
package nanoserve
