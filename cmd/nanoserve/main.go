// nanoserve is a concurrent TCP server for payment request handling.
//
// Usage:
//
//	nanoserve [--config nanoserve.yaml] [--port 8080] [--log-level info]
//
// Flags override the corresponding config file keys. With no config file
// the built-in defaults apply. SIGINT and SIGTERM trigger a graceful
// shutdown that drains queued connections before exiting.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/nanoserve/nanoserve/internal/config"
	"github.com/nanoserve/nanoserve/internal/logging"
	"github.com/nanoserve/nanoserve/pkg/connection"
	"github.com/nanoserve/nanoserve/pkg/maintenance"
	"github.com/nanoserve/nanoserve/pkg/metrics"
	"github.com/nanoserve/nanoserve/pkg/server"
	"github.com/nanoserve/nanoserve/pkg/transport/listener"
)

// Version is injected with -ldflags "-X main.Version=...".
var Version = "0.1.0-dev"

func main() {
	os.Exit(run())
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "nanoserve",
		Usage:   "concurrent TCP server for payment request handling",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "listen port, overrides the config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error), overrides the config file",
			},
		},
		Action: serve,
	}
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := createApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "nanoserve: %v\n", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfgPath := cmd.String("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if port := cmd.Int("port"); port != 0 {
		cfg.Server.Port = int(port)
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	log, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}

	handler := connection.New(connection.Config{
		ReplayCacheSize: cfg.Replay.CacheSize,
		ReplayTTL:       cfg.Replay.TTL,
		Logger:          log.Logger,
	})

	srv, err := server.New(server.Config{
		Port:          cfg.Server.Port,
		Backlog:       cfg.Server.Backlog,
		QueueCapacity: cfg.Server.QueueCapacity,
		Workers:       cfg.Server.Workers,
		Handler: server.HandlerFunc(func(ctx context.Context, conn *listener.Conn) error {
			return handler.Handle(ctx, conn)
		}),
		Logger: log.Logger,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}

	janitor := maintenance.New(log.Logger)
	if err := janitor.AddStatsJob(cfg.Maintenance.StatsInterval, srv, metrics.DefaultRegistry); err != nil {
		return err
	}
	janitor.Start()
	defer janitor.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Wait)

	g.Go(func() error {
		<-gctx.Done()
		srv.Shutdown()
		return nil
	})

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		msrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}

		g.Go(func() error {
			log.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := msrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return msrv.Close()
		})
	}

	if cfgPath != "" {
		g.Go(func() error {
			err := config.Watch(gctx, cfgPath, log.Logger, func(next *config.Config) {
				if err := log.SetLevel(next.Log.Level); err != nil {
					log.Warn("ignoring invalid log level from config", "level", next.Log.Level)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}
