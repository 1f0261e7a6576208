package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Gylaii/keydb-client-lib/internal/cliconfig"
	"github.com/Gylaii/keydb-client-lib/internal/logging"
	"github.com/Gylaii/keydb-client-lib/pkg/keydb"
	"github.com/Gylaii/keydb-client-lib/pkg/metrics"
)

func main() {
	app := &cli.App{
		Name:  "consumer",
		Usage: "Subscribe to channels and drain queues",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run until interrupted",
				Flags: append(cliconfig.StoreFlags(),
					&cli.StringSliceFlag{
						Name:    "channel",
						Aliases: []string{"c"},
						Usage:   "Channel to subscribe to (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:    "queue",
						Aliases: []string{"q"},
						Usage:   "Queue to run a dequeue loop on (repeatable)",
					},
					&cli.BoolFlag{
						Name:    "dlq",
						Usage:   "Move failed queue messages to the dead-letter list",
						EnvVars: []string{"KEYDB_DLQ_ENABLED"},
					},
					&cli.Float64Flag{
						Name:  "fail-rate",
						Usage: "Fraction [0,1] of messages to randomly fail",
					},
					&cli.DurationFlag{
						Name:  "process-time",
						Usage: "Simulated processing time (e.g., 2s)",
					},
					&cli.StringFlag{
						Name:    "metrics-addr",
						Usage:   "Serve /metrics and /health on this address (e.g., :9090); empty disables",
						EnvVars: []string{"KEYDB_METRICS_ADDR"},
					},
					&cli.StringFlag{
						Name:    "environment",
						Usage:   "Deployment environment label for metrics",
						EnvVars: []string{"ENVIRONMENT"},
					},
				),
				Action: run,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	channels := c.StringSlice("channel")
	queues := c.StringSlice("queue")
	if len(channels) == 0 && len(queues) == 0 {
		return fmt.Errorf("at least one --channel or --queue is required")
	}

	failRate := c.Float64("fail-rate")
	if failRate < 0 || failRate > 1 {
		return fmt.Errorf("--fail-rate must be within [0,1], got %v", failRate)
	}

	cfg, err := cliconfig.Load(c, "consumer")
	if err != nil {
		return err
	}
	cfg.DeadLetter.Enabled = c.Bool("dlq")

	sugar, err := logging.New(c.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	sugar.Infow("config",
		"addr", cfg.Addr(),
		"namespace", cfg.Namespace,
		"clientName", cfg.Store.ClientName,
		"channels", channels,
		"queues", queues,
		"blockTimeout", cfg.Queue.BlockTimeout,
		"deadLetter", cfg.DeadLetter.Enabled,
		"failRate", failRate,
		"processTime", c.Duration("process-time"),
		"metricsAddr", c.String("metrics-addr"),
	)

	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithLabels(registry, metrics.Labels{
		Environment: c.String("environment"),
		Instance:    cfg.Store.ClientName,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	qc, err := keydb.New(cfg, keydb.WithLogger(sugar), keydb.WithMetrics(m))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = qc.Ping(pingCtx)
	cancel()
	if err != nil {
		qc.Shutdown()
		return fmt.Errorf("failed to connect: %w", err)
	}

	sim := newSimulator(failRate, c.Duration("process-time"), os.Stdout)
	for _, ch := range channels {
		qc.Subscribe(ch, sim.handler("channel", ch))
	}
	for _, q := range queues {
		qc.DequeueLoop(ctx, q, sim.handler("queue", q))
	}

	g, gctx := errgroup.WithContext(ctx)

	var metricsServer *metrics.Server
	if addr := c.String("metrics-addr"); addr != "" {
		metricsServer = metrics.NewServer(addr, registry, qc.Ping)
		metricsErrCh := metricsServer.Start()
		sugar.Infof("metrics server listening on http://%s/metrics", addr)

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			case err := <-metricsErrCh:
				if err != nil {
					return fmt.Errorf("metrics server error: %w", err)
				}
				return nil
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()

	sugar.Info("shutting down")
	qc.Shutdown()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			sugar.Warnw("metrics server shutdown error", "error", shutdownErr)
		}
	}

	sugar.Infow("shutdown complete", "handled", sim.handled.Load())
	return err
}
