package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Gylaii/keydb-client-lib/internal/cliconfig"
	"github.com/Gylaii/keydb-client-lib/internal/logging"
	"github.com/Gylaii/keydb-client-lib/pkg/keydb"
)

func main() {
	app := &cli.App{
		Name:  "producer",
		Usage: "Publish to a channel or push to a queue",
		Commands: []*cli.Command{
			{
				Name:      "publish",
				Usage:     "PUBLISH each message to a channel",
				ArgsUsage: "[message...]",
				Flags: append(cliconfig.StoreFlags(), &cli.StringFlag{
					Name:     "channel",
					Aliases:  []string{"c"},
					Usage:    "Channel name",
					Required: true,
				}),
				Action: func(c *cli.Context) error {
					return produce(c, "channel", func(qc *keydb.QueueClient, name, msg string) {
						qc.Publish(name, msg)
					})
				},
			},
			{
				Name:      "push",
				Usage:     "RPUSH each message to a queue",
				ArgsUsage: "[message...]",
				Flags: append(cliconfig.StoreFlags(), &cli.StringFlag{
					Name:     "queue",
					Aliases:  []string{"q"},
					Usage:    "Queue name",
					Required: true,
				}),
				Action: func(c *cli.Context) error {
					return produce(c, "queue", func(qc *keydb.QueueClient, name, msg string) {
						qc.Enqueue(name, msg)
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type sendFunc func(qc *keydb.QueueClient, name, msg string)

// produce sends the positional arguments, or stdin lines when there are none.
func produce(c *cli.Context, target string, send sendFunc) error {
	cfg, err := cliconfig.Load(c, "producer")
	if err != nil {
		return err
	}

	sugar, err := logging.New(c.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	qc, err := keydb.New(cfg, keydb.WithLogger(sugar))
	if err != nil {
		return err
	}
	// Shutdown flushes everything still queued.
	defer qc.Shutdown()

	pingCtx, cancel := context.WithTimeout(c.Context, 5*time.Second)
	defer cancel()
	if err := qc.Ping(pingCtx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	name := c.String(target)

	if c.Args().Present() {
		for _, msg := range c.Args().Slice() {
			send(qc, name, msg)
		}
		fmt.Printf("Sent %d message(s) to %s %q\n", c.Args().Len(), target, name)
		return nil
	}

	fmt.Printf("# Producer ready. Enter one message per line. Press Ctrl+D to exit.\n")
	fmt.Printf("# Sending to %s %q (namespace=%q)\n\n", target, name, cfg.Namespace)

	n, err := sendLines(os.Stdin, func(msg string) { send(qc, name, msg) }, sugar)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	fmt.Printf("Sent %d message(s)\n", n)
	return nil
}

// sendLines calls send for every non-blank line of r.
func sendLines(r io.Reader, send func(string), sugar *zap.SugaredLogger) (int, error) {
	n := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		send(line)
		n++
		sugar.Debugw("queued", "message", line)
	}
	return n, scanner.Err()
}
