package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Gylaii/keydb-client-lib/internal/cliconfig"
	"github.com/Gylaii/keydb-client-lib/pkg/keydb"
)

const commandTimeout = 10 * time.Second

type adminFunc func(ctx context.Context, c *cli.Context, admin *keydb.Admin, out output) error

// output writes either JSON or human-readable text.
type output struct {
	w    io.Writer
	json bool
}

func (o output) emit(v any, text func(w io.Writer)) error {
	if o.json {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(o.w, string(data))
		return nil
	}
	text(o.w)
	return nil
}

// withAdmin connects, runs fn and closes the connection.
func withAdmin(fn adminFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := cliconfig.Load(c, "admin")
		if err != nil {
			return err
		}

		qc, err := keydb.New(cfg, keydb.WithLogger(zap.NewNop().Sugar()))
		if err != nil {
			return err
		}
		defer qc.Shutdown()

		ctx, cancel := context.WithTimeout(c.Context, commandTimeout)
		defer cancel()

		if err := qc.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		return fn(ctx, c, qc.Admin(), output{w: c.App.Writer, json: c.Bool("json")})
	}
}

func requireName(c *cli.Context, what string) (string, error) {
	name := c.Args().First()
	if name == "" {
		return "", fmt.Errorf("%s name is required", what)
	}
	return name, nil
}

func handleQueueLength(ctx context.Context, c *cli.Context, admin *keydb.Admin, out output) error {
	queue, err := requireName(c, "queue")
	if err != nil {
		return err
	}

	length, err := admin.QueueLength(ctx, queue)
	if err != nil {
		return err
	}

	return out.emit(map[string]int64{"length": length}, func(w io.Writer) {
		fmt.Fprintf(w, "Queue Length: %d\n", length)
	})
}

func handleQueuePeek(ctx context.Context, c *cli.Context, admin *keydb.Admin, out output) error {
	queue, err := requireName(c, "queue")
	if err != nil {
		return err
	}

	messages, err := admin.QueuePeek(ctx, queue, c.Int64("count"))
	if err != nil {
		return err
	}

	return out.emit(messages, func(w io.Writer) {
		printMessages(w, messages, "Queue is empty")
	})
}

func handleQueuePurge(ctx context.Context, c *cli.Context, admin *keydb.Admin, out output) error {
	queue, err := requireName(c, "queue")
	if err != nil {
		return err
	}

	purged, err := admin.QueuePurge(ctx, queue)
	if err != nil {
		return err
	}

	return out.emit(map[string]int64{"purged": purged}, func(w io.Writer) {
		fmt.Fprintf(w, "Purged %d messages from queue.\n", purged)
	})
}

func handleSubscribers(ctx context.Context, c *cli.Context, admin *keydb.Admin, out output) error {
	if !c.Args().Present() {
		return fmt.Errorf("at least one channel name is required")
	}

	counts, err := admin.ChannelSubscribers(ctx, c.Args().Slice()...)
	if err != nil {
		return err
	}

	return out.emit(counts, func(w io.Writer) {
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Channel\tSubscribers")
		fmt.Fprintln(tw, "-------\t-----------")
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%d\n", name, counts[name])
		}
		tw.Flush()
	})
}

func handleDLQSize(ctx context.Context, c *cli.Context, admin *keydb.Admin, out output) error {
	queue, err := requireName(c, "queue")
	if err != nil {
		return err
	}

	size, err := admin.DLQSize(ctx, queue)
	if err != nil {
		return err
	}

	return out.emit(map[string]int64{"size": size}, func(w io.Writer) {
		fmt.Fprintf(w, "DLQ Size: %d\n", size)
	})
}

func handleDLQPeek(ctx context.Context, c *cli.Context, admin *keydb.Admin, out output) error {
	queue, err := requireName(c, "queue")
	if err != nil {
		return err
	}

	entries, err := admin.DLQPeek(ctx, queue, c.Int64("count"))
	if err != nil {
		return err
	}

	return out.emit(entries, func(w io.Writer) {
		printMessages(w, entries, "DLQ is empty")
	})
}

func handleDLQReplay(ctx context.Context, c *cli.Context, admin *keydb.Admin, out output) error {
	queue, err := requireName(c, "queue")
	if err != nil {
		return err
	}

	replayed, err := admin.DLQReplay(ctx, queue, c.Int64("count"))
	if err != nil {
		return err
	}

	return out.emit(map[string]int{"replayed": replayed}, func(w io.Writer) {
		fmt.Fprintf(w, "Replayed %d messages.\n", replayed)
	})
}

func handleDLQPurge(ctx context.Context, c *cli.Context, admin *keydb.Admin, out output) error {
	queue, err := requireName(c, "queue")
	if err != nil {
		return err
	}

	purged, err := admin.DLQPurge(ctx, queue)
	if err != nil {
		return err
	}

	return out.emit(map[string]int64{"purged": purged}, func(w io.Writer) {
		fmt.Fprintf(w, "Purged %d entries from DLQ.\n", purged)
	})
}

func printMessages(w io.Writer, messages []string, empty string) {
	if len(messages) == 0 {
		fmt.Fprintln(w, empty)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMessage")
	fmt.Fprintln(tw, "-\t-------")
	for i, msg := range messages {
		// Truncate for display
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, msg)
	}
	tw.Flush()
}
