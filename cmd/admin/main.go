package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Gylaii/keydb-client-lib/internal/cliconfig"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "admin",
		Usage: "Inspect queues, channels and dead-letter lists",
		Flags: append(cliconfig.StoreFlags(), &cli.BoolFlag{
			Name:  "json",
			Usage: "Output as JSON",
		}),
		Commands: []*cli.Command{
			{
				Name:  "queue",
				Usage: "Queue inspection",
				Subcommands: []*cli.Command{
					{
						Name:      "length",
						Usage:     "Show queue depth",
						ArgsUsage: "<queue>",
						Action:    withAdmin(handleQueueLength),
					},
					{
						Name:      "peek",
						Usage:     "Show the next N messages without removing them",
						ArgsUsage: "<queue>",
						Flags:     []cli.Flag{countFlag()},
						Action:    withAdmin(handleQueuePeek),
					},
					{
						Name:      "purge",
						Usage:     "Delete every waiting message",
						ArgsUsage: "<queue>",
						Action:    withAdmin(handleQueuePurge),
					},
				},
			},
			{
				Name:      "subscribers",
				Usage:     "Show subscriber counts per channel",
				ArgsUsage: "<channel...>",
				Action:    withAdmin(handleSubscribers),
			},
			{
				Name:  "dlq",
				Usage: "Dead-letter list management",
				Subcommands: []*cli.Command{
					{
						Name:      "size",
						Usage:     "Show DLQ depth",
						ArgsUsage: "<queue>",
						Action:    withAdmin(handleDLQSize),
					},
					{
						Name:      "peek",
						Usage:     "Show N DLQ entries",
						ArgsUsage: "<queue>",
						Flags:     []cli.Flag{countFlag()},
						Action:    withAdmin(handleDLQPeek),
					},
					{
						Name:      "replay",
						Usage:     "Move N entries back to the queue",
						ArgsUsage: "<queue>",
						Flags:     []cli.Flag{countFlag()},
						Action:    withAdmin(handleDLQReplay),
					},
					{
						Name:      "purge",
						Usage:     "Purge all DLQ entries",
						ArgsUsage: "<queue>",
						Action:    withAdmin(handleDLQPurge),
					},
				},
			},
		},
	}
}

func countFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:    "count",
		Aliases: []string{"n"},
		Usage:   "Number of entries",
		Value:   10,
	}
}
