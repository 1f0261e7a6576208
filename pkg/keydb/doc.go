// Package keydb provides a thin pub/sub and list-queue client for KeyDB and
// other Redis-protocol stores.
//
// A QueueClient owns one command connection and one pub/sub connection for
// its whole lifetime. Every operation is fire-and-forget: failures are logged,
// never returned.
//
// # Quick Start
//
//	cfg, _ := keydb.ConfigFromEnv()
//	qc, err := keydb.New(cfg, keydb.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer qc.Shutdown()
//
//	qc.Subscribe("events", func(ctx context.Context, msg string) error {
//	    fmt.Println("event:", msg)
//	    return nil
//	})
//	qc.Publish("events", "hello")
//
//	qc.DequeueLoop(ctx, "jobs", func(ctx context.Context, msg string) error {
//	    return process(msg)
//	})
//	qc.Enqueue("jobs", "job-1")
//
// # Queues
//
// Enqueue appends with RPUSH and DequeueLoop pops with BLPOP, so a single
// producer sees FIFO delivery. A store error pauses the loop for the retry
// delay (one second by default) before the next pop. A failing handler is
// logged and, when the dead-letter list is enabled, its message is appended
// to "{queue}:dlq".
//
// # Configuration
//
// ConfigFromEnv reads KEYDB_HOST (default "localhost"), KEYDB_PORT (default
// 6379) and the other KEYDB_* variables listed on Config.
package keydb
