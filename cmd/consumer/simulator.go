package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gylaii/keydb-client-lib/pkg/keydb"
)

// simulator prints every message and fails or delays some of them on request.
type simulator struct {
	failRate    float64
	processTime time.Duration
	rand        func() float64

	mu  sync.Mutex // guards out
	out io.Writer

	handled atomic.Int64
}

func newSimulator(failRate float64, processTime time.Duration, out io.Writer) *simulator {
	return &simulator{
		failRate:    failRate,
		processTime: processTime,
		rand:        rand.Float64,
		out:         out,
	}
}

func (s *simulator) handler(source, name string) keydb.Handler {
	return func(ctx context.Context, message string) error {
		timestamp := time.Now().Format(time.RFC3339)
		s.printf("[%s] <- %s %s | %s\n", timestamp, source, name, message)
		s.handled.Add(1)

		if s.processTime > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.processTime):
			}
		}

		if s.failRate > 0 && s.rand() < s.failRate {
			err := fmt.Errorf("simulated error (fail-rate=%.2f)", s.failRate)
			s.printf("[%s] FAIL %s %s: %v\n", timestamp, source, name, err)
			return err
		}

		s.printf("[%s] OK %s %s\n", timestamp, source, name)
		return nil
	}
}

func (s *simulator) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
