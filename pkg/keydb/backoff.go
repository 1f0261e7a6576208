package keydb

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newRetryBackOff returns the delay policy applied after a failed blocking pop.
// The delay is constant at RetryDelay unless RetryMaxDelay is larger, in which
// case it doubles per consecutive failure up to RetryMaxDelay.
func newRetryBackOff(cfg QueueConfig) backoff.BackOff {
	if cfg.RetryMaxDelay <= cfg.RetryDelay {
		return backoff.NewConstantBackOff(cfg.RetryDelay)
	}

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.RetryDelay,
		MaxInterval:         cfg.RetryMaxDelay,
		Multiplier:          2,
		RandomizationFactor: 0,
		MaxElapsedTime:      0, // never give up
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	bo.Reset()
	return bo
}

// nextDelay never returns backoff.Stop; a stopped policy falls back to base.
func nextDelay(bo backoff.BackOff, base time.Duration) time.Duration {
	d := bo.NextBackOff()
	if d == backoff.Stop {
		return base
	}
	return d
}
