package keydb

import (
	"context"
	"net"
	"sync"

	"github.com/redis/go-redis/v9"
)

// popConn is the connection a single dequeue loop blocks on. abort closes the
// socket underneath go-redis, so a BLPOP in flight returns immediately instead
// of running to its timeout.
type popConn struct {
	client *redis.Client

	mu      sync.Mutex
	conn    net.Conn
	aborted bool
}

// newPopConn returns a one-connection client sharing the command connection's
// options. Blocking pops stay off the shared pool.
func (c *QueueClient) newPopConn() *popConn {
	opts := *c.client.Options()
	opts.PoolSize = 1
	opts.MinIdleConns = 0
	opts.MaxIdleConns = 0

	dial := opts.Dialer
	if dial == nil {
		base := opts
		dial = redis.NewDialer(&base)
	}

	p := &popConn{}
	opts.Dialer = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return p.track(conn)
	}
	p.client = redis.NewClient(&opts)

	return p
}

func (p *popConn) track(conn net.Conn) (net.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.aborted {
		_ = conn.Close()
		return nil, net.ErrClosed
	}
	p.conn = conn
	return conn, nil
}

// abort closes the current socket and refuses new dials. Safe to call more
// than once and from any goroutine.
func (p *popConn) abort() {
	p.mu.Lock()
	p.aborted = true
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (p *popConn) close() error {
	p.abort()
	return p.client.Close()
}
