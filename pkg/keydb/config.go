package keydb

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config configures a QueueClient. Env tags are read by ConfigFromEnv.
type Config struct {
	Namespace       string        `env:"KEYDB_NAMESPACE"`
	ShutdownTimeout time.Duration `env:"KEYDB_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	Store           StoreConfig
	Queue           QueueConfig
	Subscriber      SubscriberConfig
	DeadLetter      DeadLetterConfig
}

type StoreConfig struct {
	Host         string        `env:"KEYDB_HOST"          envDefault:"localhost"`
	Port         int           `env:"KEYDB_PORT"          envDefault:"6379"`
	Password     string        `env:"KEYDB_PASSWORD"`
	DB           int           `env:"KEYDB_DB"            envDefault:"0"`
	UseTLS       bool          `env:"KEYDB_USE_TLS"       envDefault:"false"`
	PoolSize     int           `env:"KEYDB_POOL_SIZE"     envDefault:"10"`
	ReadTimeout  time.Duration `env:"KEYDB_READ_TIMEOUT"  envDefault:"3s"`
	WriteTimeout time.Duration `env:"KEYDB_WRITE_TIMEOUT" envDefault:"3s"`
	ClientName   string        `env:"KEYDB_CLIENT_NAME"` // sent with CLIENT SETNAME when set
	SendBuffer   int           `env:"KEYDB_SEND_BUFFER"   envDefault:"1024"` // queued PUBLISH/RPUSH before callers block
}

type QueueConfig struct {
	BlockTimeout  time.Duration `env:"KEYDB_BLOCK_TIMEOUT"   envDefault:"10s"` // BLPOP timeout, whole seconds
	RetryDelay    time.Duration `env:"KEYDB_RETRY_DELAY"     envDefault:"1s"`
	RetryMaxDelay time.Duration `env:"KEYDB_RETRY_MAX_DELAY"` // > RetryDelay switches to exponential backoff
}

type SubscriberConfig struct {
	DispatchBuffer int `env:"KEYDB_DISPATCH_BUFFER" envDefault:"100"`
}

type DeadLetterConfig struct {
	Enabled bool  `env:"KEYDB_DLQ_ENABLED" envDefault:"false"`
	MaxLen  int64 `env:"KEYDB_DLQ_MAX_LEN" envDefault:"10000"` // 0 disables trimming
}

// DefaultConfig returns a Config with all default values.
func DefaultConfig() Config {
	return Config{
		ShutdownTimeout: 30 * time.Second,
		Store: StoreConfig{
			Host:         "localhost",
			Port:         6379,
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			SendBuffer:   1024,
		},
		Queue: QueueConfig{
			BlockTimeout: 10 * time.Second,
			RetryDelay:   time.Second,
		},
		Subscriber: SubscriberConfig{
			DispatchBuffer: 100,
		},
		DeadLetter: DeadLetterConfig{
			MaxLen: 10000,
		},
	}
}

// ConfigFromEnv reads the configuration from KEYDB_* environment variables.
// Unset variables keep their defaults.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("keydb: parse env config: %w", err)
	}
	return cfg, nil
}

// Validate returns the first configuration problem found, or nil.
func (c Config) Validate() error {
	if c.Store.Host == "" {
		return errors.New("keydb: store host must not be empty")
	}

	if c.Store.Port < 1 || c.Store.Port > 65535 {
		return fmt.Errorf("keydb: store port %d out of range", c.Store.Port)
	}

	if c.Store.SendBuffer <= 0 {
		return errors.New("keydb: store send_buffer must be > 0")
	}

	if c.Queue.BlockTimeout < time.Second {
		return errors.New("keydb: queue block_timeout must be >= 1s")
	}

	if c.Queue.RetryDelay <= 0 {
		return errors.New("keydb: queue retry_delay must be > 0")
	}

	if c.Queue.RetryMaxDelay != 0 && c.Queue.RetryMaxDelay < c.Queue.RetryDelay {
		return errors.New("keydb: queue retry_max_delay must be >= retry_delay")
	}

	if c.Subscriber.DispatchBuffer <= 0 {
		return errors.New("keydb: subscriber dispatch_buffer must be > 0")
	}

	if c.DeadLetter.MaxLen < 0 {
		return errors.New("keydb: dead_letter max_len must be >= 0")
	}

	return nil
}

// WithDefaults returns a copy of c with zero-value fields replaced by defaults.
// Booleans and Namespace are left as set.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()
	result := c

	if result.ShutdownTimeout == 0 {
		result.ShutdownTimeout = defaults.ShutdownTimeout
	}

	if result.Store.Host == "" {
		result.Store.Host = defaults.Store.Host
	}
	if result.Store.Port == 0 {
		result.Store.Port = defaults.Store.Port
	}
	if result.Store.PoolSize == 0 {
		result.Store.PoolSize = defaults.Store.PoolSize
	}
	if result.Store.ReadTimeout == 0 {
		result.Store.ReadTimeout = defaults.Store.ReadTimeout
	}
	if result.Store.WriteTimeout == 0 {
		result.Store.WriteTimeout = defaults.Store.WriteTimeout
	}
	if result.Store.SendBuffer == 0 {
		result.Store.SendBuffer = defaults.Store.SendBuffer
	}

	if result.Queue.BlockTimeout == 0 {
		result.Queue.BlockTimeout = defaults.Queue.BlockTimeout
	}
	if result.Queue.RetryDelay == 0 {
		result.Queue.RetryDelay = defaults.Queue.RetryDelay
	}

	if result.Subscriber.DispatchBuffer == 0 {
		result.Subscriber.DispatchBuffer = defaults.Subscriber.DispatchBuffer
	}

	return result
}

// Addr returns the store address as host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Store.Host, strconv.Itoa(c.Store.Port))
}

func (c Config) redisOptions() *redis.Options {
	opts := &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Store.Password,
		DB:           c.Store.DB,
		PoolSize:     c.Store.PoolSize,
		ReadTimeout:  c.Store.ReadTimeout,
		WriteTimeout: c.Store.WriteTimeout,
		ClientName:   c.Store.ClientName,
	}

	if c.Store.UseTLS {
		opts.TLSConfig = &tls.Config{
			ServerName: c.Store.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	return opts
}

// GenerateClientName returns a connection name unique to this process.
// Format: {prefix}-{hostname}-{pid}-{short_uuid}
func GenerateClientName(prefix string) string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return fmt.Sprintf("%s-%s-%d-%s", prefix, hostname, os.Getpid(), uuid.New().String()[:8])
}
