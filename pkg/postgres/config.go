package postgres

import (
	"time"

	applogger "StockPulse/pkg/logger"
)

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds Postgres pool configuration.
type ClientConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
	LogQueries      bool
	Logger          *applogger.Logger
}

// WithDSN sets the key/value or URL connection string.
func WithDSN(dsn string) ClientOption {
	return func(c *ClientConfig) {
		c.DSN = dsn
	}
}

// WithMaxConnections sets pool limits.
func WithMaxConnections(maxOpen, maxIdle int) ClientOption {
	return func(c *ClientConfig) {
		if maxOpen > 0 {
			c.MaxOpenConns = maxOpen
		}
		if maxIdle > 0 {
			c.MaxIdleConns = maxIdle
		}
	}
}

// WithConnMaxLifetime sets how long a pooled connection may be reused.
func WithConnMaxLifetime(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if d > 0 {
			c.ConnMaxLifetime = d
		}
	}
}

// WithQueryLogging turns on gorm's statement logger; slow queries are logged as warnings.
func WithQueryLogging(enabled bool, slow time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.LogQueries = enabled
		c.SlowThreshold = slow
	}
}

// WithLogger routes gorm's statement log through l.
func WithLogger(l *applogger.Logger) ClientOption {
	return func(c *ClientConfig) {
		c.Logger = l
	}
}
