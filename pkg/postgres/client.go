package postgres

import (
	"context"
	"fmt"
	"time"

	applogger "StockPulse/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client manages a gorm handle over a Postgres connection pool.
type Client struct {
	db *gorm.DB
}

// NewClient opens the pool and checks connectivity.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &ClientConfig{
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		SlowThreshold:   200 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	level := gormlogger.Silent
	if cfg.LogQueries {
		level = gormlogger.Warn
	}
	if cfg.Logger == nil {
		cfg.Logger = applogger.Nop()
	}
	gl := gormlogger.New(gormWriter{cfg.Logger}, gormlogger.Config{
		SlowThreshold:             cfg.SlowThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: gl, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres raw db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return &Client{db: db}, nil
}

// DB returns the gorm handle.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// AutoMigrate creates or updates tables for the given records.
func (c *Client) AutoMigrate(records ...interface{}) error {
	if err := c.db.AutoMigrate(records...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Ping performs health check.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return sqlDB.Close()
}

// gormWriter adapts the application logger to gorm's Printf writer.
type gormWriter struct {
	l *applogger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.l.Warn("gorm", applogger.String("detail", fmt.Sprintf(format, args...)))
}
