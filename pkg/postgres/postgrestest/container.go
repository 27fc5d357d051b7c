// Package postgrestest starts a disposable Postgres for integration tests.
package postgrestest

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container is a running Postgres test container.
type Container struct {
	container *postgres.PostgresContainer
	DSN       string
}

// Start runs postgres:15-alpine and returns its connection string.
func Start(ctx context.Context) (*Container, error) {
	c, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("stockpulse_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &Container{container: c, DSN: dsn}, nil
}

// Close terminates the container.
func (c *Container) Close(ctx context.Context) error {
	return c.container.Terminate(ctx)
}
