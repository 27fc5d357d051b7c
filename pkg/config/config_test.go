package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"StockPulse/pkg/config"
)

const minimalYAML = `
environment: dev
server:
  port: 8080
postgres:
  host: localhost
  port: 5432
  dbname: stockpulse
redis:
  host: localhost
  port: 6379
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// go test -v --run ^TestLoadAppliesIngestDefaults$
func TestLoadAppliesIngestDefaults(t *testing.T) {
	c, err := config.Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Ingest.BatchSize != 50 {
		t.Fatalf("batch size = %d, want 50", c.Ingest.BatchSize)
	}
	if c.Ingest.MaxWait != 10*time.Minute {
		t.Fatalf("max wait = %s, want 10m", c.Ingest.MaxWait)
	}
	if c.Ingest.DefaultExchange != "NASDAQ" {
		t.Fatalf("exchange = %q, want NASDAQ", c.Ingest.DefaultExchange)
	}
}

// go test -v --run ^TestLoadRejectsMissingFinnhubKey$
func TestLoadRejectsMissingFinnhubKey(t *testing.T) {
	body := minimalYAML + `
finnhub:
  enabled: true
  symbols: ["AAPL"]
`
	if _, err := config.Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected validation error for missing api key")
	}
}

// go test -v --run ^TestLoadWithEnvOverrides$
func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("REDIS_ADDR", "cache.internal:6380")
	t.Setenv("SYMBOLS", "AAPL,TSLA")

	c, err := config.LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Postgres.Host != "db.internal" || c.Postgres.Port != 6543 {
		t.Fatalf("postgres override not applied: %s:%d", c.Postgres.Host, c.Postgres.Port)
	}
	if c.Redis.Host != "cache.internal" || c.Redis.Port != 6380 {
		t.Fatalf("redis override not applied: %s:%d", c.Redis.Host, c.Redis.Port)
	}
	if len(c.Finnhub.Symbols) != 2 || c.Finnhub.Symbols[1] != "TSLA" {
		t.Fatalf("symbols = %v", c.Finnhub.Symbols)
	}
}

// go test -v --run ^TestPostgresDSN$
func TestPostgresDSN(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "pw",
		DBName:   "stockpulse",
		TimeZone: "UTC",
	}
	want := "host=localhost port=5432 user=postgres password=pw dbname=stockpulse sslmode=disable TimeZone=UTC"
	if got := cfg.DSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
	if got := cfg.AdminDSN(); got == want {
		t.Fatalf("admin dsn should target the maintenance database")
	}
}
