package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestBuildOptions(t *testing.T) {
	cfg := ClientConfig{
		Host:         "ch.local",
		Port:         8123,
		Database:     "stockpulse",
		User:         "u",
		Password:     "p",
		DialTimeout:  time.Second,
		UseHTTP:      true,
		AsyncInsert:  true,
		WaitForAsync: true,
		MaxExecTime:  30 * time.Second,
		Compress:     true,
	}

	opts := buildOptions(cfg)

	assert.Equal(t, []string{"ch.local:8123"}, opts.Addr)
	assert.Equal(t, ch.HTTP, opts.Protocol)
	assert.Equal(t, "stockpulse", opts.Auth.Database)
	assert.Equal(t, "u", opts.Auth.Username)
	assert.Equal(t, 30, opts.Settings["max_execution_time"])
	assert.Equal(t, 1, opts.Settings["async_insert"])
	assert.Equal(t, 1, opts.Settings["wait_for_async_insert"])
	if assert.NotNil(t, opts.Compression) {
		assert.Equal(t, ch.CompressionLZ4, opts.Compression.Method)
	}
}

func TestBuildOptionsNativeDefaults(t *testing.T) {
	opts := buildOptions(ClientConfig{Host: "localhost", Port: 9000})

	assert.Equal(t, ch.Native, opts.Protocol)
	assert.Nil(t, opts.Compression)
	assert.Empty(t, opts.Settings)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
