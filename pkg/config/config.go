package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	xutil "StockPulse/pkg/util"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultBatchSize = 50
	defaultMaxWait   = 10 * time.Minute
	defaultExchange  = "NASDAQ"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Collector  struct {
			Enabled   bool          `yaml:"enabled"`
			Topic     string        `yaml:"topic"`
			Interval  time.Duration `yaml:"interval"`
			Threshold int           `yaml:"threshold"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Ingest struct {
		BatchSize       int           `yaml:"batch_size"`
		MaxWait         time.Duration `yaml:"max_wait"`
		DefaultExchange string        `yaml:"default_exchange"`
		MaxRPS          int           `yaml:"max_rps"`
	} `yaml:"ingest"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    struct {
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
		Layered  bool          `yaml:"layered"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		TradesTopic  string   `yaml:"trades_topic"`
		BatchesTopic string   `yaml:"batches_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			Enabled      bool          `yaml:"enabled"`
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		Table            string        `yaml:"table"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		Compression      bool          `yaml:"compression"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers"`
		PollWait   time.Duration `yaml:"poll_wait"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		KeyPrefix  string        `yaml:"key_prefix"`
	} `yaml:"queue"`
	Finnhub struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		RestURL        string        `yaml:"rest_url"`
		ProfileLookup  bool          `yaml:"profile_lookup"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"finnhub"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env (if present), then config from YAML, and overrides
// with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Finnhub.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		c.Postgres.Port = xutil.ParseIntDefault(v, c.Postgres.Port)
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		c.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		c.Postgres.DBName = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			c.Redis.Port = xutil.ParseIntDefault(port, c.Redis.Port)
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TRADES_TOPIC"); v != "" {
		c.Kafka.TradesTopic = v
	}
	if v := os.Getenv("KAFKA_BATCHES_TOPIC"); v != "" {
		c.Kafka.BatchesTopic = v
	}
}

// Validate checks required fields and fills ingest defaults.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if c.Postgres.Host == "" || c.Postgres.DBName == "" {
		return fmt.Errorf("postgres.host and postgres.dbname are required")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required")
	}
	if c.Finnhub.Enabled {
		if len(c.Finnhub.Symbols) == 0 {
			return fmt.Errorf("finnhub.symbols cannot be empty")
		}
		if c.Finnhub.APIKey == "" {
			return fmt.Errorf("finnhub.api_key is required")
		}
	}
	needsBrokers := c.Kafka.Consumer.Enabled || c.Kafka.Producer.Enabled || c.Logging.Collector.Enabled
	if needsBrokers && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && c.Kafka.TradesTopic == "" {
		return fmt.Errorf("kafka.trades_topic is required when the consumer is enabled")
	}

	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = defaultBatchSize
	}
	if c.Ingest.MaxWait <= 0 {
		c.Ingest.MaxWait = defaultMaxWait
	}
	if c.Ingest.DefaultExchange == "" {
		c.Ingest.DefaultExchange = defaultExchange
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Logging.Collector.Enabled && c.Logging.Collector.Topic == "" {
		c.Logging.Collector.Topic = "stockpulse.logs"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Finnhub.WebSocketURL == "" {
		c.Finnhub.WebSocketURL = "wss://ws.finnhub.io"
	}
	if c.Finnhub.RestURL == "" {
		c.Finnhub.RestURL = "https://finnhub.io/api/v1"
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "stock_trades"
	}
	return nil
}

// IsProd reports whether secrets should come from the parameter store.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
