package di

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/repository"
	"StockPulse/internal/handler/api"
	mid "StockPulse/internal/middleware"
	internalrepo "StockPulse/internal/repository"
	"StockPulse/internal/service/finnhub"
	"StockPulse/internal/services/candles"
	"StockPulse/internal/usecase"
	pkgcache "StockPulse/pkg/cache"
	pkgch "StockPulse/pkg/clickhouse"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	pkgpg "StockPulse/pkg/postgres"
	"StockPulse/pkg/queue"
	"StockPulse/pkg/server"
)

// BatchSinks are the secondary destinations of persisted batches.
type BatchSinks []repository.BatchSink

// ProvideLogger creates the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvidePostgresClient resolves secrets, optionally creates the database,
// connects and migrates the schema.
func ProvidePostgresClient(cfg *config.Config, l *applogger.Logger) (*pkgpg.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, err
	}
	if cfg.Postgres.CreateDatabase {
		if err := pkgpg.CreateDatabase(ctx, cfg.Postgres.AdminDSN(), cfg.Postgres.DBName); err != nil {
			return nil, err
		}
	}

	client, err := pkgpg.NewClient(
		pkgpg.WithDSN(cfg.Postgres.DSN()),
		pkgpg.WithMaxConnections(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns),
		pkgpg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pkgpg.WithQueryLogging(!cfg.IsProd(), 200*time.Millisecond),
		pkgpg.WithLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	if err := client.AutoMigrate(internalrepo.Records()...); err != nil {
		_ = client.Close()
		return nil, err
	}

	l.Info("postgres ready",
		applogger.String("host", cfg.Postgres.Host),
		applogger.String("db", cfg.Postgres.DBName))
	return client, nil
}

// ProvideRedisCache connects to Redis. The client is shared by the symbol
// cache and the trade queue.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService puts an in-process LRU in front of Redis when redis.layered is set.
func ProvideCacheService(cfg *config.Config, rc *pkgcache.RedisCache) pkgcache.Service {
	if !cfg.Redis.Layered {
		return rc
	}
	ttl := cfg.Redis.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return pkgcache.NewLayeredCache(rc,
		pkgcache.WithLayeredMemorySize(10_000),
		pkgcache.WithLayeredMemoryTTL(ttl),
	)
}

func ProvideInstrumentCache(svc pkgcache.Service, cfg *config.Config) repository.InstrumentCache {
	return internalrepo.NewCachedInstruments(svc, cfg.Redis.CacheTTL)
}

func ProvideInstrumentStore(pg *pkgpg.Client) repository.InstrumentStore {
	return internalrepo.NewPostgresInstrumentStore(pg.DB())
}

func ProvideTradeStore(pg *pkgpg.Client) repository.TradeStore {
	return internalrepo.NewPostgresTradeStore(pg.DB())
}

// ProvideProfileLookup returns nil unless finnhub.profile_lookup is on.
func ProvideProfileLookup(cfg *config.Config) repository.ProfileLookup {
	if !cfg.Finnhub.Enabled || !cfg.Finnhub.ProfileLookup || cfg.Finnhub.APIKey == "" {
		return nil
	}
	client := xhttp.NewClient(
		xhttp.WithTimeout(5*time.Second),
		xhttp.WithRetry(2, 250*time.Millisecond),
	)
	return finnhub.NewProfileClient(client, cfg.Finnhub.RestURL, cfg.Finnhub.APIKey)
}

// ProvideClickHouseClient returns nil when the ClickHouse mirror is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithCompression(cfg.ClickHouse.Compression),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.MirrorSchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer returns nil unless the batch publisher or the log
// collector needs it.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Producer.Enabled && !cfg.Logging.Collector.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideBatchSinks collects the enabled secondary sinks.
func ProvideBatchSinks(cfg *config.Config, ch *pkgch.Client, producer *pkgkafka.Producer) BatchSinks {
	var sinks BatchSinks
	if ch != nil {
		table := cfg.ClickHouse.Database + "." + cfg.ClickHouse.Table
		sinks = append(sinks, internalrepo.NewClickHouseMirror(ch.DB(), table))
	}
	if producer != nil && cfg.Kafka.Producer.Enabled && cfg.Kafka.BatchesTopic != "" {
		sinks = append(sinks, internalrepo.NewBatchPublisher(producer, cfg.Kafka.BatchesTopic))
	}
	return sinks
}

func ProvideBatchPersister(store repository.TradeStore, m repository.Metrics, l *applogger.Logger, sinks BatchSinks) *usecase.BatchPersister {
	return usecase.NewBatchPersister(store, m, l, sinks...)
}

func ProvideSymbolResolver(
	cache repository.InstrumentCache,
	store repository.InstrumentStore,
	profiles repository.ProfileLookup,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.SymbolResolver {
	opts := []usecase.ResolverOption{usecase.WithDefaultExchange(cfg.Ingest.DefaultExchange)}
	if profiles != nil {
		opts = append(opts, usecase.WithProfileLookup(profiles))
	}
	return usecase.NewSymbolResolver(cache, store, l, opts...)
}

func ProvideBatchBuffer(
	resolver *usecase.SymbolResolver,
	persister *usecase.BatchPersister,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.BatchBuffer {
	return usecase.NewBatchBuffer(resolver, persister, m, l, cfg.Ingest.BatchSize, cfg.Ingest.MaxWait)
}

// ProvideRealtimePipeline validates and throttles websocket events before the buffer.
func ProvideRealtimePipeline(buffer *usecase.BatchBuffer, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *mid.RealtimePipeline {
	return mid.NewRealtimePipeline(buffer, m, l, mid.WithMaxRPS(cfg.Ingest.MaxRPS))
}

// ProvideTradeCollector returns nil when the Finnhub feed is disabled.
func ProvideTradeCollector(cfg *config.Config, pipe *mid.RealtimePipeline, m repository.Metrics, l *applogger.Logger) *usecase.TradeCollector {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	stream := finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Finnhub.Symbols,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		l,
	)
	return usecase.NewTradeCollector(stream, pipe, m, l)
}

// ProvideKafkaConsumer returns nil when the Kafka trades feed is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.NewLoggingHook(l, time.Second)))
	return consumer, nil
}

func ProvideKafkaTradesHandler(cfg *config.Config, buffer *usecase.BatchBuffer, m repository.Metrics) *usecase.KafkaTradesHandler {
	return usecase.NewKafkaTradesHandler(cfg.Kafka.TradesTopic, buffer, m)
}

// ProvideTradeQueue returns nil when the Redis list feed is disabled.
func ProvideTradeQueue(cfg *config.Config, rc *pkgcache.RedisCache, buffer *usecase.BatchBuffer, m repository.Metrics, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled {
		return nil
	}
	job := usecase.NewQueueTradeJob(buffer, m)
	return queue.NewRedisConsumer(l, queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		PollWait:   cfg.Queue.PollWait,
	}, rc.Client(), []queue.Job{job}, queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
}

func ProvideCandlesUseCase(instruments repository.InstrumentStore, trades repository.TradeStore) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(instruments, trades, candles.NewAggregator())
}

// ProvideCandlesHandler builds the query API with readiness checks for every store in use.
func ProvideCandlesHandler(
	l *applogger.Logger,
	uc *usecase.CandlesUseCase,
	cfg *config.Config,
	pg *pkgpg.Client,
	rc *pkgcache.RedisCache,
	ch *pkgch.Client,
) *api.CandlesEchoHandler {
	checks := map[string]api.Pinger{
		"postgres": pg,
		"redis":    rc,
	}
	if ch != nil {
		checks["clickhouse"] = ch
	}
	limit := api.RateLimit{
		Capacity:     cfg.Server.RateLimit.Capacity,
		RefillPerSec: cfg.Server.RateLimit.RefillPerSec,
	}
	return api.NewCandlesEchoHandler(l, uc, limit, checks)
}

func ProvideHTTPServer(h *api.CandlesEchoHandler, cfg *config.Config, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp assembles the application, attaches the enabled feeds and
// registers shutdown closers. Closers run in reverse order, so the log
// collector is detached before the producer it publishes through.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	buffer *usecase.BatchBuffer,
	persister *usecase.BatchPersister,
	httpServer *xhttp.Server,
	collector *usecase.TradeCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTradesHandler,
	tradeQueue *queue.RedisQueue,
	pg *pkgpg.Client,
	cacheSvc pkgcache.Service,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(cfg, l, buffer, persister, httpServer)
	if collector != nil {
		app.WithCollector(collector)
	}
	if consumer != nil {
		app.WithKafkaConsumer(consumer, kh)
	}
	if tradeQueue != nil {
		app.WithQueue(tradeQueue)
	}

	app.AddCloser("postgres", pg.Close)
	// closes the redis client, and the memory tier when layered
	app.AddCloser("cache", cacheSvc.Close)
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
	}

	if cfg.Logging.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.Threshold,
			Topic:          cfg.Logging.Collector.Topic,
			Service:        "stockpulse",
			Publisher:      producer,
		})
		app.AddCloser("log collector", func() error {
			l.RemoveCollector()
			return nil
		})
	}
	return app
}
