package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"StockPulse/internal/usecase"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/queue"
)

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	buffer     *usecase.BatchBuffer
	persister  *usecase.BatchPersister
	httpServer *xhttp.Server

	// optional feeds
	collector     *usecase.TradeCollector
	consumer      *pkgkafka.Consumer
	tradesHandler pkgkafka.MessageHandler
	queue         *queue.RedisQueue

	closers []closer
}

// New creates a new App instance with the always-on components.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	buffer *usecase.BatchBuffer,
	persister *usecase.BatchPersister,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		logger:     l,
		buffer:     buffer,
		persister:  persister,
		httpServer: httpServer,
	}
}

// WithCollector attaches the websocket feed.
func (a *App) WithCollector(c *usecase.TradeCollector) *App {
	a.collector = c
	return a
}

// WithKafkaConsumer attaches the Kafka trades feed.
func (a *App) WithKafkaConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) *App {
	a.consumer = c
	a.tradesHandler = h
	return a
}

// WithQueue attaches the Redis list feed.
func (a *App) WithQueue(q *queue.RedisQueue) *App {
	a.queue = q
	return a
}

// AddCloser registers a resource released after everything else stopped.
// Closers run in reverse registration order.
func (a *App) AddCloser(name string, fn func() error) {
	if fn == nil {
		return
	}
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start brings up the HTTP server and every configured feed.
func (a *App) Start(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.logger.Error("trade queue start error", applogger.Error(err))
			return err
		}
		a.logger.Info("trade queue started")
	}

	if a.consumer != nil && a.tradesHandler != nil {
		a.consumer.RegisterHandler(a.tradesHandler)
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.tradesHandler.Topic()))
	}

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			// the other feeds can still run; the stream reconnects only once started
			a.logger.Error("collector start error", applogger.Error(err))
		} else {
			a.logger.Info("collector started", applogger.Strings("symbols", a.cfg.Finnhub.Symbols))
		}
	}
	return nil
}

// Shutdown stops feeds, drains the buffer, stops HTTP, then releases stores.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.logger.Info("shutting down")

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.logger.Warn("trade queue stop error", applogger.Error(err))
		}
	}

	if err := a.buffer.Close(ctx); err != nil {
		a.logger.Error("final buffer flush failed", applogger.Error(err))
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	a.persister.Close()

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
