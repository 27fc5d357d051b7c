package api

import (
	"context"
	"net/http"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/service/metrics"
	"StockPulse/internal/service/ratelimit"
	xhttp "StockPulse/pkg/http"
	applogger "StockPulse/pkg/logger"
	xutil "StockPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// CandleQuery is the read side the handler depends on.
type CandleQuery interface {
	GetCandlesticks(ctx context.Context, symbol string, start, end time.Time) ([]models.Candlestick, error)
}

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RateLimit configures the per-client token bucket on the API group.
type RateLimit struct {
	Capacity     float64
	RefillPerSec float64
}

// CandlesEchoHandler serves candlestick queries and health probes.
type CandlesEchoHandler struct {
	logger *applogger.Logger
	query  CandleQuery
	rl     *ratelimit.Limiter
	limit  RateLimit
	checks map[string]Pinger
}

func NewCandlesEchoHandler(logger *applogger.Logger, query CandleQuery, limit RateLimit, checks map[string]Pinger) *CandlesEchoHandler {
	metrics.Register()
	return &CandlesEchoHandler{
		logger: logger,
		query:  query,
		rl:     ratelimit.New(),
		limit:  limit,
		checks: checks,
	}
}

func (h *CandlesEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)

	g := e.Group("/api/stocks", h.rateLimit)
	g.GET("/:symbol/candles", h.Candles)
	g.GET("/:symbol/getCandleStickData", h.Candles)
}

func (h *CandlesEchoHandler) Candles(c echo.Context) error {
	start := time.Now()
	endpoint := "candles"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	candles, err := h.query.GetCandlesticks(c.Request().Context(), req.Symbol,
		xutil.FromMillis(req.StartDate), xutil.FromMillis(req.EndDate))
	if err != nil {
		kind := models.Kind(err)
		if kind == models.ErrNotFound {
			metrics.APIErrors.WithLabelValues(endpoint, "not_found").Inc()
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("stock %s not found", req.Symbol).WithError(err))
		}
		if kind == models.ErrTransientIO {
			metrics.APIErrors.WithLabelValues(endpoint, "transient").Inc()
		} else {
			metrics.APIErrors.WithLabelValues(endpoint, "internal").Inc()
		}
		h.logger.Error("candles usecase error",
			applogger.String("symbol", req.Symbol),
			applogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, xhttp.InternalError("Something went wrong").WithError(err))
	}

	metrics.CandlesReturned.WithLabelValues(endpoint).Observe(float64(len(candles)))
	return xhttp.SuccessResponse(c, &models.CandlesResponse{
		Symbol:    req.Symbol,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Count:     len(candles),
		Candles:   candles,
	})
}

func (h *CandlesEchoHandler) Healthz(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *CandlesEchoHandler) Readyz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	ready := true
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", applogger.String("dependency", name), applogger.Error(err))
			status[name] = err.Error()
			ready = false
			continue
		}
		status[name] = "ok"
	}
	if !ready {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *CandlesEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limit.Capacity <= 0 {
			return next(c)
		}
		if !h.rl.Allow(c.RealIP(), h.limit.Capacity, h.limit.RefillPerSec) {
			h.logger.Warn("api rate_limited", applogger.String("remote", c.RealIP()))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many requests"))
		}
		return next(c)
	}
}
