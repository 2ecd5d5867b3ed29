package api

import (
	"time"

	models "LendPulse/internal/domain/models"
	svcmetrics "LendPulse/internal/service/metrics"
	"LendPulse/internal/usecase"
	xhttp "LendPulse/pkg/http"
	xlogger "LendPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HealthEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type HealthEchoHandler struct {
	logger *xlogger.Logger
	agg    *usecase.HealthAggregator
}

func NewHealthEchoHandler(logger *xlogger.Logger, agg *usecase.HealthAggregator) *HealthEchoHandler {
	return &HealthEchoHandler{logger: logger, agg: agg}
}

func (h *HealthEchoHandler) RegisterRoutes(e *echo.Echo) {
	svcmetrics.Register()
	g := e.Group("/api")
	g.GET("/obligations/:address/health", h.Health)
	g.GET("/obligations/:address/history", h.History)
	g.GET("/markets/:market/summary", h.MarketSummary)
	g.GET("/markets/:market/liquidatable", h.Liquidatable)
}

func observe(endpoint string, start time.Time, err error) {
	svcmetrics.HealthAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.HealthAPIErrors.WithLabelValues(endpoint).Inc()
	}
}

func (h *HealthEchoHandler) Health(c echo.Context) error {
	req := &models.HealthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	start := time.Now()
	res, err := h.agg.CurrentHealth(c.Request().Context(), req.Address, req.Refresh)
	observe("health", start, err)
	if err != nil {
		h.logger.Error("health usecase error", xlogger.String("address", req.Address), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, res)
}

func (h *HealthEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	from := xhttp.ParseTimeDefault(req.From, to.Add(-24*time.Hour))

	start := time.Now()
	res, err := h.agg.History(c.Request().Context(), req.Address, from, to, req.Limit)
	observe("history", start, err)
	if err != nil {
		h.logger.Error("history usecase error", xlogger.String("address", req.Address), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *HealthEchoHandler) MarketSummary(c echo.Context) error {
	req := &models.MarketRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	start := time.Now()
	res, err := h.agg.MarketSummary(c.Request().Context(), req.Market)
	observe("market_summary", start, err)
	if err != nil {
		h.logger.Error("market summary usecase error", xlogger.String("market", req.Market), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *HealthEchoHandler) Liquidatable(c echo.Context) error {
	req := &models.LiquidatableRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	start := time.Now()
	res, err := h.agg.Liquidatable(c.Request().Context(), req.Market, req.Limit)
	observe("liquidatable", start, err)
	if err != nil {
		h.logger.Error("liquidatable usecase error", xlogger.String("market", req.Market), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
