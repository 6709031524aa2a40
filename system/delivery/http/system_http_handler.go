package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/log"
)

// StorePinger reports reachability of the identity/group store.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ChainClient is the subset of the node client used by the healthcheck.
// *ethclient.Client satisfies it.
type ChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

type SystemHandler struct {
	logger      log.Logger
	config      domain.Config
	store       StorePinger
	chainClient ChainClient
}

// NewSystemHandler will initialize the /debug/pprof resources endpoint
func NewSystemHandler(e *echo.Echo, config domain.Config, logger log.Logger, store StorePinger, chainClient ChainClient) {
	handler := &SystemHandler{
		logger:      logger,
		config:      config,
		store:       store,
		chainClient: chainClient,
	}

	// if debug mod, enable additional profiles that are too intensive
	// for production.
	if !config.LoggerIsProduction {
		runtime.SetMutexProfileFraction(2)
		runtime.SetBlockProfileRate(2)
	}

	e.GET("/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))
	e.GET("/debug/pprof/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	e.GET("/debug/pprof/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	e.GET("/debug/pprof/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	e.GET("/debug/pprof/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))

	e.GET("/healthcheck", handler.GetHealthStatus)
	e.GET("/config", handler.GetConfig)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// GetConfig returns the config for the gatekeeper service. The bot
// token is redacted.
func (h *SystemHandler) GetConfig(c echo.Context) error {
	config := h.config
	if config.Telegram != nil {
		telegram := *config.Telegram
		telegram.BotToken = "[redacted]"
		config.Telegram = &telegram
	}

	return c.JSON(http.StatusOK, config)
}

// GetHealthStatus handles health check requests for the store and the
// ledger node
func (h *SystemHandler) GetHealthStatus(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("healthcheck store ping failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Error connecting to the identity store")
	}

	height, err := h.chainClient.BlockNumber(ctx)
	if err != nil {
		h.logger.Error("healthcheck chain query failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Error connecting to the ledger node")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"store_status":        "running",
		"chain_status":        "running",
		"chain_latest_height": fmt.Sprint(height),
	})
}
