package api

import (
	"errors"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/usecase"
	xhttp "TradeSense/pkg/http"
	applogger "TradeSense/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalsHandler exposes the momentum classifier and the bot state.
type SignalsHandler struct {
	logger  *applogger.Logger
	quotes  usecase.QuoteReader
	monitor *usecase.SignalMonitor
	bot     *usecase.BotMonitor
	now     func() time.Time
}

// NewSignalsHandler wires the handler. bot may be nil when the bot integration is disabled.
func NewSignalsHandler(logger *applogger.Logger, quotes usecase.QuoteReader, monitor *usecase.SignalMonitor, bot *usecase.BotMonitor) *SignalsHandler {
	return &SignalsHandler{
		logger:  logger.Component("signals_api"),
		quotes:  quotes,
		monitor: monitor,
		bot:     bot,
		now:     time.Now,
	}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", h.Signal)
	g.GET("/bot", h.Bot)
}

// Signal classifies the current quote for symbol, or for the tracked symbol when none is given.
func (h *SignalsHandler) Signal(c echo.Context) error {
	req := &models.SymbolQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := req.Symbol
	if symbol == "" {
		symbol = h.quotes.Tracked()
	}
	if symbol == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol is required when nothing is tracked"))
	}

	sig, err := h.monitor.Evaluate(symbol)
	if errors.Is(err, models.ErrPriceUnavailable) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no quote synchronized for symbol yet").WithParam("symbol", symbol))
	}
	if err != nil {
		h.logger.Error("signal evaluation failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *SignalsHandler) Bot(c echo.Context) error {
	if h.bot == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("bot integration is disabled"))
	}
	return xhttp.SuccessResponse(c, h.bot.State(h.now()))
}
