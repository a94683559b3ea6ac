package api

import (
	"context"
	"net/http"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/usecase"
	xhttp "TradeSense/pkg/http"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/util"

	"github.com/labstack/echo/v4"
)

// MarketHandler serves the synchronizer, the ticker strip and the calendar.
type MarketHandler struct {
	logger   *applogger.Logger
	sync     *usecase.MarketSync
	ticker   *usecase.TickerStrip
	calendar *usecase.Calendar
}

func NewMarketHandler(logger *applogger.Logger, sync *usecase.MarketSync, ticker *usecase.TickerStrip, calendar *usecase.Calendar) *MarketHandler {
	return &MarketHandler{logger: logger.Component("market_api"), sync: sync, ticker: ticker, calendar: calendar}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/market")
	g.GET("/snapshot", h.Snapshot)
	g.POST("/track", h.Track)
	g.POST("/refresh", h.Refresh)
	g.GET("/ticker", h.Ticker)
	g.GET("/calendar", h.Calendar)
}

// symbolOrTracked falls back to the tracked symbol when none is given.
func (h *MarketHandler) symbolOrTracked(symbol string) (string, bool) {
	if s := util.NormalizeSymbol(symbol); s != "" {
		return s, true
	}
	s := h.sync.Tracked()
	return s, s != ""
}

func (h *MarketHandler) Snapshot(c echo.Context) error {
	req := &models.SymbolQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol, ok := h.symbolOrTracked(req.Symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol is required when nothing is tracked"))
	}
	return xhttp.SuccessResponse(c, h.sync.Snapshot(symbol))
}

type trackResponse struct {
	Symbol     string `json:"symbol"`
	IntervalMS int64  `json:"interval_ms"`
	TaskID     string `json:"task_id"`
}

// Track switches the tracked symbol. The polling task outlives the request.
func (h *MarketHandler) Track(c echo.Context) error {
	req := &models.TrackRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var interval *time.Duration
	if req.IntervalMS != nil {
		d := time.Duration(*req.IntervalMS) * time.Millisecond
		interval = &d
	}
	handle, err := h.sync.Track(context.WithoutCancel(c.Request().Context()), req.Symbol, interval)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	resp := trackResponse{Symbol: h.sync.Tracked(), TaskID: handle.ID().String()}
	if interval != nil {
		resp.IntervalMS = interval.Milliseconds()
	}
	return xhttp.DataResponse(c, http.StatusAccepted, resp)
}

func (h *MarketHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol, ok := h.symbolOrTracked(req.Symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol is required when nothing is tracked"))
	}

	snap, err := h.sync.Refresh(c.Request().Context(), symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, snap)
}

// Ticker returns the current strip, polling once if it has never been filled.
func (h *MarketHandler) Ticker(c echo.Context) error {
	snap := h.ticker.Snapshot()
	if snap.UpdatedAt == nil {
		snap = h.ticker.Refresh(c.Request().Context())
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *MarketHandler) Calendar(c echo.Context) error {
	req := &models.CalendarRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	events, err := h.calendar.Events(c.Request().Context(), req.Impact, req.Limit)
	if err != nil {
		h.logger.Warn("calendar fetch failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("calendar unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, events, int64(len(events)))
}
