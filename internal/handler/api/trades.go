package api

import (
	"TradeSense/internal/domain/models"
	"TradeSense/internal/service/ratelimit"
	"TradeSense/internal/usecase"
	xhttp "TradeSense/pkg/http"
	applogger "TradeSense/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type TradesHandler struct {
	logger   *applogger.Logger
	executor *usecase.TradeExecutor
	limiter  *ratelimit.Limiter
}

// NewTradesHandler wires the handler. A nil limiter leaves submission unthrottled.
func NewTradesHandler(logger *applogger.Logger, executor *usecase.TradeExecutor, limiter *ratelimit.Limiter) *TradesHandler {
	return &TradesHandler{logger: logger.Component("trades_api"), executor: executor, limiter: limiter}
}

func (h *TradesHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, ratelimit.Middleware(h.limiter))
	}
	g.POST("/trades", h.Create, mw...)
	g.GET("/trades", h.History)
}

func (h *TradesHandler) Create(c echo.Context) error {
	req := &models.CreateTradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	id, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("challenge_id must be a uuid"))
	}

	res, err := h.executor.CreateTrade(c.Request().Context(), id, req.Symbol, req.Side, req.Qty)
	if err != nil {
		ae := appError(err)
		if ae.Status >= 500 {
			h.logger.Error("trade failed", applogger.Stringer("challenge_id", id), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, ae)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *TradesHandler) History(c echo.Context) error {
	req := &models.TradesQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	id, _ := uuid.Parse(req.ChallengeID)

	trades, err := h.executor.History(c.Request().Context(), id)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, trades, int64(len(trades)))
}
