package api

import (
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/usecase"
	xhttp "TradeSense/pkg/http"
	applogger "TradeSense/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type ChallengesHandler struct {
	logger     *applogger.Logger
	challenges *usecase.ChallengeService
	now        func() time.Time
}

func NewChallengesHandler(logger *applogger.Logger, challenges *usecase.ChallengeService) *ChallengesHandler {
	return &ChallengesHandler{logger: logger.Component("challenges_api"), challenges: challenges, now: time.Now}
}

func (h *ChallengesHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/challenges", h.Open)
	g.GET("/challenges/active", h.Active)
	g.GET("/challenges/:id", h.Get)
	g.GET("/challenges/:id/metrics", h.Metrics)
	g.GET("/leaderboard", h.Leaderboard)
}

func (h *ChallengesHandler) Open(c echo.Context) error {
	req := &models.OpenChallengeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ch, err := h.challenges.Open(c.Request().Context(), req.StartBalance)
	if err != nil {
		h.logger.Error("open challenge failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.CreatedResponse(c, ch)
}

func (h *ChallengesHandler) Active(c echo.Context) error {
	ch, err := h.challenges.Active(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, ch)
}

func (h *ChallengesHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	ch, err := h.challenges.Get(c.Request().Context(), id)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, ch)
}

func (h *ChallengesHandler) Metrics(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	m, err := h.challenges.Metrics(c.Request().Context(), id)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, m)
}

func (h *ChallengesHandler) Leaderboard(c echo.Context) error {
	req := &models.LeaderboardQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	month := h.now().UTC()
	if req.Month != "" {
		// already validated as YYYY-MM
		month, _ = time.Parse("2006-01", req.Month)
	}

	rows, err := h.challenges.Leaderboard(c.Request().Context(), month, req.Limit)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, xhttp.BadRequestError("id must be a uuid").WithError(err)
	}
	return id, nil
}
