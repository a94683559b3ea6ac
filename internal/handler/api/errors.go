package api

import (
	"errors"

	"TradeSense/internal/domain/models"
	xhttp "TradeSense/pkg/http"
)

// appError maps domain errors onto HTTP errors. Anything unknown becomes a 500.
func appError(err error) *xhttp.AppError {
	var ae *xhttp.AppError
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, models.ErrInvalidTrade), errors.Is(err, models.ErrInvalidChallenge),
		errors.Is(err, models.ErrInvalidSeriesQuery):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrChallengeNotFound):
		return xhttp.NotFoundError("challenge not found").WithError(err)
	case errors.Is(err, models.ErrNoActiveChallenge):
		return xhttp.NotFoundError("no active challenge").WithError(err)
	case errors.Is(err, models.ErrChallengeClosed):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrPriceUnavailable), errors.Is(err, models.ErrUpstreamPayload):
		return xhttp.BadGatewayError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
