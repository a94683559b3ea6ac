package models

import "errors"

var (
	ErrInvalidTrade       = errors.New("invalid trade")
	ErrInvalidChallenge   = errors.New("invalid challenge")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeClosed    = errors.New("challenge is closed")
	ErrNoActiveChallenge  = errors.New("no active challenge")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrEmptySeries        = errors.New("series is empty")
	ErrInvalidSeriesQuery = errors.New("invalid series interval or range")
	ErrUpstreamPayload    = errors.New("upstream returned an error payload")
)
