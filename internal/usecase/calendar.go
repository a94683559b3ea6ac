package usecase

import (
	"context"
	"strings"

	"TradeSense/internal/domain/models"
	drepo "TradeSense/internal/domain/repository"
)

// Calendar filters the upstream economic calendar.
type Calendar struct {
	source drepo.CalendarSource
}

func NewCalendar(source drepo.CalendarSource) *Calendar {
	return &Calendar{source: source}
}

// Events keeps entries whose impact matches (case-insensitive, empty keeps all)
// and truncates to limit when limit is positive.
func (c *Calendar) Events(ctx context.Context, impact string, limit int) ([]models.CalendarEvent, error) {
	events, err := c.source.Events(ctx)
	if err != nil {
		return nil, err
	}

	out := events
	if impact = strings.TrimSpace(impact); impact != "" {
		out = make([]models.CalendarEvent, 0, len(events))
		for _, e := range events {
			if strings.EqualFold(e.Impact, impact) {
				out = append(out, e)
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
