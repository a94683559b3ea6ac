package marketdata

import (
	"context"
	"fmt"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/domain/repository"
)

// Router dispatches quote requests by venue.
type Router struct {
	regions models.RegionSet
	sources map[models.Venue]repository.QuoteSource
}

// NewRouter builds a router. An empty region list uses models.DefaultRegionSymbols.
func NewRouter(regionSymbols []string, generic, region repository.QuoteSource) *Router {
	return &Router{
		regions: models.NewRegionSet(regionSymbols),
		sources: map[models.Venue]repository.QuoteSource{
			models.VenueGeneric: generic,
			models.VenueRegion:  region,
		},
	}
}

// Venue classifies symbol, case-insensitively.
func (r *Router) Venue(symbol string) models.Venue {
	return r.regions.Venue(symbol)
}

// GetQuote implements repository.QuoteSource.
func (r *Router) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	venue := r.Venue(symbol)
	src := r.sources[venue]
	if src == nil {
		return nil, fmt.Errorf("no %s quote source configured", venue)
	}
	return src.GetQuote(ctx, symbol)
}
