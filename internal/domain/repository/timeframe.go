package repository

// SeriesInterval is the candle resolution requested from the series source.
type SeriesInterval string

const (
	Interval1m  SeriesInterval = "1m"
	Interval5m  SeriesInterval = "5m"
	Interval15m SeriesInterval = "15m"
	Interval30m SeriesInterval = "30m"
	Interval1h  SeriesInterval = "1h"
	Interval1d  SeriesInterval = "1d"
)

// SeriesRange is how far back the series reaches.
type SeriesRange string

const (
	Range1d  SeriesRange = "1d"
	Range5d  SeriesRange = "5d"
	Range1mo SeriesRange = "1mo"
	Range3mo SeriesRange = "3mo"
	Range6mo SeriesRange = "6mo"
	Range1y  SeriesRange = "1y"
)

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv SeriesInterval) bool {
	switch iv {
	case Interval1m, Interval5m, Interval15m, Interval30m, Interval1h, Interval1d:
		return true
	default:
		return false
	}
}

// IsValidRange returns true if r is a supported range.
func IsValidRange(r SeriesRange) bool {
	switch r {
	case Range1d, Range5d, Range1mo, Range3mo, Range6mo, Range1y:
		return true
	default:
		return false
	}
}

// NormalizeInterval converts a raw string to a valid interval, falling back to hourly.
func NormalizeInterval(s string) SeriesInterval {
	iv := SeriesInterval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return Interval1h
}

// NormalizeRange converts a raw string to a valid range, falling back to five days.
func NormalizeRange(s string) SeriesRange {
	r := SeriesRange(s)
	if IsValidRange(r) {
		return r
	}
	return Range5d
}
