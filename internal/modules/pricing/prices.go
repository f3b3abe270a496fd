// Package pricing works with half-hourly Agile tariff unit prices: costing
// simulated electricity usage, finding the cheapest contiguous windows, and
// persisting fetched prices.
package pricing

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ErrPriceHorizon indicates electricity use in a settlement period for which
// no unit price is available.
var ErrPriceHorizon = errors.New("prices not available for all electricity use")

// Cost returns the cost in pence of the given half-hourly usage (kWh per
// settlement period) at the given half-hourly unit prices (p/kWh). Both
// sequences start at the same settlement period. Usage beyond the price
// horizon is an error unless it is zero.
func Cost(prices, usage []float64) (float64, error) {
	l := len(prices)
	if len(usage) < l {
		l = len(usage)
	}
	for _, u := range usage[l:] {
		if u > 0 {
			return 0, ErrPriceHorizon
		}
	}
	if l == 0 {
		return 0, nil
	}
	return floats.Dot(prices[:l], usage[:l]), nil
}

// Series is a contiguous run of half-hourly unit prices, Unit[0] applying to
// the settlement period beginning at Start.
type Series struct {
	Start time.Time
	Unit  []float64
}

// Hours returns the span of the series in hours.
func (s Series) Hours() float64 { return 0.5 * float64(len(s.Unit)) }

// Cost prices the given half-hourly usage against the series.
func (s Series) Cost(usage []float64) (float64, error) {
	return Cost(s.Unit, usage)
}
