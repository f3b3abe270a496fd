package pricing

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrNoWindow indicates the prices contain no gap-free window of the
// requested length.
var ErrNoWindow = errors.New("no window of the required length")

// Window is a contiguous run of settlement periods and its average unit price.
type Window struct {
	Start        time.Time
	AveragePrice float64
}

// CheapestWindow finds the window of the given length (hours, a positive
// multiple of 0.5) with the lowest average unit price.
//
// prices maps the start of each settlement period to its unit price; the keys
// may be in any time zone and the returned start time preserves the zone of
// the corresponding key. Only gap-free runs of half-hourly periods are
// considered. Later windows are preferred in the event of a tie.
func CheapestWindow(length float64, prices map[time.Time]float64) (Window, error) {
	n := int(2 * length)
	if n <= 0 || float64(n) != 2*length {
		return Window{}, fmt.Errorf("window length must be a positive multiple of 0.5, got %v", length)
	}

	type slot struct {
		utc   time.Time
		orig  time.Time
		price float64
	}
	slots := make([]slot, 0, len(prices))
	for t, p := range prices {
		slots = append(slots, slot{utc: t.UTC(), orig: t, price: p})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].utc.Before(slots[j].utc) })

	found := false
	var best Window
	var bestAvg float64
	for i := 0; i+n <= len(slots); i++ {
		window := slots[i : i+n]
		gapFree := true
		for k := 1; k < len(window); k++ {
			if !window[k-1].utc.Add(30 * time.Minute).Equal(window[k].utc) {
				gapFree = false
				break
			}
		}
		if !gapFree {
			continue
		}
		total := 0.0
		for _, s := range window {
			total += s.price
		}
		avg := total / float64(n)
		if !found || avg <= bestAvg {
			found = true
			bestAvg = avg
			best = Window{Start: window[0].orig, AveragePrice: avg}
		}
	}
	if !found {
		return Window{}, ErrNoWindow
	}
	return best, nil
}
