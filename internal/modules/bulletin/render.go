// Package bulletin renders the daily email: tonight's unit prices with an
// ASCII bar chart, the cheapest windows of common lengths, and a summary of
// the planner's heating options.
package bulletin

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kentwell/heatplan/internal/modules/planning"
	"github.com/kentwell/heatplan/internal/modules/pricing"
)

// windowLengths are the window sizes, in hours, summarised in the bulletin.
var windowLengths = []float64{0.5, 1, 1.5, 2, 2.5, 3, 4, 6}

// Report holds everything the bulletin presents.
type Report struct {
	// Date is the day the bulletin is sent.
	Date time.Time
	// Prices are tomorrow's unit prices; Prices.Start should be 23:00 local
	// time tonight.
	Prices pricing.Series
	// PlanStart and Options summarise the heating plan, if one was computed.
	PlanStart time.Time
	Options   []planning.Option
}

// Subject returns the email subject line.
func (r Report) Subject() string {
	return fmt.Sprintf("Agile Octopus Bulletin (%s)", r.Date.Format("2006-01-02"))
}

// Body returns the plain-text email body.
func (r Report) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agile Octopus Bulletin %s\n\n\n", r.Date.Format("2006-01-02"))
	b.WriteString(cheapestWindowParagraph(r.Prices))
	b.WriteString("\nThe Agile Octopus electricity rates from 23:00 tonight are as follows:\n")
	b.WriteString(pricesList(r.Prices))
	if len(r.Options) > 0 {
		b.WriteString(OptionsSummary(r.Options, r.PlanStart))
	}
	return b.String()
}

// pricesList lists each settlement period's price, one per line, with a
// logarithmic bar chart to the right.
func pricesList(prices pricing.Series) string {
	var b strings.Builder
	for i, price := range prices.Unit {
		t := prices.Start.Add(time.Duration(i) * 30 * time.Minute)
		fmt.Fprintf(&b, "%s    %5.2f    %s\n", t.Format("15:04"), price, priceBar(price))
	}
	return b.String()
}

// priceBar draws a price as a run of + or - characters on a log scale, so
// that spikes stay on screen.
func priceBar(price float64) string {
	switch {
	case price == 0:
		return ""
	case price > 0:
		return strings.Repeat("+", 1+int(20*math.Log(1+0.1*price)))
	default:
		return strings.Repeat("-", 1+int(20*math.Log(1-0.1*price)))
	}
}

// cheapestWindowParagraph summarises the cheapest window of each common
// length. Lengths for which no gap-free window exists are omitted.
func cheapestWindowParagraph(prices pricing.Series) string {
	byTime := make(map[time.Time]float64, len(prices.Unit))
	for i, price := range prices.Unit {
		byTime[prices.Start.Add(time.Duration(i)*30*time.Minute)] = price
	}

	var b strings.Builder
	for _, length := range windowLengths {
		w, err := pricing.CheapestWindow(length, byTime)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "The cheapest %v hour window starts at %s (average %.2fp/kWh)\n",
			length, w.Start.Format("15:04"), w.AveragePrice)
	}
	return b.String()
}

// OptionsSummary renders each heating option the way the planner CLI reports
// them.
func OptionsSummary(options []planning.Option, start time.Time) string {
	var b strings.Builder
	for i, opt := range options {
		costsStr := ""
		if i > 0 {
			costsStr = "an additional "
		}
		var storage []string
		for _, iv := range opt.StorageHeat {
			storage = append(storage, fmt.Sprintf("%s--%s",
				iv.Start.Format("15:04"), iv.End.Format("15:04")))
		}
		var direct []string
		for _, iv := range opt.DirectHeat {
			direct = append(direct, fmt.Sprintf("%gkW for %s--%s",
				iv.Power, iv.Start.Format("15:04"), iv.End.Format("15:04")))
		}
		margUseful := opt.MarginalUseful
		if margUseful == 0 {
			margUseful = 1e-16
		}
		lastsInDays := opt.LastsUntil.Sub(start).Hours() / 24

		fmt.Fprintf(&b, "\nHeating until %s (%.2f days):\n",
			opt.LastsUntil.Format("15:04 on Monday"), lastsInDays)
		fmt.Fprintf(&b, "    Costs %s£%.2f (%.2fp per useful kWh).\n",
			costsStr, opt.MarginalPrice/100, opt.MarginalPrice/margUseful)
		fmt.Fprintf(&b, "    Run the storage heater for: %s\n", strings.Join(storage, ", "))
		fmt.Fprintf(&b, "    Run direct heating at: %s\n", strings.Join(direct, ", "))
		fmt.Fprintf(&b, "    Total energy: %.1fkWh\n", opt.TotalEnergy)
	}
	return b.String()
}
