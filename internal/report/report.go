// Package report renders daily summaries from stored flight records. The
// store computes the aggregates; this package only formats them.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tunis-skies/flightwatch/internal/model"
	"github.com/tunis-skies/flightwatch/internal/store"
)

// Daily bundles everything a rendered report needs for one departure date.
type Daily struct {
	Stats   *store.DailyStats
	Records []model.FlightRecord
}

// Build loads the aggregates and records for one departure date label.
func Build(ctx context.Context, st store.Store, dateLabel string) (*Daily, error) {
	stats, err := st.DailyStats(ctx, dateLabel)
	if err != nil {
		return nil, eris.Wrapf(err, "report: stats %s", dateLabel)
	}
	records, err := st.ListByDepartureDate(ctx, dateLabel)
	if err != nil {
		return nil, eris.Wrapf(err, "report: records %s", dateLabel)
	}
	return &Daily{Stats: stats, Records: records}, nil
}

// Text renders the summary the way the daily post reads: headline counts,
// per-leg delay figures, and the worst arrival of the day.
func (d *Daily) Text() string {
	s := d.Stats
	var b strings.Builder

	fmt.Fprintf(&b, "Flight report for %s\n", s.DateLabel)
	fmt.Fprintf(&b, "Flights tracked: %d (%d cancelled)\n", s.Total, s.Cancelled)
	fmt.Fprintf(&b, "Delayed departures: %d%s\n", s.Departure.Delayed, delayFigures(s.Departure))
	fmt.Fprintf(&b, "Delayed arrivals: %d%s\n", s.Arrival.Delayed, delayFigures(s.Arrival))

	if w := s.WorstArrival; w != nil {
		fmt.Fprintf(&b, "Worst arrival: %s %s %s-%s, %d min late\n",
			w.Airline, w.FlightNumber, w.DepartureIATA, w.ArrivalIATA, w.ArrivalDelay)
	}
	return b.String()
}

func delayFigures(ds store.DelayStats) string {
	if ds.Delayed == 0 {
		return ""
	}
	return fmt.Sprintf(" (min %d, max %d, avg %.0f min)", ds.Min, ds.Max, ds.Avg)
}
