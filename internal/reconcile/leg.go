// Package reconcile turns the partial, often contradictory timing fields the
// feed reports for a flight leg into one canonical hour, date, status and
// delay. The same algorithm runs at ingest time against fresh feed data and
// again during clean passes against stored data, so it must be pure given an
// injected clock.
package reconcile

import (
	"math"

	"github.com/tunis-skies/flightwatch/internal/localtime"
	"github.com/tunis-skies/flightwatch/internal/model"
)

// LegInput is the raw material for reconciling one leg of a flight.
// Estimated and Actual are nil when the feed left them blank.
type LegInput struct {
	Scheduled localtime.Point
	Estimated *localtime.Point
	Actual    *localtime.Point

	RawStatus       model.Status
	RawDelayMinutes int

	// BecomesStatus is assigned when the effective time is in the past and
	// the leg was not cancelled: "active" for departures, "landed" for
	// arrivals.
	BecomesStatus model.Status
}

// LegOutput is the reconciled view of one leg.
type LegOutput struct {
	HourLabel    string
	DateLabel    string
	Status       model.Status
	DelayMinutes int
}

// Leg reconciles one leg. The effective time prefers actual over estimated
// over scheduled; the fixed two-element scan implements that priority because
// actual is assigned last. A delay is recomputed only when the effective time
// is later than scheduled; otherwise the raw delay passes through unchanged,
// including negative values the feed occasionally sends. A cancelled status
// is never overwritten, no matter how far in the past the effective time is.
func Leg(in LegInput, clock localtime.Clock) LegOutput {
	effective := in.Scheduled
	delay := in.RawDelayMinutes

	for _, candidate := range []*localtime.Point{in.Estimated, in.Actual} {
		if candidate != nil {
			effective = *candidate
		}
	}

	if effective.After(in.Scheduled) {
		delay = int(math.RoundToEven(effective.Sub(in.Scheduled).Minutes()))
	}

	status := in.RawStatus
	if clock.Now().After(effective) && in.RawStatus != model.StatusCancelled {
		status = in.BecomesStatus
	}

	return LegOutput{
		HourLabel:    effective.Hour() + "h",
		DateLabel:    effective.DateLabel(),
		Status:       status,
		DelayMinutes: delay,
	}
}
