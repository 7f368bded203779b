package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tunis-skies/flightwatch/internal/model"
	"github.com/tunis-skies/flightwatch/internal/reconcile"
)

// CleanDate re-reconciles every stored record departing on the given date
// label against its currently stored timing fields and upserts the corrected
// result. No API call happens; time has simply advanced since the last write,
// which is what lets stale "scheduled" statuses progress to active or landed.
func (ing *Ingestor) CleanDate(ctx context.Context, dateLabel string) (int, error) {
	records, err := ing.opts.Store.ListByDepartureDate(ctx, dateLabel)
	if err != nil {
		return 0, eris.Wrapf(err, "clean: list %s", dateLabel)
	}

	cleaned := 0
	for _, rec := range records {
		fixed, err := reconcile.Assemble(storedRawFlight(rec), ing.opts.Lookup, ing.opts.Zone, ing.opts.Clock)
		if err != nil {
			zap.L().Warn("clean: skipping record",
				zap.String("flight", rec.ID),
				zap.Error(err),
			)
			continue
		}
		if err := ing.opts.Store.Upsert(ctx, fixed); err != nil {
			zap.L().Warn("clean: upsert failed",
				zap.String("flight", fixed.ID),
				zap.Error(err),
			)
			continue
		}
		cleaned++
	}

	zap.L().Info("clean pass complete",
		zap.String("date", dateLabel),
		zap.Int("records", len(records)),
		zap.Int("cleaned", cleaned),
	)
	return cleaned, nil
}

// storedRawFlight rebuilds reconciliation input from a stored record. Unlike
// the live feed, delays are carried per leg here.
func storedRawFlight(rec model.FlightRecord) model.RawFlight {
	return model.RawFlight{
		AirlineIATA:  rec.Airline,
		FlightIATA:   rec.FlightNumber,
		Status:       rec.FlightStatus,
		DepIATA:      rec.DepartureIATA,
		ArrIATA:      rec.ArrivalIATA,
		DepTime:      rec.DepartureScheduled,
		ArrTime:      rec.ArrivalScheduled,
		DepEstimated: rec.DepartureEstimated,
		DepActual:    rec.DepartureActual,
		ArrEstimated: rec.ArrivalEstimated,
		ArrActual:    rec.ArrivalActual,
		DepDelay:     rec.DepartureDelay,
		ArrDelay:     rec.ArrivalDelay,
	}
}
