// Package ingest runs the batch pipeline: fetch the departure and arrival
// boards, reconcile every entry into a canonical record, and upsert it.
// Failures are per-record; one malformed entry never aborts the batch.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tunis-skies/flightwatch/internal/localtime"
	"github.com/tunis-skies/flightwatch/internal/model"
	"github.com/tunis-skies/flightwatch/internal/reconcile"
	"github.com/tunis-skies/flightwatch/internal/store"
	"github.com/tunis-skies/flightwatch/pkg/airlabs"
)

// Options wires the ingest pipeline's collaborators and scope.
type Options struct {
	Client      airlabs.Client
	Store       store.Store
	Lookup      reconcile.AirportLookup
	Zone        *localtime.Zone
	Clock       localtime.Clock
	Airport     string
	Airlines    []string
	SnapshotDir string // empty disables raw payload snapshots
}

// Ingestor executes ingest runs and clean passes against one airport.
type Ingestor struct {
	opts Options
}

// New creates an Ingestor. Clock defaults to the zone itself.
func New(opts Options) *Ingestor {
	if opts.Clock == nil {
		opts.Clock = opts.Zone
	}
	return &Ingestor{opts: opts}
}

// Result summarizes one ingest run.
type Result struct {
	RunID     string
	QueryDate string
	Fetched   int
	Stored    int
	Skipped   int
}

// Run fetches both boards for the query date and reconciles and upserts every
// entry. With offline set, previously written snapshots are replayed instead
// of calling the API. An IngestRun row is recorded either way.
func (ing *Ingestor) Run(ctx context.Context, date localtime.Point, offline bool) (*Result, error) {
	startedAt := time.Now().UTC()
	source := "api"
	if offline {
		source = "snapshot"
	}

	dirs := []airlabs.Direction{airlabs.Departures, airlabs.Arrivals}
	boards := make([][]airlabs.Flight, len(dirs))
	if offline {
		for i, dir := range dirs {
			flights, err := ing.readSnapshot(dir, date)
			if err != nil {
				return nil, err
			}
			boards[i] = flights
		}
	} else {
		if ing.opts.Client == nil {
			return nil, eris.New("ingest: no feed client configured")
		}
		g, gctx := errgroup.WithContext(ctx)
		for i, dir := range dirs {
			g.Go(func() error {
				flights, raw, err := ing.opts.Client.Schedules(gctx, dir, ing.opts.Airport, ing.opts.Airlines)
				if err != nil {
					return err
				}
				if err := ing.writeSnapshot(dir, date, raw); err != nil {
					zap.L().Warn("snapshot write failed", zap.String("direction", string(dir)), zap.Error(err))
				}
				boards[i] = flights
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, eris.Wrap(err, "ingest: fetch boards")
		}
	}

	res := &Result{
		RunID:     uuid.New().String(),
		QueryDate: date.DateLabel(),
	}
	for _, board := range boards {
		ing.process(ctx, board, res)
	}

	run := model.IngestRun{
		ID:         res.RunID,
		QueryDate:  res.QueryDate,
		Source:     source,
		Fetched:    res.Fetched,
		Stored:     res.Stored,
		Skipped:    res.Skipped,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
	if err := ing.opts.Store.RecordRun(ctx, run); err != nil {
		zap.L().Warn("record ingest run failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	zap.L().Info("ingest complete",
		zap.String("run_id", res.RunID),
		zap.String("date", res.QueryDate),
		zap.String("source", source),
		zap.Int("fetched", res.Fetched),
		zap.Int("stored", res.Stored),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// process reconciles and upserts each board entry, skipping records that
// fail structurally.
func (ing *Ingestor) process(ctx context.Context, flights []airlabs.Flight, res *Result) {
	for _, f := range flights {
		res.Fetched++

		rec, err := reconcile.Assemble(toRawFlight(f), ing.opts.Lookup, ing.opts.Zone, ing.opts.Clock)
		if err != nil {
			res.Skipped++
			zap.L().Warn("skipping flight: reconcile failed",
				zap.String("flight", f.FlightIATA),
				zap.Error(err),
			)
			continue
		}

		if err := ing.opts.Store.Upsert(ctx, rec); err != nil {
			res.Skipped++
			zap.L().Warn("skipping flight: upsert failed",
				zap.String("flight", rec.ID),
				zap.Error(err),
			)
			continue
		}
		res.Stored++
	}
}

// toRawFlight applies boundary defaulting: the feed's single "delayed" value
// seeds both legs' raw delays.
func toRawFlight(f airlabs.Flight) model.RawFlight {
	return model.RawFlight{
		AirlineIATA:  f.AirlineIATA,
		FlightIATA:   f.FlightIATA,
		Status:       model.Status(f.Status),
		DepIATA:      f.DepIATA,
		ArrIATA:      f.ArrIATA,
		DepTime:      f.DepTime,
		ArrTime:      f.ArrTime,
		DepEstimated: f.DepEstimated,
		DepActual:    f.DepActual,
		ArrEstimated: f.ArrEstimated,
		ArrActual:    f.ArrActual,
		DepDelay:     int(f.Delayed),
		ArrDelay:     int(f.Delayed),
	}
}
