package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tunis-skies/flightwatch/internal/airports"
	"github.com/tunis-skies/flightwatch/internal/ingest"
	"github.com/tunis-skies/flightwatch/internal/localtime"
	"github.com/tunis-skies/flightwatch/internal/store"
	"github.com/tunis-skies/flightwatch/pkg/airlabs"
)

// openStore opens the configured backend and applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "", "sqlite":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newIngestor wires the pipeline. withClient controls whether a feed client
// is built; clean passes run without one.
func newIngestor(st store.Store, withClient bool) (*ingest.Ingestor, *localtime.Zone, error) {
	zone, err := localtime.NewZone(cfg.Time.Zone)
	if err != nil {
		return nil, nil, err
	}
	lookup, err := airports.NewIndex()
	if err != nil {
		return nil, nil, err
	}

	var client airlabs.Client
	if withClient {
		if cfg.AirLabs.Key == "" {
			return nil, nil, eris.New("airlabs key is required (FLIGHTWATCH_AIRLABS_KEY)")
		}
		client = airlabs.NewClient(cfg.AirLabs.Key,
			airlabs.WithBaseURL(cfg.AirLabs.BaseURL),
			airlabs.WithRateLimit(cfg.AirLabs.RatePerSecond, cfg.AirLabs.RateBurst),
		)
	}

	ing := ingest.New(ingest.Options{
		Client:      client,
		Store:       st,
		Lookup:      lookup,
		Zone:        zone,
		Airport:     cfg.AirLabs.Airport,
		Airlines:    cfg.AirLabs.Airlines,
		SnapshotDir: cfg.Snapshots.Dir,
	})
	return ing, zone, nil
}

// resolveDate turns a --date flag value into a zone-local point. Empty means
// today; "yesterday" is accepted because the daily report job runs the
// morning after.
func resolveDate(zone *localtime.Zone, s string) (localtime.Point, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return zone.Now(), nil
	case "yesterday":
		return zone.Now().AddDays(-1), nil
	default:
		return zone.Parse(s)
	}
}
