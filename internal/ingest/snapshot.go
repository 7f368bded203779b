package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/tunis-skies/flightwatch/internal/localtime"
	"github.com/tunis-skies/flightwatch/pkg/airlabs"
)

// snapshotPath lays snapshots out as <dir>/<direction>/<month>/<date>_<direction>_flights.json
// so a month's payloads sit together.
func (ing *Ingestor) snapshotPath(dir airlabs.Direction, date localtime.Point) string {
	name := date.ShortCompact() + "_" + string(dir) + "_flights.json"
	return filepath.Join(ing.opts.SnapshotDir, string(dir), date.Month(), name)
}

// writeSnapshot persists the raw API payload for later offline replay.
// Disabled when no snapshot directory is configured.
func (ing *Ingestor) writeSnapshot(dir airlabs.Direction, date localtime.Point, raw json.RawMessage) error {
	if ing.opts.SnapshotDir == "" {
		return nil
	}
	path := ing.snapshotPath(dir, date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "ingest: create snapshot dir")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "ingest: write snapshot %s", path)
	}
	return nil
}

// readSnapshot replays a previously written payload.
func (ing *Ingestor) readSnapshot(dir airlabs.Direction, date localtime.Point) ([]airlabs.Flight, error) {
	if ing.opts.SnapshotDir == "" {
		return nil, eris.New("ingest: offline run needs a snapshot directory")
	}
	path := ing.snapshotPath(dir, date)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read snapshot %s", path)
	}
	flights, err := airlabs.ParseSchedules(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: parse snapshot %s", path)
	}
	return flights, nil
}
