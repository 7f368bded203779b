package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunis-skies/flightwatch/internal/airports"
	"github.com/tunis-skies/flightwatch/internal/localtime"
	"github.com/tunis-skies/flightwatch/internal/model"
	"github.com/tunis-skies/flightwatch/internal/store"
	"github.com/tunis-skies/flightwatch/pkg/airlabs"
)

var tunis = localtime.MustZone("Africa/Tunis")

type fixedClock struct {
	p localtime.Point
}

func (c fixedClock) Now() localtime.Point { return c.p }

func clockAt(t *testing.T, s string) fixedClock {
	t.Helper()
	p, err := tunis.Parse(s)
	require.NoError(t, err)
	return fixedClock{p: p}
}

type fakeClient struct {
	byDirection map[airlabs.Direction][]airlabs.Flight
	err         error
}

func (f *fakeClient) Schedules(_ context.Context, dir airlabs.Direction, _ string, _ []string) ([]airlabs.Flight, json.RawMessage, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	flights := f.byDirection[dir]
	raw, _ := json.Marshal(map[string]any{"response": flights})
	return flights, raw, nil
}

type memStore struct {
	mu      sync.Mutex
	records map[string]model.FlightRecord
	runs    []model.IngestRun

	upsertErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]model.FlightRecord)}
}

func (m *memStore) Upsert(_ context.Context, rec model.FlightRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*model.FlightRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) ListByDepartureDate(_ context.Context, dateLabel string) ([]model.FlightRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []model.FlightRecord
	for _, rec := range m.records {
		if rec.DepartureDate == dateLabel {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (m *memStore) DailyStats(_ context.Context, dateLabel string) (*store.DailyStats, error) {
	return &store.DailyStats{DateLabel: dateLabel}, nil
}

func (m *memStore) RecordRun(_ context.Context, run model.IngestRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) ListRuns(_ context.Context, _ int) ([]model.IngestRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs, nil
}

func (m *memStore) Migrate(_ context.Context) error { return nil }
func (m *memStore) Close() error                    { return nil }

func testLookup(t *testing.T) *airports.Index {
	t.Helper()
	ix, err := airports.NewIndex()
	require.NoError(t, err)
	return ix
}

func departureEntry() airlabs.Flight {
	return airlabs.Flight{
		AirlineIATA: "TU",
		FlightIATA:  "TU123",
		Status:      "scheduled",
		DepIATA:     "TUN",
		ArrIATA:     "ORY",
		DepTime:     "2024-03-01 10:00",
		ArrTime:     "2024-03-01 12:10",
	}
}

func arrivalEntry() airlabs.Flight {
	return airlabs.Flight{
		AirlineIATA: "AF",
		FlightIATA:  "AF1084",
		Status:      "scheduled",
		DepIATA:     "CDG",
		ArrIATA:     "TUN",
		DepTime:     "2024-03-01 07:35",
		ArrTime:     "2024-03-01 09:55",
		Delayed:     airlabs.Minutes(25),
	}
}

func newTestIngestor(t *testing.T, client airlabs.Client, st store.Store, snapshotDir string) *Ingestor {
	t.Helper()
	return New(Options{
		Client:      client,
		Store:       st,
		Lookup:      testLookup(t),
		Zone:        tunis,
		Clock:       clockAt(t, "2024-03-01 08:00"),
		Airport:     "TUN",
		Airlines:    []string{"TU", "BJ", "AF", "TO"},
		SnapshotDir: snapshotDir,
	})
}

func TestRun_StoresBothBoards(t *testing.T) {
	st := newMemStore()
	client := &fakeClient{byDirection: map[airlabs.Direction][]airlabs.Flight{
		airlabs.Departures: {departureEntry()},
		airlabs.Arrivals:   {arrivalEntry()},
	}}
	ing := newTestIngestor(t, client, st, "")

	date, err := tunis.Parse("2024-03-01")
	require.NoError(t, err)
	res, err := ing.Run(context.Background(), date, false)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, "01/03/2024", res.QueryDate)
	assert.NotEmpty(t, res.RunID)

	dep, err := st.Get(context.Background(), "TU123_01_03_2024_10_00")
	require.NoError(t, err)
	require.NotNil(t, dep)
	assert.Equal(t, model.StatusScheduled, dep.FlightStatus)
	assert.Equal(t, "TUNIS CARTHAGE INTL", dep.DepartureAirport)

	arr, err := st.Get(context.Background(), "AF1084_01_03_2024_07_35")
	require.NoError(t, err)
	require.NotNil(t, arr)
	// The feed's single delayed value seeds both legs.
	assert.Equal(t, 25, arr.DepartureDelay)
	assert.Equal(t, 25, arr.ArrivalDelay)

	require.Len(t, st.runs, 1)
	assert.Equal(t, "api", st.runs[0].Source)
	assert.Equal(t, 2, st.runs[0].Stored)
}

func TestRun_SkipsMalformedEntry(t *testing.T) {
	st := newMemStore()
	broken := departureEntry()
	broken.DepTime = "not a time"
	client := &fakeClient{byDirection: map[airlabs.Direction][]airlabs.Flight{
		airlabs.Departures: {broken, departureEntry()},
	}}
	ing := newTestIngestor(t, client, st, "")

	date, err := tunis.Parse("2024-03-01")
	require.NoError(t, err)
	res, err := ing.Run(context.Background(), date, false)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 1, res.Stored)
	assert.Equal(t, 1, res.Skipped)
}

func TestRun_UpsertFailureCountsAsSkip(t *testing.T) {
	st := newMemStore()
	st.upsertErr = assert.AnError
	client := &fakeClient{byDirection: map[airlabs.Direction][]airlabs.Flight{
		airlabs.Departures: {departureEntry()},
	}}
	ing := newTestIngestor(t, client, st, "")

	date, err := tunis.Parse("2024-03-01")
	require.NoError(t, err)
	res, err := ing.Run(context.Background(), date, false)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 0, res.Stored)
	assert.Equal(t, 1, res.Skipped)
}

func TestRun_FetchFailureAborts(t *testing.T) {
	st := newMemStore()
	client := &fakeClient{err: assert.AnError}
	ing := newTestIngestor(t, client, st, "")

	date, err := tunis.Parse("2024-03-01")
	require.NoError(t, err)
	_, err = ing.Run(context.Background(), date, false)
	assert.Error(t, err)
	assert.Empty(t, st.records)
}

func TestRun_NoClientWithoutOffline(t *testing.T) {
	ing := newTestIngestor(t, nil, newMemStore(), "")

	date, err := tunis.Parse("2024-03-01")
	require.NoError(t, err)
	_, err = ing.Run(context.Background(), date, false)
	assert.Error(t, err)
}

func TestRun_SnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := newMemStore()
	client := &fakeClient{byDirection: map[airlabs.Direction][]airlabs.Flight{
		airlabs.Departures: {departureEntry()},
		airlabs.Arrivals:   {arrivalEntry()},
	}}
	ing := newTestIngestor(t, client, st, dir)

	date, err := tunis.Parse("2024-03-01")
	require.NoError(t, err)
	_, err = ing.Run(context.Background(), date, false)
	require.NoError(t, err)

	// Replay from snapshots into a fresh store.
	replayStore := newMemStore()
	replay := newTestIngestor(t, nil, replayStore, dir)
	res, err := replay.Run(context.Background(), date, true)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, st.records, replayStore.records)
	require.Len(t, replayStore.runs, 1)
	assert.Equal(t, "snapshot", replayStore.runs[0].Source)
}

func TestRun_OfflineWithoutSnapshotDir(t *testing.T) {
	ing := newTestIngestor(t, nil, newMemStore(), "")

	date, err := tunis.Parse("2024-03-01")
	require.NoError(t, err)
	_, err = ing.Run(context.Background(), date, true)
	assert.Error(t, err)
}

func TestRun_OfflineMissingSnapshot(t *testing.T) {
	ing := newTestIngestor(t, nil, newMemStore(), t.TempDir())

	date, err := tunis.Parse("2024-03-01")
	require.NoError(t, err)
	_, err = ing.Run(context.Background(), date, true)
	assert.Error(t, err)
}

func TestCleanDate_ProgressesStatuses(t *testing.T) {
	st := newMemStore()
	client := &fakeClient{byDirection: map[airlabs.Direction][]airlabs.Flight{
		airlabs.Departures: {departureEntry()},
	}}

	// Ingest at 08:00: the 10:00 departure is still scheduled.
	ing := newTestIngestor(t, client, st, "")
	date, err := tunis.Parse("2024-03-01")
	require.NoError(t, err)
	_, err = ing.Run(context.Background(), date, false)
	require.NoError(t, err)

	rec, err := st.Get(context.Background(), "TU123_01_03_2024_10_00")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, model.StatusScheduled, rec.FlightStatus)

	// Clean at 13:00, well past the arrival: the record lands without any
	// feed call.
	late := New(Options{
		Store:    st,
		Lookup:   testLookup(t),
		Zone:     tunis,
		Clock:    clockAt(t, "2024-03-01 13:00"),
		Airport:  "TUN",
		Airlines: []string{"TU"},
	})
	n, err := late.CleanDate(context.Background(), "01/03/2024")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err = st.Get(context.Background(), "TU123_01_03_2024_10_00")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.StatusLanded, rec.FlightStatus)
}

func TestCleanDate_EmptyDay(t *testing.T) {
	ing := newTestIngestor(t, nil, newMemStore(), "")

	n, err := ing.CleanDate(context.Background(), "09/09/2024")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCleanDate_Idempotent(t *testing.T) {
	st := newMemStore()
	client := &fakeClient{byDirection: map[airlabs.Direction][]airlabs.Flight{
		airlabs.Departures: {departureEntry()},
		airlabs.Arrivals:   {arrivalEntry()},
	}}
	ing := newTestIngestor(t, client, st, "")

	date, err := tunis.Parse("2024-03-01")
	require.NoError(t, err)
	_, err = ing.Run(context.Background(), date, false)
	require.NoError(t, err)

	_, err = ing.CleanDate(context.Background(), "01/03/2024")
	require.NoError(t, err)
	first := map[string]model.FlightRecord{}
	for id, rec := range st.records {
		first[id] = rec
	}

	_, err = ing.CleanDate(context.Background(), "01/03/2024")
	require.NoError(t, err)
	assert.Equal(t, first, st.records)
}
