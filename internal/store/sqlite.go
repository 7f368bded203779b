package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tunis-skies/flightwatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS flights (
	id                  TEXT PRIMARY KEY,
	departure_date      TEXT NOT NULL,
	arrival_date        TEXT NOT NULL,
	flight_number       TEXT NOT NULL,
	flight_status       TEXT NOT NULL,
	departure_iata      TEXT NOT NULL,
	departure_airport   TEXT NOT NULL,
	arrival_iata        TEXT NOT NULL,
	arrival_airport     TEXT NOT NULL,
	departure_scheduled TEXT NOT NULL,
	departure_hour      TEXT NOT NULL,
	arrival_scheduled   TEXT NOT NULL,
	arrival_hour        TEXT NOT NULL,
	departure_estimated TEXT NOT NULL DEFAULT '',
	arrival_estimated   TEXT NOT NULL DEFAULT '',
	departure_actual    TEXT NOT NULL DEFAULT '',
	arrival_actual      TEXT NOT NULL DEFAULT '',
	departure_delay     INTEGER NOT NULL DEFAULT 0,
	arrival_delay       INTEGER NOT NULL DEFAULT 0,
	airline             TEXT NOT NULL,
	arrival_country     TEXT NOT NULL,
	departure_country   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	query_date  TEXT NOT NULL,
	source      TEXT NOT NULL,
	fetched     INTEGER NOT NULL,
	stored      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flights_departure_date ON flights(departure_date);
CREATE INDEX IF NOT EXISTS idx_flights_airline ON flights(airline);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_query_date ON ingest_runs(query_date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteUpsertSQL is built once from the shared column list so the insert,
// the conflict-update set, and the scanners can never drift apart.
var sqliteUpsertSQL = func() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(flightColumns)), ", ")
	updates := make([]string, 0, len(flightColumns)-1)
	for _, col := range flightColumns[1:] {
		updates = append(updates, col+" = excluded."+col)
	}
	return `INSERT INTO flights (` + strings.Join(flightColumns, ", ") + `)
		VALUES (` + placeholders + `)
		ON CONFLICT(id) DO UPDATE SET ` + strings.Join(updates, ", ")
}()

// Upsert inserts the record or overwrites every column of the existing row
// with the same identity. The conflict clause makes the write atomic; no
// exists-then-write sequence is involved.
func (s *SQLiteStore) Upsert(ctx context.Context, rec model.FlightRecord) error {
	if rec.ID == "" {
		return eris.New("sqlite: upsert: empty flight id")
	}
	_, err := s.db.ExecContext(ctx, sqliteUpsertSQL, flightValues(rec)...)
	return eris.Wrapf(err, "sqlite: upsert %s", rec.ID)
}

var sqliteSelectFlight = `SELECT ` + strings.Join(flightColumns, ", ") + ` FROM flights`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.FlightRecord, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelectFlight+` WHERE id = ?`, id)
	rec, err := scanFlight(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) ListByDepartureDate(ctx context.Context, dateLabel string) ([]model.FlightRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		sqliteSelectFlight+` WHERE departure_date = ? ORDER BY departure_scheduled, id`,
		dateLabel,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list by departure date")
	}
	defer rows.Close()

	var recs []model.FlightRecord
	for rows.Next() {
		rec, err := scanFlight(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan flight")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list iterate")
}

func (s *SQLiteStore) DailyStats(ctx context.Context, dateLabel string) (*DailyStats, error) {
	stats := &DailyStats{
		DateLabel: dateLabel,
		ByStatus:  make(map[model.Status]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT flight_status, COUNT(*) FROM flights WHERE departure_date = ? GROUP BY flight_status`,
		dateLabel,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		stats.ByStatus[model.Status(status)] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats iterate")
	}
	stats.Cancelled = stats.ByStatus[model.StatusCancelled]

	for _, leg := range []struct {
		column string
		out    *DelayStats
	}{
		{"departure_delay", &stats.Departure},
		{"arrival_delay", &stats.Arrival},
	} {
		row := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(MIN(`+leg.column+`), 0), COALESCE(MAX(`+leg.column+`), 0), COALESCE(AVG(`+leg.column+`), 0)
			 FROM flights
			 WHERE departure_date = ? AND `+leg.column+` > 0 AND flight_status <> ?`,
			dateLabel, string(model.StatusCancelled),
		)
		if err := row.Scan(&leg.out.Delayed, &leg.out.Min, &leg.out.Max, &leg.out.Avg); err != nil {
			return nil, eris.Wrapf(err, "sqlite: stats %s", leg.column)
		}
	}

	row := s.db.QueryRowContext(ctx,
		sqliteSelectFlight+` WHERE departure_date = ? AND flight_status <> ? AND arrival_delay > 0
		 ORDER BY arrival_delay DESC, id LIMIT 1`,
		dateLabel, string(model.StatusCancelled),
	)
	worst, err := scanFlight(row)
	if err != nil && err != sql.ErrNoRows {
		return nil, eris.Wrap(err, "sqlite: stats worst arrival")
	}
	if err == nil {
		stats.WorstArrival = worst
	}

	return stats, nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run model.IngestRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, query_date, source, fetched, stored, skipped, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.QueryDate, run.Source, run.Fetched, run.Stored, run.Skipped, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrapf(err, "sqlite: record run %s", run.ID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_date, source, fetched, stored, skipped, started_at, finished_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		if err := rows.Scan(&r.ID, &r.QueryDate, &r.Source, &r.Fetched, &r.Stored, &r.Skipped, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}
