package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tunis-skies/flightwatch/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock's PgxPoolIface
// satisfies it, which is how the postgres backend is unit-tested without a
// server.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare the hot-path statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range map[string]string{
			"upsert_flight": pgUpsertSQL,
			"get_flight":    pgSelectFlight + ` WHERE id = $1`,
		} {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
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
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flights_departure_date ON flights(departure_date);
CREATE INDEX IF NOT EXISTS idx_flights_airline ON flights(airline);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_query_date ON ingest_runs(query_date);
`

var (
	pgSelectFlight = `SELECT ` + strings.Join(flightColumns, ", ") + ` FROM flights`

	pgUpsertSQL = func() string {
		placeholders := make([]string, len(flightColumns))
		for i := range flightColumns {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		updates := make([]string, 0, len(flightColumns)-1)
		for _, col := range flightColumns[1:] {
			updates = append(updates, col+" = EXCLUDED."+col)
		}
		return `INSERT INTO flights (` + strings.Join(flightColumns, ", ") + `)
		VALUES (` + strings.Join(placeholders, ", ") + `)
		ON CONFLICT (id) DO UPDATE SET ` + strings.Join(updates, ", ")
	}()
)

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec model.FlightRecord) error {
	if rec.ID == "" {
		return eris.New("postgres: upsert: empty flight id")
	}
	_, err := s.pool.Exec(ctx, pgUpsertSQL, flightValues(rec)...)
	return eris.Wrapf(err, "postgres: upsert %s", rec.ID)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.FlightRecord, error) {
	row := s.pool.QueryRow(ctx, pgSelectFlight+` WHERE id = $1`, id)
	rec, err := scanFlight(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) ListByDepartureDate(ctx context.Context, dateLabel string) ([]model.FlightRecord, error) {
	rows, err := s.pool.Query(ctx,
		pgSelectFlight+` WHERE departure_date = $1 ORDER BY departure_scheduled, id`,
		dateLabel,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list by departure date")
	}
	defer rows.Close()

	var recs []model.FlightRecord
	for rows.Next() {
		rec, err := scanFlight(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan flight")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list iterate")
}

func (s *PostgresStore) DailyStats(ctx context.Context, dateLabel string) (*DailyStats, error) {
	stats := &DailyStats{
		DateLabel: dateLabel,
		ByStatus:  make(map[model.Status]int),
	}

	rows, err := s.pool.Query(ctx,
		`SELECT flight_status, COUNT(*) FROM flights WHERE departure_date = $1 GROUP BY flight_status`,
		dateLabel,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		stats.ByStatus[model.Status(status)] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: stats iterate")
	}
	stats.Cancelled = stats.ByStatus[model.StatusCancelled]

	for _, leg := range []struct {
		column string
		out    *DelayStats
	}{
		{"departure_delay", &stats.Departure},
		{"arrival_delay", &stats.Arrival},
	} {
		row := s.pool.QueryRow(ctx,
			`SELECT COUNT(*), COALESCE(MIN(`+leg.column+`), 0), COALESCE(MAX(`+leg.column+`), 0), COALESCE(AVG(`+leg.column+`), 0)
			 FROM flights
			 WHERE departure_date = $1 AND `+leg.column+` > 0 AND flight_status <> $2`,
			dateLabel, string(model.StatusCancelled),
		)
		if err := row.Scan(&leg.out.Delayed, &leg.out.Min, &leg.out.Max, &leg.out.Avg); err != nil {
			return nil, eris.Wrapf(err, "postgres: stats %s", leg.column)
		}
	}

	row := s.pool.QueryRow(ctx,
		pgSelectFlight+` WHERE departure_date = $1 AND flight_status <> $2 AND arrival_delay > 0
		 ORDER BY arrival_delay DESC, id LIMIT 1`,
		dateLabel, string(model.StatusCancelled),
	)
	worst, err := scanFlight(row)
	if err != nil && err != pgx.ErrNoRows {
		return nil, eris.Wrap(err, "postgres: stats worst arrival")
	}
	if err == nil {
		stats.WorstArrival = worst
	}

	return stats, nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, run model.IngestRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, query_date, source, fetched, stored, skipped, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.QueryDate, run.Source, run.Fetched, run.Stored, run.Skipped, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrapf(err, "postgres: record run %s", run.ID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, query_date, source, fetched, stored, skipped, started_at, finished_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		if err := rows.Scan(&r.ID, &r.QueryDate, &r.Source, &r.Fetched, &r.Stored, &r.Skipped, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
