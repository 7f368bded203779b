// Package store persists canonical flight records keyed by flight identity.
// Two backends implement the same contract: an embedded SQLite file (the
// default, single-writer) and PostgreSQL. Both upsert atomically via
// INSERT ... ON CONFLICT so a concurrent writer cannot race an existence
// check, and both use parameterized queries only.
package store

import (
	"context"

	"github.com/tunis-skies/flightwatch/internal/model"
)

// DelayStats summarizes one leg's delays for a departure date. Only positive
// delays on non-cancelled flights count as "delayed".
type DelayStats struct {
	Delayed int     `json:"delayed"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Avg     float64 `json:"avg"`
}

// DailyStats aggregates stored records for one departure date.
type DailyStats struct {
	DateLabel    string               `json:"date"`
	Total        int                  `json:"total"`
	Cancelled    int                  `json:"cancelled"`
	ByStatus     map[model.Status]int `json:"by_status"`
	Departure    DelayStats           `json:"departure"`
	Arrival      DelayStats           `json:"arrival"`
	WorstArrival *model.FlightRecord  `json:"worst_arrival,omitempty"`
}

// Store is the persistence contract for flight records and ingest runs.
// Upsert is idempotent: repeating it with an identical record leaves storage
// observably unchanged.
type Store interface {
	Upsert(ctx context.Context, rec model.FlightRecord) error
	Get(ctx context.Context, id string) (*model.FlightRecord, error)
	ListByDepartureDate(ctx context.Context, dateLabel string) ([]model.FlightRecord, error)
	DailyStats(ctx context.Context, dateLabel string) (*DailyStats, error)

	RecordRun(ctx context.Context, run model.IngestRun) error
	ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

// flightColumns is the canonical column order shared by both backends and by
// every scan helper.
var flightColumns = []string{
	"id",
	"departure_date",
	"arrival_date",
	"flight_number",
	"flight_status",
	"departure_iata",
	"departure_airport",
	"arrival_iata",
	"arrival_airport",
	"departure_scheduled",
	"departure_hour",
	"arrival_scheduled",
	"arrival_hour",
	"departure_estimated",
	"arrival_estimated",
	"departure_actual",
	"arrival_actual",
	"departure_delay",
	"arrival_delay",
	"airline",
	"arrival_country",
	"departure_country",
}

func flightValues(rec model.FlightRecord) []any {
	return []any{
		rec.ID,
		rec.DepartureDate,
		rec.ArrivalDate,
		rec.FlightNumber,
		string(rec.FlightStatus),
		rec.DepartureIATA,
		rec.DepartureAirport,
		rec.ArrivalIATA,
		rec.ArrivalAirport,
		rec.DepartureScheduled,
		rec.DepartureHour,
		rec.ArrivalScheduled,
		rec.ArrivalHour,
		rec.DepartureEstimated,
		rec.ArrivalEstimated,
		rec.DepartureActual,
		rec.ArrivalActual,
		rec.DepartureDelay,
		rec.ArrivalDelay,
		rec.Airline,
		rec.ArrivalCountry,
		rec.DepartureCountry,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFlight(row scannable) (*model.FlightRecord, error) {
	var rec model.FlightRecord
	var status string
	err := row.Scan(
		&rec.ID,
		&rec.DepartureDate,
		&rec.ArrivalDate,
		&rec.FlightNumber,
		&status,
		&rec.DepartureIATA,
		&rec.DepartureAirport,
		&rec.ArrivalIATA,
		&rec.ArrivalAirport,
		&rec.DepartureScheduled,
		&rec.DepartureHour,
		&rec.ArrivalScheduled,
		&rec.ArrivalHour,
		&rec.DepartureEstimated,
		&rec.ArrivalEstimated,
		&rec.DepartureActual,
		&rec.ArrivalActual,
		&rec.DepartureDelay,
		&rec.ArrivalDelay,
		&rec.Airline,
		&rec.ArrivalCountry,
		&rec.DepartureCountry,
	)
	if err != nil {
		return nil, err
	}
	rec.FlightStatus = model.Status(status)
	return &rec, nil
}
