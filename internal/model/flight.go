package model

import "time"

// Status is the lifecycle state reported by the airline feed.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusActive    Status = "active"
	StatusLanded    Status = "landed"
)

// KnownStatuses lists every status the feed is expected to send.
var KnownStatuses = []Status{StatusScheduled, StatusCancelled, StatusActive, StatusLanded}

// RawFlight is one feed entry after boundary defaulting: every optional key
// of the upstream payload is already resolved to a blank string or zero
// minutes, so reconciliation never does presence checks itself. The clean
// pass rebuilds RawFlight values from stored records, which is why the delay
// is carried per leg even though the feed reports a single "delayed" value.
type RawFlight struct {
	AirlineIATA  string
	FlightIATA   string
	Status       Status
	DepIATA      string
	ArrIATA      string
	DepTime      string
	ArrTime      string
	DepEstimated string
	DepActual    string
	ArrEstimated string
	ArrActual    string
	DepDelay     int
	ArrDelay     int
}

// FlightRecord is the canonical per-flight row, keyed by ID. The ID is
// derived from the flight number and the scheduled departure, so a feed that
// moves the scheduled departure itself produces a new record rather than
// rewriting the old one.
type FlightRecord struct {
	ID                 string `json:"id_flight"`
	DepartureDate      string `json:"departure_date"`
	ArrivalDate        string `json:"arrival_date"`
	FlightNumber       string `json:"flight_number"`
	FlightStatus       Status `json:"flight_status"`
	DepartureIATA      string `json:"departure_iata"`
	DepartureAirport   string `json:"departure_airport"`
	ArrivalIATA        string `json:"arrival_iata"`
	ArrivalAirport     string `json:"arrival_airport"`
	DepartureScheduled string `json:"departure_scheduled"`
	DepartureHour      string `json:"departure_hour"`
	ArrivalScheduled   string `json:"arrival_scheduled"`
	ArrivalHour        string `json:"arrival_hour"`
	DepartureEstimated string `json:"departure_estimated"`
	ArrivalEstimated   string `json:"arrival_estimated"`
	DepartureActual    string `json:"departure_actual"`
	ArrivalActual      string `json:"arrival_actual"`
	DepartureDelay     int    `json:"departure_delay"`
	ArrivalDelay       int    `json:"arrival_delay"`
	Airline            string `json:"airline"`
	ArrivalCountry     string `json:"arrival_country"`
	DepartureCountry   string `json:"departure_country"`
}

// IngestRun records one ingest invocation for observability.
type IngestRun struct {
	ID         string    `json:"id"`
	QueryDate  string    `json:"query_date"`
	Source     string    `json:"source"`
	Fetched    int       `json:"fetched"`
	Stored     int       `json:"stored"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
