package reconcile

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tunis-skies/flightwatch/internal/airports"
	"github.com/tunis-skies/flightwatch/internal/localtime"
	"github.com/tunis-skies/flightwatch/internal/model"
)

// AirportLookup resolves an IATA code to airport metadata.
type AirportLookup interface {
	Lookup(iata string) (airports.Airport, error)
}

// FlightKey derives the record identity from the flight number and the
// scheduled departure. The key is stable for the life of a scheduled
// departure time; if the airline moves the scheduled time itself, a new
// identity (and record) is produced.
func FlightKey(flightNumber string, departureScheduled localtime.Point) string {
	return flightNumber + "_" + departureScheduled.Compact()
}

// Assemble reconciles both legs of one raw feed entry and merges them with
// airport enrichment into a canonical FlightRecord ready for upsert.
//
// The departure leg runs first with becomes-status "active"; its status
// output feeds the arrival leg, which runs with becomes-status "landed" and
// whose status result wins in the merged record. Only a structurally invalid
// timestamp fails the call; a missing airport lookup degrades to "UNKNOWN"
// so that absent metadata never blocks ingestion.
func Assemble(raw model.RawFlight, lookup AirportLookup, zone *localtime.Zone, clock localtime.Clock) (model.FlightRecord, error) {
	depScheduled, err := zone.Parse(raw.DepTime)
	if err != nil {
		return model.FlightRecord{}, eris.Wrapf(err, "assemble %s: departure scheduled", raw.FlightIATA)
	}
	arrScheduled, err := zone.Parse(raw.ArrTime)
	if err != nil {
		return model.FlightRecord{}, eris.Wrapf(err, "assemble %s: arrival scheduled", raw.FlightIATA)
	}

	depEstimated, err := parseOptional(zone, raw.DepEstimated)
	if err != nil {
		return model.FlightRecord{}, eris.Wrapf(err, "assemble %s: departure estimated", raw.FlightIATA)
	}
	depActual, err := parseOptional(zone, raw.DepActual)
	if err != nil {
		return model.FlightRecord{}, eris.Wrapf(err, "assemble %s: departure actual", raw.FlightIATA)
	}
	arrEstimated, err := parseOptional(zone, raw.ArrEstimated)
	if err != nil {
		return model.FlightRecord{}, eris.Wrapf(err, "assemble %s: arrival estimated", raw.FlightIATA)
	}
	arrActual, err := parseOptional(zone, raw.ArrActual)
	if err != nil {
		return model.FlightRecord{}, eris.Wrapf(err, "assemble %s: arrival actual", raw.FlightIATA)
	}

	dep := Leg(LegInput{
		Scheduled:       depScheduled,
		Estimated:       depEstimated,
		Actual:          depActual,
		RawStatus:       raw.Status,
		RawDelayMinutes: raw.DepDelay,
		BecomesStatus:   model.StatusActive,
	}, clock)

	arr := Leg(LegInput{
		Scheduled:       arrScheduled,
		Estimated:       arrEstimated,
		Actual:          arrActual,
		RawStatus:       dep.Status,
		RawDelayMinutes: raw.ArrDelay,
		BecomesStatus:   model.StatusLanded,
	}, clock)

	return model.FlightRecord{
		ID:                 FlightKey(raw.FlightIATA, depScheduled),
		DepartureDate:      dep.DateLabel,
		ArrivalDate:        arr.DateLabel,
		FlightNumber:       raw.FlightIATA,
		FlightStatus:       arr.Status,
		DepartureIATA:      raw.DepIATA,
		DepartureAirport:   airportName(lookup, raw.DepIATA),
		ArrivalIATA:        raw.ArrIATA,
		ArrivalAirport:     airportName(lookup, raw.ArrIATA),
		DepartureScheduled: raw.DepTime,
		DepartureHour:      dep.HourLabel,
		ArrivalScheduled:   raw.ArrTime,
		ArrivalHour:        arr.HourLabel,
		DepartureEstimated: raw.DepEstimated,
		ArrivalEstimated:   raw.ArrEstimated,
		DepartureActual:    raw.DepActual,
		ArrivalActual:      raw.ArrActual,
		DepartureDelay:     dep.DelayMinutes,
		ArrivalDelay:       arr.DelayMinutes,
		Airline:            raw.AirlineIATA,
		ArrivalCountry:     airportCountry(lookup, raw.ArrIATA),
		DepartureCountry:   airportCountry(lookup, raw.DepIATA),
	}, nil
}

func parseOptional(zone *localtime.Zone, s string) (*localtime.Point, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	p, err := zone.Parse(s)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func airportName(lookup AirportLookup, iata string) string {
	a, err := lookup.Lookup(iata)
	if err != nil {
		return airports.Unknown
	}
	return a.Name
}

func airportCountry(lookup AirportLookup, iata string) string {
	a, err := lookup.Lookup(iata)
	if err != nil {
		return airports.Unknown
	}
	return a.Country
}
