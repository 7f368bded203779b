package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunis-skies/flightwatch/internal/airports"
	"github.com/tunis-skies/flightwatch/internal/model"
)

type fakeLookup struct {
	byIATA map[string]airports.Airport
}

func (f fakeLookup) Lookup(iata string) (airports.Airport, error) {
	a, ok := f.byIATA[iata]
	if !ok {
		return airports.Airport{}, airports.ErrNotFound
	}
	return a, nil
}

func testLookup() fakeLookup {
	return fakeLookup{byIATA: map[string]airports.Airport{
		"TUN": {IATA: "TUN", Name: "TUNIS CARTHAGE", Country: "TUNISIA"},
		"ORY": {IATA: "ORY", Name: "PARIS ORLY", Country: "FRANCE"},
	}}
}

func baseRaw() model.RawFlight {
	return model.RawFlight{
		AirlineIATA: "TU",
		FlightIATA:  "TU123",
		Status:      model.StatusScheduled,
		DepIATA:     "TUN",
		ArrIATA:     "ORY",
		DepTime:     "2024-03-01 10:00",
		ArrTime:     "2024-03-01 12:10",
	}
}

func TestFlightKey(t *testing.T) {
	key := FlightKey("TU123", point(t, "2024-03-01 10:00"))
	assert.Equal(t, "TU123_01_03_2024_10_00", key)
}

func TestAssemble_ScheduledFutureFlight(t *testing.T) {
	rec, err := Assemble(baseRaw(), testLookup(), tunis, clockAt(t, "2024-03-01 08:00"))
	require.NoError(t, err)

	assert.Equal(t, "TU123_01_03_2024_10_00", rec.ID)
	assert.Equal(t, model.StatusScheduled, rec.FlightStatus)
	assert.Equal(t, "01/03/2024", rec.DepartureDate)
	assert.Equal(t, "10h", rec.DepartureHour)
	assert.Equal(t, "12h", rec.ArrivalHour)
	assert.Equal(t, "TUNIS CARTHAGE", rec.DepartureAirport)
	assert.Equal(t, "PARIS ORLY", rec.ArrivalAirport)
	assert.Equal(t, "TUNISIA", rec.DepartureCountry)
	assert.Equal(t, "FRANCE", rec.ArrivalCountry)
	assert.Equal(t, 0, rec.DepartureDelay)
	assert.Equal(t, 0, rec.ArrivalDelay)
}

func TestAssemble_DelayedFlightRecomputesBothLegs(t *testing.T) {
	raw := baseRaw()
	raw.DepEstimated = "2024-03-01 10:40"
	raw.ArrEstimated = "2024-03-01 12:45"
	raw.DepDelay = 15
	raw.ArrDelay = 15

	rec, err := Assemble(raw, testLookup(), tunis, clockAt(t, "2024-03-01 09:00"))
	require.NoError(t, err)

	assert.Equal(t, 40, rec.DepartureDelay)
	assert.Equal(t, 35, rec.ArrivalDelay)
	assert.Equal(t, "10h", rec.DepartureHour)
	assert.Equal(t, "12h", rec.ArrivalHour)
	assert.Equal(t, model.StatusScheduled, rec.FlightStatus)
}

func TestAssemble_StatusChainsDepartureIntoArrival(t *testing.T) {
	raw := baseRaw()
	raw.DepActual = "2024-03-01 10:05"

	// Departed, but the arrival is still ahead of the clock: the departure
	// leg flips to active and the arrival leg carries that forward.
	rec, err := Assemble(raw, testLookup(), tunis, clockAt(t, "2024-03-01 11:00"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, rec.FlightStatus)

	// Once the clock passes the arrival too, the arrival leg wins with landed.
	rec, err = Assemble(raw, testLookup(), tunis, clockAt(t, "2024-03-01 13:00"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusLanded, rec.FlightStatus)
}

func TestAssemble_CancelledStaysCancelled(t *testing.T) {
	raw := baseRaw()
	raw.Status = model.StatusCancelled

	rec, err := Assemble(raw, testLookup(), tunis, clockAt(t, "2024-03-02 09:00"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, rec.FlightStatus)
}

func TestAssemble_UnknownAirportDegrades(t *testing.T) {
	raw := baseRaw()
	raw.ArrIATA = "XXX"

	rec, err := Assemble(raw, testLookup(), tunis, clockAt(t, "2024-03-01 08:00"))
	require.NoError(t, err)
	assert.Equal(t, airports.Unknown, rec.ArrivalAirport)
	assert.Equal(t, airports.Unknown, rec.ArrivalCountry)
	assert.Equal(t, "TUNIS CARTHAGE", rec.DepartureAirport)
}

func TestAssemble_InvalidScheduledFails(t *testing.T) {
	raw := baseRaw()
	raw.DepTime = "garbage"

	_, err := Assemble(raw, testLookup(), tunis, clockAt(t, "2024-03-01 08:00"))
	assert.Error(t, err)
}

func TestAssemble_InvalidOptionalFails(t *testing.T) {
	raw := baseRaw()
	raw.ArrEstimated = "garbage"

	_, err := Assemble(raw, testLookup(), tunis, clockAt(t, "2024-03-01 08:00"))
	assert.Error(t, err)
}

func TestAssemble_BlankOptionalsAreFine(t *testing.T) {
	raw := baseRaw()
	raw.DepEstimated = "  "

	rec, err := Assemble(raw, testLookup(), tunis, clockAt(t, "2024-03-01 08:00"))
	require.NoError(t, err)
	assert.Equal(t, "10h", rec.DepartureHour)
}

func TestAssemble_IdempotentUnderFixedClock(t *testing.T) {
	raw := baseRaw()
	raw.DepActual = "2024-03-01 10:12"
	raw.ArrActual = "2024-03-01 12:30"
	clock := clockAt(t, "2024-03-01 14:00")

	first, err := Assemble(raw, testLookup(), tunis, clock)
	require.NoError(t, err)
	second, err := Assemble(raw, testLookup(), tunis, clock)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssemble_RawStringsRoundTrip(t *testing.T) {
	raw := baseRaw()
	raw.DepEstimated = "2024-03-01 10:40"
	raw.ArrActual = "2024-03-01 12:30"

	rec, err := Assemble(raw, testLookup(), tunis, clockAt(t, "2024-03-01 08:00"))
	require.NoError(t, err)

	assert.Equal(t, raw.DepTime, rec.DepartureScheduled)
	assert.Equal(t, raw.ArrTime, rec.ArrivalScheduled)
	assert.Equal(t, raw.DepEstimated, rec.DepartureEstimated)
	assert.Equal(t, raw.ArrActual, rec.ArrivalActual)
	assert.Equal(t, "", rec.DepartureActual)
}
