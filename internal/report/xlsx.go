package report

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

var xlsxHeader = []string{
	"ID", "DEPARTURE_DATE", "ARRIVAL_DATE", "FLIGHT_NUMBER", "FLIGHT_STATUS",
	"DEPARTURE_IATA", "DEPARTURE_AIRPORT", "ARRIVAL_IATA", "ARRIVAL_AIRPORT",
	"DEPARTURE_SCHEDULED", "DEPARTURE_HOUR", "ARRIVAL_SCHEDULED", "ARRIVAL_HOUR",
	"DEPARTURE_ESTIMATED", "ARRIVAL_ESTIMATED", "DEPARTURE_ACTUAL", "ARRIVAL_ACTUAL",
	"DEPARTURE_DELAY", "ARRIVAL_DELAY", "AIRLINE", "ARRIVAL_COUNTRY", "DEPARTURE_COUNTRY",
}

// WriteXLSX exports the day's records as a spreadsheet, one row per flight,
// with a summary sheet carrying the aggregates.
func (d *Daily) WriteXLSX(path string) error {
	file := xlsx.NewFile()

	flights, err := file.AddSheet("flights")
	if err != nil {
		return eris.Wrap(err, "report: add flights sheet")
	}
	header := flights.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().Value = h
	}
	for _, rec := range d.Records {
		row := flights.AddRow()
		for _, v := range []string{
			rec.ID, rec.DepartureDate, rec.ArrivalDate, rec.FlightNumber, string(rec.FlightStatus),
			rec.DepartureIATA, rec.DepartureAirport, rec.ArrivalIATA, rec.ArrivalAirport,
			rec.DepartureScheduled, rec.DepartureHour, rec.ArrivalScheduled, rec.ArrivalHour,
			rec.DepartureEstimated, rec.ArrivalEstimated, rec.DepartureActual, rec.ArrivalActual,
			strconv.Itoa(rec.DepartureDelay), strconv.Itoa(rec.ArrivalDelay),
			rec.Airline, rec.ArrivalCountry, rec.DepartureCountry,
		} {
			row.AddCell().Value = v
		}
	}

	summary, err := file.AddSheet("summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	s := d.Stats
	for _, line := range [][2]string{
		{"DATE", s.DateLabel},
		{"TOTAL", strconv.Itoa(s.Total)},
		{"CANCELLED", strconv.Itoa(s.Cancelled)},
		{"DELAYED_DEPARTURES", strconv.Itoa(s.Departure.Delayed)},
		{"MAX_DEPARTURE_DELAY", strconv.Itoa(s.Departure.Max)},
		{"DELAYED_ARRIVALS", strconv.Itoa(s.Arrival.Delayed)},
		{"MAX_ARRIVAL_DELAY", strconv.Itoa(s.Arrival.Max)},
	} {
		row := summary.AddRow()
		row.AddCell().Value = line[0]
		row.AddCell().Value = line[1]
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}
