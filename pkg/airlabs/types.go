package airlabs

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Direction selects which side of the airport the schedules query covers.
type Direction string

const (
	Departures Direction = "departure"
	Arrivals   Direction = "arrival"
)

// queryParam returns the schedules query key for the direction ("dep_iata"
// or "arr_iata").
func (d Direction) queryParam() string {
	return string(d)[:3] + "_iata"
}

// Flight is one schedules entry as the API reports it. Optional keys decode
// to blank strings or zero minutes; presence checks happen here, at the
// boundary, and nowhere else.
type Flight struct {
	AirlineIATA  string  `json:"airline_iata"`
	FlightIATA   string  `json:"flight_iata"`
	Status       string  `json:"status"`
	DepIATA      string  `json:"dep_iata"`
	ArrIATA      string  `json:"arr_iata"`
	DepTime      string  `json:"dep_time"`
	ArrTime      string  `json:"arr_time"`
	DepEstimated string  `json:"dep_estimated"`
	DepActual    string  `json:"dep_actual"`
	ArrEstimated string  `json:"arr_estimated"`
	ArrActual    string  `json:"arr_actual"`
	Delayed      Minutes `json:"delayed"`
}

// Minutes decodes the feed's "delayed" field, which arrives as a number, a
// numeric string, an empty string, or null depending on the day. Anything
// unusable becomes 0 rather than an error; a delay field never fails a record.
type Minutes int

func (m *Minutes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			*m = 0
			return nil
		}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*m = 0
		return nil
	}
	*m = Minutes(int(f))
	return nil
}

// apiError is the error envelope the API returns alongside HTTP 200 in some
// failure modes.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// envelope is the schedules response wrapper.
type envelope struct {
	Response []Flight  `json:"response"`
	Error    *apiError `json:"error"`
}

// ParseSchedules decodes a schedules response body. It is used both for live
// responses and for replaying snapshotted payloads.
func ParseSchedules(body []byte) ([]Flight, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "airlabs: decode schedules response")
	}
	if env.Error != nil {
		return nil, eris.Errorf("airlabs: api error %s: %s", env.Error.Code, env.Error.Message)
	}
	return env.Response, nil
}
