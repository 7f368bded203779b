// Package localtime anchors every instant the pipeline touches to the
// airport's local zone. Feed timestamps arrive with or without an offset;
// either way they are normalized into the one configured IANA zone so that
// hour and date labels, and the flight identity keys derived from them, are
// consistent across ingest and clean passes.
package localtime

import (
	"time"

	"github.com/rotisserie/eris"
)

// DefaultZone is the IANA zone used when none is configured.
const DefaultZone = "Africa/Tunis"

// ErrInvalidFormat is returned (wrapped) when a timestamp string cannot be
// parsed as any accepted ISO-8601 layout.
var ErrInvalidFormat = eris.New("invalid time format")

// Layouts accepted from the schedules feed, tried in order. The feed usually
// sends "2006-01-02 15:04" without an offset; stored values round-trip as
// whatever string the feed gave us.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006",
}

// Zone wraps a fixed *time.Location. It doubles as the system Clock: Now()
// returns the current instant in the zone.
type Zone struct {
	loc *time.Location
}

// NewZone loads the named IANA zone.
func NewZone(name string) (*Zone, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, eris.Wrapf(err, "localtime: load zone %s", name)
	}
	return &Zone{loc: loc}, nil
}

// MustZone is NewZone for tests and package defaults; panics on bad names.
func MustZone(name string) *Zone {
	z, err := NewZone(name)
	if err != nil {
		panic(err)
	}
	return z
}

// Parse converts an ISO-8601-ish string into a Point in the zone. Strings
// carrying an offset are converted; offset-less strings are interpreted as
// zone-local wall time.
func (z *Zone) Parse(s string) (Point, error) {
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, z.loc)
		if err == nil {
			return Point{t: t.In(z.loc)}, nil
		}
	}
	return Point{}, eris.Wrapf(ErrInvalidFormat, "localtime: parse %q", s)
}

// At converts an existing time.Time into a Point in the zone.
func (z *Zone) At(t time.Time) Point {
	return Point{t: t.In(z.loc)}
}

// Now returns the current instant in the zone. Zone satisfies Clock.
func (z *Zone) Now() Point {
	return Point{t: time.Now().In(z.loc)}
}

// Clock provides ambient time. Reconciliation takes a Clock instead of
// reading time.Now so the status-flip branch is deterministic under test.
type Clock interface {
	Now() Point
}

// Point is a timezone-aware instant. All derived labels are computed from the
// same underlying instant.
type Point struct {
	t time.Time
}

// Time returns the underlying time.Time.
func (p Point) Time() time.Time { return p.t }

// IsZero reports whether the point was never set.
func (p Point) IsZero() bool { return p.t.IsZero() }

// Hour returns the two-digit 24h hour, e.g. "14".
func (p Point) Hour() string { return p.t.Format("15") }

// DateLabel returns the day/month/year label, e.g. "01/03/2024".
func (p Point) DateLabel() string { return p.t.Format("02/01/2006") }

// Compact returns the underscore-joined identity label, e.g. "01_03_2024_10_00".
func (p Point) Compact() string { return p.t.Format("02_01_2006_15_04") }

// ShortCompact returns the date-only identity label, e.g. "01_03_2024".
func (p Point) ShortCompact() string { return p.t.Format("02_01_2006") }

// FullHour returns "15:04".
func (p Point) FullHour() string { return p.t.Format("15:04") }

// FullDay returns a human date, e.g. "Fri 01 Mar 2024".
func (p Point) FullDay() string { return p.t.Format("Mon 02 Jan 2006") }

// Month returns the two-digit month, used for snapshot directory layout.
func (p Point) Month() string { return p.t.Format("01") }

// After reports whether p is strictly later than other.
func (p Point) After(other Point) bool { return p.t.After(other.t) }

// Sub returns the duration p - other.
func (p Point) Sub(other Point) time.Duration { return p.t.Sub(other.t) }

// AddDays returns the point shifted by the given number of days.
func (p Point) AddDays(days int) Point { return Point{t: p.t.AddDate(0, 0, days)} }

// String renders the point as RFC 3339 for logs.
func (p Point) String() string { return p.t.Format(time.RFC3339) }
