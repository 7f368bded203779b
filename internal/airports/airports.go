// Package airports resolves IATA codes to display names and countries for
// record enrichment. The seed table is embedded; a miss is reported as an
// error and callers map it to "UNKNOWN" so that enrichment never blocks
// ingestion.
package airports

import (
	_ "embed"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Unknown is the enrichment value for codes the table does not know.
const Unknown = "UNKNOWN"

// ErrNotFound is returned by Lookup for codes missing from the table.
var ErrNotFound = eris.New("airport not found")

//go:embed airports.yaml
var seedYAML []byte

// Airport holds the enrichment fields for one airport. Name and Country are
// already display-normalized: accent-folded, stripped of punctuation,
// uppercased.
type Airport struct {
	IATA    string `yaml:"iata"`
	Name    string `yaml:"name"`
	Country string `yaml:"country"`
}

// Index is an in-memory IATA lookup table.
type Index struct {
	byIATA map[string]Airport
}

// NewIndex loads the embedded seed table.
func NewIndex() (*Index, error) {
	return parseIndex(seedYAML)
}

func parseIndex(raw []byte) (*Index, error) {
	var entries []Airport
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrap(err, "airports: parse seed table")
	}
	byIATA := make(map[string]Airport, len(entries))
	for _, a := range entries {
		a.IATA = strings.ToUpper(strings.TrimSpace(a.IATA))
		a.Name = NormalizeName(a.Name)
		a.Country = NormalizeName(a.Country)
		byIATA[a.IATA] = a
	}
	return &Index{byIATA: byIATA}, nil
}

// Lookup resolves an IATA code, case-insensitively.
func (ix *Index) Lookup(iata string) (Airport, error) {
	a, ok := ix.byIATA[strings.ToUpper(strings.TrimSpace(iata))]
	if !ok {
		return Airport{}, eris.Wrapf(ErrNotFound, "airports: %q", iata)
	}
	return a, nil
}

// Len reports the number of known airports.
func (ix *Index) Len() int { return len(ix.byIATA) }

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName folds accents, drops everything that is not alphanumeric or
// a space, and uppercases. "Enfidha–Hammamet Intl" becomes
// "ENFIDHAHAMMAMET INTL", matching the display form used in stored records.
func NormalizeName(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r == ' ' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
