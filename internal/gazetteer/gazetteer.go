// Package gazetteer resolves place names to coordinates, country, and asset
// type for incidents whose source text names a location but doesn't carry
// coordinates directly.
package gazetteer

import (
	"strings"

	"github.com/STRATINT/stratint/internal/models"
)

// Entry is one gazetteer record.
type Entry struct {
	Name        string
	Lat         float64
	Lon         float64
	Country     string
	AssetType   models.AssetType
	Aliases     []string
	LowPrecision bool // generic placeholder (e.g. "the airport") — suppress default-point clustering
}

// Gazetteer is a process-wide, read-only-after-init name lookup table.
type Gazetteer struct {
	byKey map[string]Entry
}

// New builds a Gazetteer from a list of entries, indexing each entry's name
// and aliases case- and diacritic-insensitively.
func New(entries []Entry) *Gazetteer {
	g := &Gazetteer{byKey: make(map[string]Entry)}
	for _, e := range entries {
		g.byKey[fold(e.Name)] = e
		for _, alias := range e.Aliases {
			g.byKey[fold(alias)] = e
		}
	}
	return g
}

// Lookup resolves a place name to its gazetteer entry. The second return
// value is false if no entry matches.
func (g *Gazetteer) Lookup(name string) (Entry, bool) {
	e, ok := g.byKey[fold(name)]
	return e, ok
}

// FindInText scans free text for any known gazetteer name or alias and
// returns the first match, preferring longer (more specific) names.
func (g *Gazetteer) FindInText(text string) (Entry, bool) {
	folded := fold(text)
	var best Entry
	bestLen := 0
	found := false
	for key, e := range g.byKey {
		if strings.Contains(folded, key) && len(key) > bestLen {
			best = e
			bestLen = len(key)
			found = true
		}
	}
	return best, found
}

// diacriticFolds maps common Nordic/European diacritics to their plain-ASCII
// base letter so gazetteer lookups are diacritic-insensitive without pulling
// in a full Unicode normalization dependency.
var diacriticFolds = strings.NewReplacer(
	"å", "a", "ä", "a", "á", "a", "à", "a",
	"ö", "o", "ø", "o", "ó", "o", "ò", "o",
	"æ", "ae",
	"é", "e", "è", "e", "ë", "e",
	"ü", "u", "ú", "u",
	"í", "i", "ï", "i",
	"ñ", "n",
	"ç", "c",
)

// fold normalizes a string for case/diacritic-insensitive comparison.
func fold(s string) string {
	return strings.TrimSpace(diacriticFolds.Replace(strings.ToLower(s)))
}

// DefaultEntries is a small seed table of well-known European assets used
// when no external gazetteer data source is configured. Parser-level
// gazetteer population (e.g. from Wikipedia) is out of scope; this seed
// exists so the gazetteer is never empty in a fresh deployment.
func DefaultEntries() []Entry {
	return []Entry{
		{Name: "Copenhagen Airport", Lat: 55.6181, Lon: 12.6561, Country: "DK", AssetType: models.AssetTypeAirport,
			Aliases: []string{"Kastrup", "CPH"}},
		{Name: "Oslo Airport", Lat: 60.1939, Lon: 11.1004, Country: "NO", AssetType: models.AssetTypeAirport,
			Aliases: []string{"Gardermoen", "OSL"}},
		{Name: "Stockholm Arlanda Airport", Lat: 59.6519, Lon: 17.9186, Country: "SE", AssetType: models.AssetTypeAirport,
			Aliases: []string{"Arlanda", "ARN"}},
		{Name: "Helsinki Airport", Lat: 60.3172, Lon: 24.9633, Country: "FI", AssetType: models.AssetTypeAirport,
			Aliases: []string{"Vantaa", "HEL"}},
		{Name: "Berlin Brandenburg Airport", Lat: 52.3667, Lon: 13.5033, Country: "DE", AssetType: models.AssetTypeAirport,
			Aliases: []string{"BER"}},
		{Name: "the airport", Lat: 0, Lon: 0, Country: "", AssetType: models.AssetTypeAirport, LowPrecision: true},
	}
}
