// Package locations holds the static table of polling stations, indexed by
// the INSEE code of their commune. The table is read-only once loaded.
package locations

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"delegues-backend/internal/domain"
)

const (
	DefaultSearchLimit = 10
	MaxQueryLength     = 300
)

type file struct {
	Locations []domain.Location `yaml:"locations"`
}

type commune struct {
	insee  string
	name   string
	folded string
	count  int
}

// Directory is the lookup table of polling stations.
type Directory struct {
	byInsee  map[string][]domain.Location
	communes []commune
}

// Load reads a YAML file with a top-level "locations" list.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locations file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse locations file: %w", err)
	}
	return New(f.Locations)
}

// New indexes locations, keeping their order within each commune.
func New(locs []domain.Location) (*Directory, error) {
	d := &Directory{byInsee: make(map[string][]domain.Location)}
	seen := make(map[domain.Station]bool)
	for i, l := range locs {
		if l.Insee == "" || l.Bureau == "" {
			return nil, fmt.Errorf("location %d: insee and bur are required", i)
		}
		if seen[l.Station()] {
			return nil, fmt.Errorf("location %d: duplicate bureau %s", i, l.Station())
		}
		seen[l.Station()] = true
		if _, ok := d.byInsee[l.Insee]; !ok {
			d.communes = append(d.communes, commune{insee: l.Insee, name: l.Commune, folded: fold(l.Commune)})
		}
		d.byInsee[l.Insee] = append(d.byInsee[l.Insee], l)
	}
	for i := range d.communes {
		d.communes[i].count = len(d.byInsee[d.communes[i].insee])
	}
	return d, nil
}

// Lookup returns a copy of the bureaux of a commune.
func (d *Directory) Lookup(insee string) ([]domain.Location, bool) {
	locs, ok := d.byInsee[insee]
	if !ok {
		return nil, false
	}
	out := make([]domain.Location, len(locs))
	copy(out, locs)
	return out, true
}

// Has reports whether the station is listed.
func (d *Directory) Has(station domain.Station) bool {
	for _, l := range d.byInsee[station.LocationID] {
		if l.Bureau == station.RoleID {
			return true
		}
	}
	return false
}

// Len returns the number of communes.
func (d *Directory) Len() int {
	return len(d.communes)
}

// Search finds communes by name or INSEE code, ignoring case and accents.
// Prefix matches come first, then substring matches; ties keep file order.
func (d *Directory) Search(query string, limit int) ([]domain.Commune, error) {
	query = strings.TrimSpace(query)
	if query == "" || len([]rune(query)) > MaxQueryLength {
		return nil, domain.ErrInvalidQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := fold(query)

	type hit struct {
		c    commune
		rank int
	}
	var hits []hit
	for _, c := range d.communes {
		switch {
		case strings.HasPrefix(strings.ToLower(c.insee), q), strings.HasPrefix(c.folded, q):
			hits = append(hits, hit{c, 0})
		case strings.Contains(c.folded, q):
			hits = append(hits, hit{c, 1})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Commune, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.Commune{Insee: h.c.insee, Name: h.c.name, Bureaux: h.c.count})
	}
	return out, nil
}

// fold lowercases s, strips diacritics and treats hyphens and apostrophes
// as spaces ("Saint-Étienne" matches "saint etienne").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = strings.NewReplacer("-", " ", "'", " ", "’", " ").Replace(out)
	return strings.Join(strings.Fields(out), " ")
}
