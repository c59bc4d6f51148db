package geocode

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cavena/mobility-cli/internal/model"
)

// Entry is one cached resolution. Misses are cached too (Matched=false)
// so a permanently failing address is not re-queried within a run.
type Entry struct {
	Point   model.GeoPoint
	Matched bool
}

// PersistentCache survives across runs (e.g. the sqlite geocode_cache
// table). Lookup returns nil with no error on a cache miss.
type PersistentCache interface {
	Lookup(ctx context.Context, key string) (*Entry, error)
	Store(ctx context.Context, key string, entry Entry) error
}

// runCache is the per-run address→result map. Single-goroutine use only:
// the resolver processes its batch sequentially.
type runCache struct {
	entries map[string]Entry
}

func newRunCache() *runCache {
	return &runCache{entries: make(map[string]Entry)}
}

func (c *runCache) get(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

func (c *runCache) put(key string, e Entry) {
	c.entries[key] = e
}

// accentFolder strips combining marks so "Hôtel-de-Ville" and
// "Hotel-de-Ville" share one cache key.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CacheKey normalizes an address for cache lookup: accent-folded,
// lowercased, whitespace collapsed.
func CacheKey(address string) string {
	folded, _, err := transform.String(accentFolder, address)
	if err != nil {
		folded = address
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
