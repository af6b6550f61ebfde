// Package insightcache holds the most recent insight document per vehicle
// and enforces the generation discipline: at most one generation per vehicle
// in flight, atomic whole-entry replacement, and forced-refresh invalidation.
// Staleness is data-driven (a forced refresh or a changed record hash),
// never wall-clock time, unless the optional MaxAge setting is enabled.
package insightcache

import (
	"context"
	"log"
	"time"

	"github.com/joelkehle/vehicle-insights/internal/flight"
	"github.com/joelkehle/vehicle-insights/internal/insight"
	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

// GeneratorFunc is the insight generator boundary.
type GeneratorFunc interface {
	Generate(ctx context.Context, rec *vehicle.Record) (vehicle.InsightDocument, error)
}

type entry struct {
	doc        vehicle.InsightDocument
	generation uint64
	dataHash   string
}

type Config struct {
	Generator GeneratorFunc
	// MaxAge, when positive, treats entries older than it as misses. Zero
	// disables time-based staleness; the core relies on forced refresh and
	// record-hash changes only.
	MaxAge time.Duration
	Clock  func() time.Time
}

type Cache struct {
	cfg     Config
	flights *flight.Group

	store cacheStore
}

// cacheStore is the mutation boundary shared by the in-memory map and the
// SQLite write-through wrapper. Entries are only ever replaced wholesale.
type cacheStore interface {
	get(vehicleID string) (entry, bool)
	replace(vehicleID string, e entry)
}

func NewCache(cfg Config) *Cache {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Cache{cfg: cfg, flights: flight.NewGroup(), store: newMemoryStore()}
}

// Peek returns the cached document for vehicleID, if any, decorated with
// cached=true. It never triggers generation.
func (c *Cache) Peek(vehicleID string) (vehicle.InsightDocument, bool) {
	e, ok := c.store.get(vehicleID)
	if !ok {
		return vehicle.InsightDocument{}, false
	}
	doc := e.doc
	doc.Cached = true
	return doc, true
}

// Generation reports the entry's generation counter; zero means no entry.
func (c *Cache) Generation(vehicleID string) uint64 {
	e, ok := c.store.get(vehicleID)
	if !ok {
		return 0
	}
	return e.generation
}

// GetOrGenerate returns the current insight document for vehicleID,
// generating one when forced, absent, or stale. Concurrent callers for the
// same vehicle share a single generation and receive the identical document.
// A failed generation leaves any previous entry untouched; every waiter for
// that attempt sees the error, and the next call retries.
func (c *Cache) GetOrGenerate(ctx context.Context, vehicleID string, rec *vehicle.Record, forceRefresh bool) (vehicle.InsightDocument, error) {
	hash := insight.RecordHash(rec)
	if !forceRefresh {
		if doc, ok := c.freshEntry(vehicleID, hash); ok {
			return doc, nil
		}
	}

	v, err := c.flights.Do(vehicleID, func() (any, error) {
		// A waiter that queued behind a refresh does not need a second
		// generation of its own; the winner's document is current.
		if !forceRefresh {
			if doc, ok := c.freshEntry(vehicleID, hash); ok {
				return doc, nil
			}
		}
		// Detached from the caller: other waiters (and future lookups)
		// depend on this generation even if this caller disconnects.
		doc, err := c.cfg.Generator.Generate(context.WithoutCancel(ctx), rec)
		if err != nil {
			log.Printf("insight-cache generation failed vehicle=%s err=%v", vehicleID, err)
			return nil, err
		}
		prev, _ := c.store.get(vehicleID)
		c.store.replace(vehicleID, entry{
			doc:        doc,
			generation: prev.generation + 1,
			dataHash:   hash,
		})
		return doc, nil
	})
	if err != nil {
		return vehicle.InsightDocument{}, err
	}
	return v.(vehicle.InsightDocument), nil
}

// freshEntry returns the cached document when it is still usable for hash.
func (c *Cache) freshEntry(vehicleID, hash string) (vehicle.InsightDocument, bool) {
	e, ok := c.store.get(vehicleID)
	if !ok {
		return vehicle.InsightDocument{}, false
	}
	if e.dataHash != hash {
		return vehicle.InsightDocument{}, false
	}
	if c.cfg.MaxAge > 0 && c.cfg.Clock().Sub(e.doc.GeneratedAt) > c.cfg.MaxAge {
		return vehicle.InsightDocument{}, false
	}
	doc := e.doc
	doc.Cached = true
	return doc, true
}
