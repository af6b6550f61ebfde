// Package recordstore holds the canonical record per vehicle. It is the
// source of truth for "have we fetched this vehicle before": a hit returns
// without touching the provider, a miss fetches under single-flight so
// concurrent lookups for the same identifier share one provider call.
package recordstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/joelkehle/vehicle-insights/internal/flight"
	"github.com/joelkehle/vehicle-insights/internal/identifier"
	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

const MaxSearchResults = 10

// Fetcher is the provider adapter boundary.
type Fetcher interface {
	Fetch(ctx context.Context, id identifier.Identifier) (*vehicle.Record, error)
}

type Store struct {
	fetcher Fetcher
	flights *flight.Group

	mu           sync.RWMutex
	byIdentifier map[string]string          // identifier key -> vehicle id
	vehicles     map[string]*vehicle.Record // vehicle id -> record
}

func NewStore(fetcher Fetcher) *Store {
	return &Store{
		fetcher:      fetcher,
		flights:      flight.NewGroup(),
		byIdentifier: map[string]string{},
		vehicles:     map[string]*vehicle.Record{},
	}
}

// GetOrFetch returns the stored record for id, fetching it from the provider
// on a miss. Concurrent misses for the same identifier collapse into one
// provider call. Failed fetches are never cached; the next call retries.
func (s *Store) GetOrFetch(ctx context.Context, id identifier.Identifier) (*vehicle.Record, error) {
	if rec, ok := s.lookup(id.Key()); ok {
		return rec, nil
	}
	v, err := s.flights.Do(id.Key(), func() (any, error) {
		// A racing caller may have stored the record between our miss and
		// the flight starting.
		if rec, ok := s.lookup(id.Key()); ok {
			return rec, nil
		}
		rec, err := s.fetcher.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		s.Put(rec)
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*vehicle.Record), nil
}

// Put stores rec wholesale, indexed under its surrogate id and both external
// identifiers, replacing any previous record for the same vehicle.
func (s *Store) Put(rec *vehicle.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[rec.VehicleID] = rec
	if rec.Basic.VIN != "" {
		s.byIdentifier[string(identifier.KindVIN)+":"+rec.Basic.VIN] = rec.VehicleID
	}
	if rec.Basic.VRM != "" {
		s.byIdentifier[string(identifier.KindVRM)+":"+rec.Basic.VRM] = rec.VehicleID
	}
}

func (s *Store) GetByVehicleID(vehicleID string) (*vehicle.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.vehicles[vehicleID]
	return rec, ok
}

func (s *Store) lookup(key string) (*vehicle.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vid, ok := s.byIdentifier[key]
	if !ok {
		return nil, false
	}
	rec, ok := s.vehicles[vid]
	return rec, ok
}

// SearchResult is the lightweight row returned by Search.
type SearchResult struct {
	VehicleID     string `json:"vehicle_id"`
	VIN           string `json:"vin,omitempty"`
	VRM           string `json:"vrm,omitempty"`
	Make          string `json:"make,omitempty"`
	Model         string `json:"model,omitempty"`
	Year          int    `json:"year,omitempty"`
	VehicleStatus string `json:"vehicle_status,omitempty"`
}

// Search matches query against VIN, VRM, make and model of every stored
// vehicle, accent- and case-insensitively, returning at most
// MaxSearchResults rows ordered by vehicle id for stable output.
func (s *Store) Search(query string) []SearchResult {
	q := foldForSearch(query)
	if q == "" {
		return []SearchResult{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.vehicles))
	for id := range s.vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := []SearchResult{}
	for _, id := range ids {
		rec := s.vehicles[id]
		if !matchesQuery(rec, q) {
			continue
		}
		results = append(results, SearchResult{
			VehicleID:     rec.VehicleID,
			VIN:           rec.Basic.VIN,
			VRM:           rec.Basic.VRM,
			Make:          rec.Basic.Make,
			Model:         rec.Basic.Model,
			Year:          rec.Basic.Year,
			VehicleStatus: rec.Basic.VehicleStatus,
		})
		if len(results) >= MaxSearchResults {
			break
		}
	}
	return results
}

func matchesQuery(rec *vehicle.Record, folded string) bool {
	for _, field := range []string{rec.Basic.VIN, rec.Basic.VRM, rec.Basic.Make, rec.Basic.Model} {
		if field != "" && strings.Contains(foldForSearch(field), folded) {
			return true
		}
	}
	return false
}

// foldForSearch lower-cases and strips diacritics so "skoda" matches "Škoda".
// The transformer chain is stateful and must not be shared across goroutines.
func foldForSearch(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
