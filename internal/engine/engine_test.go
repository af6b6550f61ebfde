package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joelkehle/vehicle-insights/internal/identifier"
	"github.com/joelkehle/vehicle-insights/internal/insightcache"
	"github.com/joelkehle/vehicle-insights/internal/recordstore"
	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

type fakeRecords struct {
	fetchCalls atomic.Int64
	lastKey    string
	rec        *vehicle.Record
	err        error
	results    []recordstore.SearchResult
}

func (f *fakeRecords) GetOrFetch(ctx context.Context, id identifier.Identifier) (*vehicle.Record, error) {
	f.fetchCalls.Add(1)
	f.lastKey = id.Key()
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

func (f *fakeRecords) GetByVehicleID(vehicleID string) (*vehicle.Record, bool) {
	if f.rec != nil && f.rec.VehicleID == vehicleID {
		return f.rec, true
	}
	return nil, false
}

func (f *fakeRecords) Search(query string) []recordstore.SearchResult {
	return f.results
}

type fakeGenerator struct {
	calls atomic.Int64
	doc   vehicle.InsightDocument
	err   error
}

func (f *fakeGenerator) Generate(ctx context.Context, rec *vehicle.Record) (vehicle.InsightDocument, error) {
	f.calls.Add(1)
	if f.err != nil {
		return vehicle.InsightDocument{}, f.err
	}
	return f.doc, nil
}

func testRecord() *vehicle.Record {
	return &vehicle.Record{
		VehicleID: "veh-1",
		FetchedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Basic: vehicle.BasicInfo{
			VIN:   "SAMPLETESTVINURFY",
			VRM:   "AB05IYG",
			Make:  "Skoda",
			Model: "Octavia",
			Year:  2019,
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
}

func newTestEngine(records *fakeRecords, gen *fakeGenerator) *Engine {
	cache := insightcache.NewCache(insightcache.Config{Generator: gen, Clock: fixedClock})
	return New(records, cache, fixedClock)
}

func TestLookupAssemblesProfile(t *testing.T) {
	records := &fakeRecords{rec: testRecord()}
	gen := &fakeGenerator{doc: vehicle.InsightDocument{Summary: "solid family hatchback", ModelVersion: "claude-sonnet-4"}}
	eng := newTestEngine(records, gen)

	p, err := eng.Lookup(context.Background(), identifier.KindVIN, " sampletestvinurfy ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.VehicleID != "veh-1" {
		t.Errorf("vehicle id = %q", p.VehicleID)
	}
	if p.SearchTerm != "SAMPLETESTVINURFY" || p.SearchType != "vin" {
		t.Errorf("search echo = %q/%q, want normalized VIN", p.SearchTerm, p.SearchType)
	}
	if records.lastKey != "vin:SAMPLETESTVINURFY" {
		t.Errorf("store saw key %q", records.lastKey)
	}
	if p.AIInsights.Summary != "solid family hatchback" {
		t.Errorf("insights summary = %q", p.AIInsights.Summary)
	}
	if p.AIInsights.Cached {
		t.Error("first lookup should not be served from cache")
	}
	if p.Detailed.Recalls == nil {
		t.Error("absent recalls should assemble as an empty slice")
	}
	if p.LastUpdated != "2026-08-28T12:00:00Z" {
		t.Errorf("last updated = %q", p.LastUpdated)
	}
}

func TestLookupSecondCallServedFromCache(t *testing.T) {
	records := &fakeRecords{rec: testRecord()}
	gen := &fakeGenerator{doc: vehicle.InsightDocument{Summary: "s"}}
	eng := newTestEngine(records, gen)

	ctx := context.Background()
	if _, err := eng.Lookup(ctx, identifier.KindVIN, "SAMPLETESTVINURFY"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	p, err := eng.Lookup(ctx, identifier.KindVIN, "SAMPLETESTVINURFY")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if got := gen.calls.Load(); got != 1 {
		t.Errorf("generator invoked %d times, want 1", got)
	}
	if !p.AIInsights.Cached {
		t.Error("second lookup should be marked cached")
	}
}

func TestLookupInvalidIdentifier(t *testing.T) {
	records := &fakeRecords{rec: testRecord()}
	eng := newTestEngine(records, &fakeGenerator{})

	_, err := eng.Lookup(context.Background(), identifier.KindVIN, "TOO-SHORT")
	var verr *vehicle.Error
	if !errors.As(err, &verr) || verr.Code != vehicle.CodeInvalidIdentifier {
		t.Fatalf("err = %v, want invalid_identifier", err)
	}
	if records.fetchCalls.Load() != 0 {
		t.Error("invalid input must not reach the record store")
	}
}

func TestLookupPropagatesRecordErrors(t *testing.T) {
	records := &fakeRecords{err: vehicle.NewNotFoundError("no such vehicle")}
	eng := newTestEngine(records, &fakeGenerator{})

	_, err := eng.Lookup(context.Background(), identifier.KindVRM, "AB05IYG")
	var verr *vehicle.Error
	if !errors.As(err, &verr) || verr.Code != vehicle.CodeNotFound {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestLookupInsightFailureFallsBack(t *testing.T) {
	records := &fakeRecords{rec: testRecord()}
	gen := &fakeGenerator{err: vehicle.NewInsightProviderError("model unavailable")}
	eng := newTestEngine(records, gen)

	p, err := eng.Lookup(context.Background(), identifier.KindVIN, "SAMPLETESTVINURFY")
	if err != nil {
		t.Fatalf("Lookup should not fail on insight errors, got %v", err)
	}
	if !p.AIInsights.Fallback {
		t.Error("expected fallback document when generation fails with an empty cache")
	}
	if p.AIInsights.ModelVersion != "fallback" {
		t.Errorf("model version = %q", p.AIInsights.ModelVersion)
	}
}

func TestLookupInsightFailurePrefersCachedDocument(t *testing.T) {
	records := &fakeRecords{rec: testRecord()}
	gen := &fakeGenerator{doc: vehicle.InsightDocument{Summary: "from the model"}}
	cache := insightcache.NewCache(insightcache.Config{Generator: gen, Clock: fixedClock})
	eng := New(records, cache, fixedClock)

	ctx := context.Background()
	if _, err := eng.Lookup(ctx, identifier.KindVIN, "SAMPLETESTVINURFY"); err != nil {
		t.Fatalf("seed lookup: %v", err)
	}

	// Mutate the record so the cached entry is stale, and break the model.
	records.rec.Basic.Colour = "Green"
	gen.err = vehicle.NewInsightProviderError("model unavailable")

	p, err := eng.Lookup(ctx, identifier.KindVIN, "SAMPLETESTVINURFY")
	if err != nil {
		t.Fatalf("degraded lookup: %v", err)
	}
	if p.AIInsights.Fallback {
		t.Error("cached document should win over the fallback")
	}
	if p.AIInsights.Summary != "from the model" || !p.AIInsights.Cached {
		t.Errorf("got %+v, want cached prior document", p.AIInsights)
	}
}

func TestRefreshInsightsUnknownVehicle(t *testing.T) {
	eng := newTestEngine(&fakeRecords{}, &fakeGenerator{})

	_, err := eng.RefreshInsights(context.Background(), "veh-missing")
	var verr *vehicle.Error
	if !errors.As(err, &verr) || verr.Code != vehicle.CodeNotFound {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestRefreshInsightsForcesRegeneration(t *testing.T) {
	records := &fakeRecords{rec: testRecord()}
	gen := &fakeGenerator{doc: vehicle.InsightDocument{Summary: "s"}}
	eng := newTestEngine(records, gen)

	ctx := context.Background()
	if _, err := eng.Lookup(ctx, identifier.KindVIN, "SAMPLETESTVINURFY"); err != nil {
		t.Fatalf("seed lookup: %v", err)
	}
	doc, err := eng.RefreshInsights(ctx, "veh-1")
	if err != nil {
		t.Fatalf("RefreshInsights: %v", err)
	}
	if got := gen.calls.Load(); got != 2 {
		t.Errorf("generator invoked %d times, want 2", got)
	}
	if doc.Cached {
		t.Error("refreshed document must not be marked cached")
	}
}

func TestRefreshInsightsSurfacesGenerationErrors(t *testing.T) {
	records := &fakeRecords{rec: testRecord()}
	gen := &fakeGenerator{err: vehicle.NewInsightProviderError("model unavailable")}
	eng := newTestEngine(records, gen)

	_, err := eng.RefreshInsights(context.Background(), "veh-1")
	var verr *vehicle.Error
	if !errors.As(err, &verr) || verr.Code != vehicle.CodeInsightProvider {
		t.Fatalf("err = %v, want insight_provider", err)
	}
}

func TestSearchDelegates(t *testing.T) {
	records := &fakeRecords{results: []recordstore.SearchResult{{VehicleID: "veh-1", Make: "Skoda"}}}
	eng := newTestEngine(records, &fakeGenerator{})

	got := eng.Search("skoda")
	if len(got) != 1 || got[0].VehicleID != "veh-1" {
		t.Fatalf("Search = %+v", got)
	}
}
