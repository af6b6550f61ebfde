// Package engine wires the normalizer, record store, insight cache and
// assembler into the three operations the API exposes: lookup, forced
// insight refresh, and search.
package engine

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joelkehle/vehicle-insights/internal/identifier"
	"github.com/joelkehle/vehicle-insights/internal/insight"
	"github.com/joelkehle/vehicle-insights/internal/insightcache"
	"github.com/joelkehle/vehicle-insights/internal/recordstore"
	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

// RecordStore is satisfied by both the in-memory and SQLite-backed stores.
type RecordStore interface {
	GetOrFetch(ctx context.Context, id identifier.Identifier) (*vehicle.Record, error)
	GetByVehicleID(vehicleID string) (*vehicle.Record, bool)
	Search(query string) []recordstore.SearchResult
}

type Engine struct {
	records  RecordStore
	insights *insightcache.Cache
	clock    func() time.Time
}

func New(records RecordStore, insights *insightcache.Cache, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{records: records, insights: insights, clock: clock}
}

// Lookup resolves a raw search string into a full profile. Record-side
// failures (invalid identifier, not found, provider trouble) fail the
// lookup; an insight generation failure does not. The profile then carries
// the last cached document, or the fallback document when none exists.
func (e *Engine) Lookup(ctx context.Context, kind identifier.Kind, raw string) (vehicle.Profile, error) {
	ctx, span := otel.Tracer("engine").Start(ctx, "engine.lookup")
	span.SetAttributes(attribute.String("vehicle.search_kind", string(kind)))
	defer span.End()

	id, err := identifier.Normalize(kind, raw)
	if err != nil {
		return vehicle.Profile{}, err
	}

	rec, err := e.records.GetOrFetch(ctx, id)
	if err != nil {
		return vehicle.Profile{}, err
	}

	doc, err := e.insights.GetOrGenerate(ctx, rec.VehicleID, rec, false)
	if err != nil {
		log.Printf("engine lookup serving degraded insights vehicle=%s err=%v", rec.VehicleID, err)
		var ok bool
		doc, ok = e.insights.Peek(rec.VehicleID)
		if !ok {
			doc = insight.FallbackDocument(rec, e.clock())
		}
	}

	return vehicle.AssembleProfile(rec, doc, id.Value, string(id.Kind), e.clock()), nil
}

// RefreshInsights forces regeneration for a known vehicle. Unlike Lookup,
// generation failures surface to the caller.
func (e *Engine) RefreshInsights(ctx context.Context, vehicleID string) (vehicle.InsightDocument, error) {
	ctx, span := otel.Tracer("engine").Start(ctx, "engine.refresh_insights")
	span.SetAttributes(attribute.String("vehicle.id", vehicleID))
	defer span.End()

	rec, ok := e.records.GetByVehicleID(vehicleID)
	if !ok {
		return vehicle.InsightDocument{}, vehicle.NewNotFoundError("unknown vehicle id " + vehicleID)
	}
	return e.insights.GetOrGenerate(ctx, vehicleID, rec, true)
}

// Search returns lightweight matches by VIN, VRM, make or model.
func (e *Engine) Search(query string) []recordstore.SearchResult {
	return e.records.Search(query)
}
