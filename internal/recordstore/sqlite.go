package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joelkehle/vehicle-insights/internal/identifier"
	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

// SQLiteStore wraps the in-memory Store with write-through persistence.
// Runtime behavior (single-flight, indexing, search) stays in the inner
// store; records survive restarts by being reloaded at construction.
type SQLiteStore struct {
	inner *Store
	db    *sqlx.DB
}

const vehiclesSchema = `
CREATE TABLE IF NOT EXISTS vehicles (
	vehicle_id TEXT PRIMARY KEY,
	vin        TEXT NOT NULL DEFAULT '',
	vrm        TEXT NOT NULL DEFAULT '',
	record     TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vehicles_vin ON vehicles(vin);
CREATE INDEX IF NOT EXISTS idx_vehicles_vrm ON vehicles(vrm);
`

func NewSQLiteStore(db *sqlx.DB, fetcher Fetcher) (*SQLiteStore, error) {
	if _, err := db.Exec(vehiclesSchema); err != nil {
		return nil, fmt.Errorf("create vehicles schema: %w", err)
	}
	s := &SQLiteStore{inner: NewStore(fetcher), db: db}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) load() error {
	rows, err := s.db.Query(`SELECT record FROM vehicles`)
	if err != nil {
		return fmt.Errorf("load vehicles: %w", err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return fmt.Errorf("scan vehicle: %w", err)
		}
		var rec vehicle.Record
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			log.Printf("record-store skipping corrupt row err=%v", err)
			continue
		}
		s.inner.Put(&rec)
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate vehicles: %w", err)
	}
	if n > 0 {
		log.Printf("record-store loaded %d vehicles from sqlite", n)
	}
	return nil
}

func (s *SQLiteStore) GetOrFetch(ctx context.Context, id identifier.Identifier) (*vehicle.Record, error) {
	if rec, ok := s.inner.lookup(id.Key()); ok {
		return rec, nil
	}
	rec, err := s.inner.GetOrFetch(ctx, id)
	if err != nil {
		return nil, err
	}
	s.persist(rec)
	return rec, nil
}

func (s *SQLiteStore) Put(rec *vehicle.Record) {
	s.inner.Put(rec)
	s.persist(rec)
}

func (s *SQLiteStore) GetByVehicleID(vehicleID string) (*vehicle.Record, bool) {
	return s.inner.GetByVehicleID(vehicleID)
}

func (s *SQLiteStore) Search(query string) []SearchResult {
	return s.inner.Search(query)
}

// persist is best-effort write-through: a sqlite failure keeps the record
// usable in memory and is logged, not surfaced to the request.
func (s *SQLiteStore) persist(rec *vehicle.Record) {
	blob, err := json.Marshal(rec)
	if err != nil {
		log.Printf("record-store marshal vehicle=%s err=%v", rec.VehicleID, err)
		return
	}
	_, err = s.db.Exec(
		`INSERT INTO vehicles (vehicle_id, vin, vrm, record, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(vehicle_id) DO UPDATE SET vin=excluded.vin, vrm=excluded.vrm,
		   record=excluded.record, fetched_at=excluded.fetched_at`,
		rec.VehicleID, rec.Basic.VIN, rec.Basic.VRM, string(blob),
		rec.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		log.Printf("record-store persist vehicle=%s err=%v", rec.VehicleID, err)
	}
}
