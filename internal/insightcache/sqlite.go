package insightcache

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

const insightsSchema = `
CREATE TABLE IF NOT EXISTS insights (
	vehicle_id   TEXT PRIMARY KEY,
	document     TEXT NOT NULL,
	generation   INTEGER NOT NULL DEFAULT 0,
	data_hash    TEXT NOT NULL DEFAULT '',
	generated_at TEXT NOT NULL
);
`

// sqliteStore persists cache entries write-through, generation counter
// included, so forced-refresh monotonicity survives restarts.
type sqliteStore struct {
	inner *memoryStore
	db    *sqlx.DB
}

// WithSQLite rewires the cache onto SQLite-backed storage, loading any
// persisted entries. Call before serving requests.
func (c *Cache) WithSQLite(db *sqlx.DB) error {
	if _, err := db.Exec(insightsSchema); err != nil {
		return fmt.Errorf("create insights schema: %w", err)
	}
	s := &sqliteStore{inner: newMemoryStore(), db: db}
	if err := s.load(); err != nil {
		return err
	}
	c.store = s
	return nil
}

func (s *sqliteStore) load() error {
	rows, err := s.db.Query(`SELECT vehicle_id, document, generation, data_hash FROM insights`)
	if err != nil {
		return fmt.Errorf("load insights: %w", err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var (
			vehicleID, blob, hash string
			generation            uint64
		)
		if err := rows.Scan(&vehicleID, &blob, &generation, &hash); err != nil {
			return fmt.Errorf("scan insight: %w", err)
		}
		var doc vehicle.InsightDocument
		if err := json.Unmarshal([]byte(blob), &doc); err != nil {
			log.Printf("insight-cache skipping corrupt row vehicle=%s err=%v", vehicleID, err)
			continue
		}
		s.inner.replace(vehicleID, entry{doc: doc, generation: generation, dataHash: hash})
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate insights: %w", err)
	}
	if n > 0 {
		log.Printf("insight-cache loaded %d documents from sqlite", n)
	}
	return nil
}

func (s *sqliteStore) get(vehicleID string) (entry, bool) {
	return s.inner.get(vehicleID)
}

func (s *sqliteStore) replace(vehicleID string, e entry) {
	s.inner.replace(vehicleID, e)
	blob, err := json.Marshal(e.doc)
	if err != nil {
		log.Printf("insight-cache marshal vehicle=%s err=%v", vehicleID, err)
		return
	}
	_, err = s.db.Exec(
		`INSERT INTO insights (vehicle_id, document, generation, data_hash, generated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(vehicle_id) DO UPDATE SET document=excluded.document,
		   generation=excluded.generation, data_hash=excluded.data_hash,
		   generated_at=excluded.generated_at`,
		vehicleID, string(blob), e.generation, e.dataHash,
		e.doc.GeneratedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		log.Printf("insight-cache persist vehicle=%s err=%v", vehicleID, err)
	}
}
