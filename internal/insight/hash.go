package insight

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

// RecordHash fingerprints the parts of a record that matter to the insight
// text: the basic block plus the size of each sub-collection. A cached
// document whose stored hash no longer matches was generated from different
// data and is treated as stale.
func RecordHash(rec *vehicle.Record) string {
	fingerprint := struct {
		Basic      vehicle.BasicInfo `json:"basic"`
		Valuations int               `json:"valuations"`
		History    int               `json:"history"`
		Recalls    int               `json:"recalls"`
		Ownership  int               `json:"ownership"`
		Theft      int               `json:"theft"`
		Claims     int               `json:"claims"`
		Mileage    int               `json:"mileage"`
		Finance    int               `json:"finance"`
		Auction    int               `json:"auction"`
		HasSpec    bool              `json:"has_spec"`
	}{
		Basic:      rec.Basic,
		Valuations: len(rec.Valuations),
		History:    len(rec.History),
		Recalls:    len(rec.Recalls),
		Ownership:  len(rec.OwnershipHistory),
		Theft:      len(rec.TheftRecords),
		Claims:     len(rec.InsuranceClaims),
		Mileage:    len(rec.MileageRecords),
		Finance:    len(rec.FinanceRecords),
		Auction:    len(rec.AuctionRecords),
		HasSpec:    rec.Specification != nil,
	}
	blob, err := json.Marshal(fingerprint)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
