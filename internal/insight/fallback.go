package insight

import (
	"fmt"
	"time"

	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

// FallbackDocument is the degraded assessment served when generation fails
// and nothing usable is cached. It is marked Fallback and never written to
// the cache, so the next lookup attempts a real generation.
func FallbackDocument(rec *vehicle.Record, now time.Time) vehicle.InsightDocument {
	basic := rec.Basic
	return vehicle.InsightDocument{
		Summary: fmt.Sprintf("This is a %s %s %s. We could not generate detailed insights right now, "+
			"but the vehicle's official records are available below.",
			orUnknown(fmt.Sprint(basic.Year)), orUnknown(basic.Make), orUnknown(basic.Model)),
		KeyInsights: []string{
			"Vehicle information has been retrieved from official records",
			"Detailed AI analysis is temporarily unavailable",
			"All technical data and history records are still accessible",
		},
		OwnerAdvice:    "Refer to the detailed vehicle data for specific information about your vehicle.",
		AttentionItems: []string{"Check detailed data for MOT and tax due dates"},
		CostInsights: &vehicle.CostInsights{
			TypicalMaintenance: "Refer to service history for maintenance patterns",
			InsuranceNotes:     "Insurance group: " + orUnknown(basic.InsuranceGroup),
			FuelEfficiency:     "Fuel type: " + orUnknown(basic.FuelType),
		},
		GeneratedAt:  now.UTC(),
		ModelVersion: "fallback",
		Fallback:     true,
	}
}

func orUnknown(s string) string {
	if s == "" || s == "0" {
		return "Unknown"
	}
	return s
}
