package vehicle

import "time"

// Profile is the externally visible shape consumed by the presentation
// layer: the canonical record plus the current insight document.
type Profile struct {
	VehicleID   string          `json:"vehicle_id"`
	SearchTerm  string          `json:"search_term"`
	SearchType  string          `json:"search_type"`
	AIInsights  InsightDocument `json:"ai_insights"`
	Detailed    DetailedData    `json:"detailed_data"`
	LastUpdated string          `json:"last_updated"`
}

// DetailedData mirrors Record minus the surrogate key; absent categories are
// emitted as empty collections, never fabricated.
type DetailedData struct {
	Basic            BasicInfo          `json:"basic"`
	Specifications   *Specification     `json:"specifications,omitempty"`
	Valuations       []Valuation        `json:"valuations"`
	History          []HistoryEvent     `json:"history"`
	Recalls          []Recall           `json:"recalls"`
	OwnershipHistory []OwnershipChange  `json:"ownership_history,omitempty"`
	TheftRecords     []TheftRecord      `json:"theft_records,omitempty"`
	InsuranceClaims  []InsuranceClaim   `json:"insurance_claims,omitempty"`
	MileageRecords   []MileageReading   `json:"mileage_records,omitempty"`
	FinanceRecords   []FinanceAgreement `json:"finance_records,omitempty"`
	AuctionRecords   []AuctionRecord    `json:"auction_records,omitempty"`
}

// AssembleProfile merges a record and an insight document into the response
// shape. Pure: no I/O and no failure modes beyond the nil-record guard at
// the call sites.
func AssembleProfile(rec *Record, doc InsightDocument, searchTerm, searchType string, now time.Time) Profile {
	return Profile{
		VehicleID:  rec.VehicleID,
		SearchTerm: searchTerm,
		SearchType: searchType,
		AIInsights: doc,
		Detailed: DetailedData{
			Basic:            rec.Basic,
			Specifications:   rec.Specification,
			Valuations:       emptyIfNil(rec.Valuations),
			History:          emptyIfNil(rec.History),
			Recalls:          emptyIfNil(rec.Recalls),
			OwnershipHistory: rec.OwnershipHistory,
			TheftRecords:     rec.TheftRecords,
			InsuranceClaims:  rec.InsuranceClaims,
			MileageRecords:   rec.MileageRecords,
			FinanceRecords:   rec.FinanceRecords,
			AuctionRecords:   rec.AuctionRecords,
		},
		LastUpdated: now.UTC().Format(time.RFC3339),
	}
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
