package provider

import (
	"strings"

	"github.com/google/uuid"

	"github.com/joelkehle/vehicle-insights/internal/identifier"
	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

// recordPayload is the provider's wire shape. It deliberately mirrors the
// canonical record's JSON so each sub-collection maps one-to-one; missing
// collections decode to nil, which the engine treats as "no data".
type recordPayload struct {
	VehicleID        string                     `json:"vehicle_id"`
	Basic            *vehicle.BasicInfo         `json:"basic"`
	Specifications   *vehicle.Specification     `json:"specifications"`
	Valuations       []vehicle.Valuation        `json:"valuations"`
	History          []vehicle.HistoryEvent     `json:"history"`
	Recalls          []vehicle.Recall           `json:"recalls"`
	OwnershipHistory []vehicle.OwnershipChange  `json:"ownership_history"`
	TheftRecords     []vehicle.TheftRecord      `json:"theft_records"`
	InsuranceClaims  []vehicle.InsuranceClaim   `json:"insurance_claims"`
	MileageRecords   []vehicle.MileageReading   `json:"mileage_records"`
	FinanceRecords   []vehicle.FinanceAgreement `json:"finance_records"`
	AuctionRecords   []vehicle.AuctionRecord    `json:"auction_records"`
}

func (a *Adapter) mapPayload(id identifier.Identifier, p *recordPayload) (*vehicle.Record, error) {
	if p.Basic == nil {
		return nil, vehicle.NewUpstreamDataError("provider payload missing basic vehicle block")
	}
	basic := *p.Basic
	basic.VIN = strings.ToUpper(strings.TrimSpace(basic.VIN))
	basic.VRM = strings.ToUpper(strings.TrimSpace(basic.VRM))
	if basic.VIN == "" && basic.VRM == "" {
		return nil, vehicle.NewUpstreamDataError("provider payload carries neither VIN nor VRM")
	}

	// The searched identifier must appear on the returned vehicle; anything
	// else is a provider mix-up, not a record we want to cache.
	switch id.Kind {
	case identifier.KindVIN:
		if basic.VIN != id.Value {
			return nil, vehicle.NewUpstreamDataError("provider returned a vehicle with a different VIN")
		}
	case identifier.KindVRM:
		if basic.VRM != id.Value {
			return nil, vehicle.NewUpstreamDataError("provider returned a vehicle with a different VRM")
		}
	}

	vehicleID := strings.TrimSpace(p.VehicleID)
	if vehicleID == "" {
		vehicleID = uuid.NewString()
	}

	return &vehicle.Record{
		VehicleID:        vehicleID,
		FetchedAt:        a.cfg.Clock().UTC(),
		Basic:            basic,
		Specification:    p.Specifications,
		Valuations:       p.Valuations,
		History:          p.History,
		Recalls:          p.Recalls,
		OwnershipHistory: p.OwnershipHistory,
		TheftRecords:     p.TheftRecords,
		InsuranceClaims:  p.InsuranceClaims,
		MileageRecords:   p.MileageRecords,
		FinanceRecords:   p.FinanceRecords,
		AuctionRecords:   p.AuctionRecords,
	}, nil
}
