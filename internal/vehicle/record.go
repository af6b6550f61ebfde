package vehicle

import "time"

// Record is the canonical multi-category record for one physical vehicle,
// keyed by a surrogate VehicleID so that a VIN lookup and a VRM lookup for
// the same vehicle resolve to the same record. Every sub-collection is
// optional: nil or empty means the provider had no data for that category.
type Record struct {
	VehicleID string    `json:"vehicle_id"`
	FetchedAt time.Time `json:"fetched_at"`

	Basic            BasicInfo          `json:"basic"`
	Specification    *Specification     `json:"specifications,omitempty"`
	Valuations       []Valuation        `json:"valuations,omitempty"`
	History          []HistoryEvent     `json:"history,omitempty"`
	Recalls          []Recall           `json:"recalls,omitempty"`
	OwnershipHistory []OwnershipChange  `json:"ownership_history,omitempty"`
	TheftRecords     []TheftRecord      `json:"theft_records,omitempty"`
	InsuranceClaims  []InsuranceClaim   `json:"insurance_claims,omitempty"`
	MileageRecords   []MileageReading   `json:"mileage_records,omitempty"`
	FinanceRecords   []FinanceAgreement `json:"finance_records,omitempty"`
	AuctionRecords   []AuctionRecord    `json:"auction_records,omitempty"`
}

type BasicInfo struct {
	VIN                     string   `json:"vin,omitempty"`
	VRM                     string   `json:"vrm,omitempty"`
	Make                    string   `json:"make,omitempty"`
	Model                   string   `json:"model,omitempty"`
	Variant                 string   `json:"variant,omitempty"`
	Year                    int      `json:"year,omitempty"`
	RegistrationDate        string   `json:"registration_date,omitempty"`
	EngineSize              float64  `json:"engine_size,omitempty"`
	FuelType                string   `json:"fuel_type,omitempty"`
	Transmission            string   `json:"transmission,omitempty"`
	BodyType                string   `json:"body_type,omitempty"`
	Doors                   int      `json:"doors,omitempty"`
	Seats                   int      `json:"seats,omitempty"`
	EnginePowerHP           int      `json:"engine_power_hp,omitempty"`
	EnginePowerKW           int      `json:"engine_power_kw,omitempty"`
	CO2Emissions            float64  `json:"co2_emissions,omitempty"`
	FuelConsumptionCombined float64  `json:"fuel_consumption_combined,omitempty"`
	VehicleStatus           string   `json:"vehicle_status,omitempty"`
	MOTStatus               string   `json:"mot_status,omitempty"`
	MOTExpiryDate           string   `json:"mot_expiry_date,omitempty"`
	TaxStatus               string   `json:"tax_status,omitempty"`
	TaxDueDate              string   `json:"tax_due_date,omitempty"`
	InsuranceGroup          string   `json:"insurance_group,omitempty"`
	EuroStatus              string   `json:"euro_status,omitempty"`
	VehicleClass            string   `json:"vehicle_class,omitempty"`
	Colour                  string   `json:"colour,omitempty"`
}

type Specification struct {
	LengthMM           int     `json:"length_mm,omitempty"`
	WidthMM            int     `json:"width_mm,omitempty"`
	HeightMM           int     `json:"height_mm,omitempty"`
	WheelbaseMM        int     `json:"wheelbase_mm,omitempty"`
	KerbWeightKG       int     `json:"kerb_weight_kg,omitempty"`
	GrossWeightKG      int     `json:"gross_weight_kg,omitempty"`
	MaxTowingWeightKG  int     `json:"max_towing_weight_kg,omitempty"`
	FuelTankCapacity   float64 `json:"fuel_tank_capacity,omitempty"`
	BootCapacityLitres int     `json:"boot_capacity_litres,omitempty"`
	TopSpeedMPH        int     `json:"top_speed_mph,omitempty"`
	Acceleration060MPH float64 `json:"acceleration_0_60_mph,omitempty"`
	DriveType          string  `json:"drive_type,omitempty"`
	SteeringType       string  `json:"steering_type,omitempty"`
	BrakeTypeFront     string  `json:"brake_type_front,omitempty"`
	BrakeTypeRear      string  `json:"brake_type_rear,omitempty"`
	Airbags            string  `json:"airbags,omitempty"`
	ABS                bool    `json:"abs,omitempty"`
	ESP                bool    `json:"esp,omitempty"`
}

type Valuation struct {
	ValuationDate      string  `json:"valuation_date,omitempty"`
	RetailValue        float64 `json:"retail_value,omitempty"`
	TradeValue         float64 `json:"trade_value,omitempty"`
	PrivateValue       float64 `json:"private_value,omitempty"`
	AuctionValue       float64 `json:"auction_value,omitempty"`
	MileageAtValuation int     `json:"mileage_at_valuation,omitempty"`
	ConditionGrade     string  `json:"condition_grade,omitempty"`
	ValuationSource    string  `json:"valuation_source,omitempty"`
	ConfidenceScore    float64 `json:"confidence_score,omitempty"`
}

type HistoryEvent struct {
	EventDate        string  `json:"event_date,omitempty"`
	EventType        string  `json:"event_type,omitempty"`
	EventDescription string  `json:"event_description,omitempty"`
	Mileage          int     `json:"mileage,omitempty"`
	Location         string  `json:"location,omitempty"`
	Source           string  `json:"source,omitempty"`
	PassFail         string  `json:"pass_fail,omitempty"`
	AdvisoryNotes    string  `json:"advisory_notes,omitempty"`
	Cost             float64 `json:"cost,omitempty"`
}

type Recall struct {
	RecallNumber         string `json:"recall_number,omitempty"`
	RecallDate           string `json:"recall_date,omitempty"`
	RecallTitle          string `json:"recall_title,omitempty"`
	RecallDescription    string `json:"recall_description,omitempty"`
	SafetyIssue          bool   `json:"safety_issue,omitempty"`
	RecallStatus         string `json:"recall_status,omitempty"`
	CompletionDate       string `json:"completion_date,omitempty"`
	IssuingAuthority     string `json:"issuing_authority,omitempty"`
	ManufacturerCampaign string `json:"manufacturer_campaign,omitempty"`
}

type OwnershipChange struct {
	ChangeDate    string `json:"change_date,omitempty"`
	OwnerNumber   int    `json:"owner_number,omitempty"`
	OwnershipType string `json:"ownership_type,omitempty"`
	Region        string `json:"region,omitempty"`
}

type TheftRecord struct {
	ReportedDate  string `json:"reported_date,omitempty"`
	RecoveredDate string `json:"recovered_date,omitempty"`
	Status        string `json:"status,omitempty"`
	PoliceForce   string `json:"police_force,omitempty"`
}

type InsuranceClaim struct {
	ClaimDate     string  `json:"claim_date,omitempty"`
	ClaimType     string  `json:"claim_type,omitempty"`
	LossType      string  `json:"loss_type,omitempty"`
	Severity      string  `json:"severity,omitempty"`
	SettledAmount float64 `json:"settled_amount,omitempty"`
	WriteOffCat   string  `json:"write_off_category,omitempty"`
}

type MileageReading struct {
	ReadingDate string `json:"reading_date,omitempty"`
	Mileage     int    `json:"mileage,omitempty"`
	Source      string `json:"source,omitempty"`
	Discrepancy bool   `json:"discrepancy,omitempty"`
}

type FinanceAgreement struct {
	AgreementDate  string `json:"agreement_date,omitempty"`
	AgreementType  string `json:"agreement_type,omitempty"`
	FinanceCompany string `json:"finance_company,omitempty"`
	TermMonths     int    `json:"term_months,omitempty"`
	Outstanding    bool   `json:"outstanding,omitempty"`
}

type AuctionRecord struct {
	SaleDate    string  `json:"sale_date,omitempty"`
	AuctionName string  `json:"auction_house,omitempty"`
	LotNumber   string  `json:"lot_number,omitempty"`
	SalePrice   float64 `json:"sale_price,omitempty"`
	Mileage     int     `json:"mileage,omitempty"`
	Grade       string  `json:"grade,omitempty"`
	Sold        bool    `json:"sold,omitempty"`
}
