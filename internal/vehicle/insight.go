package vehicle

import "time"

// InsightDocument is the AI-generated assessment for one vehicle. It is
// replaced wholesale on every regeneration. Cached is a per-read decoration
// set by the insight cache; it is never persisted.
type InsightDocument struct {
	Summary             string                 `json:"summary"`
	KeyInsights         []string               `json:"key_insights"`
	OwnerAdvice         string                 `json:"owner_advice"`
	AttentionItems      []string               `json:"attention_items"`
	Reliability         *ReliabilityAssessment `json:"reliability_assessment,omitempty"`
	Value               *ValueAssessment       `json:"value_assessment,omitempty"`
	CostInsights        *CostInsights          `json:"cost_insights,omitempty"`
	TechnicalHighlights []string               `json:"technical_highlights,omitempty"`
	GeneratedAt         time.Time              `json:"generated_at"`
	ModelVersion        string                 `json:"model_version,omitempty"`
	Cached              bool                   `json:"cached"`
	Fallback            bool                   `json:"fallback,omitempty"`
}

type ReliabilityAssessment struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

type ValueAssessment struct {
	CurrentMarketPosition string `json:"current_market_position"`
	FactorsAffectingValue string `json:"factors_affecting_value"`
}

type CostInsights struct {
	TypicalMaintenance string `json:"typical_maintenance"`
	InsuranceNotes     string `json:"insurance_notes"`
	FuelEfficiency     string `json:"fuel_efficiency"`
}
