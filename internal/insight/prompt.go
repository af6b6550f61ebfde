package insight

import (
	"fmt"
	"strings"

	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

const responseSchemaPrompt = `Provide your analysis in the following JSON format:

{
  "summary": "A friendly, conversational summary of the vehicle in 2-3 paragraphs",
  "key_insights": ["4-6 key points the owner should know about this vehicle"],
  "owner_advice": "Personalized advice for the current owner",
  "reliability_assessment": {
    "score": 7,
    "explanation": "Brief explanation of the reliability rating (score is 0-10)"
  },
  "value_assessment": {
    "current_market_position": "Whether the vehicle holds value well, depreciates quickly, etc.",
    "factors_affecting_value": "Key factors that impact this vehicle's value"
  },
  "attention_items": ["Immediate or upcoming items needing attention (MOT due, open recalls, known issues)"],
  "cost_insights": {
    "typical_maintenance": "What to expect for maintenance costs",
    "insurance_notes": "Notes about insurance costs/group",
    "fuel_efficiency": "Practical fuel economy information"
  },
  "technical_highlights": ["2-3 key technical features explained in simple terms"]
}

GUIDELINES:
- Use friendly, conversational language; avoid unexplained jargon.
- Be honest about potential issues but remain constructive.
- Highlight any safety recalls or critical issues prominently.
- This is for someone who owns this specific vehicle, not a prospective buyer.

Respond with only valid JSON matching the schema above.`

// BuildPrompt renders the record into the model prompt. Field order is
// fixed so identical records always produce byte-identical prompts.
func BuildPrompt(rec *vehicle.Record) string {
	var b strings.Builder

	b.WriteString("VEHICLE INFORMATION:\n")
	writeBasic(&b, rec.Basic)

	b.WriteString("\nVALUATION DATA:\n")
	writeValuations(&b, rec.Valuations)

	b.WriteString("\nVEHICLE HISTORY:\n")
	writeHistory(&b, rec.History)

	b.WriteString("\nRECALL INFORMATION:\n")
	writeRecalls(&b, rec.Recalls)

	b.WriteString("\nTECHNICAL SPECIFICATIONS:\n")
	writeSpecification(&b, rec.Specification)

	writeExtendedHistory(&b, rec)

	b.WriteString("\n")
	b.WriteString(responseSchemaPrompt)
	return b.String()
}

func writeBasic(b *strings.Builder, v vehicle.BasicInfo) {
	writeField(b, "VIN", v.VIN)
	writeField(b, "Registration", v.VRM)
	writeField(b, "Make", v.Make)
	writeField(b, "Model", v.Model)
	writeField(b, "Variant", v.Variant)
	writeInt(b, "Year", v.Year)
	writeField(b, "First Registered", v.RegistrationDate)
	writeFloat(b, "Engine Size (L)", v.EngineSize)
	writeField(b, "Fuel Type", v.FuelType)
	writeField(b, "Transmission", v.Transmission)
	writeField(b, "Body Type", v.BodyType)
	writeInt(b, "Doors", v.Doors)
	writeInt(b, "Seats", v.Seats)
	writeInt(b, "Power (hp)", v.EnginePowerHP)
	writeFloat(b, "CO2 (g/km)", v.CO2Emissions)
	writeFloat(b, "Combined MPG", v.FuelConsumptionCombined)
	writeField(b, "Status", v.VehicleStatus)
	writeField(b, "MOT Status", v.MOTStatus)
	writeField(b, "MOT Expiry", v.MOTExpiryDate)
	writeField(b, "Tax Status", v.TaxStatus)
	writeField(b, "Tax Due", v.TaxDueDate)
	writeField(b, "Insurance Group", v.InsuranceGroup)
	writeField(b, "Euro Status", v.EuroStatus)
	writeField(b, "Colour", v.Colour)
}

func writeValuations(b *strings.Builder, vals []vehicle.Valuation) {
	if len(vals) == 0 {
		b.WriteString("No data available\n")
		return
	}
	for _, v := range vals {
		fmt.Fprintf(b, "- Date: %s | Retail: %.0f | Trade: %.0f | Private: %.0f | Mileage: %d | Condition: %s | Source: %s | Confidence: %.2f\n",
			v.ValuationDate, v.RetailValue, v.TradeValue, v.PrivateValue,
			v.MileageAtValuation, v.ConditionGrade, v.ValuationSource, v.ConfidenceScore)
	}
}

func writeHistory(b *strings.Builder, events []vehicle.HistoryEvent) {
	if len(events) == 0 {
		b.WriteString("No records found\n")
		return
	}
	for _, e := range events {
		fmt.Fprintf(b, "- Date: %s | Type: %s | Result: %s | Mileage: %d | %s",
			e.EventDate, e.EventType, e.PassFail, e.Mileage, e.EventDescription)
		if e.AdvisoryNotes != "" {
			fmt.Fprintf(b, " | Advisories: %s", e.AdvisoryNotes)
		}
		b.WriteString("\n")
	}
}

func writeRecalls(b *strings.Builder, recalls []vehicle.Recall) {
	if len(recalls) == 0 {
		b.WriteString("No recalls on record\n")
		return
	}
	for _, r := range recalls {
		fmt.Fprintf(b, "- %s (%s) | Status: %s | Safety issue: %t | %s\n",
			r.RecallTitle, r.RecallDate, r.RecallStatus, r.SafetyIssue, r.RecallDescription)
	}
}

func writeSpecification(b *strings.Builder, s *vehicle.Specification) {
	if s == nil {
		b.WriteString("No data available\n")
		return
	}
	writeInt(b, "Length (mm)", s.LengthMM)
	writeInt(b, "Kerb Weight (kg)", s.KerbWeightKG)
	writeInt(b, "Boot Capacity (L)", s.BootCapacityLitres)
	writeInt(b, "Top Speed (mph)", s.TopSpeedMPH)
	writeFloat(b, "0-60 mph (s)", s.Acceleration060MPH)
	writeField(b, "Drive Type", s.DriveType)
	writeField(b, "Airbags", s.Airbags)
	if s.ABS {
		b.WriteString("ABS: fitted\n")
	}
	if s.ESP {
		b.WriteString("ESP: fitted\n")
	}
}

// writeExtendedHistory covers the provenance collections. Only non-empty
// ones are rendered; the model should not see noise for absent data.
func writeExtendedHistory(b *strings.Builder, rec *vehicle.Record) {
	if len(rec.MileageRecords) > 0 {
		b.WriteString("\nMILEAGE READINGS:\n")
		for _, m := range rec.MileageRecords {
			fmt.Fprintf(b, "- %s: %d (%s)", m.ReadingDate, m.Mileage, m.Source)
			if m.Discrepancy {
				b.WriteString(" [DISCREPANCY]")
			}
			b.WriteString("\n")
		}
	}
	if len(rec.OwnershipHistory) > 0 {
		b.WriteString("\nOWNERSHIP CHANGES:\n")
		for _, o := range rec.OwnershipHistory {
			fmt.Fprintf(b, "- %s: owner %d (%s)\n", o.ChangeDate, o.OwnerNumber, o.OwnershipType)
		}
	}
	if len(rec.TheftRecords) > 0 {
		b.WriteString("\nTHEFT RECORDS:\n")
		for _, th := range rec.TheftRecords {
			fmt.Fprintf(b, "- Reported %s | Status: %s | Recovered: %s\n", th.ReportedDate, th.Status, th.RecoveredDate)
		}
	}
	if len(rec.InsuranceClaims) > 0 {
		b.WriteString("\nINSURANCE CLAIMS:\n")
		for _, c := range rec.InsuranceClaims {
			fmt.Fprintf(b, "- %s | Type: %s | Severity: %s | Write-off: %s\n", c.ClaimDate, c.ClaimType, c.Severity, c.WriteOffCat)
		}
	}
	if len(rec.FinanceRecords) > 0 {
		b.WriteString("\nFINANCE AGREEMENTS:\n")
		for _, f := range rec.FinanceRecords {
			fmt.Fprintf(b, "- %s | %s with %s | Outstanding: %t\n", f.AgreementDate, f.AgreementType, f.FinanceCompany, f.Outstanding)
		}
	}
	if len(rec.AuctionRecords) > 0 {
		b.WriteString("\nAUCTION APPEARANCES:\n")
		for _, a := range rec.AuctionRecords {
			fmt.Fprintf(b, "- %s at %s | Price: %.0f | Sold: %t\n", a.SaleDate, a.AuctionName, a.SalePrice, a.Sold)
		}
	}
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func writeInt(b *strings.Builder, label string, value int) {
	if value == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %d\n", label, value)
}

func writeFloat(b *strings.Builder, label string, value float64) {
	if value == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %g\n", label, value)
}
