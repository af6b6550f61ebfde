// Package report turns an assembled vehicle profile into a shareable
// markdown report and, optionally, a printed PDF.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

const Disclaimer = "This report was generated automatically from aggregated vehicle data and " +
	"AI analysis. It is informational only and is not a substitute for a physical " +
	"inspection or a professional valuation."

// BuildMarkdown renders a profile as a self-contained markdown report.
// Sections for data categories the record lacks are omitted rather than
// padded with placeholders.
func BuildMarkdown(p vehicle.Profile) string {
	var b strings.Builder
	basic := p.Detailed.Basic

	fmt.Fprintf(&b, "# Vehicle Profile Report\n\n")
	fmt.Fprintf(&b, "- Vehicle: %s\n", vehicleTitle(basic))
	if basic.VIN != "" {
		fmt.Fprintf(&b, "- VIN: `%s`\n", basic.VIN)
	}
	if basic.VRM != "" {
		fmt.Fprintf(&b, "- Registration: `%s`\n", basic.VRM)
	}
	fmt.Fprintf(&b, "- Generated: %s\n\n", p.LastUpdated)
	fmt.Fprintf(&b, "%s\n\n", Disclaimer)

	appendInsights(&b, p.AIInsights)
	appendBasicDetails(&b, basic)
	appendValuations(&b, p.Detailed.Valuations)
	appendHistory(&b, p.Detailed.History)
	appendRecalls(&b, p.Detailed.Recalls)

	fmt.Fprintf(&b, "## Appendix\n\n")
	fmt.Fprintf(&b, "### Full Record (JSON)\n\n```json\n%s\n```\n", prettyJSON(p.Detailed))

	return b.String()
}

func vehicleTitle(basic vehicle.BasicInfo) string {
	parts := []string{}
	if basic.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", basic.Year))
	}
	if basic.Make != "" {
		parts = append(parts, basic.Make)
	}
	if basic.Model != "" {
		parts = append(parts, basic.Model)
	}
	if basic.Variant != "" {
		parts = append(parts, basic.Variant)
	}
	if len(parts) == 0 {
		return "Unknown vehicle"
	}
	return strings.Join(parts, " ")
}

func appendInsights(b *strings.Builder, doc vehicle.InsightDocument) {
	fmt.Fprintf(b, "## AI Analysis\n\n")
	if doc.Fallback {
		fmt.Fprintf(b, "_AI analysis was unavailable when this report was generated; the notes below are a data-only summary._\n\n")
	}
	if doc.Summary != "" {
		fmt.Fprintf(b, "%s\n\n", sanitizeLine(doc.Summary))
	}
	appendBulletSection(b, "Key Insights", doc.KeyInsights)
	if doc.OwnerAdvice != "" {
		fmt.Fprintf(b, "### Owner Advice\n\n%s\n\n", sanitizeLine(doc.OwnerAdvice))
	}
	if doc.Reliability != nil {
		fmt.Fprintf(b, "### Reliability\n\n")
		fmt.Fprintf(b, "- Score: **%.1f / 10**\n", doc.Reliability.Score)
		fmt.Fprintf(b, "- %s\n\n", sanitizeLine(doc.Reliability.Explanation))
	}
	if doc.Value != nil {
		fmt.Fprintf(b, "### Value Assessment\n\n")
		fmt.Fprintf(b, "- Market position: %s\n", sanitizeLine(doc.Value.CurrentMarketPosition))
		fmt.Fprintf(b, "- Value factors: %s\n\n", sanitizeLine(doc.Value.FactorsAffectingValue))
	}
	appendBulletSection(b, "Attention Items", doc.AttentionItems)
	if doc.CostInsights != nil {
		fmt.Fprintf(b, "### Running Costs\n\n")
		fmt.Fprintf(b, "- Maintenance: %s\n", sanitizeLine(doc.CostInsights.TypicalMaintenance))
		fmt.Fprintf(b, "- Insurance: %s\n", sanitizeLine(doc.CostInsights.InsuranceNotes))
		fmt.Fprintf(b, "- Fuel: %s\n\n", sanitizeLine(doc.CostInsights.FuelEfficiency))
	}
	appendBulletSection(b, "Technical Highlights", doc.TechnicalHighlights)
	if doc.ModelVersion != "" {
		fmt.Fprintf(b, "_Analysis model: %s_\n\n", doc.ModelVersion)
	}
}

func appendBulletSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", sanitizeLine(item))
	}
	b.WriteString("\n")
}

func appendBasicDetails(b *strings.Builder, basic vehicle.BasicInfo) {
	fmt.Fprintf(b, "## Vehicle Details\n\n")
	fmt.Fprintf(b, "| Field | Value |\n|---|---|\n")
	writeRow(b, "Make", basic.Make)
	writeRow(b, "Model", basic.Model)
	writeRow(b, "Variant", basic.Variant)
	if basic.Year > 0 {
		writeRow(b, "Year", fmt.Sprintf("%d", basic.Year))
	}
	writeRow(b, "Colour", basic.Colour)
	writeRow(b, "Fuel type", basic.FuelType)
	writeRow(b, "Transmission", basic.Transmission)
	writeRow(b, "Body type", basic.BodyType)
	if basic.EngineSize > 0 {
		writeRow(b, "Engine size", fmt.Sprintf("%.1fL", basic.EngineSize))
	}
	writeRow(b, "MOT status", basic.MOTStatus)
	writeRow(b, "MOT expiry", basic.MOTExpiryDate)
	writeRow(b, "Tax status", basic.TaxStatus)
	writeRow(b, "Tax due", basic.TaxDueDate)
	writeRow(b, "Insurance group", basic.InsuranceGroup)
	b.WriteString("\n")
}

func writeRow(b *strings.Builder, field, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "| %s | %s |\n", field, sanitizeLine(value))
}

func appendValuations(b *strings.Builder, valuations []vehicle.Valuation) {
	if len(valuations) == 0 {
		return
	}
	fmt.Fprintf(b, "## Valuations\n\n")
	fmt.Fprintf(b, "| Date | Retail | Trade | Private | Source | Confidence |\n|---|---|---|---|---|---|\n")
	for _, v := range valuations {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %.2f |\n",
			sanitizeLine(v.ValuationDate),
			formatMoney(v.RetailValue),
			formatMoney(v.TradeValue),
			formatMoney(v.PrivateValue),
			sanitizeLine(v.ValuationSource),
			v.ConfidenceScore)
	}
	b.WriteString("\n")
}

func formatMoney(v float64) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f", v)
}

func appendHistory(b *strings.Builder, history []vehicle.HistoryEvent) {
	if len(history) == 0 {
		return
	}
	fmt.Fprintf(b, "## History\n\n")
	for _, e := range history {
		line := sanitizeLine(e.EventDescription)
		if e.PassFail != "" {
			line = fmt.Sprintf("%s (%s)", line, e.PassFail)
		}
		fmt.Fprintf(b, "- %s %s: %s\n", sanitizeLine(e.EventDate), sanitizeLine(e.EventType), line)
	}
	b.WriteString("\n")
}

func appendRecalls(b *strings.Builder, recalls []vehicle.Recall) {
	fmt.Fprintf(b, "## Recalls\n\n")
	if len(recalls) == 0 {
		fmt.Fprintf(b, "No recalls on record.\n\n")
		return
	}
	for _, r := range recalls {
		fmt.Fprintf(b, "- **%s** (%s): %s\n", sanitizeLine(r.RecallTitle), sanitizeLine(r.RecallStatus), sanitizeLine(r.RecallDescription))
	}
	b.WriteString("\n")
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sanitizeLine(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if s == "" {
		return "-"
	}
	return s
}
