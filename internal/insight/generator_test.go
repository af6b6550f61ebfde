package insight

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

const validResponse = `{
	"summary": "A dependable family hatchback with a clean history.",
	"key_insights": ["Full service history", "One open recall"],
	"owner_advice": "Book the recall work; it is free at any dealer.",
	"reliability_assessment": {"score": 8, "explanation": "Few reported faults."},
	"value_assessment": {"current_market_position": "Holds value well", "factors_affecting_value": "Mileage and condition"},
	"attention_items": ["MOT due within 30 days"],
	"cost_insights": {"typical_maintenance": "Around £300/year", "insurance_notes": "Group 14", "fuel_efficiency": "~45 mpg real world"},
	"technical_highlights": ["1.0 turbo petrol engine"]
}`

type fakeCaller struct {
	calls     atomic.Int64
	responses []string
	errs      []error
}

func (f *fakeCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	if n < len(f.responses) {
		return f.responses[n], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func testRecord() *vehicle.Record {
	return &vehicle.Record{
		VehicleID: "veh-1",
		Basic: vehicle.BasicInfo{
			VIN: "SAMPLETESTVINURFY", VRM: "AB05IYG",
			Make: "Honda", Model: "Civic", Year: 2019, FuelType: "Petrol",
		},
		Recalls: []vehicle.Recall{},
	}
}

func newTestGenerator(t *testing.T, caller LLMCaller) *Generator {
	t.Helper()
	g, err := NewGenerator(Config{
		Caller:         caller,
		CallsPerMinute: 600000,
		Clock: func() time.Time {
			return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		},
		Backoff: func(int) time.Duration { return time.Millisecond },
	})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func TestGenerateParsesValidDocument(t *testing.T) {
	g := newTestGenerator(t, &fakeCaller{responses: []string{validResponse}})
	doc, err := g.Generate(context.Background(), testRecord())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(doc.Summary, "hatchback") {
		t.Fatalf("summary %q", doc.Summary)
	}
	if doc.Reliability == nil || doc.Reliability.Score != 8 {
		t.Fatalf("reliability %+v", doc.Reliability)
	}
	if doc.ModelVersion == "" || doc.GeneratedAt.IsZero() {
		t.Fatalf("metadata missing: %+v", doc)
	}
	if doc.Cached {
		t.Fatal("freshly generated document must not be marked cached")
	}
}

func TestGenerateStripsCodeFences(t *testing.T) {
	g := newTestGenerator(t, &fakeCaller{responses: []string{"```json\n" + validResponse + "\n```"}})
	if _, err := g.Generate(context.Background(), testRecord()); err != nil {
		t.Fatalf("fenced response should parse: %v", err)
	}
}

func TestGenerateRetriesOnceOnBadJSON(t *testing.T) {
	f := &fakeCaller{responses: []string{"not json at all", validResponse}}
	g := newTestGenerator(t, f)
	doc, err := g.Generate(context.Background(), testRecord())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if doc.Summary == "" {
		t.Fatal("expected parsed document after corrective retry")
	}
	if n := f.calls.Load(); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestGenerateParseErrorAfterRetry(t *testing.T) {
	f := &fakeCaller{responses: []string{`{"summary": ""}`, `{"owner_advice": "no summary"}`}}
	g := newTestGenerator(t, f)
	_, err := g.Generate(context.Background(), testRecord())
	var ve *vehicle.Error
	if !errors.As(err, &ve) || ve.Code != vehicle.CodeInsightParse {
		t.Fatalf("expected insight_parse, got %v", err)
	}
	if n := f.calls.Load(); n != 2 {
		t.Fatalf("schema failures retry exactly once, got %d calls", n)
	}
}

func TestGenerateNonNumericScoreIsParseError(t *testing.T) {
	bad := `{"summary": "ok", "reliability_assessment": {"score": "N/A", "explanation": "x"}}`
	f := &fakeCaller{responses: []string{bad, bad}}
	g := newTestGenerator(t, f)
	_, err := g.Generate(context.Background(), testRecord())
	var ve *vehicle.Error
	if !errors.As(err, &ve) || ve.Code != vehicle.CodeInsightParse {
		t.Fatalf("expected insight_parse, got %v", err)
	}
}

func TestGenerateQuotedNumericScoreAccepted(t *testing.T) {
	quoted := `{"summary": "ok", "reliability_assessment": {"score": "7.5", "explanation": "x"}}`
	g := newTestGenerator(t, &fakeCaller{responses: []string{quoted}})
	doc, err := g.Generate(context.Background(), testRecord())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if doc.Reliability.Score != 7.5 {
		t.Fatalf("score %v", doc.Reliability.Score)
	}
}

func TestGenerateTransportRetries(t *testing.T) {
	f := &fakeCaller{
		errs:      []error{errors.New("status code: 529 overloaded"), nil},
		responses: []string{"", validResponse},
	}
	g := newTestGenerator(t, f)
	if _, err := g.Generate(context.Background(), testRecord()); err != nil {
		t.Fatalf("should recover from transient failure: %v", err)
	}
	if n := f.calls.Load(); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestGenerateTransportExhaustionIsProviderError(t *testing.T) {
	fail := errors.New("status code: 500 internal")
	f := &fakeCaller{errs: []error{fail, fail, fail}}
	g := newTestGenerator(t, f)
	_, err := g.Generate(context.Background(), testRecord())
	var ve *vehicle.Error
	if !errors.As(err, &ve) || ve.Code != vehicle.CodeInsightProvider {
		t.Fatalf("expected insight_provider, got %v", err)
	}
	if !ve.Transient {
		t.Fatal("insight_provider should be transient")
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	rec := testRecord()
	rec.Valuations = []vehicle.Valuation{{ValuationDate: "2026-01-15", RetailValue: 11500}}
	a := BuildPrompt(rec)
	b := BuildPrompt(rec)
	if a != b {
		t.Fatal("prompt must be identical for identical input")
	}
	if !strings.Contains(a, "VIN: SAMPLETESTVINURFY") {
		t.Fatalf("prompt missing VIN section:\n%s", a)
	}
	if !strings.Contains(a, "No recalls on record") {
		t.Fatal("empty recalls should render as an explicit empty section")
	}
}

func TestRecordHashTracksContent(t *testing.T) {
	rec := testRecord()
	h1 := RecordHash(rec)
	if h1 == "" || h1 != RecordHash(rec) {
		t.Fatal("hash must be stable")
	}
	changed := testRecord()
	changed.History = []vehicle.HistoryEvent{{EventType: "MOT"}}
	if RecordHash(changed) == h1 {
		t.Fatal("hash must change when a collection changes")
	}
}

func TestFallbackDocument(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := FallbackDocument(testRecord(), now)
	if !doc.Fallback {
		t.Fatal("fallback flag missing")
	}
	if !strings.Contains(doc.Summary, "Honda") {
		t.Fatalf("summary should name the vehicle: %q", doc.Summary)
	}
	if doc.GeneratedAt != now {
		t.Fatalf("generated_at %v", doc.GeneratedAt)
	}
}

func TestNewAnthropicCallerFromEnvRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewAnthropicCallerFromEnv(); err == nil {
		t.Fatal("expected error without API key")
	}
}
