// Package insight drives the AI assessment step: it renders a deterministic
// context from the canonical record, invokes the language model, and
// validates the structured document that comes back. This is the most
// expensive call in the system; callers must hold the insight cache's
// single-flight gate before invoking Generate.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

const systemPrompt = "You are an expert automotive consultant helping a car owner understand their vehicle. " +
	"Translate technical automotive data into clear, actionable insights for someone without car expertise. " +
	"Respond with strict JSON only."

const (
	DefaultModelVersion   = "claude-sonnet-4"
	DefaultCallsPerMinute = 20
	maxAttempts           = 3
	maxResponseTokens     = 4096
)

type llmFailureClass int

const (
	failureTimeout llmFailureClass = iota
	failureRateLimit
	failureServer
	failureClient
)

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey)}, nil
}

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens:   maxResponseTokens,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

type Config struct {
	Caller         LLMCaller
	ModelVersion   string
	CallsPerMinute int
	CallTimeout    time.Duration
	Clock          func() time.Time
	Backoff        func(attempt int) time.Duration
}

type Generator struct {
	cfg     Config
	limiter *rate.Limiter
}

func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Caller == nil {
		return nil, errors.New("insight generator needs an LLM caller")
	}
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = DefaultModelVersion
	}
	if cfg.CallsPerMinute <= 0 {
		cfg.CallsPerMinute = DefaultCallsPerMinute
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 90 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Backoff == nil {
		cfg.Backoff = backoffDelay
	}
	return &Generator{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.CallsPerMinute)/60.0), 1),
	}, nil
}

// Generate produces the insight document for rec. Transport and quota
// failures surface as insight_provider after bounded retries; output that
// cannot be mapped to the document schema surfaces as insight_parse after a
// single corrective retry. Neither is retried above this layer.
func (g *Generator) Generate(ctx context.Context, rec *vehicle.Record) (vehicle.InsightDocument, error) {
	ctx, span := otel.Tracer("insight").Start(ctx, "insight.generate")
	span.SetAttributes(attribute.String("vehicle.id", rec.VehicleID))
	defer span.End()

	if err := g.limiter.Wait(ctx); err != nil {
		return vehicle.InsightDocument{}, vehicle.NewInsightProviderError("rate limit wait: " + err.Error())
	}

	prompt := BuildPrompt(rec)
	feedback := ""
	parseRetried := false

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fullPrompt := prompt
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}

		raw, err := g.callOnce(ctx, fullPrompt)
		if err != nil {
			class := classifyTransportError(err)
			if (class == failureTimeout || class == failureRateLimit || class == failureServer) && attempt < maxAttempts {
				if err := sleepCtx(ctx, g.cfg.Backoff(attempt)); err != nil {
					return vehicle.InsightDocument{}, vehicle.NewInsightProviderError(err.Error())
				}
				continue
			}
			return vehicle.InsightDocument{}, vehicle.NewInsightProviderError("model call failed: " + err.Error())
		}

		doc, parseErr := parseDocument(raw)
		if parseErr != nil {
			if !parseRetried && attempt < maxAttempts {
				parseRetried = true
				feedback = "Your previous response could not be used: " + parseErr.Error() +
					". Respond with only valid JSON matching the requested schema."
				continue
			}
			return vehicle.InsightDocument{}, vehicle.NewInsightParseError(parseErr.Error())
		}

		doc.GeneratedAt = g.cfg.Clock().UTC()
		doc.ModelVersion = g.cfg.ModelVersion
		return doc, nil
	}
	return vehicle.InsightDocument{}, vehicle.NewInsightProviderError("model call failed after retries")
}

func (g *Generator) callOnce(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()
	return g.cfg.Caller.GenerateJSON(callCtx, prompt)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// wireDocument tolerates the model quoting the reliability score; anything
// non-numeric is still a schema failure.
type wireDocument struct {
	Summary        string   `json:"summary"`
	KeyInsights    []string `json:"key_insights"`
	OwnerAdvice    string   `json:"owner_advice"`
	AttentionItems []string `json:"attention_items"`
	Reliability    *struct {
		Score       json.Number `json:"score"`
		Explanation string      `json:"explanation"`
	} `json:"reliability_assessment"`
	Value               *vehicle.ValueAssessment `json:"value_assessment"`
	CostInsights        *vehicle.CostInsights    `json:"cost_insights"`
	TechnicalHighlights []string                 `json:"technical_highlights"`
}

func parseDocument(raw string) (vehicle.InsightDocument, error) {
	clean := stripCodeFences(raw)
	if clean == "" {
		return vehicle.InsightDocument{}, errors.New("empty model response")
	}
	var wire wireDocument
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return vehicle.InsightDocument{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if strings.TrimSpace(wire.Summary) == "" {
		return vehicle.InsightDocument{}, errors.New("missing required summary")
	}

	doc := vehicle.InsightDocument{
		Summary:             wire.Summary,
		KeyInsights:         emptyIfNil(wire.KeyInsights),
		OwnerAdvice:         wire.OwnerAdvice,
		AttentionItems:      emptyIfNil(wire.AttentionItems),
		Value:               wire.Value,
		CostInsights:        wire.CostInsights,
		TechnicalHighlights: wire.TechnicalHighlights,
	}
	if wire.Reliability != nil {
		score, err := wire.Reliability.Score.Float64()
		if err != nil {
			return vehicle.InsightDocument{}, fmt.Errorf("non-numeric reliability score %q", wire.Reliability.Score)
		}
		if score < 0 || score > 10 {
			return vehicle.InsightDocument{}, fmt.Errorf("reliability score %v out of range", score)
		}
		doc.Reliability = &vehicle.ReliabilityAssessment{Score: score, Explanation: wire.Reliability.Explanation}
	}
	return doc, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func classifyTransportError(err error) llmFailureClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return failureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, "status code: 4"):
		return failureClient
	default:
		return failureServer
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
