// Package provider calls the external vehicle-data service and maps its
// payload into the canonical record. It is the only layer that retries
// transient provider failures; callers treat its errors as final for the
// request.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joelkehle/vehicle-insights/internal/identifier"
	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxAttempts = 3
)

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	HTTPClient  *http.Client
	Clock       func() time.Time
	Backoff     func(attempt int) time.Duration
}

type Adapter struct {
	cfg Config
}

func NewAdapter(cfg Config) (*Adapter, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("provider base URL not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Backoff == nil {
		cfg.Backoff = backoffDelay
	}
	return &Adapter{cfg: cfg}, nil
}

// Fetch retrieves the record for id, retrying transient failures with
// backoff up to MaxAttempts. A 404 from the provider is NotFound and is
// never retried; an unusable payload is UpstreamData and is never cached
// by callers.
func (a *Adapter) Fetch(ctx context.Context, id identifier.Identifier) (*vehicle.Record, error) {
	ctx, span := otel.Tracer("provider").Start(ctx, "provider.fetch")
	span.SetAttributes(
		attribute.String("vehicle.search_kind", string(id.Kind)),
		attribute.String("vehicle.search_term", id.Value),
	)
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		payload, retryable, err := a.fetchOnce(ctx, id)
		if err == nil {
			return a.mapPayload(id, payload)
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		if attempt < a.cfg.MaxAttempts {
			if err := sleepCtx(ctx, a.cfg.Backoff(attempt)); err != nil {
				return nil, vehicle.NewUpstreamUnavailableError(err.Error())
			}
		}
	}
	return nil, lastErr
}

// fetchOnce performs a single HTTP round trip. The bool reports whether the
// failure is eligible for another attempt.
func (a *Adapter) fetchOnce(ctx context.Context, id identifier.Identifier) (*recordPayload, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1/vehicles?%s=%s", a.cfg.BaseURL, id.Kind, url.QueryEscape(id.Value))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, vehicle.NewInternalError("build provider request: " + err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	resp, err := a.cfg.HTTPClient.Do(req)
	if err != nil {
		if isTimeoutError(err) {
			return nil, true, vehicle.NewUpstreamUnavailableError("provider request timed out")
		}
		return nil, true, vehicle.NewUpstreamUnavailableError("provider request failed: " + err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, vehicle.NewNotFoundError(fmt.Sprintf("no vehicle for %s %s", id.Kind, id.Value))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Auth misconfiguration; another attempt with the same key cannot succeed.
		return nil, false, vehicle.NewUpstreamUnavailableError("provider rejected credentials (status " + strconv.Itoa(resp.StatusCode) + ")")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, true, vehicle.NewUpstreamUnavailableError("provider returned status " + strconv.Itoa(resp.StatusCode))
	default:
		return nil, false, vehicle.NewUpstreamDataError("provider returned unexpected status " + strconv.Itoa(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, true, vehicle.NewUpstreamUnavailableError("read provider response: " + err.Error())
	}
	var payload recordPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false, vehicle.NewUpstreamDataError("decode provider response: " + err.Error())
	}
	return &payload, false, nil
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 500 * time.Millisecond
	}
	return time.Duration(attempt) * time.Second
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
