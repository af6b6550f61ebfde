//go:build integration

package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/vehicle-insights/internal/engine"
	"github.com/joelkehle/vehicle-insights/internal/httpapi"
	"github.com/joelkehle/vehicle-insights/internal/insight"
	"github.com/joelkehle/vehicle-insights/internal/insightcache"
	"github.com/joelkehle/vehicle-insights/internal/provider"
	"github.com/joelkehle/vehicle-insights/internal/recordstore"
)

const insightResponse = `{
  "summary": "A well maintained 2019 Skoda Octavia with a clean history.",
  "key_insights": ["Full MOT history", "No outstanding recalls"],
  "owner_advice": "Keep up the annual service schedule.",
  "attention_items": [],
  "reliability_assessment": {"score": 8.2, "explanation": "Proven drivetrain."}
}`

// providerPayload is what the upstream data vendor returns for the test VIN.
const providerPayload = `{
  "vehicle_id": "veh-e2e-1",
  "basic": {
    "vin": "SAMPLETESTVINURFY",
    "vrm": "AB05IYG",
    "make": "Skoda",
    "model": "Octavia",
    "year": 2019,
    "fuel_type": "Petrol",
    "mot_status": "Valid"
  },
  "valuations": [{"valuation_date": "2026-08-01", "retail_value": 14250}],
  "recalls": []
}`

type cannedCaller struct {
	calls atomic.Int64
}

func (c *cannedCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	c.calls.Add(1)
	return insightResponse, nil
}

func startServer(t *testing.T, dbPath string, upstream string, caller insight.LLMCaller) (string, func()) {
	t.Helper()

	adapter, err := provider.NewAdapter(provider.Config{BaseURL: upstream, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("configure adapter: %v", err)
	}
	generator, err := insight.NewGenerator(insight.Config{Caller: caller, CallsPerMinute: 600000})
	if err != nil {
		t.Fatalf("configure generator: %v", err)
	}
	insights := insightcache.NewCache(insightcache.Config{Generator: generator})

	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	records, err := recordstore.NewSQLiteStore(db, adapter)
	if err != nil {
		t.Fatalf("init record store: %v", err)
	}
	if err := insights.WithSQLite(db); err != nil {
		t.Fatalf("init insight cache: %v", err)
	}

	eng := engine.New(records, insights, time.Now)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: httpapi.NewServer(eng)}
	go srv.Serve(ln)

	stop := func() {
		srv.Close()
		db.Close()
	}
	return "http://" + ln.Addr().String(), stop
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if dst != nil {
		if err := json.Unmarshal(body, dst); err != nil {
			t.Fatalf("decode %s response %q: %v", url, body, err)
		}
	}
	return resp.StatusCode
}

func TestE2EVehicleLookupFlow(t *testing.T) {
	var providerHits atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerHits.Add(1)
		vin := r.URL.Query().Get("vin")
		vrm := r.URL.Query().Get("vrm")
		if vin == "SAMPLETESTVINURFY" || vrm == "AB05IYG" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, providerPayload)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	caller := &cannedCaller{}
	dbPath := filepath.Join(t.TempDir(), "insights.db")

	baseURL, stop := startServer(t, dbPath, upstream.URL, caller)

	// --- 1. VIN lookup fetches, generates insights, and assembles ---
	var profile struct {
		VehicleID  string `json:"vehicle_id"`
		SearchType string `json:"search_type"`
		AIInsights struct {
			Summary string `json:"summary"`
			Cached  bool   `json:"cached"`
		} `json:"ai_insights"`
	}
	if code := getJSON(t, baseURL+"/api/v1/vehicle/vin/SAMPLETESTVINURFY", &profile); code != 200 {
		t.Fatalf("vin lookup status=%d", code)
	}
	if profile.VehicleID != "veh-e2e-1" || profile.SearchType != "vin" {
		t.Fatalf("profile = %+v", profile)
	}
	if profile.AIInsights.Cached {
		t.Fatal("first lookup should not be cached")
	}

	// --- 2. VRM lookup for the same vehicle reuses the record and insights ---
	if code := getJSON(t, baseURL+"/api/v1/vehicle/vrm/ab05iyg", &profile); code != 200 {
		t.Fatalf("vrm lookup status=%d", code)
	}
	if profile.VehicleID != "veh-e2e-1" {
		t.Fatalf("vrm lookup resolved %q, want same vehicle", profile.VehicleID)
	}
	if !profile.AIInsights.Cached {
		t.Fatal("second lookup should serve cached insights")
	}
	if got := providerHits.Load(); got != 1 {
		t.Fatalf("provider fetched %d times, want 1", got)
	}
	if got := caller.calls.Load(); got != 1 {
		t.Fatalf("model invoked %d times, want 1", got)
	}

	// --- 3. Search finds the vehicle by make ---
	var search struct {
		Count   int `json:"count"`
		Results []struct {
			VehicleID string `json:"vehicle_id"`
		} `json:"results"`
	}
	if code := getJSON(t, baseURL+"/api/v1/vehicle/search?q=skoda", &search); code != 200 {
		t.Fatalf("search status=%d", code)
	}
	if search.Count != 1 || search.Results[0].VehicleID != "veh-e2e-1" {
		t.Fatalf("search = %+v", search)
	}

	// --- 4. Forced refresh invokes the model again ---
	resp, err := http.Post(baseURL+"/api/v1/vehicle/veh-e2e-1/refresh-insights", "application/json", nil)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("refresh status=%d", resp.StatusCode)
	}
	if got := caller.calls.Load(); got != 2 {
		t.Fatalf("model invoked %d times after refresh, want 2", got)
	}

	// --- 5. Unknown VIN surfaces the provider 404 as not_found ---
	var errResp struct {
		OK    bool `json:"ok"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if code := getJSON(t, baseURL+"/api/v1/vehicle/vin/WAUZZZ8V5KA000000", &errResp); code != 404 {
		t.Fatalf("unknown vin status=%d", code)
	}
	if errResp.OK || errResp.Error.Code != "not_found" {
		t.Fatalf("error = %+v", errResp)
	}

	// --- 6. Restart: records and insights come back from sqlite ---
	stop()
	baseURL, stop = startServer(t, dbPath, upstream.URL, caller)
	defer stop()

	if code := getJSON(t, baseURL+"/api/v1/vehicle/vin/SAMPLETESTVINURFY", &profile); code != 200 {
		t.Fatalf("post-restart lookup status=%d", code)
	}
	if !profile.AIInsights.Cached {
		t.Fatal("post-restart lookup should serve persisted insights")
	}
	if got := providerHits.Load(); got != 2 {
		t.Fatalf("provider fetched %d times total, want 2 (initial fetch plus the unknown VIN, none after restart)", got)
	}
	if got := caller.calls.Load(); got != 2 {
		t.Fatalf("model invoked %d times after restart, want 2", got)
	}
}
