package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/joelkehle/vehicle-insights/internal/identifier"
	"github.com/joelkehle/vehicle-insights/internal/recordstore"
	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

// API is the engine surface the HTTP layer depends on.
type API interface {
	Lookup(ctx context.Context, kind identifier.Kind, raw string) (vehicle.Profile, error)
	RefreshInsights(ctx context.Context, vehicleID string) (vehicle.InsightDocument, error)
	Search(query string) []recordstore.SearchResult
}

const searchQueryMinLen = 2

type Server struct {
	engine API
}

func NewServer(engine API) http.Handler {
	s := &Server{engine: engine}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/vehicle/vin/", s.handleVINLookup)
	mux.HandleFunc("/api/v1/vehicle/vrm/", s.handleVRMLookup)
	mux.HandleFunc("/api/v1/vehicle/search", s.handleSearch)
	mux.HandleFunc("/api/v1/vehicle/", s.handleRefreshInsights)
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	return withRequestLog(mux)
}

// withRequestLog logs one line per request after it completes.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Printf("http %s %s status=%d dur=%s", r.Method, r.URL.Path, sw.status, time.Since(start).Round(time.Millisecond))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeVehicleError(w http.ResponseWriter, err error) {
	var ve *vehicle.Error
	if errors.As(err, &ve) {
		writeJSON(w, ve.Status, map[string]any{
			"ok": false,
			"error": map[string]any{
				"code":      ve.Code,
				"message":   ve.Message,
				"transient": ve.Transient,
			},
		})
		return
	}
	writeJSON(w, 500, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":      vehicle.CodeInternal,
			"message":   err.Error(),
			"transient": true,
		},
	})
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleVINLookup(w http.ResponseWriter, r *http.Request) {
	s.handleLookup(w, r, identifier.KindVIN, "/api/v1/vehicle/vin/")
}

func (s *Server) handleVRMLookup(w http.ResponseWriter, r *http.Request) {
	s.handleLookup(w, r, identifier.KindVRM, "/api/v1/vehicle/vrm/")
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request, kind identifier.Kind, prefix string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if raw == "" || strings.Contains(raw, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	profile, err := s.engine.Lookup(r.Context(), kind, raw)
	if err != nil {
		writeVehicleError(w, err)
		return
	}
	writeJSON(w, 200, profile)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < searchQueryMinLen {
		writeVehicleError(w, vehicle.NewInvalidIdentifierError("search query must be at least 2 characters"))
		return
	}
	results := s.engine.Search(query)
	writeJSON(w, 200, map[string]any{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleRefreshInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/vehicle/")
	if !strings.HasSuffix(path, "/refresh-insights") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	vehicleID := strings.TrimSuffix(strings.TrimSuffix(path, "/refresh-insights"), "/")
	if vehicleID == "" || strings.Contains(vehicleID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	doc, err := s.engine.RefreshInsights(r.Context(), vehicleID)
	if err != nil {
		writeVehicleError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":          true,
		"vehicle_id":  vehicleID,
		"ai_insights": doc,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":        true,
		"status":    "healthy",
		"service":   "vehicle-insights",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
