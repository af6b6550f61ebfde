package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/vehicle-insights/internal/engine"
	"github.com/joelkehle/vehicle-insights/internal/httpapi"
	"github.com/joelkehle/vehicle-insights/internal/insight"
	"github.com/joelkehle/vehicle-insights/internal/insightcache"
	"github.com/joelkehle/vehicle-insights/internal/provider"
	"github.com/joelkehle/vehicle-insights/internal/recordstore"
	"github.com/joelkehle/vehicle-insights/internal/telemetry"
)

func main() {
	dbFlag := flag.String("db", "", "path to SQLite database file (overrides DB_PATH env var)")
	flag.Parse()

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "insights-server")
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	}

	adapter, err := provider.NewAdapter(provider.Config{
		BaseURL: os.Getenv("VEHICLE_PROVIDER_URL"),
		APIKey:  os.Getenv("VEHICLE_PROVIDER_API_KEY"),
	})
	if err != nil {
		log.Fatalf("configure provider adapter: %v", err)
	}

	caller, err := insight.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Fatalf("configure anthropic caller: %v", err)
	}
	generator, err := insight.NewGenerator(insight.Config{
		Caller:         caller,
		CallsPerMinute: envInt("INSIGHT_CALLS_PER_MINUTE", 0),
	})
	if err != nil {
		log.Fatalf("configure insight generator: %v", err)
	}

	insights := insightcache.NewCache(insightcache.Config{
		Generator: generator,
		MaxAge:    envDuration("INSIGHT_MAX_AGE", 0),
	})

	// Resolve DB path: --db flag > DB_PATH env > in-memory only.
	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = os.Getenv("DB_PATH")
	}

	var records engine.RecordStore
	if dbPath != "" {
		db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
		if err != nil {
			log.Fatalf("open sqlite (%s): %v", dbPath, err)
		}
		db.SetMaxOpenConns(1)
		ss, err := recordstore.NewSQLiteStore(db, adapter)
		if err != nil {
			log.Fatalf("initialize sqlite record store (%s): %v", dbPath, err)
		}
		if err := insights.WithSQLite(db); err != nil {
			log.Fatalf("initialize sqlite insight cache (%s): %v", dbPath, err)
		}
		records = ss
		log.Printf("using sqlite store at %s", dbPath)
	} else {
		records = recordstore.NewStore(adapter)
		log.Printf("using in-memory store, records will not survive restarts")
	}

	eng := engine.New(records, insights, time.Now)
	srv := &http.Server{Addr: addr, Handler: httpapi.NewServer(eng)}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	log.Printf("insights-server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", name, raw, err)
		return def
	}
	return v
}

func envDuration(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", name, raw, err)
		return def
	}
	return v
}
