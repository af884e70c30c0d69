package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	alertapp "hvac-cloud/internal/alerts/application"
	alerthttp "hvac-cloud/internal/alerts/interfaces/http"
	alertnotify "hvac-cloud/internal/alerts/notify"
	analytics "hvac-cloud/internal/analytics/application"
	apihttp "hvac-cloud/internal/api/http"
	"hvac-cloud/internal/auth"
	"hvac-cloud/internal/config"
	"hvac-cloud/internal/observability/metrics"
	"hvac-cloud/internal/telemetry/application"
	telemetrypostgres "hvac-cloud/internal/telemetry/infrastructure/postgres"
	"hvac-cloud/internal/telemetry/interfaces/ingest"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	sysCfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init()

	recorder := telemetrypostgres.NewHistoryRepository(db)
	historyQuery := telemetrypostgres.NewHistoryQuery(db)
	dailyCop, err := analytics.NewDailyCopService(db)
	if err != nil {
		logger.Fatalf("daily cop service error: %v", err)
	}

	alertBroker := alerthttp.NewSSEBroker()
	alertNotifiers := []alertapp.AlertNotifier{alertBroker}
	if cfg.AlertWebhookURL != "" {
		channel, err := alertnotify.NewWebhookChannel(cfg.AlertWebhookURL)
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		tpl, err := alertnotify.NewTemplate(cfg.AlertNotifyTemplate)
		if err != nil {
			logger.Fatalf("alert template error: %v", err)
		}
		opts := []alertnotify.Option{
			alertnotify.WithCooldown(cfg.AlertNotifyCooldown),
			alertnotify.WithDedupeWindow(cfg.AlertNotifyDedupeWindow),
		}
		if cfg.AlertNotifyMinLevel != "" {
			opts = append(opts, alertnotify.WithMinLevel(cfg.AlertNotifyMinLevel))
		}
		webhookNotifier, err := alertnotify.NewNotifier(channel, tpl, opts...)
		if err != nil {
			logger.Fatalf("alert notifier error: %v", err)
		}
		alertNotifiers = append(alertNotifiers, webhookNotifier)
	}

	detectorOpts := []alertapp.Option{
		alertapp.WithNotifier(alertnotify.NewMultiNotifier(alertNotifiers...)),
	}
	if retention := sysCfg.Retention(); retention > 0 {
		detectorOpts = append(detectorOpts, alertapp.WithRetention(retention))
	}
	detector := alertapp.NewDetector(detectorOpts...)

	engine, err := application.NewEngine(
		sysCfg.ZoneReadings(),
		sysCfg.MeterStates(),
		sysCfg.PumpStates(),
		sysCfg.AnomalyThresholds(),
		detector,
		application.WithRecorder(recorder),
		application.WithDailyCopProvider(dailyCop),
	)
	if err != nil {
		logger.Fatalf("engine error: %v", err)
	}

	ingestHandler, err := ingest.NewHandler(engine, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	alertsHandler, err := alerthttp.NewHandler(engine)
	if err != nil {
		logger.Fatalf("alerts handler error: %v", err)
	}

	go func() {
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		for tick := range ticker.C {
			if _, err := engine.Tick(context.Background(), tick.UTC()); err != nil {
				logger.Printf("tick error: %v", err)
			}
		}
	}()

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/ingest/telemetry", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/snapshot", apihttp.NewSnapshotHandler(engine))
	mux.Handle("/api/v1/alerts", alertsHandler)
	mux.Handle("/api/v1/alerts/stream", alerthttp.NewStreamHandler(alertBroker))
	mux.Handle("/api/v1/history", apihttp.NewHistoryHandler(historyQuery))
	mux.Handle("/api/v1/exports/history.csv", apihttp.NewHistoryCSVHandler(historyQuery))
	mux.Handle("/api/v1/reports/", apihttp.NewReportsHandler(historyQuery, historyQuery))
	mux.Handle("/api/v1/analyst/context", apihttp.NewAnalystContextHandler(engine))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type envConfig struct {
	DatabaseURL             string
	HTTPAddr                string
	TickInterval            time.Duration
	AlertWebhookURL         string
	AlertNotifyTemplate     string
	AlertNotifyCooldown     time.Duration
	AlertNotifyDedupeWindow time.Duration
	AlertNotifyMinLevel     string
	JWTSecret               string
	IngestSecret            string
	IngestSkewSeconds       int
}

func loadConfig() envConfig {
	cfg := envConfig{
		DatabaseURL:             getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:                getenvDefault("HTTP_ADDR", ":8080"),
		TickInterval:            getenvDuration("TICK_INTERVAL", time.Second),
		AlertWebhookURL:         getenvDefault("ALERT_WEBHOOK_URL", ""),
		AlertNotifyTemplate:     getenvDefault("ALERT_NOTIFY_TEMPLATE", ""),
		AlertNotifyCooldown:     getenvDuration("ALERT_NOTIFY_COOLDOWN", 0),
		AlertNotifyDedupeWindow: getenvDuration("ALERT_NOTIFY_DEDUP_WINDOW", 0),
		AlertNotifyMinLevel:     getenvDefault("ALERT_NOTIFY_MIN_LEVEL", ""),
		JWTSecret:               getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:            getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds:       getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
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
