package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/common/kafka"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/common/middleware"
	"github.com/synaptica-ai/genomics/pkg/incident"
	"github.com/synaptica-ai/genomics/pkg/ingestion"
	"github.com/synaptica-ai/genomics/pkg/jobrun"
	"github.com/synaptica-ai/genomics/pkg/jobs"
	"github.com/synaptica-ai/genomics/pkg/observability/metrics"
)

const maxRequestBody = 32 << 20

// Scheduled job groups. Past-due checks run on their own, slower cadence.
var (
	reconcileJobs = []string{
		"reconcile-raw-aw1", "reconcile-raw-aw2",
		"record-counts-aw1", "record-counts-aw2",
		"resolve-missing-files", "informing-loop-ready",
	}
	pastDueJobs = []string{
		"cvl-hdr-past-due", "cvl-pgx-past-due", "cvl-resolve", "cvl-alerts",
	}
)

func main() {
	_ = godotenv.Load()
	logger.Init()
	metrics.Init()
	cfg := config.Load()
	instance := uuid.NewString()
	log := logger.Log.WithField("instance", instance)

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load genomic settings")
	}

	db, err := database.GetPostgres()
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.ClosePostgres()

	var gate incident.Gate = incident.OpenGate{}
	if client, err := database.GetRedis(); err == nil {
		gate = incident.NewRedisGate(client, cfg.IncidentAlertTTL)
		defer database.CloseRedis()
	}

	producer := kafka.NewProducer(cfg, cfg.IncidentTopic)
	defer producer.Close()
	sink := incident.NewKafkaSink(producer, cfg.NotificationSource)

	env := jobs.NewEnv(db, cfg, settings, clock.Real{}, sink, gate)
	if err := env.Migrate(); err != nil {
		log.WithError(err).Fatal("failed to migrate genomic tables")
	}
	raw := env.Engine.Raw().WithBatchSize(cfg.IngestionBatchSize)

	svc := ingestion.NewService(ingestion.NewValidator(cfg.BiobankIDPrefix), raw, env.Subworkflows, env.Reporter, env.Clock)
	handler := ingestion.NewHTTPHandler(svc, raw, maxRequestBody)
	runner := jobs.NewRunner(jobrun.NewTracker(env.Runs), jobs.Registry(env), 2)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Genomic worker started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	consumer := kafka.NewConsumer(cfg, cfg.RawRowsTopic, cfg.KafkaGroupID).OnGiveUp(svc.Abandon)
	defer consumer.Close()
	go func() {
		if err := consumer.Consume(ctx, svc.Handle); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("raw row consumer stopped")
		}
	}()

	go schedule(ctx, cfg.ReconcileInterval, func() { runner.RunAll(ctx, reconcileJobs...) })
	go schedule(ctx, cfg.PastDueInterval, func() { runner.RunAll(ctx, pastDueJobs...) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down genomic worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("Genomic worker stopped")
}

// schedule calls fn every interval until ctx ends. A zero interval disables
// the schedule.
func schedule(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn()
		case <-ctx.Done():
			return
		}
	}
}
