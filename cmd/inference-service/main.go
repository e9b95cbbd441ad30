package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitalpath-ai/platform/pkg/assessment"
	"github.com/vitalpath-ai/platform/pkg/common/config"
	"github.com/vitalpath-ai/platform/pkg/common/database"
	"github.com/vitalpath-ai/platform/pkg/common/kafka"
	"github.com/vitalpath-ai/platform/pkg/common/logger"
	"github.com/vitalpath-ai/platform/pkg/common/middleware"
	"github.com/vitalpath-ai/platform/pkg/observability/metrics"
	"github.com/vitalpath-ai/platform/pkg/storage"
)

func main() {
	logger.Init()
	cfg := config.Load()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Log.WithError(err).Fatal("Failed to register metrics")
	}

	pipe, err := assessment.NewPipeline(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to assemble inference pipeline")
	}

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	repo := assessment.NewGormRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate assessment tables")
	}

	cache := storage.NewResultStore(database.GetRedis(), cfg.ResultTTL)
	producer := kafka.NewProducer(cfg.CompletionTopic)
	notifier := assessment.NewKafkaNotifier(producer)

	orch := assessment.NewOrchestrator(pipe, repo, notifier, cache, assessment.TuningFromConfig(cfg))
	orch.Start()

	service := assessment.NewService(orch, repo, cache, cfg.JobRetention)

	janitor := assessment.NewJanitor(service, cfg.JanitorSchedule)
	if err := janitor.Start(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to start retention janitor")
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	assessment.NewHTTPHandler(service, cfg.MaxRequestBody).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Inference Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Inference Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	janitor.Stop()

	if err := orch.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Orchestrator forced to shutdown")
	}

	if err := producer.Close(); err != nil {
		logger.Log.WithError(err).Error("Failed to close Kafka producer")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("Failed to close Redis client")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("Failed to close PostgreSQL connection")
	}

	logger.Log.Info("Inference Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
