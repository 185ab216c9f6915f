package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/localmart/marketplace-service/internal/application/media"
	"github.com/localmart/marketplace-service/internal/config"
	"github.com/localmart/marketplace-service/internal/infrastructure/db/postgres"
	"github.com/localmart/marketplace-service/internal/infrastructure/storage"
	"github.com/localmart/marketplace-service/internal/logger"
	"github.com/localmart/marketplace-service/internal/worker"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init("marketplace-worker", cfg.LogLevel, cfg.LogFormat)
	log = log.With().Str("env", cfg.Env).Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer db.Close()

	s3c, err := storage.NewS3Client(rootCtx, storage.S3Options{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    cfg.S3UsePathStyle,
		CDNBaseURL:      cfg.CDNBaseURL,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("s3 client init failed")
	}

	// The worker only drives the process pipeline; no listing lookups, no
	// event publishing.
	mediaSvc := media.New(postgres.NewUploadRepo(db), s3c, nil, nil, nil, media.Config{})

	cons, err := worker.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue, mediaSvc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("consumer init failed")
	}
	defer cons.Close()

	// Small sidecar server for scrapes and probes.
	metricsAddr := os.Getenv("WORKER_METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9091"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("metrics server stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := cons.Run(rootCtx); err != nil {
			errCh <- err
		}
	}()
	log.Info().Str("queue", cfg.RabbitQueue).Msg("worker started")

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("consumer crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
