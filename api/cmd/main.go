package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/localmart/marketplace-service/internal/application/auth"
	"github.com/localmart/marketplace-service/internal/application/listing"
	"github.com/localmart/marketplace-service/internal/application/media"
	"github.com/localmart/marketplace-service/internal/application/messaging"
	"github.com/localmart/marketplace-service/internal/config"
	"github.com/localmart/marketplace-service/internal/domain/citymatch"
	"github.com/localmart/marketplace-service/internal/infrastructure/db/postgres"
	"github.com/localmart/marketplace-service/internal/infrastructure/geo"
	"github.com/localmart/marketplace-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/localmart/marketplace-service/internal/infrastructure/redis"
	"github.com/localmart/marketplace-service/internal/infrastructure/security"
	"github.com/localmart/marketplace-service/internal/infrastructure/storage"
	"github.com/localmart/marketplace-service/internal/infrastructure/suggest"
	"github.com/localmart/marketplace-service/internal/logger"
	"github.com/localmart/marketplace-service/internal/transport/http/handlers"
	"github.com/localmart/marketplace-service/internal/transport/http/middleware"
	"github.com/localmart/marketplace-service/internal/transport/http/router"
)

// eventBus is everything the application services publish.
type eventBus interface {
	auth.EventPublisher
	listing.EventPublisher
	messaging.EventPublisher
	media.EventPublisher
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init("marketplace-api", cfg.LogLevel, cfg.LogFormat)
	log = log.With().Str("env", cfg.Env).Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	db, err := config.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer db.Close()
	log.Info().Msg("postgres connected")

	// ---- Redis ----
	rds, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis config invalid")
	}
	defer rds.Close()
	// Best-effort ping; sessions and limits degrade rather than block boot.
	if err := rds.Ping(rootCtx); err != nil {
		log.Warn().Err(err).Msg("redis ping failed (continuing)")
	} else {
		log.Info().Msg("redis connected")
	}

	// ---- Event publisher ----
	var pub eventBus
	if cfg.RabbitURL != "" {
		rp, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq connect failed")
		}
		defer rp.Close()
		pub = rp
		log.Info().Str("exchange", cfg.RabbitExchange).Msg("rabbitmq connected")
	} else {
		pub = rabbitmq.NewNoopPublisher()
		log.Warn().Msg("RABBIT_URL empty, domain events disabled")
	}

	// ---- Object storage ----
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
	if cfg.Env == "dev" {
		if err := s3c.EnsureBucket(rootCtx); err != nil {
			log.Warn().Err(err).Msg("bucket bootstrap failed (continuing)")
		}
	}

	// ---- Repositories ----
	userRepo := postgres.NewUserRepo(db)
	listingRepo := postgres.NewListingRepo(db)
	convRepo := postgres.NewConversationRepo(db)
	msgRepo := postgres.NewMessageRepo(db)
	uploadRepo := postgres.NewUploadRepo(db)

	sessions := redis.NewSessionStore(rds)

	// ---- Services ----
	hasher := security.NewBcryptHasher(0)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer)

	authSvc := auth.NewService(userRepo, hasher, signer, sessions, pub, nil, auth.Config{
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	matcher := citymatch.Matcher{MaxDistance: cfg.SearchMaxDistance}
	listingSvc := listing.New(listingRepo, pub, suggest.NewStaticProvider(), geo.NewStaticGeocoder(), nil, matcher)
	mediaSvc := media.New(uploadRepo, s3c, listingSvc, pub, nil, media.Config{
		PresignTTL: cfg.PresignTTL,
	})
	messagingSvc := messaging.New(convRepo, msgRepo, listingSvc, pub, nil)

	// Upload janitor: reaps abandoned presigns, re-queues stalled uploads.
	janitor := media.NewJanitor(uploadRepo, s3c, pub)
	go janitor.Run(rootCtx)

	// ---- HTTP ----
	authMW := middleware.NewAuth(cfg.JWTSecret, cfg.JWTIssuer, sessions)

	var limiter middleware.RateLimiter
	ipLimit := 0
	if cfg.RLEnabled {
		limiter = redis.NewFixedWindowLimiter(rds)
		ipLimit = cfg.RLIPLimit
	}

	handler, err := router.New(router.Deps{
		Health: handlers.NewHealthHandler(
			handlers.ReadyCheck{Name: "postgres", Check: db.PingContext},
			handlers.ReadyCheck{Name: "redis", Check: rds.Ping},
		),
		Auth:     handlers.NewAuthHandler(authSvc),
		Listings: handlers.NewListingsHandler(listingSvc, mediaSvc),
		Messages: handlers.NewMessagesHandler(messagingSvc),
		Media:    handlers.NewMediaHandler(mediaSvc),
		Admin:    handlers.NewAdminHandler(listingSvc, authSvc),

		AuthMW:         authMW,
		Limiter:        limiter,
		IPRequestLimit: ipLimit,
		LoginLimit:     cfg.RLLoginLimit,
		LoginWindow:    cfg.RLLoginWindow,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("router init failed")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
