package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "trustbadge/internal/jwt_token"
	"trustbadge/internal/platform/config"
	"trustbadge/internal/platform/httpserver"
	"trustbadge/internal/platform/logger"
	"trustbadge/internal/platform/metrics"
	"trustbadge/internal/platform/middleware"
	platformredis "trustbadge/internal/platform/redis"
	"trustbadge/internal/profile"
	profilestore "trustbadge/internal/profile/store"
	"trustbadge/internal/storage"
	"trustbadge/internal/verification"
	"trustbadge/internal/verification/cache"
	"trustbadge/internal/verification/handler"
	"trustbadge/internal/verification/service"
	verificationstore "trustbadge/internal/verification/store"
	"trustbadge/pkg/platform/audit"
)

// main wires dependencies and keeps the lifecycle small. Business logic lives
// in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when DATABASE_URL is set, in-memory otherwise. The
	// in-memory pair is for local development only.
	var (
		records  verification.Store
		profiles profile.Store
		tx       service.Tx
	)
	if cfg.DatabaseURL != "" {
		pg, err := storage.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		records = verificationstore.NewPostgres(pg.Pool)
		profiles = profilestore.NewPostgres(pg.Pool)
		tx = storage.NewTx(pg)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		memRecords := verification.NewInMemoryStore()
		memProfiles := profile.NewInMemoryStore()
		records = memRecords
		profiles = memProfiles
		tx = service.NewMemoryTx(memRecords, memProfiles)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	var statusCache service.StatusCache
	if sc := cache.New(redisClient, cfg.StatusCacheTTL, log); sc != nil {
		statusCache = sc
	}

	auditStore := audit.NewInMemoryStore()
	sinks := []audit.Store{auditStore}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	publisher := audit.NewPublisher(256, log)
	auditWorker := audit.NewWorker(publisher, log, sinks...)

	m := metrics.New()

	svc := service.New(service.Config{
		Reads:         records,
		Profiles:      profiles,
		Tx:            tx,
		Cache:         statusCache,
		Audit:         publisher,
		Metrics:       m,
		Logger:        log,
		AllowReverify: cfg.AllowReverify,
		MaxImageBytes: cfg.MaxImageBytes,
	})

	validator := jwttoken.NewValidator(cfg.JWTSigningKey)
	adminAuth := middleware.NewAdminAuth(cfg.AdminTokenHash, cfg.AdminToken, log)

	router := chi.NewRouter()
	handler.New(svc, log, m, validator).Register(router)
	handler.NewAdmin(svc, log, m, adminAuth).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditWorker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting trustbadge server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
