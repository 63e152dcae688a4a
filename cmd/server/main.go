package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
	"github.com/scantrail/scantrail/config"
	appmodel "github.com/scantrail/scantrail/internal/app/model"
	apprepository "github.com/scantrail/scantrail/internal/app/repository"
	appserver "github.com/scantrail/scantrail/internal/app/server"
	appservice "github.com/scantrail/scantrail/internal/app/service"
	"github.com/scantrail/scantrail/internal/auth"
	"github.com/scantrail/scantrail/internal/infra/logger"
	infraNATS "github.com/scantrail/scantrail/internal/infra/nats"
	infraPostgres "github.com/scantrail/scantrail/internal/infra/postgres"
	infraPrometheus "github.com/scantrail/scantrail/internal/infra/prometheus"
	infraRedis "github.com/scantrail/scantrail/internal/infra/redis"
	"github.com/scantrail/scantrail/internal/render"
	"go.uber.org/zap"
)

const tokenLength = 8

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
		zap.String("base_url", cfg.Server.BaseURL),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.QRCode{}, &appmodel.ScanEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	codeRepo := apprepository.NewQRCodeRepository(gormDB)
	scanRepo := apprepository.NewScanEventRepository(gormDB)
	statsRepo := apprepository.NewScanStatsRepository(pool)

	cache := appservice.NewResolveCache(redisClient, parseDuration(cfg.Resolver.CacheTTL, 5*time.Minute))

	filter := appservice.NewTokenFilter(cfg.Resolver.FilterCapacity, cfg.Resolver.FilterFalsePositive)
	refresher := appservice.NewTokenFilterRefresher(log, codeRepo, filter,
		parseDuration(cfg.Resolver.FilterRefreshInterval, 5*time.Minute))
	refresher.Start()
	defer refresher.Stop()

	consumer := appservice.NewScanConsumer(js, log, scanRepo, codeRepo)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start scan consumer", zap.Error(err))
	}

	newToken, err := nanoid.Standard(tokenLength)
	if err != nil {
		log.Fatal("Failed to build token generator", zap.Error(err))
	}

	svc := appservice.NewQRCodeService(appservice.Deps{
		Logger:   log,
		Codes:    codeRepo,
		Scans:    scanRepo,
		Stats:    statsRepo,
		Cache:    cache,
		Filter:   filter,
		NewToken: newToken,
	})

	authManager := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer,
		parseDuration(cfg.Auth.AccessTTL, 24*time.Hour))

	server := appserver.New(appserver.Dependencies{
		Logger:        log,
		Postgres:      pool,
		Redis:         redisClient,
		NATS:          natsConn,
		JetStream:     js,
		Codes:         codeRepo,
		Service:       svc,
		Cache:         cache,
		Filter:        filter,
		ScanPublisher: appservice.NewScanPublisher(js),
		Auth:          authManager,
		Renderer:      render.NewPNGRenderer(),
		BaseURL:       cfg.Server.BaseURL,
		HomeURL:       cfg.Server.HomeURL,
	})

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := server.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
