package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	httpadapter "cv-builder/internal/adapter/http"
	repo "cv-builder/internal/adapter/repository"
	"cv-builder/internal/auth"
	"cv-builder/internal/config"
	"cv-builder/internal/editor"
	"cv-builder/internal/entitlement"
	"cv-builder/internal/infrastructure/migration"
	"cv-builder/internal/logger"
	"cv-builder/internal/preview"
	infra "cv-builder/pkg/infrastructure"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Logger)
	log := logger.With("server")

	ctx := context.Background()

	pool, err := infra.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	if err := migration.RunMigrations(ctx, pool, logger.With("migration")); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	redisClient, err := infra.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis not available, entitlement cache disabled")
		redisClient = nil
	}

	var photos httpadapter.PhotoStore
	if cfg.MinIO.Enabled {
		store, err := infra.NewPhotoStore(ctx, cfg.MinIO)
		if err != nil {
			log.Warn().Err(err).Msg("object storage not available, photo upload disabled")
		} else {
			photos = store
		}
	}

	cvRepo := repo.NewCVRepo(pool)
	premiumRepo := repo.NewPremiumRepo(pool)
	gate := entitlement.NewGate(premiumRepo, redisClient, logger.With("entitlement"))
	renderer := preview.NewRenderer()
	exporter := infra.NewChromedpRenderer(cfg.ExportTimeout())
	sessions := editor.NewManager(cvRepo, gate, exporter, renderer, logger.With("editor"))
	authSvc := auth.NewService(cfg.JWT.Secret, cfg.JWTTTL())

	app := fiber.New(fiber.Config{
		BodyLimit: 8 * 1024 * 1024,
	})
	app.Use(authSvc.Middleware())

	h := httpadapter.NewHandler(sessions, cvRepo, gate, photos, logger.With("http"))
	h.Register(app)

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("server listening")
		if err := app.Listen(cfg.Server.Address); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
