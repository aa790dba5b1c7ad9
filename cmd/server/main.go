package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/project-hosting/internal/config"
	"github.com/iliyamo/project-hosting/internal/database"
	"github.com/iliyamo/project-hosting/internal/handler"
	"github.com/iliyamo/project-hosting/internal/maintenance"
	"github.com/iliyamo/project-hosting/internal/queue"
	"github.com/iliyamo/project-hosting/internal/repository"
	"github.com/iliyamo/project-hosting/internal/router"
	"github.com/iliyamo/project-hosting/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate failed: %v", err)
	}

	store, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("object storage bucket check failed: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	invites := repository.NewInvitationRepo(db)
	projects := repository.NewProjectRepo(db)

	// Seed the default admin (no-op when unset or already present).
	if err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}

	// Daily sweep of expired refresh-token ledger rows.
	maintenance.StartLedgerSweeper(tokens, 24*time.Hour)

	// Email task consumer reconnects on its own; run it for the whole
	// process lifetime.
	go func() {
		if err := queue.StartEmailConsumer(); err != nil {
			log.Printf("email consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient() // nil disables the response cache
	if rdb == nil {
		log.Printf("redis unavailable, response cache disabled")
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterUsers(e, handler.NewAuthHandler(cfg, users, tokens, invites), cfg.JWTSecret)
	router.RegisterProjects(e, handler.NewProjectHandler(projects, users, store), cfg.JWTSecret,
		rdb, time.Duration(cfg.CacheTTLSec)*time.Second)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
