package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatlink/internal/config"
	"chatlink/internal/httpserver"
	"chatlink/internal/realtime"
	"chatlink/internal/security"
	"chatlink/internal/store/postgres"
	"chatlink/internal/store/sqlite"
)

// @title           ChatLink API
// @version         1.0
// @description     Direct-messaging backend: connections, conversations and real-time delivery.

// @host            localhost:8000
// @BasePath        /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

//go:generate go run github.com/swaggo/swag/cmd/swag init -g cmd/server/main.go -d ../.. -o ../../docs

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var (
		db    *sql.DB
		repos httpserver.Repositories
	)
	switch cfg.DBDriver {
	case "postgres":
		db, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		repos = httpserver.Repositories{
			Users:         postgres.NewUserRepo(db),
			Connections:   postgres.NewConnectionRepo(db),
			Conversations: postgres.NewConversationRepo(db),
			Participants:  postgres.NewParticipantRepo(db),
			Messages:      postgres.NewMessageRepo(db),
		}
	default:
		db, err = sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		if err := sqlite.Migrate(db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		repos = httpserver.Repositories{
			Users:         sqlite.NewUserRepo(db),
			Connections:   sqlite.NewConnectionRepo(db),
			Conversations: sqlite.NewConversationRepo(db),
			Participants:  sqlite.NewParticipantRepo(db),
			Messages:      sqlite.NewMessageRepo(db),
		}
	}
	defer db.Close()

	// Security components
	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	passwordHasher := security.NewPasswordHasher(0)

	encryptor, err := security.NewEncryptor([]byte(cfg.EncryptKey))
	if err != nil {
		log.Fatalf("failed to initialize encryptor: %v", err)
	}

	// Real-time delivery plane
	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry)

	router := httpserver.NewRouter(cfg, repos, registry, dispatcher, tokenSvc, passwordHasher, encryptor)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting ChatLink server on %s (driver=%s)\n", cfg.HTTPAddr(), cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
