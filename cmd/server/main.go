package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"census-backend/internal/config"
	"census-backend/internal/database"
	"census-backend/internal/db"
	"census-backend/internal/handlers"
	"census-backend/internal/health"
	h "census-backend/internal/http"
	"census-backend/internal/middleware"
	"census-backend/internal/monitoring"
	"census-backend/internal/repositories"
	"census-backend/internal/services"
	"census-backend/internal/session"
	"census-backend/migrations"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	skipMigrations := flag.Bool("skip-migrations", false, "Skip schema migrations at startup")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	pool := db.Connect(cfg)
	defer pool.Close()

	if !*skipMigrations {
		migrator := database.NewMigrator(pool, migrations.FS)
		if err := migrator.Run(context.Background()); err != nil {
			log.Fatalf("Migrations failed: %v", err)
		}
	}

	// Repositories and services
	familyRepo := repositories.NewFamilyRepository(pool)
	submissionService := services.NewSubmissionService(familyRepo)
	exportService, err := services.NewExportService(familyRepo, cfg.Export.Password)
	if err != nil {
		log.Fatalf("Failed to initialize export service: %v", err)
	}

	// Form sessions
	sessions := session.NewStore(time.Duration(cfg.Session.TTLMinutes) * time.Minute)
	monitoring.SetSessionCounter(func() float64 { return float64(sessions.Count()) })

	// Handlers
	formHandler := handlers.NewFormHandler(sessions, submissionService)
	exportHandler := handlers.NewExportHandler(exportService)
	healthHandler := handlers.NewHealthHandler(health.NewChecker(pool, sessions.Count))

	// Export endpoints take a guessable shared password, so they get a
	// tight per-IP limit.
	exportLimiter := middleware.NewRateLimiter(cfg.Export.RateLimit, time.Minute)

	router := h.NewRouter(formHandler, exportHandler, healthHandler, exportLimiter)
	router.Use(middleware.RequestMetrics)

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.HTTPSRedirect(
		middleware.SecurityHeaders(
			corsMiddleware(
				middleware.GzipCompression(router))))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Census server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
