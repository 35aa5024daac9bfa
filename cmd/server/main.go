package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"lancebill-backend/internal/auth"
	"lancebill-backend/internal/cache"
	"lancebill-backend/internal/config"
	"lancebill-backend/internal/database"
	"lancebill-backend/internal/db"
	"lancebill-backend/internal/handlers"
	"lancebill-backend/internal/health"
	h "lancebill-backend/internal/http"
	"lancebill-backend/internal/middleware"
	"lancebill-backend/internal/monitoring"
	"lancebill-backend/internal/repositories"
	"lancebill-backend/internal/services"
	"lancebill-backend/migrations"
)

func main() {
	var port int
	var skipMigrations bool
	flag.IntVar(&port, "port", 0, "HTTP port (overrides config)")
	flag.BoolVar(&skipMigrations, "skip-migrations", false, "skip database migrations on startup")
	flag.Parse()

	cfg := config.Load()
	if port != 0 {
		cfg.Server.Port = port
	}

	pool := db.Connect(cfg)
	defer pool.Close()

	if !skipMigrations {
		migrator := database.NewMigratorWithFS(pool, migrations.FS, ".")
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		if err := migrator.RunMigrations(ctx); err != nil {
			cancel()
			log.Fatalf("[Main] Migration failed: %v", err)
		}
		cancel()
	}

	// Redis is optional; the app degrades to uncached paths without it.
	if err := cache.Init(cfg); err != nil {
		log.Printf("[Main] Redis unavailable, running without cache: %v", err)
	}

	jwtManager := auth.NewJWTManager(cfg)

	accountRepo := repositories.NewAccountRepository(pool)
	subscriptionRepo := repositories.NewSubscriptionRepository(pool)
	clientRepo := repositories.NewClientRepository(pool)
	invoiceRepo := repositories.NewInvoiceRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)

	accountService := services.NewAccountService(accountRepo, jwtManager)
	clientService := services.NewClientService(clientRepo)
	ledgerService := services.NewLedgerService(invoiceRepo, paymentRepo, clientRepo)
	subscriptionService := services.NewSubscriptionService(subscriptionRepo)
	dashboardService := services.NewDashboardService(invoiceRepo)

	healthChecker := health.NewHealthChecker(pool)

	authHandler := handlers.NewAuthHandler(accountService)
	clientHandler := handlers.NewClientHandler(clientService)
	invoiceHandler := handlers.NewInvoiceHandler(ledgerService)
	paymentHandler := handlers.NewPaymentHandler(ledgerService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, accountRepo)

	router := h.NewRouter(
		authHandler,
		clientHandler,
		invoiceHandler,
		paymentHandler,
		subscriptionHandler,
		dashboardHandler,
		healthHandler,
		authMiddleware,
	)

	// Stats and alerts on a separate port, away from the public API.
	monitoringServer := monitoring.NewMonitoringServer(pool, cfg.Server.MonitoringPort)
	go monitoringServer.Start()

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(
		middleware.MetricsMiddleware(
			middleware.RequestLogging(
				corsMiddleware(router))))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("[Main] Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("[Main] Server failed: %v", err)
	}
}
