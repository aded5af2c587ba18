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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"crowdgov/internal/config"
	"crowdgov/internal/container"
	"crowdgov/internal/handler"
	"crowdgov/internal/middleware"
	"crowdgov/pkg/logger"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.WithFields(map[string]interface{}{
		"port":         cfg.Port,
		"log_level":    cfg.LogLevel,
		"environment":  cfg.Environment,
		"claim_policy": cfg.ClaimPolicy,
		"version":      version,
	}).Info("Starting crowdgov server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(c),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Initiating graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
		if err := c.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()
	authService := c.GetAuthService()

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = cfg.AllowedOrigins
	}

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	checks := map[string]handler.Checker{}
	if c.HasRedis() {
		checks["redis"] = c.GetRedisClient()
	}
	if c.DB != nil {
		checks["postgres"] = c.DB
	}

	healthHandler := handler.NewHealthHandler(version, checks, log)
	campaignHandler := handler.NewCampaignHandler(c.Engine, c.Repositories.Events, log)
	voteHandler := handler.NewVoteHandler(c.Engine, log)
	membershipHandler := handler.NewMembershipHandler(c.Engine, log)
	ledgerHandler := handler.NewLedgerHandler(c.Ledger, c.Engine.Escrow(), log)
	eventHandler := handler.NewEventHandler(c.EventLog, log)

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		// Public reads
		r.Get("/campaigns", campaignHandler.List)
		r.Get("/campaigns/{id}", campaignHandler.Get)
		r.Get("/campaigns/{id}/pledges", campaignHandler.Pledges)
		r.Get("/campaigns/{id}/history", campaignHandler.History)
		r.Get("/campaigns/{id}/vote", voteHandler.Get)
		r.Get("/members", membershipHandler.Roster)
		r.Get("/members/{principal}", membershipHandler.Status)
		r.Get("/events", eventHandler.List)
		r.Get("/ledger/balances/{principal}", ledgerHandler.Balance)
		r.Get("/ledger/supply", ledgerHandler.Supply)

		// Mutations (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authService, log))
			r.Use(middleware.Idempotency(c.GetIdempotencyService(), log))

			r.Post("/campaigns", campaignHandler.Create)
			r.Post("/campaigns/{id}/cancel", campaignHandler.Cancel)
			r.Post("/campaigns/{id}/claim", campaignHandler.Claim)
			r.Post("/campaigns/{id}/pledge", campaignHandler.Pledge)
			r.Post("/campaigns/{id}/unpledge", campaignHandler.Unpledge)
			r.Post("/campaigns/{id}/refund", campaignHandler.Refund)
			r.Post("/campaigns/{id}/vote/start", voteHandler.Start)
			r.Post("/campaigns/{id}/vote", voteHandler.Cast)

			r.Post("/membership/request", membershipHandler.Request)
			r.Post("/membership/leave", membershipHandler.Leave)
			r.Post("/membership/approve", membershipHandler.Approve)
			r.Post("/membership/revoke", membershipHandler.Revoke)

			r.Post("/ledger/approve", ledgerHandler.Approve)
			r.Post("/ledger/exchange", ledgerHandler.Exchange)
			r.Post("/ledger/redeem", ledgerHandler.Redeem)
			r.Post("/ledger/mint", ledgerHandler.Mint)
			r.Post("/ledger/transfer", ledgerHandler.Transfer)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
