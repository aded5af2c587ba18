package container

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"crowdgov/internal/config"
	"crowdgov/internal/domain"
	"crowdgov/internal/engine"
	"crowdgov/internal/events"
	"crowdgov/internal/ledger"
	"crowdgov/internal/repository"
	"crowdgov/internal/service"
	"crowdgov/internal/service/auth"
	"crowdgov/pkg/database"
	"crowdgov/pkg/logger"
	"crowdgov/pkg/redis"
)

const journalBuffer = 256

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	RunID        string
	Logger       *logger.Logger
	RedisClient  *redis.Client
	DB           *database.PostgresDB
	Ledger       ledger.Ledger
	Engine       *engine.Engine
	EventLog     *events.Log
	Bus          *events.Bus
	Repositories *repository.Repositories
	Services     *service.Services
}

// New creates a new dependency injection container. Redis and Postgres are optional:
// without Redis the ledger and idempotency keys live in memory, without Postgres
// there is no durable journal.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config:       cfg,
		RunID:        uuid.NewString(),
		Logger:       log,
		Repositories: &repository.Repositories{},
	}

	// Initialize Redis client if Redis URL is configured
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Named("redis").Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, using in-memory ledger")
		} else {
			c.RedisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, using in-memory ledger")
	}

	admin := domain.Principal(cfg.AdminPrincipal)
	if c.RedisClient != nil {
		c.Ledger = ledger.NewRedis(c.RedisClient, admin, cfg.ExchangeRate)
	} else {
		c.Ledger = ledger.NewMemory(admin, cfg.ExchangeRate)
	}

	c.EventLog = events.NewLog(cfg.EventLogSize)
	c.Bus = events.NewBus(log)

	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = c.Close(ctx)
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(ctx, db.Pool); err != nil {
			db.Close()
			_ = c.Close(ctx)
			return nil, err
		}
		c.DB = db
		journal := repository.NewEventRepository(db.Pool, c.RunID)
		c.Repositories.Events = journal
		c.Bus.Subscribe("journal", journalBuffer, journal.Handler())
		log.WithField("run_id", c.RunID).Info("Event journal enabled")
	}

	e, err := engine.New(admin, domain.Principal(cfg.EscrowPrincipal), c.Ledger, engine.Options{
		ClaimPolicy:       engine.ClaimPolicy(cfg.ClaimPolicy),
		ApprovalThreshold: cfg.ApprovalThreshold,
		MaxDuration:       cfg.MaxCampaignWindow,
		Publisher:         events.Tee{c.EventLog, c.Bus},
		Logger:            log,
	})
	if err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	c.Engine = e

	c.Services = &service.Services{
		Auth:        auth.NewService(cfg.JWTSecret, log),
		Idempotency: service.NewRedisIdempotency(c.RedisClient, cfg.IdempotencyTTL),
	}
	return c, nil
}

// Close drains the event bus and releases connections
func (c *Container) Close(ctx context.Context) error {
	var firstErr error
	if c.Bus != nil {
		if err := c.Bus.Close(ctx); err != nil {
			firstErr = fmt.Errorf("event bus close: %w", err)
		}
		c.Bus = nil
	}
	if c.DB != nil {
		c.DB.Close()
		c.DB = nil
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("redis close: %w", err)
		}
		c.RedisClient = nil
	}
	return firstErr
}

// GetAuthService returns the auth service
func (c *Container) GetAuthService() service.AuthService {
	return c.Services.Auth
}

// GetIdempotencyService returns the idempotency service
func (c *Container) GetIdempotencyService() service.IdempotencyService {
	return c.Services.Idempotency
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// HasJournal returns true if events are persisted to Postgres
func (c *Container) HasJournal() bool {
	return c.Repositories.Events != nil
}
