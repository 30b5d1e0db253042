// Package container - dependency injection / composition root.
//
// The container owns the lifecycle of every dependency: creation in
// dependency order, access through getters, and teardown in reverse order.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	httpadapter "github.com/coinvault/coinvault/internal/adapters/http"
	"github.com/coinvault/coinvault/internal/application/ports"
	"github.com/coinvault/coinvault/internal/application/usecases/transfer"
	walletuc "github.com/coinvault/coinvault/internal/application/usecases/wallet"
	"github.com/coinvault/coinvault/internal/config"
	"github.com/coinvault/coinvault/internal/infrastructure/cache"
	"github.com/coinvault/coinvault/internal/infrastructure/messaging"
	"github.com/coinvault/coinvault/internal/infrastructure/persistence/postgres"
	"github.com/coinvault/coinvault/internal/infrastructure/telemetry"
	"github.com/coinvault/coinvault/internal/pkg/logger"
)

// Container wires the application together.
type Container struct {
	config *config.Config
	logger *slog.Logger

	// Infrastructure
	pool        *pgxpool.Pool
	redisClient *redis.Client
	natsConn    *nats.Conn
	relay       *messaging.OutboxRelay
	tracingStop func(context.Context) error
	sweepStop   chan struct{}

	// Repositories
	assetRepo       *postgres.AssetTypeRepository
	walletRepo      *postgres.WalletRepository
	transactionRepo *postgres.TransactionRepository
	ledgerRepo      *postgres.LedgerEntryRepository
	idempotencyRepo *postgres.IdempotencyRepository
	outboxRepo      *postgres.OutboxRepository

	// Application
	idempotencyCache ports.IdempotencyCache
	engine           *transfer.Engine
	uow              *postgres.UnitOfWork

	topupUC   *walletuc.TopupUseCase
	bonusUC   *walletuc.BonusUseCase
	spendUC   *walletuc.SpendUseCase
	balanceUC *walletuc.GetBalanceUseCase
	historyUC *walletuc.GetHistoryUseCase

	// HTTP
	httpServer *httpadapter.Server
}

// New creates an uninitialized container.
func New(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// Initialize builds every dependency in order.
func (c *Container) Initialize(ctx context.Context) error {
	c.logger = c.initLogger()
	c.logger.Info("Initializing application container")

	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database connected")

	c.initRedis()
	c.initRepositories()

	if err := c.initTracing(ctx); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := c.initMessaging(ctx); err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	c.initUseCases()
	c.initHTTPServer()
	c.startIdempotencySweep()

	c.logger.Info("Container initialization complete")
	return nil
}

// startIdempotencySweep garbage-collects expired idempotency tombstones on
// an hourly cadence. Lookups already ignore expired rows; this keeps the
// table from growing without bound.
func (c *Container) startIdempotencySweep() {
	c.sweepStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-c.sweepStop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				removed, err := c.idempotencyRepo.DeleteExpired(ctx)
				cancel()
				if err != nil {
					c.logger.Warn("idempotency sweep failed", "error", err)
				} else if removed > 0 {
					c.logger.Info("idempotency sweep", "removed", removed)
				}
			}
		}
	}()
}

func (c *Container) initLogger() *slog.Logger {
	cfg := &logger.Config{
		Level:  c.config.Log.Level,
		Format: c.config.Log.Format,
	}
	logger.Setup(cfg)
	return slog.Default()
}

func (c *Container) initDatabase(ctx context.Context) error {
	pgCfg := postgres.DefaultConfig()
	pgCfg.Host = c.config.Database.Host
	pgCfg.Port = c.config.Database.Port
	pgCfg.User = c.config.Database.User
	pgCfg.Password = c.config.Database.Password
	pgCfg.Database = c.config.Database.Database
	pgCfg.SSLMode = c.config.Database.SSLMode
	pgCfg.MaxConns = c.config.Database.MaxConnections
	pgCfg.MinConns = c.config.Database.MinConnections
	pgCfg.MaxConnLifetime = c.config.Database.MaxConnLifetime
	pgCfg.MaxConnIdleTime = c.config.Database.MaxConnIdleTime

	pool, err := newPoolFromConfig(ctx, c.config.Database, pgCfg)
	if err != nil {
		return err
	}
	c.pool = pool
	return nil
}

// newPoolFromConfig prefers a full DSN url when configured.
func newPoolFromConfig(ctx context.Context, dbCfg config.DatabaseConfig, pgCfg postgres.Config) (*pgxpool.Pool, error) {
	if dbCfg.URL == "" {
		return postgres.NewConnectionPool(ctx, pgCfg)
	}

	poolConfig, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolConfig.MaxConns = pgCfg.MaxConns
	poolConfig.MinConns = pgCfg.MinConns
	poolConfig.MaxConnLifetime = pgCfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = pgCfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func (c *Container) initRedis() {
	if !c.config.Redis.Enabled {
		return
	}
	c.redisClient = redis.NewClient(&redis.Options{
		Addr:     c.config.Redis.Addr,
		Password: c.config.Redis.Password,
		DB:       c.config.Redis.DB,
	})
	c.logger.Info("Redis replay cache enabled", "addr", c.config.Redis.Addr)
}

func (c *Container) initRepositories() {
	c.assetRepo = postgres.NewAssetTypeRepository(c.pool)
	c.walletRepo = postgres.NewWalletRepository(c.pool)
	c.transactionRepo = postgres.NewTransactionRepository(c.pool)
	c.ledgerRepo = postgres.NewLedgerEntryRepository(c.pool)
	c.idempotencyRepo = postgres.NewIdempotencyRepository(c.pool)
	c.outboxRepo = postgres.NewOutboxRepository(c.pool)
	c.uow = postgres.NewUnitOfWork(c.pool)

	c.idempotencyCache = cache.NewReadThroughIdempotencyCache(c.idempotencyRepo, c.redisClient, c.logger)
}

func (c *Container) initTracing(ctx context.Context) error {
	stop, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     c.config.Telemetry.Enabled,
		Endpoint:    c.config.Telemetry.Endpoint,
		ServiceName: c.config.App.Name,
		Version:     c.config.App.Version,
		Environment: c.config.App.Environment,
		SampleRatio: c.config.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	c.tracingStop = stop
	return nil
}

func (c *Container) initMessaging(ctx context.Context) error {
	if !c.config.NATS.Enabled {
		return nil
	}

	conn, err := messaging.Connect(c.config.NATS.URL, c.config.App.Name)
	if err != nil {
		return err
	}
	c.natsConn = conn

	c.relay = messaging.NewOutboxRelay(conn, c.outboxRepo, messaging.RelayConfig{
		PollInterval: c.config.NATS.PollInterval,
		BatchSize:    c.config.NATS.BatchSize,
	}, c.logger)
	c.relay.Start(context.Background())

	c.logger.Info("NATS outbox relay started", "url", c.config.NATS.URL)
	return nil
}

func (c *Container) initUseCases() {
	c.engine = transfer.NewEngine(c.walletRepo, c.transactionRepo, c.ledgerRepo, c.logger)

	deps := &walletuc.Deps{
		Assets:       c.assetRepo,
		Wallets:      c.walletRepo,
		Transactions: c.transactionRepo,
		Idempotency:  c.idempotencyCache,
		Publisher:    c.outboxRepo,
		Engine:       c.engine,
		UoW:          c.uow,
		Logger:       c.logger,
	}

	c.topupUC = walletuc.NewTopupUseCase(deps)
	c.bonusUC = walletuc.NewBonusUseCase(deps)
	c.spendUC = walletuc.NewSpendUseCase(deps)
	c.balanceUC = walletuc.NewGetBalanceUseCase(deps)
	c.historyUC = walletuc.NewGetHistoryUseCase(deps)
}

func (c *Container) initHTTPServer() {
	router := httpadapter.NewRouter(&httpadapter.RouterConfig{
		Logger:         c.logger,
		Pool:           c.pool,
		ServiceName:    c.config.App.Name,
		Version:        c.config.App.Version,
		Environment:    c.config.App.Environment,
		Debug:          c.config.App.Debug,
		TracingEnabled: c.config.Telemetry.Enabled,
		AllowedOrigins: c.config.CORS.AllowedOrigins,
	}, &httpadapter.WalletEndpoints{
		Topup:   c.topupUC,
		Bonus:   c.bonusUC,
		Spend:   c.spendUC,
		Balance: c.balanceUC,
		History: c.historyUC,
	})

	serverCfg := httpadapter.DefaultServerConfig()
	serverCfg.Host = c.config.Server.Host
	serverCfg.Port = strconv.Itoa(c.config.Server.Port)
	serverCfg.ReadTimeout = c.config.Server.ReadTimeout
	serverCfg.WriteTimeout = c.config.Server.WriteTimeout
	serverCfg.IdleTimeout = c.config.Server.IdleTimeout
	serverCfg.ShutdownTimeout = c.config.Server.ShutdownTimeout
	serverCfg.Logger = c.logger

	c.httpServer = httpadapter.NewServer(serverCfg, router)
}

// Getters

// Logger returns the application logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// HTTPServer returns the HTTP server.
func (c *Container) HTTPServer() *httpadapter.Server {
	return c.httpServer
}

// Pool returns the database pool.
func (c *Container) Pool() *pgxpool.Pool {
	return c.pool
}

// Shutdown tears everything down in reverse dependency order.
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.sweepStop != nil {
		close(c.sweepStop)
	}
	if c.relay != nil {
		c.relay.Stop()
	}
	if c.natsConn != nil {
		c.natsConn.Close()
	}

	if c.tracingStop != nil {
		if err := c.tracingStop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.pool != nil {
		c.pool.Close()
	}

	return firstErr
}
