package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	catalogDomain "github.com/greenbasket/greenbasket/internal/catalog/domain"
	catalogPersistence "github.com/greenbasket/greenbasket/internal/catalog/infrastructure/persistence"
	identityDomain "github.com/greenbasket/greenbasket/internal/identity/domain"
	identityPersistence "github.com/greenbasket/greenbasket/internal/identity/infrastructure/persistence"
	orderCommands "github.com/greenbasket/greenbasket/internal/ordering/application/commands"
	orderQueries "github.com/greenbasket/greenbasket/internal/ordering/application/queries"
	orderingDomain "github.com/greenbasket/greenbasket/internal/ordering/domain"
	orderingPersistence "github.com/greenbasket/greenbasket/internal/ordering/infrastructure/persistence"
	sharedApplication "github.com/greenbasket/greenbasket/internal/shared/application"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/eventbus"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/eventstore"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/idempotency"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/migrations"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/greenbasket/greenbasket/internal/shared/infrastructure/persistence"
	subCommands "github.com/greenbasket/greenbasket/internal/subscriptions/application/commands"
	subQueries "github.com/greenbasket/greenbasket/internal/subscriptions/application/queries"
	subWorkers "github.com/greenbasket/greenbasket/internal/subscriptions/application/workers"
	subscriptionsDomain "github.com/greenbasket/greenbasket/internal/subscriptions/domain"
	subscriptionsPersistence "github.com/greenbasket/greenbasket/internal/subscriptions/infrastructure/persistence"
	"github.com/greenbasket/greenbasket/pkg/config"
	"github.com/greenbasket/greenbasket/pkg/observability"
)

// Container holds all application dependencies, wired explicitly at
// startup. Nothing here is a global: every handler receives its
// collaborators through its constructor.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DB *pgxpool.Pool

	// Redis
	RedisClient *redis.Client

	// Event store
	EventStore eventstore.Store

	// Repositories
	UserRepo         identityDomain.Repository
	ProduceRepo      catalogDomain.Repository
	OrderRepo        orderingDomain.Repository
	SubscriptionRepo subscriptionsDomain.Repository
	OutboxRepo       outbox.Repository

	// Idempotency
	IdempotencyStore idempotency.Store

	// Publishers
	EventPublisher    eventbus.Publisher
	InProcessEventBus *eventbus.InProcessEventBus

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Order command handlers
	PlaceOrderHandler    *orderCommands.PlaceOrderHandler
	ConfirmOrderHandler  *orderCommands.ConfirmOrderHandler
	CancelOrderHandler   *orderCommands.CancelOrderHandler
	AssignRiderHandler   *orderCommands.AssignRiderHandler
	StartDeliveryHandler *orderCommands.StartDeliveryHandler
	MarkDeliveredHandler *orderCommands.MarkDeliveredHandler

	// Order query handlers
	ListOrdersHandler *orderQueries.ListOrdersHandler
	GetOrderHandler   *orderQueries.GetOrderHandler

	// Subscription command handlers
	CreateSubscriptionHandler *subCommands.CreateSubscriptionHandler
	PauseSubscriptionHandler  *subCommands.PauseSubscriptionHandler
	ResumeSubscriptionHandler *subCommands.ResumeSubscriptionHandler
	CancelSubscriptionHandler *subCommands.CancelSubscriptionHandler
	ModifySubscriptionHandler *subCommands.ModifySubscriptionHandler
	ProcessRenewalHandler     *subCommands.ProcessRenewalHandler
	GenerateOrderHandler      *subCommands.GenerateOrderHandler

	// Subscription query handlers
	ListSubscriptionsHandler *subQueries.ListSubscriptionsHandler
	GetSubscriptionHandler   *subQueries.GetSubscriptionHandler

	// Metrics
	Metrics *observability.InMemoryMetrics

	// Background workers
	OutboxProcessor *outbox.Processor
	RenewalWorker   *subWorkers.RenewalWorker

	sqliteStore *eventstore.SQLiteStore
}

// NewContainer creates and wires all dependencies. Local mode runs against
// an embedded SQLite event store with no external services; otherwise
// PostgreSQL, Redis and RabbitMQ are used.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg.LocalMode {
		return NewLocalContainer(ctx, cfg, logger)
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	c.DB = pool
	logger.Info("connected to database")

	if err := migrations.ApplyPostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Redis backs the idempotency store. In development a missing Redis
	// falls back to in-memory claims, which only protect a single process.
	if store, client, err := connectRedis(ctx, cfg); err != nil {
		if !cfg.IsDevelopment() {
			pool.Close()
			return nil, err
		}
		logger.Warn("Redis not available, idempotency claims are process-local", "error", err)
		c.IdempotencyStore = idempotency.NewMemoryStore()
	} else {
		c.RedisClient = client
		c.IdempotencyStore = store
		logger.Info("connected to Redis")
	}

	c.EventStore = eventstore.NewPostgresStore(pool)
	c.UserRepo = identityPersistence.NewPostgresUserRepository(pool)
	c.ProduceRepo = catalogPersistence.NewBreakerRepository(
		catalogPersistence.NewPostgresProduceRepository(pool), logger)
	c.OrderRepo = orderingPersistence.NewEventSourcedOrderRepository(c.EventStore, pool)
	c.SubscriptionRepo = subscriptionsPersistence.NewEventSourcedSubscriptionRepository(c.EventStore, pool)
	c.OutboxRepo = outbox.NewPostgresRepository(pool)
	c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)

	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		// Fall back to the in-process bus in development.
		if cfg.IsDevelopment() {
			logger.Warn("RabbitMQ not available, using in-process event bus")
			c.InProcessEventBus = eventbus.NewInProcessEventBus(logger)
			c.EventPublisher = c.InProcessEventBus
		} else {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
	} else {
		c.EventPublisher = publisher
	}

	c.wireHandlers(logger)
	return c, nil
}

// NewLocalContainer creates a container for local mode: SQLite event store,
// in-memory outbox, in-process event bus, and a seeded demo user and
// catalog. No PostgreSQL, Redis or RabbitMQ required.
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	store, err := eventstore.OpenSQLiteStore(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite event store: %w", err)
	}
	c.sqliteStore = store
	c.EventStore = store

	c.UserRepo = identityPersistence.NewMemoryUserRepository(LocalUser())
	c.ProduceRepo = catalogPersistence.NewMemoryProduceRepository(LocalCatalog()...)
	c.OrderRepo = orderingPersistence.NewEventSourcedOrderRepository(store, nil)
	c.SubscriptionRepo = subscriptionsPersistence.NewEventSourcedSubscriptionRepository(store, nil)
	c.OutboxRepo = outbox.NewMemoryRepository()
	c.IdempotencyStore = idempotency.NewMemoryStore()
	c.UnitOfWork = sharedPersistence.NewPassthroughUnitOfWork()

	c.InProcessEventBus = eventbus.NewInProcessEventBus(logger)
	c.EventPublisher = c.InProcessEventBus

	c.wireHandlers(logger)

	logger.Info("local mode container initialized",
		"database", cfg.SQLitePath,
		"user_id", LocalUserID,
	)
	return c, nil
}

// wireHandlers builds command handlers, query handlers and workers on top
// of the already-selected stores.
func (c *Container) wireHandlers(logger *slog.Logger) {
	cfg := c.Config
	c.Metrics = observability.NewInMemoryMetrics()

	c.PlaceOrderHandler = orderCommands.NewPlaceOrderHandler(
		c.UserRepo, c.ProduceRepo, c.OrderRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.ConfirmOrderHandler = orderCommands.NewConfirmOrderHandler(c.OrderRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.CancelOrderHandler = orderCommands.NewCancelOrderHandler(c.OrderRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.AssignRiderHandler = orderCommands.NewAssignRiderHandler(c.OrderRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.StartDeliveryHandler = orderCommands.NewStartDeliveryHandler(c.OrderRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.MarkDeliveredHandler = orderCommands.NewMarkDeliveredHandler(c.OrderRepo, c.UnitOfWork, c.OutboxRepo, logger)

	c.ListOrdersHandler = orderQueries.NewListOrdersHandler(c.OrderRepo)
	c.GetOrderHandler = orderQueries.NewGetOrderHandler(c.OrderRepo)

	c.CreateSubscriptionHandler = subCommands.NewCreateSubscriptionHandler(
		c.UserRepo, c.SubscriptionRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.PauseSubscriptionHandler = subCommands.NewPauseSubscriptionHandler(c.SubscriptionRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.ResumeSubscriptionHandler = subCommands.NewResumeSubscriptionHandler(c.SubscriptionRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.CancelSubscriptionHandler = subCommands.NewCancelSubscriptionHandler(c.SubscriptionRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.ModifySubscriptionHandler = subCommands.NewModifySubscriptionHandler(c.SubscriptionRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.ProcessRenewalHandler = subCommands.NewProcessRenewalHandler(c.SubscriptionRepo, c.UnitOfWork, c.OutboxRepo, logger)
	c.GenerateOrderHandler = subCommands.NewGenerateOrderHandler(
		c.SubscriptionRepo, c.OrderRepo, c.ProduceRepo, c.UnitOfWork, c.OutboxRepo, c.IdempotencyStore, logger)

	c.ListSubscriptionsHandler = subQueries.NewListSubscriptionsHandler(c.SubscriptionRepo)
	c.GetSubscriptionHandler = subQueries.NewGetSubscriptionHandler(c.SubscriptionRepo)

	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, outbox.ProcessorConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxRetries:   cfg.OutboxMaxRetries,
	}, logger, c.Metrics)

	c.RenewalWorker = subWorkers.NewRenewalWorker(
		c.SubscriptionRepo, c.GenerateOrderHandler, c.ProcessRenewalHandler,
		subWorkers.RenewalWorkerConfig{
			Interval:  cfg.RenewalInterval,
			BatchSize: cfg.RenewalBatchSize,
		}, logger, c.Metrics)
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}

	if c.RenewalWorker != nil {
		c.RenewalWorker.Stop()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("PostgreSQL connection closed")
	}

	if c.sqliteStore != nil {
		if err := c.sqliteStore.Close(); err != nil {
			c.Logger.Warn("error closing SQLite event store", "error", err)
		}
	}
}

func connectRedis(ctx context.Context, cfg *config.Config) (idempotency.Store, *redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return idempotency.NewRedisStore(client), client, nil
}

// Fixed identities seeded into local-mode containers.
var (
	// LocalUserID is the id of the seeded local-mode user.
	LocalUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	// LocalAddressID is the id of the seeded local-mode delivery address.
	LocalAddressID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// LocalUser returns the user seeded into local-mode containers.
func LocalUser() *identityDomain.User {
	return identityDomain.RehydrateUser(
		LocalUserID,
		"local@greenbasket.local",
		"Local User",
		[]identityDomain.Address{{
			ID:         LocalAddressID,
			Line1:      "1 Market Street",
			City:       "Localville",
			PostalCode: "00000",
		}},
	)
}

// LocalCatalog returns the demo produce seeded into local-mode containers.
func LocalCatalog() []*catalogDomain.ProduceItem {
	return []*catalogDomain.ProduceItem{
		localProduce("00000000-0000-0000-0000-000000000101", "Heirloom Tomatoes", 449, 40, sharedDomain.UnitKilogram),
		localProduce("00000000-0000-0000-0000-000000000102", "Rainbow Chard", 299, 25, sharedDomain.UnitBundle),
		localProduce("00000000-0000-0000-0000-000000000103", "Honeycrisp Apples", 99, 200, sharedDomain.UnitPiece),
	}
}

func localProduce(id, name string, priceCents int64, available float64, unit sharedDomain.Unit) *catalogDomain.ProduceItem {
	price, err := sharedDomain.NewMoney(priceCents, "EUR")
	if err != nil {
		panic(err)
	}
	qty, err := sharedDomain.NewQuantity(available, unit)
	if err != nil {
		panic(err)
	}
	return catalogDomain.RehydrateProduceItem(uuid.MustParse(id), name, price, qty)
}
