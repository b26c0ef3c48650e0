package app

import (
	"context"
	"fmt"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	qdrantgo "github.com/qdrant/go-client/qdrant"
	"github.com/rulebook-ai/backend/config"
	"github.com/rulebook-ai/backend/handlers"
	"github.com/rulebook-ai/backend/identity"
	"github.com/rulebook-ai/backend/middleware"
	"github.com/rulebook-ai/backend/repositories"
	"github.com/rulebook-ai/backend/repositories/postgres"
	"github.com/rulebook-ai/backend/services/analytics"
	"github.com/rulebook-ai/backend/services/answer"
	"github.com/rulebook-ai/backend/services/authz"
	"github.com/rulebook-ai/backend/services/directory"
	"github.com/rulebook-ai/backend/services/ingest"
	"github.com/rulebook-ai/backend/services/providers"
	"github.com/rulebook-ai/backend/services/providers/cerebras"
	"github.com/rulebook-ai/backend/services/providers/cohere"
	"github.com/rulebook-ai/backend/services/retrieval"
	"github.com/rulebook-ai/backend/storage"
	minioStore "github.com/rulebook-ai/backend/storage/minio"
	"github.com/rulebook-ai/backend/vectorindex"
	qdrantStore "github.com/rulebook-ai/backend/vectorindex/qdrant"
	"go.uber.org/zap"
)

// shutdownDrainTimeout bounds how long Close waits for queued query log
// entries to flush.
const shutdownDrainTimeout = 10 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Organizations repositories.OrganizationRepository
	Users         repositories.UserRepository
	Memberships   repositories.MembershipRepository
	Documents     repositories.DocumentRepository
	QueryLogs     repositories.QueryLogRepository
	TxManager     repositories.TransactionManager

	// External stores and providers
	VectorIndex vectorindex.Index
	ObjectStore storage.ObjectStore
	Generator   providers.Generator
	Embedder    providers.Embedder

	// Services
	Authz     *authz.Service
	Directory *directory.Service
	Ingest    *ingest.Service
	Retrieval *retrieval.Service
	Answer    *answer.Service
	Analytics *analytics.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware

	// Handlers
	OrganizationHandler *handlers.OrganizationHandler
	DocumentHandler     *handlers.DocumentHandler
	AskHandler          *handlers.AskHandler
	AnalyticsHandler    *handlers.AnalyticsHandler
	HealthHandler       *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initProviders(ctx, cfg)

	if err := deps.initVectorIndex(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	if err := deps.initObjectStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}

	deps.initAuth(cfg)
	deps.initServices(cfg)
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection, factory and schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Organizations = repos.Organizations
	d.Users = repos.Users
	d.Memberships = repos.Memberships
	d.Documents = repos.Documents
	d.QueryLogs = repos.QueryLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initProviders initializes the generation and embedding providers
func (d *Dependencies) initProviders(ctx context.Context, cfg *config.Config) {
	d.Generator = cerebras.NewCerebrasAdapter(providers.ProviderConfig{
		APIKey:     cfg.Providers.Cerebras.APIKey,
		BaseURL:    cfg.Providers.Cerebras.BaseURL,
		Model:      cfg.Providers.Cerebras.Model,
		Timeout:    cfg.Providers.Cerebras.Timeout,
		MaxRetries: cfg.Providers.Cerebras.MaxRetries,
	})

	d.Embedder = cohere.NewCohereEmbedder(providers.ProviderConfig{
		APIKey:     cfg.Providers.Cohere.APIKey,
		BaseURL:    cfg.Providers.Cohere.BaseURL,
		Model:      cfg.Providers.Cohere.Model,
		Timeout:    cfg.Providers.Cohere.Timeout,
		MaxRetries: cfg.Providers.Cohere.MaxRetries,
	})

	// Startup proceeds either way; a provider outage at boot should not
	// keep the API down.
	if !d.Generator.IsAvailable(ctx) {
		d.Logger.Warn("generation provider unreachable at startup",
			zap.String("generator", d.Generator.Name()))
	}

	d.Logger.Info("providers initialized",
		zap.String("generator", d.Generator.Name()),
		zap.String("embedder", d.Embedder.Name()))
}

// initVectorIndex connects to Qdrant and ensures the collection exists
func (d *Dependencies) initVectorIndex(ctx context.Context, cfg *config.Config) error {
	client, err := qdrantgo.NewClient(&qdrantgo.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		return fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := qdrantStore.New(client, cfg.Qdrant.Collection, d.Logger)
	if err := store.EnsureCollection(ctx, uint64(d.Embedder.Dimensions())); err != nil {
		return err
	}

	d.VectorIndex = store
	d.Logger.Info("vector index initialized",
		zap.String("collection", cfg.Qdrant.Collection))
	return nil
}

// initObjectStore connects to MinIO and ensures the bucket exists
func (d *Dependencies) initObjectStore(ctx context.Context, cfg *config.Config) error {
	client, err := miniogo.New(cfg.Storage.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	store := minioStore.New(client, cfg.Storage.Bucket, d.Logger)
	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}

	d.ObjectStore = store
	d.Logger.Info("object store initialized",
		zap.String("bucket", cfg.Storage.Bucket))
	return nil
}

// initAuth wires the JWKS token verifier into the auth middleware
func (d *Dependencies) initAuth(cfg *config.Config) {
	verifier := identity.NewJWKSVerifier(identity.Config{
		Issuer:      cfg.Auth.Issuer,
		Audience:    cfg.Auth.Audience,
		JWKSURL:     cfg.Auth.JWKSURL,
		CacheTTL:    cfg.Auth.CacheTTL,
		HTTPTimeout: cfg.Auth.HTTPTimeout,
	})

	d.AuthMiddleware = middleware.NewAuthMiddleware(verifier, d.Users, d.Logger)
	d.Logger.Info("auth middleware initialized", zap.String("issuer", cfg.Auth.Issuer))
}

// initServices wires the domain services over the repositories and stores
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Authz = authz.NewService(d.Organizations, d.Memberships, d.Logger)

	d.Directory = directory.NewService(d.Organizations, d.Memberships, d.TxManager, d.Authz, d.Logger)

	chunker := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	d.Ingest = ingest.NewService(
		d.Documents, d.ObjectStore, d.VectorIndex, d.Embedder,
		ingest.NewPDFExtractor(), chunker, d.Authz, d.Logger,
	)

	d.Retrieval = retrieval.NewService(d.Embedder, d.VectorIndex, cfg.Ingest.TopK, d.Logger)

	d.Analytics = analytics.NewService(d.QueryLogs, d.Documents, d.Users, d.Authz, d.Logger, analytics.Config{
		BufferSize:  cfg.Analytics.BufferSize,
		WorkerCount: cfg.Analytics.WorkerCount,
	})

	d.Answer = answer.NewService(
		d.Retrieval, d.Generator, d.Analytics, d.Authz,
		cfg.Providers.Cerebras.Model, d.Logger,
	)

	d.Logger.Info("services initialized")
}

// initHandlers creates the HTTP handlers
func (d *Dependencies) initHandlers() {
	d.OrganizationHandler = handlers.NewOrganizationHandler(d.Directory, d.Logger)
	d.DocumentHandler = handlers.NewDocumentHandler(d.Ingest, d.Logger)
	d.AskHandler = handlers.NewAskHandler(d.Answer, d.Logger)
	d.AnalyticsHandler = handlers.NewAnalyticsHandler(d.Analytics, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, d.Analytics, d.Logger)
}

// Start launches background workers
func (d *Dependencies) Start() error {
	if err := d.Analytics.Start(); err != nil {
		return fmt.Errorf("failed to start analytics workers: %w", err)
	}
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain queued query log entries before the database goes away
	if d.Analytics != nil {
		if err := d.Analytics.Stop(shutdownDrainTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop analytics workers: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
