package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/documents"
	"skills-backend/internal/extract"
	extractremote "skills-backend/internal/extract/remote"
	"skills-backend/internal/llm"
	"skills-backend/internal/llm/openai"
	llmremote "skills-backend/internal/llm/remote"
	"skills-backend/internal/llm/vertex"
	"skills-backend/internal/pipeline"
	"skills-backend/internal/profiles"
	"skills-backend/internal/queue"
	"skills-backend/internal/shared/config"
	"skills-backend/internal/shared/retry"
	"skills-backend/internal/shared/server"
	"skills-backend/internal/shared/storage/db"
	"skills-backend/internal/shared/storage/kv"
	"skills-backend/internal/shared/storage/object"
	gcsstore "skills-backend/internal/shared/storage/object/gcs"
	localstore "skills-backend/internal/shared/storage/object/local"
	s3store "skills-backend/internal/shared/storage/object/s3"
	"skills-backend/internal/usage"
	usageremote "skills-backend/internal/usage/remote"
)

// App holds shared dependencies and the configured router.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.ObjectStore
	Events    queue.Client
	Documents *documents.Service
	Usage     *usage.Service
	Profiles  *profiles.Service
	Pipeline  *pipeline.Service

	closers []func() error
}

// Build prepares every collaborator from cfg and mounts the routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB.Close)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store
	app.closeIfCloser(store)

	if err := buildServices(ctx, app); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("bootstrap: close failed: %v", err)
		}
	}
	a.closers = nil
}

func (a *App) closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "gcs":
		return gcsstore.New(ctx, cfg.GCSBucket, cfg.GCSPrefix, cfg.GCSEndpoint)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	var docRepo documents.DocumentsRepo = documents.NewMemoryRepo()
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
	}
	app.Documents = &documents.Service{
		Store:           app.Store,
		Repo:            docRepo,
		StorageProvider: cfg.ObjectStoreType,
	}

	guard, err := buildBudget(ctx, app)
	if err != nil {
		return err
	}

	profileRepo, err := buildProfileRepo(ctx, app)
	if err != nil {
		return err
	}
	app.Profiles = &profiles.Service{Repo: profileRepo}

	extractor, err := buildExtractor(cfg)
	if err != nil {
		return err
	}
	categorizer, err := buildCategorizer(ctx, cfg)
	if err != nil {
		return err
	}
	app.closeIfCloser(categorizer)
	categorizer = llm.WithRetry(categorizer, retry.Policy{Attempts: cfg.CategorizeMaxAttempts})

	app.Events = queue.NoopClient{}
	if isDevLike(cfg.Env) {
		app.Events = queue.LogClient{}
	}
	if strings.TrimSpace(cfg.PipelineEventsQueue) != "" {
		sqsClient, err := queue.NewSQSClient(ctx, cfg.PipelineEventsQueue, cfg.AWSRegion)
		if err != nil {
			return err
		}
		app.Events = sqsClient
	}

	app.Pipeline = &pipeline.Service{
		Documents:    app.Documents,
		Extractor:    extractor,
		Categorizer:  categorizer,
		Budget:       guard,
		Skills:       app.Profiles,
		Events:       app.Events,
		Runs:         pipeline.NewRegistry(cfg.PipelineRunTTL, nil),
		Strategy:     pipeline.ReplaceStrategy(cfg.ReplaceStrategy),
		TickInterval: cfg.PipelineTickInterval,
	}

	deps := server.RouterDeps{
		Config:    cfg,
		Pipeline:  pipeline.NewHandler(app.Pipeline),
		Documents: documents.NewHandler(app.Documents),
		Profiles:  profiles.NewHandler(app.Profiles),
	}
	if app.Usage != nil {
		deps.Usage = usage.NewHandler(app.Usage)
	}
	app.Router = server.NewRouter(deps)
	return nil
}

// buildBudget returns the guard the pipeline uses. A configured quota service
// takes precedence over the local stores, and then app.Usage stays nil.
func buildBudget(ctx context.Context, app *App) (pipeline.BudgetGuard, error) {
	cfg := app.Config
	if strings.TrimSpace(cfg.UsageServiceURL) != "" {
		return usageremote.NewGuard(cfg.UsageServiceURL, cfg.HTTPTimeout)
	}

	defaults := usage.DefaultsWithLimit(cfg.TokenBudgetLimit)
	switch resolveBackend(cfg.UsageStore, app.DB) {
	case "redis":
		client, err := kv.Open(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		app.Usage = usage.NewStoreService(usage.NewRedisStore(client, defaults))
	case "postgres":
		if app.DB == nil {
			return nil, fmt.Errorf("USAGE_STORE=postgres requires DATABASE_URL")
		}
		app.Usage = usage.NewStoreService(usage.NewPGStore(app.DB, defaults))
	default:
		app.Usage = usage.NewService(defaults)
	}
	return app.Usage, nil
}

func buildProfileRepo(ctx context.Context, app *App) (profiles.Repo, error) {
	cfg := app.Config
	switch resolveBackend(cfg.ProfileStore, app.DB) {
	case "firestore":
		client, err := profiles.NewFirestoreClient(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		return &profiles.FirestoreRepo{Client: client}, nil
	case "postgres":
		if app.DB == nil {
			return nil, fmt.Errorf("PROFILE_STORE=postgres requires DATABASE_URL")
		}
		return &profiles.PGRepo{DB: app.DB}, nil
	default:
		return profiles.NewMemoryRepo(), nil
	}
}

func buildExtractor(cfg config.Config) (extract.Client, error) {
	var client extract.Client = extract.NewPDFExtractor()
	if strings.TrimSpace(cfg.ExtractServiceURL) != "" {
		remote, err := extractremote.NewClient(cfg.ExtractServiceURL, cfg.HTTPTimeout)
		if err != nil {
			return nil, err
		}
		client = remote
	}
	return extract.WithRetry(client, retry.Policy{Attempts: cfg.ExtractMaxAttempts}), nil
}

func buildCategorizer(ctx context.Context, cfg config.Config) (llm.Categorizer, error) {
	var (
		categorizer llm.Categorizer
		err         error
	)
	switch cfg.CategorizeProvider {
	case "openai":
		categorizer, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.HTTPTimeout)
	case "vertex":
		categorizer, err = vertex.NewClient(ctx, cfg.GCPProjectID, cfg.GCPRegion, cfg.LLMModel)
	default:
		if strings.TrimSpace(cfg.CategorizeServiceURL) == "" {
			log.Printf("bootstrap: CATEGORIZE_SERVICE_URL empty; categorization disabled")
			return llm.PlaceholderCategorizer{}, nil
		}
		categorizer, err = llmremote.NewClient(cfg.CategorizeServiceURL, cfg.HTTPTimeout)
	}
	if err != nil {
		return nil, err
	}
	return categorizer, nil
}

// resolveBackend maps an empty selector onto postgres when a database is
// connected and memory otherwise.
func resolveBackend(selected string, sqlDB *sql.DB) string {
	if selected != "" {
		return selected
	}
	if sqlDB != nil {
		return "postgres"
	}
	return "memory"
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
