package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"call-analytics-backend/internal/analyses"
	"call-analytics-backend/internal/calls"
	"call-analytics-backend/internal/executor"
	"call-analytics-backend/internal/llm"
	ollamallm "call-analytics-backend/internal/llm/ollama"
	openaillm "call-analytics-backend/internal/llm/openai"
	"call-analytics-backend/internal/queue"
	"call-analytics-backend/internal/results"
	"call-analytics-backend/internal/shared/config"
	"call-analytics-backend/internal/shared/server"
	"call-analytics-backend/internal/shared/storage/db"
	"call-analytics-backend/internal/shared/storage/object"
	localstore "call-analytics-backend/internal/shared/storage/object/local"
	s3store "call-analytics-backend/internal/shared/storage/object/s3"
	"call-analytics-backend/internal/shared/telemetry"
	"call-analytics-backend/internal/templates"
	"call-analytics-backend/internal/transcription/diarize"
	"call-analytics-backend/internal/transcription/whisper"
	"call-analytics-backend/internal/transcripts"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOllamaModel = "llama3.1"
)

// App holds shared dependencies for the API and worker processes.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	LLM    llm.Client
	Engine transcripts.Engine

	CallsRepo       calls.Repo
	TranscriptsRepo transcripts.Repo
	TemplatesRepo   templates.Repo
	ResultsRepo     results.Repo
	AnalysesRepo    analyses.Repo

	Calls       *calls.Service
	Transcripts *transcripts.Manager
	Templates   *templates.Service
	Executor    *executor.Executor
	Analyses    *analyses.Service
	Reconciler  *analyses.Reconciler
}

// Build wires repositories, engines and services. Migrations and seeding are left to the caller.
func Build(ctx context.Context, cfg config.Config, role db.Role) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg, role)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}
	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		LLM:    llmClient,
		Engine: engine,
	}
	buildRepos(app)
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		CallsHandler:      calls.NewHandler(app.Calls, cfg.MaxUploadBytes),
		TranscriptHandler: transcripts.NewHandler(app.Transcripts),
		TemplatesHandler:  templates.NewHandler(app.Templates),
		AnalysesHandler:   analyses.NewHandler(app.Analyses),
		DB:                sqlDB,
	})
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() {
	if a != nil && a.DB != nil {
		_ = a.DB.Close()
	}
}

// Migrate applies schema migrations when a database is configured.
func (a *App) Migrate(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	version, err := db.RunMigrations(ctx, a.DB)
	if err != nil {
		return err
	}
	telemetry.Info("bootstrap.migrated", map[string]any{"schema_version": version})
	return nil
}

// SeedTemplates inserts missing system templates.
func (a *App) SeedTemplates(ctx context.Context) error {
	seeds, err := templates.LoadSeeds(a.Config.TemplatesFile)
	if err != nil {
		return err
	}
	_, err = a.Templates.SeedSystem(ctx, seeds)
	return err
}

func buildDB(ctx context.Context, cfg config.Config, role db.Role) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	callSlots := cfg.AnalysisConcurrency
	if role == db.RoleWorker {
		callSlots *= cfg.WorkerConcurrency
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.PoolOptions(role, callSlots)))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "openai":
		client, err = openaillm.NewClient(cfg.OpenAIAPIKey, modelOr(cfg.LLMModel, defaultOpenAIModel), cfg.OpenAIBaseURL, cfg.LLMTimeout)
	case "ollama":
		client, err = ollamallm.NewClient(cfg.OllamaBaseURL, modelOr(cfg.LLMModel, defaultOllamaModel), cfg.LLMTimeout)
	default:
		return llm.Disabled{Reason: "LLM_PROVIDER=" + cfg.LLMProvider}, nil
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.llm_disabled", map[string]any{"provider": cfg.LLMProvider, "error": err.Error()})
			return llm.Disabled{Reason: err.Error()}, nil
		}
		return nil, fmt.Errorf("llm provider %s: %w", cfg.LLMProvider, err)
	}
	return client, nil
}

func buildEngine(cfg config.Config) (transcripts.Engine, error) {
	var (
		engine transcripts.Engine
		err    error
	)
	switch cfg.TranscribeProvider {
	case "whisper":
		engine, err = whisper.New(cfg.OpenAIAPIKey, cfg.TranscribeModel, cfg.TranscribeLanguage, cfg.OpenAIBaseURL, cfg.TranscribeTimeout)
	case "diarize":
		engine, err = diarize.New(cfg.DiarizeBaseURL, cfg.DiarizeAPIKey, cfg.TranscribeLanguage)
	default:
		return transcripts.NoopEngine{}, nil
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.transcription_disabled", map[string]any{"provider": cfg.TranscribeProvider, "error": err.Error()})
			return transcripts.NoopEngine{}, nil
		}
		return nil, fmt.Errorf("transcription provider %s: %w", cfg.TranscribeProvider, err)
	}
	return engine, nil
}

func buildRepos(app *App) {
	if app.DB != nil {
		app.CallsRepo = &calls.PGRepo{DB: app.DB}
		app.TranscriptsRepo = &transcripts.PGRepo{DB: app.DB}
		app.TemplatesRepo = &templates.PGRepo{DB: app.DB}
		app.ResultsRepo = &results.PGRepo{DB: app.DB}
		app.AnalysesRepo = &analyses.PGRepo{DB: app.DB}
		return
	}
	app.CallsRepo = calls.NewMemoryRepo()
	app.TranscriptsRepo = transcripts.NewMemoryRepo()
	app.TemplatesRepo = templates.NewMemoryRepo()
	app.ResultsRepo = results.NewMemoryRepo()
	app.AnalysesRepo = analyses.NewMemoryRepo()
}

func buildServices(app *App) {
	cfg := app.Config

	var roles transcripts.RoleAssigner
	if cfg.RoleAssignmentEnabled {
		roles = &transcripts.LLMRoleAssigner{LLM: app.LLM, Timeout: cfg.LLMTimeout}
	}
	app.Transcripts = &transcripts.Manager{
		Calls:   app.CallsRepo,
		Repo:    app.TranscriptsRepo,
		Engine:  app.Engine,
		Store:   app.Store,
		Roles:   roles,
		Timeout: cfg.TranscribeTimeout,
	}
	app.Calls = &calls.Service{Repo: app.CallsRepo, Store: app.Store, Transcripts: app.Transcripts}
	app.Templates = &templates.Service{Repo: app.TemplatesRepo}
	app.Executor = &executor.Executor{LLM: app.LLM, Timeout: cfg.LLMTimeout}
	app.Analyses = &analyses.Service{
		Repo:              app.AnalysesRepo,
		Results:           app.ResultsRepo,
		Calls:             app.CallsRepo,
		Templates:         app.TemplatesRepo,
		Transcripts:       app.Transcripts,
		Executor:          app.Executor,
		Queue:             app.Queue,
		Concurrency:       cfg.AnalysisConcurrency,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StaleAfter:        cfg.StaleAfter,
		PendingStaleAfter: cfg.PendingStaleAfter,
	}
	app.Reconciler = &analyses.Reconciler{
		Repo:              app.AnalysesRepo,
		StaleAfter:        cfg.StaleAfter,
		PendingStaleAfter: cfg.PendingStaleAfter,
		Interval:          cfg.ReconcileInterval,
		Active:            app.Analyses.IsActive,
	}
}

func modelOr(model, fallback string) string {
	if strings.TrimSpace(model) == "" {
		return fallback
	}
	return strings.TrimSpace(model)
}
