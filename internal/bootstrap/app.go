package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"resume-feedback/internal/feedback"
	"resume-feedback/internal/feedback/openai"
	"resume-feedback/internal/instructions"
	"resume-feedback/internal/pipeline"
	"resume-feedback/internal/rasterize"
	"resume-feedback/internal/resumes"
	"resume-feedback/internal/services/health"
	"resume-feedback/internal/shared/auth"
	"resume-feedback/internal/shared/config"
	"resume-feedback/internal/shared/server"
	"resume-feedback/internal/shared/storage/db"
	"resume-feedback/internal/shared/storage/kv"
	"resume-feedback/internal/shared/storage/kv/memory"
	pgkv "resume-feedback/internal/shared/storage/kv/pg"
	rediskv "resume-feedback/internal/shared/storage/kv/redis"
	"resume-feedback/internal/shared/storage/object"
	localstore "resume-feedback/internal/shared/storage/object/local"
	s3store "resume-feedback/internal/shared/storage/object/s3"
	"resume-feedback/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Redis    *goredis.Client
	Blobs    object.Store
	Records  kv.Store
	Feedback pipeline.FeedbackService
	Signer   *auth.Signer
	// Pipeline is the controller template; it carries no Auth gate or Session.
	Pipeline pipeline.Controller
	Resumes  *resumes.Service
}

// Build prepares dependencies and the HTTP router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.RecordStoreType) == "" {
		cfg.RecordStoreType = "memory"
	}
	if err := cfg.Validate(); err != nil {
		if !cfg.IsDevLike() {
			return nil, err
		}
		telemetry.Warn("bootstrap.config_incomplete", map[string]any{"error": err.Error()})
	}

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Signer: signer}

	if app.Blobs, err = buildBlobs(ctx, cfg); err != nil {
		return nil, err
	}
	if err := app.buildRecords(ctx); err != nil {
		return nil, err
	}
	if app.Feedback, err = buildFeedback(cfg, app.Blobs); err != nil {
		app.Close()
		return nil, err
	}

	app.Pipeline = pipeline.Controller{
		Blobs:        app.Blobs,
		Rasterizer:   rasterize.New(cfg.RasterDPI),
		Records:      app.Records,
		Feedback:     app.Feedback,
		Instructions: instructions.Build,
	}
	if cfg.SchemaStrict {
		validator, err := instructions.NewSchemaValidator()
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Pipeline.Validator = validator
	}

	template := app.Pipeline
	template.Auth = auth.ContextGate{}
	app.Resumes = resumes.NewService(template, app.Records)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:         cfg,
		Signer:         signer,
		ResumesHandler: resumes.NewHandler(app.Resumes),
		Health:         health.NewService(app.Records),
	})

	return app, nil
}

// Controller returns a standalone controller with its own session, guarded by gate.
func (a *App) Controller(gate pipeline.AuthGate) *pipeline.Controller {
	ctrl := a.Pipeline
	ctrl.Auth = gate
	ctrl.Session = pipeline.NewSession()
	return &ctrl
}

// Close releases connections held by the app.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	return errors.Join(errs...)
}

func buildBlobs(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			if cfg.IsDevLike() {
				telemetry.Warn("bootstrap.s3_unavailable", map[string]any{"error": err.Error(), "fallback": "local"})
				return localstore.New(cfg.LocalStoreDir), nil
			}
			return nil, err
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildRecords(ctx context.Context) error {
	cfg := a.Config
	switch cfg.RecordStoreType {
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err == nil {
			if err = db.RunMigrations(ctx, sqlDB); err != nil {
				sqlDB.Close()
			}
		}
		if err != nil {
			return a.fallbackRecords("postgres", err)
		}
		a.DB = sqlDB
		a.Records = pgkv.New(sqlDB)
	case "redis":
		store, client, err := rediskv.Connect(ctx, rediskv.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return a.fallbackRecords("redis", err)
		}
		a.Redis = client
		a.Records = store
	default:
		a.Records = memory.New()
	}
	return nil
}

func (a *App) fallbackRecords(backend string, err error) error {
	if !a.Config.IsDevLike() {
		return fmt.Errorf("%s record store: %w", backend, err)
	}
	telemetry.Warn("bootstrap.record_store_unavailable", map[string]any{
		"backend":  backend,
		"error":    err.Error(),
		"fallback": "memory",
	})
	a.Records = memory.New()
	return nil
}

func buildFeedback(cfg config.Config, blobs object.Store) (pipeline.FeedbackService, error) {
	var svc pipeline.FeedbackService
	switch cfg.LLMProvider {
	case "openai":
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.OpenAITimeout, blobs)
		if err != nil {
			if !cfg.IsDevLike() {
				return nil, err
			}
			telemetry.Warn("bootstrap.feedback_unavailable", map[string]any{"error": err.Error()})
			svc = feedback.Placeholder{}
		} else {
			svc = client
		}
	default:
		svc = feedback.Placeholder{}
	}
	return feedback.WithRetry(svc, cfg.FeedbackRetries, feedback.DefaultBaseDelay), nil
}
