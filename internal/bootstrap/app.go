package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"bookreport-backend/internal/llm"
	"bookreport-backend/internal/llm/anthropic"
	"bookreport-backend/internal/llm/gemini"
	"bookreport-backend/internal/llm/openai"
	"bookreport-backend/internal/orders"
	"bookreport-backend/internal/queue"
	"bookreport-backend/internal/services/health"
	"bookreport-backend/internal/shared/cache"
	"bookreport-backend/internal/shared/config"
	"bookreport-backend/internal/shared/server"
	"bookreport-backend/internal/shared/server/middleware"
	"bookreport-backend/internal/shared/storage/db"
	"bookreport-backend/internal/shared/storage/object"
	localstore "bookreport-backend/internal/shared/storage/object/local"
	s3store "bookreport-backend/internal/shared/storage/object/s3"
	"bookreport-backend/internal/shared/telemetry"
)

const (
	defaultAWSRegion = "us-east-1"
	redisKeyPrefix   = "bookreport:"

	// ShutdownTimeout bounds graceful shutdown of servers and workers.
	ShutdownTimeout = 30 * time.Second
)

// App holds shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Redis         *redis.Client
	Store         object.ObjectStore
	Queue         queue.Client
	Views         *orders.ViewCache
	OrdersRepo    orders.Repo
	OrdersService *orders.Service
	OrdersHandler *orders.Handler
	Health        *health.Service

	closers []func() error
}

// Build prepares shared dependencies and the HTTP router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	app := &App{Config: cfg, Health: health.NewService()}

	if err := app.buildDB(ctx); err != nil {
		return nil, err
	}
	if err := app.buildCache(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildQueue(ctx); err != nil {
		app.Close()
		return nil, err
	}
	synth, err := buildSynthesizer(ctx, cfg.Synthesis)
	if err != nil {
		app.Close()
		return nil, err
	}

	if app.DB != nil {
		app.OrdersRepo = &orders.PGRepo{DB: app.DB}
	} else {
		app.OrdersRepo = orders.NewMemoryRepo()
	}
	app.OrdersService = &orders.Service{
		Repo:        app.OrdersRepo,
		Synthesizer: synth,
		Retry: llm.RetryPolicy{
			MaxAttempts: cfg.Synthesis.MaxAttempts,
			BaseDelay:   cfg.Synthesis.RetryBaseDelay,
		},
		Provider: cfg.Synthesis.Provider,
		Store:    app.Store,
		Queue:    app.Queue,
		Views:    app.Views,
	}
	app.OrdersHandler = orders.NewHandler(app.OrdersService)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:  cfg,
		Orders:  app.OrdersHandler,
		Health:  app.Health,
		Limiter: middleware.NewRateLimiter(nil),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"provider":     cfg.Synthesis.Provider,
		"database":     app.DB != nil,
		"object_store": cfg.ObjectStoreType,
		"queue":        cfg.Queue.Backend,
		"cache":        cfg.Cache.Backend,
	})
	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) buildDB(ctx context.Context) error {
	cfg := a.Config
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "DATABASE_URL empty"})
			return nil
		}
		return errors.New("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil
		}
		return err
	}
	a.DB = sqlDB
	a.closers = append(a.closers, sqlDB.Close)
	a.Health.Register("database", func(ctx context.Context) error {
		return db.Ping(ctx, sqlDB, 0)
	})
	return nil
}

func (a *App) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.Redis != nil {
		return a.Redis, nil
	}
	client, err := cache.NewRedisClient(ctx, cache.RedisOptions{
		Addr:     a.Config.Queue.RedisAddr,
		Password: a.Config.Queue.RedisPassword,
		DB:       a.Config.Queue.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	a.Redis = client
	a.closers = append(a.closers, client.Close)
	a.Health.Register("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return client, nil
}

func (a *App) buildCache(ctx context.Context) error {
	cfg := a.Config.Cache
	var c cache.Cache
	switch cfg.Backend {
	case config.CacheNone:
		return nil
	case config.CacheRedis:
		client, err := a.redisClient(ctx)
		if err != nil {
			return fmt.Errorf("view cache: %w", err)
		}
		c = cache.NewRedis(client, redisKeyPrefix)
	default:
		c = cache.NewMemory(cfg.Size, cfg.TTL)
	}
	a.Views = &orders.ViewCache{Cache: c, TTL: cfg.TTL}
	return nil
}

func (a *App) buildStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, s3store.Options{
			Region:   awsRegion(cfg.AWSRegion),
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
		})
		if err != nil {
			return fmt.Errorf("object store: %w", err)
		}
		a.Store = store
	default:
		a.Store = localstore.New(cfg.LocalStoreDir)
	}
	return nil
}

func (a *App) buildQueue(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Queue.Backend {
	case config.QueueSQS:
		api, err := queue.LoadSQSAPI(ctx, awsRegion(cfg.AWSRegion))
		if err != nil {
			return err
		}
		client, err := queue.NewSQSClient(api, cfg.Queue.SQSQueueURL)
		if err != nil {
			return err
		}
		a.Queue = client
	case config.QueueAsynq:
		client := queue.NewAsynqClient(RedisClientOpt(cfg.Queue))
		a.Queue = client
		a.closers = append(a.closers, client.Close)
	}
	return nil
}

// RedisClientOpt maps queue settings onto asynq's Redis options.
func RedisClientOpt(cfg config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

func buildSynthesizer(ctx context.Context, cfg config.SynthesisConfig) (llm.Synthesizer, error) {
	switch cfg.Provider {
	case config.ProviderStub:
		telemetry.Warn("bootstrap.stub_synthesizer", map[string]any{"provider": cfg.Provider})
		return llm.StubSynthesizer{}, nil
	case config.ProviderAnthropic:
		return anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case config.ProviderGemini:
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	default:
		return openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.OpenAIBaseURL,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	}
}

func awsRegion(region string) string {
	if strings.TrimSpace(region) == "" {
		return defaultAWSRegion
	}
	return region
}
