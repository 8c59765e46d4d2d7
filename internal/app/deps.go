package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"paravec/internal/cache"
	"paravec/internal/config"
	"paravec/internal/logger"
	"paravec/internal/modelio"
	"paravec/internal/paravec"
	"paravec/internal/queue"
	"paravec/internal/store"
)

// Deps bundles common runtime dependencies for services. Store and Queue are
// nil when their provider is "none".
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Model  *paravec.Model
	Store  store.Store
	Queue  queue.Queue
	Cache  cache.Cache
}

// Build loads env, config, the model and shared components.
func Build() (Deps, error) {
	if err := LoadEnv(); err != nil {
		return Deps{}, err
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	model, _, err := modelio.Open(cfg.ModelPath, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to load model: %w", err)
	}
	st, err := buildStore(cfg, log, model.Dimensionality())
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return Deps{
		Config: cfg,
		Log:    log,
		Model:  model,
		Store:  st,
		Queue:  q,
		Cache:  c,
	}, nil
}

// LoadEnv reads .env when present.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func buildStore(cfg config.Config, log *slog.Logger, dim int) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL, dim)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store", "dimensions", dim)
		return db, nil
	case "none":
		log.Warn("document store disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: postgres, none)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	case "none":
		log.Warn("task queue disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: nats, none)", cfg.QueueProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache(), nil
		}
		log.Info("using Redis cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return c, nil
	case "memory":
		log.Info("using in-memory cache", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
		return cache.NewLRUCache(cfg.CacheSize, cfg.CacheTTL), nil
	case "none", "":
		return cache.NewNoOpCache(), nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: redis, memory, none)", cfg.CacheProvider)
	}
}
