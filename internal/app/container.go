package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ltrc/socios-api-go/internal/api"
	"github.com/ltrc/socios-api-go/internal/config"
	"github.com/ltrc/socios-api-go/internal/service/attachments"
	"github.com/ltrc/socios-api-go/internal/service/database"
	"github.com/ltrc/socios-api-go/internal/service/ledger"
	"github.com/ltrc/socios-api-go/internal/service/members"
)

// Container bundles the assembled service graph. Stores are built first,
// then the lifecycle service, then the HTTP surface. Plain constructor
// composition, no registry.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Handler http.Handler

	Members *members.Service

	closers []func()
}

// Build assembles all infrastructure. On failure, everything opened so
// far is closed in reverse order.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	postgresSvc, err := database.NewPostgresService(database.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	closers = append(closers, func() {
		_ = postgresSvc.Close()
	})

	if err := postgresSvc.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	// Redis is optional; without it the member cache runs memory-only.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			logger.Warn("Redis unreachable, member cache runs memory-only", zap.Error(pingErr))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			closer := redisClient
			closers = append(closers, func() {
				_ = closer.Close()
			})
			logger.Info("Redis connected",
				zap.String("host", cfg.Redis.Host),
				zap.Int("port", cfg.Redis.Port),
			)
		}
	}

	memberRepo := members.NewRepository(postgresSvc, logger)
	memberCache := members.NewCache(memberRepo, redisClient, logger, members.CacheConfig{})
	blobStore := attachments.NewStore(postgresSvc, logger)
	ledgerClient := ledger.NewClient(cfg.Ledger.AppsScriptURL, logger)

	memberSvc := members.NewService(memberCache, blobStore, ledgerClient, cfg.Server.PublicBaseURL, logger)
	closers = append(closers, memberSvc.Close)

	handler := api.NewRouter(api.NewHandler(memberSvc, logger))

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Handler: handler,
		Members: memberSvc,
		closers: closers,
	}, nil
}

// Close tears the graph down in reverse build order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
