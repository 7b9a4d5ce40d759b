// Package app wires the store, cache, engine, limiter and router into one
// runnable unit shared by the server and the serverless entrypoint.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/adapters/cache/redis"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/adapters/handler"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/config"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/services"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ratelimit"
)

type App struct {
	Config  *config.Config
	Repo    *sqlite.SQLiteRepository
	Service *services.LinkService
	Limiter ports.RateLimiter
	Handler http.Handler

	rdb    *goredis.Client
	clicks *services.ClickRecorder
}

// New connects the store (and Redis when REDIS_URL is set) and builds the
// router. Callers own the result and must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	a := &App{Config: cfg, Repo: repo}

	opts := []services.Option{
		services.WithCodeLength(cfg.ShortCodeLength),
		services.WithMaxURLLength(cfg.MaxURLLength),
	}
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		a.rdb = rdb
		opts = append(opts, services.WithCache(redis.NewLinkCache(rdb), cfg.CacheTTL))
		log.Printf("resolution cache enabled (ttl %s)", cfg.CacheTTL)
	}

	a.clicks = services.NewClickRecorder(repo, cfg.ClickQueueSize, cfg.ClickWorkers)
	a.Service = services.NewLinkService(repo, a.clicks, opts...)
	a.Limiter = NewLimiter(cfg)
	a.Handler = handler.NewRouter(cfg, a.Service, a.Limiter, repo)
	return a, nil
}

// NewLimiter picks the limiter named by RATE_LIMIT_STRATEGY.
func NewLimiter(cfg *config.Config) ports.RateLimiter {
	if cfg.RateLimitStrategy == "token" {
		log.Printf("rate limit: token bucket rps=%.2f burst=%d", cfg.RateLimitPerSecond, cfg.RateLimitBurst)
		return ratelimit.NewTokenBucket(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}
	log.Printf("rate limit: fixed window max=%d window=%s", cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
	return ratelimit.NewFixedWindow(cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
}

// StartBackground runs the limiter janitor and the expiry sweeper until ctx
// is cancelled.
func (a *App) StartBackground(ctx context.Context) {
	ratelimit.StartJanitor(ctx, a.Limiter, a.Config.RateLimitCleanupPeriod)
	services.StartSweeper(ctx, a.Service, a.Config.PurgeInterval)
}

// Close drains pending clicks before the store goes away.
func (a *App) Close() {
	a.clicks.Close()
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			log.Printf("redis close: %v", err)
		}
	}
	if err := a.Repo.Close(); err != nil {
		log.Printf("database close: %v", err)
	}
}
