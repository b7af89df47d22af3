package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/voxcrm/server/internal/agent"
	"github.com/voxcrm/server/internal/agent/cache"
	"github.com/voxcrm/server/internal/agent/model"
	"github.com/voxcrm/server/internal/agent/prompts"
	"github.com/voxcrm/server/internal/agent/ratelimit"
	"github.com/voxcrm/server/internal/agent/session"
	"github.com/voxcrm/server/internal/agent/tools"
	"github.com/voxcrm/server/internal/api"
	"github.com/voxcrm/server/internal/core"
	"github.com/voxcrm/server/internal/crm"
	logx "github.com/voxcrm/server/pkg/logger"
	pkgredis "github.com/voxcrm/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the server, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Addr  string `envconfig:"HTTP_ADDR" default:":8080"`
	Redis pkgredis.Config
	CRM   crm.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	ChatModel model.ChatModelConfig
	Agent     model.AgentConfig
	Session   model.SessionConfig
	Cache     model.CacheConfig
	RateLimit model.RateLimitConfig
	Prompt    model.PromptConfig
}

func main() {
	ctx := context.Background()

	dotenvErr := godotenv.Load(".env")

	env := core.EnvironmentFromOS()
	logx.Init(env)
	if dotenvErr != nil {
		logx.Warn().Err(dotenvErr).Msg("could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("failed to process environment config")
	}

	// Redis backs sessions and the response cache; on startup failure the
	// in-memory tiers serve alone and history does not survive restarts.
	var sessions session.Store
	var responses cache.ResponseCache
	if rdb, err := cfg.Redis.New(ctx); err != nil {
		logx.Error().Err(err).Msg("redis unavailable, running on in-memory session and cache tiers")
		sessions = session.NewMemoryStore()
		responses = cache.NewMemoryCache(cfg.Cache.TTL)
	} else {
		defer rdb.Close()
		sessions = session.NewTieredStore(
			session.NewRedisStore(rdb, cfg.Session.TTL),
			session.NewMemoryStore(),
		)
		responses = cache.NewRedisCache(rdb, cfg.Cache.TTL)
		logx.Info().Msg("connected to redis")
	}

	crmClient := crm.New(cfg.CRM)

	chatModel, err := agent.NewGeminiModel(ctx, cfg.APIKey, cfg.BaseURL, cfg.ChatModel)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialize chat model")
	}

	ag, err := agent.New(agent.Config{
		Agent:           cfg.Agent,
		ModelName:       cfg.ChatModel.Model,
		ChatModel:       chatModel,
		Registry:        tools.NewRegistry(crmClient),
		Sessions:        sessions,
		Cache:           responses,
		Prompts:         prompts.NewSelector(cfg.Prompt),
		DefaultLanguage: cfg.Prompt.DefaultLanguage,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build agent")
	}

	router := api.NewRouter(api.Config{
		Agent:       ag,
		Resolver:    crmClient,
		IPLimiter:   ratelimit.NewLimiter(cfg.RateLimit.IPLimit, cfg.RateLimit.Window),
		UserLimiter: ratelimit.NewLimiter(cfg.RateLimit.UserLimit, cfg.RateLimit.Window),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", cfg.Addr).Str("env", string(env)).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("server failed")
		}
	case sig := <-stop:
		logx.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logx.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
