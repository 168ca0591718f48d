package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-service/internal/app"
	"trivia-service/internal/config"
	"trivia-service/internal/infra/memory"
	pgstore "trivia-service/internal/infra/postgres"
	redisstore "trivia-service/internal/infra/redis"
	"trivia-service/internal/llm"
	"trivia-service/internal/logger"
	"trivia-service/internal/metrics"
	"trivia-service/internal/oracle"
	transport "trivia-service/internal/transport/http"
	"trivia-service/internal/validator"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	m := metrics.New()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
	}

	var (
		attempts app.AttemptRecorder
		loader   app.StatsLoader
	)
	if pool != nil {
		archive := pgstore.NewAttemptStore(pool)
		attempts, loader = archive, archive
	} else {
		archive := memory.NewAttemptStore()
		attempts, loader = archive, archive
	}

	statsTTL := config.TTLDuration(cfg.Stats.TTL, 10*time.Minute)
	idleTTL := config.TTLDuration(cfg.Session.IdleTTL, 30*time.Minute)
	var (
		store app.SessionStore
		stats app.StatsRepository
	)
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, idleTTL))
		stats = redisstore.NewStatsRepository(redisClient, loader, statsTTL)
	} else {
		store = memory.NewSessionStore(idleTTL)
		stats = memory.NewStatsRepository(loader, statsTTL)
	}

	llmCfg := llmConfig(cfg)
	provider, err := llm.NewProvider(ctx, llmCfg, log, m)
	if err != nil {
		log.Warn().Err(err).Str("provider", llmCfg.Provider).Msg("oracle not configured, trivia operations will fail")
		provider = llm.Unconfigured{Err: err}
	}
	client := oracle.New(provider, log, m)

	service := app.NewTriviaService(store, client,
		app.WithLogger(log),
		app.WithMetrics(m),
		app.WithAttemptRecorder(attempts),
		app.WithStatsRepository(stats),
		app.WithPersonalizedFeedback(cfg.FeedbackEnabled()),
	)

	validator.Setup()
	router := transport.NewRouter(
		transport.RouterConfig{
			BasePath:       cfg.Server.BasePath,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			GinMode:        cfg.Server.GinMode,
		},
		transport.NewHandler(service, log, client.Configured()),
		transport.NewWSHandler(service, log),
		m,
		log,
	)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A request may wait on one oracle call.
		WriteTimeout: llmCfg.Timeout + 15*time.Second,
	}

	go service.RunJanitor(ctx, config.TTLDuration(cfg.Session.SweepInterval, time.Minute))

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", finalPort).
			Str("provider", llmCfg.Provider).
			Str("model", provider.ModelID()).
			Bool("redis", redisClient != nil).
			Bool("postgres", pool != nil).
			Msg("starting trivia service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// llmConfig overlays the configured provider settings on the llm defaults.
func llmConfig(cfg config.Config) llm.Config {
	out := llm.DefaultConfig()
	if cfg.LLM.Provider != "" {
		out.Provider = cfg.LLM.Provider
	}
	out.Model = cfg.LLM.Model
	out.APIKey = cfg.LLM.APIKey
	out.BaseURL = cfg.LLM.BaseURL
	out.Timeout = config.TTLDuration(cfg.LLM.Timeout, out.Timeout)
	if cfg.LLM.MaxAttempts > 0 {
		out.Retry.MaxAttempts = cfg.LLM.MaxAttempts
	}
	return out
}

