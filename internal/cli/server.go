package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/config"
	"live-quiz-engine/internal/infra/memory"
	pgstore "live-quiz-engine/internal/infra/postgres"
	rediscache "live-quiz-engine/internal/infra/redis"
	"live-quiz-engine/internal/logger"
	"live-quiz-engine/internal/metrics"
	transport "live-quiz-engine/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
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
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

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

	var scores app.ScoreboardStore = memory.NewScoreboardStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		scores = pgstore.NewScoreboardStore(pool)
	} else {
		log.Warn("postgres not configured, scoreboards are kept in memory")
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		cacheTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		scores = rediscache.NewScoreboardCache(redisClient, scores, cacheTTL)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	hub := transport.NewHub(log.Named("hub"))
	coordinator := app.NewCoordinator(memory.NewRoomStore(), scores, hub,
		app.WithLogger(log.Named("coordinator")),
		app.WithMetrics(m),
		app.WithIdleReaper(
			config.TTLDuration(cfg.Session.IdleTTL, 2*time.Hour),
			config.TTLDuration(cfg.Session.ReapInterval, time.Minute),
		),
		app.WithPersistPolicy(
			config.TTLDuration(cfg.Scoreboard.PersistTimeout, 5*time.Second),
			app.DefaultBackOff(config.TTLDuration(cfg.Scoreboard.RetryMaxElapsed, 15*time.Second)),
		),
	)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = coordinator.Run(loopCtx)
	}()

	wsHandler := transport.NewWSHandler(coordinator, hub,
		transport.WithHandlerLogger(log.Named("ws")),
		transport.WithHandlerMetrics(m),
		transport.WithRateLimit(cfg.Client.RateLimit, cfg.Client.Burst),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("GET /scoreboards/{quizId}", transport.NewScoreboardHandler(scores, log.Named("scoreboards")))

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting live quiz server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)

	// Open rooms get a final scoreboard before the loop goes away.
	if endErr := coordinator.Shutdown(shutdownCtx); endErr != nil {
		log.Warn("rooms not closed cleanly", zap.Error(endErr))
	}
	stopLoop()
	<-loopDone
	return err
}
