package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lingua-quiz-service/internal/app"
	"lingua-quiz-service/internal/auth"
	"lingua-quiz-service/internal/bank"
	"lingua-quiz-service/internal/config"
	"lingua-quiz-service/internal/i18n"
	"lingua-quiz-service/internal/infra/memory"
	pginfra "lingua-quiz-service/internal/infra/postgres"
	redisinfra "lingua-quiz-service/internal/infra/redis"
	"lingua-quiz-service/internal/logger"
	"lingua-quiz-service/internal/speech"
	transport "lingua-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(env string) (*zap.Logger, error) {
	return logger.New(env)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Question banks: embedded assets by default, Postgres when configured.
	var loader memory.BankLoader
	embedded, err := bank.Embedded()
	if err != nil {
		return err
	}
	loader = memory.NewStaticBankLoader(embedded)
	if pool != nil {
		loader = pginfra.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks app.BankRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var history app.HistoryStore = memory.NewHistoryStore()
	var profiles app.ProfileStore = memory.NewProfileStore()
	var settingsRepo app.SettingsRepository = memory.NewSettingsStore()
	if pool != nil {
		history = pginfra.NewHistoryRepository(pool)
		profiles = pginfra.NewProfileRepository(pool)
		settingsRepo = pginfra.NewSettingsRepository(pool)
	}

	var leaderboard interface {
		app.LeaderboardStore
		app.RankWriter
	} = memory.NewLeaderboardStore()
	if redisClient != nil {
		leaderboard = redisinfra.NewLeaderboardStore(redisClient)
	}

	reporter := app.NewReporter(history, profiles, leaderboard, cfg.Quiz.XPPerCorrect, log)
	service := app.NewQuizService(sessions, banks, reporter, log)
	settings := app.NewSettingsManager(settingsRepo, log)

	pollInterval := config.TTLDuration(cfg.Leaderboard.Interval, 30*time.Second)
	poller := app.NewLeaderboardPoller(leaderboard, cfg.Leaderboard.Limit, pollInterval, log)

	locales, err := i18n.Load()
	if err != nil {
		return err
	}
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	synth := speech.NewSynthesizer(nil, log) // no platform backend wired; speak requests degrade to no-ops

	wsHandler := transport.NewWSHandler(service, synth, locales, verifier, log)
	apiHandler := transport.NewAPIHandler(poller, history, profiles, settings, verifier, locales, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	pollCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	go poller.Run(pollCtx)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
