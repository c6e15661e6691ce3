package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"party-game-engine/internal/app"
	"party-game-engine/internal/config"
	"party-game-engine/internal/domain"
	"party-game-engine/internal/infra/memory"
	pginfra "party-game-engine/internal/infra/postgres"
	redisinfra "party-game-engine/internal/infra/redis"
	transport "party-game-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game engine server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	eventID := cfg.Event.ID
	if eventID == "" {
		eventID = "event-1"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var roundLoader memory.RoundLoader = memory.NewStaticRoundLoader(sampleRounds())
	var eligibility app.EligibilitySource = memory.NewEligibilitySource(nil)
	if pool != nil {
		roundLoader = pginfra.NewRoundLoader(pool)
		eligibility = pginfra.NewEligibilitySource(pool)
	}
	roundTTL := config.TTLDuration(cfg.Round.CacheTTL, 10*time.Minute)
	rounds := memory.NewRoundRepository(roundLoader, roundTTL)

	var ledger app.Ledger = memory.NewLedger()
	var drawStore app.DrawStore = memory.NewDrawStore()
	if redisClient != nil {
		ledger = redisinfra.NewLedger(redisClient, redisTTL)
		drawStore = redisinfra.NewDrawStore(redisClient)
	}

	hub := app.NewHub()
	lottery := app.NewLottery(drawStore, eligibility, exclusionPolicy(cfg), cfg.Lottery.Weighted, hub)
	if err := lottery.Restore(ctx); err != nil {
		return err
	}
	service := app.NewGameService(eventID, rounds, ledger, lottery, hub)

	wsHandler := transport.NewWSHandler(service)
	adminHandler := transport.NewAdminHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	adminHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting game engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func exclusionPolicy(cfg config.Config) domain.ExclusionPolicy {
	switch cfg.Lottery.ExclusionPolicy {
	case string(domain.ExclusionNone):
		return domain.ExclusionNone
	case string(domain.ExclusionAllTime):
		return domain.ExclusionAllTime
	default:
		return domain.ExclusionCurrent
	}
}

// sampleRounds provides demo content when no Postgres is configured.
func sampleRounds() map[string]domain.Round {
	return map[string]domain.Round{
		"round-1": {
			ID:     "round-1",
			Prompt: "What is 2 + 2?",
			Options: []domain.Option{
				{ID: "o1", Text: "3"},
				{ID: "o2", Text: "4", Correct: true},
				{ID: "o3", Text: "5"},
			},
			BaseScore:      10,
			WrongPenalty:   domain.Penalty{Enabled: true, Amount: 5},
			TimeoutPenalty: domain.Penalty{Enabled: true, Amount: 10},
			TimeLimit:      30 * time.Second,
		},
	}
}
