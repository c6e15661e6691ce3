package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"party-game-engine/internal/app"
	"party-game-engine/internal/domain"
	"party-game-engine/internal/infra/memory"
	pginfra "party-game-engine/internal/infra/postgres"
	pgmigrations "party-game-engine/internal/infra/postgres/migrations"
	redisinfra "party-game-engine/internal/infra/redis"
)

func TestRoundAndLotteryEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedData(t, ctx, pgURL, sampleRound())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	rounds := memory.NewRoundRepository(pginfra.NewRoundLoader(pool), 5*time.Minute)
	ledger := redisinfra.NewLedger(redisClient, time.Hour)
	drawStore := redisinfra.NewDrawStore(redisClient)
	eligibility := pginfra.NewEligibilitySource(pool)

	hub := app.NewHub()
	lottery := app.NewLottery(drawStore, eligibility, domain.ExclusionCurrent, false, hub)
	service := app.NewGameService("event-1", rounds, ledger, lottery, hub)

	service.Join(ctx, "u1", "Alice")
	service.Join(ctx, "u2", "Bob")
	service.Join(ctx, "u3", "Carol")

	if _, err := service.ArmRound(ctx, "round-1"); err != nil {
		t.Fatalf("arm: %v", err)
	}
	if _, err := service.OpenRound(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := service.SubmitAnswer(ctx, "u1", "o2"); err != nil {
		t.Fatalf("submit u1: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, "u2", "o1"); err != nil {
		t.Fatalf("submit u2: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, "u1", "o3"); !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}

	summary, err := service.CloseRound(ctx)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(summary.Deltas) != 3 {
		t.Fatalf("expected 3 deltas, got %+v", summary.Deltas)
	}

	board := service.Leaderboard(ctx)
	if len(board.Entries) != 3 || board.Entries[0].UserID != "u1" || board.Entries[0].Score != 10 {
		t.Fatalf("expected Alice leading with 10, got %+v", board.Entries)
	}

	// Lottery over pg-derived eligibility: u1 has public content, u2's item
	// is private, u3 has none.
	record, err := service.DrawLottery(ctx, 7)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if record.WinnerID != "u1" {
		t.Fatalf("expected u1 to win, got %+v", record)
	}
	if _, err := service.DrawLottery(ctx, 8); !errors.Is(err, domain.ErrEmptyPool) {
		t.Fatalf("expected empty pool before reset, got %v", err)
	}
	if err := service.ResetLottery(ctx); err != nil {
		t.Fatalf("reset lottery: %v", err)
	}
	if _, err := service.DrawLottery(ctx, 9); err != nil {
		t.Fatalf("draw after reset: %v", err)
	}

	history, err := service.DrawHistory(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 committed draws, got %+v", history)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "game", "POSTGRES_PASSWORD": "gamepass", "POSTGRES_DB": "gamedb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://game:gamepass@%s:%s/gamedb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedData(t *testing.T, ctx context.Context, dsn string, round domain.Round) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(round)
	if err != nil {
		t.Fatalf("marshal round: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO rounds (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, round.ID, string(data)); err != nil {
		t.Fatalf("insert round: %v", err)
	}

	items := []struct {
		id, participant string
		public, deleted bool
	}{
		{"c1", "u1", true, false},
		{"c2", "u2", false, false},
		{"c3", "u1", true, true},
	}
	for _, item := range items {
		if _, err := db.ExecContext(ctx, `INSERT INTO content_items (id, participant_id, public, deleted) VALUES (?, ?, ?, ?)`, item.id, item.participant, item.public, item.deleted); err != nil {
			t.Fatalf("insert content item: %v", err)
		}
	}
}

func sampleRound() domain.Round {
	return domain.Round{
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
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
