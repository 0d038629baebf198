package integration

import (
	"context"
	"database/sql"
	"encoding/json"
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

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/game"
	pgloader "live-trivia-service/internal/infra/postgres"
	pgmigrations "live-trivia-service/internal/infra/postgres/migrations"
	infraredis "live-trivia-service/internal/infra/redis"
)

func TestGameRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestionSet(t, ctx, pgURL, "default", sampleRecords())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuestionLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	repo := infraredis.NewQuestionRepository(redisClient, loader, 5*time.Minute)

	records, err := repo.GetQuestionSet(ctx, "default")
	if err != nil {
		t.Fatalf("load question set: %v", err)
	}
	if len(records) != 2 || records[0].ID != "q1" {
		t.Fatalf("loaded %+v", records)
	}

	// Second read must come from the redis cache.
	if _, err := repo.GetQuestionSet(ctx, "default"); err != nil {
		t.Fatalf("cached load: %v", err)
	}

	coordinator := game.New(game.DefaultSettings(), records, game.TimerScheduler{}, nil)

	if _, err := coordinator.Join("Alice", "conn-1"); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, err := coordinator.Join("Bob", "conn-2"); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	if _, err := coordinator.StartQuestion(0); err != nil {
		t.Fatalf("start question: %v", err)
	}
	receipt, err := coordinator.SubmitAnswer("conn-1", "q1", "b")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !receipt.Correct || receipt.Points == 0 {
		t.Fatalf("receipt = %+v", receipt)
	}

	ev, err := coordinator.EndQuestion()
	if err != nil {
		t.Fatalf("end question: %v", err)
	}
	if ev.Leaderboard.Entries[0].Nickname != "Alice" {
		t.Fatalf("expected alice leading, got %+v", ev.Leaderboard.Entries)
	}

	store := infraredis.NewLeaderboardStore(redisClient, 5*time.Minute)
	if err := store.Publish(ctx, "session-1", ev.Leaderboard); err != nil {
		t.Fatalf("publish leaderboard: %v", err)
	}
	fetched, err := store.Fetch(ctx, "session-1")
	if err != nil {
		t.Fatalf("fetch leaderboard: %v", err)
	}
	if fetched.TotalParticipants != 2 || fetched.Entries[0].Nickname != "Alice" {
		t.Fatalf("fetched %+v", fetched)
	}
}

func TestMissingQuestionSet(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	seedQuestionSet(t, ctx, pgURL, "default", sampleRecords())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuestionLoader(pool)
	if _, err := loader.LoadQuestionSet(ctx, "nope"); err != domain.ErrQuestionSetNotFound {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
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
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
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

func seedQuestionSet(t *testing.T, ctx context.Context, dsn, setID string, records []domain.QuestionRecord) {
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

	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("marshal records: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_sets (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, setID, string(data)); err != nil {
		t.Fatalf("insert question set: %v", err)
	}
}

func sampleRecords() []domain.QuestionRecord {
	return []domain.QuestionRecord{
		{
			ID:   "q1",
			Text: "Which river runs through Cairo?",
			Options: []domain.Option{
				{ID: "a", Text: "Tigris"},
				{ID: "b", Text: "Nile"},
				{ID: "c", Text: "Danube"},
				{ID: "d", Text: "Congo"},
			},
			CorrectAnswer: "b",
			TimeLimit:     30,
			Clues:         []string{"It is the longest river in Africa"},
		},
		{
			ID:   "q2",
			Text: "Which country has the most time zones?",
			Options: []domain.Option{
				{ID: "a", Text: "Russia"},
				{ID: "b", Text: "USA"},
				{ID: "c", Text: "France"},
				{ID: "d", Text: "China"},
			},
			CorrectAnswer: "c",
			TimeLimit:     30,
		},
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
