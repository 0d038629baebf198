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

	"live-trivia-service/internal/config"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/game"
	"live-trivia-service/internal/infra/memory"
	pgloader "live-trivia-service/internal/infra/postgres"
	redisinfra "live-trivia-service/internal/infra/redis"
	transport "live-trivia-service/internal/transport/http"
)

// questionRepository loads (possibly cached) question-set content.
type questionRepository interface {
	GetQuestionSet(ctx context.Context, setID string) ([]domain.QuestionRecord, error)
}

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

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestionSets())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions questionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
	}

	setID := cfg.Questions.SetID
	if setID == "" {
		setID = "default"
	}
	seed, err := questions.GetQuestionSet(ctx, setID)
	if err != nil {
		log.Printf("question set %q unavailable (%v), falling back to sample bank", setID, err)
		seed = sampleQuestionSets()["default"]
	}
	log.Printf("loaded %d questions for set %q", len(seed), setID)

	settings := gameSettings(cfg)

	hub := transport.NewHub()
	var leaderboards *redisinfra.LeaderboardStore
	if redisClient != nil {
		leaderboards = redisinfra.NewLeaderboardStore(redisClient, redisTTL)
	}
	events := transport.NewEventBroadcaster(hub, leaderboards)
	coordinator := game.New(settings, seed, game.TimerScheduler{}, events)
	events.SetSessionID(coordinator.GameState().SessionID)

	intermission := config.TTLDuration(cfg.Game.Intermission, 5*time.Second)
	wsHandler := transport.NewWSHandler(coordinator, hub, events, game.TimerScheduler{}, intermission)
	apiHandler := transport.NewAPIHandler(coordinator)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", apiHandler.Health)
	mux.HandleFunc("/api/game/status", apiHandler.GameStatus)
	mux.HandleFunc("/api/questions", apiHandler.ReplaceQuestions)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go coordinator.RunSweeper(sweepCtx)

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
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

func gameSettings(cfg config.Config) game.Settings {
	settings := game.DefaultSettings()
	if cfg.Game.MaxParticipants > 0 {
		settings.MaxParticipants = cfg.Game.MaxParticipants
	}
	if cfg.Game.BasePoints > 0 {
		settings.BasePoints = cfg.Game.BasePoints
	}
	if cfg.Game.MinSpeedMultiplier > 0 {
		settings.MinSpeedMultiplier = cfg.Game.MinSpeedMultiplier
	}
	if cfg.Game.MaxSpeedMultiplier > 0 {
		settings.MaxSpeedMultiplier = cfg.Game.MaxSpeedMultiplier
	}
	if cfg.Game.IncorrectPoints != 0 {
		settings.IncorrectPoints = cfg.Game.IncorrectPoints
	}
	if cfg.Game.LeaderboardTop > 0 {
		settings.LeaderboardTop = cfg.Game.LeaderboardTop
	}
	settings.StaleAfter = config.TTLDuration(cfg.Game.StaleThreshold, settings.StaleAfter)
	settings.SweepEvery = config.TTLDuration(cfg.Game.SweepInterval, settings.SweepEvery)
	return settings
}

// sampleQuestionSets provides a minimal bank so the server is playable
// without a database; swap the loader with the Postgres-backed one in
// production.
func sampleQuestionSets() map[string][]domain.QuestionRecord {
	return map[string][]domain.QuestionRecord{
		"default": {
			{
				ID:   "q1",
				Text: "City of Canals",
				Options: []domain.Option{
					{ID: "a", Text: "Amsterdam"},
					{ID: "b", Text: "Venice"},
					{ID: "c", Text: "Bruges"},
					{ID: "d", Text: "Stockholm"},
				},
				CorrectAnswer: "b",
				TimeLimit:     30,
				Clues: []string{
					"This city is built on more than a hundred small islands",
					"Its public transport runs entirely on water",
					"It hosts a famous masked carnival every year",
				},
			},
			{
				ID:   "q2",
				Text: "Highest Capital City",
				Options: []domain.Option{
					{ID: "a", Text: "Quito"},
					{ID: "b", Text: "Kathmandu"},
					{ID: "c", Text: "La Paz"},
					{ID: "d", Text: "Thimphu"},
				},
				CorrectAnswer: "c",
				TimeLimit:     30,
				Clues: []string{
					"This administrative capital sits above 3,600 metres",
					"Its cable car network is the longest urban one in the world",
					"It shares capital duties with Sucre",
				},
			},
		},
	}
}
