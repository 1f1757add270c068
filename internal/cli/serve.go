package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	pgstore "quiz-attempt-service/internal/infra/postgres"
	redisinfra "quiz-attempt-service/internal/infra/redis"
	transport "quiz-attempt-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz attempt server",
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
	sessionTTL := config.TTLDuration(cfg.Session.TTL, 24*time.Hour)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	// Question backing store: Postgres when configured, a fixed demo set
	// otherwise. Both serve the quiz flow, the answer key and the listing.
	var (
		loader  memory.QuestionLoader
		keys    app.AnswerKeySource
		listing app.ListingSource
		admin   transport.QuestionAdmin
	)
	if pool != nil {
		store := pgstore.NewQuestionStore(pool)
		loader, keys, listing, admin = store, store, store, store
	} else {
		store := memory.NewStaticQuestionStore(sampleQuestions())
		loader, keys, listing = store, store, store
	}

	source := memory.NewCachingQuestionSource(loader, quizTTL)

	var answerCache *redisinfra.AnswerKeyCache
	if redisClient != nil {
		answerCache = redisinfra.NewAnswerKeyCache(redisClient, keysLoader{keys}, quizTTL)
		keys = answerCache
	}
	scorer := app.NewScorer(keys)

	var states app.StateStore
	if redisClient != nil {
		states = redisinfra.NewStateStore(redisClient, sessionTTL)
	} else {
		states = memory.NewStateStore()
	}

	wsHandler := transport.NewWSHandler(states, source, scorer)
	questionsHandler := transport.NewQuestionsHandler(listing, admin, func(ctx context.Context) {
		source.Invalidate()
		if answerCache != nil {
			answerCache.Invalidate(ctx)
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/api/questions", questionsHandler.ServeCollection)
	mux.HandleFunc("/api/questions/", questionsHandler.ServeItem)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz attempt service on :%s", finalPort)
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

// keysLoader adapts an app.AnswerKeySource to the redis cache's loader
// interface without an import cycle.
type keysLoader struct {
	src app.AnswerKeySource
}

func (l keysLoader) LoadAnswerKey(ctx context.Context) (map[string]string, error) {
	return l.src.LoadAnswerKey(ctx)
}

// sampleQuestions provides a minimal demo set; Postgres replaces this in production.
func sampleQuestions() []domain.AdminQuestion {
	return []domain.AdminQuestion{
		{
			ID:     "1",
			Text:   "What is 2 + 2?",
			Active: true,
			Options: []domain.AdminOption{
				{ID: "o1", Text: "3", IsCorrect: false},
				{ID: "o2", Text: "4", IsCorrect: true},
				{ID: "o3", Text: "5", IsCorrect: false},
				{ID: "o4", Text: "22", IsCorrect: false},
			},
		},
		{
			ID:     "2",
			Text:   "Which planet is known as the Red Planet?",
			Active: true,
			Options: []domain.AdminOption{
				{ID: "o1", Text: "Venus", IsCorrect: false},
				{ID: "o2", Text: "Jupiter", IsCorrect: false},
				{ID: "o3", Text: "Mars", IsCorrect: true},
				{ID: "o4", Text: "Saturn", IsCorrect: false},
			},
		},
	}
}
