package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	pgstore "quiz-attempt-service/internal/infra/postgres"
	pgmigrations "quiz-attempt-service/internal/infra/postgres/migrations"
	infraredis "quiz-attempt-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewQuestionStore(pool)
	for i := 1; i <= 3; i++ {
		if _, err := store.Create(ctx, "question "+strconv.Itoa(i), []domain.AdminOption{
			{Text: "right", IsCorrect: true},
			{Text: "wrong", IsCorrect: false},
		}); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	states := infraredis.NewStateStore(redisClient, 5*time.Minute)
	keys := infraredis.NewAnswerKeyCache(redisClient, store, 5*time.Minute)
	scorer := app.NewScorer(keys)

	engine := app.NewEngine(states, "client:itest", scorer)
	engine.LoadPersisted()
	engine.Ready()

	gen := engine.BeginLoad()
	questions, err := store.LoadQuizQuestions(ctx)
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	if !engine.ApplyQuestions(gen, questions) {
		t.Fatalf("apply questions")
	}
	if err := engine.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}

	// Answer the first correctly and the second incorrectly.
	first := questions[0]
	if err := engine.Answer(first.ID, domain.DeriveOptionKey(first.Options[0], 0)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	engine.Next()
	second := questions[1]
	if err := engine.Answer(second.ID, domain.DeriveOptionKey(second.Options[1], 1)); err != nil {
		t.Fatalf("answer: %v", err)
	}

	// A restart mid-attempt rehydrates from redis.
	restarted := app.NewEngine(states, "client:itest", scorer)
	restarted.LoadPersisted()
	restarted.Ready()
	if restarted.State() != app.Active || restarted.CurrentIndex() != 1 {
		t.Fatalf("rehydrate mismatch: %v index=%d", restarted.State(), restarted.CurrentIndex())
	}

	result, err := restarted.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.TotalQuestions != 3 || result.CorrectCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if restarted.State() != app.Completed {
		t.Fatalf("expected completed, got %v", restarted.State())
	}

	// Listing self-correction: shrink the set below a page boundary.
	runListingStepBack(t, ctx, store)
}

func runListingStepBack(t *testing.T, ctx context.Context, store *pgstore.QuestionStore) {
	// Grow to 6 questions so limit 5 yields two pages.
	for i := 4; i <= 6; i++ {
		if _, err := store.Create(ctx, "question "+strconv.Itoa(i), []domain.AdminOption{
			{Text: "right", IsCorrect: true},
			{Text: "wrong", IsCorrect: false},
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	pager := app.NewPager()
	pager.SetLimit(5)
	pager.SetPage(2)

	req := pager.Request()
	items, meta, err := store.FetchQuestionPage(ctx, req)
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}
	if len(items) != 1 || meta.TotalPages != 2 {
		t.Fatalf("expected 1 item on page 2 of 2, got %d (%+v)", len(items), meta)
	}

	// Delete the lone item on page 2; the refetch must step back to page 1.
	if err := store.Delete(ctx, items[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	items, meta, err = store.FetchQuestionPage(ctx, pager.Request())
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if !pager.Observe(meta, len(items)) {
		t.Fatalf("expected step-back after page emptied (meta %+v)", meta)
	}
	items, meta, err = store.FetchQuestionPage(ctx, pager.Request())
	if err != nil {
		t.Fatalf("fetch corrected page: %v", err)
	}
	if meta.CurrentPage != 1 || len(items) != 5 {
		t.Fatalf("expected full page 1 after correction, got %d items (%+v)", len(items), meta)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
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
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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
