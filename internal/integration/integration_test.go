package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"exam-progress-service/internal/app"
	"exam-progress-service/internal/domain"
	"exam-progress-service/internal/infra/postgres"
	infraredis "exam-progress-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPassingSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.OpenBun(pgURL)
	defer db.Close()
	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bank := sampleBank(30)
	if n, err := postgres.SeedBank(ctx, db, bank); err != nil || n != 30 {
		t.Fatalf("seed bank: n=%d err=%v", n, err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	bankRepo := infraredis.NewBankRepository(redisClient, postgres.NewBankLoader(pool), 5*time.Minute)
	exams := app.NewExamService(bankRepo)
	progressStore := postgres.NewProgressStore(pool)
	historyStore := postgres.NewHistoryStore(db)
	tracker := app.NewTracker(progressStore, exams, exams)
	history := app.NewHistoryService(historyStore)

	slice, err := exams.SessionQuestions(ctx, 2)
	if err != nil {
		t.Fatalf("session questions: %v", err)
	}
	if len(slice) != 10 || slice[0].ID != 11 {
		t.Fatalf("expected bank order from postgres, got first id %d of %d", slice[0].ID, len(slice))
	}

	view, err := tracker.LoadSession(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	for _, q := range view.Questions {
		if _, err := tracker.SaveAnswer(ctx, "u1", 1, q.ID, q.CorrectIndex()); err != nil {
			t.Fatalf("save answer: %v", err)
		}
	}
	grade, progress, err := tracker.Submit(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !grade.Passed || progress.CurrentSession != 2 {
		t.Fatalf("expected pass advancing to session 2, got %+v / %+v", grade, progress)
	}

	stored, ok, err := progressStore.Load(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("load stored progress: ok=%v err=%v", ok, err)
	}
	if len(stored.CompletedSessions) != 1 || len(stored.MasteredQuestionIDs) != 10 {
		t.Fatalf("unexpected stored progress: %+v", stored)
	}

	saved, err := history.Record(ctx, "u1", domain.ResultFromGrade("u1", grade, nil))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := history.Get(ctx, "u1", saved.ID)
	if err != nil || got.Score != 100 {
		t.Fatalf("get result: %+v err=%v", got, err)
	}
	if _, err := history.Get(ctx, "u2", saved.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for foreign result, got %v", err)
	}

	reset := app.NewProgressService(progressStore, historyStore, nil)
	if err := reset.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if list, _ := history.List(ctx, "u1"); len(list) != 0 {
		t.Fatalf("expected history cleared, got %d", len(list))
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "exam", "POSTGRES_PASSWORD": "exampass", "POSTGRES_DB": "examdb"},
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
	dsn := fmt.Sprintf("postgres://exam:exampass@%s:%s/examdb?sslmode=disable", host, port.Port())
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

func sampleBank(n int) []domain.Question {
	letters := []string{"A", "B", "C", "D"}
	bank := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		bank = append(bank, domain.Question{
			ID:      i,
			Topic:   "general",
			Prompt:  fmt.Sprintf("Question %d?", i),
			Options: [4]string{"one", "two", "three", "four"},
			Answer:  letters[i%4],
		})
	}
	return bank
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
