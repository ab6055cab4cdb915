package client

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"exam-progress-service/internal/app"
	"exam-progress-service/internal/auth"
	"exam-progress-service/internal/domain"
	"exam-progress-service/internal/infra/memory"
	"exam-progress-service/internal/logger"
	transport "exam-progress-service/internal/transport/http"
)

type remoteEnv struct {
	url      string
	token    string
	bank     []domain.Question
	progress *memory.ProgressStore
}

func newRemoteEnv(t *testing.T) *remoteEnv {
	t.Helper()
	bank := sampleBank(30)
	exams := app.NewExamService(memory.NewBankRepository(memory.NewStaticBankLoader(bank), time.Minute))
	progressStore := memory.NewProgressStore()
	historyStore := memory.NewHistoryStore()
	feed := app.NewProgressFeed()
	progress := app.NewProgressService(progressStore, historyStore, feed)

	tokens, err := auth.NewTokens("client-secret", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	token, err := tokens.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	log := logger.Nop()
	handler := transport.NewHandler(transport.Services{
		Exams:    exams,
		Tracker:  app.NewTracker(progressStore, exams, exams).WithPublisher(feed),
		Progress: progress,
		History:  app.NewHistoryService(historyStore),
	}, log, false)
	server := httptest.NewServer(transport.NewRouter(handler, nil, tokens, log))
	t.Cleanup(server.Close)

	return &remoteEnv{url: server.URL, token: token, bank: bank, progress: progressStore}
}

func openStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := OpenLocalStore(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLocalSessionFlowAgainstRemoteBank(t *testing.T) {
	env := newRemoteEnv(t)
	ctx := context.Background()
	local := openStore(t)
	remote := New(env.url, env.token, nil)
	tracker := app.NewTracker(local, remote, remote)

	view, err := tracker.LoadSession(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if len(view.Questions) != 10 {
		t.Fatalf("expected 10 drawn questions, got %d", len(view.Questions))
	}
	for _, q := range view.Questions {
		if q.Answer != "" {
			t.Fatalf("answer key leaked to client for question %d", q.ID)
		}
	}

	// reload replays the persisted draw
	again, err := tracker.LoadSession(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if fmt.Sprint(domain.IDs(again.Questions)) != fmt.Sprint(domain.IDs(view.Questions)) {
		t.Fatalf("expected replayed assignment")
	}

	byID := make(map[int]domain.Question, len(env.bank))
	for _, q := range env.bank {
		byID[q.ID] = q
	}
	for _, q := range view.Questions {
		if _, err := tracker.SaveAnswer(ctx, "u1", 1, q.ID, byID[q.ID].CorrectIndex()); err != nil {
			t.Fatalf("save answer: %v", err)
		}
	}

	grade, p, err := tracker.Submit(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !grade.Passed || grade.Total != 10 || len(grade.QuestionIDs) != 10 {
		t.Fatalf("expected pass over the assigned set, got %+v", grade)
	}
	if p.CurrentSession != 2 || len(p.MasteredQuestionIDs) != 10 || len(p.CurrentAnswers[1]) != 0 {
		t.Fatalf("unexpected local progress: %+v", p)
	}

	stored, ok, err := local.Load(ctx, "u1")
	if err != nil || !ok || stored.CurrentSession != 2 {
		t.Fatalf("expected progress persisted locally, got %+v ok=%v err=%v", stored, ok, err)
	}
}

func TestSyncerPushesNewerLocalSnapshot(t *testing.T) {
	env := newRemoteEnv(t)
	ctx := context.Background()
	local := openStore(t)
	remote := New(env.url, env.token, nil)

	p := domain.NewProgress(time.Now().UTC().Truncate(time.Millisecond))
	if err := p.MarkCompleted(1, []int{1, 2, 3}, p.LastUpdated); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if err := local.Save(ctx, "u1", p); err != nil {
		t.Fatalf("save local: %v", err)
	}

	decision, err := NewSyncer(local, remote, "u1").Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if decision.Action != app.ActionSynced {
		t.Fatalf("expected synced, got %s", decision.Action)
	}
	server, err := remote.Progress(ctx)
	if err != nil {
		t.Fatalf("server progress: %v", err)
	}
	if server.CurrentSession != 2 || len(server.MasteredQuestionIDs) != 3 {
		t.Fatalf("expected server to hold the local snapshot, got %+v", server)
	}
	adopted, _, _ := local.Load(ctx, "u1")
	if !adopted.LastUpdated.Equal(server.LastUpdated) {
		t.Fatalf("expected local to adopt server stamp %v, got %v", server.LastUpdated, adopted.LastUpdated)
	}
}

func TestSyncerAdoptsNewerServerSnapshot(t *testing.T) {
	env := newRemoteEnv(t)
	ctx := context.Background()
	local := openStore(t)
	remote := New(env.url, env.token, nil)

	old := domain.NewProgress(time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond))
	if err := local.Save(ctx, "u1", old); err != nil {
		t.Fatalf("save local: %v", err)
	}
	newer := domain.NewProgress(time.Now().UTC().Truncate(time.Millisecond))
	newer.CompletedSessions = []int{1, 2, 3}
	newer.CurrentSession = 4
	if err := env.progress.Save(ctx, "u1", newer); err != nil {
		t.Fatalf("seed server: %v", err)
	}

	decision, err := NewSyncer(local, remote, "u1").Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if decision.Action != app.ActionUpdateLocal {
		t.Fatalf("expected update_local, got %s", decision.Action)
	}
	got, _, _ := local.Load(ctx, "u1")
	if got.CurrentSession != 4 || len(got.CompletedSessions) != 3 {
		t.Fatalf("expected local overwritten with server copy, got %+v", got)
	}
}

func TestSyncerResetClearsBothSides(t *testing.T) {
	env := newRemoteEnv(t)
	ctx := context.Background()
	local := openStore(t)
	remote := New(env.url, env.token, nil)

	p := domain.NewProgress(time.Now().UTC())
	_ = local.Save(ctx, "u1", p)
	_ = env.progress.Save(ctx, "u1", p)

	if err := NewSyncer(local, remote, "u1").Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok, _ := local.Load(ctx, "u1"); ok {
		t.Fatalf("expected local progress removed")
	}
	if _, ok, _ := env.progress.Load(ctx, "u1"); ok {
		t.Fatalf("expected server progress removed")
	}
}

func TestClientMapsErrorStatuses(t *testing.T) {
	env := newRemoteEnv(t)
	ctx := context.Background()

	anonymous := New(env.url, "", nil)
	if _, err := anonymous.Progress(ctx); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if _, err := anonymous.SessionQuestions(ctx, 25); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
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
