package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"exam-progress-service/internal/domain"
	"exam-progress-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBankRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{BankLoader: memory.NewStaticBankLoader(sampleBank())}
	repo := NewBankRepository(client, loader, time.Minute)

	bank, err := repo.Questions(context.Background())
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(bank) != 2 || loader.count() != 1 {
		t.Fatalf("expected 2 questions from one load, got %d, loads=%d", len(bank), loader.count())
	}
	if !mr.Exists(bankKey) {
		t.Fatalf("expected bank cached under %s", bankKey)
	}
	if ttl := mr.TTL(bankKey); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with jitter, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	bank, _ = repo.Questions(context.Background())
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if bank[1].Prompt != "What is 3 * 3?" || bank[1].Answer != "C" {
		t.Fatalf("cached bank lost fields: %+v", bank[1])
	}
}

func TestBankRepositorySharedAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	first := &countingLoader{BankLoader: memory.NewStaticBankLoader(sampleBank())}
	second := &countingLoader{BankLoader: memory.NewStaticBankLoader(sampleBank())}
	if _, err := NewBankRepository(newClient(mr), first, time.Minute).Questions(context.Background()); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if _, err := NewBankRepository(newClient(mr), second, time.Minute).Questions(context.Background()); err != nil {
		t.Fatalf("read: %v", err)
	}
	if second.count() != 0 {
		t.Fatalf("expected second instance to read the shared cache, loads=%d", second.count())
	}
}

type countingLoader struct {
	memory.BankLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context) ([]domain.Question, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.BankLoader.LoadBank(ctx)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{ID: 1, Topic: "arithmetic", Prompt: "What is 2 + 2?", Options: [4]string{"3", "4", "5", "6"}, Answer: "B"},
		{ID: 2, Topic: "arithmetic", Prompt: "What is 3 * 3?", Options: [4]string{"6", "8", "9", "12"}, Answer: "C"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
