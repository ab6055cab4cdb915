package redis

import (
	"context"
	"testing"
	"time"

	"exam-progress-service/internal/domain"
	"exam-progress-service/internal/logger"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestFeedBusForwardsSnapshots(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type delivery struct {
		userID string
		p      domain.Progress
	}
	got := make(chan delivery, 1)

	receiver := NewFeedBus(newClient(mr), "", logger.Nop())
	if err := receiver.StartForwarder(ctx, func(userID string, p domain.Progress) {
		got <- delivery{userID: userID, p: p}
	}); err != nil {
		t.Fatalf("start forwarder: %v", err)
	}

	sender := NewFeedBus(newClient(mr), "", logger.Nop())
	p := domain.NewProgress(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	p.CurrentSession = 4
	sender.Publish(ctx, "u1", p)

	select {
	case d := <-got:
		if d.userID != "u1" || d.p.CurrentSession != 4 {
			t.Fatalf("unexpected delivery: %+v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for forwarded snapshot")
	}
}

func TestFeedBusRequiresCallback(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	bus := NewFeedBus(newClient(mr), "", logger.Nop())
	if err := bus.StartForwarder(context.Background(), nil); err == nil {
		t.Fatalf("expected error without callback")
	}
}
