package app

import (
	"context"
	"sync"

	"exam-progress-service/internal/domain"
)

// ProgressFeed fans out progress snapshots to the open connections of each
// identity. Slow subscribers only ever see the latest snapshot.
type ProgressFeed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Progress]struct{}
}

func NewProgressFeed() *ProgressFeed {
	return &ProgressFeed{subscribers: make(map[string]map[chan domain.Progress]struct{})}
}

// Subscribe returns a channel of snapshots for userID.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *ProgressFeed) Subscribe(userID string) (<-chan domain.Progress, func()) {
	ch := make(chan domain.Progress, 4)

	f.mu.Lock()
	subs, ok := f.subscribers[userID]
	if !ok {
		subs = make(map[chan domain.Progress]struct{})
		f.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[userID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, userID)
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of userID without blocking.
func (f *ProgressFeed) Publish(_ context.Context, userID string, p domain.Progress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[userID] {
		select {
		case ch <- p:
		default:
			// drop the oldest pending snapshot so the newest always lands
			select {
			case <-ch:
			default:
			}
			ch <- p
		}
	}
}

// Subscribers reports how many connections are open for userID.
func (f *ProgressFeed) Subscribers(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[userID])
}
