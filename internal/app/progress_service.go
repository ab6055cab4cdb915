package app

import (
	"context"
	"time"

	"exam-progress-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

// SyncAction tells the client what to do with its local snapshot.
type SyncAction string

const (
	// ActionSynced means the client snapshot was accepted and stored.
	ActionSynced SyncAction = "synced"
	// ActionUpdateLocal means the server snapshot is newer and must replace the local copy.
	ActionUpdateLocal SyncAction = "update_local"
)

// SyncDecision is the outcome of reconciling two snapshots.
type SyncDecision struct {
	Action   SyncAction      `json:"action"`
	Progress domain.Progress `json:"progress"`
	// Write reports whether the server record must be (re)written.
	Write bool `json:"-"`
}

// Reconcile applies last-write-wins to a client and server snapshot. One side
// replaces the other whole; equal timestamps go to the client.
func Reconcile(client, server domain.Progress, hasServer bool) SyncDecision {
	if hasServer && server.LastUpdated.After(client.LastUpdated) {
		return SyncDecision{Action: ActionUpdateLocal, Progress: server}
	}
	return SyncDecision{Action: ActionSynced, Progress: client, Write: true}
}

// ProgressService owns the server-held progress record of each identity.
type ProgressService struct {
	progress  ProgressRepository
	history   HistoryRepository
	publisher ProgressPublisher
	now       func() time.Time
}

func NewProgressService(progress ProgressRepository, history HistoryRepository, publisher ProgressPublisher) *ProgressService {
	return &ProgressService{progress: progress, history: history, publisher: publisher, now: time.Now}
}

// NewProgressServiceWithClock is test-only for deterministic timestamps.
func NewProgressServiceWithClock(progress ProgressRepository, history HistoryRepository, publisher ProgressPublisher, now func() time.Time) *ProgressService {
	return &ProgressService{progress: progress, history: history, publisher: publisher, now: now}
}

// Get returns the server snapshot or defaults when none is stored.
func (s *ProgressService) Get(ctx context.Context, userID string) (domain.Progress, error) {
	p, ok, err := s.progress.Load(ctx, userID)
	if err != nil {
		return domain.Progress{}, domain.StoreError("load progress", err)
	}
	if !ok {
		return domain.NewProgress(stamp(s.now)), nil
	}
	p.Normalize()
	return p, nil
}

// Sync reconciles a client snapshot with the stored one. When the client wins
// its snapshot is stored under a fresh server timestamp, which is returned so
// the client can adopt it.
func (s *ProgressService) Sync(ctx context.Context, userID string, client domain.Progress) (SyncDecision, error) {
	if client.LastUpdated.IsZero() {
		return SyncDecision{}, domain.ErrMissingTimestamp
	}
	client.Normalize()

	server, ok, err := s.progress.Load(ctx, userID)
	if err != nil {
		return SyncDecision{}, domain.StoreError("load progress", err)
	}
	if ok {
		server.Normalize()
	}

	decision := Reconcile(client, server, ok)
	if !decision.Write {
		return decision, nil
	}

	written := stamp(s.now)
	if decision.Progress.LastUpdated.After(written) {
		written = decision.Progress.LastUpdated
	}
	decision.Progress.LastUpdated = written
	if err := s.progress.Save(ctx, userID, decision.Progress); err != nil {
		return SyncDecision{}, domain.StoreError("save progress", err)
	}
	s.publish(ctx, userID, decision.Progress)
	return decision, nil
}

// Reset deletes the stored progress and every history record of the identity.
func (s *ProgressService) Reset(ctx context.Context, userID string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.progress.Delete(gctx, userID); err != nil {
			return domain.StoreError("delete progress", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.history.DeleteByUser(gctx, userID); err != nil {
			return domain.StoreError("delete history", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	s.publish(ctx, userID, domain.NewProgress(stamp(s.now)))
	return nil
}

func (s *ProgressService) publish(ctx context.Context, userID string, p domain.Progress) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, userID, p.Clone())
	}
}
