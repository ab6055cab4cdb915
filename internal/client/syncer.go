package client

import (
	"context"
	"time"

	"exam-progress-service/internal/app"
	"exam-progress-service/internal/domain"
)

// Remote is the server side of reconciliation.
type Remote interface {
	Sync(ctx context.Context, p domain.Progress) (app.SyncDecision, error)
	Reset(ctx context.Context) error
}

// Syncer reconciles the local snapshot of one profile with the server.
type Syncer struct {
	local   app.ProgressRepository
	remote  Remote
	profile string
}

func NewSyncer(local app.ProgressRepository, remote Remote, profile string) *Syncer {
	return &Syncer{local: local, remote: remote, profile: profile}
}

// Sync posts the local snapshot and stores whatever the server settled on:
// the server copy on update_local, or the accepted snapshot with its server
// stamp on synced. A profile with no local record sends defaults dated at
// the epoch so any server record wins.
func (s *Syncer) Sync(ctx context.Context) (app.SyncDecision, error) {
	p, ok, err := s.local.Load(ctx, s.profile)
	if err != nil {
		return app.SyncDecision{}, domain.StoreError("load local progress", err)
	}
	if !ok {
		p = domain.NewProgress(time.Unix(0, 0).UTC())
	}

	decision, err := s.remote.Sync(ctx, p)
	if err != nil {
		return app.SyncDecision{}, err
	}
	decision.Progress.Normalize()
	if err := s.local.Save(ctx, s.profile, decision.Progress); err != nil {
		return app.SyncDecision{}, domain.StoreError("save local progress", err)
	}
	return decision, nil
}

// Reset clears the server record and history, then the local copy.
func (s *Syncer) Reset(ctx context.Context) error {
	if err := s.remote.Reset(ctx); err != nil {
		return err
	}
	if err := s.local.Delete(ctx, s.profile); err != nil {
		return domain.StoreError("delete local progress", err)
	}
	return nil
}
