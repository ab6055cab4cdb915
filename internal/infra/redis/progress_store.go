package redis

import (
	"context"
	"encoding/json"
	"errors"

	"exam-progress-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ProgressStore keeps one JSON snapshot per identity:
//
//	SET exam:progress:{userID} {snapshot}
//
// A single SET replaces the whole record, which is all last-write-wins needs.
type ProgressStore struct {
	client *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) Load(ctx context.Context, userID string) (domain.Progress, bool, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, err
	}
	var p domain.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Progress{}, false, err
	}
	return p, true, nil
}

func (s *ProgressStore) Save(ctx context.Context, userID string, p domain.Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID), raw, 0).Err()
}

func (s *ProgressStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *ProgressStore) key(userID string) string {
	return "exam:progress:" + userID
}
