package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/repository"
)

type sessionRepository struct {
	client *redislib.Client
	prefix string
}

// NewSessionRepository creates a Redis-backed admin session repository.
// Records expire with their TTL, which plays the role of the session-scoped slot.
func NewSessionRepository(client *redislib.Client) repository.SessionRepository {
	return &sessionRepository{
		client: client,
		prefix: "admin_session:",
	}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.AdminSession, error) {
	if id == "" {
		return nil, domain.ErrSessionNotFound
	}
	result, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.AdminSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		// an unreadable record is as good as none
		_ = r.client.Del(ctx, r.key(id)).Err()
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.AdminSession, ttl time.Duration) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(session.ID), payload, ttl).Err()
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *sessionRepository) key(id string) string {
	return fmt.Sprintf("%s%s", r.prefix, id)
}
