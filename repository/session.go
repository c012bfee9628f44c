package repository

import (
	"context"
	"time"

	"github.com/fastygo/tikshop/domain"
)

// SessionRepository is the session-scoped slot holding admin session records.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.AdminSession, error)
	// Save stores the record; it disappears on its own after ttl.
	Save(ctx context.Context, session *domain.AdminSession, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
