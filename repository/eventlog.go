package repository

import (
	"context"
	"time"

	"github.com/fastygo/tikshop/domain"
)

// EventLog is the bounded, append-only view event store.
type EventLog interface {
	// Append stores the event and evicts the oldest entries beyond capacity.
	Append(ctx context.Context, event domain.ViewEvent, capacity int) error
	// List returns every event, oldest first.
	List(ctx context.Context) ([]domain.ViewEvent, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
	Clear(ctx context.Context) error
}

// PreferenceStore persists small per-client settings.
type PreferenceStore interface {
	GetPreference(ctx context.Context, clientID, key string) (string, error)
	SetPreference(ctx context.Context, clientID, key, value string) error
}
