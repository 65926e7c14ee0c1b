package repository

import (
	"context"

	"github.com/alexanderramin/coursetrack/internal/domain"
)

// KVStore is the local string key-value persistence used for completed
// lesson sets. Get returns an error wrapping ErrNotFound for missing keys.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// SessionRepo persists the single active learner session.
type SessionRepo interface {
	Save(ctx context.Context, s *domain.Session) error
	GetActive(ctx context.Context) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}
