package http

import (
	"context"
	"io"

	"github.com/govscheme-portal/internal/application/notification"
	"github.com/govscheme-portal/internal/domain"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Save(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	// ScanAll reads the whole table; only scheme fanout uses it.
	ScanAll(ctx context.Context) ([]domain.User, error)
}

// SchemeRepository is the minimal interface the router requires from a scheme store.
type SchemeRepository interface {
	Put(ctx context.Context, s *domain.Scheme) error
	Get(ctx context.Context, schemeID string) (*domain.Scheme, error)
	ListActive(ctx context.Context) ([]domain.Scheme, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Scheme, error)
}

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// TaskQueue accepts background work. Submit must not block.
type TaskQueue interface {
	Submit(kind string, task notification.Task)
}
