package repository

import (
	"context"

	"github.com/Sumit771/1-2-1/internal/domain"
)

// UserRepository stores user accounts. Lookups return (nil, nil) when no
// row matches.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// List returns every user ordered by creation time.
	List(ctx context.Context) ([]domain.User, error)
	// Search matches query as a case-insensitive substring of username or email.
	Search(ctx context.Context, query string) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// Delete reports whether a user was removed.
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}
