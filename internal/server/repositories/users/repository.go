// Package users persists accounts, their handle index and profile attributes.
package users

import (
	"context"

	"github.com/resdex/resdex/internal/profile"
	"github.com/resdex/resdex/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// CreateHandle claims the lowercased handle for userID. A taken handle
	// yields common.ErrorAlreadyExists.
	CreateHandle(ctx context.Context, handle, userID string) error
	GetByHandle(ctx context.Context, handle string) (*models.User, error)
	FindIDByHandle(ctx context.Context, handle string) (string, error)

	GetProfile(ctx context.Context, userID string) (*profile.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, patch profile.Patch) error
	ListProfiles(ctx context.Context, limit int) ([]profile.UserProfile, error)
}
