package settings

import (
	"context"

	"github.com/google/uuid"

	"devcollab/platform-backend/internal/auth"
)

// Repository is the profile storage used by settings. auth.Repository satisfies it.
type Repository interface {
	GetDeveloperProfile(ctx context.Context, userID uuid.UUID) (*auth.DeveloperProfile, error)
	UpdateDeveloperProfile(ctx context.Context, profile *auth.DeveloperProfile) error
	GetCompanyProfile(ctx context.Context, userID uuid.UUID) (*auth.CompanyProfile, error)
	UpdateCompanyProfile(ctx context.Context, profile *auth.CompanyProfile) error
}

var _ Repository = auth.Repository(nil)
