package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"devcollab/platform-backend/pkg/apperr"
)

// Repository persists accounts and profiles.
type Repository interface {
	// CreateAccount stores the user together with its role profile in one transaction.
	CreateAccount(ctx context.Context, user *User, developer *DeveloperProfile, company *CompanyProfile) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	GetDeveloperProfile(ctx context.Context, userID uuid.UUID) (*DeveloperProfile, error)
	UpdateDeveloperProfile(ctx context.Context, profile *DeveloperProfile) error
	GetCompanyProfile(ctx context.Context, userID uuid.UUID) (*CompanyProfile, error)
	UpdateCompanyProfile(ctx context.Context, profile *CompanyProfile) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateAccount(ctx context.Context, user *User, developer *DeveloperProfile, company *CompanyProfile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if developer != nil {
			if err := tx.Create(developer).Error; err != nil {
				return fmt.Errorf("create developer profile: %w", err)
			}
		}
		if company != nil {
			if err := tx.Create(company).Error; err != nil {
				return fmt.Errorf("create company profile: %w", err)
			}
		}
		return nil
	})
}

func (r *gormRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *gormRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *gormRepository) GetDeveloperProfile(ctx context.Context, userID uuid.UUID) (*DeveloperProfile, error) {
	var profile DeveloperProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "developer profile")
	}
	return &profile, nil
}

// UpdateDeveloperProfile writes the editable columns. reputation_score is never
// written here.
func (r *gormRepository) UpdateDeveloperProfile(ctx context.Context, profile *DeveloperProfile) error {
	res := r.db.WithContext(ctx).Model(&DeveloperProfile{}).
		Where("user_id = ?", profile.UserID).
		Updates(map[string]interface{}{
			"full_name":        profile.FullName,
			"bio":              profile.Bio,
			"skills":           profile.Skills,
			"experience_level": profile.ExperienceLevel,
			"portfolio_url":    profile.PortfolioURL,
			"github_url":       profile.GithubURL,
			"linkedin_url":     profile.LinkedinURL,
			"updated_at":       profile.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update developer profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("developer profile not found")
	}
	return nil
}

func (r *gormRepository) GetCompanyProfile(ctx context.Context, userID uuid.UUID) (*CompanyProfile, error) {
	var profile CompanyProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "company profile")
	}
	return &profile, nil
}

func (r *gormRepository) UpdateCompanyProfile(ctx context.Context, profile *CompanyProfile) error {
	res := r.db.WithContext(ctx).Model(&CompanyProfile{}).
		Where("user_id = ?", profile.UserID).
		Updates(map[string]interface{}{
			"company_name": profile.CompanyName,
			"description":  profile.Description,
			"website":      profile.Website,
			"industry":     profile.Industry,
			"size":         profile.Size,
			"location":     profile.Location,
			"updated_at":   profile.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update company profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("company profile not found")
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return fmt.Errorf("load %s: %w", what, err)
}
