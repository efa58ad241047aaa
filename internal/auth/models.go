package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"devcollab/platform-backend/internal/identity"
)

// User is an account on the platform.
type User struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string        `gorm:"not null;uniqueIndex" json:"username"`
	Email        string        `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string        `gorm:"not null" json:"-"`
	Role         identity.Role `gorm:"type:varchar(20);not null" json:"role"`
	IsActive     bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time     `json:"created_at"`
}

func (User) TableName() string { return "users" }

func (u *User) Actor() identity.Actor {
	return identity.Actor{ID: u.ID, Role: u.Role}
}

// DeveloperProfile holds the public profile of a developer. ReputationScore is
// only changed by winner settlement.
type DeveloperProfile struct {
	UserID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName        string         `gorm:"not null" json:"full_name"`
	Bio             string         `json:"bio"`
	Skills          pq.StringArray `gorm:"type:text[]" json:"skills"`
	ExperienceLevel string         `json:"experience_level"`
	PortfolioURL    string         `json:"portfolio_url"`
	GithubURL       string         `json:"github_url"`
	LinkedinURL     string         `json:"linkedin_url"`
	ReputationScore int            `gorm:"not null;default:0" json:"reputation_score"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (DeveloperProfile) TableName() string { return "developer_profiles" }

// CompanyProfile holds the public profile of a company.
type CompanyProfile struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CompanyName string    `gorm:"not null" json:"company_name"`
	Description string    `json:"description"`
	Website     string    `json:"website"`
	Industry    string    `json:"industry"`
	Size        string    `json:"size"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (CompanyProfile) TableName() string { return "company_profiles" }

// Requests

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=80"`
	Email    string `json:"email" binding:"required,email,max=120"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required,oneof=company developer"`
	Name     string `json:"name" binding:"required,max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Responses

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}

type MeResponse struct {
	User             *User             `json:"user"`
	DeveloperProfile *DeveloperProfile `json:"developer_profile,omitempty"`
	CompanyProfile   *CompanyProfile   `json:"company_profile,omitempty"`
}
