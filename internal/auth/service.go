package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"devcollab/platform-backend/internal/database"
	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/pkg/apperr"
)

// Service registers accounts and issues bearer tokens.
type Service struct {
	repo       Repository
	issuer     *identity.TokenIssuer
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(repo Repository, issuer *identity.TokenIssuer, bcryptCost int, logger *zap.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		issuer:     issuer,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates a company or developer account with an empty profile.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	role, err := identity.ParseRole(req.Role)
	if err != nil || role == identity.RoleAdmin {
		return nil, apperr.Validation("invalid role", map[string]string{"role": "must be one of: company developer"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
	}

	var developer *DeveloperProfile
	var company *CompanyProfile
	switch role {
	case identity.RoleDeveloper:
		developer = &DeveloperProfile{UserID: user.ID, FullName: strings.TrimSpace(req.Name), Skills: []string{}, CreatedAt: now, UpdatedAt: now}
	case identity.RoleCompany:
		company = &CompanyProfile{UserID: user.ID, CompanyName: strings.TrimSpace(req.Name), CreatedAt: now, UpdatedAt: now}
	}

	if err := s.repo.CreateAccount(ctx, user, developer, company); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, apperr.Validation("account already exists", map[string]string{"email": "username or email already registered"})
		}
		return nil, apperr.Internal("failed to create account", err)
	}

	s.logger.Info("Account registered", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))
	return user, nil
}

// Login verifies the credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	invalid := apperr.Unauthorized("invalid email or password")

	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, invalid
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalid
	}

	token, expiresAt, err := s.issuer.Issue(user.Actor())
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// Me returns the caller's account and role profile.
func (s *Service) Me(ctx context.Context, actor identity.Actor) (*MeResponse, error) {
	user, err := s.repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	resp := &MeResponse{User: user}
	switch user.Role {
	case identity.RoleDeveloper:
		profile, err := s.repo.GetDeveloperProfile(ctx, user.ID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		resp.DeveloperProfile = profile
	case identity.RoleCompany:
		profile, err := s.repo.GetCompanyProfile(ctx, user.ID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		resp.CompanyProfile = profile
	}
	return resp, nil
}
