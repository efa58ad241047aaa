package settings

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/pkg/apperr"
	"devcollab/platform-backend/pkg/skills"
)

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) GetProfile(ctx context.Context, actor identity.Actor) (*Profile, error) {
	profile := &Profile{Role: string(actor.Role)}
	switch actor.Role {
	case identity.RoleDeveloper:
		dev, err := s.repo.GetDeveloperProfile(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		profile.Developer = dev
	case identity.RoleCompany:
		company, err := s.repo.GetCompanyProfile(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		profile.Company = company
	default:
		return nil, apperr.NotFound("no profile for role " + string(actor.Role))
	}
	return profile, nil
}

// UpdateProfile applies req to the caller's profile. The reputation score is not
// editable.
func (s *Service) UpdateProfile(ctx context.Context, actor identity.Actor, req UpdateProfileRequest) (*Profile, error) {
	profile, err := s.GetProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	if dev := profile.Developer; dev != nil {
		setString(&dev.FullName, req.FullName)
		setString(&dev.Bio, req.Bio)
		setString(&dev.ExperienceLevel, req.ExperienceLevel)
		setString(&dev.PortfolioURL, req.PortfolioURL)
		setString(&dev.GithubURL, req.GithubURL)
		setString(&dev.LinkedinURL, req.LinkedinURL)
		if req.Skills != nil {
			dev.Skills = skills.Normalize(req.Skills)
		}
		if strings.TrimSpace(dev.FullName) == "" {
			return nil, apperr.Validation("invalid profile", map[string]string{"full_name": "is required"})
		}
		dev.UpdatedAt = now
		if err := s.repo.UpdateDeveloperProfile(ctx, dev); err != nil {
			return nil, err
		}
	}

	if company := profile.Company; company != nil {
		setString(&company.CompanyName, req.CompanyName)
		setString(&company.Description, req.Description)
		setString(&company.Website, req.Website)
		setString(&company.Industry, req.Industry)
		setString(&company.Size, req.Size)
		setString(&company.Location, req.Location)
		if strings.TrimSpace(company.CompanyName) == "" {
			return nil, apperr.Validation("invalid profile", map[string]string{"company_name": "is required"})
		}
		company.UpdatedAt = now
		if err := s.repo.UpdateCompanyProfile(ctx, company); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Profile updated", zap.String("user_id", actor.ID.String()))
	return profile, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
