package settings

import "devcollab/platform-backend/internal/auth"

// Profile is the caller's editable profile. Exactly one of the role sections is set.
type Profile struct {
	Role      string                 `json:"role"`
	Developer *auth.DeveloperProfile `json:"developer,omitempty"`
	Company   *auth.CompanyProfile   `json:"company,omitempty"`
}

// UpdateProfileRequest carries the editable fields of both profile kinds. Nil
// fields are left unchanged; fields of the other role are ignored.
type UpdateProfileRequest struct {
	// developer
	FullName        *string  `json:"full_name" binding:"omitempty,min=1,max=200"`
	Bio             *string  `json:"bio" binding:"omitempty,max=5000"`
	Skills          []string `json:"skills" binding:"omitempty,max=50"`
	ExperienceLevel *string  `json:"experience_level" binding:"omitempty,oneof=junior mid senior lead"`
	PortfolioURL    *string  `json:"portfolio_url" binding:"omitempty,url,max=200"`
	GithubURL       *string  `json:"github_url" binding:"omitempty,url,max=200"`
	LinkedinURL     *string  `json:"linkedin_url" binding:"omitempty,url,max=200"`

	// company
	CompanyName *string `json:"company_name" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Website     *string `json:"website" binding:"omitempty,url,max=200"`
	Industry    *string `json:"industry" binding:"omitempty,max=100"`
	Size        *string `json:"size" binding:"omitempty,max=50"`
	Location    *string `json:"location" binding:"omitempty,max=200"`
}
