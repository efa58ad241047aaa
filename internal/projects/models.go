package projects

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"devcollab/platform-backend/pkg/workflows"
)

// Application statuses.
const (
	ApplicationPending     = "pending"
	ApplicationShortlisted = "shortlisted"
	ApplicationRejected    = "rejected"
)

// Project is a paid brief posted by a company. Projects are never deleted; they
// end in completed or cancelled.
type Project struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title               string         `gorm:"not null" json:"title"`
	Description         string         `gorm:"not null" json:"description"`
	RequiredSkills      pq.StringArray `gorm:"type:text[]" json:"required_skills"`
	Deadline            time.Time      `gorm:"not null" json:"deadline"`
	WinnerReward        float64        `gorm:"type:numeric(12,2);not null" json:"winner_reward"`
	ParticipationReward float64        `gorm:"type:numeric(12,2);not null;default:0" json:"participation_reward"`
	MaxShortlist        int            `gorm:"not null" json:"max_shortlist"`
	Status              string         `gorm:"not null;default:'open'" json:"status"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

func (p *Project) IsActive() bool {
	switch p.Status {
	case workflows.StatusOpen, workflows.StatusShortlisting, workflows.StatusSubmission:
		return true
	}
	return false
}

// Application is a developer's bid on a project. One per (project, developer).
type Application struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null" json:"project_id"`
	DeveloperID uuid.UUID `gorm:"type:uuid;not null" json:"developer_id"`
	CoverLetter string    `json:"cover_letter"`
	Status      string    `gorm:"not null;default:'pending'" json:"status"`
	AppliedAt   time.Time `gorm:"not null" json:"applied_at"`
}

// Submission is the work delivered for a shortlisted application. One per application.
type Submission struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null" json:"application_id"`
	ProjectID     uuid.UUID `gorm:"type:uuid;not null" json:"project_id"`
	GithubURL     string    `json:"github_url"`
	DemoURL       string    `json:"demo_url"`
	FigmaURL      string    `json:"figma_url"`
	Description   string    `json:"description"`
	Score         *int      `json:"score"`
	Feedback      *string   `json:"feedback"`
	IsWinner      bool      `gorm:"not null;default:false" json:"is_winner"`
	SubmittedAt   time.Time `gorm:"not null" json:"submitted_at"`
}

// ProjectStatusHistory records every lifecycle transition.
type ProjectStatusHistory struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null" json:"project_id"`
	FromStatus string    `gorm:"not null" json:"from_status"`
	ToStatus   string    `gorm:"not null" json:"to_status"`
	ChangedBy  uuid.UUID `gorm:"type:uuid;not null" json:"changed_by"`
	ChangedAt  time.Time `gorm:"not null" json:"changed_at"`
}

func (ProjectStatusHistory) TableName() string { return "project_status_history" }

// ProjectFilter selects projects for the public listing.
type ProjectFilter struct {
	Status   string
	Skill    string
	Page     int
	PageSize int
}

// ProjectPage is one page of the public listing.
type ProjectPage struct {
	Projects []Project `json:"projects"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int64     `json:"total"`
}

// ProjectDetail is a project as seen by the caller.
type ProjectDetail struct {
	Project       *Project     `json:"project"`
	MyApplication *Application `json:"my_application,omitempty"`
	MySubmission  *Submission  `json:"my_submission,omitempty"`
}

// ManageView is the owner's view of a project.
type ManageView struct {
	Project       *Project               `json:"project"`
	Applications  []Application          `json:"applications"`
	Shortlisted   []Application          `json:"shortlisted"`
	Submissions   []Submission           `json:"submissions"`
	StatusHistory []ProjectStatusHistory `json:"status_history"`
}

// CompanyDashboard summarises a company's projects.
type CompanyDashboard struct {
	TotalProjects     int       `json:"total_projects"`
	ActiveProjects    int       `json:"active_projects"`
	CompletedProjects int       `json:"completed_projects"`
	Projects          []Project `json:"projects"`
}

// DeveloperStats are the counters shown on a developer's dashboard.
type DeveloperStats struct {
	TotalApplications int64 `json:"total_applications"`
	Shortlisted       int64 `json:"shortlisted"`
	Submissions       int64 `json:"submissions"`
	Wins              int64 `json:"wins"`
}

// DeveloperDashboard adds the developer's applications to the counters.
type DeveloperDashboard struct {
	DeveloperStats
	Applications []Application `json:"applications"`
}
