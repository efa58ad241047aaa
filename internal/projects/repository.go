package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"devcollab/platform-backend/pkg/apperr"
)

// Constraint names from the schema, used to map unique violations to domain errors.
const (
	constraintApplicationUnique = "uq_applications_project_developer"
	constraintSubmissionUnique  = "uq_submissions_application"
	constraintSingleWinner      = "uq_submissions_project_winner"
)

// Repository is the persistence boundary of the project lifecycle. Calls made on
// the Repository handed to a WithinTx callback share that transaction.
type Repository interface {
	WithinTx(ctx context.Context, fn func(tx Repository) error) error

	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	// LockProject loads the project with SELECT ... FOR UPDATE.
	LockProject(ctx context.Context, id uuid.UUID) (*Project, error)
	UpdateProjectStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error
	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, int64, error)
	ListProjectsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Project, error)

	AddStatusHistory(ctx context.Context, entry *ProjectStatusHistory) error
	ListStatusHistory(ctx context.Context, projectID uuid.UUID) ([]ProjectStatusHistory, error)

	CreateApplication(ctx context.Context, app *Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*Application, error)
	FindApplication(ctx context.Context, projectID, developerID uuid.UUID) (*Application, error)
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status string) error
	CountShortlisted(ctx context.Context, projectID uuid.UUID) (int64, error)
	ListApplications(ctx context.Context, projectID uuid.UUID) ([]Application, error)
	ListApplicationsByDeveloper(ctx context.Context, developerID uuid.UUID) ([]Application, error)

	CreateSubmission(ctx context.Context, sub *Submission) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error)
	FindSubmissionByApplication(ctx context.Context, applicationID uuid.UUID) (*Submission, error)
	UpdateSubmissionReview(ctx context.Context, id uuid.UUID, score int, feedback *string) error
	MarkWinner(ctx context.Context, id uuid.UUID) error
	ListSubmissions(ctx context.Context, projectID uuid.UUID) ([]Submission, error)

	// AddReputation adds delta to a developer's reputation score. Returns a
	// NotFound error when the developer has no profile.
	AddReputation(ctx context.Context, developerID uuid.UUID, delta int) error
	DeveloperStats(ctx context.Context, developerID uuid.UUID) (DeveloperStats, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) CreateProject(ctx context.Context, project *Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *gormRepository) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "project")
	}
	return &project, nil
}

func (r *gormRepository) LockProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&project, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "project")
	}
	return &project, nil
}

func (r *gormRepository) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": at})
	if res.Error != nil {
		return fmt.Errorf("update project status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("project not found")
	}
	return nil
}

// ListProjects returns one page of projects, newest first, and the total match count.
func (r *gormRepository) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, int64, error) {
	query := r.db.WithContext(ctx).Model(&Project{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Skill != "" {
		query = query.Where("EXISTS (SELECT 1 FROM unnest(required_skills) AS s WHERE lower(s) = lower(?))", filter.Skill)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	projects := []Project{}
	err := query.Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&projects).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return projects, total, nil
}

func (r *gormRepository) ListProjectsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Project, error) {
	projects := []Project{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("list owner projects: %w", err)
	}
	return projects, nil
}

func (r *gormRepository) AddStatusHistory(ctx context.Context, entry *ProjectStatusHistory) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("record status change: %w", err)
	}
	return nil
}

func (r *gormRepository) ListStatusHistory(ctx context.Context, projectID uuid.UUID) ([]ProjectStatusHistory, error) {
	history := []ProjectStatusHistory{}
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("changed_at ASC").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return history, nil
}

func (r *gormRepository) CreateApplication(ctx context.Context, app *Application) error {
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (r *gormRepository) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	var app Application
	if err := r.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "application")
	}
	return &app, nil
}

func (r *gormRepository) FindApplication(ctx context.Context, projectID, developerID uuid.UUID) (*Application, error) {
	var app Application
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND developer_id = ?", projectID, developerID).
		First(&app).Error
	if err != nil {
		return nil, notFound(err, "application")
	}
	return &app, nil
}

func (r *gormRepository) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&Application{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update application status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("application not found")
	}
	return nil
}

func (r *gormRepository) CountShortlisted(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Application{}).
		Where("project_id = ? AND status = ?", projectID, ApplicationShortlisted).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count shortlisted: %w", err)
	}
	return count, nil
}

func (r *gormRepository) ListApplications(ctx context.Context, projectID uuid.UUID) ([]Application, error) {
	apps := []Application{}
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("applied_at DESC").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

func (r *gormRepository) ListApplicationsByDeveloper(ctx context.Context, developerID uuid.UUID) ([]Application, error) {
	apps := []Application{}
	err := r.db.WithContext(ctx).
		Where("developer_id = ?", developerID).
		Order("applied_at DESC").
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("list developer applications: %w", err)
	}
	return apps, nil
}

func (r *gormRepository) CreateSubmission(ctx context.Context, sub *Submission) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (r *gormRepository) GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error) {
	var sub Submission
	if err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "submission")
	}
	return &sub, nil
}

func (r *gormRepository) FindSubmissionByApplication(ctx context.Context, applicationID uuid.UUID) (*Submission, error) {
	var sub Submission
	if err := r.db.WithContext(ctx).First(&sub, "application_id = ?", applicationID).Error; err != nil {
		return nil, notFound(err, "submission")
	}
	return &sub, nil
}

func (r *gormRepository) UpdateSubmissionReview(ctx context.Context, id uuid.UUID, score int, feedback *string) error {
	res := r.db.WithContext(ctx).Model(&Submission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"score": score, "feedback": feedback})
	if res.Error != nil {
		return fmt.Errorf("update submission review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("submission not found")
	}
	return nil
}

func (r *gormRepository) MarkWinner(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&Submission{}).Where("id = ?", id).Update("is_winner", true)
	if res.Error != nil {
		return fmt.Errorf("mark winner: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("submission not found")
	}
	return nil
}

func (r *gormRepository) ListSubmissions(ctx context.Context, projectID uuid.UUID) ([]Submission, error) {
	subs := []Submission{}
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("submitted_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

func (r *gormRepository) AddReputation(ctx context.Context, developerID uuid.UUID, delta int) error {
	res := r.db.WithContext(ctx).Table("developer_profiles").
		Where("user_id = ?", developerID).
		Updates(map[string]interface{}{
			"reputation_score": gorm.Expr("reputation_score + ?", delta),
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("add reputation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("developer profile not found")
	}
	return nil
}

func (r *gormRepository) DeveloperStats(ctx context.Context, developerID uuid.UUID) (DeveloperStats, error) {
	var stats DeveloperStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&Application{}).Where("developer_id = ?", developerID).
		Count(&stats.TotalApplications).Error; err != nil {
		return stats, fmt.Errorf("count applications: %w", err)
	}
	if err := db.Model(&Application{}).Where("developer_id = ? AND status = ?", developerID, ApplicationShortlisted).
		Count(&stats.Shortlisted).Error; err != nil {
		return stats, fmt.Errorf("count shortlisted: %w", err)
	}

	submissions := db.Model(&Submission{}).
		Joins("JOIN applications ON applications.id = submissions.application_id").
		Where("applications.developer_id = ?", developerID)
	if err := submissions.Count(&stats.Submissions).Error; err != nil {
		return stats, fmt.Errorf("count submissions: %w", err)
	}
	if err := db.Model(&Submission{}).
		Joins("JOIN applications ON applications.id = submissions.application_id").
		Where("applications.developer_id = ? AND submissions.is_winner", developerID).
		Count(&stats.Wins).Error; err != nil {
		return stats, fmt.Errorf("count wins: %w", err)
	}
	return stats, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return fmt.Errorf("load %s: %w", what, err)
}
