package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/pkg/apperr"
	"devcollab/platform-backend/pkg/workflows"
)

// Listing page sizes.
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// Queries serves the read side: browsing, project detail, the owner's manage view
// and dashboards.
type Queries struct {
	repo         Repository
	stateMachine *workflows.StateMachine
	logger       *zap.Logger
}

func NewQueries(repo Repository, logger *zap.Logger) *Queries {
	return &Queries{
		repo:         repo,
		stateMachine: workflows.NewStateMachine(),
		logger:       logger,
	}
}

// ListProjects returns a page of projects. Status defaults to open.
func (q *Queries) ListProjects(ctx context.Context, filter ProjectFilter) (*ProjectPage, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	if filter.Status == "" {
		filter.Status = workflows.StatusOpen
	}
	if !q.stateMachine.IsKnown(filter.Status) {
		return nil, apperr.Validation("invalid status filter", map[string]string{"status": "unknown status"})
	}
	filter.Skill = strings.TrimSpace(filter.Skill)
	if filter.Page < 1 {
		filter.Page = 1
	}
	switch {
	case filter.PageSize <= 0:
		filter.PageSize = DefaultPageSize
	case filter.PageSize > MaxPageSize:
		filter.PageSize = MaxPageSize
	}

	projects, total, err := q.repo.ListProjects(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list projects", err)
	}
	q.logger.Debug("Listed projects",
		zap.String("status", filter.Status),
		zap.String("skill", filter.Skill),
		zap.Int("page", filter.Page),
		zap.Int64("total", total))
	return &ProjectPage{
		Projects: projects,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	}, nil
}

// GetProject returns the project and, for a developer caller, their own
// application and submission. actor may be nil for anonymous callers.
func (q *Queries) GetProject(ctx context.Context, actor *identity.Actor, projectID uuid.UUID) (*ProjectDetail, error) {
	project, err := q.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, wrapRead(err, "failed to load project")
	}
	detail := &ProjectDetail{Project: project}
	if actor == nil || !actor.Is(identity.RoleDeveloper) {
		return detail, nil
	}

	app, err := q.repo.FindApplication(ctx, project.ID, actor.ID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return detail, nil
	case err != nil:
		return nil, wrapRead(err, "failed to load application")
	}
	detail.MyApplication = app

	sub, err := q.repo.FindSubmissionByApplication(ctx, app.ID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
	case err != nil:
		return nil, wrapRead(err, "failed to load submission")
	default:
		detail.MySubmission = sub
	}
	return detail, nil
}

// Manage returns the owner's view of a project.
func (q *Queries) Manage(ctx context.Context, actor identity.Actor, projectID uuid.UUID) (*ManageView, error) {
	project, err := q.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, wrapRead(err, "failed to load project")
	}
	if project.OwnerID != actor.ID {
		return nil, apperr.Unauthorized("only the project owner can manage this project")
	}

	apps, err := q.repo.ListApplications(ctx, project.ID)
	if err != nil {
		return nil, wrapRead(err, "failed to list applications")
	}
	subs, err := q.repo.ListSubmissions(ctx, project.ID)
	if err != nil {
		return nil, wrapRead(err, "failed to list submissions")
	}
	history, err := q.repo.ListStatusHistory(ctx, project.ID)
	if err != nil {
		return nil, wrapRead(err, "failed to load status history")
	}

	shortlisted := []Application{}
	for _, a := range apps {
		if a.Status == ApplicationShortlisted {
			shortlisted = append(shortlisted, a)
		}
	}
	return &ManageView{
		Project:       project,
		Applications:  apps,
		Shortlisted:   shortlisted,
		Submissions:   subs,
		StatusHistory: history,
	}, nil
}

func (q *Queries) CompanyDashboard(ctx context.Context, actor identity.Actor) (*CompanyDashboard, error) {
	if !actor.Is(identity.RoleCompany) {
		return nil, apperr.Unauthorized("company dashboard requires a company account")
	}
	projects, err := q.repo.ListProjectsByOwner(ctx, actor.ID)
	if err != nil {
		return nil, wrapRead(err, "failed to list projects")
	}

	dash := &CompanyDashboard{TotalProjects: len(projects), Projects: projects}
	for i := range projects {
		switch {
		case projects[i].IsActive():
			dash.ActiveProjects++
		case projects[i].Status == workflows.StatusCompleted:
			dash.CompletedProjects++
		}
	}
	return dash, nil
}

func (q *Queries) DeveloperDashboard(ctx context.Context, actor identity.Actor) (*DeveloperDashboard, error) {
	if !actor.Is(identity.RoleDeveloper) {
		return nil, apperr.Unauthorized("developer dashboard requires a developer account")
	}
	stats, err := q.repo.DeveloperStats(ctx, actor.ID)
	if err != nil {
		return nil, wrapRead(err, "failed to load developer stats")
	}
	apps, err := q.repo.ListApplicationsByDeveloper(ctx, actor.ID)
	if err != nil {
		return nil, wrapRead(err, "failed to list applications")
	}
	return &DeveloperDashboard{DeveloperStats: stats, Applications: apps}, nil
}

// wrapRead passes domain errors through and wraps everything else as Internal.
func wrapRead(err error, message string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(message, fmt.Errorf("read: %w", err))
}
