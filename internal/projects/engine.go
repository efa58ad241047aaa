package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/database"
	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/internal/notifications"
	"devcollab/platform-backend/pkg/apperr"
	"devcollab/platform-backend/pkg/skills"
	"devcollab/platform-backend/pkg/workflows"
)

// Lifecycle is the set of operations that move a project through its states.
// Each call runs in one transaction with the project row locked; failed
// preconditions leave stored state untouched.
type Lifecycle interface {
	CreateProject(ctx context.Context, actor identity.Actor, in CreateProjectInput) (*Project, error)
	Apply(ctx context.Context, actor identity.Actor, projectID uuid.UUID, in ApplyInput) (*Application, error)
	Shortlist(ctx context.Context, actor identity.Actor, applicationID uuid.UUID) (*Application, error)
	SubmitWork(ctx context.Context, actor identity.Actor, applicationID uuid.UUID, in SubmitWorkInput) (*Submission, error)
	GiveFeedback(ctx context.Context, actor identity.Actor, submissionID uuid.UUID, in FeedbackInput) (*Submission, error)
	DeclareWinner(ctx context.Context, actor identity.Actor, submissionID uuid.UUID) (*Settlement, error)
	CancelProject(ctx context.Context, actor identity.Actor, projectID uuid.UUID) (*Project, error)
}

// Metrics receives lifecycle events after a successful commit, and rejections.
type Metrics interface {
	Transition(from, to string)
	Rejected(operation string, kind apperr.Kind)
	ReputationAwarded(reason string, points int)
}

type noopMetrics struct{}

func (noopMetrics) Transition(string, string)     {}
func (noopMetrics) Rejected(string, apperr.Kind)  {}
func (noopMetrics) ReputationAwarded(string, int) {}

// Engine implements Lifecycle.
type Engine struct {
	repo         Repository
	sink         notifications.Sink
	stateMachine *workflows.StateMachine
	metrics      Metrics
	logger       *zap.Logger
	now          func() time.Time
}

var _ Lifecycle = (*Engine)(nil)

type EngineOption func(*Engine)

func WithMetrics(m Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(repo Repository, sink notifications.Sink, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		repo:         repo,
		sink:         sink,
		stateMachine: workflows.NewStateMachine(),
		metrics:      noopMetrics{},
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// effects are collected inside the transaction and applied after commit.
type effects struct {
	notes  []notifications.Message
	moves  []statusMove
	awards []Award
}

type statusMove struct {
	projectID uuid.UUID
	from, to  string
	by        uuid.UUID
}

func (fx *effects) notify(msg notifications.Message) {
	fx.notes = append(fx.notes, msg)
}

// run executes fn in a transaction and, once committed, records metrics and
// delivers notifications. Notification failures are logged and never undo the
// committed state.
func (e *Engine) run(ctx context.Context, operation string, fn func(tx Repository, fx *effects) error) error {
	fx := &effects{}
	err := e.repo.WithinTx(ctx, func(tx Repository) error {
		return fn(tx, fx)
	})
	if err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			err = apperr.Internal(operation+" failed", err)
		}
		e.metrics.Rejected(operation, apperr.KindOf(err))
		if apperr.KindOf(err) == apperr.KindInternal {
			e.logger.Error("Lifecycle operation failed", zap.String("operation", operation), zap.Error(err))
		}
		return err
	}

	for _, m := range fx.moves {
		e.metrics.Transition(m.from, m.to)
		e.logger.Info("Project status changed",
			zap.String("project_id", m.projectID.String()),
			zap.String("from", m.from),
			zap.String("to", m.to),
			zap.String("changed_by", m.by.String()))
	}
	for _, a := range fx.awards {
		e.metrics.ReputationAwarded(a.Reason, a.Points)
	}

	deliverCtx := context.WithoutCancel(ctx)
	for _, msg := range fx.notes {
		if err := e.sink.Notify(deliverCtx, msg); err != nil {
			e.logger.Warn("Failed to deliver notification",
				zap.String("operation", operation),
				zap.String("user_id", msg.UserID.String()),
				zap.String("kind", string(msg.Kind)),
				zap.Error(err))
		}
	}
	return nil
}

// transition moves p to status `to`, recording history. The state machine is the
// only authority on allowed moves.
func (e *Engine) transition(ctx context.Context, tx Repository, fx *effects, p *Project, to string, by uuid.UUID) error {
	from := p.Status
	if !e.stateMachine.CanTransition(from, to) {
		return apperr.InvalidState(fmt.Sprintf("project cannot move from %s to %s", from, to))
	}
	now := e.clock()
	if err := tx.UpdateProjectStatus(ctx, p.ID, to, now); err != nil {
		return err
	}
	if err := tx.AddStatusHistory(ctx, &ProjectStatusHistory{
		ID:         uuid.New(),
		ProjectID:  p.ID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  by,
		ChangedAt:  now,
	}); err != nil {
		return err
	}
	p.Status = to
	p.UpdatedAt = now
	fx.moves = append(fx.moves, statusMove{projectID: p.ID, from: from, to: to, by: by})
	return nil
}

func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

func (e *Engine) CreateProject(ctx context.Context, actor identity.Actor, in CreateProjectInput) (*Project, error) {
	if !actor.Is(identity.RoleCompany) {
		return nil, apperr.Unauthorized("only companies can create projects")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := e.clock()
	project := &Project{
		ID:                  uuid.New(),
		OwnerID:             actor.ID,
		Title:               strings.TrimSpace(in.Title),
		Description:         strings.TrimSpace(in.Description),
		RequiredSkills:      skills.Normalize(in.RequiredSkills),
		Deadline:            in.Deadline.UTC().Truncate(time.Microsecond),
		WinnerReward:        in.WinnerReward,
		ParticipationReward: in.ParticipationReward,
		MaxShortlist:        in.MaxShortlist,
		Status:              workflows.StatusOpen,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err := e.run(ctx, "create_project", func(tx Repository, fx *effects) error {
		if err := tx.CreateProject(ctx, project); err != nil {
			return err
		}
		return tx.AddStatusHistory(ctx, &ProjectStatusHistory{
			ID:         uuid.New(),
			ProjectID:  project.ID,
			FromStatus: "",
			ToStatus:   workflows.StatusOpen,
			ChangedBy:  actor.ID,
			ChangedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Project created",
		zap.String("project_id", project.ID.String()),
		zap.String("owner_id", actor.ID.String()),
		zap.Int("max_shortlist", project.MaxShortlist))
	return project, nil
}

func (e *Engine) Apply(ctx context.Context, actor identity.Actor, projectID uuid.UUID, in ApplyInput) (*Application, error) {
	if !actor.Is(identity.RoleDeveloper) {
		return nil, apperr.Unauthorized("only developers can apply to projects")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var app *Application
	err := e.run(ctx, "apply", func(tx Repository, fx *effects) error {
		project, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}

		applied, err := NewLedger(tx).HasApplication(ctx, project.ID, actor.ID)
		if err != nil {
			return err
		}
		if applied {
			return apperr.New(apperr.KindDuplicateApplication, "you have already applied to this project")
		}
		if project.Status != workflows.StatusOpen {
			return apperr.InvalidState("project is no longer accepting applications")
		}

		app = &Application{
			ID:          uuid.New(),
			ProjectID:   project.ID,
			DeveloperID: actor.ID,
			CoverLetter: strings.TrimSpace(in.CoverLetter),
			Status:      ApplicationPending,
			AppliedAt:   e.clock(),
		}
		if err := tx.CreateApplication(ctx, app); err != nil {
			if database.IsUniqueViolation(err, constraintApplicationUnique) {
				return apperr.Wrap(apperr.KindDuplicateApplication, "you have already applied to this project", err)
			}
			return err
		}

		fx.notify(notifications.Message{
			UserID:  project.OwnerID,
			Title:   "New Application",
			Message: fmt.Sprintf("A developer applied to %q", project.Title),
			Kind:    notifications.KindApplication,
			Data:    map[string]string{"project_id": project.ID.String(), "application_id": app.ID.String()},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (e *Engine) Shortlist(ctx context.Context, actor identity.Actor, applicationID uuid.UUID) (*Application, error) {
	var app *Application
	err := e.run(ctx, "shortlist", func(tx Repository, fx *effects) error {
		project, current, err := lockApplication(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if project.OwnerID != actor.ID {
			return apperr.Unauthorized("only the project owner can shortlist")
		}
		if !project.IsActive() {
			return apperr.InvalidState(fmt.Sprintf("project is %s", project.Status))
		}
		switch current.Status {
		case ApplicationShortlisted:
			return apperr.InvalidState("application is already shortlisted")
		case ApplicationRejected:
			return apperr.InvalidState("application was rejected")
		}

		count, err := NewLedger(tx).ShortlistedCount(ctx, project.ID)
		if err != nil {
			return err
		}
		if count >= project.MaxShortlist {
			return apperr.New(apperr.KindCapacityExceeded,
				fmt.Sprintf("shortlist is full (%d of %d)", count, project.MaxShortlist))
		}

		if err := tx.UpdateApplicationStatus(ctx, current.ID, ApplicationShortlisted); err != nil {
			return err
		}
		current.Status = ApplicationShortlisted

		if project.Status == workflows.StatusOpen {
			if err := e.transition(ctx, tx, fx, project, workflows.StatusShortlisting, actor.ID); err != nil {
				return err
			}
		}

		fx.notify(notifications.Message{
			UserID:  current.DeveloperID,
			Title:   "Shortlisted!",
			Message: fmt.Sprintf("You have been shortlisted for project %q", project.Title),
			Kind:    notifications.KindShortlist,
			Data:    map[string]string{"project_id": project.ID.String(), "application_id": current.ID.String()},
		})
		app = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (e *Engine) SubmitWork(ctx context.Context, actor identity.Actor, applicationID uuid.UUID, in SubmitWorkInput) (*Submission, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var sub *Submission
	err := e.run(ctx, "submit_work", func(tx Repository, fx *effects) error {
		project, app, err := lockApplication(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if app.DeveloperID != actor.ID {
			return apperr.Unauthorized("only the applicant can submit work")
		}
		submitted, err := NewLedger(tx).HasSubmission(ctx, app.ID)
		if err != nil {
			return err
		}
		if submitted {
			return apperr.New(apperr.KindAlreadySubmitted, "work was already submitted for this application")
		}
		if app.Status != ApplicationShortlisted {
			return apperr.InvalidState("you must be shortlisted to submit work")
		}
		if !project.IsActive() {
			return apperr.InvalidState(fmt.Sprintf("project is %s", project.Status))
		}

		sub = &Submission{
			ID:            uuid.New(),
			ApplicationID: app.ID,
			ProjectID:     project.ID,
			GithubURL:     strings.TrimSpace(in.GithubURL),
			DemoURL:       strings.TrimSpace(in.DemoURL),
			FigmaURL:      strings.TrimSpace(in.FigmaURL),
			Description:   strings.TrimSpace(in.Description),
			SubmittedAt:   e.clock(),
		}
		if err := tx.CreateSubmission(ctx, sub); err != nil {
			if database.IsUniqueViolation(err, constraintSubmissionUnique) {
				return apperr.Wrap(apperr.KindAlreadySubmitted, "work was already submitted for this application", err)
			}
			return err
		}

		if project.Status == workflows.StatusShortlisting {
			if err := e.transition(ctx, tx, fx, project, workflows.StatusSubmission, actor.ID); err != nil {
				return err
			}
		}

		fx.notify(notifications.Message{
			UserID:  project.OwnerID,
			Title:   "New Submission",
			Message: fmt.Sprintf("Work was submitted for %q", project.Title),
			Kind:    notifications.KindSubmission,
			Data:    map[string]string{"project_id": project.ID.String(), "submission_id": sub.ID.String()},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (e *Engine) GiveFeedback(ctx context.Context, actor identity.Actor, submissionID uuid.UUID, in FeedbackInput) (*Submission, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var sub *Submission
	err := e.run(ctx, "give_feedback", func(tx Repository, fx *effects) error {
		project, current, err := lockSubmission(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		if project.OwnerID != actor.ID {
			return apperr.Unauthorized("only the project owner can review submissions")
		}

		// Feedback text is optional; blank is stored as NULL.
		var feedback *string
		if text := strings.TrimSpace(in.Feedback); text != "" {
			feedback = &text
		}
		if err := tx.UpdateSubmissionReview(ctx, current.ID, in.Score, feedback); err != nil {
			return err
		}
		score := in.Score
		current.Score = &score
		current.Feedback = feedback

		app, err := tx.GetApplication(ctx, current.ApplicationID)
		if err != nil {
			return err
		}
		fx.notify(notifications.Message{
			UserID:  app.DeveloperID,
			Title:   "Feedback received",
			Message: fmt.Sprintf("Your submission for %q was scored %d/10", project.Title, score),
			Kind:    notifications.KindFeedback,
			Data:    map[string]string{"project_id": project.ID.String(), "submission_id": current.ID.String()},
		})
		sub = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// DeclareWinner marks the submission as the winner, completes the project and
// settles reputation. A project is decided once.
func (e *Engine) DeclareWinner(ctx context.Context, actor identity.Actor, submissionID uuid.UUID) (*Settlement, error) {
	var result *Settlement
	err := e.run(ctx, "declare_winner", func(tx Repository, fx *effects) error {
		project, sub, err := lockSubmission(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		if project.OwnerID != actor.ID {
			return apperr.Unauthorized("only the project owner can declare a winner")
		}
		switch project.Status {
		case workflows.StatusSubmission:
		case workflows.StatusCompleted:
			return apperr.New(apperr.KindAlreadyDecided, "a winner has already been declared for this project")
		default:
			return apperr.InvalidState(fmt.Sprintf("cannot declare a winner while project is %s", project.Status))
		}

		winnerApp, err := tx.GetApplication(ctx, sub.ApplicationID)
		if err != nil {
			return err
		}

		if err := tx.MarkWinner(ctx, sub.ID); err != nil {
			if database.IsUniqueViolation(err, constraintSingleWinner) {
				return apperr.Wrap(apperr.KindAlreadyDecided, "a winner has already been declared for this project", err)
			}
			return err
		}
		sub.IsWinner = true

		if err := e.transition(ctx, tx, fx, project, workflows.StatusCompleted, actor.ID); err != nil {
			return err
		}

		settlement, err := e.settle(ctx, tx, project, winnerApp)
		if err != nil {
			return err
		}
		settlement.Winner = sub
		fx.awards = settlement.Awards

		fx.notify(notifications.Message{
			UserID:  winnerApp.DeveloperID,
			Title:   "Congratulations! You Won!",
			Message: fmt.Sprintf("You won the project %q and earned $%.2f!", project.Title, project.WinnerReward),
			Kind:    notifications.KindWinner,
			Data:    map[string]string{"project_id": project.ID.String(), "submission_id": sub.ID.String()},
		})
		result = settlement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// settle credits reputation inside the winner's transaction. Developers without a
// profile are skipped.
func (e *Engine) settle(ctx context.Context, tx Repository, project *Project, winner *Application) (*Settlement, error) {
	participants, err := NewLedger(tx).ParticipationCredits(ctx, project.ID, winner)
	if err != nil {
		return nil, err
	}

	settlement := &Settlement{Project: project, Awards: []Award{}}
	for _, award := range ComputeAwards(winner.DeveloperID, participants) {
		err := tx.AddReputation(ctx, award.DeveloperID, award.Points)
		if errors.Is(err, apperr.ErrNotFound) {
			e.logger.Warn("Skipping reputation award, developer profile missing",
				zap.String("project_id", project.ID.String()),
				zap.String("developer_id", award.DeveloperID.String()),
				zap.String("reason", award.Reason))
			settlement.Skipped = append(settlement.Skipped, award.DeveloperID)
			continue
		}
		if err != nil {
			return nil, err
		}
		settlement.Awards = append(settlement.Awards, award)
	}
	return settlement, nil
}

// CancelProject moves a non-terminal project to cancelled. Admin only.
func (e *Engine) CancelProject(ctx context.Context, actor identity.Actor, projectID uuid.UUID) (*Project, error) {
	if !actor.Is(identity.RoleAdmin) {
		return nil, apperr.Unauthorized("only administrators can cancel projects")
	}

	var project *Project
	err := e.run(ctx, "cancel_project", func(tx Repository, fx *effects) error {
		p, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		if e.stateMachine.IsTerminal(p.Status) {
			return apperr.InvalidState(fmt.Sprintf("project is already %s", p.Status))
		}
		if err := e.transition(ctx, tx, fx, p, workflows.StatusCancelled, actor.ID); err != nil {
			return err
		}

		apps, err := tx.ListApplications(ctx, p.ID)
		if err != nil {
			return err
		}
		recipients := []uuid.UUID{p.OwnerID}
		for _, a := range apps {
			recipients = append(recipients, a.DeveloperID)
		}
		for _, userID := range recipients {
			fx.notify(notifications.Message{
				UserID:  userID,
				Title:   "Project cancelled",
				Message: fmt.Sprintf("Project %q was cancelled by an administrator", p.Title),
				Kind:    notifications.KindCancelled,
				Data:    map[string]string{"project_id": p.ID.String()},
			})
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// lockApplication locks the application's project and re-reads the application
// under that lock.
func lockApplication(ctx context.Context, tx Repository, applicationID uuid.UUID) (*Project, *Application, error) {
	app, err := tx.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	project, err := tx.LockProject(ctx, app.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	app, err = tx.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	return project, app, nil
}

// lockSubmission locks the submission's project and re-reads the submission
// under that lock.
func lockSubmission(ctx context.Context, tx Repository, submissionID uuid.UUID) (*Project, *Submission, error) {
	sub, err := tx.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	project, err := tx.LockProject(ctx, sub.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	sub, err = tx.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	return project, sub, nil
}
