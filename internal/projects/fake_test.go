package projects

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"devcollab/platform-backend/internal/notifications"
	"devcollab/platform-backend/pkg/apperr"
	"devcollab/platform-backend/pkg/skills"
)

// fakeStore is the state behind fakeRepository. Transactions work on a copy that
// replaces the original on commit.
type fakeStore struct {
	projects   map[uuid.UUID]Project
	apps       map[uuid.UUID]Application
	subs       map[uuid.UUID]Submission
	history    []ProjectStatusHistory
	reputation map[uuid.UUID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:   map[uuid.UUID]Project{},
		apps:       map[uuid.UUID]Application{},
		subs:       map[uuid.UUID]Submission{},
		reputation: map[uuid.UUID]int{},
	}
}

func (s *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	for k, v := range s.projects {
		v.RequiredSkills = append([]string(nil), v.RequiredSkills...)
		c.projects[k] = v
	}
	for k, v := range s.apps {
		c.apps[k] = v
	}
	for k, v := range s.subs {
		c.subs[k] = v
	}
	for k, v := range s.reputation {
		c.reputation[k] = v
	}
	c.history = append([]ProjectStatusHistory(nil), s.history...)
	return c
}

type fakeRepository struct {
	mu    *sync.Mutex
	store *fakeStore
	root  *fakeRepository

	// failAddReputation makes AddReputation fail with a driver-style error.
	failAddReputation bool
}

var _ Repository = (*fakeRepository)(nil)

func newFakeRepository() *fakeRepository {
	r := &fakeRepository{mu: &sync.Mutex{}, store: newFakeStore()}
	r.root = r
	return r
}

// addProfile registers a developer profile with the given reputation.
func (r *fakeRepository) addProfile(developerID uuid.UUID, score int) {
	r.store.reputation[developerID] = score
}

func (r *fakeRepository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	r.root.mu.Lock()
	defer r.root.mu.Unlock()

	tx := &fakeRepository{mu: r.mu, store: r.root.store.clone(), root: r.root, failAddReputation: r.root.failAddReputation}
	if err := fn(tx); err != nil {
		return err
	}
	r.root.store = tx.store
	return nil
}

func (r *fakeRepository) CreateProject(_ context.Context, project *Project) error {
	r.store.projects[project.ID] = *project
	return nil
}

func (r *fakeRepository) GetProject(_ context.Context, id uuid.UUID) (*Project, error) {
	p, ok := r.store.projects[id]
	if !ok {
		return nil, apperr.NotFound("project not found")
	}
	return &p, nil
}

func (r *fakeRepository) LockProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	return r.GetProject(ctx, id)
}

func (r *fakeRepository) UpdateProjectStatus(_ context.Context, id uuid.UUID, status string, at time.Time) error {
	p, ok := r.store.projects[id]
	if !ok {
		return apperr.NotFound("project not found")
	}
	p.Status = status
	p.UpdatedAt = at
	r.store.projects[id] = p
	return nil
}

func (r *fakeRepository) ListProjects(_ context.Context, filter ProjectFilter) ([]Project, int64, error) {
	matched := []Project{}
	for _, p := range r.store.projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Skill != "" && !skills.Contains(p.RequiredSkills, filter.Skill) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return []Project{}, total, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeRepository) ListProjectsByOwner(_ context.Context, ownerID uuid.UUID) ([]Project, error) {
	out := []Project{}
	for _, p := range r.store.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepository) AddStatusHistory(_ context.Context, entry *ProjectStatusHistory) error {
	r.store.history = append(r.store.history, *entry)
	return nil
}

func (r *fakeRepository) ListStatusHistory(_ context.Context, projectID uuid.UUID) ([]ProjectStatusHistory, error) {
	out := []ProjectStatusHistory{}
	for _, h := range r.store.history {
		if h.ProjectID == projectID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeRepository) CreateApplication(_ context.Context, app *Application) error {
	for _, a := range r.store.apps {
		if a.ProjectID == app.ProjectID && a.DeveloperID == app.DeveloperID {
			return uniqueViolation(constraintApplicationUnique)
		}
	}
	r.store.apps[app.ID] = *app
	return nil
}

func (r *fakeRepository) GetApplication(_ context.Context, id uuid.UUID) (*Application, error) {
	a, ok := r.store.apps[id]
	if !ok {
		return nil, apperr.NotFound("application not found")
	}
	return &a, nil
}

func (r *fakeRepository) FindApplication(_ context.Context, projectID, developerID uuid.UUID) (*Application, error) {
	for _, a := range r.store.apps {
		if a.ProjectID == projectID && a.DeveloperID == developerID {
			a := a
			return &a, nil
		}
	}
	return nil, apperr.NotFound("application not found")
}

func (r *fakeRepository) UpdateApplicationStatus(_ context.Context, id uuid.UUID, status string) error {
	a, ok := r.store.apps[id]
	if !ok {
		return apperr.NotFound("application not found")
	}
	a.Status = status
	r.store.apps[id] = a
	return nil
}

func (r *fakeRepository) CountShortlisted(_ context.Context, projectID uuid.UUID) (int64, error) {
	var n int64
	for _, a := range r.store.apps {
		if a.ProjectID == projectID && a.Status == ApplicationShortlisted {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepository) ListApplications(_ context.Context, projectID uuid.UUID) ([]Application, error) {
	out := []Application{}
	for _, a := range r.store.apps {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return out, nil
}

func (r *fakeRepository) ListApplicationsByDeveloper(_ context.Context, developerID uuid.UUID) ([]Application, error) {
	out := []Application{}
	for _, a := range r.store.apps {
		if a.DeveloperID == developerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return out, nil
}

func (r *fakeRepository) CreateSubmission(_ context.Context, sub *Submission) error {
	for _, s := range r.store.subs {
		if s.ApplicationID == sub.ApplicationID {
			return uniqueViolation(constraintSubmissionUnique)
		}
	}
	r.store.subs[sub.ID] = *sub
	return nil
}

func (r *fakeRepository) GetSubmission(_ context.Context, id uuid.UUID) (*Submission, error) {
	s, ok := r.store.subs[id]
	if !ok {
		return nil, apperr.NotFound("submission not found")
	}
	return &s, nil
}

func (r *fakeRepository) FindSubmissionByApplication(_ context.Context, applicationID uuid.UUID) (*Submission, error) {
	for _, s := range r.store.subs {
		if s.ApplicationID == applicationID {
			s := s
			return &s, nil
		}
	}
	return nil, apperr.NotFound("submission not found")
}

func (r *fakeRepository) UpdateSubmissionReview(_ context.Context, id uuid.UUID, score int, feedback *string) error {
	s, ok := r.store.subs[id]
	if !ok {
		return apperr.NotFound("submission not found")
	}
	s.Score = &score
	s.Feedback = feedback
	r.store.subs[id] = s
	return nil
}

func (r *fakeRepository) MarkWinner(_ context.Context, id uuid.UUID) error {
	s, ok := r.store.subs[id]
	if !ok {
		return apperr.NotFound("submission not found")
	}
	for _, other := range r.store.subs {
		if other.ProjectID == s.ProjectID && other.IsWinner {
			return uniqueViolation(constraintSingleWinner)
		}
	}
	s.IsWinner = true
	r.store.subs[id] = s
	return nil
}

func (r *fakeRepository) ListSubmissions(_ context.Context, projectID uuid.UUID) ([]Submission, error) {
	out := []Submission{}
	for _, s := range r.store.subs {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (r *fakeRepository) AddReputation(_ context.Context, developerID uuid.UUID, delta int) error {
	if r.failAddReputation {
		return errors.New("connection reset by peer")
	}
	score, ok := r.store.reputation[developerID]
	if !ok {
		return apperr.NotFound("developer profile not found")
	}
	r.store.reputation[developerID] = score + delta
	return nil
}

func (r *fakeRepository) DeveloperStats(_ context.Context, developerID uuid.UUID) (DeveloperStats, error) {
	var stats DeveloperStats
	for _, a := range r.store.apps {
		if a.DeveloperID != developerID {
			continue
		}
		stats.TotalApplications++
		if a.Status == ApplicationShortlisted {
			stats.Shortlisted++
		}
		for _, s := range r.store.subs {
			if s.ApplicationID == a.ID {
				stats.Submissions++
				if s.IsWinner {
					stats.Wins++
				}
			}
		}
	}
	return stats, nil
}

func (r *fakeRepository) reputationOf(id uuid.UUID) int {
	return r.root.store.reputation[id]
}

func uniqueViolation(constraint string) error {
	return fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraint})
}

// recordingSink collects notifications; err makes every delivery fail.
type recordingSink struct {
	mu   sync.Mutex
	msgs []notifications.Message
	err  error
}

func (s *recordingSink) Notify(_ context.Context, msg notifications.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSink) kinds() []notifications.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifications.Kind, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.Kind)
	}
	return out
}

func (s *recordingSink) forUser(id uuid.UUID) []notifications.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []notifications.Message{}
	for _, m := range s.msgs {
		if m.UserID == id {
			out = append(out, m)
		}
	}
	return out
}
