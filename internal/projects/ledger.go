package projects

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"devcollab/platform-backend/pkg/apperr"
)

// Ledger answers the application and submission questions the lifecycle asks
// inside a transaction. The schema's UNIQUE constraints stay authoritative; these
// checks give the caller a precise error before the insert is attempted.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

func (l *Ledger) ShortlistedCount(ctx context.Context, projectID uuid.UUID) (int, error) {
	n, err := l.repo.CountShortlisted(ctx, projectID)
	return int(n), err
}

func (l *Ledger) HasApplication(ctx context.Context, projectID, developerID uuid.UUID) (bool, error) {
	return exists(l.repo.FindApplication(ctx, projectID, developerID))
}

func (l *Ledger) HasSubmission(ctx context.Context, applicationID uuid.UUID) (bool, error) {
	return exists(l.repo.FindSubmissionByApplication(ctx, applicationID))
}

// ParticipationCredits returns the developers owed participation credit when
// winner wins: every other shortlisted application on the project that has a
// submission.
func (l *Ledger) ParticipationCredits(ctx context.Context, projectID uuid.UUID, winner *Application) ([]uuid.UUID, error) {
	apps, err := l.repo.ListApplications(ctx, projectID)
	if err != nil {
		return nil, err
	}
	subs, err := l.repo.ListSubmissions(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return EligibleParticipants(apps, subs, winner.ID), nil
}

// EligibleParticipants picks the developers of shortlisted applications that have
// a submission, excluding the winning application. Order follows apps.
func EligibleParticipants(apps []Application, subs []Submission, winnerApplicationID uuid.UUID) []uuid.UUID {
	submitted := make(map[uuid.UUID]bool, len(subs))
	for _, s := range subs {
		submitted[s.ApplicationID] = true
	}

	out := []uuid.UUID{}
	for _, a := range apps {
		if a.ID == winnerApplicationID || a.Status != ApplicationShortlisted || !submitted[a.ID] {
			continue
		}
		out = append(out, a.DeveloperID)
	}
	return out
}

func exists[T any](_ *T, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return false, err
}
