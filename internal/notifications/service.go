package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"devcollab/platform-backend/pkg/apperr"
)

const maxListLimit = 100

// Sink accepts notifications produced by the project lifecycle.
type Sink interface {
	Notify(ctx context.Context, msg Message) error
}

// Service is the notification sink and the per-user inbox.
type Service struct {
	repo         Repository
	logger       *zap.Logger
	defaultLimit int
	now          func() time.Time
}

func NewService(repo Repository, defaultLimit int, logger *zap.Logger) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &Service{
		repo:         repo,
		logger:       logger,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// Notify appends a notification to the user's inbox.
func (s *Service) Notify(ctx context.Context, msg Message) error {
	if msg.UserID == uuid.Nil || strings.TrimSpace(msg.Title) == "" {
		return apperr.Validation("notification needs a user and a title", nil)
	}

	data := datatypes.JSON("{}")
	if len(msg.Data) > 0 {
		raw, err := json.Marshal(msg.Data)
		if err != nil {
			return apperr.Internal("failed to encode notification data", err)
		}
		data = raw
	}

	n := &Notification{
		ID:        uuid.New(),
		UserID:    msg.UserID,
		Title:     msg.Title,
		Message:   msg.Message,
		Kind:      msg.Kind,
		Data:      data,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return apperr.Internal("failed to store notification", err)
	}

	s.logger.Debug("Notification stored",
		zap.String("user_id", n.UserID.String()),
		zap.String("kind", string(n.Kind)))
	return nil
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("failed to count notifications", err)
	}
	return count, nil
}

// ListRecent returns the newest notifications. A non-positive limit selects the
// configured default; larger limits are capped.
func (s *Service) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	items, err := s.repo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Internal("failed to list notifications", err)
	}
	return items, nil
}

// MarkRead marks the notification read. Notifications of other users are
// reported as not found.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	err := s.repo.MarkRead(ctx, id, userID, s.now().UTC())
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) == apperr.KindNotFound {
		return err
	}
	return apperr.Internal("failed to mark notification read", err)
}
