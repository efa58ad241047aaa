package messages

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/internal/notifications"
	"devcollab/platform-backend/pkg/apperr"
)

// historyLimit bounds how many messages feed the conversation view.
const historyLimit = 500

// Service stores messages between a project owner and the project's applicants.
type Service struct {
	repo   Repository
	sink   notifications.Sink
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, sink notifications.Sink, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Send stores a message about a project. One side must own the project and the
// other must have applied to it.
func (s *Service) Send(ctx context.Context, actor identity.Actor, req SendMessageRequest) (*Message, error) {
	content := strings.TrimSpace(req.Content)
	fields := map[string]string{}
	switch {
	case content == "":
		fields["content"] = "is required"
	case utf8.RuneCountInString(content) > MaxContentLength:
		fields["content"] = fmt.Sprintf("must be at most %d characters", MaxContentLength)
	}
	if req.RecipientID == uuid.Nil {
		fields["recipient_id"] = "is required"
	} else if req.RecipientID == actor.ID {
		fields["recipient_id"] = "cannot message yourself"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid message", fields)
	}

	project, err := s.repo.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, wrap(err, "failed to load project")
	}

	var applicant uuid.UUID
	switch {
	case actor.ID == project.OwnerID:
		applicant = req.RecipientID
	case req.RecipientID == project.OwnerID:
		applicant = actor.ID
	default:
		return nil, apperr.Unauthorized("messages must be between the project owner and an applicant")
	}
	applied, err := s.repo.HasApplied(ctx, project.ID, applicant)
	if err != nil {
		return nil, wrap(err, "failed to check application")
	}
	if !applied {
		return nil, apperr.Unauthorized("messages must be between the project owner and an applicant")
	}

	msg := &Message{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		SenderID:    actor.ID,
		RecipientID: req.RecipientID,
		Content:     content,
		SentAt:      s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, apperr.Internal("failed to store message", err)
	}

	err = s.sink.Notify(context.WithoutCancel(ctx), notifications.Message{
		UserID:  msg.RecipientID,
		Title:   "New Message",
		Message: fmt.Sprintf("You have a new message about %q", project.Title),
		Kind:    notifications.KindMessage,
		Data:    map[string]string{"project_id": project.ID.String(), "message_id": msg.ID.String()},
	})
	if err != nil {
		s.logger.Warn("Failed to notify message recipient",
			zap.String("message_id", msg.ID.String()),
			zap.Error(err))
	}
	return msg, nil
}

// Conversations groups the caller's messages by partner. Both the conversations
// and the messages inside each one are ordered newest first.
func (s *Service) Conversations(ctx context.Context, actor identity.Actor) ([]Conversation, error) {
	items, err := s.repo.ListForUser(ctx, actor.ID, historyLimit)
	if err != nil {
		return nil, apperr.Internal("failed to list messages", err)
	}

	conversations := []Conversation{}
	index := map[uuid.UUID]int{}
	for _, m := range items {
		partner := m.RecipientID
		if m.SenderID != actor.ID {
			partner = m.SenderID
		}
		i, ok := index[partner]
		if !ok {
			i = len(conversations)
			index[partner] = i
			conversations = append(conversations, Conversation{PartnerID: partner, LastSentAt: m.SentAt})
		}
		conv := &conversations[i]
		conv.Messages = append(conv.Messages, m)
		if m.RecipientID == actor.ID && !m.IsRead {
			conv.Unread++
		}
	}
	return conversations, nil
}

func (s *Service) UnreadCount(ctx context.Context, actor identity.Actor) (int, error) {
	count, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, apperr.Internal("failed to count messages", err)
	}
	return count, nil
}

// MarkRead marks a message addressed to the caller as read. Other messages are
// reported as not found.
func (s *Service) MarkRead(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	return wrap(s.repo.MarkRead(ctx, id, actor.ID), "failed to mark message read")
}

func wrap(err error, message string) error {
	if err == nil || apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Internal(message, err)
}
