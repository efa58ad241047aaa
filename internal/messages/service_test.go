package messages

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/internal/notifications"
	"devcollab/platform-backend/pkg/apperr"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetProject(ctx context.Context, projectID uuid.UUID) (*ProjectRef, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProjectRef), args.Error(1)
}

func (m *MockRepository) HasApplied(ctx context.Context, projectID, developerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, developerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, msg *Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	args := m.Called(ctx, id, recipientID)
	return args.Error(0)
}

type stubSink struct {
	err  error
	sent []notifications.Message
}

func (s *stubSink) Notify(_ context.Context, msg notifications.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

type parties struct {
	project   *ProjectRef
	owner     identity.Actor
	applicant identity.Actor
	stranger  identity.Actor
}

func newParties() parties {
	owner := identity.Actor{ID: uuid.New(), Role: identity.RoleCompany}
	return parties{
		project:   &ProjectRef{ID: uuid.New(), OwnerID: owner.ID, Title: "Checkout flow"},
		owner:     owner,
		applicant: identity.Actor{ID: uuid.New(), Role: identity.RoleDeveloper},
		stranger:  identity.Actor{ID: uuid.New(), Role: identity.RoleDeveloper},
	}
}

func TestSendFromOwnerToApplicant(t *testing.T) {
	p := newParties()
	mockRepo := new(MockRepository)
	sink := &stubSink{}
	service := NewService(mockRepo, sink, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("GetProject", ctx, p.project.ID).Return(p.project, nil)
	mockRepo.On("HasApplied", ctx, p.project.ID, p.applicant.ID).Return(true, nil)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(m *Message) bool {
		return m.SenderID == p.owner.ID && m.RecipientID == p.applicant.ID && m.Content == "Can you start Monday?" && !m.IsRead
	})).Return(nil)

	msg, err := service.Send(ctx, p.owner, SendMessageRequest{
		ProjectID: p.project.ID, RecipientID: p.applicant.ID, Content: "  Can you start Monday?  ",
	})
	require.NoError(t, err)
	assert.Equal(t, p.project.ID, msg.ProjectID)
	assert.Equal(t, time.UTC, msg.SentAt.Location())
	mockRepo.AssertExpectations(t)

	require.Len(t, sink.sent, 1)
	assert.Equal(t, p.applicant.ID, sink.sent[0].UserID)
	assert.Equal(t, notifications.KindMessage, sink.sent[0].Kind)
}

func TestSendFromApplicantToOwner(t *testing.T) {
	p := newParties()
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, &stubSink{}, zap.NewNop())

	mockRepo.On("GetProject", mock.Anything, p.project.ID).Return(p.project, nil)
	mockRepo.On("HasApplied", mock.Anything, p.project.ID, p.applicant.ID).Return(true, nil)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := service.Send(context.Background(), p.applicant, SendMessageRequest{
		ProjectID: p.project.ID, RecipientID: p.owner.ID, Content: "Question about the brief",
	})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSendRequiresOwnerAndApplicant(t *testing.T) {
	p := newParties()
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, &stubSink{}, zap.NewNop())

	mockRepo.On("GetProject", mock.Anything, p.project.ID).Return(p.project, nil)
	mockRepo.On("HasApplied", mock.Anything, p.project.ID, p.stranger.ID).Return(false, nil)

	// Neither side owns the project.
	_, err := service.Send(context.Background(), p.stranger, SendMessageRequest{
		ProjectID: p.project.ID, RecipientID: p.applicant.ID, Content: "hi",
	})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	// The owner writing to someone who never applied.
	_, err = service.Send(context.Background(), p.owner, SendMessageRequest{
		ProjectID: p.project.ID, RecipientID: p.stranger.ID, Content: "hi",
	})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendValidation(t *testing.T) {
	p := newParties()
	mockRepo := new(MockRepository)
	mockRepo.On("GetProject", mock.Anything, p.project.ID).Return(p.project, nil).Maybe()
	mockRepo.On("HasApplied", mock.Anything, p.project.ID, p.applicant.ID).Return(true, nil).Maybe()
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	service := NewService(mockRepo, &stubSink{}, zap.NewNop())

	tests := []struct {
		name  string
		req   SendMessageRequest
		field string
	}{
		{"blank content", SendMessageRequest{ProjectID: p.project.ID, RecipientID: p.applicant.ID, Content: "   "}, "content"},
		{"too long", SendMessageRequest{ProjectID: p.project.ID, RecipientID: p.applicant.ID, Content: strings.Repeat("é", MaxContentLength+1)}, "content"},
		{"to self", SendMessageRequest{ProjectID: p.project.ID, RecipientID: p.owner.ID, Content: "note"}, "recipient_id"},
		{"no recipient", SendMessageRequest{ProjectID: p.project.ID, Content: "note"}, "recipient_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Send(context.Background(), p.owner, tt.req)
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Contains(t, apperr.FieldsOf(err), tt.field)
		})
	}

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	_, err := service.Send(context.Background(), p.owner, SendMessageRequest{
		ProjectID: p.project.ID, RecipientID: p.applicant.ID, Content: strings.Repeat("é", MaxContentLength),
	})
	assert.NoError(t, err)
}

func TestSendUnknownProject(t *testing.T) {
	p := newParties()
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, &stubSink{}, zap.NewNop())
	mockRepo.On("GetProject", mock.Anything, mock.Anything).Return(nil, apperr.NotFound("project not found"))

	_, err := service.Send(context.Background(), p.owner, SendMessageRequest{
		ProjectID: uuid.New(), RecipientID: p.applicant.ID, Content: "hi",
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSendKeepsMessageWhenNotificationFails(t *testing.T) {
	p := newParties()
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, &stubSink{err: errors.New("inbox down")}, zap.NewNop())

	mockRepo.On("GetProject", mock.Anything, p.project.ID).Return(p.project, nil)
	mockRepo.On("HasApplied", mock.Anything, p.project.ID, p.applicant.ID).Return(true, nil)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	msg, err := service.Send(context.Background(), p.owner, SendMessageRequest{
		ProjectID: p.project.ID, RecipientID: p.applicant.ID, Content: "hi",
	})
	require.NoError(t, err)
	assert.NotNil(t, msg)
}

func TestConversationsGroupByPartnerNewestFirst(t *testing.T) {
	me := identity.Actor{ID: uuid.New(), Role: identity.RoleDeveloper}
	alice, bob := uuid.New(), uuid.New()
	project := uuid.New()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	// Newest first, as the repository returns them.
	history := []Message{
		{ID: uuid.New(), ProjectID: project, SenderID: bob, RecipientID: me.ID, Content: "b2", SentAt: now},
		{ID: uuid.New(), ProjectID: project, SenderID: me.ID, RecipientID: alice, Content: "a2", SentAt: now.Add(-time.Hour)},
		{ID: uuid.New(), ProjectID: project, SenderID: alice, RecipientID: me.ID, Content: "a1", SentAt: now.Add(-2 * time.Hour)},
		{ID: uuid.New(), ProjectID: project, SenderID: bob, RecipientID: me.ID, Content: "b1", SentAt: now.Add(-3 * time.Hour), IsRead: true},
	}
	mockRepo := new(MockRepository)
	mockRepo.On("ListForUser", mock.Anything, me.ID, historyLimit).Return(history, nil)
	service := NewService(mockRepo, &stubSink{}, zap.NewNop())

	conversations, err := service.Conversations(context.Background(), me)
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	assert.Equal(t, bob, conversations[0].PartnerID)
	assert.Equal(t, now, conversations[0].LastSentAt)
	assert.Equal(t, 1, conversations[0].Unread)
	require.Len(t, conversations[0].Messages, 2)
	assert.Equal(t, "b2", conversations[0].Messages[0].Content)
	assert.Equal(t, "b1", conversations[0].Messages[1].Content)

	assert.Equal(t, alice, conversations[1].PartnerID)
	assert.Equal(t, 1, conversations[1].Unread)
	assert.Equal(t, []string{"a2", "a1"}, []string{conversations[1].Messages[0].Content, conversations[1].Messages[1].Content})
}

func TestMarkReadPassesNotFound(t *testing.T) {
	me := identity.Actor{ID: uuid.New(), Role: identity.RoleDeveloper}
	id := uuid.New()
	mockRepo := new(MockRepository)
	mockRepo.On("MarkRead", mock.Anything, id, me.ID).Return(apperr.NotFound("message not found"))
	service := NewService(mockRepo, &stubSink{}, zap.NewNop())

	assert.ErrorIs(t, service.MarkRead(context.Background(), me, id), apperr.ErrNotFound)

	mockRepo = new(MockRepository)
	mockRepo.On("MarkRead", mock.Anything, id, me.ID).Return(errors.New("db down"))
	service = NewService(mockRepo, &stubSink{}, zap.NewNop())
	assert.ErrorIs(t, service.MarkRead(context.Background(), me, id), apperr.ErrInternal)
}

func TestHandlerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := newParties()
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, &stubSink{}, zap.NewNop())

	mockRepo.On("CountUnread", mock.Anything, p.applicant.ID).Return(4, nil)
	mockRepo.On("ListForUser", mock.Anything, p.applicant.ID, historyLimit).Return([]Message{}, nil)
	mockRepo.On("GetProject", mock.Anything, p.project.ID).Return(p.project, nil)
	mockRepo.On("HasApplied", mock.Anything, p.project.ID, p.applicant.ID).Return(true, nil)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	router := gin.New()
	api := router.Group("/api/v1", func(c *gin.Context) {
		identity.WithActor(c, p.applicant)
		c.Next()
	})
	NewHandler(service, zap.NewNop()).RegisterRoutes(api)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages/unread-count", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread":4}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"conversations":[]}`, w.Body.String())

	body, err := json.Marshal(gin.H{"project_id": p.project.ID, "recipient_id": p.owner.ID, "content": "When is the kickoff?"})
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"content":""}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/messages/not-a-uuid/read", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
