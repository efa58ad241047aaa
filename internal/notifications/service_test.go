package notifications

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/pkg/apperr"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, n *Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Notification), args.Error(1)
}

func (m *MockRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, userID, at)
	return args.Error(0)
}

func (m *MockRepository) UnreadBacklog(ctx context.Context, staleBefore time.Time) (Backlog, error) {
	args := m.Called(ctx, staleBefore)
	return args.Get(0).(Backlog), args.Error(1)
}

func TestNotifyStoresMessage(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, 20, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	mockRepo.On("Create", ctx, mock.MatchedBy(func(n *Notification) bool {
		return n.UserID == userID &&
			n.Kind == KindWinner &&
			!n.IsRead &&
			string(n.Data) == `{"project_id":"p1"}`
	})).Return(nil)

	err := service.Notify(ctx, Message{
		UserID:  userID,
		Title:   "You won!",
		Message: "Congratulations",
		Kind:    KindWinner,
		Data:    map[string]string{"project_id": "p1"},
	})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestNotifyDefaultsToEmptyData(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, 20, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.MatchedBy(func(n *Notification) bool {
		return string(n.Data) == "{}"
	})).Return(nil)

	require.NoError(t, service.Notify(ctx, Message{UserID: uuid.New(), Title: "New Application", Kind: KindApplication}))
	mockRepo.AssertExpectations(t)
}

func TestNotifyRejectsMissingUser(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, 20, zap.NewNop())

	err := service.Notify(context.Background(), Message{Title: "orphan"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNotifyWrapsStoreFailure(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, 20, zap.NewNop())
	ctx := context.Background()
	mockRepo.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

	err := service.Notify(ctx, Message{UserID: uuid.New(), Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrInternal)
}

func TestListRecentLimits(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, 20, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	mockRepo.On("ListRecent", ctx, userID, 20).Return([]Notification{}, nil).Once()
	mockRepo.On("ListRecent", ctx, userID, 100).Return([]Notification{}, nil).Once()
	mockRepo.On("ListRecent", ctx, userID, 5).Return([]Notification{}, nil).Once()

	_, err := service.ListRecent(ctx, userID, 0)
	require.NoError(t, err)
	_, err = service.ListRecent(ctx, userID, 1000)
	require.NoError(t, err)
	_, err = service.ListRecent(ctx, userID, 5)
	require.NoError(t, err)

	mockRepo.AssertExpectations(t)
}

func TestMarkReadPassesNotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, 20, zap.NewNop())
	ctx := context.Background()
	id, userID := uuid.New(), uuid.New()

	mockRepo.On("MarkRead", ctx, id, userID, mock.AnythingOfType("time.Time")).Return(apperr.NotFound("notification not found"))

	err := service.MarkRead(ctx, id, userID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHandlerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, 20, zap.NewNop())
	actor := identity.Actor{ID: uuid.New(), Role: identity.RoleDeveloper}
	other := uuid.New()

	mockRepo.On("CountUnread", mock.Anything, actor.ID).Return(2, nil)
	mockRepo.On("ListRecent", mock.Anything, actor.ID, 5).Return([]Notification{{ID: uuid.New(), UserID: actor.ID, Title: "Shortlisted"}}, nil)
	mockRepo.On("MarkRead", mock.Anything, other, actor.ID, mock.Anything).Return(apperr.NotFound("notification not found"))

	router := gin.New()
	api := router.Group("/api/v1", func(c *gin.Context) {
		identity.WithActor(c, actor)
		c.Next()
	})
	NewHandler(service, zap.NewNop()).RegisterRoutes(api)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread":2}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Shortlisted")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+other.String()+"/read", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
