package messages

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/pkg/apperr"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes expects rg to be behind the authentication middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	m := rg.Group("/messages")
	{
		m.GET("", h.Conversations)
		m.POST("", h.Send)
		m.GET("/unread-count", h.UnreadCount)
		m.POST("/:id/read", h.MarkRead)
	}
}

func (h *Handler) Send(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}

	msg, err := h.service.Send(c.Request.Context(), actor, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) Conversations(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	conversations, err := h.service.Conversations(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, UnreadCountResponse{Unread: count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id", "code": apperr.KindValidation})
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), actor, id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *Handler) actor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "unauthenticated"})
	}
	return actor, ok
}

func (h *Handler) fail(c *gin.Context, err error) {
	if status := apperr.Respond(c, err); status >= http.StatusInternalServerError {
		h.logger.Error("Message request failed", zap.Error(err))
	}
}
