package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/pkg/apperr"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(s *Service, logger *zap.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

// RegisterRoutes registers the auth routes. requireAuth guards /me.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/me", requireAuth, h.Me)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": apperr.PublicMessage(err), "code": apperr.KindUnauthorized})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Me(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "unauthenticated"})
		return
	}

	resp, err := h.service.Me(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if status := apperr.Respond(c, err); status >= http.StatusInternalServerError {
		h.logger.Error("Auth request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
}
