package settings

import (
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

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes expects r to be behind the authentication middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	settings := r.Group("/settings")
	{
		settings.GET("/profile", h.GetProfile)
		settings.PUT("/profile", h.UpdateProfile)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "unauthenticated"})
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "unauthenticated"})
		return
	}

	var payload UpdateProfileRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), actor, payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if status := apperr.Respond(c, err); status >= http.StatusInternalServerError {
		h.logger.Error("Settings request failed", zap.Error(err))
	}
}
