package projects

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/pkg/apperr"
)

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Title               string     `json:"title" binding:"required,max=200"`
	Description         string     `json:"description" binding:"required"`
	RequiredSkills      []string   `json:"required_skills"`
	Deadline            *time.Time `json:"deadline" binding:"required"`
	WinnerReward        float64    `json:"winner_reward" binding:"gte=0,lt=10000000000"`
	ParticipationReward float64    `json:"participation_reward" binding:"gte=0,lt=10000000000"`
	MaxShortlist        int        `json:"max_shortlist" binding:"required,min=1,max=50"`
}

type ApplyRequest struct {
	CoverLetter string `json:"cover_letter" binding:"max=10000"`
}

type SubmitWorkRequest struct {
	GithubURL   string `json:"github_url" binding:"omitempty,url,max=500"`
	DemoURL     string `json:"demo_url" binding:"omitempty,url,max=500"`
	FigmaURL    string `json:"figma_url" binding:"omitempty,url,max=500"`
	Description string `json:"description" binding:"max=10000"`
}

type FeedbackRequest struct {
	Score    int    `json:"score" binding:"required,min=1,max=10"`
	Feedback string `json:"feedback" binding:"max=10000"`
}

type Handler struct {
	lifecycle Lifecycle
	queries   *Queries
	logger    *zap.Logger
}

func NewHandler(lifecycle Lifecycle, queries *Queries, logger *zap.Logger) *Handler {
	return &Handler{lifecycle: lifecycle, queries: queries, logger: logger}
}

// RegisterRoutes registers the project routes. Browsing only needs identify;
// everything else is behind requireAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth, identify gin.HandlerFunc) {
	projects := rg.Group("/projects")
	{
		projects.GET("", identify, h.ListProjects)
		projects.GET("/:id", identify, h.GetProject)
		projects.POST("", requireAuth, h.CreateProject)
		projects.GET("/:id/manage", requireAuth, h.Manage)
		projects.POST("/:id/apply", requireAuth, h.Apply)
		projects.POST("/:id/cancel", requireAuth, h.CancelProject)
	}

	rg.POST("/applications/:id/shortlist", requireAuth, h.Shortlist)
	rg.POST("/applications/:id/submissions", requireAuth, h.SubmitWork)
	rg.PUT("/submissions/:id/feedback", requireAuth, h.GiveFeedback)
	rg.POST("/submissions/:id/winner", requireAuth, h.DeclareWinner)
	rg.GET("/dashboard", requireAuth, h.Dashboard)
}

func (h *Handler) CreateProject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}

	project, err := h.lifecycle.CreateProject(c.Request.Context(), actor, CreateProjectInput{
		Title:               req.Title,
		Description:         req.Description,
		RequiredSkills:      req.RequiredSkills,
		Deadline:            req.Deadline,
		WinnerReward:        req.WinnerReward,
		ParticipationReward: req.ParticipationReward,
		MaxShortlist:        req.MaxShortlist,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) ListProjects(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			apperr.Respond(c, apperr.Validation("invalid page", map[string]string{"page": "must be a positive integer"}))
			return
		}
		page = v
	}
	pageSize := 0
	if raw := c.Query("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			apperr.Respond(c, apperr.Validation("invalid page size", map[string]string{"page_size": "must be a positive integer"}))
			return
		}
		pageSize = v
	}

	result, err := h.queries.ListProjects(c.Request.Context(), ProjectFilter{
		Status:   c.Query("status"),
		Skill:    c.Query("skill"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetProject(c *gin.Context) {
	id, ok := h.pathID(c, "project")
	if !ok {
		return
	}
	var caller *identity.Actor
	if actor, ok := identity.ActorFrom(c); ok {
		caller = &actor
	}

	detail, err := h.queries.GetProject(c.Request.Context(), caller, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) Manage(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "project")
	if !ok {
		return
	}

	view, err := h.queries.Manage(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Apply(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "project")
	if !ok {
		return
	}
	var req ApplyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.FromBinding(err))
			return
		}
	}

	app, err := h.lifecycle.Apply(c.Request.Context(), actor, id, ApplyInput{CoverLetter: req.CoverLetter})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *Handler) Shortlist(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "application")
	if !ok {
		return
	}

	app, err := h.lifecycle.Shortlist(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handler) SubmitWork(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "application")
	if !ok {
		return
	}
	var req SubmitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}

	sub, err := h.lifecycle.SubmitWork(c.Request.Context(), actor, id, SubmitWorkInput{
		GithubURL:   req.GithubURL,
		DemoURL:     req.DemoURL,
		FigmaURL:    req.FigmaURL,
		Description: req.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) GiveFeedback(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "submission")
	if !ok {
		return
	}
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBinding(err))
		return
	}

	sub, err := h.lifecycle.GiveFeedback(c.Request.Context(), actor, id, FeedbackInput{Score: req.Score, Feedback: req.Feedback})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) DeclareWinner(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "submission")
	if !ok {
		return
	}

	settlement, err := h.lifecycle.DeclareWinner(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) CancelProject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "project")
	if !ok {
		return
	}

	project, err := h.lifecycle.CancelProject(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// Dashboard serves the company or developer dashboard depending on the caller's role.
func (h *Handler) Dashboard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var (
		body interface{}
		err  error
	)
	switch actor.Role {
	case identity.RoleCompany:
		body, err = h.queries.CompanyDashboard(c.Request.Context(), actor)
	case identity.RoleDeveloper:
		body, err = h.queries.DeveloperDashboard(c.Request.Context(), actor)
	default:
		err = apperr.Unauthorized("no dashboard for this role")
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) actor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "unauthenticated"})
	}
	return actor, ok
}

func (h *Handler) pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid "+what+" id", map[string]string{"id": "must be a UUID"}))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	if status := apperr.Respond(c, err); status >= http.StatusInternalServerError {
		h.logger.Error("Project request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
}
