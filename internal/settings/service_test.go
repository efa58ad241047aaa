package settings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devcollab/platform-backend/internal/auth"
	"devcollab/platform-backend/internal/identity"
	"devcollab/platform-backend/pkg/apperr"
)

type fakeRepo struct {
	developers map[uuid.UUID]*auth.DeveloperProfile
	companies  map[uuid.UUID]*auth.CompanyProfile
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		developers: map[uuid.UUID]*auth.DeveloperProfile{},
		companies:  map[uuid.UUID]*auth.CompanyProfile{},
	}
}

func (f *fakeRepo) GetDeveloperProfile(_ context.Context, userID uuid.UUID) (*auth.DeveloperProfile, error) {
	p, ok := f.developers[userID]
	if !ok {
		return nil, apperr.NotFound("developer profile not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) UpdateDeveloperProfile(_ context.Context, profile *auth.DeveloperProfile) error {
	stored, ok := f.developers[profile.UserID]
	if !ok {
		return apperr.NotFound("developer profile not found")
	}
	score := stored.ReputationScore
	cp := *profile
	cp.ReputationScore = score
	f.developers[profile.UserID] = &cp
	return nil
}

func (f *fakeRepo) GetCompanyProfile(_ context.Context, userID uuid.UUID) (*auth.CompanyProfile, error) {
	p, ok := f.companies[userID]
	if !ok {
		return nil, apperr.NotFound("company profile not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) UpdateCompanyProfile(_ context.Context, profile *auth.CompanyProfile) error {
	if _, ok := f.companies[profile.UserID]; !ok {
		return apperr.NotFound("company profile not found")
	}
	cp := *profile
	f.companies[profile.UserID] = &cp
	return nil
}

func strPtr(s string) *string { return &s }

func TestUpdateDeveloperProfileNormalisesSkills(t *testing.T) {
	repo := newFakeRepo()
	actor := identity.Actor{ID: uuid.New(), Role: identity.RoleDeveloper}
	repo.developers[actor.ID] = &auth.DeveloperProfile{UserID: actor.ID, FullName: "Dana", ReputationScore: 7}
	service := NewService(repo, zap.NewNop())

	profile, err := service.UpdateProfile(context.Background(), actor, UpdateProfileRequest{
		Bio:         strPtr("  Backend dev "),
		Skills:      []string{"Go, SQL", "go", "  "},
		CompanyName: strPtr("ignored"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Backend dev", profile.Developer.Bio)
	assert.Equal(t, []string{"Go", "SQL"}, []string(profile.Developer.Skills))
	assert.Nil(t, profile.Company)
	assert.Equal(t, 7, repo.developers[actor.ID].ReputationScore)
}

func TestUpdateCompanyProfileRequiresName(t *testing.T) {
	repo := newFakeRepo()
	actor := identity.Actor{ID: uuid.New(), Role: identity.RoleCompany}
	repo.companies[actor.ID] = &auth.CompanyProfile{UserID: actor.ID, CompanyName: "Acme"}
	service := NewService(repo, zap.NewNop())

	_, err := service.UpdateProfile(context.Background(), actor, UpdateProfileRequest{CompanyName: strPtr("   ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Acme", repo.companies[actor.ID].CompanyName)
}

func TestGetProfileAdminHasNone(t *testing.T) {
	service := NewService(newFakeRepo(), zap.NewNop())
	_, err := service.GetProfile(context.Background(), identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProfileHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newFakeRepo()
	actor := identity.Actor{ID: uuid.New(), Role: identity.RoleCompany}
	repo.companies[actor.ID] = &auth.CompanyProfile{UserID: actor.ID, CompanyName: "Acme"}

	router := gin.New()
	api := router.Group("/api/v1", func(c *gin.Context) {
		identity.WithActor(c, actor)
		c.Next()
	})
	NewHandler(NewService(repo, zap.NewNop()), zap.NewNop()).RegisterRoutes(api)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/profile", strings.NewReader(`{"website":"https://acme.io","location":"Berlin"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"website":"https://acme.io"`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/settings/profile", strings.NewReader(`{"website":"not a url"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/settings/profile", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"location":"Berlin"`)
}
