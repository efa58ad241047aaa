package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	actor := Actor{ID: uuid.New(), Role: RoleDeveloper}

	token, expiresAt, err := issuer.Issue(actor)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("secret", time.Hour).Issue(Actor{ID: uuid.New(), Role: RoleCompany})
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := issuer.Issue(Actor{ID: uuid.New(), Role: RoleAdmin})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Company ")
	require.NoError(t, err)
	assert.Equal(t, RoleCompany, r)

	_, err = ParseRole("intern")
	assert.Error(t, err)
}

func TestAuthenticateMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	actor := Actor{ID: uuid.New(), Role: RoleDeveloper}
	token, _, err := issuer.Issue(actor)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", issuer.Authenticate(), func(c *gin.Context) {
		got, ok := ActorFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": got.ID.String()})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), actor.ID.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentifyAllowsAnonymous(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	router := gin.New()
	router.GET("/public", issuer.Identify(), func(c *gin.Context) {
		_, ok := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated": false}`, w.Body.String())
}
