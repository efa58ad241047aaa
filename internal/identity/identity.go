// Package identity supplies the acting user for every request.
//
// A signed bearer token carries the user id and role. Middleware validates it and
// stores the resulting Actor on the gin context; services trust the Actor and only
// perform role and ownership checks.
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role tags a user account.
type Role string

const (
	RoleCompany   Role = "company"
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleCompany, RoleDeveloper, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a Actor) Is(role Role) bool { return a.Role == role }

// Claims represents JWT claims. The subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "devcollab",
		now:    time.Now,
	}
}

// Issue returns a signed token for actor.
func (t *TokenIssuer) Issue(actor Actor) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies token and returns the actor it names.
func (t *TokenIssuer) Parse(token string) (Actor, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return Actor{}, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, ErrInvalidToken
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Actor{}, ErrInvalidToken
	}
	return Actor{ID: id, Role: role}, nil
}

const actorKey = "identity.actor"

// Authenticate rejects requests without a valid bearer token.
func (t *TokenIssuer) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := t.actorFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthenticated"})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// Identify attaches the actor when a valid token is present and lets anonymous
// requests through.
func (t *TokenIssuer) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			if actor, err := t.actorFromHeader(header); err == nil {
				c.Set(actorKey, actor)
			}
		}
		c.Next()
	}
}

func (t *TokenIssuer) actorFromHeader(header string) (Actor, error) {
	if header == "" {
		return Actor{}, errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Actor{}, errors.New("invalid authorization header")
	}
	return t.Parse(strings.TrimSpace(parts[1]))
}

// ActorFrom returns the actor stored by Authenticate or Identify.
func ActorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}

// WithActor stores actor on the context. Used by tests and internal callers.
func WithActor(c *gin.Context, actor Actor) {
	c.Set(actorKey, actor)
}
