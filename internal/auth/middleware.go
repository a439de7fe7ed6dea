package auth

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUserID      = "auth_user_id"
	ContextKeyAuthorityID = "auth_authority_id"
	ContextKeyUser        = "auth_user"
)

const msgNotAuthenticated = "User not authenticated"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    uint
	Authority entities.AuthorityID
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != 0
}

// UserLoader re-reads the session user on every request.
type UserLoader interface {
	GetByID(ctx context.Context, id uint) (*entities.User, error)
}

// Middleware resolves the session into a Principal.
type Middleware struct {
	users          UserLoader
	sessionManager *SessionManager
}

func NewMiddleware(users UserLoader, sessionManager *SessionManager) *Middleware {
	return &Middleware{users: users, sessionManager: sessionManager}
}

// Handler loads the session user. Requests without a session continue
// anonymously; RequireAuth decides whether that is allowed.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := m.sessionManager.GetUserID(ctx)
		if userID == 0 {
			c.Next()
			return
		}

		user, err := m.users.GetByID(ctx, userID)
		if err != nil {
			if !database.IsNotFound(err) {
				log.Printf("[AUTH] Failed to load session user %d: %v", userID, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "An unknown error occurred"})
				return
			}
			// The account is gone; drop the stale session.
			_ = m.sessionManager.DestroySession(ctx)
			c.Next()
			return
		}

		if m.sessionManager.GetAuthorityID(ctx) != user.AuthorityID {
			m.sessionManager.SetAuthorityID(ctx, user.AuthorityID)
		}

		setUserContext(c, user)
		c.Next()
	}
}

func setUserContext(c *gin.Context, user *entities.User) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyAuthorityID, user.AuthorityID)
	c.Set(ContextKeyUser, user)
	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), Principal{
		UserID:    user.ID,
		Authority: user.AuthorityID,
	}))
}

// RequireAuth rejects requests without a session user with 401.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgNotAuthenticated})
			return
		}
		c.Next()
	}
}

// RequireNotGuest lets members and admins through.
func (m *Middleware) RequireNotGuest() gin.HandlerFunc {
	return m.requireAuthority(entities.AuthorityMember, "Guests are not allowed to do this")
}

func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return m.requireAuthority(entities.AuthorityAdmin, "Admin authority required")
}

func (m *Middleware) requireAuthority(min entities.AuthorityID, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgNotAuthenticated})
			return
		}
		if GetAuthorityID(c) < min {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": message})
			return
		}
		c.Next()
	}
}

// GetUserID returns 0 for anonymous requests.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

func GetAuthorityID(c *gin.Context) entities.AuthorityID {
	if a, exists := c.Get(ContextKeyAuthorityID); exists {
		if authority, ok := a.(entities.AuthorityID); ok {
			return authority
		}
	}
	return 0
}

// GetUser returns the user loaded for this request, or nil.
func GetUser(c *gin.Context) *entities.User {
	if u, exists := c.Get(ContextKeyUser); exists {
		if user, ok := u.(*entities.User); ok {
			return user
		}
	}
	return nil
}

func GetPrincipal(c *gin.Context) Principal {
	return Principal{UserID: GetUserID(c), Authority: GetAuthorityID(c)}
}
