package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/twinning-project/twinning-api/internal/core/domain"
	logicv1 "github.com/twinning-project/twinning-api/internal/logic/v1"
)

// Authorization scheme: clients present "Authorization: Token <key>".
const tokenScheme = "Token "

// Context keys under which the gate stores the authenticated principal and
// the session key it was authenticated with.
const (
	principalContextKey  = "auth.principal"
	sessionKeyContextKey = "auth.session_key"
)

// SessionValidator is the slice of the session service the gate needs.
type SessionValidator interface {
	// Validate authenticates a session key and reports whether the token's
	// expiry was renewed. Renewal makes this a possible write, so the gate
	// calls it at most once per request.
	Validate(ctx context.Context, key string) (*domain.User, bool, error)
}

// AuthenticationGate authenticates requests carrying a "Token <key>"
// Authorization header. Requests without the scheme pass through anonymous;
// whether anonymity is acceptable is decided per route with RequireAuth.
//
// Failure payloads are part of the external API contract and must keep
// their exact wording.
func AuthenticationGate(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, tokenScheme) {
			c.Next()
			return
		}

		key := strings.TrimSpace(header[len(tokenScheme):])
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
			return
		}

		user, renewed, err := sessions.Validate(c.Request.Context(), key)
		if err != nil {
			logger := zerolog.Ctx(c.Request.Context())
			switch {
			case errors.Is(err, logicv1.ErrInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
			case errors.Is(err, logicv1.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Token has expired"})
			case errors.Is(err, logicv1.ErrUserInactive):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "User inactive or deleted"})
			default:
				// Infrastructure fault, not an authentication decision.
				logger.Error().Err(err).Msg("Session validation failed")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": "Service temporarily unavailable"})
			}
			return
		}

		if renewed {
			zerolog.Ctx(c.Request.Context()).Debug().Int64("user_id", user.ID).Msg("Session renewed")
		}

		c.Set(principalContextKey, user)
		c.Set(sessionKeyContextKey, key)
		c.Next()
	}
}

// RequireAuth rejects requests the gate left anonymous.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated principal set by the gate.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}

// currentSessionKey returns the session key the request authenticated with.
func currentSessionKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(sessionKeyContextKey)
	if !ok {
		return "", false
	}
	key, ok := v.(string)
	return key, ok
}
