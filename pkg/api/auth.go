package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/apiresponses"
	"github.com/sentry-vision/management-server/pkg/gate"
	"github.com/sentry-vision/management-server/pkg/user"
)

const AuthHeaderKey = "Authorization"

// AuthHandler verifies dashboard session tokens on protected routes.
type AuthHandler struct {
	tokens *user.TokenService
	log    *zap.SugaredLogger
}

func NewAuth(log *zap.SugaredLogger, tokens *user.TokenService) *AuthHandler {
	return &AuthHandler{tokens: tokens, log: log}
}

// Middleware authenticates the request from its bearer token. Requests
// already authenticated by the abuse gate pass straight through, so the
// detection service never needs a session.
func (a *AuthHandler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(gate.ContextPrincipal) != "" {
			c.Next()
			return
		}

		bearer := c.GetHeader(AuthHeaderKey)
		if bearer == "" || !strings.HasPrefix(bearer, "Bearer ") {
			apiresponses.RespondUnauthorized(c)
			c.Abort()
			return
		}

		claims, err := a.tokens.Parse(strings.TrimPrefix(bearer, "Bearer "))
		if err != nil {
			a.log.Debugw("session token rejected", "error", err)
			apiresponses.RespondUnauthorizedWithMessage(c, "invalid or expired session token")
			c.Abort()
			return
		}

		c.Set(gate.ContextPrincipal, claims.Subject)
		c.Set(gate.ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole allows only principals carrying one of the given roles.
// Mount it after Middleware.
func (a *AuthHandler) RequireRole(roles ...user.Role) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[string(r)] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(gate.ContextRole)
		if _, ok := allowed[role]; !ok {
			apiresponses.RespondForbidden(c, "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}
