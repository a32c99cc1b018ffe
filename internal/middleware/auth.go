package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agrineural/agrineural/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	callerIDKey      = "caller_id"
	testCallerHeader = "X-Test-Caller"
)

// SessionResolver identifies callers that signed in through the browser.
type SessionResolver interface {
	CallerFromSession(c *gin.Context) (string, bool)
}

type AuthMiddleware struct {
	tokenService *services.TokenService
	sessions     SessionResolver
	testMode     bool
}

func NewAuthMiddleware(tokenService *services.TokenService, sessions SessionResolver, testMode bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		sessions:     sessions,
		testMode:     testMode,
	}
}

// RequireAuth resolves the caller from, in order, the test header (test mode
// only), a bearer token, or the browser session.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.testMode {
			callerID := c.GetHeader(testCallerHeader)
			if callerID == "" {
				unauthenticated(c, testCallerHeader+" header required in test mode")
				return
			}
			c.Set(callerIDKey, callerID)
			c.Next()
			return
		}

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || tokenString == "" {
				unauthenticated(c, "invalid authorization header format")
				return
			}

			claims, err := m.tokenService.ValidateToken(tokenString)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, services.ErrExpiredToken) {
					msg = "token expired"
				}
				unauthenticated(c, msg)
				return
			}

			c.Set(callerIDKey, claims.CallerID)
			c.Next()
			return
		}

		if m.sessions != nil {
			if callerID, ok := m.sessions.CallerFromSession(c); ok {
				c.Set(callerIDKey, callerID)
				c.Next()
				return
			}
		}

		unauthenticated(c, "authentication required")
	}
}

// GetCallerID returns the authenticated caller or "" when there is none.
func GetCallerID(c *gin.Context) string {
	return c.GetString(callerIDKey)
}

func unauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "kind": services.KindUnauthenticated})
}
