package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

// APIKeyHeader carries the raw API key on programmatic requests
const APIKeyHeader = "X-API-Key"

// CallerKey is the gin context key holding the authenticated caller identity
const CallerKey = "caller"

// KeyAuthenticator verifies a raw API key secret
type KeyAuthenticator interface {
	AuthenticateByKey(ctx context.Context, secret string) (*models.CallerIdentity, error)
}

// SessionVerifier verifies a signed session token
type SessionVerifier interface {
	VerifySession(token string) (*models.CallerIdentity, error)
}

// abortUnauthorized writes the single generic 401. Missing header, unknown
// key, revoked key, and invalid session token are deliberately
// indistinguishable here.
func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "authentication required",
	})
	c.Abort()
}

// bearerToken extracts the token from an Authorization: Bearer header
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// SessionAuth authenticates a browser/dashboard caller via session token
func SessionAuth(sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := sessions.VerifySession(bearerToken(c))
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}

// APIKeyAuth authenticates a programmatic caller via the API key header
func APIKeyAuth(keys KeyAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := keys.AuthenticateByKey(c.Request.Context(), c.GetHeader(APIKeyHeader))
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}

// Auth accepts either credential: the API key header when present, otherwise
// a bearer session token
func Auth(keys KeyAuthenticator, sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var caller *models.CallerIdentity
		var err error

		if secret := c.GetHeader(APIKeyHeader); secret != "" {
			caller, err = keys.AuthenticateByKey(c.Request.Context(), secret)
		} else {
			caller, err = sessions.VerifySession(bearerToken(c))
		}
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}

// GetCaller retrieves the authenticated caller from the gin context
func GetCaller(c *gin.Context) *models.CallerIdentity {
	if v, exists := c.Get(CallerKey); exists {
		if caller, ok := v.(*models.CallerIdentity); ok {
			return caller
		}
	}
	return nil
}
