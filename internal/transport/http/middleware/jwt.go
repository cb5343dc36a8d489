package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"savora/internal/app"
	"savora/internal/transport/http/response"
)

const (
	TokenHeader = "auth-token"

	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextEmailKey    = "email"
)

type TokenVerifier interface {
	VerifyToken(token string) (*app.Identity, error)
}

// AuthJWT reads the session token from the auth-token header, falling back to
// "Authorization: Bearer <token>".
func AuthJWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := verifier.VerifyToken(tokenFromRequest(c))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, app.PublicMessage(err, "Invalid token"))
			return
		}

		c.Set(ContextUserIDKey, identity.UserID)
		c.Set(ContextUsernameKey, identity.Username)
		c.Set(ContextEmailKey, identity.Email)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(TokenHeader)); token != "" {
		return token
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	const prefix = "Bearer "
	if len(authHeader) > len(prefix) && strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return strings.TrimSpace(authHeader[len(prefix):])
	}
	return ""
}

func UserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
