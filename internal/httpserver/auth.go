package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityCtxKey = "identityID"

// authMiddleware accepts "Bearer <jwt>" and stores the token subject as the
// identity id.
func authMiddleware(tokens tokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			abortError(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(identityCtxKey, claims.Subject)
		c.Next()
	}
}

func identityFrom(c *gin.Context) string {
	return c.GetString(identityCtxKey)
}
