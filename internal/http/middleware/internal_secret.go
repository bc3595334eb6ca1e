package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/oni-coach-backend/internal/http/response"
)

const headerInternalSecret = "X-Internal-Secret"

// RequireInternalSecret rejects requests whose X-Internal-Secret header does not
// match secret. An empty secret rejects everything.
func RequireInternalSecret(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if secret == "" {
			response.RespondError(c, http.StatusUnauthorized, "internal_secret_not_configured",
				fmt.Errorf("ONI_INTERNAL_SECRET is not configured"))
			return
		}
		got := strings.TrimSpace(c.GetHeader(headerInternalSecret))
		if got == "" {
			response.RespondError(c, http.StatusUnauthorized, "missing_secret", fmt.Errorf("missing %s header", headerInternalSecret))
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			response.RespondError(c, http.StatusUnauthorized, "invalid_secret", fmt.Errorf("invalid secret"))
			return
		}
		c.Next()
	}
}
