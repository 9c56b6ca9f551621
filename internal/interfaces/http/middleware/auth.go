package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/salespipe/backend/internal/interfaces/http/dto"
)

// SyncTokenHeader is the header carrying the shared sync token
const SyncTokenHeader = "X-Sync-Token"

// SyncTokenAuth guards the pipeline endpoints with a shared token,
// accepted from the X-Sync-Token header or the ?token= query parameter.
// An empty configured token disables the check (local development).
func SyncTokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		presented := c.GetHeader(SyncTokenHeader)
		if presented == "" {
			presented = c.Query("token")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeUnauthorized, "missing or invalid sync token"))
			return
		}
		c.Next()
	}
}
