package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-Webhook-API-Key"

// APIKeyAuthMiddleware gates the ingestion endpoint on a valid, unrevoked
// webhook key. The header carries the plaintext key; lookup is by its hash.
func APIKeyAuthMiddleware(repo *Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(apiKeyHeader)
		if presented == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		key, err := repo.GetByHash(c.Request.Context(), HashKey(presented))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set("webhookKeyID", key.ID)
		c.Next()
	}
}
