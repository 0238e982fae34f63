package api

import (
	"net/http"

	"bugalou/internal/database"
	"bugalou/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	apiKeyHeader  = "x-api-key"
	companyCtxKey = "company"
)

// APIKeyAuth resolves the company from the x-api-key header. The WebSocket
// endpoint may pass the key as ?apiKey= because browsers cannot set headers
// on the upgrade request.
func APIKeyAuth(store *database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			key = c.Query("apiKey")
		}
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing x-api-key header"})
			return
		}

		company, err := store.CompanyByAPIKey(c.Request.Context(), key)
		if err != nil {
			zap.L().Error("api: api key lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
			return
		}
		if company == nil {
			zap.L().Warn("api: invalid api key", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Set(companyCtxKey, company)
		c.Next()
	}
}

func currentCompany(c *gin.Context) *models.Company {
	return c.MustGet(companyCtxKey).(*models.Company)
}
