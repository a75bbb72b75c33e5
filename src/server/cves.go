package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CodeClarityCE/service-cvesearch/src/search"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/metrics"
)

func searchHandler(engine *search.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query search.Query
		if err := c.ShouldBindJSON(&query); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if query.Product == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "product is required"})
			return
		}

		start := time.Now()
		matches, err := engine.Query(c.Request.Context(), query)
		if err != nil {
			metrics.ObserveQuery(time.Since(start), "error")
			abortWithError(c, err)
			return
		}
		metrics.ObserveQuery(time.Since(start), "ok")

		c.JSON(http.StatusOK, matches)
	}
}
