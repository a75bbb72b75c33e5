package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"

	"github.com/CodeClarityCE/service-cvesearch/src/utilities/pgsql"
)

// problemLookup resolves a weakness id from query responses, accepting
// both the bare catalog id ("79") and the prefixed form ("CWE-79").
func problemLookup(db *bun.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimPrefix(c.Param("id"), "CWE-")
		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing weakness id"})
			return
		}

		entry, err := pgsql.GetCwe(c.Request.Context(), db, id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if entry == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown weakness id"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":          "CWE-" + entry.CweId,
			"name":        entry.Name,
			"abstraction": entry.Abstraction,
			"status":      entry.Status,
			"description": entry.Description,
		})
	}
}
