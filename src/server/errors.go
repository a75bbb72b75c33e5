package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/CodeClarityCE/service-cvesearch/src/cpe"
	"github.com/CodeClarityCE/service-cvesearch/src/search"
)

// abortWithError maps an engine error onto an HTTP status: malformed
// queries and CPE input are the client's fault, everything else is
// ours.
func abortWithError(c *gin.Context, err error) {
	logrus.Error(err)

	var parseErr *cpe.ParseError
	if errors.Is(err, search.ErrInvalidQuery) || errors.As(err, &parseErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
