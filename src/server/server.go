// Package server exposes the query engine over HTTP.
package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/CodeClarityCE/service-cvesearch/src/search"
)

// Config wires the server to its collaborators.
type Config struct {
	Address string
	Port    int
	Engine  *search.Engine
	DB      *bun.DB
}

// Version reported by the health check.
const Version = "0.1.0"

// NewRouter builds the route table.
func NewRouter(config Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health_check", healthCheck)

	cve := router.Group("/cve")
	{
		cve.POST("/search", searchHandler(config.Engine))
	}

	products := router.Group("/products")
	{
		products.GET("/", productsAll(config.DB))
		products.GET("/by_vendor", productsByVendor(config.DB))
		products.GET("/search/:query", productsSearch(config.DB))
	}

	router.GET("/problems/:id", problemLookup(config.DB))

	return router
}

// Run serves until the listener fails.
func Run(config Config) error {
	router := NewRouter(config)
	addr := fmt.Sprintf("%s:%d", config.Address, config.Port)
	logrus.Infof("Start listening on %s...", addr)
	return router.Run(addr)
}

func healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"version": Version})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("request served")
	}
}
