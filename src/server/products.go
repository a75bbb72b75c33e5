package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"

	"github.com/CodeClarityCE/service-cvesearch/src/utilities/pgsql"
)

func productsAll(db *bun.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := pgsql.GetProducts(c.Request.Context(), db)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func productsByVendor(db *bun.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := pgsql.GetProducts(c.Request.Context(), db)
		if err != nil {
			abortWithError(c, err)
			return
		}

		grouped := make(map[string][]string)
		for _, product := range products {
			grouped[product.Vendor] = append(grouped[product.Vendor], product.Product)
		}

		c.JSON(http.StatusOK, grouped)
	}
}

func productsSearch(db *bun.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := pgsql.SearchProducts(c.Request.Context(), db, c.Param("query"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}
