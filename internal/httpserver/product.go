package httpserver

import (
	"net/http"

	"cartsync/internal/domain"

	"github.com/gin-gonic/gin"
)

type productListResponse struct {
	Count   int              `json:"count"`
	Results []domain.Product `json:"results"`
}

func listProductsHandler(svc productService) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := svc.List(c.Request.Context())
		if err != nil {
			writeServiceError(c, err)
			return
		}
		if products == nil {
			products = []domain.Product{}
		}
		c.JSON(http.StatusOK, productListResponse{Count: len(products), Results: products})
	}
}

func getProductHandler(svc productService) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
