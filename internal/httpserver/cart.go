package httpserver

import (
	"net/http"

	"cartsync/internal/cartapi"
	"cartsync/internal/domain"
	cartsvc "cartsync/internal/service/cart"

	"github.com/gin-gonic/gin"
)

func getCartHandler(svc cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := svc.Get(c.Request.Context(), identityFrom(c))
		respondCart(c, cart, err)
	}
}

func addItemHandler(svc cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartapi.AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid body")
			return
		}
		cart, err := svc.AddItem(c.Request.Context(), identityFrom(c), cartsvc.LineInput{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
		})
		respondCart(c, cart, err)
	}
}

func updateItemHandler(svc cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartapi.UpdateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid body")
			return
		}
		cart, err := svc.UpdateQuantity(c.Request.Context(), identityFrom(c), cartsvc.LineInput{
			ProductID: c.Param("productId"),
			Quantity:  req.Quantity,
		})
		respondCart(c, cart, err)
	}
}

func removeItemHandler(svc cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := svc.RemoveItem(c.Request.Context(), identityFrom(c), c.Param("productId"))
		respondCart(c, cart, err)
	}
}

func clearCartHandler(svc cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Clear(c.Request.Context(), identityFrom(c)); err != nil {
			writeServiceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func syncCartHandler(svc cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartapi.SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid body")
			return
		}
		lines := make([]cartsvc.LineInput, 0, len(req.Items))
		for _, item := range req.Items {
			lines = append(lines, cartsvc.LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		cart, err := svc.Sync(c.Request.Context(), identityFrom(c), lines)
		respondCart(c, cart, err)
	}
}

func respondCart(c *gin.Context, cart domain.Cart, err error) {
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartapi.FromCart(cart))
}
