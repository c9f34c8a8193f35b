package httpserver

import (
	"errors"
	"net/http"

	"cartsync/internal/cartapi"
	"cartsync/internal/domain"

	"github.com/gin-gonic/gin"
)

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, cartapi.ErrorResponse{Error: msg})
}

// writeServiceError maps domain errors to statuses; anything unknown is a 500.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		abortError(c, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidInput):
		abortError(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		abortError(c, http.StatusInternalServerError, "internal error")
	}
}
