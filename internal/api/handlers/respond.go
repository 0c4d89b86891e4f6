package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/services"
)

// respondError maps a service error onto its response class. Codec
// failures surface as plain server errors; raw cipher detail and secrets
// never reach the response body.
func respondError(c *gin.Context, logger *zap.Logger, message string, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": message})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": message, "error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": message, "error": err.Error()})
	default:
		logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": message})
	}
}
