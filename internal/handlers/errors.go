package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/middleware"
	"github.com/gin-gonic/gin"
)

// respondWithError maps a service error onto the HTTP status and body the API
// promises. action is used in the generic message of unexpected failures.
func respondWithError(c *gin.Context, err error, action string) {
	logger := middleware.GetLoggerFromContext(c)

	var stateErr *apperrors.StateError
	var consErr *apperrors.ConsistencyError

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &stateErr):
		logger.Warn("Invalid state transition", slog.String("action", action), slog.String("state", stateErr.State))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": stateErr.State})
	case errors.Is(err, apperrors.ErrInvalidState):
		logger.Warn("Invalid state", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &consErr):
		logger.Error("Stock balance inconsistent",
			slog.String("action", action),
			slog.String("item_id", consErr.ItemID),
			slog.String("warehouse_id", consErr.WarehouseID),
			slog.String("reason", consErr.Reason))
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":       err.Error(),
			"itemId":      consErr.ItemID,
			"warehouseId": consErr.WarehouseID,
		})
	case errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Concurrent modification", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	default:
		logger.Error("Unexpected service error", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}
