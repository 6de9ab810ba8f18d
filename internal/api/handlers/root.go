package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/securedocs/backend/internal/api/middleware"
	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/services"
	"github.com/securedocs/backend/internal/store"
	"github.com/securedocs/backend/pkg/logger"
)

var log = logger.NewNopLogger()

// Initialize sets the logger shared by the handlers.
func Initialize(l logger.Logger) {
	if l == nil {
		return
	}
	log = l
}

// @title SecureDocs API
// @version 1.0
// @description Document storage with optional copies on remote storage providers
// @host localhost:8080
// @BasePath /api/v1

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error" example:"Invalid request"`
	Kind    string      `json:"kind,omitempty" example:"QuotaExceeded"`
	Details interface{} `json:"details,omitempty"`
	Options []string    `json:"options,omitempty"`
}

// HealthCheck godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "Route not found"})
}

// StatusForKind maps an expected upload failure to its HTTP status.
func StatusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.EntitlementDenied:
		return http.StatusForbidden
	case services.ProviderUnavailable, services.ProviderMisconfigured:
		return http.StatusServiceUnavailable
	case services.FileInaccessible:
		return http.StatusConflict
	case services.SizeExceeded:
		return http.StatusRequestEntityTooLarge
	case services.QuotaExceeded:
		return http.StatusTooManyRequests
	case services.RemoteProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondUploadError(c *gin.Context, uerr *services.UploadError, details interface{}) {
	c.JSON(StatusForKind(uerr.Kind), ErrorResponse{
		Error:   uerr.Message,
		Kind:    string(uerr.Kind),
		Details: details,
	})
}

func currentUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in token"})
		return 0, false
	}
	return userID, true
}

func fileIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid file ID"})
		return 0, false
	}
	return uint(id), true
}

// respondStoreError writes the response for a file lookup or state change
// failure. Files owned by other users are reported as missing.
func respondStoreError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "File not found"})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "File is not in a state that allows this operation"})
	default:
		log.WithError(err).Error("Failed to " + action)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to " + action})
	}
}
