package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/providers"
	"github.com/securedocs/backend/internal/services"
	"github.com/securedocs/backend/internal/store"
)

// RemoteHandler copies files to remote storage providers and manages the
// remote copies.
type RemoteHandler struct {
	files     *services.FileManager
	users     *store.UserStore
	ledger    *store.AttemptLedger
	validator *services.PreflightValidator
	uploads   *services.UploadCoordinator
	removal   *services.RemovalCoordinator
	registry  *providers.Registry
	quota     int
}

func NewRemoteHandler(
	files *services.FileManager,
	users *store.UserStore,
	ledger *store.AttemptLedger,
	validator *services.PreflightValidator,
	uploads *services.UploadCoordinator,
	removal *services.RemovalCoordinator,
	registry *providers.Registry,
	quota int,
) *RemoteHandler {
	return &RemoteHandler{
		files:     files,
		users:     users,
		ledger:    ledger,
		validator: validator,
		uploads:   uploads,
		removal:   removal,
		registry:  registry,
		quota:     quota,
	}
}

// RemoteUploadRequest selects the provider. An empty provider uses the default.
type RemoteUploadRequest struct {
	Provider string `json:"provider" example:"pinata"`
}

// RemoteStatsResponse summarises a user's remote uploads
type RemoteStatsResponse struct {
	*store.AttemptStats
	QuotaUsed      int64     `json:"quotaUsed"`
	QuotaLimit     int       `json:"quotaLimit"`
	QuotaResetDate time.Time `json:"quotaResetDate"`
}

func (h *RemoteHandler) loadUser(c *gin.Context, userID uint) (*models.User, bool) {
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not found"})
			return nil, false
		}
		log.WithError(err).WithField("userID", userID).Error("Failed to load user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load user"})
		return nil, false
	}
	return user, true
}

// @Summary Check whether a file can be copied to remote storage
// @Description Runs every upload check without contacting the provider
// @Tags remote
// @Param id path int true "File ID"
// @Param provider query string false "Provider name"
// @Produce json
// @Success 200 {object} services.PreflightResult
// @Router /files/{id}/remote/preflight [get]
func (h *RemoteHandler) Preflight(c *gin.Context) {
	file, ok := loadFile(c, h.files)
	if !ok {
		return
	}
	user, ok := h.loadUser(c, file.UserID)
	if !ok {
		return
	}

	result, err := h.validator.Validate(c.Request.Context(), file, user, c.Query("provider"))
	if err != nil {
		log.WithError(err).WithField("fileID", file.ID).Error("Preflight validation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to validate file"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Copy a file to remote storage
// @Tags remote
// @Accept json
// @Param id path int true "File ID"
// @Param request body RemoteUploadRequest false "Provider selection"
// @Produce json
// @Success 200 {object} services.UploadResult
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /files/{id}/remote [post]
func (h *RemoteHandler) Upload(c *gin.Context) {
	file, ok := loadFile(c, h.files)
	if !ok {
		return
	}
	user, ok := h.loadUser(c, file.UserID)
	if !ok {
		return
	}

	var req RemoteUploadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error()})
			return
		}
	}

	ctx := c.Request.Context()

	// quota and extension warnings are only evaluated by the validator
	preflight, err := h.validator.Validate(ctx, file, user, req.Provider)
	if err != nil {
		log.WithError(err).WithField("fileID", file.ID).Error("Preflight validation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to validate file"})
		return
	}
	if uerr := preflight.FirstError(); uerr != nil {
		respondUploadError(c, uerr, preflight)
		return
	}

	result, err := h.uploads.Upload(ctx, services.UploadRequest{
		FileID:   file.ID,
		UserID:   user.ID,
		Provider: preflight.Provider,
	})
	if err != nil {
		log.WithError(err).WithField("fileID", file.ID).Error("Remote upload failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to upload file"})
		return
	}
	if !result.Success {
		respondUploadError(c, result.Error, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Remove the remote copy of a file
// @Tags remote
// @Param id path int true "File ID"
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 502 {object} ErrorResponse
// @Router /files/{id}/remote [delete]
func (h *RemoteHandler) Remove(c *gin.Context) {
	file, ok := loadFile(c, h.files)
	if !ok {
		return
	}

	removed, err := h.removal.Remove(c.Request.Context(), file)
	if err != nil {
		var uerr *services.UploadError
		if errors.As(err, &uerr) {
			respondUploadError(c, uerr, nil)
			return
		}
		log.WithError(err).WithField("fileID", file.ID).Error("Remote removal failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to remove remote copy"})
		return
	}

	message := "File is not stored remotely"
	if removed {
		message = "Remote copy removed"
	}
	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
		"message": message,
	})
}

// @Summary List upload attempts for a file
// @Tags remote
// @Param id path int true "File ID"
// @Produce json
// @Success 200 {array} models.UploadAttempt
// @Router /files/{id}/attempts [get]
func (h *RemoteHandler) Attempts(c *gin.Context) {
	file, ok := loadFile(c, h.files)
	if !ok {
		return
	}

	attempts, err := h.ledger.ListForFile(c.Request.Context(), file.ID)
	if err != nil {
		log.WithError(err).WithField("fileID", file.ID).Error("Failed to fetch upload attempts")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch upload attempts"})
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// @Summary Remote upload statistics and quota usage
// @Tags remote
// @Produce json
// @Success 200 {object} RemoteStatsResponse
// @Router /remote/stats [get]
func (h *RemoteHandler) Stats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	stats, err := h.ledger.StatsForUser(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("userID", userID).Error("Failed to compute upload statistics")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch statistics"})
		return
	}

	start, reset := services.QuotaWindow(time.Now())
	used, err := h.ledger.CountCompletedSince(ctx, userID, start)
	if err != nil {
		log.WithError(err).WithField("userID", userID).Error("Failed to count monthly uploads")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch statistics"})
		return
	}

	c.JSON(http.StatusOK, RemoteStatsResponse{
		AttemptStats:   stats,
		QuotaUsed:      used,
		QuotaLimit:     h.quota,
		QuotaResetDate: reset,
	})
}

// @Summary Download the remote copy of a file
// @Description Streams the content from the provider, or redirects to its gateway with ?gateway=true
// @Tags remote
// @Param id path int true "File ID"
// @Param gateway query bool false "Redirect to the provider gateway"
// @Produce octet-stream
// @Success 200 {file} binary "File content"
// @Router /files/{id}/remote/download [get]
func (h *RemoteHandler) Download(c *gin.Context) {
	file, ok := loadFile(c, h.files)
	if !ok {
		return
	}
	if !file.IsBlockchainStored || file.BlockchainProvider == nil || file.ContentHash == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "File is not stored remotely"})
		return
	}

	providerName, contentHash := *file.BlockchainProvider, *file.ContentHash
	client, ok := h.registry.Lookup(providerName)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: fmt.Sprintf("storage provider %q is not available", providerName),
			Kind:  string(services.ProviderUnavailable),
		})
		return
	}

	disposition := fmt.Sprintf("attachment; filename=%q", file.Name)

	if c.Query("gateway") == "true" {
		gatewayURL := client.GatewayURL(contentHash)
		if file.RemoteURL != nil && *file.RemoteURL != "" {
			gatewayURL = *file.RemoteURL
		}
		log.WithField("url", gatewayURL).Info("Redirecting to provider gateway")

		c.Header("Content-Disposition", disposition)
		c.Redirect(http.StatusTemporaryRedirect, gatewayURL)
		return
	}

	content, err := client.Fetch(c.Request.Context(), contentHash)
	if err != nil {
		if errors.Is(err, providers.ErrContentNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Content not found on provider"})
			return
		}
		log.WithError(err).WithField("fileID", file.ID).Error("Failed to fetch remote content")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: "Failed to fetch content from " + providerName,
			Kind:  string(services.RemoteProviderError),
			Options: []string{
				"Use '?gateway=true' parameter to download directly from the provider gateway",
			},
		})
		return
	}
	defer content.Close()

	c.DataFromReader(http.StatusOK, -1, file.MimeType, content, map[string]string{
		"Content-Disposition": disposition,
	})
}
