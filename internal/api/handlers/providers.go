package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/securedocs/backend/internal/providers"
)

type ProviderHandler struct {
	registry *providers.Registry
}

func NewProviderHandler(registry *providers.Registry) *ProviderHandler {
	return &ProviderHandler{registry: registry}
}

// @Summary List storage providers
// @Tags providers
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /providers [get]
func (h *ProviderHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":   h.registry.DefaultName(),
		"providers": h.registry.Descriptors(),
	})
}

// @Summary Test provider credentials
// @Description Calls the provider's authentication endpoint with the configured credentials
// @Tags providers
// @Param name path string true "Provider name"
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /providers/{name}/test [get]
func (h *ProviderHandler) TestConnection(c *gin.Context) {
	name := c.Param("name")
	client, ok := h.registry.Lookup(name)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Unknown storage provider"})
		return
	}

	status := client.TestConnection(c.Request.Context())
	log.WithField("provider", client.Name()).WithField("ok", status.OK).Info("Tested provider connection")

	c.JSON(http.StatusOK, gin.H{
		"provider": client.Name(),
		"ok":       status.OK,
		"message":  status.Message,
	})
}
