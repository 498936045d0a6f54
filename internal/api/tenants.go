package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spigell/applyflow/internal/credentials"
)

type tenantSettingsRequest struct {
	Name           string `json:"name"`
	APIKey         string `json:"api_key"`
	Model          string `json:"model"`
	SchedulingLink string `json:"scheduling_link"`
}

// ConfigureTenant stores the recruiter's AI key, model and scheduling link.
// The key is never echoed back.
func (h *Handler) ConfigureTenant(c *gin.Context) {
	var req tenantSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	err := h.tenants.Configure(c.Request.Context(), c.Param("id"), credentials.Settings{
		Name:           req.Name,
		APIKey:         req.APIKey,
		Model:          req.Model,
		SchedulingLink: req.SchedulingLink,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenant_id": c.Param("id"), "api_key_set": req.APIKey != ""})
}
