package handlers

import (
	"net/http"

	"studybuddy/internal/models"
	"studybuddy/internal/service"

	"github.com/gin-gonic/gin"
)

type onboardingRequest struct {
	Name   string `json:"name"`
	Level  string `json:"level"`
	Grade  string `json:"grade"`
	APIKey string `json:"apiKey"`
}

// HandleGetSettings returns the settings record with the API key masked.
func (h *Handler) HandleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Settings().Redacted())
}

// HandleReplaceSettings overwrites the whole settings record.
func (h *Handler) HandleReplaceSettings(c *gin.Context) {
	var req models.UserSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	saved, err := h.Service.ReplaceSettings(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved.Redacted())
}

func (h *Handler) HandleOnboarding(c *gin.Context) {
	var req onboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	saved, err := h.Service.CompleteOnboarding(c.Request.Context(), service.Onboarding{
		Name:   req.Name,
		Level:  req.Level,
		Grade:  req.Grade,
		APIKey: req.APIKey,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved.Redacted())
}
