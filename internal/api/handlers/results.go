package handlers

import (
	"net/http"

	"studybuddy/internal/models"
	"studybuddy/internal/service"

	"github.com/gin-gonic/gin"
)

type updateResultRequest struct {
	Subject  *string `json:"subject"`
	TestDate *string `json:"testDate"`
}

type scoreQuizRequest struct {
	Answers map[string]string `json:"answers"`
}

type contentResponse struct {
	ID      string         `json:"id"`
	Feature models.Feature `json:"feature"`
	Content models.Content `json:"content"`
}

// HandleListResults returns every stored result, newest first.
func (h *Handler) HandleListResults(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.List())
}

func (h *Handler) HandleGetResult(c *gin.Context) {
	r, err := h.Service.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// HandleUpdateResult renames a result or sets its test date.
func (h *Handler) HandleUpdateResult(c *gin.Context) {
	var req updateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	r, err := h.Service.UpdateMetadata(c.Request.Context(), c.Param("id"), service.MetadataUpdate{
		Subject:  req.Subject,
		TestDate: req.TestDate,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// HandleDeleteResult deletes one result. Deleting an unknown id succeeds.
func (h *Handler) HandleDeleteResult(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleResetResults clears all stored results.
func (h *Handler) HandleResetResults(c *gin.Context) {
	if err := h.Service.Reset(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) HandleGetContent(c *gin.Context) {
	feature, err := models.ParseFeature(c.Param("feature"))
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	id := c.Param("id")
	content, err := h.Service.Content(id, feature)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contentResponse{ID: id, Feature: feature, Content: content})
}

func (h *Handler) HandleScoreQuiz(c *gin.Context) {
	var req scoreQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	score, err := h.Service.ScoreQuiz(c.Request.Context(), c.Param("id"), req.Answers)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// HandlePlanner lists results with a test date, earliest first.
func (h *Handler) HandlePlanner(c *gin.Context) {
	planned := h.Service.Planner()
	if planned == nil {
		planned = []models.StudyResult{}
	}
	c.JSON(http.StatusOK, planned)
}
