package handlers

import (
	"context"
	"errors"
	"net/http"

	"studybuddy/internal/capture"
	"studybuddy/internal/logger"
	"studybuddy/internal/models"
	"studybuddy/internal/service"

	"github.com/gin-gonic/gin"
)

// statusClientClosedRequest is logged when the caller hung up before the response was ready.
const statusClientClosedRequest = 499

// Handler contains the API handlers dependencies
type Handler struct {
	Service        *service.Service
	Log            *logger.Logger
	MaxUploadBytes int64
}

// NewHandler creates a new Handler
func NewHandler(svc *service.Service, log *logger.Logger, maxUploadBytes int64) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		Service:        svc,
		Log:            log,
		MaxUploadBytes: maxUploadBytes,
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps service errors to HTTP statuses and aborts the request.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error"

	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNoImages),
		errors.Is(err, capture.ErrInvalidImage):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrGenerationFailed):
		status, msg = http.StatusBadGateway, "Generation failed, please try again: "+err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "Request timed out"
	case errors.Is(err, context.Canceled):
		status, msg = statusClientClosedRequest, "Request cancelled"
	}

	if status >= http.StatusInternalServerError {
		h.Log.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	} else {
		h.Log.Warn("Request rejected", "method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: msg})
}

func (h *Handler) badRequest(c *gin.Context, msg string) {
	h.Log.Warn("Bad request", "method", c.Request.Method, "path", c.FullPath(), "reason", msg)
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: msg})
}
