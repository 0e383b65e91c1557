package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"studybuddy/internal/capture"
	"studybuddy/internal/models"
	"studybuddy/internal/service"

	"github.com/gin-gonic/gin"
)

// imagesField is the multipart field carrying photographed pages.
const imagesField = "images"

type generateRequest struct {
	ResultID      string   `json:"resultId"`
	Images        []string `json:"images"`
	Feature       string   `json:"feature"`
	Difficulty    string   `json:"difficulty"`
	QuestionCount int      `json:"questionCount"`
}

// HandleGenerate runs the analysis flow. It accepts either a JSON body with encoded images or a
// multipart form whose "images" files are normalized to JPEG first.
func (h *Handler) HandleGenerate(c *gin.Context) {
	var req generateRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		parsed, err := h.parseGenerateForm(c)
		if err != nil {
			h.writeError(c, err)
			return
		}
		req = parsed
	} else if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var feature models.Feature
	if req.Feature != "" {
		f, err := models.ParseFeature(req.Feature)
		if err != nil {
			h.badRequest(c, err.Error())
			return
		}
		feature = f
	}

	h.Log.Info("Handling generate request", "feature", feature, "result_id", req.ResultID, "images", len(req.Images))
	result, err := h.Service.Generate(c.Request.Context(), service.GenerateRequest{
		ResultID:      req.ResultID,
		Images:        req.Images,
		Feature:       feature,
		Difficulty:    models.QuizDifficulty(req.Difficulty),
		QuestionCount: req.QuestionCount,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusCreated
	if req.ResultID != "" {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (h *Handler) parseGenerateForm(c *gin.Context) (generateRequest, error) {
	form, err := h.multipartForm(c)
	if err != nil {
		return generateRequest{}, err
	}
	values := url.Values(form.Value)
	req := generateRequest{
		ResultID:   strings.TrimSpace(values.Get("resultId")),
		Feature:    values.Get("feature"),
		Difficulty: values.Get("difficulty"),
	}
	if raw := strings.TrimSpace(values.Get("questionCount")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return generateRequest{}, fmt.Errorf("%w: questionCount %q is not a number", service.ErrInvalidInput, raw)
		}
		req.QuestionCount = n
	}
	if files := form.File[imagesField]; len(files) > 0 {
		images, err := h.normalizeUploads(c, files)
		if err != nil {
			return generateRequest{}, err
		}
		req.Images = images
	}
	return req, nil
}

// HandleCaptures normalizes uploaded frames and returns them as JPEG data URLs.
func (h *Handler) HandleCaptures(c *gin.Context) {
	form, err := h.multipartForm(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	files := form.File[imagesField]
	if len(files) == 0 {
		h.writeError(c, service.ErrNoImages)
		return
	}
	images, err := h.normalizeUploads(c, files)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

func (h *Handler) multipartForm(c *gin.Context) (*multipart.Form, error) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: upload exceeds %d bytes", service.ErrInvalidInput, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: failed to parse multipart form: %v", service.ErrInvalidInput, err)
	}
	return c.Request.MultipartForm, nil
}

func (h *Handler) normalizeUploads(c *gin.Context, files []*multipart.FileHeader) ([]string, error) {
	frames := make([][]byte, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", capture.ErrInvalidImage, fh.Filename, err)
		}
		frames = append(frames, data)
	}
	h.Log.Info("Normalizing uploaded frames", "count", len(frames))
	return capture.NormalizeAll(c.Request.Context(), frames)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
