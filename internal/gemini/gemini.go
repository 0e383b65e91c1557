package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studybuddy/internal/capture"
	"studybuddy/internal/logger"
	"studybuddy/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// ModelName is the Gemini model used when none is configured.
	ModelName = "gemini-2.0-flash"
	// MaxInlineSize is the maximum total size of inline image data per request (20MB).
	MaxInlineSize = 20 * 1024 * 1024
)

var (
	// ErrNoImages is returned before any network call when a request carries no images.
	ErrNoImages = errors.New("no images provided")
	// ErrEmptyResponse means the model answered without any text content.
	ErrEmptyResponse = errors.New("model returned no content")
)

// contentModel is the subset of *genai.GenerativeModel the client needs.
type contentModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// modelFactory builds a model configured with the given system instruction and schema.
type modelFactory func(system string, schema *genai.Schema) contentModel

// Client wraps the Gemini client
type Client struct {
	client    *genai.Client
	modelName string
	newModel  modelFactory
	log       *logger.Logger
}

// NewClient creates a new Gemini client for the given API key.
func NewClient(ctx context.Context, apiKey, modelName string, log *logger.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key not set")
	}
	if modelName == "" {
		modelName = ModelName
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{client: client, modelName: modelName, log: log}
	c.newModel = func(system string, schema *genai.Schema) contentModel {
		model := client.GenerativeModel(modelName)
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = schema
		return model
	}
	return c, nil
}

// Close closes the Gemini client
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Analyze sends the images and a feature-specific prompt to the model in a single call and
// decodes the JSON answer into the feature's content type.
func (c *Client) Analyze(ctx context.Context, images []string, feature models.Feature, opts Options) (models.Content, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	prompt, schema, err := BuildPrompt(feature, opts)
	if err != nil {
		return nil, err
	}

	parts := make([]genai.Part, 0, len(images)+1)
	total := 0
	for i, img := range images {
		data, err := decodeImage(img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		total += len(data)
		parts = append(parts, genai.Blob{MIMEType: "image/jpeg", Data: data})
	}
	if total > MaxInlineSize {
		return nil, fmt.Errorf("images total %d bytes, above the %d byte inline limit", total, MaxInlineSize)
	}
	parts = append(parts, genai.Text(prompt))

	model := c.newModel(systemInstruction(opts.withDefaults().Personality), schema)

	c.log.Info("sending study material to gemini", "feature", feature, "images", len(images), "bytes", total, "model", c.modelName)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s content: %w", feature, err)
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	content, err := models.DecodeContent(feature, []byte(text))
	if err != nil {
		c.log.Debug("undecodable gemini response", "feature", feature, "raw", text)
		return nil, err
	}
	if resp.UsageMetadata != nil {
		c.log.Info("gemini usage", "feature", feature,
			"usage_prompt", resp.UsageMetadata.PromptTokenCount,
			"usage_candidates", resp.UsageMetadata.CandidatesTokenCount)
	}
	return content, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// decodeImage accepts a data URL or bare base64 and returns the raw bytes.
func decodeImage(img string) ([]byte, error) {
	data, err := capture.DecodeDataURL(strings.TrimSpace(img))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("image is empty")
	}
	return data, nil
}
