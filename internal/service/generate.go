package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"studybuddy/internal/capture"
	"studybuddy/internal/gemini"
	"studybuddy/internal/models"
)

// GenerateRequest asks for one feature of either a new scan or an existing result.
type GenerateRequest struct {
	// ResultID selects an existing result whose stored images are reused. Empty starts a new scan.
	ResultID      string
	Images        []string
	Feature       models.Feature
	Difficulty    models.QuizDifficulty
	QuestionCount int
}

func (req GenerateRequest) normalized() (GenerateRequest, error) {
	if req.Feature == "" {
		req.Feature = models.FeatureSummary
	}
	if !req.Feature.Valid() {
		return req, fmt.Errorf("%w: unknown feature %q", ErrInvalidInput, req.Feature)
	}
	d, err := models.ParseDifficulty(string(req.Difficulty))
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	req.Difficulty = d
	if req.QuestionCount <= 0 {
		req.QuestionCount = models.DefaultQuestionCount
	}
	if req.QuestionCount > MaxQuestionCount {
		return req, fmt.Errorf("%w: at most %d questions", ErrInvalidInput, MaxQuestionCount)
	}
	return req, nil
}

// Generate runs one analysis request and stores the outcome. For an existing result the new
// content replaces the stored one and the feature joins its generated set. Otherwise a new
// result is created and put in front of the collection. Nothing is stored when the request fails.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (models.StudyResult, error) {
	req, err := req.normalized()
	if err != nil {
		return models.StudyResult{}, err
	}

	settings := s.store.Settings()
	images := req.Images
	level, grade := settings.Level, settings.Grade

	var existing *models.StudyResult
	if req.ResultID != "" {
		r, err := s.store.Get(req.ResultID)
		if err != nil {
			return models.StudyResult{}, err
		}
		existing = &r
		images = r.Images
		if r.Level != "" {
			level = r.Level
		}
		if r.Grade != "" {
			grade = r.Grade
		}
	}
	if len(images) == 0 {
		return models.StudyResult{}, ErrNoImages
	}
	if err := validateImages(images); err != nil {
		return models.StudyResult{}, err
	}

	analyzer, err := s.analyzerFor(ctx, settings)
	if err != nil {
		return models.StudyResult{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	content, err := analyzer.Analyze(ctx, images, req.Feature, gemini.Options{
		Level:         level,
		Grade:         grade,
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
		Personality:   settings.AIPersonality,
	})
	if err != nil {
		if errors.Is(err, ErrNoImages) || errors.Is(err, ErrInvalidImage) {
			return models.StudyResult{}, err
		}
		s.log.Error("Generation failed", "feature", req.Feature, "result_id", req.ResultID, "error", err)
		if settings.Notifications {
			s.notifier.GenerationFailed(req.Feature, err)
		}
		return models.StudyResult{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if content == nil || content.Feature() != req.Feature {
		return models.StudyResult{}, fmt.Errorf("%w: analyzer returned content for the wrong feature", ErrGenerationFailed)
	}
	// A caller that went away does not get a stored result.
	if err := ctx.Err(); err != nil {
		return models.StudyResult{}, err
	}

	if quiz, ok := content.(*models.QuizContent); ok {
		quiz.Difficulty = req.Difficulty
	}

	if existing != nil {
		return s.extend(ctx, *existing, req, content, settings.Notifications)
	}
	return s.create(ctx, req, images, level, grade, content, settings.Notifications)
}

// validateImages rejects pages that are not decodable base64 or data URLs.
func validateImages(images []string) error {
	for i, img := range images {
		data, err := capture.DecodeDataURL(strings.TrimSpace(img))
		if err != nil {
			return fmt.Errorf("image %d: %w", i+1, err)
		}
		if len(data) == 0 {
			return fmt.Errorf("image %d: %w: empty", i+1, ErrInvalidImage)
		}
	}
	return nil
}

func (s *Service) extend(ctx context.Context, r models.StudyResult, req GenerateRequest, content models.Content, notify bool) (models.StudyResult, error) {
	patch := models.ResultPatch{
		Feature: &req.Feature,
		Content: content,
	}
	if req.Feature == models.FeatureQuiz {
		patch.QuizDifficulty = &req.Difficulty
	}
	// Union against the stored set: another request may have added a feature meanwhile.
	updated, err := s.store.Modify(ctx, r.ID, func(stored *models.StudyResult) {
		patch.Apply(stored)
		stored.GeneratedFeatures = models.WithFeature(stored.GeneratedFeatures, req.Feature)
	})
	if err != nil {
		return models.StudyResult{}, err
	}
	s.log.Info("Added feature to result", "id", r.ID, "feature", req.Feature)
	if notify {
		s.notifier.FeatureAdded(updated, req.Feature)
	}
	return updated, nil
}

func (s *Service) create(ctx context.Context, req GenerateRequest, images []string, level, grade string, content models.Content, notify bool) (models.StudyResult, error) {
	subject := strings.TrimSpace(content.Title())
	if subject == "" {
		subject = DefaultSubject
	}
	r := models.StudyResult{
		ID:                s.newID(),
		Date:              s.now().UTC(),
		Level:             level,
		Grade:             grade,
		Subject:           subject,
		Images:            slices.Clone(images),
		Feature:           req.Feature,
		Content:           content,
		GeneratedFeatures: []models.Feature{req.Feature},
	}
	if req.Feature == models.FeatureQuiz {
		r.QuizDifficulty = req.Difficulty
	}
	if err := s.store.Add(ctx, r); err != nil {
		return models.StudyResult{}, err
	}
	s.log.Info("Created result", "id", r.ID, "feature", r.Feature, "images", len(r.Images))
	if notify {
		s.notifier.ResultCreated(r)
	}
	return r.Clone(), nil
}
