package service

import (
	"context"
	"fmt"
	"strings"

	"studybuddy/internal/models"
)

// Onboarding defaults.
const (
	DefaultName  = "Student"
	DefaultLevel = "HAVO"
	DefaultGrade = "4"
)

func (s *Service) Settings() models.UserSettings { return s.store.Settings() }

// ReplaceSettings overwrites the settings record. The redacted API key keeps the stored one,
// so a record read from the API can be sent back unchanged. An empty key removes it.
func (s *Service) ReplaceSettings(ctx context.Context, next models.UserSettings) (models.UserSettings, error) {
	switch next.AIPersonality {
	case "":
		next.AIPersonality = models.PersonalityHyped
	case models.PersonalityHyped, models.PersonalityChill, models.PersonalityPro:
	default:
		return models.UserSettings{}, fmt.Errorf("%w: unknown personality %q", ErrInvalidInput, next.AIPersonality)
	}
	next.APIKey = strings.TrimSpace(next.APIKey)
	if next.APIKey == models.RedactedAPIKey {
		next.APIKey = s.store.Settings().APIKey
	}
	if err := s.store.ReplaceSettings(ctx, next); err != nil {
		return models.UserSettings{}, err
	}
	s.log.Info("Settings updated", "name", next.Name, "level", next.Level, "grade", next.Grade)
	return next, nil
}

// Onboarding is what the first-run flow collects.
type Onboarding struct {
	Name   string
	Level  string
	Grade  string
	APIKey string
}

// CompleteOnboarding writes a fresh settings record from the onboarding answers, filling
// blanks with defaults. Notifications and streak reminders are switched on and the personality
// starts as HYPED. The avatar seed follows the name. Without an API key the stored one is kept.
func (s *Service) CompleteOnboarding(ctx context.Context, o Onboarding) (models.UserSettings, error) {
	name := orDefault(o.Name, DefaultName)
	settings := models.UserSettings{
		Name:               name,
		Level:              orDefault(o.Level, DefaultLevel),
		Grade:              orDefault(o.Grade, DefaultGrade),
		Notifications:      true,
		AIPersonality:      models.PersonalityHyped,
		StreakReminders:    true,
		AvatarSeed:         name,
		APIKey:             strings.TrimSpace(o.APIKey),
		OnboardingComplete: true,
	}
	if settings.APIKey == "" || settings.APIKey == models.RedactedAPIKey {
		settings.APIKey = s.store.Settings().APIKey
	}
	if err := s.store.ReplaceSettings(ctx, settings); err != nil {
		return models.UserSettings{}, err
	}
	s.log.Info("Onboarding complete", "name", settings.Name, "level", settings.Level)
	return settings, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
