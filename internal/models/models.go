package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Feature is one of the generation modes offered for a scanned study session.
type Feature string

const (
	FeatureSummary    Feature = "SUMMARY"
	FeatureCheatSheet Feature = "CHEAT_SHEET"
	FeatureQuiz       Feature = "QUIZ"
	FeatureTips       Feature = "TIPS"
)

// AllFeatures lists every Feature in display order.
var AllFeatures = []Feature{FeatureSummary, FeatureCheatSheet, FeatureQuiz, FeatureTips}

// ParseFeature accepts the canonical upper-case name as well as lower-case and dashed
// variants ("cheat-sheet").
func ParseFeature(s string) (Feature, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, f := range AllFeatures {
		if string(f) == norm {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feature %q", s)
}

func (f Feature) Valid() bool {
	switch f {
	case FeatureSummary, FeatureCheatSheet, FeatureQuiz, FeatureTips:
		return true
	}
	return false
}

// QuizDifficulty is the requested difficulty of a generated quiz.
type QuizDifficulty string

const (
	DifficultyBasic    QuizDifficulty = "BASIS"
	DifficultyMedium   QuizDifficulty = "GEMIDDELD"
	DifficultyAdvanced QuizDifficulty = "GEVORDERD"
)

// DefaultDifficulty is used whenever a request leaves difficulty empty.
const DefaultDifficulty = DifficultyMedium

// DefaultQuestionCount is used whenever a quiz request leaves the count at zero.
const DefaultQuestionCount = 10

func ParseDifficulty(s string) (QuizDifficulty, error) {
	switch d := QuizDifficulty(strings.ToUpper(strings.TrimSpace(s))); d {
	case "":
		return DefaultDifficulty, nil
	case DifficultyBasic, DifficultyMedium, DifficultyAdvanced:
		return d, nil
	default:
		return "", fmt.Errorf("unknown quiz difficulty %q", s)
	}
}

// QuestionType is the kind of a quiz question.
type QuestionType string

const (
	QuestionMCQ       QuestionType = "MCQ"
	QuestionOpen      QuestionType = "OPEN"
	QuestionTrueFalse QuestionType = "TRUE_FALSE"
	QuestionFillIn    QuestionType = "INVUL"
	QuestionMatch     QuestionType = "MATCH"
	QuestionOrdering  QuestionType = "ORDERING"
)

// AllQuestionTypes is the enum offered to the model in the quiz schema.
var AllQuestionTypes = []QuestionType{
	QuestionMCQ, QuestionOpen, QuestionTrueFalse, QuestionFillIn, QuestionMatch, QuestionOrdering,
}

// Personality is the tone preference for generated content.
type Personality string

const (
	PersonalityHyped Personality = "HYPED"
	PersonalityChill Personality = "CHILL"
	PersonalityPro   Personality = "PRO"
)

// StudyResult is the persisted record of one scan and its generated content.
type StudyResult struct {
	ID                string         `json:"id"`
	Date              time.Time      `json:"date"`
	TestDate          string         `json:"testDate,omitempty"` // YYYY-MM-DD
	Level             string         `json:"level,omitempty"`
	Grade             string         `json:"grade,omitempty"`
	Subject           string         `json:"subject"`
	Images            []string       `json:"images"`
	Feature           Feature        `json:"feature"`
	Content           Content        `json:"content"`
	GeneratedFeatures []Feature      `json:"generatedFeatures"`
	QuizDifficulty    QuizDifficulty `json:"quizDifficulty,omitempty"`
	LastScore         *int           `json:"lastScore,omitempty"`
}

// studyResultJSON mirrors StudyResult with the content kept raw so it can be decoded
// once the feature tag is known.
type studyResultJSON struct {
	ID                string          `json:"id"`
	Date              time.Time       `json:"date"`
	TestDate          string          `json:"testDate,omitempty"`
	Level             string          `json:"level,omitempty"`
	Grade             string          `json:"grade,omitempty"`
	Subject           string          `json:"subject"`
	Images            []string        `json:"images"`
	Feature           Feature         `json:"feature"`
	Content           json.RawMessage `json:"content"`
	GeneratedFeatures []Feature       `json:"generatedFeatures"`
	QuizDifficulty    QuizDifficulty  `json:"quizDifficulty,omitempty"`
	LastScore         *int            `json:"lastScore,omitempty"`
}

func (r StudyResult) MarshalJSON() ([]byte, error) {
	raw := json.RawMessage("null")
	if r.Content != nil {
		b, err := json.Marshal(r.Content)
		if err != nil {
			return nil, fmt.Errorf("encode %s content: %w", r.Feature, err)
		}
		raw = b
	}
	images := r.Images
	if images == nil {
		images = []string{}
	}
	features := r.GeneratedFeatures
	if features == nil {
		features = []Feature{}
	}
	return json.Marshal(studyResultJSON{
		ID:                r.ID,
		Date:              r.Date,
		TestDate:          r.TestDate,
		Level:             r.Level,
		Grade:             r.Grade,
		Subject:           r.Subject,
		Images:            images,
		Feature:           r.Feature,
		Content:           raw,
		GeneratedFeatures: features,
		QuizDifficulty:    r.QuizDifficulty,
		LastScore:         r.LastScore,
	})
}

func (r *StudyResult) UnmarshalJSON(data []byte) error {
	var aux studyResultJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var content Content
	if len(aux.Content) > 0 && string(aux.Content) != "null" {
		c, err := DecodeContent(aux.Feature, aux.Content)
		if err != nil {
			return fmt.Errorf("result %s: %w", aux.ID, err)
		}
		content = c
	}
	*r = StudyResult{
		ID:                aux.ID,
		Date:              aux.Date,
		TestDate:          aux.TestDate,
		Level:             aux.Level,
		Grade:             aux.Grade,
		Subject:           aux.Subject,
		Images:            aux.Images,
		Feature:           aux.Feature,
		Content:           content,
		GeneratedFeatures: aux.GeneratedFeatures,
		QuizDifficulty:    aux.QuizDifficulty,
		LastScore:         aux.LastScore,
	}
	return nil
}

// HasFeature reports whether f was generated for this result.
func (r StudyResult) HasFeature(f Feature) bool {
	for _, g := range r.GeneratedFeatures {
		if g == f {
			return true
		}
	}
	return false
}

// WithFeature returns the generated-feature set extended by f, keeping the original order
// and never duplicating an entry.
func WithFeature(features []Feature, f Feature) []Feature {
	out := make([]Feature, 0, len(features)+1)
	seen := make(map[Feature]bool, len(features)+1)
	for _, g := range features {
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	if !seen[f] {
		out = append(out, f)
	}
	return out
}

// Clone returns a deep copy so callers cannot mutate store-owned slices or content.
func (r StudyResult) Clone() StudyResult {
	out := r
	out.Images = slices.Clone(r.Images)
	out.GeneratedFeatures = slices.Clone(r.GeneratedFeatures)
	out.Content = CloneContent(r.Content)
	if r.LastScore != nil {
		score := *r.LastScore
		out.LastScore = &score
	}
	return out
}

// ResultPatch carries a partial update. Nil fields are left untouched.
type ResultPatch struct {
	TestDate          *string
	Level             *string
	Grade             *string
	Subject           *string
	Images            []string
	Feature           *Feature
	Content           Content
	GeneratedFeatures []Feature
	QuizDifficulty    *QuizDifficulty
	LastScore         *int
}

// Apply merges p into r.
func (p ResultPatch) Apply(r *StudyResult) {
	if p.TestDate != nil {
		r.TestDate = *p.TestDate
	}
	if p.Level != nil {
		r.Level = *p.Level
	}
	if p.Grade != nil {
		r.Grade = *p.Grade
	}
	if p.Subject != nil {
		r.Subject = *p.Subject
	}
	if p.Images != nil {
		r.Images = slices.Clone(p.Images)
	}
	if p.Feature != nil {
		r.Feature = *p.Feature
	}
	if p.Content != nil {
		r.Content = CloneContent(p.Content)
	}
	if p.GeneratedFeatures != nil {
		r.GeneratedFeatures = slices.Clone(p.GeneratedFeatures)
	}
	if p.QuizDifficulty != nil {
		r.QuizDifficulty = *p.QuizDifficulty
	}
	if p.LastScore != nil {
		score := *p.LastScore
		r.LastScore = &score
	}
}

// UserSettings is the single per-installation settings record.
type UserSettings struct {
	Name               string      `json:"name"`
	Level              string      `json:"level"`
	Grade              string      `json:"grade"`
	Notifications      bool        `json:"notifications"`
	AIPersonality      Personality `json:"aiPersonality"`
	StreakReminders    bool        `json:"streakReminders"`
	AvatarSeed         string      `json:"avatarSeed"`
	APIKey             string      `json:"apiKey,omitempty"`
	OnboardingComplete bool        `json:"onboardingComplete,omitempty"`
}

// DefaultSettings is the record a fresh installation starts with.
func DefaultSettings() UserSettings {
	return UserSettings{
		Name:            "Emma",
		Level:           "HAVO",
		Grade:           "4",
		Notifications:   true,
		AIPersonality:   PersonalityHyped,
		StreakReminders: true,
		AvatarSeed:      "Emma",
	}
}

// RedactedAPIKey replaces the API key in responses.
const RedactedAPIKey = "********"

// Redacted returns a copy safe to hand to clients.
func (s UserSettings) Redacted() UserSettings {
	if s.APIKey != "" {
		s.APIKey = RedactedAPIKey
	}
	return s
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
