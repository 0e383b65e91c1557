package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"studybuddy/internal/models"
)

// DateLayout is the format of a result's test date.
const DateLayout = "2006-01-02"

// MetadataUpdate renames a result or changes its test date. Nil fields are kept; an empty
// TestDate clears the date.
type MetadataUpdate struct {
	Subject  *string
	TestDate *string
}

func (s *Service) UpdateMetadata(ctx context.Context, id string, u MetadataUpdate) (models.StudyResult, error) {
	var patch models.ResultPatch
	if u.Subject != nil {
		subject := strings.TrimSpace(*u.Subject)
		if subject == "" {
			return models.StudyResult{}, fmt.Errorf("%w: subject must not be empty", ErrInvalidInput)
		}
		patch.Subject = &subject
	}
	if u.TestDate != nil {
		testDate := strings.TrimSpace(*u.TestDate)
		if testDate != "" {
			if _, err := time.Parse(DateLayout, testDate); err != nil {
				return models.StudyResult{}, fmt.Errorf("%w: test date %q is not YYYY-MM-DD", ErrInvalidInput, testDate)
			}
		}
		patch.TestDate = &testDate
	}
	return s.store.Update(ctx, id, patch)
}

// QuizScore is the outcome of one quiz attempt.
type QuizScore struct {
	Correct   int              `json:"correct"`
	Total     int              `json:"total"`
	Questions []QuestionResult `json:"questions"`
}

type QuestionResult struct {
	ID       string `json:"id"`
	Given    string `json:"given"`
	Expected string `json:"expected"`
	Correct  bool   `json:"correct"`
}

// QuestionKey is the key a question's answer is submitted under: its id, or its
// position when the model left the id empty.
func QuestionKey(q models.QuizQuestion, index int) string {
	if q.ID != "" {
		return q.ID
	}
	return strconv.Itoa(index)
}

func sameAnswer(given, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(expected))
}

// ScoreQuiz checks answers against the stored quiz and records the number correct as the
// result's last score.
func (s *Service) ScoreQuiz(ctx context.Context, id string, answers map[string]string) (QuizScore, error) {
	r, err := s.store.Get(id)
	if err != nil {
		return QuizScore{}, err
	}
	quiz, ok := r.Content.(*models.QuizContent)
	if !ok {
		return QuizScore{}, fmt.Errorf("%w: %s has no quiz", ErrNotFound, id)
	}

	score := QuizScore{Total: len(quiz.Questions), Questions: make([]QuestionResult, 0, len(quiz.Questions))}
	for i, q := range quiz.Questions {
		key := QuestionKey(q, i)
		given, answered := answers[key]
		correct := answered && sameAnswer(given, q.Answer)
		if correct {
			score.Correct++
		}
		score.Questions = append(score.Questions, QuestionResult{
			ID:       key,
			Given:    given,
			Expected: q.Answer,
			Correct:  correct,
		})
	}

	if _, err := s.store.Update(ctx, id, models.ResultPatch{LastScore: &score.Correct}); err != nil {
		return QuizScore{}, err
	}
	s.log.Info("Scored quiz", "id", id, "correct", score.Correct, "total", score.Total)
	return score, nil
}

// Planner returns the results that have a test date, earliest test first.
func (s *Service) Planner() []models.StudyResult {
	var planned []models.StudyResult
	for _, r := range s.store.List() {
		if r.TestDate != "" {
			planned = append(planned, r)
		}
	}
	sort.SliceStable(planned, func(i, j int) bool {
		return planned[i].TestDate < planned[j].TestDate
	})
	return planned
}

// UpcomingTests returns the planner entries whose test falls between today and now+within.
func (s *Service) UpcomingTests(now time.Time, within time.Duration) []models.StudyResult {
	from := now.Format(DateLayout)
	until := now.Add(within).Format(DateLayout)
	var out []models.StudyResult
	for _, r := range s.Planner() {
		if r.TestDate >= from && r.TestDate <= until {
			out = append(out, r)
		}
	}
	return out
}
