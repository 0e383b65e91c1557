package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"studybuddy/internal/logger"
	"studybuddy/internal/models"
)

var (
	ErrNotFound    = errors.New("result not found")
	ErrDuplicateID = errors.New("result id already exists")
)

// ResultStore keeps the study results and the settings record in memory and writes
// every change through to a KV engine before returning.
type ResultStore struct {
	kv  KV
	log *logger.Logger

	mu       sync.RWMutex
	results  []models.StudyResult
	settings models.UserSettings
}

func NewResultStore(kv KV, log *logger.Logger) *ResultStore {
	if log == nil {
		log = logger.Nop()
	}
	return &ResultStore{
		kv:       kv,
		log:      log,
		results:  []models.StudyResult{},
		settings: models.DefaultSettings(),
	}
}

// Load reads both entries from the KV. A missing entry yields the default, and so does an
// entry that fails to decode (the broken value is logged and left in place until the next write).
func (s *ResultStore) Load(ctx context.Context) error {
	results := []models.StudyResult{}
	settings := models.DefaultSettings()

	raw, ok, err := s.kv.Get(ctx, ResultsKey)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	if ok {
		var decoded []models.StudyResult
		if err := json.Unmarshal(raw, &decoded); err != nil {
			s.log.Error("Failed to decode stored results, starting empty", "key", ResultsKey, "error", err)
		} else if decoded != nil {
			results = decoded
		}
	}

	raw, ok, err = s.kv.Get(ctx, SettingsKey)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if ok {
		var decoded models.UserSettings
		if err := json.Unmarshal(raw, &decoded); err != nil {
			s.log.Error("Failed to decode stored settings, using defaults", "key", SettingsKey, "error", err)
		} else {
			settings = decoded
		}
	}

	s.mu.Lock()
	s.results = results
	s.settings = settings
	s.mu.Unlock()

	s.log.Info("Store loaded", "results", len(results))
	return nil
}

// List returns all results, newest first.
func (s *ResultStore) List() []models.StudyResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StudyResult, len(s.results))
	for i, r := range s.results {
		out[i] = r.Clone()
	}
	return out
}

func (s *ResultStore) Get(id string) (models.StudyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.StudyResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.results[i].Clone(), nil
}

// Add prepends r to the collection.
func (s *ResultStore) Add(ctx context.Context, r models.StudyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(r.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
	}
	next := make([]models.StudyResult, 0, len(s.results)+1)
	next = append(next, r.Clone())
	next = append(next, s.results...)
	return s.commitResults(ctx, next)
}

// Update merges patch into the result with the given id and returns the updated copy.
func (s *ResultStore) Update(ctx context.Context, id string, patch models.ResultPatch) (models.StudyResult, error) {
	return s.Modify(ctx, id, patch.Apply)
}

// Modify runs fn on a copy of the stored result while holding the write lock, persists the
// outcome and returns it. fn sees the current stored state, not an earlier snapshot.
func (s *ResultStore) Modify(ctx context.Context, id string, fn func(*models.StudyResult)) (models.StudyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.StudyResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := make([]models.StudyResult, len(s.results))
	copy(next, s.results)
	updated := next[i].Clone()
	fn(&updated)
	next[i] = updated
	if err := s.commitResults(ctx, next); err != nil {
		return models.StudyResult{}, err
	}
	return updated.Clone(), nil
}

// Delete removes the result with the given id. Unknown ids are ignored.
func (s *ResultStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return nil
	}
	next := make([]models.StudyResult, 0, len(s.results))
	for _, r := range s.results {
		if r.ID != id {
			next = append(next, r)
		}
	}
	return s.commitResults(ctx, next)
}

// Reset clears every stored result. Settings are kept.
func (s *ResultStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitResults(ctx, []models.StudyResult{})
}

func (s *ResultStore) Settings() models.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// ReplaceSettings overwrites the settings record.
func (s *ResultStore) ReplaceSettings(ctx context.Context, settings models.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.kv.Set(ctx, SettingsKey, data); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	s.settings = settings
	return nil
}

// commitResults persists next and swaps it in. On failure the current state is kept.
// Callers hold s.mu.
func (s *ResultStore) commitResults(ctx context.Context, next []models.StudyResult) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := s.kv.Set(ctx, ResultsKey, data); err != nil {
		s.log.Error("Failed to persist results", "key", ResultsKey, "error", err)
		return fmt.Errorf("persist results: %w", err)
	}
	s.results = next
	return nil
}

func (s *ResultStore) indexOf(id string) int {
	for i, r := range s.results {
		if r.ID == id {
			return i
		}
	}
	return -1
}
