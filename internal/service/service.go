package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"studybuddy/internal/capture"
	"studybuddy/internal/gemini"
	"studybuddy/internal/logger"
	"studybuddy/internal/models"
	"studybuddy/internal/store"

	"github.com/google/uuid"
)

// DefaultSubject names a new result when the generated content has no title.
const DefaultSubject = "Topic Name"

// MaxQuestionCount bounds the quiz size a caller may request.
const MaxQuestionCount = 50

var (
	ErrNoImages         = gemini.ErrNoImages
	ErrInvalidImage     = capture.ErrInvalidImage
	ErrNotFound         = store.ErrNotFound
	ErrInvalidInput     = errors.New("invalid input")
	ErrGenerationFailed = errors.New("generation failed")
	ErrNoAPIKey         = errors.New("no Gemini API key configured")
)

// Analyzer turns images into generated content for one feature.
type Analyzer interface {
	Analyze(ctx context.Context, images []string, feature models.Feature, opts gemini.Options) (models.Content, error)
}

// AnalyzerFactory builds an Analyzer for an API key taken from the settings record.
type AnalyzerFactory func(ctx context.Context, apiKey string) (Analyzer, error)

// Notifier receives study events.
type Notifier interface {
	ResultCreated(r models.StudyResult)
	FeatureAdded(r models.StudyResult, f models.Feature)
	GenerationFailed(f models.Feature, err error)
}

type nopNotifier struct{}

func (nopNotifier) ResultCreated(models.StudyResult)                {}
func (nopNotifier) FeatureAdded(models.StudyResult, models.Feature) {}
func (nopNotifier) GenerationFailed(models.Feature, error)          {}

// Service implements the study workflows on top of the result store.
type Service struct {
	store    *store.ResultStore
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
	newID    func() string

	analyzerMu  sync.Mutex
	analyzer    Analyzer
	newAnalyzer AnalyzerFactory
	// keyed was built by newAnalyzer from keyedFor and is rebuilt when the settings key changes.
	keyed    Analyzer
	keyedFor string
}

type Option func(*Service)

// WithAnalyzer sets the analyzer used for every request.
func WithAnalyzer(a Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithAnalyzerFactory sets how an analyzer is built from the settings API key when none was
// configured at startup.
func WithAnalyzerFactory(f AnalyzerFactory) Option {
	return func(s *Service) { s.newAnalyzer = f }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func New(st *store.ResultStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store:    st,
		notifier: nopNotifier{},
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the analyzers if they hold resources.
func (s *Service) Close() {
	s.analyzerMu.Lock()
	defer s.analyzerMu.Unlock()
	closeAnalyzer(s.analyzer)
	closeAnalyzer(s.keyed)
	s.keyed, s.keyedFor = nil, ""
}

func closeAnalyzer(a Analyzer) {
	if c, ok := a.(interface{ Close() }); ok {
		c.Close()
	}
}

// analyzerFor returns the startup analyzer when there is one. Otherwise it builds one from the
// settings API key, reusing the previous client while the key stays the same.
func (s *Service) analyzerFor(ctx context.Context, settings models.UserSettings) (Analyzer, error) {
	s.analyzerMu.Lock()
	defer s.analyzerMu.Unlock()
	if s.analyzer != nil {
		return s.analyzer, nil
	}
	if s.newAnalyzer == nil || settings.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if s.keyed != nil && s.keyedFor == settings.APIKey {
		return s.keyed, nil
	}
	a, err := s.newAnalyzer(context.WithoutCancel(ctx), settings.APIKey)
	if err != nil {
		return nil, err
	}
	if s.keyed != nil {
		s.log.Info("Settings API key changed, replacing analyzer")
		closeAnalyzer(s.keyed)
	} else {
		s.log.Info("Created analyzer from settings API key")
	}
	s.keyed, s.keyedFor = a, settings.APIKey
	return a, nil
}

func (s *Service) List() []models.StudyResult { return s.store.List() }

func (s *Service) Get(id string) (models.StudyResult, error) { return s.store.Get(id) }

// Delete removes a result. Unknown ids are not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Deleted result", "id", id)
	return nil
}

// Reset removes every stored result.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.log.Warn("All results reset")
	return nil
}

// Content returns the generated content of a result for the given feature.
func (s *Service) Content(id string, f models.Feature) (models.Content, error) {
	r, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if !r.HasFeature(f) || r.Feature != f || r.Content == nil {
		return nil, fmt.Errorf("%w: %s has no %s content", ErrNotFound, id, f)
	}
	return r.Content, nil
}
