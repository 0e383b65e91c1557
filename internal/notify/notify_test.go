package notify

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"studybuddy/internal/logger"
	"studybuddy/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	payloads []payload
	status   int
}

func (r *recorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		var p payload
		require.NoError(t, json.NewDecoder(req.Body).Decode(&p))
		r.mu.Lock()
		r.payloads = append(r.payloads, p)
		status := r.status
		r.mu.Unlock()
		if status == 0 {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
	}
}

func (r *recorder) all() []payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]payload(nil), r.payloads...)
}

func TestNotifier_ResultCreated(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	n := New(srv.URL, logger.Nop())
	n.ResultCreated(models.StudyResult{
		Subject: "Fotosynthese",
		Feature: models.FeatureQuiz,
		Images:  []string{"a", "b"},
		Date:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	n.Wait()

	got := rec.all()
	require.Len(t, got, 1)
	require.Len(t, got[0].Embeds, 1)
	e := got[0].Embeds[0]
	assert.Equal(t, "Fotosynthese", e.Description)
	assert.Equal(t, "QUIZ", e.Fields[0].Value)
	assert.Equal(t, "2", e.Fields[1].Value)
	assert.Equal(t, "2024-05-01T00:00:00Z", e.Timestamp)
}

func TestNotifier_DisabledSendsNothing(t *testing.T) {
	n := New("", logger.Nop())
	assert.False(t, n.Enabled())
	n.GenerationFailed(models.FeatureSummary, errors.New("boom"))
	n.Wait()
}

func TestNotifier_LogsFailedDelivery(t *testing.T) {
	rec := &recorder{status: http.StatusTooManyRequests}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	log, logs := logger.NewObserved()
	n := New(srv.URL, log)
	n.GenerationFailed(models.FeatureTips, errors.New("quota exceeded"))
	n.Wait()

	require.Len(t, rec.all(), 1)
	assert.Equal(t, 1, logs.FilterMessage("Failed to send webhook notification").Len())
}

type fakeSource struct {
	settings models.UserSettings
	upcoming []models.StudyResult
}

func (f fakeSource) Settings() models.UserSettings { return f.settings }

func (f fakeSource) UpcomingTests(time.Time, time.Duration) []models.StudyResult {
	return f.upcoming
}

func TestRemind(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()
	n := New(srv.URL, logger.Nop())

	upcoming := []models.StudyResult{
		{Subject: "Biologie", TestDate: "2024-06-01"},
		{Subject: "Aardrijkskunde", TestDate: "2024-06-03"},
	}
	settings := models.DefaultSettings()

	settings.StreakReminders = false
	remind(n, fakeSource{settings: settings, upcoming: upcoming}, time.Now(), 72*time.Hour)
	n.Wait()
	assert.Empty(t, rec.all())

	settings.StreakReminders = true
	remind(n, fakeSource{settings: settings}, time.Now(), 72*time.Hour)
	n.Wait()
	assert.Empty(t, rec.all())

	remind(n, fakeSource{settings: settings, upcoming: upcoming}, time.Now(), 72*time.Hour)
	n.Wait()
	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, "• 2024-06-01: Biologie\n• 2024-06-03: Aardrijkskunde", got[0].Embeds[0].Description)
}
