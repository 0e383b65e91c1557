package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"studybuddy/internal/api/handlers"
	"studybuddy/internal/gemini"
	"studybuddy/internal/logger"
	"studybuddy/internal/models"
	"studybuddy/internal/service"
	"studybuddy/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	err    error
	images [][]string
}

func (s *stubAnalyzer) Analyze(_ context.Context, images []string, feature models.Feature, opts gemini.Options) (models.Content, error) {
	s.images = append(s.images, images)
	if s.err != nil {
		return nil, s.err
	}
	switch feature {
	case models.FeatureQuiz:
		return &models.QuizContent{Questions: []models.QuizQuestion{
			{ID: "q1", Type: models.QuestionOpen, Question: "Hoofdstad van Frankrijk?", Answer: "Parijs"},
			{ID: "q2", Type: models.QuestionTrueFalse, Question: "De aarde is plat.", Answer: "Onwaar"},
		}}, nil
	default:
		return &models.SummaryContent{Heading: "Europa", KeyConcepts: []string{"EU"}}, nil
	}
}

type testServer struct {
	router   *gin.Engine
	analyzer *stubAnalyzer
	svc      *service.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewResultStore(store.NewMemoryKV(), logger.Nop())
	require.NoError(t, st.Load(context.Background()))
	analyzer := &stubAnalyzer{}
	svc := service.New(st, logger.Nop(),
		service.WithAnalyzer(analyzer),
		service.WithClock(func() time.Time { return time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC) }),
	)
	h := handlers.NewHandler(svc, logger.Nop(), 8<<20)
	return &testServer{
		router:   NewRouter(h, "http://localhost:5173/", logger.Nop()),
		analyzer: analyzer,
		svc:      svc,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (ts *testServer) generate(t *testing.T, body map[string]any) models.StudyResult {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/generate", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.StudyResult](t, w)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		img.Set(x, 3, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, files ...[]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i, data := range files {
		fw, err := mw.CreateFormFile("images", "page"+string(rune('a'+i))+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGenerateAndFetch(t *testing.T) {
	ts := newTestServer(t)
	r := ts.generate(t, map[string]any{
		"images":        []string{"data:image/jpeg;base64,AAAA", "BBBB"},
		"feature":       "quiz",
		"difficulty":    "gemiddeld",
		"questionCount": 10,
	})
	assert.Equal(t, models.FeatureQuiz, r.Feature)
	assert.Equal(t, []models.Feature{models.FeatureQuiz}, r.GeneratedFeatures)
	assert.Equal(t, models.DifficultyMedium, r.QuizDifficulty)

	w := ts.do(t, http.MethodGet, "/api/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.StudyResult](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)

	w = ts.do(t, http.MethodGet, "/api/results/"+r.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/results/"+r.ID+"/content/QUIZ", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var content struct {
		Feature models.Feature     `json:"feature"`
		Content models.QuizContent `json:"content"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &content))
	assert.Len(t, content.Content.Questions, 2)

	w = ts.do(t, http.MethodGet, "/api/results/"+r.ID+"/content/summary", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, "/api/results/"+r.ID+"/content/EXTRA_INFO", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerate_ExistingResult(t *testing.T) {
	ts := newTestServer(t)
	r := ts.generate(t, map[string]any{"images": []string{"AAAA"}})

	w := ts.do(t, http.MethodPost, "/api/generate", map[string]any{"resultId": r.ID, "feature": "QUIZ"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.StudyResult](t, w)
	assert.Equal(t, []models.Feature{models.FeatureSummary, models.FeatureQuiz}, updated.GeneratedFeatures)
	assert.Equal(t, []string{"AAAA"}, ts.analyzer.images[1])

	w = ts.do(t, http.MethodPost, "/api/generate", map[string]any{"resultId": "missing", "feature": "QUIZ"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerate_Errors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/generate", map[string]any{"images": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.analyzer.images)

	w = ts.do(t, http.MethodPost, "/api/generate", map[string]any{"images": []string{"AAAA"}, "feature": "POEM"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/generate", map[string]any{"images": []string{"not an image"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.analyzer.images)

	ts.analyzer.err = errors.New("quota exceeded")
	w = ts.do(t, http.MethodPost, "/api/generate", map[string]any{"images": []string{"AAAA"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, w).Error, "try again")

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, ts.svc.List())
}

func TestGenerate_Multipart(t *testing.T) {
	ts := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{"feature": "SUMMARY"}, pngBytes(t), pngBytes(t))

	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	r := decode[models.StudyResult](t, w)
	require.Len(t, r.Images, 2)
	for _, img := range r.Images {
		assert.True(t, strings.HasPrefix(img, "data:image/jpeg;base64,"))
	}
	assert.Equal(t, "Europa", r.Subject)
}

func TestCaptures(t *testing.T) {
	ts := newTestServer(t)
	body, contentType := multipartBody(t, nil, pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/captures", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := decode[struct {
		Images []string `json:"images"`
	}](t, w)
	require.Len(t, out.Images, 1)
	assert.True(t, strings.HasPrefix(out.Images[0], "data:image/jpeg;base64,"))

	body, contentType = multipartBody(t, nil, []byte("not an image"))
	req = httptest.NewRequest(http.MethodPost, "/api/captures", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, contentType = multipartBody(t, nil)
	req = httptest.NewRequest(http.MethodPost, "/api/captures", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateDeleteReset(t *testing.T) {
	ts := newTestServer(t)
	a := ts.generate(t, map[string]any{"images": []string{"AAAA"}})
	b := ts.generate(t, map[string]any{"images": []string{"BBBB"}})

	w := ts.do(t, http.MethodPatch, "/api/results/"+a.ID, map[string]any{"subject": "Europa H2", "testDate": "2024-05-22"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.StudyResult](t, w)
	assert.Equal(t, "Europa H2", updated.Subject)
	assert.Equal(t, "2024-05-22", updated.TestDate)

	w = ts.do(t, http.MethodPatch, "/api/results/"+a.ID, map[string]any{"testDate": "22 mei"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/planner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	planned := decode[[]models.StudyResult](t, w)
	require.Len(t, planned, 1)
	assert.Equal(t, a.ID, planned[0].ID)

	w = ts.do(t, http.MethodDelete, "/api/results/"+a.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/results/"+a.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/results/"+a.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	list := ts.svc.List()
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	w = ts.do(t, http.MethodDelete, "/api/results", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, ts.svc.List())

	w = ts.do(t, http.MethodGet, "/api/planner", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestScoreQuiz(t *testing.T) {
	ts := newTestServer(t)
	r := ts.generate(t, map[string]any{"images": []string{"AAAA"}, "feature": "QUIZ"})

	w := ts.do(t, http.MethodPost, "/api/results/"+r.ID+"/quiz/score", map[string]any{
		"answers": map[string]string{"q1": " parijs", "q2": "Waar"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	score := decode[service.QuizScore](t, w)
	assert.Equal(t, 1, score.Correct)
	assert.Equal(t, 2, score.Total)

	stored, err := ts.svc.Get(r.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastScore)
	assert.Equal(t, 1, *stored.LastScore)
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DefaultSettings(), decode[models.UserSettings](t, w))

	next := models.DefaultSettings()
	next.Name = "Lotte"
	next.APIKey = "sk-secret"
	w = ts.do(t, http.MethodPut, "/api/settings", next)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.UserSettings](t, w)
	assert.Equal(t, "Lotte", got.Name)
	assert.Equal(t, models.RedactedAPIKey, got.APIKey)
	assert.NotContains(t, w.Body.String(), "sk-secret")
	assert.Equal(t, "sk-secret", ts.svc.Settings().APIKey)

	w = ts.do(t, http.MethodPost, "/api/onboarding", map[string]string{"name": "Bram", "apiKey": "sk-onboard"})
	require.Equal(t, http.StatusOK, w.Code)
	onboarded := decode[models.UserSettings](t, w)
	assert.Equal(t, "Bram", onboarded.AvatarSeed)
	assert.True(t, onboarded.OnboardingComplete)
	assert.Equal(t, models.RedactedAPIKey, onboarded.APIKey)
	assert.Equal(t, "sk-onboard", ts.svc.Settings().APIKey)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/results", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(logger.Nop()))
	router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}
