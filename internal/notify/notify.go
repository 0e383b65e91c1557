package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"studybuddy/internal/logger"
	"studybuddy/internal/models"
)

const (
	colorSuccess = 0x2ecc71
	colorFailure = 0xe74c3c
	colorPlanner = 0x3498db
)

// Embed is a Discord-compatible message embed.
type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// botUsername overrides the webhook's display name.
const botUsername = "StudyBuddy"

type payload struct {
	Username string  `json:"username,omitempty"`
	Content  string  `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

// Notifier posts events to a webhook. A Notifier with an empty URL drops everything.
type Notifier struct {
	webhookURL string
	client     *http.Client
	log        *logger.Logger
	wg         sync.WaitGroup
}

func New(webhookURL string, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		log:        log,
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool { return n != nil && n.webhookURL != "" }

// Wait blocks until every in-flight send has finished.
func (n *Notifier) Wait() { n.wg.Wait() }

// ResultCreated announces a freshly generated study result.
func (n *Notifier) ResultCreated(r models.StudyResult) {
	n.send(Embed{
		Title:       "Nieuwe studiehulp klaar",
		Description: r.Subject,
		Color:       colorSuccess,
		Fields: []Field{
			{Name: "Onderdeel", Value: string(r.Feature), Inline: true},
			{Name: "Pagina's", Value: fmt.Sprint(len(r.Images)), Inline: true},
		},
		Timestamp: r.Date.UTC().Format(time.RFC3339),
	})
}

// FeatureAdded announces an extra feature generated for an existing result.
func (n *Notifier) FeatureAdded(r models.StudyResult, f models.Feature) {
	n.send(Embed{
		Title:       "Studiehulp uitgebreid",
		Description: r.Subject,
		Color:       colorSuccess,
		Fields:      []Field{{Name: "Onderdeel", Value: string(f), Inline: true}},
	})
}

// GenerationFailed reports a failed analysis request.
func (n *Notifier) GenerationFailed(f models.Feature, err error) {
	n.send(Embed{
		Title:       "Genereren mislukt",
		Description: err.Error(),
		Color:       colorFailure,
		Fields:      []Field{{Name: "Onderdeel", Value: string(f), Inline: true}},
	})
}

// UpcomingTests lists the tests that are coming up. Nothing is sent for an empty list.
func (n *Notifier) UpcomingTests(results []models.StudyResult) {
	if len(results) == 0 {
		return
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "• %s: %s\n", r.TestDate, r.Subject)
	}
	n.send(Embed{
		Title:       "Toetsen op komst",
		Description: strings.TrimRight(b.String(), "\n"),
		Color:       colorPlanner,
	})
}

func (n *Notifier) send(e Embed) {
	if !n.Enabled() {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.post(context.Background(), payload{Username: botUsername, Embeds: []Embed{e}}); err != nil {
			n.log.Error("Failed to send webhook notification", "title", e.Title, "error", err)
			return
		}
		n.log.Debug("Sent webhook notification", "title", e.Title)
	}()
}

func (n *Notifier) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}
