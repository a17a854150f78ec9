// Package extract turns free-text messages into candidate contact records via
// an OpenAI-compatible chat-completions endpoint.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/meetlog/meetlog/internal/sanitize"
)

// MaxMessageLen caps the input passed to the model. Longer messages fail
// closed without a network call.
const MaxMessageLen = 4000

// Candidate is a sanitized contact fragment extracted from one message.
// Every field has already passed the corresponding sanitize check; invalid
// optional values were dropped, never propagated.
type Candidate struct {
	Name         string
	Phone        string
	Email        string
	Instagram    string
	LinkedIn     string
	Website      string
	LocationMet  string
	LocationFrom string
	DateMet      string
	Birthday     string
	Context      string
}

// Extractor calls the language model and validates its output.
type Extractor struct {
	baseURL string
	apiKey  string
	model   string
	logger  *slog.Logger
	http    *http.Client
}

// NewExtractor builds an Extractor; baseURL, apiKey, and model are required.
func NewExtractor(log *slog.Logger, baseURL, apiKey, model string, timeout time.Duration) (*Extractor, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("extractor: base url is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("extractor: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("extractor: model is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Extractor{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		logger:  log.With(slog.String("client", "extractor")),
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Extract runs the model over text and returns a sanitized candidate.
// found=false with a nil error is the benign "nothing to extract" outcome
// (empty or oversized input, model said null, unparseable output, or no
// usable name). A non-nil error means the model endpoint itself failed.
func (e *Extractor) Extract(ctx context.Context, text string, messageDate time.Time) (Candidate, bool, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Candidate{}, false, nil
	}
	if len(trimmed) > MaxMessageLen {
		e.logger.Info("message exceeds extraction cap", slog.Int("len", len(trimmed)))
		return Candidate{}, false, nil
	}

	content, err := e.callChat(ctx, extractionPrompt(messageDate.Format("2006-01-02")), trimmed)
	if err != nil {
		return Candidate{}, false, err
	}

	cleaned := strings.TrimSpace(removeCodeBlocks(content))
	if cleaned == "" || cleaned == "null" || cleaned == "{}" {
		return Candidate{}, false, nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		e.logger.Debug("model output is not JSON", slog.String("content", cleaned))
		return Candidate{}, false, nil
	}

	candidate := sanitizeCandidate(raw, messageDate)
	if candidate.Name == "" {
		return Candidate{}, false, nil
	}
	return candidate, true, nil
}

// sanitizeCandidate applies parse-then-validate: every model-supplied field
// passes its sanitize check or is dropped.
func sanitizeCandidate(raw map[string]any, messageDate time.Time) Candidate {
	candidate := Candidate{
		Name:         sanitize.Name(asString(raw["name"])),
		LocationMet:  sanitize.FreeText(asString(raw["location_met"]), 200),
		LocationFrom: sanitize.FreeText(asString(raw["location_from"]), 200),
		Context:      sanitize.FreeText(asString(raw["context"]), 500),
	}

	if phone := strings.TrimSpace(asString(raw["phone"])); sanitize.ValidPhone(phone) {
		candidate.Phone = phone
	}
	if email := strings.TrimSpace(asString(raw["email"])); sanitize.ValidEmail(email) {
		candidate.Email = email
	}
	if instagram := strings.TrimPrefix(strings.TrimSpace(asString(raw["instagram"])), "@"); instagram != "" {
		candidate.Instagram = sanitize.FreeText(instagram, sanitize.MaxNameLen)
	}
	if linkedin := strings.TrimSpace(asString(raw["linkedin"])); sanitize.ValidURL(linkedin) {
		candidate.LinkedIn = linkedin
	}
	if website := strings.TrimSpace(asString(raw["website"])); sanitize.ValidURL(website) {
		candidate.Website = website
	}
	if birthday := strings.TrimSpace(asString(raw["birthday"])); sanitize.ValidDate(birthday) {
		candidate.Birthday = birthday
	}

	dateMet := strings.TrimSpace(asString(raw["date_met"]))
	if !sanitize.ValidDate(dateMet) {
		dateMet = messageDate.Format("2006-01-02")
	}
	candidate.DateMet = dateMet

	return candidate
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (e *Extractor) callChat(ctx context.Context, systemPrompt, userText string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       e.model,
		Temperature: 0.1,
		MaxTokens:   500,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("extraction model error: %s", strings.TrimSpace(string(b)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("extraction response missing content")
	}
	return parsed.Choices[0].Message.Content, nil
}

func removeCodeBlocks(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "```json", ""), "```", "")
}

func asString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%f", typed)
	default:
		return ""
	}
}
