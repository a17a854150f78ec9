// Package transcribe converts Telegram voice messages to text, best effort.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxAudioBytes caps the downloaded voice payload (Telegram bots cannot
// download files above 20 MB anyway).
const MaxAudioBytes = 20 << 20

// Service resolves a Telegram voice file and sends it to a
// Whisper-compatible speech-to-text endpoint.
type Service struct {
	telegramAPI  string
	botToken     string
	openaiBase   string
	apiKey       string
	whisperModel string
	logger       *slog.Logger
	http         *http.Client
}

// NewService builds a transcription service.
func NewService(log *slog.Logger, telegramAPI, botToken, openaiBase, apiKey, whisperModel string, timeout time.Duration) *Service {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		telegramAPI:  strings.TrimRight(telegramAPI, "/"),
		botToken:     botToken,
		openaiBase:   strings.TrimRight(openaiBase, "/"),
		apiKey:       apiKey,
		whisperModel: whisperModel,
		logger:       log.With(slog.String("service", "transcribe")),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Transcribe turns a Telegram voice file reference into text. Any failure at
// any step (file lookup, download, transcription endpoint) yields an empty
// string; callers treat that as "nothing to extract", not as an error.
func (s *Service) Transcribe(ctx context.Context, fileID string) string {
	if strings.TrimSpace(fileID) == "" {
		return ""
	}

	fileURL, err := s.resolveFileURL(ctx, fileID)
	if err != nil {
		s.logger.Warn("resolve voice file failed", slog.String("file_id", fileID), slog.Any("error", err))
		return ""
	}

	audio, err := s.download(ctx, fileURL)
	if err != nil {
		s.logger.Warn("download voice file failed", slog.String("file_id", fileID), slog.Any("error", err))
		return ""
	}

	text, err := s.transcribeAudio(ctx, audio)
	if err != nil {
		s.logger.Warn("transcription failed", slog.String("file_id", fileID), slog.Any("error", err))
		return ""
	}
	return strings.TrimSpace(text)
}

// resolveFileURL calls the Telegram getFile API to turn a file_id into a
// downloadable URL.
func (s *Service) resolveFileURL(ctx context.Context, fileID string) (string, error) {
	endpoint := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", s.telegramAPI, s.botToken, url.QueryEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("getFile status %d", resp.StatusCode)
	}

	var parsed struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if !parsed.OK || parsed.Result.FilePath == "" {
		return "", fmt.Errorf("getFile returned no file path")
	}
	return fmt.Sprintf("%s/file/bot%s/%s", s.telegramAPI, s.botToken, parsed.Result.FilePath), nil
}

func (s *Service) download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAudioBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxAudioBytes {
		return nil, fmt.Errorf("audio exceeds %d bytes", MaxAudioBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}
	return data, nil
}

// transcribeAudio posts the audio as multipart form data to the
// Whisper-compatible /audio/transcriptions endpoint.
func (s *Service) transcribeAudio(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "voice.ogg")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := writer.WriteField("model", s.whisperModel); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.openaiBase+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription error: %s", strings.TrimSpace(string(b)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.Text, nil
}
