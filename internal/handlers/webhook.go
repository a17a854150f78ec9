package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"

	"github.com/meetlog/meetlog/internal/ingest"
)

// IngestPipeline runs one inbound bot update through the contact pipeline.
type IngestPipeline interface {
	Handle(ctx context.Context, update tgbotapi.Update) (ingest.Result, error)
}

// WebhookHandler receives Telegram bot updates. The route carries a secret
// path segment instead of JWT auth; Telegram cannot send headers we control.
type WebhookHandler struct {
	pipeline IngestPipeline
	secret   string
	logger   *slog.Logger
}

func NewWebhookHandler(log *slog.Logger, pipeline IngestPipeline, secret string) *WebhookHandler {
	return &WebhookHandler{
		pipeline: pipeline,
		secret:   secret,
		logger:   log.With(slog.String("handler", "webhook")),
	}
}

// Register mounts the webhook route on the Echo instance.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhook/telegram/:token", h.Receive)
	e.OPTIONS("/webhook/telegram/:token", h.Preflight)
}

// Preflight answers CORS preflight probes with a bare ok.
func (h *WebhookHandler) Preflight(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Receive processes one update. Anything short of a persistence failure
// answers 200 so Telegram never redelivers; a store failure answers 500 and
// lets Telegram retry.
func (h *WebhookHandler) Receive(c echo.Context) error {
	if h.pipeline == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "ingest pipeline not configured")
	}
	if h.secret == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "webhook secret not configured")
	}
	if subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(h.secret)) != 1 {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	var update tgbotapi.Update
	if err := c.Bind(&update); err != nil {
		// A malformed body is unprocessable, not retryable.
		h.logger.Warn("undecodable update", slog.Any("error", err))
		return c.String(http.StatusOK, "ok")
	}

	result, err := h.pipeline.Handle(c.Request().Context(), update)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to persist contact")
	}
	if result.Outcome == ingest.OutcomeIgnored {
		h.logger.Debug("update ignored", slog.String("reason", result.Reason))
	}
	return c.String(http.StatusOK, "ok")
}
