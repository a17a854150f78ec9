// Package ingest drives the message-to-contact pipeline for one inbound bot
// event: transcribe, extract, sanitize, geocode, persist.
package ingest

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/meetlog/meetlog/internal/contacts"
	"github.com/meetlog/meetlog/internal/extract"
	"github.com/meetlog/meetlog/internal/geocode"
	"github.com/meetlog/meetlog/internal/sanitize"
)

// Extractor produces a candidate contact from message text.
type Extractor interface {
	Extract(ctx context.Context, text string, messageDate time.Time) (extract.Candidate, bool, error)
}

// Geocoder resolves a place name, best effort.
type Geocoder interface {
	Lookup(ctx context.Context, place string) (geocode.Coordinates, bool)
}

// Transcriber converts a voice file reference to text, best effort.
type Transcriber interface {
	Transcribe(ctx context.Context, fileID string) string
}

// ContactStore persists extracted contacts.
type ContactStore interface {
	Create(ctx context.Context, req contacts.CreateRequest) (contacts.Contact, error)
}

// Outcome classifies how an inbound event was handled.
type Outcome string

const (
	// OutcomeIgnored is the benign terminal state: nothing was persisted
	// and the event is acknowledged as processed.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeCreated means a contact record was inserted.
	OutcomeCreated Outcome = "created"
)

// Result is the terminal state of one pipeline run.
type Result struct {
	Outcome Outcome
	Reason  string
	Contact contacts.Contact
}

// Pipeline handles one inbound Telegram update per invocation. It holds no
// cross-invocation state; concurrent runs are independent.
type Pipeline struct {
	extractor   Extractor
	geocoder    Geocoder
	transcriber Transcriber
	store       ContactStore
	channelID   string
	logger      *slog.Logger
}

// NewPipeline wires the pipeline. channelID names the bot channel contacts
// are attributed to until an account claims them.
func NewPipeline(log *slog.Logger, extractor Extractor, geocoder Geocoder, transcriber Transcriber, store ContactStore, channelID string) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if channelID == "" {
		channelID = "telegram"
	}
	return &Pipeline{
		extractor:   extractor,
		geocoder:    geocoder,
		transcriber: transcriber,
		store:       store,
		channelID:   channelID,
		logger:      log.With(slog.String("service", "ingest")),
	}
}

// Handle runs the pipeline for one update. Every failure before persistence
// collapses into OutcomeIgnored so the messaging platform never redelivers
// an unprocessable message; only a store failure returns a non-nil error.
func (p *Pipeline) Handle(ctx context.Context, update tgbotapi.Update) (Result, error) {
	if update.Message == nil {
		return ignored("not a message event"), nil
	}
	msg := update.Message

	text := msg.Text
	if msg.Voice != nil {
		text = p.transcriber.Transcribe(ctx, msg.Voice.FileID)
	}
	if strings.TrimSpace(text) == "" {
		return ignored("no text to process"), nil
	}
	if len(text) > extract.MaxMessageLen {
		return ignored("message too long"), nil
	}

	messageDate := time.Unix(int64(msg.Date), 0).UTC()
	candidate, found, err := p.extractor.Extract(ctx, text, messageDate)
	if err != nil {
		// Indeterminate model output or a down endpoint must not cause
		// redelivery loops; acknowledge and surface only in logs.
		p.logger.Error("extraction failed", slog.Int("message_id", msg.MessageID), slog.Any("error", err))
		return ignored("extraction failed"), nil
	}
	if !found {
		p.logger.Info("no contact in message", slog.Int("message_id", msg.MessageID))
		return ignored("no contact extracted"), nil
	}

	req := contacts.CreateRequest{
		Owner:            contacts.ChannelOwner(p.channelID),
		Name:             candidate.Name,
		Phone:            candidate.Phone,
		Email:            candidate.Email,
		Instagram:        candidate.Instagram,
		LinkedIn:         candidate.LinkedIn,
		Website:          candidate.Website,
		LocationMet:      candidate.LocationMet,
		LocationFrom:     candidate.LocationFrom,
		DateMet:          candidate.DateMet,
		Birthday:         candidate.Birthday,
		Context:          candidate.Context,
		RawContent:       ReformatBullets(text),
		SourceMessageRef: strconv.Itoa(msg.MessageID),
	}

	// Each location geocodes independently; one failing never blocks the
	// other or the record, and a pair is only attached when fully resolved
	// and in range. An out-of-range pair degrades to absence here; it must
	// never surface as a persistence failure.
	if coords, ok := p.geocoder.Lookup(ctx, candidate.LocationMet); ok && sanitize.ValidCoordinate(coords.Lat, coords.Lon) {
		req.LocationMetGeo = &contacts.Coordinates{Lat: coords.Lat, Lon: coords.Lon}
	}
	if coords, ok := p.geocoder.Lookup(ctx, candidate.LocationFrom); ok && sanitize.ValidCoordinate(coords.Lat, coords.Lon) {
		req.LocationFromGeo = &contacts.Coordinates{Lat: coords.Lat, Lon: coords.Lon}
	}

	created, err := p.store.Create(ctx, req)
	if err != nil {
		p.logger.Error("persist contact failed", slog.Int("message_id", msg.MessageID), slog.Any("error", err))
		return Result{}, err
	}

	p.logger.Info("contact created",
		slog.String("contact_id", created.ID),
		slog.Int("message_id", msg.MessageID),
	)
	return Result{Outcome: OutcomeCreated, Contact: created}, nil
}

func ignored(reason string) Result {
	return Result{Outcome: OutcomeIgnored, Reason: reason}
}
