package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/meetlog/meetlog/internal/contacts"
	"github.com/meetlog/meetlog/internal/extract"
	"github.com/meetlog/meetlog/internal/geocode"
)

type stubExtractor struct {
	candidate extract.Candidate
	found     bool
	err       error
	calls     int
	gotText   string
	gotDate   time.Time
}

func (s *stubExtractor) Extract(_ context.Context, text string, messageDate time.Time) (extract.Candidate, bool, error) {
	s.calls++
	s.gotText = text
	s.gotDate = messageDate
	if s.candidate.DateMet == "" && s.found {
		s.candidate.DateMet = messageDate.Format("2006-01-02")
	}
	return s.candidate, s.found, s.err
}

type stubGeocoder struct {
	results map[string]geocode.Coordinates
	calls   []string
}

func (s *stubGeocoder) Lookup(_ context.Context, place string) (geocode.Coordinates, bool) {
	if strings.TrimSpace(place) == "" {
		return geocode.Coordinates{}, false
	}
	s.calls = append(s.calls, place)
	coords, ok := s.results[place]
	return coords, ok
}

type stubTranscriber struct {
	text  string
	calls int
}

func (s *stubTranscriber) Transcribe(_ context.Context, fileID string) string {
	s.calls++
	return s.text
}

type stubStore struct {
	created []contacts.CreateRequest
	err     error
}

func (s *stubStore) Create(_ context.Context, req contacts.CreateRequest) (contacts.Contact, error) {
	if s.err != nil {
		return contacts.Contact{}, s.err
	}
	s.created = append(s.created, req)
	return contacts.Contact{ID: "11111111-1111-1111-1111-111111111111", Name: req.Name, Owner: req.Owner}, nil
}

func textUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 42,
			Date:      int(time.Date(2024, 5, 10, 15, 4, 5, 0, time.UTC).Unix()),
			Chat:      &tgbotapi.Chat{ID: 1001},
			Text:      text,
		},
	}
}

func newTestPipeline(e *stubExtractor, g *stubGeocoder, tr *stubTranscriber, st *stubStore) *Pipeline {
	if g == nil {
		g = &stubGeocoder{}
	}
	if tr == nil {
		tr = &stubTranscriber{}
	}
	if st == nil {
		st = &stubStore{}
	}
	return NewPipeline(nil, e, g, tr, st, "telegram")
}

func TestHandleEndToEnd(t *testing.T) {
	extractor := &stubExtractor{
		candidate: extract.Candidate{
			Name:         "Alex",
			LocationMet:  "the design meetup",
			LocationFrom: "Lisbon",
			Context:      "he's hiring",
		},
		found: true,
	}
	geocoder := &stubGeocoder{results: map[string]geocode.Coordinates{
		"Lisbon":            {Lat: 38.7223, Lon: -9.1393},
		"the design meetup": {Lat: 38.71, Lon: -9.14},
	}}
	store := &stubStore{}
	pipeline := newTestPipeline(extractor, geocoder, nil, store)

	result, err := pipeline.Handle(context.Background(),
		textUpdate("Met Alex from Lisbon at the design meetup yesterday. Important: he's hiring."))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %q, want created", result.Outcome)
	}
	if len(store.created) != 1 {
		t.Fatalf("store received %d records, want 1", len(store.created))
	}

	req := store.created[0]
	if req.Name != "Alex" {
		t.Errorf("name = %q", req.Name)
	}
	if !strings.Contains(req.LocationMet, "design meetup") || !strings.Contains(req.LocationFrom, "Lisbon") {
		t.Errorf("location fields wrong: met=%q from=%q", req.LocationMet, req.LocationFrom)
	}
	if req.LocationMet == req.LocationFrom {
		t.Error("location_met and location_from must stay distinct")
	}
	if !strings.Contains(req.Context, "hiring") {
		t.Errorf("context = %q", req.Context)
	}
	if req.DateMet != "2024-05-10" {
		t.Errorf("date_met = %q, want message date", req.DateMet)
	}
	if req.Owner != contacts.ChannelOwner("telegram") {
		t.Errorf("owner = %+v", req.Owner)
	}
	if req.SourceMessageRef != "42" {
		t.Errorf("source_message_ref = %q", req.SourceMessageRef)
	}
	if req.LocationMetGeo == nil || req.LocationFromGeo == nil {
		t.Fatalf("expected both coordinate pairs, got met=%v from=%v", req.LocationMetGeo, req.LocationFromGeo)
	}
	if req.LocationFromGeo.Lat != 38.7223 {
		t.Errorf("location_from coordinates = %+v", req.LocationFromGeo)
	}
	if !strings.HasPrefix(req.RawContent, "• ") {
		t.Errorf("raw_content not reformatted: %q", req.RawContent)
	}
}

func TestHandlePartialGeocodeFailure(t *testing.T) {
	extractor := &stubExtractor{
		candidate: extract.Candidate{
			Name:         "Jane Doe",
			LocationMet:  "Berlin Tech Conference",
			LocationFrom: "Munich, Germany",
		},
		found: true,
	}
	geocoder := &stubGeocoder{results: map[string]geocode.Coordinates{
		"Berlin Tech Conference": {Lat: 52.52, Lon: 13.405},
	}}
	store := &stubStore{}
	pipeline := newTestPipeline(extractor, geocoder, nil, store)

	result, err := pipeline.Handle(context.Background(), textUpdate("met Jane"))
	if err != nil || result.Outcome != OutcomeCreated {
		t.Fatalf("Handle() = %+v, %v", result, err)
	}

	req := store.created[0]
	if req.LocationMetGeo == nil {
		t.Error("location_met coordinates should be populated")
	}
	if req.LocationFromGeo != nil {
		t.Errorf("location_from coordinates must be fully absent, got %+v", req.LocationFromGeo)
	}
}

func TestHandleOutOfRangeCoordinatesDegradeToAbsence(t *testing.T) {
	extractor := &stubExtractor{
		candidate: extract.Candidate{
			Name:         "Jane Doe",
			LocationMet:  "Berlin Tech Conference",
			LocationFrom: "Munich, Germany",
		},
		found: true,
	}
	geocoder := &stubGeocoder{results: map[string]geocode.Coordinates{
		"Berlin Tech Conference": {Lat: 91, Lon: 0},
		"Munich, Germany":        {Lat: 48.1351, Lon: 11.582},
	}}
	store := &stubStore{}
	pipeline := newTestPipeline(extractor, geocoder, nil, store)

	result, err := pipeline.Handle(context.Background(), textUpdate("met Jane"))
	if err != nil {
		t.Fatalf("an unusable pair must not become a persistence failure, got %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %q, want created", result.Outcome)
	}

	req := store.created[0]
	if req.LocationMetGeo != nil {
		t.Errorf("out-of-range pair must be dropped, got %+v", req.LocationMetGeo)
	}
	if req.LocationFromGeo == nil || req.LocationFromGeo.Lat != 48.1351 {
		t.Errorf("valid pair should survive, got %+v", req.LocationFromGeo)
	}
}

func TestHandleIgnoredOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		ext    *stubExtractor
	}{
		{"no message", tgbotapi.Update{}, &stubExtractor{}},
		{"empty text", textUpdate(""), &stubExtractor{}},
		{"too long", textUpdate(strings.Repeat("a", extract.MaxMessageLen+1)), &stubExtractor{}},
		{"no contact extracted", textUpdate("just saying hi"), &stubExtractor{found: false}},
		{"empty name means no record", textUpdate("met someone"), &stubExtractor{found: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{}
			pipeline := newTestPipeline(tt.ext, nil, nil, store)

			result, err := pipeline.Handle(context.Background(), tt.update)
			if err != nil {
				t.Fatalf("Handle() error = %v, want benign", err)
			}
			if result.Outcome != OutcomeIgnored {
				t.Errorf("outcome = %q, want ignored", result.Outcome)
			}
			if len(store.created) != 0 {
				t.Error("nothing should be persisted")
			}
		})
	}
}

func TestHandleSkipsExtractionForUnusableText(t *testing.T) {
	extractor := &stubExtractor{}
	pipeline := newTestPipeline(extractor, nil, nil, nil)

	for _, update := range []tgbotapi.Update{
		{},
		textUpdate(""),
		textUpdate(strings.Repeat("a", extract.MaxMessageLen+1)),
	} {
		if _, err := pipeline.Handle(context.Background(), update); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	}
	if extractor.calls != 0 {
		t.Errorf("extractor called %d times for unusable input", extractor.calls)
	}
}

func TestHandleExtractionFailureIsBenign(t *testing.T) {
	extractor := &stubExtractor{err: errors.New("model endpoint down")}
	store := &stubStore{}
	pipeline := newTestPipeline(extractor, nil, nil, store)

	result, err := pipeline.Handle(context.Background(), textUpdate("met Jane"))
	if err != nil {
		t.Fatalf("extraction failure must not propagate, got %v", err)
	}
	if result.Outcome != OutcomeIgnored || result.Reason != "extraction failed" {
		t.Errorf("result = %+v", result)
	}
	if len(store.created) != 0 {
		t.Error("nothing should be persisted")
	}
}

func TestHandlePersistenceFailurePropagates(t *testing.T) {
	extractor := &stubExtractor{candidate: extract.Candidate{Name: "Jane"}, found: true}
	store := &stubStore{err: errors.New("connection refused")}
	pipeline := newTestPipeline(extractor, nil, nil, store)

	_, err := pipeline.Handle(context.Background(), textUpdate("met Jane"))
	if err == nil {
		t.Fatal("persistence failure must propagate")
	}
}

func TestHandleVoiceMessage(t *testing.T) {
	extractor := &stubExtractor{candidate: extract.Candidate{Name: "Alex"}, found: true}
	transcriber := &stubTranscriber{text: "Met Alex at the gym."}
	store := &stubStore{}
	pipeline := newTestPipeline(extractor, nil, transcriber, store)

	update := textUpdate("")
	update.Message.Voice = &tgbotapi.Voice{FileID: "voice-1"}

	result, err := pipeline.Handle(context.Background(), update)
	if err != nil || result.Outcome != OutcomeCreated {
		t.Fatalf("Handle() = %+v, %v", result, err)
	}
	if transcriber.calls != 1 {
		t.Errorf("transcriber calls = %d", transcriber.calls)
	}
	if extractor.gotText != "Met Alex at the gym." {
		t.Errorf("extractor received %q", extractor.gotText)
	}
}

func TestHandleVoiceTranscriptionFailure(t *testing.T) {
	extractor := &stubExtractor{}
	transcriber := &stubTranscriber{text: ""}
	pipeline := newTestPipeline(extractor, nil, transcriber, nil)

	update := textUpdate("caption ignored when voice present")
	update.Message.Voice = &tgbotapi.Voice{FileID: "voice-1"}

	result, err := pipeline.Handle(context.Background(), update)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.Outcome != OutcomeIgnored {
		t.Errorf("outcome = %q, want ignored", result.Outcome)
	}
	if extractor.calls != 0 {
		t.Error("empty transcript must not reach the extractor")
	}
}

func TestHandleMessageDate(t *testing.T) {
	extractor := &stubExtractor{candidate: extract.Candidate{Name: "Jane"}, found: true}
	pipeline := newTestPipeline(extractor, nil, nil, &stubStore{})

	if _, err := pipeline.Handle(context.Background(), textUpdate("met Jane")); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 5, 10, 15, 4, 5, 0, time.UTC)
	if !extractor.gotDate.Equal(want) {
		t.Errorf("message date = %v, want %v", extractor.gotDate, want)
	}
}
