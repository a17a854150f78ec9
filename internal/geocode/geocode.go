// Package geocode resolves free-text place names to coordinates, best effort.
package geocode

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meetlog/meetlog/internal/sanitize"
)

// Coordinates is a resolved geographic point.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Client queries a Nominatim-compatible geocoding endpoint.
type Client struct {
	baseURL   string
	userAgent string
	logger    *slog.Logger
	http      *http.Client
}

// NewClient builds a geocoding client. userAgent identifies this service as
// the Nominatim usage policy requires.
func NewClient(log *slog.Logger, baseURL, userAgent string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		logger:    log.With(slog.String("client", "geocode")),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Lookup resolves a place name to coordinates. False means "no result": an
// empty place, a network or endpoint failure, or a malformed response. It
// never returns an error; absence is the only failure mode callers see.
func (c *Client) Lookup(ctx context.Context, place string) (Coordinates, bool) {
	trimmed := strings.TrimSpace(place)
	if trimmed == "" {
		return Coordinates{}, false
	}

	endpoint := c.baseURL + "/search?format=json&limit=1&q=" + url.QueryEscape(trimmed)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinates{}, false
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("geocode request failed", slog.String("place", trimmed), slog.Any("error", err))
		return Coordinates{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("geocode endpoint error", slog.String("place", trimmed), slog.Int("status", resp.StatusCode))
		return Coordinates{}, false
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		c.logger.Warn("geocode response malformed", slog.String("place", trimmed), slog.Any("error", err))
		return Coordinates{}, false
	}
	if len(results) == 0 {
		c.logger.Debug("no geocode result", slog.String("place", trimmed))
		return Coordinates{}, false
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil || !sanitize.ValidCoordinate(lat, lon) {
		// A malformed or out-of-range result is indistinguishable from
		// no result; nothing downstream may see a half-trusted pair.
		c.logger.Warn("geocode result unusable", slog.String("place", trimmed))
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lon: lon}, true
}
