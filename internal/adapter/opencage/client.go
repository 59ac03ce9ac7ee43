// Package opencage implements domain.Geocoder using the OpenCage forward
// geocoding API.
package opencage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/agroclim/gdd-tracker/internal/domain"
	"github.com/agroclim/gdd-tracker/internal/observability"
)

// Client resolves free-text place names to coordinates via OpenCage.
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenCage geocoding client. The API key must be
// non-empty; config validation guarantees that before this is reached.
func NewClient(key, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		key: key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode resolves a place name to a coordinate pair and display label.
// Returns domain.ErrPlaceNotFound when the provider has no match.
func (c *Client) Geocode(ctx context.Context, place string) (domain.Place, error) {
	params := url.Values{
		"q":              {place},
		"key":            {c.key},
		"limit":          {"1"},
		"no_annotations": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Place{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Place{}, fmt.Errorf("opencage API error: status %d: %s", resp.StatusCode, body)
	}

	var ocResp response
	if err := json.NewDecoder(resp.Body).Decode(&ocResp); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Place{}, fmt.Errorf("decode response: %w", err)
	}

	if len(ocResp.Results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return domain.Place{}, fmt.Errorf("%w: %q", domain.ErrPlaceNotFound, place)
	}

	r := ocResp.Results[0]
	label := r.Formatted
	if label == "" {
		label = place
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return domain.Place{
		Lat:   r.Geometry.Lat,
		Lon:   r.Geometry.Lng,
		Label: label,
	}, nil
}

// OpenCage API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Formatted string   `json:"formatted"`
	Geometry  geometry `json:"geometry"`
}

type geometry struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
