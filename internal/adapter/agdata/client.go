// Package agdata implements domain.RawDataProvider against the agricultural
// data collector API, with a file-backed cache decorator and a deterministic
// simulator fallback for environments without the upstream service.
package agdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
)

// Client fetches raw category frames from the upstream collector service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a collector API client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// Collect fetches one category's records for a region and crop. A 404 means
// the upstream holds nothing for the pair and maps to an empty frame, not an
// error.
func (c *Client) Collect(ctx context.Context, category domain.Category, region, crop string, lookbackDays int) (domain.Frame, error) {
	u := fmt.Sprintf("%s/v1/data/%s", c.baseURL, url.PathEscape(string(category)))
	params := url.Values{
		"region":        {region},
		"crop":          {crop},
		"lookback_days": {strconv.Itoa(lookbackDays)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("%s collect request: %w", category, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Frame{Category: category}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Frame{}, fmt.Errorf("collector API error: status %d: %s", resp.StatusCode, body)
	}

	frame := domain.Frame{Category: category}
	if err := decodeFrame(resp.Body, &frame); err != nil {
		return domain.Frame{}, fmt.Errorf("decode %s response: %w", category, err)
	}
	return frame, nil
}

// decodeFrame unmarshals the category-specific record array into the frame.
func decodeFrame(r io.Reader, frame *domain.Frame) error {
	dec := json.NewDecoder(r)
	switch frame.Category {
	case domain.CategoryWeather:
		return dec.Decode(&frame.Weather)
	case domain.CategoryPrices:
		return dec.Decode(&frame.Prices)
	case domain.CategoryProduction:
		return dec.Decode(&frame.Production)
	case domain.CategorySoil:
		return dec.Decode(&frame.Soil)
	default:
		return fmt.Errorf("unknown category %q", frame.Category)
	}
}
