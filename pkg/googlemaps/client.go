// Package googlemaps wraps the two Google Maps REST APIs the optimizer
// talks to: Geocoding (address -> coordinates, used by the CLI) and
// Distance Matrix (per-pair travel durations). Every call retries with
// backoff and jitter under a hard 15-second deadline; callers treat any
// error as a signal to fall back to the haversine estimate.
package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Location represents a geographic location with coordinates.
type Location struct {
	Latitude  float64
	Longitude float64
}

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client handles Google Maps API operations.
type Client struct {
	apiKey     string
	httpClient HTTPClient
	logger     *slog.Logger
}

// NewClient creates a new Google Maps API client.
func NewClient(apiKey string, httpClient HTTPClient, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// doWithRetry performs a GET with exponential backoff and jitter, giving up
// after 15 seconds total. The response body is returned already read.
func (c *Client) doWithRetry(ctx context.Context, apiURL string) ([]byte, error) {
	deadline := time.Now().Add(15 * time.Second)
	var body []byte
	var lastErr error

	err := retry.Do(
		func() error {
			if time.Now().After(deadline) {
				return retry.Unrecoverable(errors.New("timeout after 15 seconds"))
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				lastErr = err
				return err
			}
			defer func() {
				if err := resp.Body.Close(); err != nil {
					c.logger.Debug("failed to close response body", "error", err)
				}
			}()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				lastErr = err
				return err
			}

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
				return lastErr
			}
			if resp.StatusCode != http.StatusOK {
				// Client errors are not retryable.
				return retry.Unrecoverable(fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data)))
			}

			body = data
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(100*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying maps API call", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if lastErr != nil {
			return nil, fmt.Errorf("maps API call failed: %w", lastErr)
		}
		return nil, fmt.Errorf("maps API call failed: %w", err)
	}
	return body, nil
}

// GeocodeLocation converts a location string to coordinates using the Google
// Geocoding API.
func (c *Client) GeocodeLocation(ctx context.Context, location string) (*Location, error) {
	if c.apiKey == "" {
		c.logger.Warn("Google Maps API key not configured - skipping geocoding", "location", location)
		return nil, errors.New("google Maps API key not configured")
	}

	apiURL := fmt.Sprintf("https://maps.googleapis.com/maps/api/geocode/json?address=%s&key=%s",
		url.QueryEscape(location), c.apiKey)

	body, err := c.doWithRetry(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
			FormattedAddress string `json:"formatted_address"`
		} `json:"results"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Debug("geocoding JSON parse error", "location", location, "error", err)
		return nil, fmt.Errorf("failed to parse geocoding response: %w", err)
	}
	if result.Status != "OK" || len(result.Results) == 0 {
		c.logger.Debug("geocoding failed", "location", location, "status", result.Status,
			"results_count", len(result.Results))
		return nil, fmt.Errorf("geocoding failed for %s: %s", location, result.Status)
	}

	first := result.Results[0]
	c.logger.Debug("geocoded location", "query", location, "address", first.FormattedAddress)
	return &Location{
		Latitude:  first.Geometry.Location.Lat,
		Longitude: first.Geometry.Location.Lng,
	}, nil
}
