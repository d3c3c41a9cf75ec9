package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// maxDestinationsPerCall is the Distance Matrix API limit for a single
// origin. Larger destination sets are chunked into multiple calls.
const maxDestinationsPerCall = 25

// TravelMode values accepted by the Distance Matrix API.
var validTravelModes = map[string]bool{
	"driving":   true,
	"walking":   true,
	"bicycling": true,
	"transit":   true,
}

// NormalizeTravelMode maps arbitrary input to a mode the API accepts,
// defaulting to driving.
func NormalizeTravelMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if validTravelModes[mode] {
		return mode
	}
	return "driving"
}

// DurationsMinutes queries travel durations from one origin to the given
// destinations. The result has one entry per destination; entries for
// elements the API could not resolve are NaN. Coordinates are "lat,lng"
// pairs in decimal degrees.
func (c *Client) DurationsMinutes(ctx context.Context, originLat, originLng float64, dests [][2]float64, mode string) ([]float64, error) {
	if c.apiKey == "" {
		return nil, errors.New("google Maps API key not configured")
	}
	if len(dests) == 0 {
		return nil, nil
	}

	out := make([]float64, len(dests))
	for start := 0; start < len(dests); start += maxDestinationsPerCall {
		end := start + maxDestinationsPerCall
		if end > len(dests) {
			end = len(dests)
		}
		minutes, err := c.durationsChunk(ctx, originLat, originLng, dests[start:end], mode)
		if err != nil {
			return nil, err
		}
		copy(out[start:], minutes)
	}
	return out, nil
}

func (c *Client) durationsChunk(ctx context.Context, originLat, originLng float64, dests [][2]float64, mode string) ([]float64, error) {
	var sb strings.Builder
	for i, d := range dests {
		if i > 0 {
			sb.WriteByte('|')
		}
		fmt.Fprintf(&sb, "%f,%f", d[0], d[1])
	}

	apiURL := fmt.Sprintf(
		"https://maps.googleapis.com/maps/api/distancematrix/json?origins=%f,%f&destinations=%s&mode=%s&key=%s",
		originLat, originLng, sb.String(), NormalizeTravelMode(mode), c.apiKey)

	body, err := c.doWithRetry(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	var result struct {
		Rows []struct {
			Elements []struct {
				Duration struct {
					Value int `json:"value"` // seconds
				} `json:"duration"`
				Status string `json:"status"`
			} `json:"elements"`
		} `json:"rows"`
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse distance matrix response: %w", err)
	}
	if result.Status != "OK" {
		if result.ErrorMessage != "" {
			return nil, fmt.Errorf("distance matrix API failed: %s", result.ErrorMessage)
		}
		return nil, fmt.Errorf("distance matrix API failed with status: %s", result.Status)
	}
	if len(result.Rows) == 0 || len(result.Rows[0].Elements) != len(dests) {
		return nil, errors.New("distance matrix response shape mismatch")
	}

	minutes := make([]float64, len(dests))
	failed := 0
	for i, el := range result.Rows[0].Elements {
		if el.Status != "OK" {
			// Element-level failures are tolerated; the caller falls back.
			minutes[i] = math.NaN()
			failed++
			continue
		}
		minutes[i] = float64(el.Duration.Value) / 60.0
	}
	if failed > 0 {
		c.logger.Debug("distance matrix elements failed", "failed", failed, "total", len(dests))
	}
	return minutes, nil
}
