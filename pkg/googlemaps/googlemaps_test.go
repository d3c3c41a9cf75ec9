package googlemaps

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"
)

// fakeHTTP replays canned responses and records the URLs requested.
type fakeHTTP struct {
	responses []fakeResponse
	urls      []string
	calls     int
}

type fakeResponse struct {
	status int
	body   string
}

func (f *fakeHTTP) Do(req *http.Request) (*http.Response, error) {
	f.urls = append(f.urls, req.URL.String())
	resp := f.responses[f.calls%len(f.responses)]
	f.calls++
	return &http.Response{
		StatusCode: resp.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(resp.body))),
		Header:     make(http.Header),
	}, nil
}

func TestNormalizeTravelMode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"driving", "driving"},
		{"WALKING", "walking"},
		{" transit ", "transit"},
		{"bicycling", "bicycling"},
		{"", "driving"},
		{"teleport", "driving"},
	}
	for _, tt := range tests {
		if got := NormalizeTravelMode(tt.in); got != tt.want {
			t.Errorf("NormalizeTravelMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGeocodeLocation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := &fakeHTTP{responses: []fakeResponse{{
			status: http.StatusOK,
			body: `{"status": "OK", "results": [{"geometry": {"location": {"lat": 10.7769, "lng": 106.7009}},
				"formatted_address": "Ho Chi Minh City, Vietnam"}]}`,
		}}}
		c := NewClient("test-key", fake, nil)

		loc, err := c.GeocodeLocation(context.Background(), "Ho Chi Minh City")
		if err != nil {
			t.Fatalf("GeocodeLocation: %v", err)
		}
		if loc.Latitude != 10.7769 || loc.Longitude != 106.7009 {
			t.Errorf("got %+v", loc)
		}
		if !strings.Contains(fake.urls[0], "address=Ho+Chi+Minh+City") {
			t.Errorf("request URL missing escaped address: %s", fake.urls[0])
		}
	})

	t.Run("zero results", func(t *testing.T) {
		fake := &fakeHTTP{responses: []fakeResponse{{
			status: http.StatusOK,
			body:   `{"status": "ZERO_RESULTS", "results": []}`,
		}}}
		c := NewClient("test-key", fake, nil)
		if _, err := c.GeocodeLocation(context.Background(), "nowhere"); err == nil {
			t.Error("expected an error for ZERO_RESULTS")
		}
	})

	t.Run("no api key", func(t *testing.T) {
		c := NewClient("", &fakeHTTP{}, nil)
		if _, err := c.GeocodeLocation(context.Background(), "anywhere"); err == nil {
			t.Error("expected an error without an API key")
		}
	})
}

func TestDurationsMinutes(t *testing.T) {
	t.Run("parses seconds into minutes", func(t *testing.T) {
		fake := &fakeHTTP{responses: []fakeResponse{{
			status: http.StatusOK,
			body: `{"status": "OK", "rows": [{"elements": [
				{"status": "OK", "duration": {"value": 600}},
				{"status": "OK", "duration": {"value": 90}}
			]}]}`,
		}}}
		c := NewClient("test-key", fake, nil)

		minutes, err := c.DurationsMinutes(context.Background(), 10.77, 106.70,
			[][2]float64{{10.78, 106.69}, {10.76, 106.71}}, "driving")
		if err != nil {
			t.Fatalf("DurationsMinutes: %v", err)
		}
		if len(minutes) != 2 || minutes[0] != 10 || minutes[1] != 1.5 {
			t.Errorf("minutes = %v, want [10 1.5]", minutes)
		}
	})

	t.Run("failed elements become NaN", func(t *testing.T) {
		fake := &fakeHTTP{responses: []fakeResponse{{
			status: http.StatusOK,
			body: `{"status": "OK", "rows": [{"elements": [
				{"status": "OK", "duration": {"value": 300}},
				{"status": "ZERO_RESULTS"}
			]}]}`,
		}}}
		c := NewClient("test-key", fake, nil)

		minutes, err := c.DurationsMinutes(context.Background(), 10.77, 106.70,
			[][2]float64{{10.78, 106.69}, {0, 0}}, "driving")
		if err != nil {
			t.Fatalf("DurationsMinutes: %v", err)
		}
		if minutes[0] != 5 {
			t.Errorf("minutes[0] = %v, want 5", minutes[0])
		}
		if !math.IsNaN(minutes[1]) {
			t.Errorf("minutes[1] = %v, want NaN", minutes[1])
		}
	})

	t.Run("chunks beyond 25 destinations", func(t *testing.T) {
		// 30 destinations must split into a 25-element call and a 5-element
		// call. The fake answers whatever element count the URL asked for.
		big := `{"status": "OK", "rows": [{"elements": [` +
			strings.Repeat(`{"status": "OK", "duration": {"value": 60}},`, 24) +
			`{"status": "OK", "duration": {"value": 60}}]}]}`
		small := `{"status": "OK", "rows": [{"elements": [` +
			strings.Repeat(`{"status": "OK", "duration": {"value": 120}},`, 4) +
			`{"status": "OK", "duration": {"value": 120}}]}]}`
		fake := &fakeHTTP{responses: []fakeResponse{{http.StatusOK, big}, {http.StatusOK, small}}}
		c := NewClient("test-key", fake, nil)

		dests := make([][2]float64, 30)
		for i := range dests {
			dests[i] = [2]float64{10 + float64(i)*0.01, 106}
		}
		minutes, err := c.DurationsMinutes(context.Background(), 10.77, 106.70, dests, "driving")
		if err != nil {
			t.Fatalf("DurationsMinutes: %v", err)
		}
		if fake.calls != 2 {
			t.Errorf("made %d calls, want 2", fake.calls)
		}
		if len(minutes) != 30 || minutes[0] != 1 || minutes[29] != 2 {
			t.Errorf("minutes[0]=%v minutes[29]=%v len=%d", minutes[0], minutes[29], len(minutes))
		}
	})

	t.Run("api-level failure", func(t *testing.T) {
		fake := &fakeHTTP{responses: []fakeResponse{{
			status: http.StatusOK,
			body:   `{"status": "REQUEST_DENIED", "error_message": "bad key"}`,
		}}}
		c := NewClient("test-key", fake, nil)
		if _, err := c.DurationsMinutes(context.Background(), 10, 106, [][2]float64{{11, 107}}, "driving"); err == nil {
			t.Error("expected an error for REQUEST_DENIED")
		}
	})

	t.Run("empty destination list", func(t *testing.T) {
		c := NewClient("test-key", &fakeHTTP{}, nil)
		minutes, err := c.DurationsMinutes(context.Background(), 10, 106, nil, "driving")
		if err != nil || minutes != nil {
			t.Errorf("got %v, %v; want nil, nil", minutes, err)
		}
	})
}

func TestDoWithRetryClientError(t *testing.T) {
	// A 404 is unrecoverable: exactly one attempt.
	fake := &fakeHTTP{responses: []fakeResponse{{status: http.StatusNotFound, body: "not found"}}}
	c := NewClient("test-key", fake, nil)
	if _, err := c.doWithRetry(context.Background(), "https://example.com/x"); err == nil {
		t.Fatal("expected an error for HTTP 404")
	}
	if fake.calls != 1 {
		t.Errorf("made %d attempts, want 1 (client errors must not retry)", fake.calls)
	}
}
