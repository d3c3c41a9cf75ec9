package vivu

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vivutrip/vivu/pkg/poi"
)

func TestParseStartTime(t *testing.T) {
	want := time.Date(2025, 6, 2, 8, 30, 0, 0, time.Local)

	tests := []struct {
		name string
		in   string
	}{
		{"plain", "2025-06-02T08:30:00"},
		{"trailing Z ignored", "2025-06-02T08:30:00Z"},
		{"offset ignored", "2025-06-02T08:30:00+07:00"},
		{"no seconds", "2025-06-02T08:30"},
		{"space separator", "2025-06-02 08:30:00"},
		{"space no seconds", "2025-06-02 08:30"},
		{"surrounding whitespace", "  2025-06-02T08:30:00  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStartTime(tt.in)
			if err != nil {
				t.Fatalf("ParseStartTime(%q): %v", tt.in, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseStartTime(%q) = %v, want %v", tt.in, got, want)
			}
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		for _, in := range []string{"", "yesterday", "2025-06-02", "08:30:00"} {
			if _, err := ParseStartTime(in); err == nil {
				t.Errorf("ParseStartTime(%q) succeeded, want error", in)
			}
		}
	})
}

func TestMoodListUnmarshal(t *testing.T) {
	t.Run("single string", func(t *testing.T) {
		var m MoodList
		if err := json.Unmarshal([]byte(`"Yên tĩnh & Thư giãn"`), &m); err != nil {
			t.Fatal(err)
		}
		if len(m) != 1 || m[0] != "Yên tĩnh & Thư giãn" {
			t.Errorf("got %v", m)
		}
	})

	t.Run("list", func(t *testing.T) {
		var m MoodList
		if err := json.Unmarshal([]byte(`["a", "b"]`), &m); err != nil {
			t.Fatal(err)
		}
		if len(m) != 2 {
			t.Errorf("got %v", m)
		}
	})

	t.Run("empty list stays non-nil", func(t *testing.T) {
		var m MoodList
		if err := json.Unmarshal([]byte(`[]`), &m); err != nil {
			t.Fatal(err)
		}
		if m == nil || len(m) != 0 {
			t.Errorf("got %#v, want empty non-nil list", m)
		}
	})

	t.Run("null is absent", func(t *testing.T) {
		var m MoodList
		if err := json.Unmarshal([]byte(`null`), &m); err != nil {
			t.Fatal(err)
		}
		if m != nil {
			t.Errorf("got %#v, want nil", m)
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		var m MoodList
		if err := json.Unmarshal([]byte(`7`), &m); err == nil {
			t.Error("expected an error for a numeric mood field")
		}
	})
}

func TestRequestValidate(t *testing.T) {
	valid := func() *Request {
		return &Request{
			UserMood:        MoodList{"Yên tĩnh & Thư giãn"},
			DurationDays:    2,
			CurrentLocation: &poi.Location{Lat: 10.77, Lng: 106.70},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr bool
	}{
		{"valid", func(r *Request) {}, false},
		{"empty mood list is legal", func(r *Request) { r.UserMood = MoodList{} }, false},
		{"missing moods", func(r *Request) { r.UserMood = nil }, true},
		{"zero days", func(r *Request) { r.DurationDays = 0 }, true},
		{"negative days", func(r *Request) { r.DurationDays = -1 }, true},
		{"missing location", func(r *Request) { r.CurrentLocation = nil }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestThreshold(t *testing.T) {
	r := &Request{}
	if got := r.Threshold(); got != DefaultThreshold {
		t.Errorf("default threshold = %v, want %v", got, DefaultThreshold)
	}
	zero := 0.0
	r.ECSScoreThreshold = &zero
	if got := r.Threshold(); got != 0 {
		t.Errorf("explicit zero threshold = %v, want 0", got)
	}
	neg := -0.5
	r.ECSScoreThreshold = &neg
	if got := r.Threshold(); got != -0.5 {
		t.Errorf("negative threshold = %v, want -0.5", got)
	}
}
