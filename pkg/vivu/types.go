package vivu

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/vivutrip/vivu/pkg/poi"
	"github.com/vivutrip/vivu/pkg/schedule"
)

// timeLayout is the local-time format used for response instants.
const timeLayout = "2006-01-02T15:04:05"

// DefaultThreshold applies when the request omits ecs_score_threshold.
const DefaultThreshold = 0.3

// MoodList accepts either a single mood string or a list of them.
type MoodList []string

func (m *MoodList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil // same as an absent field
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*m = MoodList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	if many == nil {
		many = []string{}
	}
	*m = many
	return nil
}

// Request is the envelope both optimize endpoints accept.
type Request struct {
	POIList           []*poi.POI                    `json:"poi_list"`
	UserMood          MoodList                      `json:"user_mood"`
	DurationDays      int                           `json:"duration_days"`
	CurrentLocation   *poi.Location                 `json:"current_location"`
	StartDatetime     string                        `json:"start_datetime"`
	ECSScoreThreshold *float64                      `json:"ecs_score_threshold"`
	ETAMatrix         map[string]map[string]float64 `json:"eta_matrix"`
	ETAFromCurrent    map[string]float64            `json:"eta_from_current"`
	TravelMode        string                        `json:"travel_mode"`
	POIPerDay         int                           `json:"poi_per_day"`
}

// Validate checks the required fields. An empty poi_list is legal and yields
// an empty plan; a missing user_mood field is not (an explicit empty list is).
func (r *Request) Validate() error {
	if r.UserMood == nil {
		return errors.New("user_mood is required")
	}
	if r.DurationDays < 1 {
		return errors.New("duration_days must be at least 1")
	}
	if r.CurrentLocation == nil {
		return errors.New("current_location is required")
	}
	return nil
}

// Threshold returns the effective ECS cutoff.
func (r *Request) Threshold() float64 {
	if r.ECSScoreThreshold == nil {
		return DefaultThreshold
	}
	return *r.ECSScoreThreshold
}

// startLayouts are the accepted start_datetime shapes, after any timezone
// suffix is stripped. Callers send local wall-clock time.
var startLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseStartTime interprets a caller-supplied local start instant. A
// trailing "Z" or "+hh:mm" offset is discarded; the wall-clock digits win.
func ParseStartTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty start_datetime")
	}
	s = strings.TrimSuffix(s, "Z")
	if idx := strings.LastIndex(s, "+"); idx > 0 {
		s = s[:idx]
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized start_datetime format")
}

// Response is the shared response shape of both endpoints.
type Response struct {
	OptimizedRoute []DayPlan `json:"optimized_route"`
}

// DayPlan is one day's ordered visits.
type DayPlan struct {
	Day          int        `json:"day"`
	DayStartTime string     `json:"day_start_time"`
	Activities   []Activity `json:"activities"`
}

// Activity is a scheduled visit. It marshals as the original POI object with
// the scheduling attributes attached.
type Activity struct {
	Visit schedule.Visit
}

func (a Activity) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any)
	if raw := a.Visit.POI.Raw(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			fields = make(map[string]any)
		}
	}
	fields["estimated_arrival"] = a.Visit.Arrival.Format(timeLayout)
	fields["estimated_departure"] = a.Visit.Departure.Format(timeLayout)
	fields["visit_duration_minutes"] = a.Visit.VisitMinutes
	return json.Marshal(fields)
}
