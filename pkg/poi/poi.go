// Package poi models candidate points of interest as they arrive from the
// upstream ingestion pipeline. The wire format is lenient: identifiers,
// type lists and opening hours each have several historical field spellings,
// all of which decode into one canonical struct.
package poi

import (
	"encoding/json"

	"github.com/vivutrip/vivu/pkg/geo"
	"github.com/vivutrip/vivu/pkg/hours"
)

// Function is the coarse category used for quota allocation.
type Function string

// Known function tags.
const (
	FunctionCoreAttraction Function = "CORE_ATTRACTION"
	FunctionActivity       Function = "ACTIVITY"
	FunctionResort         Function = "RESORT"
	FunctionFoodBeverage   Function = "FOOD_BEVERAGE"
	FunctionDining         Function = "DINING"
	FunctionAccommodation  Function = "ACCOMMODATION"
	FunctionOther          Function = "OTHER"
)

// Location is a geographic coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts to the geo package representation.
func (l *Location) Point() geo.Point {
	return geo.Point{Lat: l.Lat, Lng: l.Lng}
}

// POI is one candidate location.
type POI struct {
	ID                    string
	Name                  string
	Location              *Location
	EmotionalTags         map[string]float64
	Function              Function
	IncludeInDailyRoute   *bool // nil when the flag was absent
	Types                 []string
	Hours                 *hours.Schedule
	VisitDurationMinutes  int
	EstimatedVisitMinutes int

	// raw preserves the original JSON object so responses can echo every
	// upstream field alongside the scheduling attributes.
	raw json.RawMessage
}

type wirePOI struct {
	GooglePlaceID       string             `json:"google_place_id"`
	ID                  string             `json:"id"`
	MongoID             string             `json:"_id"`
	Name                string             `json:"name"`
	Location            *Location          `json:"location"`
	EmotionalTags       map[string]float64 `json:"emotional_tags"`
	Function            string             `json:"function"`
	IncludeInDailyRoute *bool              `json:"includeInDailyRoute"`
	Type                flexibleStrings    `json:"type"`
	Types               flexibleStrings    `json:"types"`
	OpeningHours        json.RawMessage    `json:"opening_hours"`
	RegularOpeningHours json.RawMessage    `json:"regularOpeningHours"`
	OpeningHoursAlt     json.RawMessage    `json:"openingHours"`
	WeekdayDescriptions []string           `json:"weekdayDescriptions"`
	VisitDuration       int                `json:"visit_duration_minutes"`
	EstimatedVisit      int                `json:"estimated_visit_minutes"`
}

// flexibleStrings accepts both a single string and a list of strings.
type flexibleStrings []string

func (f *flexibleStrings) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*f = flexibleStrings{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*f = many
	return nil
}

// UnmarshalJSON decodes the wire shape, resolving field aliases and decoding
// opening hours once so later stages branch on Schedule.Kind only.
func (p *POI) UnmarshalJSON(data []byte) error {
	var w wirePOI
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	p.ID = w.GooglePlaceID
	if p.ID == "" {
		p.ID = w.ID
	}
	if p.ID == "" {
		p.ID = w.MongoID
	}
	p.Name = w.Name
	p.Location = w.Location
	p.EmotionalTags = w.EmotionalTags
	p.Function = Function(w.Function)
	p.IncludeInDailyRoute = w.IncludeInDailyRoute
	p.VisitDurationMinutes = w.VisitDuration
	p.EstimatedVisitMinutes = w.EstimatedVisit

	p.Types = append([]string(nil), w.Types...)
	p.Types = append(p.Types, w.Type...)

	rawHours := w.OpeningHours
	if len(rawHours) == 0 || string(rawHours) == "null" {
		rawHours = w.RegularOpeningHours
	}
	if len(rawHours) == 0 || string(rawHours) == "null" {
		rawHours = w.OpeningHoursAlt
	}
	p.Hours = hours.Decode(rawHours, w.WeekdayDescriptions)

	p.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Raw returns the original JSON object this POI was decoded from.
func (p *POI) Raw() json.RawMessage {
	return p.raw
}

// Point returns the POI's coordinates, or false when it has none.
func (p *POI) Point() (geo.Point, bool) {
	if p.Location == nil {
		return geo.Point{}, false
	}
	return p.Location.Point(), true
}

// HasType reports whether any of the POI's type tags equals one of the given
// values.
func (p *POI) HasType(values ...string) bool {
	for _, t := range p.Types {
		for _, v := range values {
			if t == v {
				return true
			}
		}
	}
	return false
}
