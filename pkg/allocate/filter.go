// Package allocate distributes filtered POIs across the days of a trip. It
// offers two strategies: a function-quota allocator that balances core
// attractions, activities, resorts and food stops per day, and a clustering
// allocator that fills fixed per-day slots from geographic clusters.
package allocate

import (
	"log/slog"
	"sort"
	"time"

	"github.com/vivutrip/vivu/pkg/geo"
	"github.com/vivutrip/vivu/pkg/mood"
	"github.com/vivutrip/vivu/pkg/poi"
)

// Candidate pairs a POI with its emotional compatibility score for the
// request's moods.
type Candidate struct {
	POI *poi.POI
	ECS float64
}

// lodgingTypes disqualify RESORT POIs from daily routes.
var lodgingTypes = []string{"lodging", "hotel", "motel"}

// FilterOptions configures the candidate filter.
type FilterOptions struct {
	Center           *geo.Point
	Moods            []string
	Start            time.Time
	Threshold        float64
	MaxRadiusKm      float64 // 0 disables the radius pre-filter
	RequireRouteFlag bool    // true: flag must be explicitly set; false: missing means included
}

// Filter applies the candidate pipeline: optional radius pre-filter, open at
// departure, ECS threshold, then function gating. Dropped POIs are logged at
// debug level and never fail the request.
func Filter(pois []*poi.POI, opts FilterOptions, logger *slog.Logger) []*Candidate {
	if logger == nil {
		logger = slog.Default()
	}
	strict := opts.Start.Hour() < 6 || opts.Start.Hour() >= 22

	var out []*Candidate
	for _, p := range pois {
		if opts.MaxRadiusKm > 0 && opts.Center != nil {
			pt, ok := p.Point()
			if !ok || geo.HaversineKm(*opts.Center, pt) > opts.MaxRadiusKm {
				logger.Debug("filtered: outside radius", "poi", p.ID)
				continue
			}
		}
		if !p.Hours.IsOpen(opts.Start, strict) {
			logger.Debug("filtered: closed at departure", "poi", p.ID)
			continue
		}
		ecs := mood.Score(p.EmotionalTags, opts.Moods)
		if ecs < opts.Threshold {
			logger.Debug("filtered: below score threshold", "poi", p.ID, "ecs", ecs)
			continue
		}
		if !passesFunctionGate(p, opts.RequireRouteFlag) {
			logger.Debug("filtered: function gating", "poi", p.ID, "function", p.Function)
			continue
		}
		out = append(out, &Candidate{POI: p, ECS: ecs})
	}
	return out
}

func passesFunctionGate(p *poi.POI, requireFlag bool) bool {
	if p.Function == "" {
		return false
	}
	if p.Function == poi.FunctionAccommodation {
		return false
	}
	if p.Function == poi.FunctionResort && p.HasType(lodgingTypes...) {
		return false
	}
	if requireFlag {
		return p.IncludeInDailyRoute != nil && *p.IncludeInDailyRoute
	}
	return p.IncludeInDailyRoute == nil || *p.IncludeInDailyRoute
}

// sortByECS orders candidates by descending score with stable ID
// tie-breaking.
func sortByECS(cands []*Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].ECS != cands[j].ECS {
			return cands[i].ECS > cands[j].ECS
		}
		return cands[i].POI.ID < cands[j].POI.ID
	})
}

// sortByMoodScore orders candidates by one mood's score; falls back to ECS
// ordering when the label is empty.
func sortByMoodScore(cands []*Candidate, label string) {
	if label == "" {
		sortByECS(cands)
		return
	}
	sort.SliceStable(cands, func(i, j int) bool {
		si := mood.ScoreOne(cands[i].POI.EmotionalTags, label)
		sj := mood.ScoreOne(cands[j].POI.EmotionalTags, label)
		if si != sj {
			return si > sj
		}
		if cands[i].ECS != cands[j].ECS {
			return cands[i].ECS > cands[j].ECS
		}
		return cands[i].POI.ID < cands[j].POI.ID
	})
}

// admitsVisitHours probes whether the POI is open at any of the canonical
// visit hours (08:00, 12:00, 16:00) of the given date.
func admitsVisitHours(p *poi.POI, date time.Time) bool {
	for _, h := range []int{8, 12, 16} {
		probe := time.Date(date.Year(), date.Month(), date.Day(), h, 0, 0, 0, date.Location())
		if p.Hours.IsOpen(probe, false) {
			return true
		}
	}
	return false
}

// admitsMealHours probes the lunch (11:00-14:00) and dinner (17:00-21:00)
// windows of the given date.
func admitsMealHours(p *poi.POI, date time.Time) bool {
	for _, h := range []int{11, 12, 13, 17, 18, 19, 20} {
		probe := time.Date(date.Year(), date.Month(), date.Day(), h, 0, 0, 0, date.Location())
		if p.Hours.IsOpen(probe, false) {
			return true
		}
	}
	return false
}
