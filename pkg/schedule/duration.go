package schedule

import (
	"strings"

	"github.com/vivutrip/vivu/pkg/poi"
)

// defaultVisitMinutes applies when nothing about the POI suggests better.
const defaultVisitMinutes = 120

// visitMinutesByType maps exact POI type tags to typical visit lengths.
var visitMinutesByType = map[string]int{
	"museum":           90,
	"art_gallery":      90,
	"park":             60,
	"temple":           45,
	"church":           45,
	"hindu_temple":     45,
	"mosque":           45,
	"place_of_worship": 45,
	"beach":            120,
	"amusement_park":   180,
	"zoo":              150,
	"aquarium":         120,
	"cafe":             45,
	"restaurant":       60,
	"bar":              90,
	"night_club":       120,
	"shopping_mall":    90,
	"market":           60,
	"spa":              120,
	"viewpoint":        45,
}

// VisitMinutes resolves how long a visit should take: the explicit duration
// if the upstream pipeline set one, then the estimate, then a per-type
// lookup, then a coarse category heuristic.
func VisitMinutes(p *poi.POI) int {
	if p.VisitDurationMinutes > 0 {
		return p.VisitDurationMinutes
	}
	if p.EstimatedVisitMinutes > 0 {
		return p.EstimatedVisitMinutes
	}
	for _, t := range p.Types {
		if m, ok := visitMinutesByType[strings.ToLower(t)]; ok {
			return m
		}
	}
	return categoryVisitMinutes(p.Types)
}

func categoryVisitMinutes(types []string) int {
	joined := strings.ToLower(strings.Join(types, " "))
	switch {
	case strings.Contains(joined, "museum"),
		strings.Contains(joined, "art"),
		strings.Contains(joined, "historical"):
		return 90
	case strings.Contains(joined, "park"),
		strings.Contains(joined, "natural"),
		strings.Contains(joined, "scenic"):
		return 75
	case strings.Contains(joined, "worship"),
		strings.Contains(joined, "pagoda"):
		return 45
	case strings.Contains(joined, "shopping"):
		return 60
	default:
		return defaultVisitMinutes
	}
}
