// Package travel resolves travel times between itinerary endpoints. The
// resolution order is fixed: a caller-supplied matrix wins, then a batched
// Google Distance Matrix lookup memoized for the rest of the request, then
// a 30 km/h haversine estimate. Endpoints without coordinates get a
// sentinel ETA the sequencer treats as unreachable.
package travel

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/vivutrip/vivu/pkg/geo"
	"github.com/vivutrip/vivu/pkg/googlemaps"
)

// UnreachableETA marks a pair that cannot be connected (missing coordinates
// or no route). Anything at or above this value excludes a POI from a step.
const UnreachableETA = 9999

// minutesPerKm encodes the 30 km/h fallback speed.
const minutesPerKm = 2.0

// CurrentLocationID is the endpoint ID of the traveler's starting position.
const CurrentLocationID = "current_location"

// Endpoint is either a POI (by stable ID) or the traveler's current
// location. Point is nil when the source carried no coordinates.
type Endpoint struct {
	Point *geo.Point
	ID    string
}

// Provider resolves a travel time in minutes between two endpoints.
type Provider interface {
	// ETA never fails; unreachable pairs return UnreachableETA or more.
	ETA(ctx context.Context, origin, dest Endpoint) float64
	// Prime batches lookups for all destinations reachable from one
	// origin, so a nearest-neighbor scan costs one external call.
	Prime(ctx context.Context, origin Endpoint, dests []Endpoint)
}

// Matrix is a caller-supplied partial ETA map. Undefined entries mean "ask
// the external provider or fall back".
type Matrix struct {
	// Pairs maps origin POI ID -> destination POI ID -> minutes.
	Pairs map[string]map[string]float64
	// FromCurrent maps destination POI ID -> minutes from the traveler's
	// starting position.
	FromCurrent map[string]float64
}

// Lookup returns the caller-supplied ETA for a pair, if defined.
func (m *Matrix) Lookup(origin, dest Endpoint) (float64, bool) {
	if m == nil {
		return 0, false
	}
	if origin.ID == CurrentLocationID {
		v, ok := m.FromCurrent[dest.ID]
		return v, ok
	}
	row, ok := m.Pairs[origin.ID]
	if !ok {
		return 0, false
	}
	v, ok := row[dest.ID]
	return v, ok
}

// HaversineETA is the great-circle fallback estimate.
func HaversineETA(origin, dest Endpoint) float64 {
	if origin.Point == nil || dest.Point == nil {
		return UnreachableETA
	}
	return geo.HaversineKm(*origin.Point, *dest.Point) * minutesPerKm
}

// Estimator chains the three ETA sources. Build one per request; its memo
// cache must not outlive the request.
type Estimator struct {
	matrix *Matrix
	maps   *googlemaps.Client
	memo   *otter.Cache[string, float64]
	logger *slog.Logger
	mode   string
}

// NewEstimator builds the per-request ETA chain. maps may be nil or
// unconfigured, in which case every miss falls through to haversine.
func NewEstimator(matrix *Matrix, maps *googlemaps.Client, mode string, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	memo := otter.Must(&otter.Options[string, float64]{
		MaximumSize:      4096,
		ExpiryCalculator: otter.ExpiryWriting[string, float64](time.Hour),
	})
	return &Estimator{
		matrix: matrix,
		maps:   maps,
		memo:   memo,
		mode:   googlemaps.NormalizeTravelMode(mode),
		logger: logger,
	}
}

func pairKey(origin, dest Endpoint) string {
	return origin.ID + "\x00" + dest.ID
}

// ETA resolves one pair: matrix, then memoized external result, then
// haversine.
func (e *Estimator) ETA(ctx context.Context, origin, dest Endpoint) float64 {
	if origin.ID == dest.ID {
		return 0
	}
	if v, ok := e.matrix.Lookup(origin, dest); ok {
		return v
	}
	if v, ok := e.memo.GetIfPresent(pairKey(origin, dest)); ok {
		return v
	}
	if e.maps != nil && e.maps.Configured() && origin.Point != nil && dest.Point != nil {
		e.Prime(ctx, origin, []Endpoint{dest})
		if v, ok := e.memo.GetIfPresent(pairKey(origin, dest)); ok {
			return v
		}
	}
	return HaversineETA(origin, dest)
}

// Prime issues at most one Distance Matrix call covering every destination
// whose ETA from origin is still unknown. Failures are swallowed; the pairs
// simply stay on the haversine path.
func (e *Estimator) Prime(ctx context.Context, origin Endpoint, dests []Endpoint) {
	if e.maps == nil || !e.maps.Configured() || origin.Point == nil {
		return
	}

	var unknown []Endpoint
	var coords [][2]float64
	for _, d := range dests {
		if d.Point == nil || d.ID == origin.ID {
			continue
		}
		if _, ok := e.matrix.Lookup(origin, d); ok {
			continue
		}
		if _, ok := e.memo.GetIfPresent(pairKey(origin, d)); ok {
			continue
		}
		unknown = append(unknown, d)
		coords = append(coords, [2]float64{d.Point.Lat, d.Point.Lng})
	}
	if len(unknown) == 0 {
		return
	}

	minutes, err := e.maps.DurationsMinutes(ctx, origin.Point.Lat, origin.Point.Lng, coords, e.mode)
	if err != nil {
		e.logger.Debug("distance matrix lookup failed, using haversine fallback",
			"origin", origin.ID, "destinations", len(unknown), "error", err)
		return
	}
	for i, d := range unknown {
		if math.IsNaN(minutes[i]) {
			continue
		}
		e.memo.Set(pairKey(origin, d), minutes[i])
	}
}
