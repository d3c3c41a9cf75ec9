// Package schedule turns a day's allocated POIs into a clocked visit order.
// It chains them by nearest neighbor, then simulates the day: travel,
// arrive, check opening hours, visit, depart. Arrivals at closed POIs are
// deferred and retried; when a retry round stalls the simulated clock may
// jump forward to the next opening, a bounded number of times.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/vivutrip/vivu/pkg/poi"
	"github.com/vivutrip/vivu/pkg/travel"
)

const (
	maxRetryRounds = 3
	maxTimeJumps   = 2
	maxJumpAhead   = 4 * time.Hour
)

// Visit is one scheduled stop.
type Visit struct {
	Arrival      time.Time
	Departure    time.Time
	POI          *poi.POI
	VisitMinutes int
}

// strictAt mirrors the allocator's unusual-hour rule: probing a POI before
// 06:00 or at 22:00 and later demands published opening data.
func strictAt(t time.Time) bool {
	h := t.Hour()
	return h < 6 || h >= 22
}

func endpointFor(p *poi.POI) travel.Endpoint {
	ep := travel.Endpoint{ID: p.ID}
	if pt, ok := p.Point(); ok {
		point := pt
		ep.Point = &point
	}
	return ep
}

// BuildDay sequences one day's POIs starting from the traveler's position at
// dayStart. POIs that stay unreachable or closed are dropped, not
// re-allocated to other days.
func BuildDay(ctx context.Context, eta travel.Provider, start travel.Endpoint, dayStart time.Time, pois []*poi.POI, logger *slog.Logger) []Visit {
	if logger == nil {
		logger = slog.Default()
	}
	if len(pois) == 0 {
		return nil
	}

	chain := nearestNeighborChain(ctx, eta, start, pois, logger)

	clock := dayStart
	prev := start
	visits := make([]Visit, 0, len(chain))
	var deferred []*poi.POI

	attempt := func(p *poi.POI) bool {
		t := eta.ETA(ctx, prev, endpointFor(p))
		if t >= travel.UnreachableETA {
			logger.Info("dropping unreachable POI", "poi", p.ID, "name", p.Name)
			return true // consumed, not scheduled
		}
		arrival := clock.Add(time.Duration(t * float64(time.Minute))).Truncate(time.Minute)
		if !p.Hours.IsOpen(arrival, strictAt(arrival)) {
			return false
		}
		minutes := VisitMinutes(p)
		visits = append(visits, Visit{
			POI:          p,
			Arrival:      arrival,
			Departure:    arrival.Add(time.Duration(minutes) * time.Minute),
			VisitMinutes: minutes,
		})
		clock = visits[len(visits)-1].Departure
		prev = endpointFor(p)
		return true
	}

	for _, p := range chain {
		if !attempt(p) {
			deferred = append(deferred, p)
		}
	}

	jumps := 0
	for round := 0; round < maxRetryRounds && len(deferred) > 0; round++ {
		var still []*poi.POI
		for _, p := range deferred {
			if !attempt(p) {
				still = append(still, p)
			}
		}
		progressed := len(still) < len(deferred)
		deferred = still

		if progressed || len(deferred) == 0 {
			continue
		}
		if jumps >= maxTimeJumps {
			break
		}
		next, ok := earliestOpening(deferred, clock)
		if !ok || next.Sub(clock) > maxJumpAhead {
			break
		}
		logger.Debug("jumping clock to next opening", "from", clock, "to", next,
			"deferred", len(deferred))
		clock = next
		jumps++
	}

	for _, p := range deferred {
		logger.Info("dropping POI that never opened in time", "poi", p.ID, "name", p.Name)
	}
	return visits
}

// nearestNeighborChain greedily orders POIs by travel time: from the current
// position, then repeatedly from the last chosen stop. Pairs at or beyond
// the unreachable sentinel are skipped at each step.
func nearestNeighborChain(ctx context.Context, eta travel.Provider, start travel.Endpoint, pois []*poi.POI, logger *slog.Logger) []*poi.POI {
	remaining := append([]*poi.POI(nil), pois...)
	chain := make([]*poi.POI, 0, len(pois))
	from := start

	for len(remaining) > 0 {
		dests := make([]travel.Endpoint, len(remaining))
		for i, p := range remaining {
			dests[i] = endpointFor(p)
		}
		eta.Prime(ctx, from, dests)

		bestIdx := -1
		bestETA := float64(travel.UnreachableETA)
		for i, p := range remaining {
			t := eta.ETA(ctx, from, endpointFor(p))
			if t < bestETA {
				bestETA = t
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			for _, p := range remaining {
				logger.Info("no route to POI from current chain position", "poi", p.ID, "name", p.Name)
			}
			break
		}

		chosen := remaining[bestIdx]
		chain = append(chain, chosen)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		from = endpointFor(chosen)
	}
	return chain
}

// earliestOpening finds the soonest future opening among the deferred POIs.
func earliestOpening(deferred []*poi.POI, clock time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, p := range deferred {
		next := p.Hours.NextOpening(clock)
		if next.Before(clock) {
			continue
		}
		if !found || next.Before(best) {
			best = next
			found = true
		}
	}
	return best, found
}
