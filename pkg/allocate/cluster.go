package allocate

import (
	"log/slog"

	"github.com/vivutrip/vivu/pkg/geo"
)

// DefaultPOIsPerDay is the slot count per day for the clustering allocator
// when the caller does not override it.
const DefaultPOIsPerDay = 3

// clusterPool holds one geographic cluster's candidates with precomputed
// orderings: one ranking per requested mood plus an overall ECS ranking.
type clusterPool struct {
	byMood map[string][]*Candidate
	byECS  []*Candidate
	label  int
}

// AllocateByClusters partitions candidates by k-means over their
// coordinates, then fills perDay slots per day: each slot draws the next
// unused POI from a round-robin cluster, ranked by the slot's round-robin
// mood, falling back to the cluster's overall ranking and finally to a
// global pool.
func AllocateByClusters(cands []*Candidate, durationDays, perDay int, moods []string, logger *slog.Logger) [][]*Candidate {
	if logger == nil {
		logger = slog.Default()
	}
	if perDay <= 0 {
		perDay = DefaultPOIsPerDay
	}

	var located []*Candidate
	var points []geo.Point
	for _, c := range cands {
		if pt, ok := c.POI.Point(); ok {
			located = append(located, c)
			points = append(points, pt)
		}
	}

	k := durationDays
	if len(points) < k {
		k = len(points)
	}
	labels := geo.KMeans(points, k)

	members := make(map[int][]*Candidate)
	for i, c := range located {
		members[labels[i]] = append(members[labels[i]], c)
	}

	// Largest clusters first; the per-day round-robin walks this order.
	var clusters []*clusterPool
	for _, cs := range geo.ClusterSizes(labels) {
		clusters = append(clusters, newClusterPool(cs.Label, members[cs.Label], moods))
	}

	global := newClusterPool(-1, cands, moods)

	used := make(map[string]bool)
	out := make([][]*Candidate, durationDays)
	for day := 0; day < durationDays; day++ {
		for slot := 0; slot < perDay; slot++ {
			label := ""
			if len(moods) > 0 {
				label = moods[slot%len(moods)]
			}

			var pick *Candidate
			if len(clusters) > 0 {
				cluster := clusters[(day+slot)%len(clusters)]
				pick = cluster.next(label, used)
			}
			if pick == nil {
				pick = global.next(label, used)
			}
			if pick == nil {
				continue // nothing left anywhere
			}
			used[pick.POI.ID] = true
			out[day] = append(out[day], pick)
		}
		logger.Debug("cluster allocation", "day", day+1, "pois", len(out[day]))
	}
	return out
}

func newClusterPool(label int, cands []*Candidate, moods []string) *clusterPool {
	p := &clusterPool{label: label, byMood: make(map[string][]*Candidate)}
	p.byECS = append([]*Candidate(nil), cands...)
	sortByECS(p.byECS)
	for _, m := range moods {
		ranked := append([]*Candidate(nil), cands...)
		sortByMoodScore(ranked, m)
		p.byMood[m] = ranked
	}
	return p
}

// next returns the first unused candidate from the mood ranking, falling
// back to the ECS ranking.
func (p *clusterPool) next(label string, used map[string]bool) *Candidate {
	if ranked, ok := p.byMood[label]; ok {
		for _, c := range ranked {
			if !used[c.POI.ID] {
				return c
			}
		}
	}
	for _, c := range p.byECS {
		if !used[c.POI.ID] {
			return c
		}
	}
	return nil
}
