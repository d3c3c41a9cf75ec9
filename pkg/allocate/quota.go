package allocate

import (
	"container/heap"
	"log/slog"
	"sort"
	"time"

	"github.com/vivutrip/vivu/pkg/geo"
	"github.com/vivutrip/vivu/pkg/poi"
)

// Quota bounds how many POIs of each function a single day may receive.
// Each max tolerates one overflow slot during the later fill stages.
type Quota struct {
	CoreMin     int
	CoreMax     int
	ActivityMax int
	ResortMax   int
	FBMax       int
}

// QuotaFor returns the per-day quota for a trip length.
func QuotaFor(durationDays int) Quota {
	switch {
	case durationDays <= 1:
		return Quota{CoreMin: 2, CoreMax: 3, ActivityMax: 1, ResortMax: 1, FBMax: 1}
	case durationDays <= 3:
		return Quota{CoreMin: 2, CoreMax: 3, ActivityMax: 2, ResortMax: 1, FBMax: 1}
	default:
		return Quota{CoreMin: 2, CoreMax: 2, ActivityMax: 1, ResortMax: 1, FBMax: 1}
	}
}

// dayBucket accumulates one day's allocation.
type dayBucket struct {
	items  []*Candidate
	counts map[poi.Function]int
	index  int
}

func (d *dayBucket) add(c *Candidate) {
	d.items = append(d.items, c)
	d.counts[functionOf(c.POI)]++
}

func (d *dayBucket) count(f poi.Function) int { return d.counts[f] }
func (d *dayBucket) total() int               { return len(d.items) }

// functionOf folds F&B and DINING into one pool for counting purposes.
func functionOf(p *poi.POI) poi.Function {
	if p.Function == poi.FunctionDining {
		return poi.FunctionFoodBeverage
	}
	return p.Function
}

// centroid of a day's already-assigned POIs; falls back to the trip start.
func (d *dayBucket) centroid(fallback *geo.Point) (geo.Point, bool) {
	var pts []geo.Point
	for _, c := range d.items {
		if pt, ok := c.POI.Point(); ok {
			pts = append(pts, pt)
		}
	}
	if center, ok := geo.Centroid(pts); ok {
		return center, true
	}
	if fallback != nil {
		return *fallback, true
	}
	return geo.Point{}, false
}

// dayHeap is a min-heap of day buckets under a caller-chosen key, with the
// day index as deterministic tie-breaker.
type dayHeap struct {
	days []*dayBucket
	key  func(*dayBucket) int
}

func (h *dayHeap) Len() int { return len(h.days) }
func (h *dayHeap) Less(i, j int) bool {
	ki, kj := h.key(h.days[i]), h.key(h.days[j])
	if ki != kj {
		return ki < kj
	}
	return h.days[i].index < h.days[j].index
}
func (h *dayHeap) Swap(i, j int)      { h.days[i], h.days[j] = h.days[j], h.days[i] }
func (h *dayHeap) Push(x any)         { h.days = append(h.days, x.(*dayBucket)) }
func (h *dayHeap) Pop() any {
	old := h.days
	n := len(old)
	d := old[n-1]
	h.days = old[:n-1]
	return d
}

func newDayHeap(days []*dayBucket, key func(*dayBucket) int) *dayHeap {
	h := &dayHeap{days: append([]*dayBucket(nil), days...), key: key}
	heap.Init(h)
	return h
}

// AllocateByQuota partitions candidates across durationDays using the
// function-typed quota table: core attractions are clustered geographically
// and spread first, then resorts, activities, food stops and the remainder.
// dayStart(d) returns the local start instant of day d (0-based).
func AllocateByQuota(cands []*Candidate, durationDays int, moods []string, start *geo.Point, dayStart func(int) time.Time, logger *slog.Logger) [][]*Candidate {
	if logger == nil {
		logger = slog.Default()
	}
	quota := QuotaFor(durationDays)

	days := make([]*dayBucket, durationDays)
	for d := range days {
		days[d] = &dayBucket{index: d, counts: make(map[poi.Function]int)}
	}

	byFunction := make(map[poi.Function][]*Candidate)
	for _, c := range cands {
		byFunction[functionOf(c.POI)] = append(byFunction[functionOf(c.POI)], c)
	}

	assigned := make(map[string]bool)
	leftoverCore := assignCore(days, byFunction[poi.FunctionCoreAttraction], quota, moods, dayStart, assigned)
	spreadRemainingCore(days, leftoverCore, quota, assigned)
	assignResorts(days, byFunction[poi.FunctionResort], quota, assigned)
	assignActivities(days, byFunction[poi.FunctionActivity], quota, start, dayStart, assigned)
	assignFood(days, byFunction[poi.FunctionFoodBeverage], start, dayStart, assigned)
	fillRemainder(days, cands, quota, len(cands), durationDays, assigned)

	out := make([][]*Candidate, durationDays)
	for d, bucket := range days {
		out[d] = bucket.items
		logger.Debug("day allocation", "day", d+1, "pois", len(bucket.items))
	}
	return out
}

// assignCore clusters core attractions geographically, earmarks one cluster
// per day, and fills each day ordered by that day's round-robin mood.
// Returns the cores that did not make it into any day.
func assignCore(days []*dayBucket, cores []*Candidate, quota Quota, moods []string, dayStart func(int) time.Time, assigned map[string]bool) []*Candidate {
	var clustered []*Candidate
	var points []geo.Point
	for _, c := range cores {
		if pt, ok := c.POI.Point(); ok {
			clustered = append(clustered, c)
			points = append(points, pt)
		}
	}

	k := len(days)
	if len(clustered) < k {
		k = len(clustered)
	}
	labels := geo.KMeans(points, k)

	clusters := make(map[int][]*Candidate)
	for i, c := range clustered {
		clusters[labels[i]] = append(clusters[labels[i]], c)
	}

	for d, bucket := range days {
		if k == 0 {
			break
		}
		members := append([]*Candidate(nil), clusters[d%k]...)
		label := ""
		if len(moods) > 0 {
			label = moods[d%len(moods)]
		}
		sortByMoodScore(members, label)

		date := dayStart(d)
		// Feasible first, up to the max.
		for _, c := range members {
			if bucket.count(poi.FunctionCoreAttraction) >= quota.CoreMax {
				break
			}
			if !assigned[c.POI.ID] && admitsVisitHours(c.POI, date) {
				bucket.add(c)
				assigned[c.POI.ID] = true
			}
		}
		// Relax the time-window filter to reach the minimum.
		for _, c := range members {
			if bucket.count(poi.FunctionCoreAttraction) >= quota.CoreMin {
				break
			}
			if !assigned[c.POI.ID] {
				bucket.add(c)
				assigned[c.POI.ID] = true
			}
		}
	}

	var leftover []*Candidate
	for _, c := range cores {
		if !assigned[c.POI.ID] {
			leftover = append(leftover, c)
		}
	}
	return leftover
}

// spreadRemainingCore pushes unplaced cores onto the days with the fewest
// cores, tolerating one slot past the max.
func spreadRemainingCore(days []*dayBucket, leftover []*Candidate, quota Quota, assigned map[string]bool) {
	sortByECS(leftover)
	h := newDayHeap(days, func(d *dayBucket) int { return d.count(poi.FunctionCoreAttraction) })
	for _, c := range leftover {
		if h.Len() == 0 {
			break
		}
		d := heap.Pop(h).(*dayBucket)
		if d.count(poi.FunctionCoreAttraction) >= quota.CoreMax+1 {
			// The emptiest day is already past tolerance; all are.
			break
		}
		d.add(c)
		assigned[c.POI.ID] = true
		heap.Push(h, d)
	}
}

// assignResorts gives at most one resort to the emptiest days, highest
// score first.
func assignResorts(days []*dayBucket, resorts []*Candidate, quota Quota, assigned map[string]bool) {
	sortByECS(resorts)
	h := newDayHeap(days, func(d *dayBucket) int { return d.total() })
	for _, c := range resorts {
		var skipped []*dayBucket
		placed := false
		for h.Len() > 0 {
			d := heap.Pop(h).(*dayBucket)
			if d.count(poi.FunctionResort) < quota.ResortMax {
				d.add(c)
				assigned[c.POI.ID] = true
				skipped = append(skipped, d)
				placed = true
				break
			}
			skipped = append(skipped, d)
		}
		for _, d := range skipped {
			heap.Push(h, d)
		}
		if !placed {
			break // every day has its resort
		}
	}
}

// assignActivities fills each day with nearby activities, trading half a
// kilometer of distance per 0.1 point of score.
func assignActivities(days []*dayBucket, activities []*Candidate, quota Quota, start *geo.Point, dayStart func(int) time.Time, assigned map[string]bool) {
	const ecsBonusKm = 5.0

	for d, bucket := range days {
		center, hasCenter := bucket.centroid(start)
		pool := unassigned(activities, assigned)
		sortByRankedDistance(pool, center, hasCenter, ecsBonusKm)

		date := dayStart(d)
		for pass := 0; pass < 2; pass++ {
			relaxed := pass == 1
			for _, c := range pool {
				if bucket.count(poi.FunctionActivity) >= quota.ActivityMax {
					break
				}
				if assigned[c.POI.ID] {
					continue
				}
				if !relaxed && !admitsVisitHours(c.POI, date) {
					continue
				}
				bucket.add(c)
				assigned[c.POI.ID] = true
			}
		}
	}
}

// assignFood picks at most one food or dining stop per day, nearest to the
// day's centroid, preferring one open at meal hours.
func assignFood(days []*dayBucket, food []*Candidate, start *geo.Point, dayStart func(int) time.Time, assigned map[string]bool) {
	for d, bucket := range days {
		center, hasCenter := bucket.centroid(start)
		pool := unassigned(food, assigned)
		if len(pool) == 0 {
			return
		}
		sortByRankedDistance(pool, center, hasCenter, 0)

		date := dayStart(d)
		pick := pool[0]
		for _, c := range pool {
			if admitsMealHours(c.POI, date) {
				pick = c
				break
			}
		}
		bucket.add(pick)
		assigned[pick.POI.ID] = true
	}
}

// fillRemainder tops days up toward a size target with whatever is left,
// refusing insertions that would blow a function cap past its tolerance.
func fillRemainder(days []*dayBucket, cands []*Candidate, quota Quota, totalPOIs, durationDays int, assigned map[string]bool) {
	target := totalPOIs / durationDays
	if target > 6 {
		target = 6
	}
	if target < 3 {
		target = 3
	}

	pool := unassigned(cands, assigned)
	sortByECS(pool)

	caps := map[poi.Function]int{
		poi.FunctionCoreAttraction: quota.CoreMax + 1,
		poi.FunctionActivity:       quota.ActivityMax + 1,
		poi.FunctionResort:         quota.ResortMax + 1,
		poi.FunctionFoodBeverage:   quota.FBMax + 1,
	}

	h := newDayHeap(days, func(d *dayBucket) int { return d.total() })
	for h.Len() > 0 && len(pool) > 0 {
		d := heap.Pop(h).(*dayBucket)
		if d.total() >= target {
			// The emptiest remaining day hit the target.
			break
		}
		placed := false
		for i, c := range pool {
			f := functionOf(c.POI)
			if limit, capped := caps[f]; capped && d.count(f) >= limit {
				continue
			}
			d.add(c)
			assigned[c.POI.ID] = true
			pool = append(pool[:i], pool[i+1:]...)
			placed = true
			break
		}
		if placed {
			heap.Push(h, d)
		}
		// A day nothing fits into stays out of the heap.
	}
}

func unassigned(cands []*Candidate, assigned map[string]bool) []*Candidate {
	var out []*Candidate
	for _, c := range cands {
		if !assigned[c.POI.ID] {
			out = append(out, c)
		}
	}
	return out
}

// sortByRankedDistance orders by distance to a center with an optional
// score bonus subtracted (bonusKm kilometers per full score point).
func sortByRankedDistance(cands []*Candidate, center geo.Point, hasCenter bool, bonusKm float64) {
	if !hasCenter {
		sortByECS(cands)
		return
	}
	rank := func(c *Candidate) float64 {
		pt, ok := c.POI.Point()
		if !ok {
			return 1e9
		}
		return geo.HaversineKm(center, pt) - bonusKm*c.ECS
	}
	ranks := make(map[string]float64, len(cands))
	for _, c := range cands {
		ranks[c.POI.ID] = rank(c)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		ri, rj := ranks[cands[i].POI.ID], ranks[cands[j].POI.ID]
		if ri != rj {
			return ri < rj
		}
		if cands[i].ECS != cands[j].ECS {
			return cands[i].ECS > cands[j].ECS
		}
		return cands[i].POI.ID < cands[j].POI.ID
	})
}
