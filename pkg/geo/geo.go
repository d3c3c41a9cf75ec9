// Package geo provides the geospatial math used by the itinerary pipeline:
// great-circle distances and a small deterministic k-means for grouping
// points of interest into per-day clusters.
package geo

import (
	"math"
	"math/rand"
	"sort"
)

// earthRadiusKm is the mean Earth radius used for haversine distances.
const earthRadiusKm = 6371.0

// Point is a geographic coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Centroid returns the arithmetic mean of the given points. Returns false
// when the slice is empty.
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var sumLat, sumLng float64
	for _, p := range points {
		sumLat += p.Lat
		sumLng += p.Lng
	}
	n := float64(len(points))
	return Point{Lat: sumLat / n, Lng: sumLng / n}, true
}

// kmeansSeed fixes the RNG so that identical inputs always produce identical
// cluster assignments. Plan output must be reproducible for the same request.
const kmeansSeed = 42

const (
	maxIterations = 100
	restarts      = 10
)

// KMeans partitions points into at most k clusters using Lloyd's algorithm
// with k-means++ seeding and a fixed RNG seed. The returned slice assigns a
// cluster index to each input point. k is clamped to len(points).
func KMeans(points []Point, k int) []int {
	if len(points) == 0 || k <= 0 {
		return nil
	}
	if k > len(points) {
		k = len(points)
	}

	assign := make([]int, len(points))
	if k == 1 {
		return assign
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	bestInertia := math.Inf(1)
	best := make([]int, len(points))

	for restart := 0; restart < restarts; restart++ {
		centers := seedCenters(points, k, rng)
		for iter := 0; iter < maxIterations; iter++ {
			moved := false
			for i, p := range points {
				c := nearestCenter(p, centers)
				if assign[i] != c {
					assign[i] = c
					moved = true
				}
			}
			recomputeCenters(points, assign, centers)
			if !moved && iter > 0 {
				break
			}
		}

		inertia := 0.0
		for i, p := range points {
			d := HaversineKm(p, centers[assign[i]])
			inertia += d * d
		}
		if inertia < bestInertia {
			bestInertia = inertia
			copy(best, assign)
		}
	}

	return normalizeLabels(best, k)
}

// seedCenters picks initial centers with k-means++: the first uniformly, the
// rest proportional to squared distance from the nearest existing center.
func seedCenters(points []Point, k int, rng *rand.Rand) []Point {
	centers := make([]Point, 0, k)
	centers = append(centers, points[rng.Intn(len(points))])

	dist := make([]float64, len(points))
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centers {
				if dc := HaversineKm(p, c); dc < d {
					d = dc
				}
			}
			dist[i] = d * d
			total += dist[i]
		}
		if total == 0 {
			// All remaining points coincide with a center; duplicate one.
			centers = append(centers, points[0])
			continue
		}
		target := rng.Float64() * total
		acc := 0.0
		chosen := len(points) - 1
		for i, d := range dist {
			acc += d
			if acc >= target {
				chosen = i
				break
			}
		}
		centers = append(centers, points[chosen])
	}
	return centers
}

func nearestCenter(p Point, centers []Point) int {
	bestIdx := 0
	bestDist := math.Inf(1)
	for i, c := range centers {
		if d := HaversineKm(p, c); d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	return bestIdx
}

func recomputeCenters(points []Point, assign []int, centers []Point) {
	counts := make([]int, len(centers))
	sums := make([]Point, len(centers))
	for i, p := range points {
		c := assign[i]
		sums[c].Lat += p.Lat
		sums[c].Lng += p.Lng
		counts[c]++
	}
	for c := range centers {
		if counts[c] == 0 {
			continue // keep empty clusters where they were
		}
		centers[c] = Point{
			Lat: sums[c].Lat / float64(counts[c]),
			Lng: sums[c].Lng / float64(counts[c]),
		}
	}
}

// normalizeLabels renumbers cluster labels by first appearance so that the
// labeling does not depend on which restart won.
func normalizeLabels(assign []int, k int) []int {
	remap := make(map[int]int, k)
	next := 0
	out := make([]int, len(assign))
	for i, a := range assign {
		m, ok := remap[a]
		if !ok {
			m = next
			remap[a] = m
			next++
		}
		out[i] = m
	}
	return out
}

// ClusterSizes returns the member count per cluster label, with labels sorted
// by descending size (ties by ascending label).
func ClusterSizes(assign []int) []struct {
	Label int
	Size  int
} {
	counts := make(map[int]int)
	for _, a := range assign {
		counts[a]++
	}
	out := make([]struct {
		Label int
		Size  int
	}, 0, len(counts))
	for label, size := range counts {
		out = append(out, struct {
			Label int
			Size  int
		}{label, size})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Label < out[j].Label
	})
	return out
}
