package allocate

import (
	"fmt"
	"testing"
	"time"

	"github.com/vivutrip/vivu/pkg/geo"
	"github.com/vivutrip/vivu/pkg/poi"
)

func cand(id string, f poi.Function, lat, lng, ecs float64) *Candidate {
	return &Candidate{
		POI: &poi.POI{
			ID:       id,
			Name:     "POI " + id,
			Function: f,
			Location: &poi.Location{Lat: lat, Lng: lng},
		},
		ECS: ecs,
	}
}

func testDayStart(d int) time.Time {
	return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

// makePool builds count candidates of one function spread over three
// geographic groups, with slightly decreasing scores.
func makePool(prefix string, f poi.Function, count int) []*Candidate {
	groups := []geo.Point{
		{Lat: 10.77, Lng: 106.70},
		{Lat: 10.85, Lng: 106.63},
		{Lat: 10.72, Lng: 106.74},
	}
	out := make([]*Candidate, count)
	for i := range out {
		g := groups[i%len(groups)]
		out[i] = cand(
			fmt.Sprintf("%s%02d", prefix, i),
			f,
			g.Lat+float64(i)*0.001, g.Lng+float64(i)*0.001,
			1.0-float64(i)*0.01,
		)
	}
	return out
}

func TestQuotaFor(t *testing.T) {
	tests := []struct {
		days int
		want Quota
	}{
		{1, Quota{CoreMin: 2, CoreMax: 3, ActivityMax: 1, ResortMax: 1, FBMax: 1}},
		{2, Quota{CoreMin: 2, CoreMax: 3, ActivityMax: 2, ResortMax: 1, FBMax: 1}},
		{3, Quota{CoreMin: 2, CoreMax: 3, ActivityMax: 2, ResortMax: 1, FBMax: 1}},
		{4, Quota{CoreMin: 2, CoreMax: 2, ActivityMax: 1, ResortMax: 1, FBMax: 1}},
		{7, Quota{CoreMin: 2, CoreMax: 2, ActivityMax: 1, ResortMax: 1, FBMax: 1}},
	}
	for _, tt := range tests {
		if got := QuotaFor(tt.days); got != tt.want {
			t.Errorf("QuotaFor(%d) = %+v, want %+v", tt.days, got, tt.want)
		}
	}
}

func TestAllocateByQuotaBalancesFunctions(t *testing.T) {
	var cands []*Candidate
	cands = append(cands, makePool("core", poi.FunctionCoreAttraction, 20)...)
	cands = append(cands, makePool("act", poi.FunctionActivity, 10)...)
	cands = append(cands, makePool("res", poi.FunctionResort, 6)...)
	cands = append(cands, makePool("food", poi.FunctionFoodBeverage, 10)...)

	const days = 3
	start := &geo.Point{Lat: 10.7769, Lng: 106.7009}
	out := AllocateByQuota(cands, days, []string{"Yên tĩnh & Thư giãn"}, start, testDayStart, nil)

	if len(out) != days {
		t.Fatalf("got %d days, want %d", len(out), days)
	}

	quota := QuotaFor(days)
	seen := make(map[string]int)
	for d, day := range out {
		counts := make(map[poi.Function]int)
		for _, c := range day {
			seen[c.POI.ID]++
			counts[functionOf(c.POI)]++
		}

		if counts[poi.FunctionCoreAttraction] < quota.CoreMin {
			t.Errorf("day %d: %d core attractions, want at least %d",
				d+1, counts[poi.FunctionCoreAttraction], quota.CoreMin)
		}
		limits := map[poi.Function]int{
			poi.FunctionCoreAttraction: quota.CoreMax + 1,
			poi.FunctionActivity:       quota.ActivityMax + 1,
			poi.FunctionResort:         quota.ResortMax + 1,
			poi.FunctionFoodBeverage:   quota.FBMax + 1,
		}
		for f, limit := range limits {
			if counts[f] > limit {
				t.Errorf("day %d: %d %s POIs, tolerance is %d", d+1, counts[f], f, limit)
			}
		}
	}

	for id, n := range seen {
		if n > 1 {
			t.Errorf("POI %s assigned to %d days", id, n)
		}
	}
}

func TestAllocateByQuotaDeterministic(t *testing.T) {
	var cands []*Candidate
	cands = append(cands, makePool("core", poi.FunctionCoreAttraction, 9)...)
	cands = append(cands, makePool("act", poi.FunctionActivity, 5)...)

	start := &geo.Point{Lat: 10.7769, Lng: 106.7009}
	first := AllocateByQuota(cands, 3, []string{"Cảnh quan thiên nhiên"}, start, testDayStart, nil)
	for run := 0; run < 3; run++ {
		again := AllocateByQuota(cands, 3, []string{"Cảnh quan thiên nhiên"}, start, testDayStart, nil)
		for d := range first {
			if len(again[d]) != len(first[d]) {
				t.Fatalf("run %d day %d: %d POIs, want %d", run, d+1, len(again[d]), len(first[d]))
			}
			for i := range first[d] {
				if again[d][i].POI.ID != first[d][i].POI.ID {
					t.Fatalf("run %d day %d slot %d: %s, want %s",
						run, d+1, i, again[d][i].POI.ID, first[d][i].POI.ID)
				}
			}
		}
	}
}

func TestAllocateByQuotaSparseInput(t *testing.T) {
	// Fewer POIs than days: every POI lands somewhere, never twice.
	cands := makePool("core", poi.FunctionCoreAttraction, 2)
	out := AllocateByQuota(cands, 5, nil, nil, testDayStart, nil)

	if len(out) != 5 {
		t.Fatalf("got %d days, want 5", len(out))
	}
	total := 0
	seen := make(map[string]bool)
	for _, day := range out {
		for _, c := range day {
			if seen[c.POI.ID] {
				t.Errorf("POI %s assigned twice", c.POI.ID)
			}
			seen[c.POI.ID] = true
			total++
		}
	}
	if total != 2 {
		t.Errorf("placed %d POIs, want 2", total)
	}
}

func TestAllocateByQuotaEmpty(t *testing.T) {
	out := AllocateByQuota(nil, 3, []string{"Yên tĩnh & Thư giãn"}, nil, testDayStart, nil)
	if len(out) != 3 {
		t.Fatalf("got %d days, want 3", len(out))
	}
	for d, day := range out {
		if len(day) != 0 {
			t.Errorf("day %d has %d POIs, want 0", d+1, len(day))
		}
	}
}

func TestAllocateByClusters(t *testing.T) {
	cands := makePool("p", poi.FunctionCoreAttraction, 9)
	out := AllocateByClusters(cands, 3, 3, []string{"Yên tĩnh & Thư giãn"}, nil)

	if len(out) != 3 {
		t.Fatalf("got %d days, want 3", len(out))
	}
	seen := make(map[string]bool)
	for d, day := range out {
		if len(day) != 3 {
			t.Errorf("day %d has %d POIs, want 3", d+1, len(day))
		}
		for _, c := range day {
			if seen[c.POI.ID] {
				t.Errorf("POI %s assigned twice", c.POI.ID)
			}
			seen[c.POI.ID] = true
		}
	}
	if len(seen) != 9 {
		t.Errorf("placed %d distinct POIs, want all 9", len(seen))
	}
}

func TestAllocateByClustersDefaultsPerDay(t *testing.T) {
	cands := makePool("p", poi.FunctionCoreAttraction, 12)
	out := AllocateByClusters(cands, 2, 0, nil, nil)
	for d, day := range out {
		if len(day) != DefaultPOIsPerDay {
			t.Errorf("day %d has %d POIs, want the default %d", d+1, len(day), DefaultPOIsPerDay)
		}
	}
}

func TestAllocateByClustersRunsOutOfPOIs(t *testing.T) {
	cands := makePool("p", poi.FunctionCoreAttraction, 4)
	out := AllocateByClusters(cands, 2, 3, nil, nil)

	total := 0
	for _, day := range out {
		total += len(day)
	}
	if total != 4 {
		t.Errorf("placed %d POIs, want all 4 and no more", total)
	}
}
