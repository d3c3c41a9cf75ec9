// Package vivu orchestrates the itinerary optimization pipeline: filter the
// candidate POIs against mood and opening hours, allocate them across the
// trip's days, then sequence each day into a clocked visit plan.
package vivu

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/vivutrip/vivu/pkg/allocate"
	"github.com/vivutrip/vivu/pkg/geo"
	"github.com/vivutrip/vivu/pkg/googlemaps"
	"github.com/vivutrip/vivu/pkg/poi"
	"github.com/vivutrip/vivu/pkg/schedule"
	"github.com/vivutrip/vivu/pkg/travel"
)

// previewRadiusKm bounds the clustering endpoint to POIs near the start.
const previewRadiusKm = 15.0

// Option configures an Optimizer.
type Option func(*OptionHolder)

// OptionHolder holds configuration options.
type OptionHolder struct {
	httpClient *http.Client
	mapsAPIKey string
}

// WithMapsAPIKey sets the Google Maps API key for distance-matrix lookups.
func WithMapsAPIKey(key string) Option {
	return func(o *OptionHolder) {
		o.mapsAPIKey = key
	}
}

// WithHTTPClient overrides the HTTP client used for external calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *OptionHolder) {
		o.httpClient = client
	}
}

// Optimizer runs the two optimization pipelines. It is stateless across
// requests and safe for concurrent use.
type Optimizer struct {
	logger *slog.Logger
	maps   *googlemaps.Client
}

// NewWithLogger creates an Optimizer with a custom logger.
func NewWithLogger(logger *slog.Logger, opts ...Option) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	optHolder := &OptionHolder{}
	for _, opt := range opts {
		opt(optHolder)
	}
	return &Optimizer{
		logger: logger,
		maps:   googlemaps.NewClient(optHolder.mapsAPIKey, optHolder.httpClient, logger),
	}
}

// OptimizeTour is the function-quota pipeline: balanced per-day mixes of
// core attractions, activities, resorts and food stops.
func (o *Optimizer) OptimizeTour(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := o.startTime(req)
	center := req.CurrentLocation.Point()

	cands := allocate.Filter(req.POIList, allocate.FilterOptions{
		Moods:            req.UserMood,
		Start:            start,
		Threshold:        req.Threshold(),
		RequireRouteFlag: true,
		Center:           &center,
	}, o.logger)
	o.logger.Info("candidates filtered", "input", len(req.POIList), "kept", len(cands),
		"duration_days", req.DurationDays)

	dayStart := func(d int) time.Time { return start.AddDate(0, 0, d) }
	allocation := allocate.AllocateByQuota(cands, req.DurationDays, req.UserMood, &center, dayStart, o.logger)
	return o.buildResponse(ctx, req, allocation, center, dayStart), nil
}

// OptimizeRoute is the clustering pipeline: k-means over everything within
// 15 km of the start, fixed slots per day.
func (o *Optimizer) OptimizeRoute(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := o.startTime(req)
	center := req.CurrentLocation.Point()

	cands := allocate.Filter(req.POIList, allocate.FilterOptions{
		Moods:            req.UserMood,
		Start:            start,
		Threshold:        req.Threshold(),
		RequireRouteFlag: false,
		Center:           &center,
		MaxRadiusKm:      previewRadiusKm,
	}, o.logger)
	o.logger.Info("candidates filtered", "input", len(req.POIList), "kept", len(cands),
		"duration_days", req.DurationDays)

	allocation := allocate.AllocateByClusters(cands, req.DurationDays, req.POIPerDay, req.UserMood, o.logger)
	dayStart := func(d int) time.Time { return start.AddDate(0, 0, d) }
	return o.buildResponse(ctx, req, allocation, center, dayStart), nil
}

func (o *Optimizer) startTime(req *Request) time.Time {
	if req.StartDatetime == "" {
		return time.Now().Truncate(time.Minute)
	}
	start, err := ParseStartTime(req.StartDatetime)
	if err != nil {
		o.logger.Warn("unparseable start_datetime, using current time",
			"start_datetime", req.StartDatetime, "error", err)
		return time.Now().Truncate(time.Minute)
	}
	return start
}

// buildResponse sequences each allocated day and assembles the envelope.
func (o *Optimizer) buildResponse(ctx context.Context, req *Request, allocation [][]*allocate.Candidate, center geo.Point, dayStart func(int) time.Time) *Response {
	matrix := &travel.Matrix{Pairs: req.ETAMatrix, FromCurrent: req.ETAFromCurrent}
	estimator := travel.NewEstimator(matrix, o.maps, req.TravelMode, o.logger)
	origin := travel.Endpoint{ID: travel.CurrentLocationID, Point: &center}

	resp := &Response{OptimizedRoute: []DayPlan{}}
	for d, dayCands := range allocation {
		pois := make([]*poi.POI, len(dayCands))
		for i, c := range dayCands {
			pois[i] = c.POI
		}
		visits := schedule.BuildDay(ctx, estimator, origin, dayStart(d), pois, o.logger)
		if len(visits) == 0 {
			continue
		}
		plan := DayPlan{
			Day:          d + 1,
			DayStartTime: dayStart(d).Format(timeLayout),
			Activities:   make([]Activity, len(visits)),
		}
		for i, v := range visits {
			plan.Activities[i] = Activity{Visit: v}
		}
		resp.OptimizedRoute = append(resp.OptimizedRoute, plan)
	}
	return resp
}
