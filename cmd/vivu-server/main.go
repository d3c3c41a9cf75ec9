// Package main implements the vivu web server for tour itinerary optimization.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/vivutrip/vivu/pkg/mood"
	"github.com/vivutrip/vivu/pkg/vivu"
)

const serviceName = "vivu-optimizer"

var (
	port       = flag.String("port", "8080", "Port for web server (or set PORT)")
	mapsAPIKey = flag.String("maps-key", "", "Google Maps API key (or set GOOGLE_MAPS_API_KEY)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Show version")
)

type rateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		requests: make(map[string][]time.Time),
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	var valid []time.Time
	for _, t := range rl.requests[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	// Rate limit: 30 optimization requests per minute per IP
	if len(valid) >= 30 {
		rl.requests[ip] = valid
		return false
	}

	rl.requests[ip] = append(valid, now)
	return true
}

func main() {
	flag.Parse()

	if *version {
		fmt.Println("vivu Server v1.2.0")
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *port == "8080" && os.Getenv("PORT") != "" {
		*port = os.Getenv("PORT")
	}
	if *mapsAPIKey == "" {
		*mapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}

	logger.Info("Server configuration",
		"port", *port,
		"verbose", *verbose,
		"has_maps_key", *mapsAPIKey != "")

	optimizer := vivu.NewWithLogger(logger, vivu.WithMapsAPIKey(*mapsAPIKey))

	server := &server{
		optimizer: optimizer,
		limiter:   newRateLimiter(),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", server.handleHealth)
	mux.HandleFunc("GET /health", server.handleHealth)
	mux.HandleFunc("GET /moods", server.handleMoods)
	mux.HandleFunc("POST /optimize", server.handleOptimize(serverEndpointTour))
	mux.HandleFunc("POST /optimize-route", server.handleOptimize(serverEndpointRoute))

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           server.wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", *port)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}

type serverEndpoint int

const (
	serverEndpointTour serverEndpoint = iota
	serverEndpointRoute
)

type server struct {
	optimizer *vivu.Optimizer
	limiter   *rateLimiter
	logger    *slog.Logger
}

func (s *server) wrap(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			if err := recover(); err != nil {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]

				s.logger.Error("PANIC: Request handler crashed",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", requestID,
					"client_ip", clientIP(r),
					"stack", string(buf))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		handler.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	return strings.Split(r.RemoteAddr, ":")[0]
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]string{
		"status":  "ok",
		"service": serviceName,
	})
}

func (s *server) handleMoods(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]any{"moods": mood.Labels()})
}

func (s *server) handleOptimize(endpoint serverEndpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := w.Header().Get("X-Request-ID")
		ip := clientIP(r)

		if !s.limiter.allow(ip) {
			s.logger.Error("Rate limit exceeded",
				"request_id", requestID,
				"client_ip", ip)
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		var req vivu.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.logger.Error("Invalid request body",
				"request_id", requestID,
				"error", err,
				"client_ip", ip)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		s.logger.Info("Optimization request started",
			"request_id", requestID,
			"client_ip", ip,
			"path", r.URL.Path,
			"poi_count", len(req.POIList),
			"duration_days", req.DurationDays,
			"moods", len(req.UserMood))

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		var resp *vivu.Response
		var err error
		if endpoint == serverEndpointRoute {
			resp, err = s.optimizer.OptimizeRoute(ctx, &req)
		} else {
			resp, err = s.optimizer.OptimizeTour(ctx, &req)
		}
		if err != nil {
			// Only request validation fails; bad POI data never does.
			s.logger.Error("Invalid optimization request",
				"request_id", requestID,
				"error", err,
				"duration_ms", time.Since(start).Milliseconds())
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		scheduled := 0
		for _, day := range resp.OptimizedRoute {
			scheduled += len(day.Activities)
		}
		s.logger.Info("Optimization request completed",
			"request_id", requestID,
			"days", len(resp.OptimizedRoute),
			"scheduled_pois", scheduled,
			"duration_ms", time.Since(start).Milliseconds())

		s.writeJSON(w, r, resp)
	}
}

func (s *server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response",
			"request_id", w.Header().Get("X-Request-ID"),
			"error", err,
			"path", r.URL.Path)
	}
}
