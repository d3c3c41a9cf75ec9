// Package main implements the vivu CLI for running the itinerary optimizer
// against a request file without standing up the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/vivutrip/vivu/pkg/googlemaps"
	"github.com/vivutrip/vivu/pkg/poi"
	"github.com/vivutrip/vivu/pkg/vivu"
)

var (
	mapsAPIKey  = flag.String("maps-key", "", "Google Maps API key for travel times (or set GOOGLE_MAPS_API_KEY)")
	geocodeKey  = flag.String("geocode-key", "", "Geocoding API key (or set GOOGLE_GEOCODING_API_KEY)")
	fromAddress = flag.String("from", "", "Geocode this address as the starting location")
	useRoute    = flag.Bool("route", false, "Use the clustering allocator (the /optimize-route endpoint)")
	jsonOutput  = flag.Bool("json", false, "Print the raw JSON response")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("vivu CLI v1.2.0")
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <request.json>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *mapsAPIKey == "" {
		*mapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}
	if *geocodeKey == "" {
		*geocodeKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		logger.Error("Failed to read request file", "path", args[0], "error", err)
		os.Exit(1)
	}

	var req vivu.Request
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Error("Invalid request file", "path", args[0], "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if *fromAddress != "" {
		geocoder := googlemaps.NewClient(*geocodeKey, nil, logger)
		loc, err := geocoder.GeocodeLocation(ctx, *fromAddress)
		if err != nil {
			logger.Error("Geocoding failed", "address", *fromAddress, "error", err)
			os.Exit(1)
		}
		req.CurrentLocation = &poi.Location{Lat: loc.Latitude, Lng: loc.Longitude}
	}

	optimizer := vivu.NewWithLogger(logger, vivu.WithMapsAPIKey(*mapsAPIKey))

	var resp *vivu.Response
	if *useRoute {
		resp, err = optimizer.OptimizeRoute(ctx, &req)
	} else {
		resp, err = optimizer.OptimizeTour(ctx, &req)
	}
	if err != nil {
		logger.Error("Optimization failed", "error", err)
		os.Exit(1)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			logger.Error("Failed to encode response", "error", err)
			os.Exit(1)
		}
		return
	}

	printPlan(resp)
}

func printPlan(resp *vivu.Response) {
	if len(resp.OptimizedRoute) == 0 {
		color.Yellow("No visitable POIs for this request.")
		return
	}

	dayHeader := color.New(color.FgCyan, color.Bold)
	timeStyle := color.New(color.FgGreen)
	nameStyle := color.New(color.Bold)

	for _, day := range resp.OptimizedRoute {
		dayHeader.Printf("Day %d", day.Day)
		fmt.Printf("  (starts %s)\n", day.DayStartTime)

		for i, act := range day.Activities {
			v := act.Visit
			fmt.Printf("  %d. %s — %s  ",
				i+1,
				timeStyle.Sprint(v.Arrival.Format("15:04")),
				timeStyle.Sprint(v.Departure.Format("15:04")))
			nameStyle.Print(v.POI.Name)
			fmt.Printf("  (%d min", v.VisitMinutes)
			if v.POI.Function != "" {
				fmt.Printf(", %s", v.POI.Function)
			}
			fmt.Println(")")
		}
		fmt.Println()
	}
}
