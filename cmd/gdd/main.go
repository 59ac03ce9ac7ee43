// Command gdd runs one growing-degree-day simulation from the terminal.
//
// Usage:
//
//	gdd -place "Chennai, India" -start 2025-01-01 -tbase 10
//	gdd -lat 13.0827 -lon 80.2707 -start 2025-01-01 -targets 100,300,500,1000
//
// The place-name path needs OPENCAGE_API_KEY in the environment or a .env
// file; coordinates skip geocoding entirely.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agroclim/gdd-tracker/internal/adapter/opencage"
	"github.com/agroclim/gdd-tracker/internal/adapter/power"
	"github.com/agroclim/gdd-tracker/internal/config"
	"github.com/agroclim/gdd-tracker/internal/domain"
	"github.com/agroclim/gdd-tracker/internal/observability"
	"github.com/agroclim/gdd-tracker/internal/service"
)

// stageLabels names the conventional milestone thresholds in output.
var stageLabels = map[float64]string{
	100:  "blowing",
	300:  "sprout",
	500:  "bloom",
	1000: "colour change / harvest",
}

func main() {
	place := flag.String("place", "", "place name to geocode (village/town/district)")
	lat := flag.Float64("lat", math.NaN(), "latitude (skips geocoding when set with -lon)")
	lon := flag.Float64("lon", math.NaN(), "longitude (skips geocoding when set with -lat)")
	startStr := flag.String("start", "", "simulation start date, YYYY-MM-DD (required)")
	tbase := flag.Float64("tbase", 10.0, "base temperature in °C")
	targetsStr := flag.String("targets", "", "comma-separated GDD targets (default from config)")
	horizon := flag.Int("horizon", 0, "maximum days to search (default from config)")
	block := flag.Int("block", 0, "days per remote fetch block (default from config)")
	full := flag.Bool("full", false, "print the full daily history instead of the last 10 days")
	flag.Parse()

	if *startStr == "" {
		fmt.Fprintln(os.Stderr, "error: -start is required")
		flag.Usage()
		os.Exit(2)
	}

	if code := run(*place, *lat, *lon, *startStr, *tbase, *targetsStr, *horizon, *block, *full); code != 0 {
		os.Exit(code)
	}
}

func run(place string, lat, lon float64, startStr string, tbase float64, targetsStr string, horizon, block int, full bool) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	start, err := time.Parse(time.DateOnly, startStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: -start must be a YYYY-MM-DD date, got %q\n", startStr)
		return 2
	}

	var targets []float64
	if targetsStr != "" {
		targets, err = config.ParseTargets(targetsStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid -targets: %v\n", err)
			return 2
		}
	}

	logger := observability.NewLogger("warn", "text")
	metrics := observability.NewMetrics()

	fetcher := power.NewClient(cfg, metrics, logger)

	var geocoder domain.Geocoder
	if cfg.GeocodeEnabled {
		geocoder = opencage.NewClient(cfg.OpenCageKey, cfg.OpenCageBaseURL, cfg.GeocodeTimeout, metrics, logger)
	}

	svc := service.New(cfg, fetcher, geocoder, nil, logger, metrics)

	req := service.Request{
		Place:       place,
		Start:       start,
		BaseTemp:    tbase,
		Targets:     targets,
		HorizonDays: horizon,
		BlockDays:   block,
	}
	if !math.IsNaN(lat) && !math.IsNaN(lon) {
		req.Lat, req.Lon = &lat, &lon
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := svc.Run(ctx, req, consoleSink{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	printOutcome(out, full)

	if !out.Result.Completed {
		fmt.Fprintf(os.Stderr, "\nstopped early: %v\nresults above are partial.\n", out.RunErr)
		return 1
	}
	return 0
}

func printOutcome(out service.Outcome, full bool) {
	if out.Location != "" {
		fmt.Printf("Location: %s\n", out.Location)
	}
	fmt.Printf("Coordinates: %.4f, %.4f\n\n", out.Lat, out.Lon)

	fmt.Println("Stages:")
	for _, st := range out.Result.Stages {
		label := stageLabels[st.Threshold]
		if label == "" {
			label = fmt.Sprintf("%g GDD", st.Threshold)
		} else {
			label = fmt.Sprintf("%s (%g GDD)", label, st.Threshold)
		}
		if st.Reached {
			fmt.Printf("  %-36s %s\n", label, st.Date.Format(time.DateOnly))
		} else {
			fmt.Printf("  %-36s not reached\n", label)
		}
	}

	records := out.Result.Records
	if len(records) == 0 {
		fmt.Println("\nNo daily data was available for the requested range.")
		return
	}

	shown := records
	heading := "Daily history"
	if !full && len(records) > 10 {
		shown = records[len(records)-10:]
		heading = "Last 10 days"
	}

	fmt.Printf("\n%s:\n", heading)
	fmt.Printf("  %-12s %7s %7s %8s %9s\n", "date", "tmax", "tmin", "gdd_day", "gdd_cum")
	for _, rec := range shown {
		fmt.Printf("  %-12s %7.1f %7.1f %8.2f %9.2f\n",
			rec.Date.Format(time.DateOnly), rec.TMax, rec.TMin, rec.GDDDay, rec.GDDCum)
	}

	fmt.Printf("\nCumulative GDD after %d day(s): %.2f\n", len(records), out.Result.CumulativeGDD())
}

// consoleSink prints block and retry progress to stderr, keeping stdout for
// the result tables.
type consoleSink struct{}

func (consoleSink) BlockStarted(start, end time.Time) {
	fmt.Fprintf(os.Stderr, "fetching NASA POWER data: %s to %s\n",
		start.Format(time.DateOnly), end.Format(time.DateOnly))
}

func (consoleSink) FetchRetried(attempt, maxAttempts int, cause error) {
	fmt.Fprintf(os.Stderr, "transient error (%v), retry %d/%d...\n", cause, attempt, maxAttempts)
}
