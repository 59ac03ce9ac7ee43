// Package service wires geocoding, the simulation engine, and optional
// stage-event publishing into one request-driven surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agroclim/gdd-tracker/internal/adapter/power"
	"github.com/agroclim/gdd-tracker/internal/config"
	"github.com/agroclim/gdd-tracker/internal/domain"
	"github.com/agroclim/gdd-tracker/internal/engine"
	"github.com/agroclim/gdd-tracker/internal/observability"
)

// ErrGeocodingDisabled is returned for place-name requests when no
// OpenCage credential is configured.
var ErrGeocodingDisabled = errors.New("geocoding is not configured; supply coordinates or set OPENCAGE_API_KEY")

// StagePublisher forwards reached stages to a downstream sink.
type StagePublisher interface {
	PublishStages(ctx context.Context, runID string, cfg domain.SimulationConfig, res domain.Result) error
}

// Request describes one simulation request. Either Place or both Lat and
// Lon must be set; zero-valued Targets, HorizonDays, and BlockDays fall
// back to configured defaults.
type Request struct {
	Place       string
	Lat         *float64
	Lon         *float64
	Start       time.Time
	BaseTemp    float64
	Targets     []float64
	HorizonDays int
	BlockDays   int
}

// Outcome bundles a finished run with its identity and resolved location.
type Outcome struct {
	RunID    string
	Lat      float64
	Lon      float64
	Location string // display label; empty for manual coordinates
	Result   domain.Result
	RunErr   error // non-nil when the run stopped on a fetch failure
}

// Service runs simulations end to end.
type Service struct {
	cfg       *config.Config
	fetcher   *power.Client
	geocoder  domain.Geocoder // nil when geocoding is disabled
	publisher StagePublisher  // nil when publishing is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Service. geocoder and publisher may be nil.
func New(cfg *config.Config, fetcher *power.Client, geocoder domain.Geocoder, publisher StagePublisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		cfg:       cfg,
		fetcher:   fetcher,
		geocoder:  geocoder,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness reports whether the service can accept simulation requests.
// A request-driven service is ready as soon as its collaborators exist.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.fetcher == nil {
		return errors.New("power client not configured")
	}
	return nil
}

// Run resolves the location, executes one simulation, and publishes any
// reached stages. Configuration problems surface before any climate fetch;
// a mid-run fetch failure still returns the partial Outcome.
func (s *Service) Run(ctx context.Context, req Request, sink domain.ProgressSink) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString()}

	lat, lon, label, err := s.resolveLocation(ctx, req)
	if err != nil {
		return out, err
	}
	out.Lat, out.Lon, out.Location = lat, lon, label

	simCfg := domain.SimulationConfig{
		Lat:         lat,
		Lon:         lon,
		Start:       req.Start,
		BaseTemp:    req.BaseTemp,
		Targets:     req.Targets,
		HorizonDays: req.HorizonDays,
		BlockDays:   req.BlockDays,
	}
	if len(simCfg.Targets) == 0 {
		simCfg.Targets = s.cfg.DefaultTargets
	}
	if simCfg.HorizonDays == 0 {
		simCfg.HorizonDays = s.cfg.HorizonDays
	}
	if simCfg.BlockDays == 0 {
		simCfg.BlockDays = s.cfg.BlockDays
	}

	logger := s.logger.With("run_id", out.RunID)
	sim := engine.New(s.fetcher.WithSink(sink), logger, s.metrics)

	result, runErr := sim.Run(ctx, simCfg, sink)
	out.Result = result
	out.RunErr = runErr

	if runErr != nil && !result.Completed {
		logger.Warn("simulation stopped early with partial results",
			"records", len(result.Records),
			"error", runErr,
		)
	} else {
		logger.Info("simulation finished",
			"records", len(result.Records),
			"cumulative_gdd", result.CumulativeGDD(),
		)
	}

	// Publishing is best effort: a broker problem must not turn a good
	// run into a failed one.
	if s.publisher != nil {
		if err := s.publisher.PublishStages(ctx, out.RunID, simCfg, result); err != nil {
			logger.Warn("stage event publish failed", "error", err)
		}
	}

	// Validation errors from the engine happen before any fetch and are
	// the caller's to fix; fetch failures travel inside the Outcome.
	var remoteErr *domain.RemoteError
	if runErr != nil && !errors.As(runErr, &remoteErr) && !errors.Is(runErr, context.Canceled) {
		return out, runErr
	}
	return out, nil
}

func (s *Service) resolveLocation(ctx context.Context, req Request) (lat, lon float64, label string, err error) {
	if req.Lat != nil && req.Lon != nil {
		return *req.Lat, *req.Lon, "", nil
	}
	if req.Place == "" {
		return 0, 0, "", errors.New("either a place name or a coordinate pair is required")
	}
	if s.geocoder == nil {
		return 0, 0, "", ErrGeocodingDisabled
	}

	place, err := s.geocoder.Geocode(ctx, req.Place)
	if err != nil {
		return 0, 0, "", fmt.Errorf("geocode %q: %w", req.Place, err)
	}
	return place.Lat, place.Lon, place.Label, nil
}
