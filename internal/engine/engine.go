// Package engine implements the fetch-and-accumulate loop that turns remote
// daily temperature blocks into GDD records and stage-crossing dates.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/agroclim/gdd-tracker/internal/domain"
	"github.com/agroclim/gdd-tracker/internal/observability"
)

// BlockFetcher retrieves one inclusive date-range block of daily temperature
// extremes, ordered ascending by date. A sparse or empty block is a valid
// success; errors are terminal for the run.
type BlockFetcher interface {
	FetchRange(ctx context.Context, lat, lon float64, start, end time.Time) ([]domain.Observation, error)
}

// Simulator runs GDD accumulation simulations against a block fetcher.
// It keeps no state between runs; each Run owns its records and stages
// privately, so concurrent Runs on one Simulator are safe.
type Simulator struct {
	fetcher BlockFetcher
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Simulator with the given fetcher and observability.
func New(fetcher BlockFetcher, logger *slog.Logger, metrics *observability.Metrics) *Simulator {
	return &Simulator{
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes one simulation. It fetches successive blocks, feeds each day
// through the GDD calculation, and records first-crossing dates until the
// highest target is reached or the horizon is exhausted.
//
// The returned Result is always meaningful: when a block fetch fails, Run
// returns everything accumulated so far with Completed set to false,
// alongside the fetch error. Context cancellation is checked once per loop
// iteration, between blocks, and is reported the same way.
func (s *Simulator) Run(ctx context.Context, cfg domain.SimulationConfig, sink domain.ProgressSink) (domain.Result, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Result{}.Finished(false), err
	}
	if sink == nil {
		sink = domain.NopSink{}
	}

	stages, err := domain.NewStages(cfg.Targets)
	if err != nil {
		return domain.Result{}.Finished(false), err
	}

	s.metrics.SimulationsStarted.Inc()
	s.metrics.SimulationsInFlight.Inc()
	defer s.metrics.SimulationsInFlight.Dec()

	res := domain.Result{Stages: stages}

	// A horizon that ends on or before the start date is an empty run,
	// not an error.
	if cfg.HorizonDays <= 0 {
		s.metrics.SimulationOutcomes.WithLabelValues("completed").Inc()
		return res.Finished(true), nil
	}

	var (
		cum        float64
		highest    = stages.Max()
		cur        = domain.Day(cfg.Start)
		horizonEnd = cfg.HorizonEnd()
	)

	for cum < highest && !cur.After(horizonEnd) {
		// Cancellation takes effect between blocks, never mid-block.
		if err := ctx.Err(); err != nil {
			s.metrics.SimulationOutcomes.WithLabelValues("partial").Inc()
			return res.Finished(false), err
		}

		blockEnd := cur.AddDate(0, 0, cfg.BlockDays-1)
		if blockEnd.After(horizonEnd) {
			blockEnd = horizonEnd
		}

		sink.BlockStarted(cur, blockEnd)

		fetchStart := time.Now()
		obs, err := s.fetcher.FetchRange(ctx, cfg.Lat, cfg.Lon, cur, blockEnd)
		if err != nil {
			s.logger.Error("block fetch failed, stopping run",
				"start", cur.Format(time.DateOnly),
				"end", blockEnd.Format(time.DateOnly),
				"error", err,
			)
			s.metrics.SimulationOutcomes.WithLabelValues("partial").Inc()
			return res.Finished(false), err
		}

		s.metrics.BlocksFetched.Inc()
		s.metrics.BlockFetchDuration.Observe(time.Since(fetchStart).Seconds())
		s.metrics.BlockDays.Observe(float64(len(obs)))

		for _, o := range obs {
			if cum >= highest {
				break
			}
			date := domain.Day(o.Date)
			day := domain.DailyGDD(o.TMax, o.TMin, cfg.BaseTemp)
			cum += day
			res.Records = append(res.Records, domain.Record{
				Date:   date,
				TMax:   o.TMax,
				TMin:   o.TMin,
				GDDDay: day,
				GDDCum: cum,
			})
			s.metrics.DaysProcessed.Inc()
			if marked := stages.MarkReached(cum, date); marked > 0 {
				s.metrics.StagesReached.Add(float64(marked))
			}
		}

		cur = blockEnd.AddDate(0, 0, 1)
	}

	s.metrics.SimulationOutcomes.WithLabelValues("completed").Inc()
	return res.Finished(true), nil
}
