package domain

import (
	"errors"
	"fmt"
	"time"
)

// Observation is one day of temperature extremes as returned by the remote
// climate source. Produced only by the POWER client and immutable afterwards.
// TMax >= TMin is assumed from upstream data, not enforced here.
type Observation struct {
	Date time.Time `json:"date"`
	TMax float64   `json:"tmax"`
	TMin float64   `json:"tmin"`
}

// Record is one processed day of a simulation run: the observation plus its
// GDD contribution and the running total after it was applied.
type Record struct {
	Date   time.Time `json:"date"`
	TMax   float64   `json:"tmax"`
	TMin   float64   `json:"tmin"`
	GDDDay float64   `json:"gdd_day"`
	GDDCum float64   `json:"gdd_cum"`
}

// SimulationConfig describes one accumulation run. Supplied once per run and
// never mutated.
type SimulationConfig struct {
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Start       time.Time `json:"start"`
	BaseTemp    float64   `json:"base_temp"`
	Targets     []float64 `json:"targets"`
	HorizonDays int       `json:"horizon_days"`
	BlockDays   int       `json:"block_days"`
}

// Validate reports configuration problems before any network activity.
// HorizonDays may be zero or negative; the engine treats that as an
// immediately exhausted horizon, not an error.
func (c SimulationConfig) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Lon)
	}
	if c.Start.IsZero() {
		return errors.New("start date is required")
	}
	if c.BlockDays < 1 {
		return fmt.Errorf("block_days must be at least 1, got %d", c.BlockDays)
	}
	if _, err := NewStages(c.Targets); err != nil {
		return err
	}
	return nil
}

// HorizonEnd is the last date a run will consider: Start + HorizonDays.
func (c SimulationConfig) HorizonEnd() time.Time {
	return Day(c.Start).AddDate(0, 0, c.HorizonDays)
}

// Result is the outcome of one run. Records and Stages hold whatever was
// accumulated before the run stopped; Completed is false only when a fetch
// failure terminated the run early, in which case the accompanying error
// describes the failure.
type Result struct {
	Records    []Record  `json:"records"`
	Stages     Stages    `json:"stages"`
	Completed  bool      `json:"completed"`
	FinishedAt time.Time `json:"finished_at"`
}

// Finished stamps the result with the completion flag and the current time
// from the package clock.
func (r Result) Finished(completed bool) Result {
	r.Completed = completed
	r.FinishedAt = clock.Now().UTC()
	return r
}

// CumulativeGDD returns the running total after the last processed day,
// or 0 for an empty run.
func (r Result) CumulativeGDD() float64 {
	if len(r.Records) == 0 {
		return 0
	}
	return r.Records[len(r.Records)-1].GDDCum
}

// Day truncates t to midnight UTC. All simulation dates are calendar days.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
