// Package domain models growing degree day (GDD) accumulation for crop
// stage estimation.
//
// # Data Source
//
// Daily temperature extremes come from the NASA POWER temporal daily point
// API (https://power.larc.nasa.gov/api/temporal/daily/point), agroclimatology
// community, parameters T2M_MAX and T2M_MIN. The response keys each parameter
// by an 8-digit YYYYMMDD date string. POWER publishes observed/reanalysis
// data only, so simulations run over past-to-present ranges; dates near the
// present may be absent from a response (sparse blocks are valid).
//
// # GDD Accumulation
//
// A day's heat-unit contribution is
//
//	max((tmax+tmin)/2 - tbase, 0)
//
// where tbase is the crop's base temperature: below it, no development
// accrues. Negative contributions clamp to zero; there is no "heat debt"
// carried across days, and a single day's contribution is not capped.
//
// # Stage Thresholds
//
// A stage threshold is a cumulative-GDD value whose first-crossing date
// signals a developmental milestone. The conventional defaults are
// 100 (blowing), 300 (sprout), 500 (bloom), and 1000 (colour change /
// harvest). A threshold's date is recorded the first time the running total
// reaches or exceeds it and is never overwritten within a run.
package domain
