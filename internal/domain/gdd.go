package domain

// DailyGDD converts one day's temperature extremes into a growing-degree
// contribution above the base temperature tbase:
//
//	max((tmax+tmin)/2 - tbase, 0)
//
// Pure and total: negative differences clamp to zero, positive ones are
// returned uncapped.
func DailyGDD(tmax, tmin, tbase float64) float64 {
	g := (tmax+tmin)/2 - tbase
	if g < 0 {
		return 0
	}
	return g
}
