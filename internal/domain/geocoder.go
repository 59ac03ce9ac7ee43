package domain

import "context"

// Place is a geocoded location.
type Place struct {
	Lat   float64
	Lon   float64
	Label string // provider's formatted display name
}

// Geocoder resolves a free-text place name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (Place, error)
}
