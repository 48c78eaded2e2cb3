// internal/matching/geo/geo.go
package geo

import (
	"math"

	"gig-dispatch/internal/models"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// MaxRadiusKm caps how far a gig may reach regardless of what the
	// requester asked for.
	MaxRadiusKm = 100.0
)

// Distance returns the great-circle distance between two points in km.
func Distance(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// EffectiveRadius resolves the search radius for one candidate: the gig's
// radius clamped to the platform cap, further narrowed by the candidate's own
// travel limit. A candidate limit of zero or less means no limit of their own.
func EffectiveRadius(gigRadiusKm, candidateRadiusKm float64) float64 {
	r := gigRadiusKm
	if r > MaxRadiusKm {
		r = MaxRadiusKm
	}
	if candidateRadiusKm > 0 && candidateRadiusKm < r {
		r = candidateRadiusKm
	}
	return r
}

// Eligible reports whether the candidate's location puts them inside the
// effective radius for this gig, along with the computed distance. Candidates
// with no usable location are never eligible.
func Eligible(gig *models.GigRequest, avail *models.CandidateAvailability) (float64, bool) {
	loc, ok := avail.Location()
	if !ok {
		return 0, false
	}

	d := Distance(gig.Location, loc)
	return d, d <= EffectiveRadius(gig.RadiusKm, avail.MaxRadiusKm)
}
