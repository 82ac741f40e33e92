// Package geo ranks catalog items by great-circle distance and provides a
// small weighted graph for shortest-path queries between item locations.
package geo

import (
	"cmp"
	"fmt"
	"math"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/topk"
	"github.com/harvesthub/catalog-engine/model"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// ValidatePoint rejects coordinates outside latitude [-90, 90] and longitude [-180, 180].
func ValidatePoint(field string, p model.GeoPoint) error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return errors.NewValidationError(field+".latitude", fmt.Sprintf("%v is outside [-90, 90]", p.Latitude))
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return errors.NewValidationError(field+".longitude", fmt.Sprintf("%v is outside [-180, 180]", p.Longitude))
	}
	return nil
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b model.GeoPoint) (float64, error) {
	if err := ValidatePoint("from", a); err != nil {
		return 0, err
	}
	if err := ValidatePoint("to", b); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

func haversine(a, b model.GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// Neighbor is an item annotated with its distance from the query origin.
type Neighbor struct {
	Item       model.Item
	Ordinal    int
	DistanceKm float64
}

func byDistance(a, b Neighbor) int {
	if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
		return c
	}
	return cmp.Compare(a.Ordinal, b.Ordinal)
}

// Nearest returns the k items closest to origin in ascending distance.
// Items without a valid location are skipped; equal distances keep catalog order.
func Nearest(origin model.GeoPoint, items []model.Item, k int) ([]Neighbor, error) {
	if err := ValidatePoint("origin", origin); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, errors.NewValidationError("k", "must be positive")
	}

	candidates := make([]Neighbor, 0, len(items))
	for i, item := range items {
		if !item.HasLocation() {
			continue
		}
		candidates = append(candidates, Neighbor{
			Item:       item,
			Ordinal:    i,
			DistanceKm: haversine(origin, *item.Location),
		})
	}

	return topk.Select(candidates, k, byDistance)
}
