package model

import (
	"math"
)

// GeoPoint is a WGS-84 coordinate pair in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" msgpack:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" msgpack:"longitude" validate:"gte=-180,lte=180"`
}

// Valid reports whether the point lies within latitude [-90, 90] and longitude [-180, 180].
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Item is a single rentable piece of equipment in the catalog.
// Optional attributes are pointers; a nil pointer means the source had no value.
// Items are treated as immutable once they are part of a Snapshot.
type Item struct {
	ID          string    `json:"id" msgpack:"id" validate:"required"`
	Name        string    `json:"name" msgpack:"name"`
	Description string    `json:"description,omitempty" msgpack:"description,omitempty"`
	PricePerDay float64   `json:"price_per_day" msgpack:"price_per_day" validate:"gte=0"`
	Rating      *float64  `json:"rating,omitempty" msgpack:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	RentalCount *int      `json:"rental_count,omitempty" msgpack:"rental_count,omitempty" validate:"omitempty,gte=0"`
	Location    *GeoPoint `json:"location,omitempty" msgpack:"location,omitempty" validate:"omitempty"`
	Available   *bool     `json:"available,omitempty" msgpack:"available,omitempty"`
}

// RatingOr returns the rating, or def when the item has none.
func (i Item) RatingOr(def float64) float64 {
	if i.Rating == nil {
		return def
	}
	return *i.Rating
}

// RentalCountOr returns the rental count, or def when the item has none.
func (i Item) RentalCountOr(def int) int {
	if i.RentalCount == nil {
		return def
	}
	return *i.RentalCount
}

// IsAvailable treats a missing availability flag as available.
func (i Item) IsAvailable() bool {
	return i.Available == nil || *i.Available
}

// HasLocation reports whether the item carries a usable coordinate.
func (i Item) HasLocation() bool {
	return i.Location != nil && i.Location.Valid()
}

// Float64Ptr, IntPtr and BoolPtr are small helpers for building optional fields.
func Float64Ptr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }

func BoolPtr(v bool) *bool { return &v }
