package model

import (
	"time"
)

// Interval is a requested or existing booking of one item over [Start, End).
// Two intervals overlap when one starts strictly before the other ends.
type Interval struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id,omitempty"`
	ItemID    string    `json:"item_id,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Value     float64   `json:"value"`
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether the two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}
