// Package schedule picks non-overlapping bookings for a single item and flags
// overlapping requests. Intervals are half-open: a booking ending at 10:00 and
// another starting at 10:00 do not overlap.
//
// Conflict detection is advisory only. Nothing here reserves anything.
package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/sorting"
	"github.com/harvesthub/catalog-engine/model"
)

func byEnd(a, b model.Interval) int {
	if c := a.End.Compare(b.End); c != 0 {
		return c
	}
	return a.Start.Compare(b.Start)
}

func byStart(a, b model.Interval) int {
	return a.Start.Compare(b.Start)
}

// Validate rejects intervals that end before they start or carry a non-finite value.
func Validate(intervals []model.Interval) error {
	for i, iv := range intervals {
		if iv.End.Before(iv.Start) {
			return errors.NewValidationError("intervals", fmt.Sprintf("interval %d (%s) ends before it starts", i, iv.ID))
		}
		if math.IsNaN(iv.Value) || math.IsInf(iv.Value, 0) {
			return errors.NewValidationError("intervals", fmt.Sprintf("interval %d (%s) has a non-finite value", i, iv.ID))
		}
	}
	return nil
}

// SelectGreedy returns the largest set of mutually non-overlapping intervals,
// ordered by end time. It maximizes the count, not the value.
func SelectGreedy(intervals []model.Interval) ([]model.Interval, error) {
	if err := Validate(intervals); err != nil {
		return nil, err
	}
	sorted, err := sorting.MergeSort(intervals, byEnd)
	if err != nil {
		return nil, err
	}

	selected := make([]model.Interval, 0, len(sorted))
	for i, iv := range sorted {
		if i == 0 || !iv.Start.Before(selected[len(selected)-1].End) {
			selected = append(selected, iv)
		}
	}
	return selected, nil
}

// WeightedSelection is the value-maximizing set of non-overlapping intervals.
type WeightedSelection struct {
	Intervals  []model.Interval `json:"intervals"`
	TotalValue float64          `json:"total_value"`
}

// SelectWeighted maximizes the total value of a non-overlapping subset.
// best[i] = max(best[i-1], value_i + best[lastCompatible(i)]) over intervals
// sorted by end time.
func SelectWeighted(intervals []model.Interval) (WeightedSelection, error) {
	if err := Validate(intervals); err != nil {
		return WeightedSelection{}, err
	}
	sorted, err := sorting.MergeSort(intervals, byEnd)
	if err != nil {
		return WeightedSelection{}, err
	}

	n := len(sorted)
	if n == 0 {
		return WeightedSelection{Intervals: []model.Interval{}}, nil
	}

	// best[i+1] covers sorted[0..i]; best[0] is the empty prefix
	best := make([]float64, n+1)
	compat := make([]int, n)
	for i, iv := range sorted {
		compat[i] = lastCompatible(sorted, i)
		with := iv.Value + best[compat[i]+1]
		best[i+1] = best[i]
		if with > best[i+1] {
			best[i+1] = with
		}
	}

	chosen := make([]model.Interval, 0)
	for i := n - 1; i >= 0; {
		if best[i+1] != best[i] {
			chosen = append(chosen, sorted[i])
			i = compat[i]
			continue
		}
		i--
	}
	for l, r := 0, len(chosen)-1; l < r; l, r = l+1, r-1 {
		chosen[l], chosen[r] = chosen[r], chosen[l]
	}
	return WeightedSelection{Intervals: chosen, TotalValue: best[n]}, nil
}

// lastCompatible returns the largest j < i with sorted[j].End <= sorted[i].Start, or -1.
func lastCompatible(sorted []model.Interval, i int) int {
	start := sorted[i].Start
	lo, hi, result := 0, i-1, -1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if !sorted[mid].End.After(start) {
			result = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return result
}

// DetectConflicts groups overlapping intervals. Intervals are swept by start
// time; an interval joins the open group when it starts before the latest end
// seen in that group. Only groups with at least two members are returned.
func DetectConflicts(intervals []model.Interval) ([][]model.Interval, error) {
	if err := Validate(intervals); err != nil {
		return nil, err
	}
	sorted, err := sorting.MergeSort(intervals, byStart)
	if err != nil {
		return nil, err
	}

	groups := make([][]model.Interval, 0)
	var current []model.Interval
	var maxEnd time.Time
	for _, iv := range sorted {
		if len(current) > 0 && iv.Start.Before(maxEnd) {
			current = append(current, iv)
			if iv.End.After(maxEnd) {
				maxEnd = iv.End
			}
			continue
		}
		if len(current) > 1 {
			groups = append(groups, current)
		}
		current = []model.Interval{iv}
		maxEnd = iv.End
	}
	if len(current) > 1 {
		groups = append(groups, current)
	}
	return groups, nil
}
