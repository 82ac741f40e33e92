package budget

import (
	"cmp"
	"math"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/sorting"
)

// Divisible is a resource that can be taken in part, e.g. a number of rental days.
type Divisible struct {
	Value float64
	Cost  float64
}

// Portion is how much of one Divisible was taken.
type Portion struct {
	Index    int     `json:"index"`
	Fraction float64 `json:"fraction"`
}

// FractionalSelection is the greedy optimum for divisible resources.
type FractionalSelection struct {
	Portions   []Portion `json:"portions"`
	TotalValue float64   `json:"total_value"`
	TotalCost  float64   `json:"total_cost"`
}

// Fractional solves the divisible knapsack greedily by value density.
// Zero-cost entries with positive value are always taken whole; entries with
// non-positive value are never taken.
func Fractional(entries []Divisible, capacity float64) (FractionalSelection, error) {
	if math.IsNaN(capacity) || capacity < 0 {
		return FractionalSelection{}, errors.NewValidationError("capacity", "must not be negative")
	}
	for _, e := range entries {
		if math.IsNaN(e.Cost) || e.Cost < 0 {
			return FractionalSelection{}, errors.NewValidationError("cost", "must not be negative")
		}
		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			return FractionalSelection{}, errors.NewValidationError("value", "must be finite")
		}
	}

	order := make([]int, 0, len(entries))
	for i, e := range entries {
		if e.Value > 0 {
			order = append(order, i)
		}
	}
	density := func(i int) float64 {
		if entries[i].Cost == 0 {
			return math.Inf(1)
		}
		return entries[i].Value / entries[i].Cost
	}
	order, err := sorting.MergeSort(order, sorting.Reverse[int](func(a, b int) int {
		return cmp.Compare(density(a), density(b))
	}))
	if err != nil {
		return FractionalSelection{}, err
	}

	sel := FractionalSelection{Portions: []Portion{}}
	remaining := capacity
	for _, i := range order {
		e := entries[i]
		if e.Cost <= remaining {
			sel.Portions = append(sel.Portions, Portion{Index: i, Fraction: 1})
			sel.TotalValue += e.Value
			sel.TotalCost += e.Cost
			remaining -= e.Cost
			continue
		}
		if remaining > 0 {
			f := remaining / e.Cost
			sel.Portions = append(sel.Portions, Portion{Index: i, Fraction: f})
			sel.TotalValue += e.Value * f
			sel.TotalCost += remaining
		}
		break
	}
	return sel, nil
}
