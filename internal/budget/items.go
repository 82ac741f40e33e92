package budget

import (
	"fmt"
	"math"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/model"
)

// ValueFunc scores an item for selection.
type ValueFunc func(model.Item) float64

// CostFunc converts an item's price into whole cost units.
type CostFunc func(model.Item) (int, error)

// RatingValue scores an item by its rating (defaultRating when missing),
// multiplied by unavailableFactor when the item is flagged unavailable.
func RatingValue(defaultRating, unavailableFactor float64) ValueFunc {
	return func(item model.Item) float64 {
		v := item.RatingOr(defaultRating)
		if !item.IsAvailable() {
			v *= unavailableFactor
		}
		return v
	}
}

// CeilCost charges ceil(price / resolution) units. A resolution <= 0 means 1.
func CeilCost(resolution float64) CostFunc {
	if resolution <= 0 {
		resolution = 1
	}
	return func(item model.Item) (int, error) {
		if math.IsNaN(item.PricePerDay) || item.PricePerDay < 0 {
			return 0, errors.NewValidationError("price_per_day", fmt.Sprintf("item '%s' has invalid price %v", item.ID, item.PricePerDay))
		}
		units := math.Ceil(item.PricePerDay / resolution)
		if units > math.MaxInt32 {
			return 0, errors.NewValidationError("price_per_day", fmt.Sprintf("item '%s' price is too large for the cost resolution", item.ID))
		}
		return int(units), nil
	}
}

// BudgetUnits converts a currency budget into whole cost units, rounding down
// so that a selection never exceeds the original amount.
func BudgetUnits(budget, resolution float64) (int, error) {
	if math.IsNaN(budget) || budget < 0 {
		return 0, errors.NewValidationError("budget", "must not be negative")
	}
	if resolution <= 0 {
		resolution = 1
	}
	units := math.Floor(budget / resolution)
	if units > math.MaxInt32 {
		return 0, errors.NewValidationError("budget", "too large for the cost resolution")
	}
	return int(units), nil
}

// Prepare maps items to solver candidates.
func Prepare(items []model.Item, value ValueFunc, cost CostFunc) ([]Candidate, error) {
	if value == nil || cost == nil {
		return nil, errors.NewValidationError("value", "value and cost functions are required")
	}
	out := make([]Candidate, len(items))
	for i, item := range items {
		c, err := cost(item)
		if err != nil {
			return nil, err
		}
		out[i] = Candidate{Value: value(item), Cost: c}
	}
	return out, nil
}

// ItemSelection is a Selection resolved back to catalog items.
type ItemSelection struct {
	Items      []model.Item `json:"items"`
	Values     []float64    `json:"values"`
	TotalValue float64      `json:"total_value"`
	TotalCost  int          `json:"total_cost"`
	Method     Method       `json:"method"`
}

// OptimizeItems runs Optimize over items and resolves the chosen indices.
func OptimizeItems(items []model.Item, value ValueFunc, cost CostFunc, budget, threshold int) (ItemSelection, error) {
	candidates, err := Prepare(items, value, cost)
	if err != nil {
		return ItemSelection{}, err
	}
	sel, err := Optimize(candidates, budget, threshold)
	if err != nil {
		return ItemSelection{}, err
	}

	out := ItemSelection{
		Items:      make([]model.Item, len(sel.Indices)),
		Values:     make([]float64, len(sel.Indices)),
		TotalValue: sel.TotalValue,
		TotalCost:  sel.TotalCost,
		Method:     sel.Method,
	}
	for i, idx := range sel.Indices {
		out.Items[i] = items[idx]
		out.Values[i] = candidates[idx].Value
	}
	return out, nil
}
