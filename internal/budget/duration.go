package budget

import (
	"cmp"
	"math"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/sorting"
)

// MaxPlanDays caps how many rental days a duration plan considers.
const MaxPlanDays = 3650

// Discount is a percentage off the total price once a rental reaches MinDays.
type Discount struct {
	MinDays int     `json:"min_days" validate:"gte=1"`
	Percent float64 `json:"percent" validate:"gte=0,lte=100"`
}

// DurationPlan is one candidate rental length and what it costs.
type DurationPlan struct {
	Days            int     `json:"days"`
	TotalPrice      float64 `json:"total_price"`
	Value           float64 `json:"value"`
	DiscountPercent float64 `json:"discount_percent"`
}

// OptimalRentalDuration finds the rental length with the best value per unit
// of money that fits budget. The value of a plan is days * (1 + discount/100).
// The second result is false when not even one day is affordable.
func OptimalRentalDuration(pricePerDay, budget float64, discounts []Discount) (DurationPlan, bool, error) {
	if math.IsNaN(pricePerDay) || pricePerDay <= 0 {
		return DurationPlan{}, false, errors.NewValidationError("price_per_day", "must be positive")
	}
	if math.IsNaN(budget) || budget < 0 {
		return DurationPlan{}, false, errors.NewValidationError("budget", "must not be negative")
	}
	for _, d := range discounts {
		if d.MinDays < 1 || d.Percent < 0 || d.Percent > 100 {
			return DurationPlan{}, false, errors.NewValidationError("discounts", "min_days must be >= 1 and percent within [0, 100]")
		}
	}

	// highest tier first so the first match wins
	tiers, err := sorting.MergeSort(discounts, sorting.Reverse[Discount](func(a, b Discount) int {
		return cmp.Compare(a.MinDays, b.MinDays)
	}))
	if err != nil {
		return DurationPlan{}, false, err
	}

	// a discounted day can cost less than pricePerDay, so bound the search by
	// the cheapest day any tier offers
	deepest := 0.0
	for _, t := range tiers {
		deepest = max(deepest, t.Percent)
	}
	maxDays := MaxPlanDays
	if cheapest := pricePerDay * (1 - deepest/100); cheapest > 0 {
		maxDays = min(int(math.Floor(budget/cheapest)), MaxPlanDays)
	}
	var best DurationPlan
	found := false
	for days := 1; days <= maxDays; days++ {
		discount := 0.0
		for _, t := range tiers {
			if days >= t.MinDays {
				discount = t.Percent
				break
			}
		}

		price := pricePerDay * float64(days) * (1 - discount/100)
		if price > budget {
			continue
		}
		plan := DurationPlan{
			Days:            days,
			TotalPrice:      price,
			Value:           float64(days) * (1 + discount/100),
			DiscountPercent: discount,
		}
		if !found || ratio(plan) > ratio(best) {
			best = plan
			found = true
		}
	}
	return best, found, nil
}

func ratio(p DurationPlan) float64 {
	if p.TotalPrice == 0 {
		return math.Inf(1)
	}
	return p.Value / p.TotalPrice
}

// DurationOption is a package of rental days offered at a fixed price.
type DurationOption struct {
	Days  int     `json:"days" validate:"gte=1"`
	Price float64 `json:"price" validate:"gte=0"`
	Value float64 `json:"value"`
}

// Combination is the chosen subset of duration options.
type Combination struct {
	Options    []DurationOption `json:"options"`
	TotalDays  int              `json:"total_days"`
	TotalPrice float64          `json:"total_price"`
	TotalValue float64          `json:"total_value"`
}

// CombineDurations picks the subset of options, each used at most once, with the
// highest total value whose days add up to at most maxDays.
func CombineDurations(options []DurationOption, maxDays int) (Combination, error) {
	if maxDays < 0 {
		return Combination{}, errors.NewValidationError("max_days", "must not be negative")
	}

	candidates := make([]Candidate, len(options))
	for i, o := range options {
		if o.Days < 1 {
			return Combination{}, errors.NewValidationError("days", "every option must cover at least one day")
		}
		candidates[i] = Candidate{Value: o.Value, Cost: o.Days}
	}

	sel, err := Optimize(candidates, maxDays, DefaultTableThreshold)
	if err != nil {
		return Combination{}, err
	}

	out := Combination{Options: make([]DurationOption, 0, len(sel.Indices))}
	for _, idx := range sel.Indices {
		o := options[idx]
		out.Options = append(out.Options, o)
		out.TotalDays += o.Days
		out.TotalPrice += o.Price
		out.TotalValue += o.Value
	}
	return out, nil
}
