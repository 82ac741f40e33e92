package ranking

import (
	"cmp"
	"strings"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/sorting"
	"github.com/harvesthub/catalog-engine/internal/topk"
	"github.com/harvesthub/catalog-engine/model"
)

// DefaultPopularLimit is how many items the popularity ranking keeps when no
// limit is given.
const DefaultPopularLimit = 10

// PopularityPolicy fills in missing attributes when scoring popularity.
type PopularityPolicy struct {
	DefaultRating      float64 `json:"default_rating" koanf:"default_rating" validate:"gte=0"`
	DefaultRentalCount int     `json:"default_rental_count" koanf:"default_rental_count" validate:"gte=0"`
}

// DefaultPopularityPolicy scores an unrated item as 3 stars and an unrented one
// as a single rental.
func DefaultPopularityPolicy() PopularityPolicy {
	return PopularityPolicy{DefaultRating: 3, DefaultRentalCount: 1}
}

// Score is rating x rental count with the policy defaults applied.
func (p PopularityPolicy) Score(item model.Item) float64 {
	return item.RatingOr(p.DefaultRating) * float64(item.RentalCountOr(p.DefaultRentalCount))
}

// Ranked is one item in a ranking result. Ordinal is its catalog position.
type Ranked struct {
	Item    model.Item `json:"item"`
	Ordinal int        `json:"ordinal"`
	Score   float64    `json:"score"`
}

// Field comparators. A missing numeric attribute compares as zero.

func ByPrice(a, b Ranked) int {
	return cmp.Compare(a.Item.PricePerDay, b.Item.PricePerDay)
}

func ByRating(a, b Ranked) int {
	return cmp.Compare(a.Item.RatingOr(0), b.Item.RatingOr(0))
}

func ByRentalCount(a, b Ranked) int {
	return cmp.Compare(a.Item.RentalCountOr(0), b.Item.RentalCountOr(0))
}

func ByName(a, b Ranked) int {
	return strings.Compare(strings.ToLower(a.Item.Name), strings.ToLower(b.Item.Name))
}

func ByScore(a, b Ranked) int {
	return cmp.Compare(a.Score, b.Score)
}

func byOrdinal(a, b Ranked) int {
	return cmp.Compare(a.Ordinal, b.Ordinal)
}

// Field names accepted by FieldComparator.
const (
	FieldPrice       = "price"
	FieldRating      = "rating"
	FieldRentalCount = "rental_count"
	FieldName        = "name"
)

// FieldComparator returns the ascending comparator for a field name.
func FieldComparator(field string) (sorting.Comparator[Ranked], error) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case FieldPrice:
		return ByPrice, nil
	case FieldRating:
		return ByRating, nil
	case FieldRentalCount:
		return ByRentalCount, nil
	case FieldName:
		return ByName, nil
	}
	return nil, errors.NewValidationError("field", "unknown sort field '"+field+"' (use price, rating, rental_count or name)")
}

// Wrap pairs items with their catalog ordinals.
func Wrap(items []model.Item) []Ranked {
	out := make([]Ranked, len(items))
	for i, item := range items {
		out[i] = Ranked{Item: item, Ordinal: i}
	}
	return out
}

// SortBy orders items by a field with the chosen algorithm. Merge sort keeps
// catalog order for equal keys; quick sort does not promise it.
func SortBy(items []model.Item, field string, descending bool, algorithm Algorithm) ([]Ranked, error) {
	c, err := FieldComparator(field)
	if err != nil {
		return nil, err
	}
	if descending {
		c = sorting.Reverse[Ranked](c)
	}
	wrapped := Wrap(items)
	if algorithm == AlgorithmQuick {
		return sorting.QuickSort(wrapped, c)
	}
	return sorting.MergeSort(wrapped, c)
}

// Rank applies a named criterion. k bounds the result; k <= 0 keeps every item,
// except for the popularity ranking which then keeps DefaultPopularLimit.
func Rank(items []model.Item, criterion Criterion, policy PopularityPolicy, k int) ([]Ranked, error) {
	wrapped := Wrap(items)

	var (
		ranked []Ranked
		err    error
	)
	switch criterion {
	case CriterionPrice:
		ranked, err = sorting.QuickSort(wrapped, ByPrice)
	case CriterionRating:
		ranked, err = sorting.MergeSort(wrapped, sorting.Reverse[Ranked](ByRating))
	case CriterionValue:
		ranked, err = sorting.MergeSort(wrapped, sorting.Chain[Ranked](sorting.Reverse[Ranked](ByRating), ByPrice))
	case CriterionPopular:
		return popular(wrapped, policy, k)
	default:
		return nil, errors.NewValidationError("criterion", criterion.String())
	}
	if err != nil {
		return nil, err
	}
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// popular builds a max-heap over popularity scores and extracts the top k
// without consuming it. Equal scores keep catalog order.
func popular(wrapped []Ranked, policy PopularityPolicy, k int) ([]Ranked, error) {
	if k <= 0 {
		k = DefaultPopularLimit
	}
	for i := range wrapped {
		wrapped[i].Score = policy.Score(wrapped[i].Item)
	}
	order := sorting.Chain[Ranked](sorting.Reverse[Ranked](ByScore), byOrdinal)
	h, err := topk.From(wrapped, order)
	if err != nil {
		return nil, err
	}
	return h.ExtractTop(k)
}

// PriceRange returns the items priced within [minPrice, maxPrice], cheapest
// first. The catalog is sorted once and both bounds are found by binary search.
func PriceRange(items []model.Item, minPrice, maxPrice float64) ([]Ranked, error) {
	if minPrice > maxPrice {
		return nil, errors.NewValidationError("price_range", "min must not exceed max")
	}
	sorted, err := sorting.MergeSort(Wrap(items), ByPrice)
	if err != nil {
		return nil, err
	}
	lo := lowerBound(sorted, func(r Ranked) bool { return r.Item.PricePerDay >= minPrice })
	hi := lowerBound(sorted, func(r Ranked) bool { return r.Item.PricePerDay > maxPrice })
	return sorted[lo:hi], nil
}

// lowerBound returns the first index whose element satisfies pred, assuming
// pred is false then true across the slice.
func lowerBound(sorted []Ranked, pred func(Ranked) bool) int {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if pred(sorted[mid]) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
