// Package ranking orders catalog items. It names the ranking criteria the bot
// understands, builds item comparators and applies the popularity policy.
package ranking

import (
	"fmt"
	"strings"

	"github.com/harvesthub/catalog-engine/internal/errors"
)

// Criterion is a named ranking strategy.
type Criterion int

const (
	// CriterionPrice orders by price ascending with the partition sort.
	CriterionPrice Criterion = iota + 1
	// CriterionRating orders by rating descending with the stable sort.
	CriterionRating
	// CriterionPopular selects the top k by rating x rental count.
	CriterionPopular
	// CriterionValue orders by rating descending, then price ascending.
	CriterionValue
)

var criterionNames = map[Criterion]string{
	CriterionPrice:   "price",
	CriterionRating:  "rating",
	CriterionPopular: "popular",
	CriterionValue:   "value",
}

var criterionAliases = map[string]Criterion{
	"price":      CriterionPrice,
	"cheap":      CriterionPrice,
	"low":        CriterionPrice,
	"rating":     CriterionRating,
	"best":       CriterionRating,
	"top":        CriterionRating,
	"popular":    CriterionPopular,
	"popularity": CriterionPopular,
	"value":      CriterionValue,
}

func (c Criterion) String() string {
	if name, ok := criterionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("criterion(%d)", int(c))
}

// ParseCriterion resolves a criterion name or one of its aliases.
// Unknown names are rejected rather than mapped to a default.
func ParseCriterion(s string) (Criterion, error) {
	c, ok := criterionAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, errors.NewValidationError("criterion", fmt.Sprintf("unknown criterion '%s' (use price, rating, popular or value)", s))
	}
	return c, nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Criterion) MarshalText() ([]byte, error) {
	if _, ok := criterionNames[c]; !ok {
		return nil, errors.NewValidationError("criterion", c.String())
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Criterion) UnmarshalText(text []byte) error {
	parsed, err := ParseCriterion(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Algorithm selects the sort implementation for field-based ranking.
type Algorithm string

const (
	AlgorithmMerge Algorithm = "merge"
	AlgorithmQuick Algorithm = "quick"
)

// ParseAlgorithm accepts "merge" (default when empty) or "quick".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlgorithmMerge:
		return AlgorithmMerge, nil
	case AlgorithmQuick:
		return AlgorithmQuick, nil
	}
	return "", errors.NewValidationError("algorithm", fmt.Sprintf("unknown algorithm '%s' (use merge or quick)", s))
}
