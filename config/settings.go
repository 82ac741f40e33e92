// Package config holds the engine tunables and the process configuration.
package config

import (
	"fmt"

	"github.com/harvesthub/catalog-engine/internal/ranking"
)

// EngineSettings tunes query execution. Zero values are replaced by
// ApplyDefaults.
type EngineSettings struct {
	MinKeywordLength int `json:"min_keyword_length" koanf:"min_keyword_length"` // shortest name token or description word indexed on its own
	DefaultLimit     int `json:"default_limit" koanf:"default_limit"`           // result cap when a query gives none
	MaxLimit         int `json:"max_limit" koanf:"max_limit"`                   // hard cap on any result list
	DefaultTopK      int `json:"default_top_k" koanf:"default_top_k"`           // top/nearest size when k is 0

	Popularity *ranking.PopularityPolicy `json:"popularity" koanf:"popularity"` // nil means ranking.DefaultPopularityPolicy

	BudgetDefaultRating    float64 `json:"budget_default_rating" koanf:"budget_default_rating"`       // value of an unrated item in budget selection
	UnavailableFactor      float64 `json:"unavailable_factor" koanf:"unavailable_factor"`             // value multiplier for items flagged unavailable
	CostResolution         float64 `json:"cost_resolution" koanf:"cost_resolution"`                   // currency per knapsack cost unit
	KnapsackTableThreshold int     `json:"knapsack_table_threshold" koanf:"knapsack_table_threshold"` // budgets above this use the compact solver
	MaxBudgetUnits         int     `json:"max_budget_units" koanf:"max_budget_units"`                 // budget/cost_resolution above this is rejected
	MaxKnapsackCells       int     `json:"max_knapsack_cells" koanf:"max_knapsack_cells"`             // candidates*(units+1) above this is rejected

	ProximityThresholdKm float64 `json:"proximity_threshold_km" koanf:"proximity_threshold_km"` // edge cutoff for the proximity graph
}

// DefaultEngineSettings returns the settings used when nothing is configured.
func DefaultEngineSettings() EngineSettings {
	s := EngineSettings{}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills unset fields.
func (s *EngineSettings) ApplyDefaults() {
	if s.MinKeywordLength == 0 {
		s.MinKeywordLength = 4
	}
	if s.DefaultLimit == 0 {
		s.DefaultLimit = 20
	}
	if s.MaxLimit == 0 {
		s.MaxLimit = 500
	}
	if s.DefaultTopK == 0 {
		s.DefaultTopK = ranking.DefaultPopularLimit
	}
	// always take a private copy so callers cannot mutate settings in use
	policy := ranking.DefaultPopularityPolicy()
	if s.Popularity != nil {
		policy = *s.Popularity
	}
	s.Popularity = &policy
	if s.BudgetDefaultRating == 0 {
		s.BudgetDefaultRating = 3
	}
	if s.UnavailableFactor == 0 {
		s.UnavailableFactor = 0.5
	}
	if s.CostResolution == 0 {
		s.CostResolution = 1
	}
	if s.KnapsackTableThreshold == 0 {
		s.KnapsackTableThreshold = 10000
	}
	if s.MaxBudgetUnits == 0 {
		s.MaxBudgetUnits = 5_000_000
	}
	if s.MaxKnapsackCells == 0 {
		s.MaxKnapsackCells = 50_000_000
	}
	if s.ProximityThresholdKm == 0 {
		s.ProximityThresholdKm = 50
	}
	if s.DefaultLimit > s.MaxLimit {
		s.DefaultLimit = s.MaxLimit
	}
}

// Validate returns one message per problem; an empty slice means valid.
func (s *EngineSettings) Validate() []string {
	var problems []string
	if s.MinKeywordLength < 1 {
		problems = append(problems, "min_keyword_length must be at least 1")
	}
	if s.DefaultLimit < 1 {
		problems = append(problems, "default_limit must be at least 1")
	}
	if s.MaxLimit < s.DefaultLimit {
		problems = append(problems, fmt.Sprintf("max_limit (%d) must not be below default_limit (%d)", s.MaxLimit, s.DefaultLimit))
	}
	if s.DefaultTopK < 1 {
		problems = append(problems, "default_top_k must be at least 1")
	}
	if p := s.Popularity; p != nil && (p.DefaultRating < 0 || p.DefaultRentalCount < 0) {
		problems = append(problems, "popularity defaults must not be negative")
	}
	if s.BudgetDefaultRating < 0 {
		problems = append(problems, "budget_default_rating must not be negative")
	}
	if s.UnavailableFactor < 0 || s.UnavailableFactor > 1 {
		problems = append(problems, "unavailable_factor must be within [0, 1]")
	}
	if s.CostResolution <= 0 {
		problems = append(problems, "cost_resolution must be positive")
	}
	if s.KnapsackTableThreshold < 0 {
		problems = append(problems, "knapsack_table_threshold must not be negative")
	}
	if s.MaxBudgetUnits < 1 {
		problems = append(problems, "max_budget_units must be at least 1")
	}
	if s.MaxKnapsackCells < 1 {
		problems = append(problems, "max_knapsack_cells must be at least 1")
	}
	if s.ProximityThresholdKm < 0 {
		problems = append(problems, "proximity_threshold_km must not be negative")
	}
	return problems
}

// PopularityPolicy returns the configured policy, or the default when unset.
func (s *EngineSettings) PopularityPolicy() ranking.PopularityPolicy {
	if s.Popularity == nil {
		return ranking.DefaultPopularityPolicy()
	}
	return *s.Popularity
}

// ClampLimit maps a requested result size onto the configured bounds:
// 0 or less means DefaultLimit, and nothing exceeds MaxLimit.
func (s *EngineSettings) ClampLimit(limit int) int {
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	if limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	return limit
}

// ClampTopK is ClampLimit for top-k style queries.
func (s *EngineSettings) ClampTopK(k int) int {
	if k <= 0 {
		k = s.DefaultTopK
	}
	if k > s.MaxLimit {
		k = s.MaxLimit
	}
	return k
}
