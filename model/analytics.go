package model

import "time"

// QueryEvent represents a single executed query for analytics tracking
type QueryEvent struct {
	Kind         string        `json:"kind"` // "prefix", "sort", "top_k", "nearest", "budget", "schedule", "conflicts"
	ResponseTime time.Duration `json:"response_time"`
	ResultCount  int           `json:"result_count"`
	Failed       bool          `json:"failed"`
	Timestamp    time.Time     `json:"timestamp"`
}

// KindUsage aggregates query events of one kind
type KindUsage struct {
	Kind            string  `json:"kind"`
	Count           int     `json:"count"`
	Failures        int     `json:"failures"`
	AvgResponseTime float64 `json:"avg_response_time_ms"`
	EmptyResults    int     `json:"empty_results"`
}

// CatalogStats summarizes the current catalog snapshot
type CatalogStats struct {
	Version          uint64    `json:"version"`
	CapturedAt       time.Time `json:"captured_at"`
	ItemCount        int       `json:"item_count"`
	AvailableCount   int       `json:"available_count"`
	LocatedCount     int       `json:"located_count"`
	RatedCount       int       `json:"rated_count"`
	MinPricePerDay   float64   `json:"min_price_per_day"`
	MaxPricePerDay   float64   `json:"max_price_per_day"`
	AvgPricePerDay   float64   `json:"avg_price_per_day"`
	AvgRating        float64   `json:"avg_rating"`
	TotalRentalCount int       `json:"total_rental_count"`
}

// AnalyticsDashboard is the aggregate view served by the analytics endpoint
type AnalyticsDashboard struct {
	Catalog         CatalogStats `json:"catalog"`
	TotalQueries    int          `json:"total_queries"`
	QueriesLast24h  int          `json:"queries_last_24h"`
	AvgResponseTime float64      `json:"avg_response_time_ms"`
	QueryKinds      []KindUsage  `json:"query_kinds"`
	GeneratedAt     time.Time    `json:"generated_at"`
}
