package services

import (
	"context"
	"time"

	"github.com/harvesthub/catalog-engine/internal/budget"
	"github.com/harvesthub/catalog-engine/internal/ranking"
	"github.com/harvesthub/catalog-engine/internal/schedule"
	"github.com/harvesthub/catalog-engine/model"
)

// QueryKind names a query variant. It is also the label used for metrics and analytics.
type QueryKind string

const (
	KindPrefix     QueryKind = "prefix"
	KindSort       QueryKind = "sort"
	KindTopK       QueryKind = "top_k"
	KindPriceRange QueryKind = "price_range"
	KindNearest    QueryKind = "nearest"
	KindReachable  QueryKind = "reachable"
	KindBudget     QueryKind = "budget"
	KindDuration   QueryKind = "duration"
	KindSchedule   QueryKind = "schedule"
	KindConflicts  QueryKind = "conflicts"
	KindSlot       QueryKind = "slot"
)

// Query is implemented only by the query types in this package.
type Query interface {
	Kind() QueryKind
	isQuery()
}

// PrefixQuery finds items whose name or keywords start with Prefix.
// An empty prefix matches every item.
type PrefixQuery struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
}

// SortQuery orders the catalog by one item field.
type SortQuery struct {
	Field      string            `json:"field"`
	Descending bool              `json:"descending"`
	Algorithm  ranking.Algorithm `json:"algorithm"`
	Limit      int               `json:"limit"`
}

// TopKQuery returns the best K items under a named criterion.
type TopKQuery struct {
	Criterion ranking.Criterion `json:"criterion"`
	K         int               `json:"k"`
}

// PriceRangeQuery returns items priced within [Min, Max], cheapest first.
type PriceRangeQuery struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Limit int     `json:"limit"`
}

// NearestQuery ranks located items by great-circle distance from Origin.
type NearestQuery struct {
	Origin model.GeoPoint `json:"origin"`
	K      int            `json:"k"`
}

// ReachableQuery walks the proximity graph from one item. Items are connected
// when they are at most ThresholdKm apart; 0 uses the configured threshold.
type ReachableQuery struct {
	ItemID      string  `json:"item_id"`
	K           int     `json:"k"`
	ThresholdKm float64 `json:"threshold_km"`
}

// BudgetQuery selects the subset of items with the highest total value whose
// total price fits Budget. ItemIDs restricts the candidates when set.
type BudgetQuery struct {
	Budget  float64  `json:"budget"`
	ItemIDs []string `json:"item_ids,omitempty"`
}

// DurationQuery finds the rental length for one item that gives the most
// value per unit of money within Budget.
type DurationQuery struct {
	ItemID    string            `json:"item_id"`
	Budget    float64           `json:"budget"`
	Discounts []budget.Discount `json:"discounts,omitempty"`
}

// ScheduleQuery plans booking requests for one item. Weighted maximizes
// revenue; otherwise the number of accepted bookings is maximized.
type ScheduleQuery struct {
	ItemID    string           `json:"item_id"`
	Intervals []model.Interval `json:"intervals"`
	Weighted  bool             `json:"weighted"`
}

// ConflictQuery reports groups of overlapping intervals. Resolve also picks a
// winner per group.
type ConflictQuery struct {
	Intervals []model.Interval `json:"intervals"`
	Resolve   bool             `json:"resolve"`
}

// SlotQuery proposes a free window of Duration for one item. When Existing is
// empty the item's bookings are read from the catalog source.
type SlotQuery struct {
	ItemID   string           `json:"item_id"`
	Duration time.Duration    `json:"duration"`
	Existing []model.Interval `json:"existing,omitempty"`
	Now      time.Time        `json:"now"`
}

func (PrefixQuery) Kind() QueryKind     { return KindPrefix }
func (SortQuery) Kind() QueryKind       { return KindSort }
func (TopKQuery) Kind() QueryKind       { return KindTopK }
func (PriceRangeQuery) Kind() QueryKind { return KindPriceRange }
func (NearestQuery) Kind() QueryKind    { return KindNearest }
func (ReachableQuery) Kind() QueryKind  { return KindReachable }
func (BudgetQuery) Kind() QueryKind     { return KindBudget }
func (DurationQuery) Kind() QueryKind   { return KindDuration }
func (ScheduleQuery) Kind() QueryKind   { return KindSchedule }
func (ConflictQuery) Kind() QueryKind   { return KindConflicts }
func (SlotQuery) Kind() QueryKind       { return KindSlot }

func (PrefixQuery) isQuery()     {}
func (SortQuery) isQuery()       {}
func (TopKQuery) isQuery()       {}
func (PriceRangeQuery) isQuery() {}
func (NearestQuery) isQuery()    {}
func (ReachableQuery) isQuery()  {}
func (BudgetQuery) isQuery()     {}
func (DurationQuery) isQuery()   {}
func (ScheduleQuery) isQuery()   {}
func (ConflictQuery) isQuery()   {}
func (SlotQuery) isQuery()       {}

// RankedItem is an item with the score derived for one query: the sort key,
// popularity score, distance in km or selection value depending on the kind.
type RankedItem struct {
	Item  model.Item `json:"item"`
	Score float64    `json:"score"`
}

// BudgetSummary describes a budget selection. Costs are in cost units.
type BudgetSummary struct {
	Budget      float64       `json:"budget"`
	BudgetUnits int           `json:"budget_units"`
	TotalValue  float64       `json:"total_value"`
	TotalCost   int           `json:"total_cost"`
	TotalPrice  float64       `json:"total_price"`
	Method      budget.Method `json:"method"`
}

// QueryResult is the answer to any query. Which of the optional sections is
// set depends on Kind.
type QueryResult struct {
	QueryID string    `json:"query_id"`
	Kind    QueryKind `json:"kind"`
	Version uint64    `json:"catalog_version"`
	Took    int64     `json:"took"` // milliseconds
	Total   int       `json:"total"`

	Items       []RankedItem             `json:"items"`
	Budget      *BudgetSummary           `json:"budget,omitempty"`
	Duration    *budget.DurationPlan     `json:"duration,omitempty"`
	Schedule    *schedule.RentalSchedule `json:"schedule,omitempty"`
	Conflicts   [][]model.Interval       `json:"conflicts,omitempty"`
	Resolutions []schedule.Resolution    `json:"resolutions,omitempty"`
	Slot        *schedule.Slot           `json:"slot,omitempty"`
}

// RefreshResult reports one catalog refresh.
type RefreshResult struct {
	Source   string        `json:"source"`
	Version  uint64        `json:"version"`
	Loaded   int           `json:"loaded"`
	Rejected int           `json:"rejected"`
	Took     time.Duration `json:"took"`
}

// QueryExecutor answers queries against the current catalog snapshot.
type QueryExecutor interface {
	Execute(ctx context.Context, q Query) (QueryResult, error)
}

// CatalogManager refreshes and describes the catalog.
type CatalogManager interface {
	Refresh(ctx context.Context) (RefreshResult, error)
	RefreshAsync() (string, error) // returns the job ID
	CatalogStats() (model.CatalogStats, error)
	Dashboard() (model.AnalyticsDashboard, error)
}

// JobManager defines operations for inspecting background jobs.
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(source string, status *model.JobStatus) []*model.Job
}

// CatalogEngine is everything the HTTP layer needs.
type CatalogEngine interface {
	QueryExecutor
	CatalogManager
	JobManager
}
