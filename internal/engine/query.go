package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harvesthub/catalog-engine/config"
	"github.com/harvesthub/catalog-engine/internal/budget"
	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/geo"
	"github.com/harvesthub/catalog-engine/internal/metrics"
	"github.com/harvesthub/catalog-engine/internal/ranking"
	"github.com/harvesthub/catalog-engine/internal/schedule"
	"github.com/harvesthub/catalog-engine/internal/search"
	"github.com/harvesthub/catalog-engine/internal/source"
	"github.com/harvesthub/catalog-engine/model"
	"github.com/harvesthub/catalog-engine/services"
	"github.com/harvesthub/catalog-engine/store"
)

// Execute runs one query against the snapshot current at call time. The
// snapshot is loaded once, so a concurrent refresh never changes the data a
// running query sees.
func (e *Engine) Execute(ctx context.Context, q services.Query) (services.QueryResult, error) {
	if q == nil {
		return services.QueryResult{}, errors.NewValidationError("query", "must not be nil")
	}

	start := time.Now()
	kind := q.Kind()
	result, err := e.execute(ctx, q)
	took := time.Since(start)

	metrics.QueriesTotal.WithLabelValues(string(kind), metrics.Outcome(err)).Inc()
	metrics.QueryDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
	e.analytics.TrackQuery(model.QueryEvent{
		Kind:         string(kind),
		ResponseTime: took,
		ResultCount:  result.Total,
		Failed:       err != nil,
	})
	if err != nil {
		e.logger.Debug().Err(err).Str("kind", string(kind)).Msg("query failed")
		return services.QueryResult{}, err
	}
	metrics.QueryResults.WithLabelValues(string(kind)).Observe(float64(result.Total))

	result.QueryID = uuid.New().String()
	result.Kind = kind
	result.Took = took.Milliseconds()
	if result.Items == nil {
		result.Items = []services.RankedItem{}
	}
	return result, nil
}

func (e *Engine) execute(ctx context.Context, q services.Query) (services.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return services.QueryResult{}, err
	}
	settings := e.Settings()

	// Interval queries carry their own data and do not need a catalog.
	switch q := q.(type) {
	case services.ScheduleQuery:
		return e.schedule(q)
	case services.ConflictQuery:
		return e.conflicts(q)
	}

	h, err := e.store.Current()
	if err != nil {
		return services.QueryResult{}, err
	}

	var result services.QueryResult
	switch q := q.(type) {
	case services.PrefixQuery:
		result, err = prefix(h, settings, q)
	case services.SortQuery:
		result, err = sortItems(h, settings, q)
	case services.TopKQuery:
		result, err = topK(h, settings, q)
	case services.PriceRangeQuery:
		result, err = priceRange(h, settings, q)
	case services.NearestQuery:
		result, err = nearest(h, settings, q)
	case services.ReachableQuery:
		result, err = reachable(h, settings, q)
	case services.BudgetQuery:
		result, err = selectWithinBudget(h, settings, q)
	case services.DurationQuery:
		result, err = rentalDuration(h, q)
	case services.SlotQuery:
		result, err = e.slot(ctx, h, q)
	default:
		err = errors.NewValidationError("query", fmt.Sprintf("unsupported query kind '%s'", q.Kind()))
	}
	if err != nil {
		return services.QueryResult{}, err
	}
	result.Version = h.Version()
	return result, nil
}

func prefix(h *store.Handle, settings config.EngineSettings, q services.PrefixQuery) (services.QueryResult, error) {
	svc, err := search.NewService(h)
	if err != nil {
		return services.QueryResult{}, err
	}
	hits, err := svc.Search(services.PrefixQuery{Prefix: q.Prefix, Limit: settings.ClampLimit(q.Limit)})
	if err != nil {
		return services.QueryResult{}, err
	}
	return services.QueryResult{Items: hits, Total: len(hits)}, nil
}

func fieldScore(field string) func(ranking.Ranked) float64 {
	switch field {
	case ranking.FieldPrice:
		return func(r ranking.Ranked) float64 { return r.Item.PricePerDay }
	case ranking.FieldRating:
		return func(r ranking.Ranked) float64 { return r.Item.RatingOr(0) }
	case ranking.FieldRentalCount:
		return func(r ranking.Ranked) float64 { return float64(r.Item.RentalCountOr(0)) }
	}
	return func(ranking.Ranked) float64 { return 0 }
}

func criterionScore(c ranking.Criterion) func(ranking.Ranked) float64 {
	switch c {
	case ranking.CriterionPrice:
		return fieldScore(ranking.FieldPrice)
	case ranking.CriterionRating, ranking.CriterionValue:
		return fieldScore(ranking.FieldRating)
	}
	return func(r ranking.Ranked) float64 { return r.Score }
}

func fromRanked(ranked []ranking.Ranked, score func(ranking.Ranked) float64) []services.RankedItem {
	out := make([]services.RankedItem, len(ranked))
	for i, r := range ranked {
		out[i] = services.RankedItem{Item: r.Item, Score: score(r)}
	}
	return out
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

func sortItems(h *store.Handle, settings config.EngineSettings, q services.SortQuery) (services.QueryResult, error) {
	algorithm, err := ranking.ParseAlgorithm(string(q.Algorithm))
	if err != nil {
		return services.QueryResult{}, err
	}
	ranked, err := ranking.SortBy(h.Items(), q.Field, q.Descending, algorithm)
	if err != nil {
		return services.QueryResult{}, err
	}
	ranked = truncate(ranked, settings.ClampLimit(q.Limit))
	field := strings.ToLower(strings.TrimSpace(q.Field))
	return services.QueryResult{Items: fromRanked(ranked, fieldScore(field)), Total: len(ranked)}, nil
}

func topK(h *store.Handle, settings config.EngineSettings, q services.TopKQuery) (services.QueryResult, error) {
	if q.Criterion == 0 {
		return services.QueryResult{}, errors.NewValidationError("criterion", "is required")
	}
	ranked, err := ranking.Rank(h.Items(), q.Criterion, settings.PopularityPolicy(), settings.ClampTopK(q.K))
	if err != nil {
		return services.QueryResult{}, err
	}
	return services.QueryResult{Items: fromRanked(ranked, criterionScore(q.Criterion)), Total: len(ranked)}, nil
}

func priceRange(h *store.Handle, settings config.EngineSettings, q services.PriceRangeQuery) (services.QueryResult, error) {
	if math.IsNaN(q.Min) || math.IsNaN(q.Max) {
		return services.QueryResult{}, errors.NewValidationError("price_range", "bounds must be numbers")
	}
	ranked, err := ranking.PriceRange(h.Items(), q.Min, q.Max)
	if err != nil {
		return services.QueryResult{}, err
	}
	ranked = truncate(ranked, settings.ClampLimit(q.Limit))
	return services.QueryResult{Items: fromRanked(ranked, fieldScore(ranking.FieldPrice)), Total: len(ranked)}, nil
}

func nearest(h *store.Handle, settings config.EngineSettings, q services.NearestQuery) (services.QueryResult, error) {
	neighbors, err := geo.Nearest(q.Origin, h.Items(), settings.ClampTopK(q.K))
	if err != nil {
		return services.QueryResult{}, err
	}
	items := make([]services.RankedItem, len(neighbors))
	for i, n := range neighbors {
		items[i] = services.RankedItem{Item: n.Item, Score: n.DistanceKm}
	}
	return services.QueryResult{Items: items, Total: len(items)}, nil
}

func reachable(h *store.Handle, settings config.EngineSettings, q services.ReachableQuery) (services.QueryResult, error) {
	if _, _, err := h.Item(q.ItemID); err != nil {
		return services.QueryResult{}, err
	}
	threshold := q.ThresholdKm
	if threshold == 0 {
		threshold = settings.ProximityThresholdKm
	}
	graph, err := geo.BuildProximityGraph(h.Items(), threshold)
	if err != nil {
		return services.QueryResult{}, err
	}
	reached, err := graph.NearestReachable(q.ItemID, settings.ClampTopK(q.K))
	if err != nil {
		return services.QueryResult{}, err
	}

	items := make([]services.RankedItem, 0, len(reached))
	for _, r := range reached {
		item, _, err := h.Item(r.ID)
		if err != nil {
			return services.QueryResult{}, err
		}
		items = append(items, services.RankedItem{Item: item, Score: r.DistanceKm})
	}
	return services.QueryResult{Items: items, Total: len(items)}, nil
}

func selectWithinBudget(h *store.Handle, settings config.EngineSettings, q services.BudgetQuery) (services.QueryResult, error) {
	units, err := budget.BudgetUnits(q.Budget, settings.CostResolution)
	if err != nil {
		return services.QueryResult{}, err
	}
	if units > settings.MaxBudgetUnits {
		return services.QueryResult{}, errors.NewValidationError("budget",
			fmt.Sprintf("%d cost units exceeds the limit of %d; use a coarser cost resolution", units, settings.MaxBudgetUnits))
	}

	candidates := h.Items()
	if len(q.ItemIDs) > 0 {
		candidates = make([]model.Item, 0, len(q.ItemIDs))
		seen := make(map[string]struct{}, len(q.ItemIDs))
		for _, id := range q.ItemIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			item, _, err := h.Item(id)
			if err != nil {
				return services.QueryResult{}, err
			}
			candidates = append(candidates, item)
		}
	}

	// the solvers hold one bit (table: one int) per candidate and budget unit
	if cells := int64(len(candidates)) * int64(units+1); cells > int64(settings.MaxKnapsackCells) {
		return services.QueryResult{}, errors.NewValidationError("budget",
			fmt.Sprintf("%d candidates over %d cost units exceeds the limit of %d cells; use a coarser cost resolution or fewer item_ids",
				len(candidates), units, settings.MaxKnapsackCells))
	}

	sel, err := budget.OptimizeItems(candidates,
		budget.RatingValue(settings.BudgetDefaultRating, settings.UnavailableFactor),
		budget.CeilCost(settings.CostResolution),
		units, settings.KnapsackTableThreshold)
	if err != nil {
		return services.QueryResult{}, err
	}

	summary := &services.BudgetSummary{
		Budget:      q.Budget,
		BudgetUnits: units,
		TotalValue:  sel.TotalValue,
		TotalCost:   sel.TotalCost,
		Method:      sel.Method,
	}
	items := make([]services.RankedItem, len(sel.Items))
	for i, item := range sel.Items {
		items[i] = services.RankedItem{Item: item, Score: sel.Values[i]}
		summary.TotalPrice += item.PricePerDay
	}
	return services.QueryResult{Items: items, Total: len(items), Budget: summary}, nil
}

func rentalDuration(h *store.Handle, q services.DurationQuery) (services.QueryResult, error) {
	item, _, err := h.Item(q.ItemID)
	if err != nil {
		return services.QueryResult{}, err
	}
	plan, ok, err := budget.OptimalRentalDuration(item.PricePerDay, q.Budget, q.Discounts)
	if err != nil {
		return services.QueryResult{}, err
	}
	if !ok {
		return services.QueryResult{}, nil
	}
	return services.QueryResult{
		Items:    []services.RankedItem{{Item: item, Score: plan.Value}},
		Total:    1,
		Duration: &plan,
	}, nil
}

func (e *Engine) schedule(q services.ScheduleQuery) (services.QueryResult, error) {
	plan, err := schedule.OptimizeRentalSchedule(q.ItemID, q.Intervals, q.Weighted)
	if err != nil {
		return services.QueryResult{}, err
	}
	return services.QueryResult{Schedule: &plan, Total: len(plan.Schedule), Version: e.store.Version()}, nil
}

func (e *Engine) conflicts(q services.ConflictQuery) (services.QueryResult, error) {
	groups, err := schedule.DetectConflicts(q.Intervals)
	if err != nil {
		return services.QueryResult{}, err
	}
	result := services.QueryResult{Conflicts: groups, Total: len(groups), Version: e.store.Version()}
	if q.Resolve {
		result.Resolutions = make([]schedule.Resolution, 0, len(groups))
		for _, group := range groups {
			res, err := schedule.ResolveConflict(group)
			if err != nil {
				return services.QueryResult{}, err
			}
			result.Resolutions = append(result.Resolutions, res)
		}
	}
	return result, nil
}

// slot reads the item's bookings from the source when the query brings none
// and the source can provide them.
func (e *Engine) slot(ctx context.Context, h *store.Handle, q services.SlotQuery) (services.QueryResult, error) {
	existing := q.Existing
	if q.ItemID != "" {
		if _, _, err := h.Item(q.ItemID); err != nil {
			return services.QueryResult{}, err
		}
		if len(existing) == 0 {
			if bs, ok := e.loader.(source.BookingSource); ok {
				bookings, err := bs.Bookings(ctx, q.ItemID)
				if err != nil {
					return services.QueryResult{}, err
				}
				existing = bookings
			}
		}
	}

	now := q.Now
	if now.IsZero() {
		now = e.now()
	}
	slot, err := schedule.FindBestSlot(existing, q.Duration, now)
	if err != nil {
		return services.QueryResult{}, err
	}
	return services.QueryResult{Slot: &slot, Total: 1}, nil
}
