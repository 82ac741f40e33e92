package engine

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvesthub/catalog-engine/config"
	"github.com/harvesthub/catalog-engine/internal/budget"
	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/internal/ranking"
	"github.com/harvesthub/catalog-engine/internal/source"
	"github.com/harvesthub/catalog-engine/model"
	"github.com/harvesthub/catalog-engine/services"
)

var day0 = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func sampleItems() []model.Item {
	return []model.Item{
		{ID: "1", Name: "Combine X", PricePerDay: 100, Rating: model.Float64Ptr(4), RentalCount: model.IntPtr(2),
			Location: &model.GeoPoint{Latitude: 0, Longitude: 0}},
		{ID: "2", Name: "Combine Y", PricePerDay: 50, Rating: model.Float64Ptr(5),
			Location: &model.GeoPoint{Latitude: 0, Longitude: 1}},
		{ID: "3", Name: "Tractor Z", PricePerDay: 80, Rating: model.Float64Ptr(3), RentalCount: model.IntPtr(4)},
	}
}

func interval(id string, startDay, endDay int, value float64) model.Interval {
	return model.Interval{ID: id, Start: day0.AddDate(0, 0, startDay), End: day0.AddDate(0, 0, endDay), Value: value}
}

// bookingLoader is a static catalog that also serves bookings.
type bookingLoader struct {
	*source.Static
	bookings map[string][]model.Interval
}

func (l bookingLoader) Bookings(_ context.Context, itemID string) ([]model.Interval, error) {
	return l.bookings[itemID], nil
}

type failingLoader struct{}

func (failingLoader) Name() string { return "broken" }

func (failingLoader) Load(context.Context) ([]model.Item, error) {
	return nil, errors.NewSourceError("broken", stderrors.New("connection refused"))
}

func newTestEngine(t *testing.T, loader source.Loader, opts ...func(*Options)) *Engine {
	t.Helper()
	o := Options{Settings: config.DefaultEngineSettings(), Loader: loader, MaxWorkers: 2}
	for _, fn := range opts {
		fn(&o)
	}
	e, err := New(o)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func refreshedEngine(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t, source.NewStatic("static", sampleItems()))
	_, err := e.Refresh(context.Background())
	require.NoError(t, err)
	return e
}

func ids(items []services.RankedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Item.ID
	}
	return out
}

func TestNew_RequiresLoader(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNew_RejectsInvalidSettings(t *testing.T) {
	settings := config.DefaultEngineSettings()
	settings.UnavailableFactor = 2
	_, err := New(Options{Settings: settings, Loader: source.NewStatic("static", nil)})
	assert.Error(t, err)
}

func TestExecute_BeforeFirstSnapshot(t *testing.T) {
	e := newTestEngine(t, source.NewStatic("static", sampleItems()))

	_, err := e.Execute(context.Background(), services.PrefixQuery{Prefix: "comb"})
	assert.ErrorIs(t, err, errors.ErrNoSnapshot)

	_, err = e.CatalogStats()
	assert.ErrorIs(t, err, errors.ErrNoSnapshot)

	// interval queries do not need the catalog
	result, err := e.Execute(context.Background(), services.ScheduleQuery{
		Intervals: []model.Interval{interval("a", 0, 2, 1), interval("b", 1, 3, 1), interval("c", 2, 4, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result.Version)
	require.NotNil(t, result.Schedule)
	assert.Len(t, result.Schedule.Schedule, 2)
}

func TestExecute_NilQuery(t *testing.T) {
	e := refreshedEngine(t)
	_, err := e.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestRefresh_DropsInvalidItems(t *testing.T) {
	items := append(sampleItems(), model.Item{ID: "bad", Name: "Broken Baler", PricePerDay: -5})
	e := newTestEngine(t, source.NewStatic("static", items))

	result, err := e.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", result.Source)
	assert.Equal(t, uint64(1), result.Version)
	assert.Equal(t, 3, result.Loaded)
	assert.Equal(t, 1, result.Rejected)

	result, err = e.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Version)
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	e := newTestEngine(t, failingLoader{})

	_, err := e.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSourceUnavailable)
	assert.Equal(t, uint64(0), e.Store().Version())
}

func TestExecute_CatalogQueries(t *testing.T) {
	e := refreshedEngine(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    services.Query
		expected []string
	}{
		{"prefix", services.PrefixQuery{Prefix: "comb"}, []string{"1", "2"}},
		{"prefix no match", services.PrefixQuery{Prefix: "baler"}, []string{}},
		{"sort by price", services.SortQuery{Field: "price"}, []string{"2", "3", "1"}},
		{"sort by rating desc quick", services.SortQuery{Field: "Rating", Descending: true, Algorithm: ranking.AlgorithmQuick}, []string{"2", "1", "3"}},
		{"sort with limit", services.SortQuery{Field: "price", Limit: 1}, []string{"2"}},
		{"top rating", services.TopKQuery{Criterion: ranking.CriterionRating, K: 2}, []string{"2", "1"}},
		{"top popular", services.TopKQuery{Criterion: ranking.CriterionPopular}, []string{"3", "1", "2"}},
		{"top price", services.TopKQuery{Criterion: ranking.CriterionPrice, K: 1}, []string{"2"}},
		{"price range", services.PriceRangeQuery{Min: 60, Max: 100}, []string{"3", "1"}},
		{"nearest", services.NearestQuery{Origin: model.GeoPoint{}}, []string{"1", "2"}},
		{"reachable", services.ReachableQuery{ItemID: "1", ThresholdKm: 200}, []string{"2"}},
		{"reachable out of range", services.ReachableQuery{ItemID: "1", ThresholdKm: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.Execute(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.query.Kind(), result.Kind)
			assert.Equal(t, uint64(1), result.Version)
			assert.NotEmpty(t, result.QueryID)
			assert.Equal(t, tt.expected, ids(result.Items))
			assert.Equal(t, len(tt.expected), result.Total)
		})
	}
}

func TestExecute_Scores(t *testing.T) {
	e := refreshedEngine(t)
	ctx := context.Background()

	result, err := e.Execute(ctx, services.NearestQuery{Origin: model.GeoPoint{}, K: 2})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, 0.0, result.Items[0].Score)
	assert.InDelta(t, 111.19, result.Items[1].Score, 0.01)

	result, err = e.Execute(ctx, services.TopKQuery{Criterion: ranking.CriterionPopular, K: 1})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 12.0, result.Items[0].Score)

	result, err = e.Execute(ctx, services.SortQuery{Field: "price"})
	require.NoError(t, err)
	assert.Equal(t, 50.0, result.Items[0].Score)
}

func TestExecute_InvalidQueries(t *testing.T) {
	e := refreshedEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		query  services.Query
		target error
	}{
		{"missing criterion", services.TopKQuery{}, errors.ErrInvalidInput},
		{"unknown sort field", services.SortQuery{Field: "weight"}, errors.ErrInvalidInput},
		{"unknown algorithm", services.SortQuery{Field: "price", Algorithm: "bogo"}, errors.ErrInvalidInput},
		{"inverted price range", services.PriceRangeQuery{Min: 100, Max: 10}, errors.ErrInvalidInput},
		{"invalid origin", services.NearestQuery{Origin: model.GeoPoint{Latitude: 91}}, errors.ErrInvalidInput},
		{"unknown reachable item", services.ReachableQuery{ItemID: "42"}, errors.ErrItemNotFound},
		{"negative budget", services.BudgetQuery{Budget: -1}, errors.ErrInvalidInput},
		{"budget too fine", services.BudgetQuery{Budget: 10_000_000}, errors.ErrInvalidInput},
		{"unknown budget item", services.BudgetQuery{Budget: 100, ItemIDs: []string{"42"}}, errors.ErrItemNotFound},
		{"unknown duration item", services.DurationQuery{ItemID: "42", Budget: 100}, errors.ErrItemNotFound},
		{"zero slot duration", services.SlotQuery{ItemID: "1"}, errors.ErrInvalidInput},
		{"inverted interval", services.ConflictQuery{Intervals: []model.Interval{interval("a", 3, 1, 1)}}, errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Execute(ctx, tt.query)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestExecute_Budget(t *testing.T) {
	e := refreshedEngine(t)
	ctx := context.Background()

	result, err := e.Execute(ctx, services.BudgetQuery{Budget: 150})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, ids(result.Items))
	require.NotNil(t, result.Budget)
	assert.Equal(t, 9.0, result.Budget.TotalValue)
	assert.Equal(t, 150, result.Budget.TotalCost)
	assert.Equal(t, 150.0, result.Budget.TotalPrice)
	assert.Equal(t, 150, result.Budget.BudgetUnits)

	result, err = e.Execute(ctx, services.BudgetQuery{Budget: 150, ItemIDs: []string{"2", "3", "2"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "3"}, ids(result.Items))
	assert.Equal(t, 8.0, result.Budget.TotalValue)

	result, err = e.Execute(ctx, services.BudgetQuery{Budget: 0})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 0, result.Total)
}

func TestExecute_BudgetRejectsOversizedProblem(t *testing.T) {
	e := newTestEngine(t, source.NewStatic("static", sampleItems()), func(o *Options) {
		o.Settings.MaxKnapsackCells = 300
	})
	ctx := context.Background()
	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	// 3 candidates * 151 units
	_, err = e.Execute(ctx, services.BudgetQuery{Budget: 150})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "coarser cost resolution")

	// 2 candidates * 101 units fits
	result, err := e.Execute(ctx, services.BudgetQuery{Budget: 100, ItemIDs: []string{"2", "3"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2"}, ids(result.Items))

	settings := e.Settings()
	settings.CostResolution = 10
	_, err = e.UpdateSettings(settings)
	require.NoError(t, err)
	_, err = e.Execute(ctx, services.BudgetQuery{Budget: 150})
	assert.NoError(t, err, "a coarser resolution shrinks the problem")
}

func TestExecute_Duration(t *testing.T) {
	e := refreshedEngine(t)
	ctx := context.Background()

	result, err := e.Execute(ctx, services.DurationQuery{ItemID: "1", Budget: 99})
	require.NoError(t, err)
	assert.Nil(t, result.Duration)
	assert.Empty(t, result.Items)

	result, err = e.Execute(ctx, services.DurationQuery{
		ItemID:    "2",
		Budget:    500,
		Discounts: []budget.Discount{{MinDays: 3, Percent: 10}},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Duration)
	assert.GreaterOrEqual(t, result.Duration.Days, 3)
	assert.Equal(t, 10.0, result.Duration.DiscountPercent)
	assert.LessOrEqual(t, result.Duration.TotalPrice, 500.0)
	assert.Equal(t, []string{"2"}, ids(result.Items))
}

func TestExecute_Conflicts(t *testing.T) {
	e := refreshedEngine(t)

	result, err := e.Execute(context.Background(), services.ConflictQuery{
		Intervals: []model.Interval{
			interval("a", 0, 3, 10),
			interval("b", 2, 5, 30),
			interval("c", 6, 8, 5),
		},
		Resolve: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Version)
	require.Len(t, result.Conflicts, 1)
	assert.Len(t, result.Conflicts[0], 2)
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, "b", result.Resolutions[0].Kept.ID)
}

func TestExecute_SlotReadsBookingsFromSource(t *testing.T) {
	loader := bookingLoader{
		Static:   source.NewStatic("static", sampleItems()),
		bookings: map[string][]model.Interval{"1": {interval("x", 1, 3, 0)}},
	}
	e := newTestEngine(t, loader)
	_, err := e.Refresh(context.Background())
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), services.SlotQuery{ItemID: "1", Duration: 24 * time.Hour, Now: day0})
	require.NoError(t, err)
	require.NotNil(t, result.Slot)
	assert.Equal(t, day0, result.Slot.Start)
	assert.Equal(t, 100.0, result.Slot.Score)

	// a one-day gap cannot hold two days, so the slot follows the booking
	result, err = e.Execute(context.Background(), services.SlotQuery{ItemID: "1", Duration: 48 * time.Hour, Now: day0})
	require.NoError(t, err)
	assert.Equal(t, day0.AddDate(0, 0, 3), result.Slot.Start)

	// explicit bookings take precedence over the source
	result, err = e.Execute(context.Background(), services.SlotQuery{
		ItemID:   "1",
		Duration: 24 * time.Hour,
		Existing: []model.Interval{interval("y", 0, 2, 0)},
		Now:      day0,
	})
	require.NoError(t, err)
	assert.Equal(t, day0.AddDate(0, 0, 2), result.Slot.Start)
}

func TestUpdateSettings(t *testing.T) {
	e := refreshedEngine(t)
	ctx := context.Background()

	result, err := e.Execute(ctx, services.PrefixQuery{Prefix: "tra"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, ids(result.Items))

	settings := e.Settings()
	settings.DefaultLimit = 1
	reindexed, err := e.UpdateSettings(settings)
	require.NoError(t, err)
	assert.False(t, reindexed)

	result, err = e.Execute(ctx, services.SortQuery{Field: "price"})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)

	settings.MinKeywordLength = 3
	reindexed, err = e.UpdateSettings(settings)
	require.NoError(t, err)
	assert.True(t, reindexed)
	assert.Equal(t, 3, e.Settings().MinKeywordLength)

	settings.CostResolution = -1
	_, err = e.UpdateSettings(settings)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Equal(t, 1.0, e.Settings().CostResolution)
}

func TestCatalogStatsAndDashboard(t *testing.T) {
	e := refreshedEngine(t)
	ctx := context.Background()

	stats, err := e.CatalogStats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ItemCount)
	assert.Equal(t, uint64(1), stats.Version)

	_, err = e.Execute(ctx, services.PrefixQuery{Prefix: "comb"})
	require.NoError(t, err)
	_, err = e.Execute(ctx, services.TopKQuery{})
	require.Error(t, err)

	dashboard, err := e.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, 2, dashboard.TotalQueries)
	assert.Equal(t, 3, dashboard.Catalog.ItemCount)
}
