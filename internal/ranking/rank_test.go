package ranking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/model"
)

func catalog() []model.Item {
	return []model.Item{
		{ID: "1", Name: "Combine X", PricePerDay: 500, Rating: model.Float64Ptr(4.5), RentalCount: model.IntPtr(10)},
		{ID: "2", Name: "Combine Y", PricePerDay: 300, Rating: model.Float64Ptr(4.8), RentalCount: model.IntPtr(2)},
		{ID: "3", Name: "Tractor", PricePerDay: 400},
		{ID: "4", Name: "Baler", PricePerDay: 300, Rating: model.Float64Ptr(4.5), RentalCount: model.IntPtr(1)},
	}
}

func rankedIDs(rs []Ranked) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Item.ID
	}
	return out
}

func TestParseCriterion(t *testing.T) {
	cases := map[string]Criterion{
		"price":      CriterionPrice,
		"Cheap":      CriterionPrice,
		" low ":      CriterionPrice,
		"rating":     CriterionRating,
		"best":       CriterionRating,
		"top":        CriterionRating,
		"popular":    CriterionPopular,
		"POPULARITY": CriterionPopular,
		"value":      CriterionValue,
	}
	for input, want := range cases {
		got, err := ParseCriterion(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseCriterion("fastest")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	var c Criterion
	require.NoError(t, c.UnmarshalText([]byte("best")))
	assert.Equal(t, CriterionRating, c)
	text, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "rating", string(text))
}

func TestRank_Price(t *testing.T) {
	got, err := Rank(catalog(), CriterionPrice, DefaultPopularityPolicy(), 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
	// the two 300s may come in either order with the partition sort
	assert.ElementsMatch(t, []string{"2", "4"}, rankedIDs(got[:2]))
	assert.Equal(t, []string{"3", "1"}, rankedIDs(got[2:]))
}

func TestRank_RatingIsStable(t *testing.T) {
	got, err := Rank(catalog(), CriterionRating, DefaultPopularityPolicy(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1", "4", "3"}, rankedIDs(got), "equal ratings keep catalog order; unrated sorts last")
}

func TestRank_Value(t *testing.T) {
	got, err := Rank(catalog(), CriterionValue, DefaultPopularityPolicy(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4", "1"}, rankedIDs(got), "equal ratings break ties by cheaper price")
}

func TestRank_Popular(t *testing.T) {
	got, err := Rank(catalog(), CriterionPopular, DefaultPopularityPolicy(), 3)
	require.NoError(t, err)
	// scores: 45, 9.6, 3 (defaults 3 x 1), 4.5
	assert.Equal(t, []string{"1", "2", "4"}, rankedIDs(got))
	assert.Equal(t, 45.0, got[0].Score)

	all, err := Rank(catalog(), CriterionPopular, PopularityPolicy{DefaultRating: 0, DefaultRentalCount: 1}, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4, "a zero limit falls back to the default top ten")
	assert.Equal(t, "3", all[3].Item.ID)
	assert.Zero(t, all[3].Score)
}

func TestRank_UnknownCriterion(t *testing.T) {
	_, err := Rank(catalog(), Criterion(42), DefaultPopularityPolicy(), 0)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestSortBy(t *testing.T) {
	got, err := SortBy(catalog(), "name", false, AlgorithmMerge)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "1", "2", "3"}, rankedIDs(got))

	got, err = SortBy(catalog(), "rental_count", true, AlgorithmQuick)
	require.NoError(t, err)
	assert.Equal(t, "1", got[0].Item.ID)
	assert.Equal(t, "3", got[3].Item.ID)

	_, err = SortBy(catalog(), "weight", false, AlgorithmMerge)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = ParseAlgorithm("bogo")
	assert.Error(t, err)
}

func TestPriceRange(t *testing.T) {
	got, err := PriceRange(catalog(), 300, 400)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4", "3"}, rankedIDs(got))

	got, err = PriceRange(catalog(), 301, 399)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = PriceRange(catalog(), 0, 1000)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	_, err = PriceRange(catalog(), 10, 5)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
