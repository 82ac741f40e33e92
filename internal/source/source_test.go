package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/model"
)

var itemColumns = []string{"id", "name", "description", "price_per_day", "rating", "rental_count", "latitude", "longitude", "available"}

func newMockLoader(t *testing.T) (*PostgresLoader, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	loader, err := NewPostgresLoader(db, PostgresConfig{})
	require.NoError(t, err)
	return loader, mock
}

func TestPostgresLoader_Load(t *testing.T) {
	loader, mock := newMockLoader(t)

	rows := sqlmock.NewRows(itemColumns).
		AddRow("1", "Combine X", "Large combine", 500.0, 4.5, int64(10), 10.0, 20.0, true).
		AddRow("2", "Tractor Z", nil, 400.0, nil, nil, 12.0, nil, nil)
	mock.ExpectQuery(`SELECT id, name, description, price_per_day, rating, rental_count, latitude, longitude, available FROM harvesters ORDER BY id`).
		WillReturnRows(rows)

	items, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Combine X", items[0].Name)
	assert.Equal(t, 4.5, *items[0].Rating)
	assert.Equal(t, 10, *items[0].RentalCount)
	assert.Equal(t, &model.GeoPoint{Latitude: 10, Longitude: 20}, items[0].Location)
	assert.True(t, *items[0].Available)

	assert.Empty(t, items[1].Description)
	assert.Nil(t, items[1].Rating)
	assert.Nil(t, items[1].RentalCount)
	assert.Nil(t, items[1].Location, "a lone latitude is not a location")
	assert.Nil(t, items[1].Available)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoader_LoadFailure(t *testing.T) {
	loader, mock := newMockLoader(t)
	mock.ExpectQuery(`SELECT .* FROM harvesters`).WillReturnError(errors.New("connection refused"))

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSourceUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoader_Bookings(t *testing.T) {
	loader, mock := newMockLoader(t)
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "harvester_id", "rent_date", "return_date", "total_price"}).
		AddRow("r1", "1", start, start.Add(48*time.Hour), 1000.0).
		AddRow("r2", "1", start.Add(72*time.Hour), start.Add(96*time.Hour), nil)
	mock.ExpectQuery(`SELECT id, harvester_id, rent_date, return_date, total_price FROM rentals WHERE harvester_id = \$1 ORDER BY rent_date`).
		WithArgs("1").
		WillReturnRows(rows)

	bookings, err := loader.Bookings(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, 48*time.Hour, bookings[0].Duration())
	assert.Equal(t, 1000.0, bookings[0].Value)
	assert.Zero(t, bookings[1].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresLoader_RejectsUnsafeTable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewPostgresLoader(db, PostgresConfig{ItemsTable: "harvesters; DROP TABLE users"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = NewPostgresLoader(db, PostgresConfig{ItemsTable: "public.harvesters"})
	assert.NoError(t, err)
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5432, User: "bot", Password: "secret", Database: "harvest"}
	assert.Equal(t, "host=db port=5432 user=bot password=secret dbname=harvest sslmode=disable", cfg.DSN())
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	items := []model.Item{
		{ID: "1", Name: "Combine X", PricePerDay: 500, Rating: model.Float64Ptr(4.5)},
		{ID: "2", Name: "Combine Y", PricePerDay: 300},
	}

	arrayPath := filepath.Join(dir, "array.json")
	require.NoError(t, WriteFile(arrayPath, items))
	loader, err := NewFileLoader(arrayPath)
	require.NoError(t, err)
	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, items, got)

	objectPath := filepath.Join(dir, "object.json")
	require.NoError(t, os.WriteFile(objectPath, []byte(`{"items":[{"id":"9","name":"Baler","price_per_day":80}]}`), 0600))
	loader, err = NewFileLoader(objectPath)
	require.NoError(t, err)
	got, err = loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Baler", got[0].Name)

	missing, err := NewFileLoader(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	_, err = missing.Load(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrSourceUnavailable))

	_, err = NewFileLoader("")
	assert.Error(t, err)
}

func TestDecodeItems_Empty(t *testing.T) {
	items, err := DecodeItems([]byte("  "))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = DecodeItems([]byte("{not json"))
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	items := []model.Item{
		{ID: "1", Name: "ok", PricePerDay: 10},
		{ID: "", Name: "no id"},
		{ID: "3", Name: "negative", PricePerDay: -1},
		{ID: "4", Name: "bad rating", Rating: model.Float64Ptr(7)},
		{ID: "1", Name: "duplicate"},
		{ID: "6", Name: "bad location", Location: &model.GeoPoint{Latitude: 95, Longitude: 0}},
	}

	kept, rejected := Sanitize("test", items)
	require.Len(t, kept, 2)
	assert.Equal(t, "1", kept[0].ID)
	assert.Equal(t, "6", kept[1].ID)
	assert.Nil(t, kept[1].Location)

	require.Len(t, rejected, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{rejected[0].Index, rejected[1].Index, rejected[2].Index, rejected[3].Index})
	assert.Equal(t, "duplicate id", rejected[3].Reason)
}

type countingLoader struct {
	items []model.Item
	err   error
	calls int
}

func (l *countingLoader) Name() string { return "counting" }

func (l *countingLoader) Load(context.Context) ([]model.Item, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.items, nil
}

func newCache(t *testing.T, inner Loader) (*CachedLoader, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache, err := NewCachedLoader(inner, client, "", time.Minute)
	require.NoError(t, err)
	return cache, mr
}

func TestCachedLoader_ReadThroughAndHit(t *testing.T) {
	inner := &countingLoader{items: []model.Item{
		{ID: "1", Name: "Combine X", PricePerDay: 500, Rating: model.Float64Ptr(4.5), Location: &model.GeoPoint{Latitude: 1, Longitude: 2}},
	}}
	cache, mr := newCache(t, inner)
	ctx := context.Background()

	first, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, inner.items, first)
	assert.True(t, mr.Exists(DefaultCacheKey))
	assert.True(t, mr.Exists(DefaultCacheKey+":stale"))

	second, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, inner.items, second)
	assert.Equal(t, 1, inner.calls, "the second load is served from redis")

	mr.FastForward(2 * time.Minute)
	_, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "an expired entry reads through")

	require.NoError(t, cache.Invalidate(ctx))
	_, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCachedLoader_ServesStaleOnSourceFailure(t *testing.T) {
	inner := &countingLoader{items: []model.Item{{ID: "1", Name: "Combine X"}}}
	cache, mr := newCache(t, inner)
	ctx := context.Background()

	_, err := cache.Load(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	inner.err = apperrors.NewSourceError("counting", errors.New("down"))

	items, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Combine X", items[0].Name)

	mr.Del(DefaultCacheKey + ":stale")
	_, err = cache.Load(ctx)
	assert.True(t, errors.Is(err, apperrors.ErrSourceUnavailable))
}

func TestCachedLoader_RedisDownFallsThrough(t *testing.T) {
	inner := &countingLoader{items: []model.Item{{ID: "1", Name: "Combine X"}}}
	cache, mr := newCache(t, inner)
	mr.Close()

	items, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "counting+redis", cache.Name())
}
