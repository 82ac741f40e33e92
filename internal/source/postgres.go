package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/model"
)

// PostgresConfig holds connection settings for the catalog database.
type PostgresConfig struct {
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port" validate:"omitempty,min=1,max=65535"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Database       string        `koanf:"database"`
	SSLMode        string        `koanf:"sslmode"`
	MaxConnections int           `koanf:"max_connections" validate:"gte=0"`
	MaxIdle        int           `koanf:"max_idle" validate:"gte=0"`
	ItemsTable     string        `koanf:"items_table"`
	BookingsTable  string        `koanf:"bookings_table"`
	QueryTimeout   time.Duration `koanf:"query_timeout"`
}

// DSN renders the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// OpenPostgres opens a pooled connection. It does not ping.
func OpenPostgres(cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

const (
	DefaultItemsTable    = "harvesters"
	DefaultBookingsTable = "rentals"
)

// PostgresLoader reads items from the harvesters table and bookings from rentals.
type PostgresLoader struct {
	db            *sql.DB
	itemsTable    string
	bookingsTable string
	timeout       time.Duration
}

// NewPostgresLoader validates the table names, which are interpolated into SQL.
func NewPostgresLoader(db *sql.DB, cfg PostgresConfig) (*PostgresLoader, error) {
	if db == nil {
		return nil, fmt.Errorf("postgres db cannot be nil")
	}
	items, bookings := cfg.ItemsTable, cfg.BookingsTable
	if items == "" {
		items = DefaultItemsTable
	}
	if bookings == "" {
		bookings = DefaultBookingsTable
	}
	for _, name := range []string{items, bookings} {
		if !identifierPattern.MatchString(name) {
			return nil, errors.NewValidationError("table", fmt.Sprintf("invalid table name '%s'", name))
		}
	}
	return &PostgresLoader{db: db, itemsTable: items, bookingsTable: bookings, timeout: cfg.QueryTimeout}, nil
}

func (l *PostgresLoader) Name() string { return string(KindPostgres) }

func (l *PostgresLoader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout > 0 {
		return context.WithTimeout(ctx, l.timeout)
	}
	return context.WithCancel(ctx)
}

func (l *PostgresLoader) itemsQuery() string {
	return `SELECT id, name, description, price_per_day, rating, rental_count, latitude, longitude, available FROM ` +
		l.itemsTable + ` ORDER BY id`
}

func (l *PostgresLoader) bookingsQuery() string {
	return `SELECT id, harvester_id, rent_date, return_date, total_price FROM ` +
		l.bookingsTable + ` WHERE harvester_id = $1 ORDER BY rent_date`
}

// Load reads every item ordered by id. Latitude and longitude become a
// location only when both are present.
func (l *PostgresLoader) Load(ctx context.Context) ([]model.Item, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, l.itemsQuery())
	if err != nil {
		return nil, errors.NewSourceError(l.Name(), fmt.Errorf("query items: %w", err))
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		var (
			item        model.Item
			description sql.NullString
			rating      sql.NullFloat64
			rentalCount sql.NullInt64
			lat, lon    sql.NullFloat64
			available   sql.NullBool
		)
		if err := rows.Scan(&item.ID, &item.Name, &description, &item.PricePerDay, &rating, &rentalCount, &lat, &lon, &available); err != nil {
			return nil, errors.NewSourceError(l.Name(), fmt.Errorf("scan item: %w", err))
		}
		item.Description = description.String
		if rating.Valid {
			item.Rating = model.Float64Ptr(rating.Float64)
		}
		if rentalCount.Valid {
			item.RentalCount = model.IntPtr(int(rentalCount.Int64))
		}
		if lat.Valid && lon.Valid {
			item.Location = &model.GeoPoint{Latitude: lat.Float64, Longitude: lon.Float64}
		}
		if available.Valid {
			item.Available = model.BoolPtr(available.Bool)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewSourceError(l.Name(), fmt.Errorf("iterate items: %w", err))
	}
	return items, nil
}

// Bookings reads the rentals of one item as intervals valued at their total price.
func (l *PostgresLoader) Bookings(ctx context.Context, itemID string) ([]model.Interval, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, l.bookingsQuery(), itemID)
	if err != nil {
		return nil, errors.NewSourceError(l.Name(), fmt.Errorf("query bookings: %w", err))
	}
	defer rows.Close()

	bookings := make([]model.Interval, 0)
	for rows.Next() {
		var (
			iv    model.Interval
			value sql.NullFloat64
		)
		if err := rows.Scan(&iv.ID, &iv.ItemID, &iv.Start, &iv.End, &value); err != nil {
			return nil, errors.NewSourceError(l.Name(), fmt.Errorf("scan booking: %w", err))
		}
		iv.RequestID = iv.ID
		iv.Value = value.Float64
		bookings = append(bookings, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewSourceError(l.Name(), fmt.Errorf("iterate bookings: %w", err))
	}
	return bookings, nil
}

// Ping checks the connection.
func (l *PostgresLoader) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
