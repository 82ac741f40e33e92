// Package source loads the rental catalog from the systems that own it.
package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/harvesthub/catalog-engine/internal/logging"
	"github.com/harvesthub/catalog-engine/model"
)

// Loader reads the full catalog in catalog order.
type Loader interface {
	Name() string
	Load(ctx context.Context) ([]model.Item, error)
}

// BookingSource reads the existing bookings of one item.
type BookingSource interface {
	Bookings(ctx context.Context, itemID string) ([]model.Interval, error)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func itemValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Rejected describes an item dropped by Sanitize.
type Rejected struct {
	Index  int    `json:"index"`
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// Sanitize drops items that fail validation or repeat an earlier ID, keeping
// the order of the rest. Out-of-range coordinates only lose the location.
func Sanitize(source string, items []model.Item) ([]model.Item, []Rejected) {
	v := itemValidator()
	kept := make([]model.Item, 0, len(items))
	rejected := make([]Rejected, 0)
	seen := make(map[string]struct{}, len(items))

	for i, item := range items {
		if item.Location != nil && !item.Location.Valid() {
			item.Location = nil
		}
		if err := v.Struct(item); err != nil {
			rejected = append(rejected, Rejected{Index: i, ItemID: item.ID, Reason: err.Error()})
			continue
		}
		if _, dup := seen[item.ID]; dup {
			rejected = append(rejected, Rejected{Index: i, ItemID: item.ID, Reason: "duplicate id"})
			continue
		}
		seen[item.ID] = struct{}{}
		kept = append(kept, item)
	}

	for _, r := range rejected {
		logging.Warn().Str("source", source).Int("index", r.Index).Str("item_id", r.ItemID).Str("reason", r.Reason).Msg("catalog item rejected")
	}
	return kept, rejected
}

// Static serves a fixed catalog. It backs tests and the empty-source fallback.
type Static struct {
	name  string
	items []model.Item
}

func NewStatic(name string, items []model.Item) *Static {
	return &Static{name: name, items: items}
}

func (s *Static) Name() string { return s.name }

func (s *Static) Load(ctx context.Context) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Kind names the configured catalog backend.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindFile     Kind = "file"
)

func (k Kind) Validate() error {
	switch k {
	case KindPostgres, KindFile:
		return nil
	}
	return fmt.Errorf("unknown catalog source kind '%s' (use postgres or file)", k)
}
