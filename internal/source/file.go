package source

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/harvesthub/catalog-engine/internal/errors"
	"github.com/harvesthub/catalog-engine/model"
)

// FileLoader reads the catalog from a JSON file. The file holds either an
// array of items or an object with an "items" array.
type FileLoader struct {
	path string
}

func NewFileLoader(path string) (*FileLoader, error) {
	if path == "" {
		return nil, errors.NewValidationError("path", "catalog file path is required")
	}
	return &FileLoader{path: path}, nil
}

func (l *FileLoader) Name() string { return string(KindFile) }

func (l *FileLoader) Load(ctx context.Context) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, errors.NewSourceError(l.Name(), fmt.Errorf("read %s: %w", l.path, err))
	}
	items, err := DecodeItems(data)
	if err != nil {
		return nil, errors.NewSourceError(l.Name(), fmt.Errorf("decode %s: %w", l.path, err))
	}
	return items, nil
}

type catalogDocument struct {
	Items []model.Item `json:"items"`
}

// DecodeItems parses a JSON catalog in either accepted shape.
func DecodeItems(data []byte) ([]model.Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []model.Item{}, nil
	}

	if trimmed[0] == '[' {
		var items []model.Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		if items == nil {
			items = []model.Item{}
		}
		return items, nil
	}

	var doc catalogDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	if doc.Items == nil {
		doc.Items = []model.Item{}
	}
	return doc.Items, nil
}

// WriteFile stores items in the array form read by FileLoader.
func WriteFile(path string, items []model.Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
