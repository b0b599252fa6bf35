package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.json
var defaultCatalog []byte

// Source loads the full item list from a backing store.
type Source interface {
	Load(ctx context.Context) ([]Item, error)
}

// Load reads every item from src and builds a catalog.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	items, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return New(items)
}

// LoadDefault builds the catalog shipped with the binary.
func LoadDefault() (*Catalog, error) {
	items, err := decode(defaultCatalog, ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedded catalog: %w", err)
	}
	return New(items)
}

// FileSource reads a catalog from a JSON or YAML file.
type FileSource struct {
	Path string
}

// NewFileSource creates a file-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Load(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	items, err := decode(data, strings.ToLower(filepath.Ext(s.Path)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.Path, err)
	}
	return items, nil
}

// StaticSource serves a fixed item list.
type StaticSource []Item

func (s StaticSource) Load(context.Context) ([]Item, error) {
	out := make([]Item, len(s))
	copy(out, s)
	return out, nil
}

func decode(data []byte, ext string) ([]Item, error) {
	var items []Item
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
	}
	return items, nil
}
