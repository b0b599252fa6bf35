// Package ingestion copies catalog items from a source into a writable
// store, in batches and in catalog order.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"procurement-engine/decision/catalog"
)

// DefaultBatchSize is the number of items written per insert.
const DefaultBatchSize = 1000

// ItemWriter stores catalog items. Item i of a call lands at position
// offset+i.
type ItemWriter interface {
	InsertItems(ctx context.Context, offset int, items []catalog.Item) error
}

// Importer loads a catalog source into an ItemWriter
type Importer struct {
	store     ItemWriter
	batchSize int
	logger    zerolog.Logger
}

// NewImporter creates an importer writing to store
func NewImporter(store ItemWriter) *Importer {
	return &Importer{
		store:     store,
		batchSize: DefaultBatchSize,
		logger:    log.With().Str("component", "ingestion").Logger(),
	}
}

// WithBatchSize overrides the insert batch size
func (i *Importer) WithBatchSize(n int) *Importer {
	if n > 0 {
		i.batchSize = n
	}
	return i
}

// Result tracks the outcome of an import
type Result struct {
	Items        int           `json:"items"`
	Batches      int           `json:"batches"`
	Components   int           `json:"components"`
	Vendors      int           `json:"vendors"`
	Duration     time.Duration `json:"duration"`
	Success      bool          `json:"success"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// Import reads src, validates the full item list and writes it in batches.
// Nothing is written when validation fails.
func (i *Importer) Import(ctx context.Context, src catalog.Source) (*Result, error) {
	start := time.Now()
	result := &Result{}

	cat, err := catalog.Load(ctx, src)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}

	items := cat.Items()
	result.Components = len(cat.Components())
	result.Vendors = len(cat.ListVendors())

	for offset := 0; offset < len(items); offset += i.batchSize {
		end := offset + i.batchSize
		if end > len(items) {
			end = len(items)
		}

		if err := i.store.InsertItems(ctx, offset, items[offset:end]); err != nil {
			result.ErrorMessage = fmt.Sprintf("failed to insert batch %d: %v", result.Batches, err)
			return result, fmt.Errorf("failed to insert batch %d: %w", result.Batches, err)
		}
		result.Batches++
		result.Items += end - offset
	}

	result.Success = true
	result.Duration = time.Since(start)

	i.logger.Info().
		Int("items", result.Items).
		Int("batches", result.Batches).
		Dur("duration", result.Duration).
		Msg("catalog imported")

	return result, nil
}
