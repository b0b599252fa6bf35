package clickhouse

import (
	"context"
	"fmt"
)

// CatalogTableDDL creates the catalog table read by Load.
const CatalogTableDDL = `
CREATE TABLE IF NOT EXISTS catalog_items (
	id             String,
	component      LowCardinality(String),
	vendor         LowCardinality(String),
	price          Decimal(18, 2),
	lead_time_days UInt32,
	reliability    Float64,
	specs          Map(String, Float64),
	position       UInt32,
	updated_at     DateTime64(3) DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY id
`

// DecisionsTableDDL creates the append-only decision audit log.
const DecisionsTableDDL = `
CREATE TABLE IF NOT EXISTS procurement_decisions (
	id                  UUID,
	request_id          String,
	component           LowCardinality(String),
	selected_id         String,
	vendor              LowCardinality(String),
	price               Decimal(18, 2),
	score               Float64,
	candidate_count     UInt32,
	tools_called        UInt32,
	justification       String,
	justification_error String,
	policy_decision     LowCardinality(String),
	request_json        String,
	total_latency       Float64,
	created_at          DateTime64(3)
) ENGINE = MergeTree
PARTITION BY toYYYYMM(created_at)
ORDER BY (component, created_at)
`

// Migrate creates the tables this package reads and writes.
func (s *Store) Migrate(ctx context.Context) error {
	for name, ddl := range map[string]string{
		"catalog_items":         CatalogTableDDL,
		"procurement_decisions": DecisionsTableDDL,
	} {
		if err := s.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
	}
	return nil
}
