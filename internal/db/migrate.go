package db

import (
	"context"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS places (
		id UUID PRIMARY KEY,
		seq BIGSERIAL NOT NULL,
		address VARCHAR(100),
		code VARCHAR(20) NOT NULL,
		location_lat DOUBLE PRECISION NOT NULL,
		location_lon DOUBLE PRECISION NOT NULL,
		name VARCHAR(50),
		reward_checkin_points INTEGER NOT NULL,
		type VARCHAR(50) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS place_tags (
		place_id UUID NOT NULL REFERENCES places(id) ON DELETE CASCADE,
		tag_id BIGINT NOT NULL REFERENCES tags(id),
		PRIMARY KEY (place_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS places_code_idx ON places (code)`,
	`CREATE INDEX IF NOT EXISTS place_tags_tag_idx ON place_tags (tag_id)`,
}

// Migrate creates the tables backing the place repository.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
