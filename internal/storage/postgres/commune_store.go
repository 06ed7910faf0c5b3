package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

const communeSchema = `
CREATE TABLE IF NOT EXISTS communes (
	key    text PRIMARY KEY,
	name   text NOT NULL,
	region text NOT NULL
)`

// FindCommune returns postal.ErrNotFound when no commune has the normalized key.
func (s *AddressStore) FindCommune(ctx context.Context, key string) (postal.Commune, error) {
	var c postal.Commune
	err := s.pool.QueryRow(ctx, `SELECT key, name, region FROM communes WHERE key = $1`, key).
		Scan(&c.Key, &c.Name, &c.Region)
	if errors.Is(err, pgx.ErrNoRows) {
		return postal.Commune{}, postal.ErrNotFound
	}
	if err != nil {
		return postal.Commune{}, fmt.Errorf("select commune: %w", err)
	}
	return c, nil
}

// SaveCommunes inserts the communes in one statement. Keys already present
// keep their stored row.
func (s *AddressStore) SaveCommunes(ctx context.Context, communes []postal.Commune) error {
	if len(communes) == 0 {
		return nil
	}
	keys := make([]string, len(communes))
	names := make([]string, len(communes))
	regions := make([]string, len(communes))
	for i, c := range communes {
		if c.Key == "" {
			return fmt.Errorf("commune %q has no key", c.Name)
		}
		keys[i], names[i], regions[i] = c.Key, c.Name, c.Region
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO communes (key, name, region)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[])
ON CONFLICT (key) DO NOTHING`, keys, names, regions)
	if err != nil {
		return fmt.Errorf("insert communes: %w", err)
	}
	return nil
}
