// Package postgres persists resolved addresses and the commune catalogue in
// Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "postal_addresses"

// Config controls the Postgres connection pool used for address rows.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// pool is the subset of *pgxpool.Pool the store relies on. pgxmock satisfies it.
type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// AddressStore reads and writes address rows.
type AddressStore struct {
	pool  pool
	table string
}

// NewAddressStore connects to Postgres using cfg.
func NewAddressStore(ctx context.Context, cfg Config) (*AddressStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &AddressStore{pool: p, table: table}, nil
}

// NewAddressStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewAddressStoreWithPool(p pool, table string) (*AddressStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &AddressStore{pool: p, table: table}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *AddressStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks connectivity.
func (s *AddressStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the address and commune tables when missing.
func (s *AddressStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id          uuid PRIMARY KEY,
	commune     text NOT NULL,
	street      text NOT NULL,
	number      text NOT NULL,
	region      text NOT NULL DEFAULT '',
	postal_code text NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now(),
	UNIQUE (commune, street, number)
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_postal_code_idx ON %[1]s (postal_code)`, s.table),
		communeSchema,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const selectColumns = `id::text, commune, street, number, region, postal_code, created_at`

// FindAddress returns postal.ErrNotFound when no row matches key.
func (s *AddressStore) FindAddress(ctx context.Context, key postal.AddressKey) (postal.Address, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE commune = $1 AND street = $2 AND number = $3`, selectColumns, s.table)
	addr, err := scanAddress(s.pool.QueryRow(ctx, query, key.Commune, key.Street, key.Number))
	if errors.Is(err, pgx.ErrNoRows) {
		return postal.Address{}, postal.ErrNotFound
	}
	if err != nil {
		return postal.Address{}, fmt.Errorf("select address: %w", err)
	}
	return addr, nil
}

// SaveAddress inserts addr. A row stored first under the same key wins and is
// returned instead.
func (s *AddressStore) SaveAddress(ctx context.Context, addr postal.Address) (postal.Address, error) {
	if addr.ID == "" {
		return postal.Address{}, fmt.Errorf("address id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, commune, street, number, region, postal_code, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (commune, street, number) DO NOTHING`, s.table)
	tag, err := s.pool.Exec(ctx, query, addr.ID, addr.Commune, addr.Street, addr.Number, addr.Region, addr.PostalCode, addr.CreatedAt)
	if err != nil {
		return postal.Address{}, fmt.Errorf("insert address: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return addr, nil
	}
	existing, err := s.FindAddress(ctx, addr.Key())
	if err != nil {
		return postal.Address{}, fmt.Errorf("reread conflicting address: %w", err)
	}
	return existing, nil
}

// ListByCode returns every address with the given postal code, oldest first.
func (s *AddressStore) ListByCode(ctx context.Context, code string) ([]postal.Address, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE postal_code = $1 ORDER BY created_at, id`, selectColumns, s.table)
	rows, err := s.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("select by code: %w", err)
	}
	return collectAddresses(rows)
}

// ListAddresses returns a window ordered by postal code and the total row count.
func (s *AddressStore) ListAddresses(ctx context.Context, limit, offset int) ([]postal.Address, int, error) {
	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)
	if err := s.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count addresses: %w", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY postal_code, created_at, id LIMIT $1 OFFSET $2`, selectColumns, s.table)
	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list addresses: %w", err)
	}
	addrs, err := collectAddresses(rows)
	if err != nil {
		return nil, 0, err
	}
	return addrs, total, nil
}

func scanAddress(row pgx.Row) (postal.Address, error) {
	var a postal.Address
	err := row.Scan(&a.ID, &a.Commune, &a.Street, &a.Number, &a.Region, &a.PostalCode, &a.CreatedAt)
	return a, err
}

func collectAddresses(rows pgx.Rows) ([]postal.Address, error) {
	defer rows.Close()
	out := []postal.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate addresses: %w", err)
	}
	return out, nil
}
