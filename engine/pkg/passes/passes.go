// Package passes is the per-asset pass supply ledger: one supply/last-price
// record per asset, created lazily on first buy, plus the holdings table
// recording who holds how many units. Minting and burning of units is gated
// by a capability issued exactly once per store, so only the buy/sell path
// can move supply.
package passes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/pgdb"
)

// PassConfig is the per-asset supply record.
type PassConfig struct {
	AssetID   addr.Address `json:"asset_id"`
	Supply    uint64       `json:"supply"`
	LastPrice uint64       `json:"last_price"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// MintCap authorizes mint/burn of pass units. NewStore issues exactly one;
// holders of the store alone cannot move supply.
type MintCap struct {
	store *Store
}

type StoreConfig struct {
	Logger *slog.Logger
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

type Store struct {
	log *slog.Logger
}

func NewStore(cfg StoreConfig) (*Store, *MintCap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	s := &Store{log: cfg.Logger}
	return s, &MintCap{store: s}, nil
}

// Get reads the supply record without locking it.
func (s *Store) Get(ctx context.Context, q pgdb.Querier, asset addr.Address) (*PassConfig, error) {
	return s.scanConfig(ctx, q, asset, false)
}

// Lock reads the supply record with a row lock, serializing concurrent
// operations on the same asset for the life of the caller's transaction.
func (s *Store) Lock(ctx context.Context, q pgdb.Querier, asset addr.Address) (*PassConfig, error) {
	return s.scanConfig(ctx, q, asset, true)
}

// LockOrCreate locks the supply record, creating it lazily on the asset's
// first buy.
func (s *Store) LockOrCreate(ctx context.Context, q pgdb.Querier, asset addr.Address) (*PassConfig, error) {
	_, err := q.Exec(ctx, `
		INSERT INTO pass_configs (asset_id) VALUES ($1)
		ON CONFLICT (asset_id) DO NOTHING
	`, string(asset))
	if err != nil {
		return nil, fmt.Errorf("failed to create pass config for %s: %w", asset, err)
	}
	return s.Lock(ctx, q, asset)
}

func (s *Store) scanConfig(ctx context.Context, q pgdb.Querier, asset addr.Address, forUpdate bool) (*PassConfig, error) {
	query := `
		SELECT asset_id, supply, last_price, created_at, updated_at
		FROM pass_configs WHERE asset_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var pc PassConfig
	var assetID string
	var supply, lastPrice int64
	err := q.QueryRow(ctx, query, string(asset)).Scan(
		&assetID, &supply, &lastPrice, &pc.CreatedAt, &pc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no passes issued for asset %s: %w", asset, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read pass config for %s: %w", asset, err)
	}
	pc.AssetID = addr.Address(assetID)
	pc.Supply = uint64(supply)
	pc.LastPrice = uint64(lastPrice)
	return &pc, nil
}

// Commit writes the new supply and last traded price for the locked asset.
func (s *Store) Commit(ctx context.Context, q pgdb.Querier, asset addr.Address, supply, lastPrice uint64) error {
	_, err := q.Exec(ctx, `
		UPDATE pass_configs
		SET supply = $2, last_price = $3, updated_at = NOW()
		WHERE asset_id = $1
	`, string(asset), int64(supply), int64(lastPrice))
	if err != nil {
		return fmt.Errorf("failed to commit pass config for %s: %w", asset, err)
	}
	return nil
}

// Mint credits units of the asset's passes to holder.
func (s *Store) Mint(ctx context.Context, q pgdb.Querier, cap *MintCap, asset, holder addr.Address, units uint64) error {
	if err := s.checkCap(cap); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `
		INSERT INTO pass_holdings (asset_id, holder, units, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (asset_id, holder) DO UPDATE
		SET units = pass_holdings.units + EXCLUDED.units, updated_at = NOW()
	`, string(asset), string(holder), int64(units))
	if err != nil {
		return fmt.Errorf("failed to mint %d passes of %s to %s: %w", units, asset, holder, err)
	}
	s.log.Debug("passes: minted", "asset", asset, "holder", holder, "units", units)
	return nil
}

// Burn debits units of the asset's passes from holder. The holder must hold
// at least that many units.
func (s *Store) Burn(ctx context.Context, q pgdb.Querier, cap *MintCap, asset, holder addr.Address, units uint64) error {
	if err := s.checkCap(cap); err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `
		UPDATE pass_holdings
		SET units = units - $3, updated_at = NOW()
		WHERE asset_id = $1 AND holder = $2 AND units >= $3
	`, string(asset), string(holder), int64(units))
	if err != nil {
		return fmt.Errorf("failed to burn %d passes of %s from %s: %w", units, asset, holder, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("holder %s does not hold %d passes of %s: %w", holder, units, asset, errs.ErrInsufficientBalance)
	}
	s.log.Debug("passes: burned", "asset", asset, "holder", holder, "units", units)
	return nil
}

// Holdings returns how many units of the asset's passes holder holds, zero
// when none.
func (s *Store) Holdings(ctx context.Context, q pgdb.Querier, asset, holder addr.Address) (uint64, error) {
	var units int64
	err := q.QueryRow(ctx, `
		SELECT units FROM pass_holdings WHERE asset_id = $1 AND holder = $2
	`, string(asset), string(holder)).Scan(&units)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read holdings of %s for %s: %w", holder, asset, err)
	}
	return uint64(units), nil
}

func (s *Store) checkCap(cap *MintCap) error {
	if cap == nil || cap.store != s {
		return fmt.Errorf("mint capability missing or issued by another ledger: %w", errs.ErrUnauthorized)
	}
	return nil
}
