// Package assets is the thin registry behind the ownership oracle: which
// account owns which asset identity. The engine consults it for the
// subject-fee beneficiary and for owner-gated tier management; everything
// else about creator identity objects lives outside this system.
package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/pgdb"
)

// Asset is one registered asset identity.
type Asset struct {
	ID        addr.Address `json:"id"`
	Owner     addr.Address `json:"owner"`
	Label     string       `json:"label"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
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

func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{log: cfg.Logger}, nil
}

// Register records an asset identity and its owning account.
func (s *Store) Register(ctx context.Context, q pgdb.Querier, id, owner addr.Address, label string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO assets (asset_id, owner_addr, label)
		VALUES ($1, $2, $3)
	`, string(id), string(owner), label)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("asset %s: %w", id, errs.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to register asset %s: %w", id, err)
	}
	s.log.Info("assets: registered", "asset", id, "owner", owner)
	return nil
}

// Get returns the asset record.
func (s *Store) Get(ctx context.Context, q pgdb.Querier, id addr.Address) (*Asset, error) {
	var a Asset
	var assetID, owner string
	err := q.QueryRow(ctx, `
		SELECT asset_id, owner_addr, label, created_at, updated_at
		FROM assets WHERE asset_id = $1
	`, string(id)).Scan(&assetID, &owner, &a.Label, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read asset %s: %w", id, err)
	}
	a.ID = addr.Address(assetID)
	a.Owner = addr.Address(owner)
	return &a, nil
}

// Owner returns the owning account of an asset.
func (s *Store) Owner(ctx context.Context, q pgdb.Querier, id addr.Address) (addr.Address, error) {
	a, err := s.Get(ctx, q, id)
	if err != nil {
		return "", err
	}
	return a.Owner, nil
}

// IsOwner reports whether account owns the asset. Unknown assets are simply
// not owned.
func (s *Store) IsOwner(ctx context.Context, q pgdb.Querier, id, account addr.Address) (bool, error) {
	owner, err := s.Owner(ctx, q, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return owner == account, nil
}

// TransferOwnership reassigns the asset to a new owner. Only the current
// owner may do this.
func (s *Store) TransferOwnership(ctx context.Context, q pgdb.Querier, id, caller, newOwner addr.Address) error {
	owner, err := s.Owner(ctx, q, id)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("account %s does not own asset %s: %w", caller, id, errs.ErrUnauthorized)
	}

	_, err = q.Exec(ctx, `
		UPDATE assets SET owner_addr = $2, updated_at = NOW() WHERE asset_id = $1
	`, string(id), string(newOwner))
	if err != nil {
		return fmt.Errorf("failed to transfer asset %s: %w", id, err)
	}
	s.log.Info("assets: ownership transferred", "asset", id, "from", caller, "to", newOwner)
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
