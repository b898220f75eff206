// Package subs is the subscription registry: a per-asset tier catalog and a
// per-(asset,subscriber) table of time-boxed subscriptions. A subscription
// is active purely by having a record whose expiry lies in the future;
// expiry is computed at read time and nothing sweeps expired rows.
package subs

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

// Duration selects a subscription term. Terms are fixed spans, not
// calendar-aware.
type Duration string

const (
	Week  Duration = "WEEK"
	Month Duration = "MONTH"
	Year  Duration = "YEAR"
)

// ParseDuration validates a wire-format duration.
func ParseDuration(s string) (Duration, error) {
	switch Duration(s) {
	case Week, Month, Year:
		return Duration(s), nil
	}
	return "", fmt.Errorf("unknown duration %q: %w", s, errs.ErrInvalidArgument)
}

// Span returns the fixed time span of the duration (WEEK=7d, MONTH=30d,
// YEAR=365d).
func (d Duration) Span() time.Duration {
	switch d {
	case Week:
		return 7 * 24 * time.Hour
	case Month:
		return 30 * 24 * time.Hour
	case Year:
		return 365 * 24 * time.Hour
	}
	return 0
}

// Tier is one named subscription plan of an asset.
type Tier struct {
	AssetID    addr.Address `json:"asset_id"`
	Name       string       `json:"name"`
	WeekPrice  uint64       `json:"week_price"`
	MonthPrice uint64       `json:"month_price"`
	YearPrice  uint64       `json:"year_price"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// PriceFor returns the tier price for the duration.
func (t Tier) PriceFor(d Duration) (uint64, error) {
	switch d {
	case Week:
		return t.WeekPrice, nil
	case Month:
		return t.MonthPrice, nil
	case Year:
		return t.YearPrice, nil
	}
	return 0, fmt.Errorf("unknown duration %q: %w", d, errs.ErrInvalidArgument)
}

// Subscription is one live record. At most one exists per
// (asset, subscriber) pair; a new one cannot be created until the existing
// one is cancelled.
type Subscription struct {
	AssetID    addr.Address `json:"asset_id"`
	Subscriber addr.Address `json:"subscriber"`
	Tier       string       `json:"tier"`
	StartedAt  time.Time    `json:"started_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

// ActiveAt reports whether the record grants access at the given instant.
// Access ends exactly at the expiry instant.
func (s Subscription) ActiveAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
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

// CreateTier adds a named tier to the asset's catalog. Names are unique per
// asset.
func (s *Store) CreateTier(ctx context.Context, q pgdb.Querier, asset addr.Address, name string, week, month, year uint64) error {
	if name == "" {
		return fmt.Errorf("tier name is required: %w", errs.ErrInvalidArgument)
	}
	_, err := q.Exec(ctx, `
		INSERT INTO subscription_tiers (asset_id, name, week_price, month_price, year_price)
		VALUES ($1, $2, $3, $4, $5)
	`, string(asset), name, int64(week), int64(month), int64(year))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tier %q on asset %s: %w", name, asset, errs.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create tier %q on %s: %w", name, asset, err)
	}
	s.log.Info("subs: tier created", "asset", asset, "tier", name)
	return nil
}

// UpdateTier replaces the prices of an existing tier.
func (s *Store) UpdateTier(ctx context.Context, q pgdb.Querier, asset addr.Address, name string, week, month, year uint64) error {
	tag, err := q.Exec(ctx, `
		UPDATE subscription_tiers
		SET week_price = $3, month_price = $4, year_price = $5, updated_at = NOW()
		WHERE asset_id = $1 AND name = $2
	`, string(asset), name, int64(week), int64(month), int64(year))
	if err != nil {
		return fmt.Errorf("failed to update tier %q on %s: %w", name, asset, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tier %q on asset %s: %w", name, asset, errs.ErrNotFound)
	}
	s.log.Info("subs: tier updated", "asset", asset, "tier", name)
	return nil
}

// Tier returns one tier of the asset's catalog.
func (s *Store) Tier(ctx context.Context, q pgdb.Querier, asset addr.Address, name string) (*Tier, error) {
	var t Tier
	var assetID string
	var week, month, year int64
	err := q.QueryRow(ctx, `
		SELECT asset_id, name, week_price, month_price, year_price, created_at, updated_at
		FROM subscription_tiers WHERE asset_id = $1 AND name = $2
	`, string(asset), name).Scan(&assetID, &t.Name, &week, &month, &year, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tier %q on asset %s: %w", name, asset, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read tier %q on %s: %w", name, asset, err)
	}
	t.AssetID = addr.Address(assetID)
	t.WeekPrice = uint64(week)
	t.MonthPrice = uint64(month)
	t.YearPrice = uint64(year)
	return &t, nil
}

// Tiers lists the asset's catalog in creation order.
func (s *Store) Tiers(ctx context.Context, q pgdb.Querier, asset addr.Address) ([]Tier, error) {
	rows, err := q.Query(ctx, `
		SELECT asset_id, name, week_price, month_price, year_price, created_at, updated_at
		FROM subscription_tiers WHERE asset_id = $1
		ORDER BY created_at, name
	`, string(asset))
	if err != nil {
		return nil, fmt.Errorf("failed to list tiers of %s: %w", asset, err)
	}
	defer rows.Close()

	var out []Tier
	for rows.Next() {
		var t Tier
		var assetID string
		var week, month, year int64
		if err := rows.Scan(&assetID, &t.Name, &week, &month, &year, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tier: %w", err)
		}
		t.AssetID = addr.Address(assetID)
		t.WeekPrice = uint64(week)
		t.MonthPrice = uint64(month)
		t.YearPrice = uint64(year)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get returns the subscription record for the pair, expired or not.
func (s *Store) Get(ctx context.Context, q pgdb.Querier, asset, subscriber addr.Address) (*Subscription, error) {
	var sub Subscription
	var assetID, subAddr string
	err := q.QueryRow(ctx, `
		SELECT asset_id, subscriber, tier, started_at, expires_at
		FROM subscriptions WHERE asset_id = $1 AND subscriber = $2
	`, string(asset), string(subscriber)).Scan(&assetID, &subAddr, &sub.Tier, &sub.StartedAt, &sub.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subscription of %s to asset %s: %w", subscriber, asset, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read subscription of %s to %s: %w", subscriber, asset, err)
	}
	sub.AssetID = addr.Address(assetID)
	sub.Subscriber = addr.Address(subAddr)
	return &sub, nil
}

// Insert records a new subscription. The primary key enforces exclusivity:
// while any record exists for the pair, even an expired one, inserting
// aborts and the caller must cancel first.
func (s *Store) Insert(ctx context.Context, q pgdb.Querier, sub Subscription) error {
	_, err := q.Exec(ctx, `
		INSERT INTO subscriptions (asset_id, subscriber, tier, started_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, string(sub.AssetID), string(sub.Subscriber), sub.Tier, sub.StartedAt, sub.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("subscription of %s to asset %s: %w", sub.Subscriber, sub.AssetID, errs.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	s.log.Debug("subs: inserted", "asset", sub.AssetID, "subscriber", sub.Subscriber, "tier", sub.Tier)
	return nil
}

// Delete removes the record outright. No refund, no grace period.
func (s *Store) Delete(ctx context.Context, q pgdb.Querier, asset, subscriber addr.Address) error {
	tag, err := q.Exec(ctx, `
		DELETE FROM subscriptions WHERE asset_id = $1 AND subscriber = $2
	`, string(asset), string(subscriber))
	if err != nil {
		return fmt.Errorf("failed to delete subscription of %s to %s: %w", subscriber, asset, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription of %s to asset %s: %w", subscriber, asset, errs.ErrNotFound)
	}
	s.log.Debug("subs: deleted", "asset", asset, "subscriber", subscriber)
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
