// Package protocol holds the singleton protocol configuration: fee
// percentages, curve weights, and the admin/treasury/pool accounts.
// Initialization is guarded so a second init aborts instead of silently
// overwriting state, and every mutation path revalidates the fee cap and
// emits a config-changed event with the old and new values.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/curve"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/events"
	"github.com/halcyonlabs/gatehouse/engine/pkg/fees"
	"github.com/halcyonlabs/gatehouse/engine/pkg/pgdb"
)

// Config is the protocol configuration record.
type Config struct {
	Admin     addr.Address `json:"admin"`
	Treasury  addr.Address `json:"treasury"`
	Pool      addr.Address `json:"pool"`
	Fees      fees.Percents
	Curve     curve.Params
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Config) Validate() error {
	if c.Admin.IsZero() || c.Treasury.IsZero() || c.Pool.IsZero() {
		return fmt.Errorf("admin, treasury and pool accounts are required: %w", errs.ErrInvalidArgument)
	}
	if err := c.Fees.Validate(); err != nil {
		return fmt.Errorf("%s: %w", err, errs.ErrInvalidArgument)
	}
	if err := c.Curve.Validate(); err != nil {
		return fmt.Errorf("%s: %w", err, errs.ErrInvalidArgument)
	}
	return nil
}

type StoreConfig struct {
	Logger  *slog.Logger
	Journal *events.Journal
	Clock   clockwork.Clock
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Journal == nil {
		return errors.New("journal is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Store struct {
	log     *slog.Logger
	journal *events.Journal
	clock   clockwork.Clock
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{log: cfg.Logger, journal: cfg.Journal, clock: cfg.Clock}, nil
}

// Init writes the config row once. Re-initializing aborts with
// errs.ErrAlreadyExists rather than overwriting.
func (s *Store) Init(ctx context.Context, q pgdb.Querier, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		INSERT INTO protocol_config (
			id, admin_addr, treasury_addr, pool_addr,
			protocol_fee_pct, subject_fee_pct, referral_fee_pct,
			curve_weight_a, curve_weight_b, curve_weight_c,
			initial_price, sell_discount_pct
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`, string(c.Admin), string(c.Treasury), string(c.Pool),
		int64(c.Fees.Protocol), int64(c.Fees.Subject), int64(c.Fees.Referral),
		int64(c.Curve.WeightA), int64(c.Curve.WeightB), int64(c.Curve.WeightC),
		int64(c.Curve.InitialPrice), int64(c.Curve.SellDiscountPct))
	if err != nil {
		return fmt.Errorf("failed to init protocol config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("protocol config: %w", errs.ErrAlreadyExists)
	}

	s.log.Info("protocol: initialized", "admin", c.Admin, "treasury", c.Treasury)
	return nil
}

// Get reads the config row.
func (s *Store) Get(ctx context.Context, q pgdb.Querier) (*Config, error) {
	return s.get(ctx, q, false)
}

func (s *Store) get(ctx context.Context, q pgdb.Querier, forUpdate bool) (*Config, error) {
	query := `
		SELECT admin_addr, treasury_addr, pool_addr,
		       protocol_fee_pct, subject_fee_pct, referral_fee_pct,
		       curve_weight_a, curve_weight_b, curve_weight_c,
		       initial_price, sell_discount_pct, updated_at
		FROM protocol_config WHERE id = 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var c Config
	var admin, treasury, pool string
	var pf, sf, rf, wa, wb, wc, ip, sd int64
	err := q.QueryRow(ctx, query).Scan(
		&admin, &treasury, &pool, &pf, &sf, &rf, &wa, &wb, &wc, &ip, &sd, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("protocol config not initialized: %w", errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read protocol config: %w", err)
	}

	c.Admin = addr.Address(admin)
	c.Treasury = addr.Address(treasury)
	c.Pool = addr.Address(pool)
	c.Fees = fees.Percents{Protocol: uint64(pf), Subject: uint64(sf), Referral: uint64(rf)}
	c.Curve = curve.Params{
		WeightA: uint64(wa), WeightB: uint64(wb), WeightC: uint64(wc),
		InitialPrice: uint64(ip), SellDiscountPct: uint64(sd),
	}
	return &c, nil
}

// SetFees replaces the fee percentages. Admin only; the sum cap is
// revalidated here like on every other mutation path.
func (s *Store) SetFees(ctx context.Context, q pgdb.Querier, caller addr.Address, p fees.Percents) error {
	old, err := s.requireAdmin(ctx, q, caller)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%s: %w", err, errs.ErrInvalidArgument)
	}

	_, err = q.Exec(ctx, `
		UPDATE protocol_config
		SET protocol_fee_pct = $1, subject_fee_pct = $2, referral_fee_pct = $3, updated_at = NOW()
		WHERE id = 1
	`, int64(p.Protocol), int64(p.Subject), int64(p.Referral))
	if err != nil {
		return fmt.Errorf("failed to update fee percentages: %w", err)
	}

	return s.recordChange(ctx, q, caller, "fees", old.Fees, p)
}

// SetCurve replaces the curve parameters. Admin only.
func (s *Store) SetCurve(ctx context.Context, q pgdb.Querier, caller addr.Address, p curve.Params) error {
	old, err := s.requireAdmin(ctx, q, caller)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%s: %w", err, errs.ErrInvalidArgument)
	}

	_, err = q.Exec(ctx, `
		UPDATE protocol_config
		SET curve_weight_a = $1, curve_weight_b = $2, curve_weight_c = $3,
		    initial_price = $4, sell_discount_pct = $5, updated_at = NOW()
		WHERE id = 1
	`, int64(p.WeightA), int64(p.WeightB), int64(p.WeightC),
		int64(p.InitialPrice), int64(p.SellDiscountPct))
	if err != nil {
		return fmt.Errorf("failed to update curve parameters: %w", err)
	}

	return s.recordChange(ctx, q, caller, "curve", old.Curve, p)
}

// SetTreasury repoints the treasury account. Admin only.
func (s *Store) SetTreasury(ctx context.Context, q pgdb.Querier, caller, treasury addr.Address) error {
	old, err := s.requireAdmin(ctx, q, caller)
	if err != nil {
		return err
	}
	if treasury.IsZero() {
		return fmt.Errorf("treasury account is required: %w", errs.ErrInvalidArgument)
	}

	_, err = q.Exec(ctx, `
		UPDATE protocol_config SET treasury_addr = $1, updated_at = NOW() WHERE id = 1
	`, string(treasury))
	if err != nil {
		return fmt.Errorf("failed to update treasury: %w", err)
	}

	return s.recordChange(ctx, q, caller, "treasury", old.Treasury, treasury)
}

func (s *Store) requireAdmin(ctx context.Context, q pgdb.Querier, caller addr.Address) (*Config, error) {
	c, err := s.get(ctx, q, true)
	if err != nil {
		return nil, err
	}
	if c.Admin != caller {
		return nil, fmt.Errorf("account %s is not the protocol admin: %w", caller, errs.ErrUnauthorized)
	}
	return c, nil
}

func (s *Store) recordChange(ctx context.Context, q pgdb.Querier, caller addr.Address, field string, oldVal, newVal any) error {
	now := s.clock.Now().UTC()
	err := s.journal.Append(ctx, q, events.TypeConfigChanged, "", caller, events.ConfigChangedPayload{
		Field:     field,
		Old:       oldVal,
		New:       newVal,
		UpdatedBy: caller,
		Timestamp: now,
	}, now)
	if err != nil {
		return err
	}
	s.log.Info("protocol: config changed", "field", field, "by", caller)
	return nil
}
