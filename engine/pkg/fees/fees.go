// Package fees computes and settles the multi-party split applied to every
// payment: a protocol leg to the treasury, a subject leg to the asset owner,
// and an optional referral leg. Percentages are validated when the protocol
// config is mutated, not per settlement.
package fees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/pgdb"
)

// Percents holds the configured fee percentages. Their sum is capped at 100
// by the config store on every mutation path.
type Percents struct {
	Protocol uint64
	Subject  uint64
	Referral uint64
}

func (p Percents) Validate() error {
	if p.Protocol+p.Subject+p.Referral > 100 {
		return fmt.Errorf("fee percentages sum to %d, cap is 100", p.Protocol+p.Subject+p.Referral)
	}
	return nil
}

// Legs is the computed fee amounts for one settlement.
type Legs struct {
	Protocol uint64
	Subject  uint64
	Referral uint64
}

// Sum returns the total fee amount.
func (l Legs) Sum() uint64 { return l.Protocol + l.Subject + l.Referral }

// Split computes the fee legs for a gross amount with truncating integer
// division. Without a referrer the referral leg is zero regardless of the
// configured percentage. Truncation means small amounts can legitimately
// produce zero-value legs.
func Split(p Percents, gross uint64, hasReferrer bool) (Legs, error) {
	protocol, err := pctOf(gross, p.Protocol)
	if err != nil {
		return Legs{}, err
	}
	subject, err := pctOf(gross, p.Subject)
	if err != nil {
		return Legs{}, err
	}
	var referral uint64
	if hasReferrer {
		referral, err = pctOf(gross, p.Referral)
		if err != nil {
			return Legs{}, err
		}
	}
	return Legs{Protocol: protocol, Subject: subject, Referral: referral}, nil
}

func pctOf(gross, pct uint64) (uint64, error) {
	hi, lo := bits.Mul64(gross, pct)
	if hi != 0 {
		return 0, fmt.Errorf("fee amount overflows: %w", errs.ErrInvalidArgument)
	}
	return lo / 100, nil
}

// Transferrer is the value-transfer primitive the distributor drives. The
// implementation must fail a leg the sender cannot cover; the caller's
// transaction rollback then guarantees no partial payment is observable.
type Transferrer interface {
	Transfer(ctx context.Context, q pgdb.Querier, from, to addr.Address, amount uint64) error
}

// Accounts names the protocol-held destinations of a settlement.
type Accounts struct {
	Treasury addr.Address
	Pool     addr.Address
}

type DistributorConfig struct {
	Logger   *slog.Logger
	Transfer Transferrer
}

func (cfg *DistributorConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Transfer == nil {
		return errors.New("transferrer is required")
	}
	return nil
}

// Distributor executes settlement legs against the value ledger.
type Distributor struct {
	log      *slog.Logger
	transfer Transferrer
}

func NewDistributor(cfg DistributorConfig) (*Distributor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Distributor{log: cfg.Logger, transfer: cfg.Transfer}, nil
}

// Settle charges payer for a purchase: the gross amount moves to the
// protocol pool, and the fee legs are charged on top — protocol to the
// treasury, subject to the beneficiary, referral to the referrer when one is
// named. Zero-value legs are skipped. All legs run in the caller's
// transaction; the first failure aborts the whole operation.
func (d *Distributor) Settle(ctx context.Context, q pgdb.Querier, p Percents, acct Accounts, payer, beneficiary addr.Address, gross uint64, referrer addr.Address) (Legs, error) {
	legs, err := Split(p, gross, !referrer.IsZero())
	if err != nil {
		return Legs{}, err
	}

	if err := d.transfer.Transfer(ctx, q, payer, acct.Pool, gross); err != nil {
		return Legs{}, fmt.Errorf("base leg: %w", err)
	}
	if err := d.transfer.Transfer(ctx, q, payer, acct.Treasury, legs.Protocol); err != nil {
		return Legs{}, fmt.Errorf("protocol leg: %w", err)
	}
	if err := d.transfer.Transfer(ctx, q, payer, beneficiary, legs.Subject); err != nil {
		return Legs{}, fmt.Errorf("subject leg: %w", err)
	}
	if !referrer.IsZero() {
		if err := d.transfer.Transfer(ctx, q, payer, referrer, legs.Referral); err != nil {
			return Legs{}, fmt.Errorf("referral leg: %w", err)
		}
	}

	d.log.Debug("fees: settled", "payer", payer, "gross", gross,
		"protocol", legs.Protocol, "subject", legs.Subject, "referral", legs.Referral)
	return legs, nil
}

// Payout disburses a sell from the protocol pool: protocol and subject fees
// come out of the gross payment and the seller receives the remainder. Sells
// carry no referral leg.
func (d *Distributor) Payout(ctx context.Context, q pgdb.Querier, p Percents, acct Accounts, owner, seller addr.Address, gross uint64) (Legs, uint64, error) {
	legs, err := Split(p, gross, false)
	if err != nil {
		return Legs{}, 0, err
	}
	net := gross - legs.Protocol - legs.Subject

	if err := d.transfer.Transfer(ctx, q, acct.Pool, acct.Treasury, legs.Protocol); err != nil {
		return Legs{}, 0, fmt.Errorf("protocol leg: %w", err)
	}
	if err := d.transfer.Transfer(ctx, q, acct.Pool, owner, legs.Subject); err != nil {
		return Legs{}, 0, fmt.Errorf("subject leg: %w", err)
	}
	if err := d.transfer.Transfer(ctx, q, acct.Pool, seller, net); err != nil {
		return Legs{}, 0, fmt.Errorf("payout leg: %w", err)
	}

	d.log.Debug("fees: paid out", "seller", seller, "gross", gross, "net", net,
		"protocol", legs.Protocol, "subject", legs.Subject)
	return legs, net, nil
}
