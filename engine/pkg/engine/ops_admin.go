package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/curve"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/events"
	"github.com/halcyonlabs/gatehouse/engine/pkg/fees"
	"github.com/halcyonlabs/gatehouse/engine/pkg/protocol"
)

// InitProtocol bootstraps the protocol config. A second call aborts with
// errs.ErrAlreadyExists rather than overwriting the existing config.
func (e *Engine) InitProtocol(ctx context.Context, cfg protocol.Config) error {
	return e.withTx(ctx, "init_protocol", func(tx pgx.Tx) error {
		return e.protocol.Init(ctx, tx, cfg)
	})
}

// ProtocolConfig returns the current protocol configuration.
func (e *Engine) ProtocolConfig(ctx context.Context) (*protocol.Config, error) {
	return e.protocol.Get(ctx, e.pool)
}

// SetFees replaces the fee percentages. Admin only.
func (e *Engine) SetFees(ctx context.Context, caller addr.Address, p fees.Percents) error {
	return e.withTx(ctx, "set_fees", func(tx pgx.Tx) error {
		return e.protocol.SetFees(ctx, tx, caller, p)
	})
}

// SetCurve replaces the curve parameters. Admin only.
func (e *Engine) SetCurve(ctx context.Context, caller addr.Address, p curve.Params) error {
	return e.withTx(ctx, "set_curve", func(tx pgx.Tx) error {
		return e.protocol.SetCurve(ctx, tx, caller, p)
	})
}

// SetTreasury repoints the treasury account. Admin only.
func (e *Engine) SetTreasury(ctx context.Context, caller, treasury addr.Address) error {
	return e.withTx(ctx, "set_treasury", func(tx pgx.Tx) error {
		return e.protocol.SetTreasury(ctx, tx, caller, treasury)
	})
}

// RegisterAsset records an asset identity and its owning account.
func (e *Engine) RegisterAsset(ctx context.Context, asset, owner addr.Address, label string) error {
	return e.withTx(ctx, "register_asset", func(tx pgx.Tx) error {
		return e.assets.Register(ctx, tx, asset, owner, label)
	})
}

// TransferAsset hands asset ownership to a new account. Only the current
// owner may transfer.
func (e *Engine) TransferAsset(ctx context.Context, asset, caller, newOwner addr.Address) error {
	return e.withTx(ctx, "transfer_asset", func(tx pgx.Tx) error {
		return e.assets.TransferOwnership(ctx, tx, asset, caller, newOwner)
	})
}

// AssetOwner returns the registered owner of the asset.
func (e *Engine) AssetOwner(ctx context.Context, asset addr.Address) (addr.Address, error) {
	return e.assets.Owner(ctx, e.pool, asset)
}

// IsAssetOwner reports whether account owns the asset.
func (e *Engine) IsAssetOwner(ctx context.Context, asset, account addr.Address) (bool, error) {
	return e.assets.IsOwner(ctx, e.pool, asset, account)
}

// Deposit credits value to an account. Bootstrap surface for the value
// ledger; not part of settlement.
func (e *Engine) Deposit(ctx context.Context, to addr.Address, amount uint64) error {
	if amount > math.MaxInt64 {
		return fmt.Errorf("deposit amount %d exceeds ledger range: %w", amount, errs.ErrInvalidArgument)
	}
	return e.withTx(ctx, "deposit", func(tx pgx.Tx) error {
		return e.bank.Deposit(ctx, tx, to, amount)
	})
}

// BalanceOf returns an account's value balance.
func (e *Engine) BalanceOf(ctx context.Context, account addr.Address) (uint64, error) {
	return e.bank.BalanceOf(ctx, e.pool, account)
}

// Events pages the journal: up to limit events after the given sequence
// number, in order.
func (e *Engine) Events(ctx context.Context, afterSeq int64, limit int) ([]events.Event, error) {
	return e.journal.List(ctx, e.pool, afterSeq, limit)
}
