package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/curve"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/events"
	"github.com/halcyonlabs/gatehouse/engine/pkg/fees"
	"github.com/halcyonlabs/gatehouse/engine/pkg/pgdb"
)

// BuyResult reports a settled pass purchase.
type BuyResult struct {
	UnitPrice uint64    `json:"unit_price"`
	GrossCost uint64    `json:"gross_cost"`
	Fees      fees.Legs `json:"-"`
	Supply    uint64    `json:"supply"`
}

// SellResult reports a settled pass sale.
type SellResult struct {
	UnitPrice   uint64    `json:"unit_price"`
	GrossPayout uint64    `json:"gross_payout"`
	NetPayout   uint64    `json:"net_payout"`
	Fees        fees.Legs `json:"-"`
	Supply      uint64    `json:"supply"`
}

// PassState is the read-only pricing view of an asset.
type PassState struct {
	AssetID       addr.Address `json:"asset_id"`
	Supply        uint64       `json:"supply"`
	LastPrice     uint64       `json:"last_price"`
	NextBuyPrice  uint64       `json:"next_buy_price"`
	NextSellPrice uint64       `json:"next_sell_price"`
}

// BuyPass mints amount passes of the asset to buyer. The unit price is taken
// at the pre-mint supply; the buyer pays the gross cost into the protocol
// pool plus the fee legs on top.
func (e *Engine) BuyPass(ctx context.Context, asset, buyer addr.Address, amount uint64, referrer addr.Address) (*BuyResult, error) {
	if amount == 0 {
		return nil, fmt.Errorf("buy amount must be non-zero: %w", errs.ErrInvalidArgument)
	}

	var res BuyResult
	err := e.withTx(ctx, "buy_pass", func(tx pgx.Tx) error {
		cfg, err := e.protocol.Get(ctx, tx)
		if err != nil {
			return err
		}

		pc, err := e.passes.LockOrCreate(ctx, tx, asset)
		if err != nil {
			return err
		}
		newSupply := pc.Supply + amount
		if newSupply < pc.Supply {
			return fmt.Errorf("supply overflow: %w", errs.ErrInvalidArgument)
		}

		unit, gross, err := curve.Cost(cfg.Curve, pc.Supply, amount, curve.Buy)
		if err != nil {
			return fmt.Errorf("%s: %w", err, errs.ErrInvalidArgument)
		}

		beneficiary, err := e.subjectAccount(ctx, tx, asset)
		if err != nil {
			return err
		}
		legs, err := e.dist.Settle(ctx, tx, cfg.Fees,
			fees.Accounts{Treasury: cfg.Treasury, Pool: cfg.Pool},
			buyer, beneficiary, gross, referrer)
		if err != nil {
			return err
		}

		if err := e.passes.Mint(ctx, tx, e.mintCap, asset, buyer, amount); err != nil {
			return err
		}
		if err := e.passes.Commit(ctx, tx, asset, newSupply, unit); err != nil {
			return err
		}

		now := e.clock.Now().UTC()
		err = e.journal.Append(ctx, tx, events.TypePurchase, asset, buyer, events.PurchasePayload{
			Buyer:       buyer,
			AssetID:     asset,
			Amount:      amount,
			UnitPrice:   unit,
			GrossCost:   gross,
			ProtocolFee: legs.Protocol,
			SubjectFee:  legs.Subject,
			ReferralFee: legs.Referral,
			Referrer:    referrer,
			Supply:      newSupply,
			Timestamp:   now,
		}, now)
		if err != nil {
			return err
		}

		res = BuyResult{UnitPrice: unit, GrossCost: gross, Fees: legs, Supply: newSupply}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordSettled(res.Fees, res.GrossCost)
	e.log.Info("engine: pass purchase", "asset", asset, "buyer", buyer,
		"amount", amount, "unit_price", res.UnitPrice, "supply", res.Supply)
	return &res, nil
}

// SellPass burns amount passes of the asset held by seller and pays out from
// the protocol pool. The unit price is taken at the post-burn supply, the
// mirror of the buy side's pre-mint pricing.
func (e *Engine) SellPass(ctx context.Context, asset, seller addr.Address, amount uint64) (*SellResult, error) {
	if amount == 0 {
		return nil, fmt.Errorf("sell amount must be non-zero: %w", errs.ErrInvalidArgument)
	}

	var res SellResult
	err := e.withTx(ctx, "sell_pass", func(tx pgx.Tx) error {
		cfg, err := e.protocol.Get(ctx, tx)
		if err != nil {
			return err
		}

		pc, err := e.passes.Lock(ctx, tx, asset)
		if err != nil {
			return err
		}
		if amount > pc.Supply {
			return fmt.Errorf("sell of %d exceeds supply %d: %w", amount, pc.Supply, errs.ErrInvalidArgument)
		}
		newSupply := pc.Supply - amount

		unit, gross, err := curve.Cost(cfg.Curve, newSupply, amount, curve.Sell)
		if err != nil {
			return fmt.Errorf("%s: %w", err, errs.ErrInvalidArgument)
		}

		if err := e.passes.Burn(ctx, tx, e.mintCap, asset, seller, amount); err != nil {
			return err
		}

		beneficiary, err := e.subjectAccount(ctx, tx, asset)
		if err != nil {
			return err
		}
		legs, net, err := e.dist.Payout(ctx, tx, cfg.Fees,
			fees.Accounts{Treasury: cfg.Treasury, Pool: cfg.Pool},
			beneficiary, seller, gross)
		if err != nil {
			return err
		}

		if err := e.passes.Commit(ctx, tx, asset, newSupply, unit); err != nil {
			return err
		}

		now := e.clock.Now().UTC()
		err = e.journal.Append(ctx, tx, events.TypeSell, asset, seller, events.SellPayload{
			Seller:      seller,
			AssetID:     asset,
			Amount:      amount,
			UnitPrice:   unit,
			GrossPayout: gross,
			ProtocolFee: legs.Protocol,
			SubjectFee:  legs.Subject,
			NetPayout:   net,
			Supply:      newSupply,
			Timestamp:   now,
		}, now)
		if err != nil {
			return err
		}

		res = SellResult{UnitPrice: unit, GrossPayout: gross, NetPayout: net, Fees: legs, Supply: newSupply}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordSettled(res.Fees, 0)
	e.log.Info("engine: pass sale", "asset", asset, "seller", seller,
		"amount", amount, "unit_price", res.UnitPrice, "supply", res.Supply)
	return &res, nil
}

// VerifyPassOwnership reports whether holder holds at least one pass of the
// asset.
func (e *Engine) VerifyPassOwnership(ctx context.Context, holder, asset addr.Address) (bool, error) {
	units, err := e.passes.Holdings(ctx, e.pool, asset, holder)
	if err != nil {
		return false, err
	}
	return units > 0, nil
}

// PassHoldings returns how many passes of the asset holder holds.
func (e *Engine) PassHoldings(ctx context.Context, asset, holder addr.Address) (uint64, error) {
	return e.passes.Holdings(ctx, e.pool, asset, holder)
}

// PassState returns the asset's supply and current buy/sell pricing. Assets
// with no passes issued yet price at the curve's initial point.
func (e *Engine) PassState(ctx context.Context, asset addr.Address) (*PassState, error) {
	cfg, err := e.protocol.Get(ctx, e.pool)
	if err != nil {
		return nil, err
	}

	state := PassState{AssetID: asset}
	pc, err := e.passes.Get(ctx, e.pool, asset)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	if pc != nil {
		state.Supply = pc.Supply
		state.LastPrice = pc.LastPrice
	}

	state.NextBuyPrice, err = curve.Price(cfg.Curve, state.Supply, curve.Buy)
	if err != nil {
		return nil, err
	}
	state.NextSellPrice, err = curve.Price(cfg.Curve, state.Supply, curve.Sell)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// subjectAccount resolves where the subject fee goes: the registered owner
// of the asset, or the asset address itself when no identity is registered
// (the asset identifier is itself an account).
func (e *Engine) subjectAccount(ctx context.Context, q pgdb.Querier, asset addr.Address) (addr.Address, error) {
	owner, err := e.assets.Owner(ctx, q, asset)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return asset, nil
		}
		return "", err
	}
	return owner, nil
}
