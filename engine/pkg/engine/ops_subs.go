package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/events"
	"github.com/halcyonlabs/gatehouse/engine/pkg/fees"
	"github.com/halcyonlabs/gatehouse/engine/pkg/subs"
)

// SubscribeResult reports a settled subscription.
type SubscribeResult struct {
	Price     uint64    `json:"price"`
	Fees      fees.Legs `json:"-"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateSubscriptionTier adds a tier to the asset's catalog. Only the asset
// owner may manage tiers.
func (e *Engine) CreateSubscriptionTier(ctx context.Context, asset, caller addr.Address, name string, week, month, year uint64) error {
	return e.withTx(ctx, "create_tier", func(tx pgx.Tx) error {
		if err := e.requireOwner(ctx, tx, asset, caller); err != nil {
			return err
		}
		return e.subs.CreateTier(ctx, tx, asset, name, week, month, year)
	})
}

// UpdateSubscriptionTier replaces the prices of an existing tier. Owner
// only.
func (e *Engine) UpdateSubscriptionTier(ctx context.Context, asset, caller addr.Address, name string, week, month, year uint64) error {
	return e.withTx(ctx, "update_tier", func(tx pgx.Tx) error {
		if err := e.requireOwner(ctx, tx, asset, caller); err != nil {
			return err
		}
		return e.subs.UpdateTier(ctx, tx, asset, name, week, month, year)
	})
}

// Tiers lists the asset's tier catalog.
func (e *Engine) Tiers(ctx context.Context, asset addr.Address) ([]subs.Tier, error) {
	return e.subs.Tiers(ctx, e.pool, asset)
}

// Subscribe settles the tier price for the chosen duration and records the
// subscription. While any record exists for the pair — active or expired —
// a new subscription aborts; the subscriber must cancel first.
func (e *Engine) Subscribe(ctx context.Context, asset, subscriber addr.Address, tierName string, duration subs.Duration, referrer addr.Address) (*SubscribeResult, error) {
	var res SubscribeResult
	err := e.withTx(ctx, "subscribe", func(tx pgx.Tx) error {
		cfg, err := e.protocol.Get(ctx, tx)
		if err != nil {
			return err
		}

		tier, err := e.subs.Tier(ctx, tx, asset, tierName)
		if err != nil {
			return err
		}
		price, err := tier.PriceFor(duration)
		if err != nil {
			return err
		}

		if _, err := e.subs.Get(ctx, tx, asset, subscriber); err == nil {
			return fmt.Errorf("subscription of %s to asset %s: %w", subscriber, asset, errs.ErrAlreadyExists)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return err
		}

		beneficiary, err := e.subjectAccount(ctx, tx, asset)
		if err != nil {
			return err
		}
		legs, err := e.dist.Settle(ctx, tx, cfg.Fees,
			fees.Accounts{Treasury: cfg.Treasury, Pool: cfg.Pool},
			subscriber, beneficiary, price, referrer)
		if err != nil {
			return err
		}

		now := e.clock.Now().UTC()
		sub := subs.Subscription{
			AssetID:    asset,
			Subscriber: subscriber,
			Tier:       tierName,
			StartedAt:  now,
			ExpiresAt:  now.Add(duration.Span()),
		}
		if err := e.subs.Insert(ctx, tx, sub); err != nil {
			return err
		}

		err = e.journal.Append(ctx, tx, events.TypeTierSubscribed, asset, subscriber, events.TierSubscribedPayload{
			Subscriber:  subscriber,
			AssetID:     asset,
			Tier:        tierName,
			Duration:    string(duration),
			Price:       price,
			ProtocolFee: legs.Protocol,
			SubjectFee:  legs.Subject,
			ReferralFee: legs.Referral,
			Referrer:    referrer,
			StartedAt:   sub.StartedAt,
			ExpiresAt:   sub.ExpiresAt,
		}, now)
		if err != nil {
			return err
		}

		res = SubscribeResult{
			Price:     price,
			Fees:      legs,
			StartedAt: sub.StartedAt,
			ExpiresAt: sub.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordSettled(res.Fees, res.Price)
	e.log.Info("engine: subscribed", "asset", asset, "subscriber", subscriber,
		"tier", tierName, "duration", duration, "price", res.Price)
	return &res, nil
}

// CancelSubscription removes the pair's record. No refund.
func (e *Engine) CancelSubscription(ctx context.Context, asset, subscriber addr.Address) error {
	return e.withTx(ctx, "cancel_subscription", func(tx pgx.Tx) error {
		return e.subs.Delete(ctx, tx, asset, subscriber)
	})
}

// VerifySubscription reports whether subscriber currently holds an active
// subscription to the named tier. Expiry is computed here, at read time:
// access holds strictly before the expiry instant and is gone at it.
func (e *Engine) VerifySubscription(ctx context.Context, asset, subscriber addr.Address, tierName string) (bool, error) {
	sub, err := e.subs.Get(ctx, e.pool, asset, subscriber)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if sub.Tier != tierName {
		return false, nil
	}
	return sub.ActiveAt(e.clock.Now()), nil
}

// Subscription returns the pair's record, expired or not.
func (e *Engine) Subscription(ctx context.Context, asset, subscriber addr.Address) (*subs.Subscription, error) {
	return e.subs.Get(ctx, e.pool, asset, subscriber)
}

func (e *Engine) requireOwner(ctx context.Context, tx pgx.Tx, asset, caller addr.Address) error {
	ok, err := e.assets.IsOwner(ctx, tx, asset, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account %s does not own asset %s: %w", caller, asset, errs.ErrUnauthorized)
	}
	return nil
}
