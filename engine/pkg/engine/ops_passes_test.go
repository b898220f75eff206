package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/events"
)

func TestGatehouse_Engine_BuyPass(t *testing.T) {
	t.Parallel()

	t.Run("first buy settles at the initial price", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x01)
		buyer := testAddr(0x02)
		owner := testAddr(0x03)
		referrer := testAddr(0x04)

		require.NoError(t, env.eng.RegisterAsset(ctx, asset, owner, "asset one"))
		env.fund(t, buyer, 1_000)

		res, err := env.eng.BuyPass(ctx, asset, buyer, 1, referrer)
		require.NoError(t, err)
		require.Equal(t, uint64(100), res.UnitPrice)
		require.Equal(t, uint64(100), res.GrossCost)
		require.Equal(t, uint64(5), res.Fees.Protocol)
		require.Equal(t, uint64(5), res.Fees.Subject)
		require.Equal(t, uint64(2), res.Fees.Referral)
		require.Equal(t, uint64(1), res.Supply)

		// gross to the pool, fee legs on top
		require.Equal(t, uint64(1_000-112), env.balance(t, buyer))
		require.Equal(t, uint64(100), env.balance(t, env.pool))
		require.Equal(t, uint64(5), env.balance(t, env.treasury))
		require.Equal(t, uint64(5), env.balance(t, owner))
		require.Equal(t, uint64(2), env.balance(t, referrer))

		units, err := env.eng.PassHoldings(ctx, asset, buyer)
		require.NoError(t, err)
		require.Equal(t, uint64(1), units)

		ok, err := env.eng.VerifyPassOwnership(ctx, buyer, asset)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("price climbs with supply", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x05)
		buyer := testAddr(0x06)
		env.fund(t, buyer, 10_000)

		first, err := env.eng.BuyPass(ctx, asset, buyer, 1, addr.Address(""))
		require.NoError(t, err)
		require.Equal(t, uint64(100), first.UnitPrice)

		second, err := env.eng.BuyPass(ctx, asset, buyer, 1, addr.Address(""))
		require.NoError(t, err)
		require.Equal(t, uint64(101), second.UnitPrice)
		require.Equal(t, uint64(2), second.Supply)

		state, err := env.eng.PassState(ctx, asset)
		require.NoError(t, err)
		require.Equal(t, uint64(2), state.Supply)
		require.Equal(t, uint64(101), state.LastPrice)
		require.Equal(t, uint64(106), state.NextBuyPrice)
		require.Equal(t, uint64(95), state.NextSellPrice)
	})

	t.Run("no referrer means no referral leg", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x07)
		buyer := testAddr(0x08)
		env.fund(t, buyer, 1_000)

		res, err := env.eng.BuyPass(ctx, asset, buyer, 1, addr.Address(""))
		require.NoError(t, err)
		require.Equal(t, uint64(0), res.Fees.Referral)
		require.Equal(t, uint64(1_000-110), env.balance(t, buyer))
	})

	t.Run("unregistered asset pays the subject fee to the asset address", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x09)
		buyer := testAddr(0x0A)
		env.fund(t, buyer, 1_000)

		_, err := env.eng.BuyPass(ctx, asset, buyer, 1, addr.Address(""))
		require.NoError(t, err)
		require.Equal(t, uint64(5), env.balance(t, asset))
	})

	t.Run("zero amount is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)

		_, err := env.eng.BuyPass(t.Context(), testAddr(0x0B), testAddr(0x0C), 0, addr.Address(""))
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("amount beyond ledger range is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)

		asset, buyer := testAddr(0x3A), testAddr(0x3B)
		env.fund(t, buyer, 1_000)

		_, err := env.eng.BuyPass(t.Context(), asset, buyer, uint64(math.MaxInt64)+1, addr.Address(""))
		require.ErrorIs(t, err, errs.ErrInvalidArgument)

		state, err := env.eng.PassState(t.Context(), asset)
		require.NoError(t, err)
		require.Equal(t, uint64(0), state.Supply)
		require.Equal(t, uint64(1_000), env.balance(t, buyer))
	})

	t.Run("insufficient balance rolls back every mutation", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x0D)
		buyer := testAddr(0x0E)
		// enough for the base leg and protocol leg, not the subject leg
		env.fund(t, buyer, 105)

		_, err := env.eng.BuyPass(ctx, asset, buyer, 1, addr.Address(""))
		require.ErrorIs(t, err, errs.ErrInsufficientBalance)

		require.Equal(t, uint64(105), env.balance(t, buyer))
		require.Equal(t, uint64(0), env.balance(t, env.pool))
		require.Equal(t, uint64(0), env.balance(t, env.treasury))

		state, err := env.eng.PassState(ctx, asset)
		require.NoError(t, err)
		require.Equal(t, uint64(0), state.Supply)

		units, err := env.eng.PassHoldings(ctx, asset, buyer)
		require.NoError(t, err)
		require.Equal(t, uint64(0), units)

		evs, err := env.eng.Events(ctx, 0, 100)
		require.NoError(t, err)
		require.Empty(t, evs)
	})

	t.Run("purchase is journaled", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x0F)
		buyer := testAddr(0x10)
		env.fund(t, buyer, 1_000)

		_, err := env.eng.BuyPass(ctx, asset, buyer, 2, addr.Address(""))
		require.NoError(t, err)

		evs, err := env.eng.Events(ctx, 0, 100)
		require.NoError(t, err)
		require.Len(t, evs, 1)
		require.Equal(t, events.TypePurchase, evs[0].Type)
		require.Equal(t, asset, evs[0].AssetID)
		require.Equal(t, buyer, evs[0].Actor)
	})
}

func TestGatehouse_Engine_SellPass(t *testing.T) {
	t.Parallel()

	t.Run("sell pays out net of fees from the pool", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x11)
		trader := testAddr(0x12)
		owner := testAddr(0x13)
		require.NoError(t, env.eng.RegisterAsset(ctx, asset, owner, "asset"))
		env.fund(t, trader, 1_000)

		_, err := env.eng.BuyPass(ctx, asset, trader, 2, addr.Address(""))
		require.NoError(t, err)
		// gross 200 in the pool, trader paid 220
		require.Equal(t, uint64(780), env.balance(t, trader))

		res, err := env.eng.SellPass(ctx, asset, trader, 1)
		require.NoError(t, err)
		// sell prices at the post-burn supply of 1: 101 discounted to 90
		require.Equal(t, uint64(90), res.UnitPrice)
		require.Equal(t, uint64(90), res.GrossPayout)
		require.Equal(t, uint64(4), res.Fees.Protocol)
		require.Equal(t, uint64(4), res.Fees.Subject)
		require.Equal(t, uint64(0), res.Fees.Referral)
		require.Equal(t, uint64(82), res.NetPayout)
		require.Equal(t, uint64(1), res.Supply)

		require.Equal(t, uint64(780+82), env.balance(t, trader))
		require.Equal(t, uint64(200-90), env.balance(t, env.pool))
		require.Equal(t, uint64(10+4), env.balance(t, env.treasury))
		require.Equal(t, uint64(10+4), env.balance(t, owner))

		units, err := env.eng.PassHoldings(ctx, asset, trader)
		require.NoError(t, err)
		require.Equal(t, uint64(1), units)
	})

	t.Run("sell below buy at the same supply point", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x14)
		trader := testAddr(0x15)
		env.fund(t, trader, 1_000)

		buy, err := env.eng.BuyPass(ctx, asset, trader, 1, addr.Address(""))
		require.NoError(t, err)
		sell, err := env.eng.SellPass(ctx, asset, trader, 1)
		require.NoError(t, err)
		require.Less(t, sell.UnitPrice, buy.UnitPrice)
		require.Equal(t, uint64(0), sell.Supply)
	})

	t.Run("selling more than the supply is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x16)
		trader := testAddr(0x17)
		env.fund(t, trader, 1_000)

		_, err := env.eng.BuyPass(ctx, asset, trader, 1, addr.Address(""))
		require.NoError(t, err)

		_, err = env.eng.SellPass(ctx, asset, trader, 2)
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("sell against an asset with no passes", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)

		_, err := env.eng.SellPass(t.Context(), testAddr(0x18), testAddr(0x19), 1)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("seller without holdings cannot sell", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x1A)
		buyer := testAddr(0x1B)
		other := testAddr(0x1C)
		env.fund(t, buyer, 1_000)

		_, err := env.eng.BuyPass(ctx, asset, buyer, 1, addr.Address(""))
		require.NoError(t, err)

		_, err = env.eng.SellPass(ctx, asset, other, 1)
		require.ErrorIs(t, err, errs.ErrInsufficientBalance)
	})

	t.Run("zero amount is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)

		_, err := env.eng.SellPass(t.Context(), testAddr(0x1D), testAddr(0x1E), 0)
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestGatehouse_Engine_BuyPass_ConcurrentBuysSerialize(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)
	ctx := t.Context()

	asset := testAddr(0x45)
	const buyers = 8

	funded := make([]addr.Address, buyers)
	for i := range funded {
		funded[i] = testAddr(byte(0x46 + i))
		env.fund(t, funded[i], 1_000_000)
	}

	// row locks on the pass config serialize the writes; every buy must land
	// on a distinct supply point
	g, gctx := errgroup.WithContext(ctx)
	for _, buyer := range funded {
		g.Go(func() error {
			_, err := env.eng.BuyPass(gctx, asset, buyer, 1, addr.Address(""))
			return err
		})
	}
	require.NoError(t, g.Wait())

	state, err := env.eng.PassState(ctx, asset)
	require.NoError(t, err)
	require.Equal(t, uint64(buyers), state.Supply)

	for _, buyer := range funded {
		units, err := env.eng.PassHoldings(ctx, asset, buyer)
		require.NoError(t, err)
		require.Equal(t, uint64(1), units)
	}

	evs, err := env.eng.Events(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, evs, buyers)
}

func TestGatehouse_Engine_PassState_EmptyAsset(t *testing.T) {
	t.Parallel()
	env := newTestEngine(t)

	state, err := env.eng.PassState(t.Context(), testAddr(0x1F))
	require.NoError(t, err)
	require.Equal(t, uint64(0), state.Supply)
	require.Equal(t, uint64(0), state.LastPrice)
	require.Equal(t, uint64(100), state.NextBuyPrice)
	require.Equal(t, uint64(90), state.NextSellPrice)
}
