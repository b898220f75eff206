package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/gatehouse/engine/pkg/curve"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/events"
	"github.com/halcyonlabs/gatehouse/engine/pkg/fees"
	"github.com/halcyonlabs/gatehouse/engine/pkg/protocol"
)

func TestGatehouse_Engine_InitProtocol(t *testing.T) {
	t.Parallel()

	t.Run("second init is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)

		err := env.eng.InitProtocol(t.Context(), protocol.Config{
			Admin:    testAddr(0x50),
			Treasury: testAddr(0x51),
			Pool:     testAddr(0x52),
			Fees:     fees.Percents{Protocol: 1, Subject: 1, Referral: 1},
			Curve:    curve.Params{WeightA: 1, WeightB: 1, WeightC: 1, InitialPrice: 1},
		})
		require.ErrorIs(t, err, errs.ErrAlreadyExists)

		// the original config is untouched
		cfg, err := env.eng.ProtocolConfig(t.Context())
		require.NoError(t, err)
		require.Equal(t, env.admin, cfg.Admin)
		require.Equal(t, uint64(5), cfg.Fees.Protocol)
	})
}

func TestGatehouse_Engine_SetFees(t *testing.T) {
	t.Parallel()

	t.Run("admin updates the fee percentages", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		require.NoError(t, env.eng.SetFees(ctx, env.admin, fees.Percents{Protocol: 10, Subject: 20, Referral: 5}))

		cfg, err := env.eng.ProtocolConfig(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(10), cfg.Fees.Protocol)
		require.Equal(t, uint64(20), cfg.Fees.Subject)
		require.Equal(t, uint64(5), cfg.Fees.Referral)

		evs, err := env.eng.Events(ctx, 0, 100)
		require.NoError(t, err)
		require.Len(t, evs, 1)
		require.Equal(t, events.TypeConfigChanged, evs[0].Type)
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)

		err := env.eng.SetFees(t.Context(), testAddr(0x53), fees.Percents{Protocol: 1})
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	})

	t.Run("percentages above one hundred are rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)

		err := env.eng.SetFees(t.Context(), env.admin, fees.Percents{Protocol: 50, Subject: 50, Referral: 1})
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestGatehouse_Engine_SetCurve(t *testing.T) {
	t.Parallel()

	t.Run("admin updates the curve", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		require.NoError(t, env.eng.SetCurve(ctx, env.admin, curve.Params{
			WeightA:         1,
			WeightB:         1,
			WeightC:         1,
			InitialPrice:    42,
			SellDiscountPct: 5,
		}))

		state, err := env.eng.PassState(ctx, testAddr(0x54))
		require.NoError(t, err)
		require.Equal(t, uint64(42), state.NextBuyPrice)
	})

	t.Run("degenerate parameters are rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)

		err := env.eng.SetCurve(t.Context(), env.admin, curve.Params{WeightB: 0, InitialPrice: 1})
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)

		err := env.eng.SetCurve(t.Context(), testAddr(0x55), curve.Params{WeightB: 1, InitialPrice: 1})
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	})
}

func TestGatehouse_Engine_SetTreasury(t *testing.T) {
	t.Parallel()

	env := newTestEngine(t)
	ctx := t.Context()
	next := testAddr(0x56)

	require.ErrorIs(t, env.eng.SetTreasury(ctx, testAddr(0x57), next), errs.ErrUnauthorized)

	require.NoError(t, env.eng.SetTreasury(ctx, env.admin, next))
	cfg, err := env.eng.ProtocolConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, next, cfg.Treasury)
}

func TestGatehouse_Engine_Assets(t *testing.T) {
	t.Parallel()

	t.Run("register and transfer ownership", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x58)
		owner := testAddr(0x59)
		next := testAddr(0x5A)

		require.NoError(t, env.eng.RegisterAsset(ctx, asset, owner, "asset"))

		got, err := env.eng.AssetOwner(ctx, asset)
		require.NoError(t, err)
		require.Equal(t, owner, got)

		require.ErrorIs(t, env.eng.TransferAsset(ctx, asset, next, next), errs.ErrUnauthorized)

		require.NoError(t, env.eng.TransferAsset(ctx, asset, owner, next))
		got, err = env.eng.AssetOwner(ctx, asset)
		require.NoError(t, err)
		require.Equal(t, next, got)
	})

	t.Run("duplicate registration is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)
		ctx := t.Context()

		asset := testAddr(0x5B)
		require.NoError(t, env.eng.RegisterAsset(ctx, asset, testAddr(0x5C), "asset"))
		err := env.eng.RegisterAsset(ctx, asset, testAddr(0x5D), "again")
		require.ErrorIs(t, err, errs.ErrAlreadyExists)
	})

	t.Run("unknown asset has no owner", func(t *testing.T) {
		t.Parallel()
		env := newTestEngine(t)

		_, err := env.eng.AssetOwner(t.Context(), testAddr(0x5E))
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestGatehouse_Engine_Bank(t *testing.T) {
	t.Parallel()

	env := newTestEngine(t)
	ctx := t.Context()
	account := testAddr(0x5F)

	bal, err := env.eng.BalanceOf(ctx, account)
	require.NoError(t, err)
	require.Equal(t, uint64(0), bal)

	require.NoError(t, env.eng.Deposit(ctx, account, 250))
	require.NoError(t, env.eng.Deposit(ctx, account, 250))

	bal, err = env.eng.BalanceOf(ctx, account)
	require.NoError(t, err)
	require.Equal(t, uint64(500), bal)

	err = env.eng.Deposit(ctx, account, uint64(math.MaxInt64)+1)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	bal, err = env.eng.BalanceOf(ctx, account)
	require.NoError(t, err)
	require.Equal(t, uint64(500), bal)
}

func TestGatehouse_Engine_Events_Paging(t *testing.T) {
	t.Parallel()

	env := newTestEngine(t)
	ctx := t.Context()

	buyer := testAddr(0x60)
	env.fund(t, buyer, 100_000)
	for i := 0; i < 5; i++ {
		_, err := env.eng.BuyPass(ctx, testAddr(0x61), buyer, 1, "")
		require.NoError(t, err)
	}

	all, err := env.eng.Events(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		require.Greater(t, all[i].Seq, all[i-1].Seq)
	}

	page, err := env.eng.Events(ctx, all[1].Seq, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, all[2].Seq, page[0].Seq)
	require.Equal(t, all[3].Seq, page[1].Seq)
}
