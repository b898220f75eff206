// Package curve implements the bonding-curve price function. All arithmetic
// is unsigned integer with truncating division so a price computed for a
// given supply is bit-reproducible across runs and hosts; floating point is
// never used.
package curve

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// Side selects the direction being priced.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// ErrOverflow is returned when the curve arithmetic exceeds uint64. The
// engine surfaces it as an invalid-argument failure rather than saturating,
// so an over-scaled buy aborts instead of settling at a clipped price.
var ErrOverflow = errors.New("curve: price overflow")

// Params holds the curve coefficients. They live in the protocol config and
// are only mutated through admin-gated setters.
type Params struct {
	// WeightA and WeightB scale the supply factor: weighted = A*supply^C/B.
	WeightA uint64
	WeightB uint64
	// WeightC is the integer exponent applied to supply.
	WeightC uint64
	// InitialPrice is the unit price at zero supply.
	InitialPrice uint64
	// SellDiscountPct is the fixed percentage knocked off the sell side.
	SellDiscountPct uint64
}

func (p Params) Validate() error {
	if p.WeightB == 0 {
		return fmt.Errorf("curve weight B must be non-zero")
	}
	if p.InitialPrice == 0 {
		return fmt.Errorf("curve initial price must be non-zero")
	}
	if p.SellDiscountPct >= 100 {
		return fmt.Errorf("sell discount %d%% must be below 100%%", p.SellDiscountPct)
	}
	return nil
}

// Price maps (supply, side) to a unit price.
//
//	supply == 0:  InitialPrice
//	otherwise:    InitialPrice * (100 + WeightA*supply^WeightC/WeightB) / 100
//
// The sell side then takes the fixed discount, which keeps
// Price(s, Sell) < Price(s, Buy) at every supply point including zero.
func Price(p Params, supply uint64, side Side) (uint64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	unit := p.InitialPrice
	if supply > 0 {
		factor, err := pow(supply, p.WeightC)
		if err != nil {
			return 0, err
		}
		scaled, err := mul(p.WeightA, factor)
		if err != nil {
			return 0, err
		}
		weighted := scaled / p.WeightB

		base, carry := bits.Add64(100, weighted, 0)
		if carry != 0 {
			return 0, ErrOverflow
		}
		scaled, err = mul(p.InitialPrice, base)
		if err != nil {
			return 0, err
		}
		unit = scaled / 100
	}

	if side == Sell {
		scaled, err := mul(unit, 100-p.SellDiscountPct)
		if err != nil {
			return 0, err
		}
		unit = scaled / 100
	}
	return unit, nil
}

// Cost prices amount units at the given supply point. The buy side prices at
// the pre-mint supply; the sell side is expected to pass the post-burn
// supply, so a buy followed by a sell of the same unit lands on the same
// curve point.
func Cost(p Params, supply, amount uint64, side Side) (unit, gross uint64, err error) {
	unit, err = Price(p, supply, side)
	if err != nil {
		return 0, 0, err
	}
	gross, err = mul(unit, amount)
	if err != nil {
		return 0, 0, err
	}
	// Unit counts and values persist in BIGINT columns; anything past int64
	// is unrepresentable downstream.
	if amount > math.MaxInt64 || gross > math.MaxInt64 {
		return 0, 0, ErrOverflow
	}
	return unit, gross, nil
}

func mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

func pow(base, exp uint64) (uint64, error) {
	result := uint64(1)
	for i := uint64(0); i < exp; i++ {
		var err error
		result, err = mul(result, base)
		if err != nil {
			return 0, err
		}
	}
	return result, nil
}
