// Package bank is the fungible value ledger the engine settles against. The
// engine only consumes it through the fees.Transferrer interface; the engine
// itself never creates or destroys value, it only moves it between accounts
// inside the surrounding operation's transaction.
package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/halcyonlabs/gatehouse/engine/pkg/addr"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/pgdb"
)

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

// Transfer moves amount from one account to another inside the caller's
// transaction. It fails with errs.ErrInsufficientBalance when the sender
// cannot cover the amount; the caller's rollback then discards any legs
// already applied. A zero amount is a no-op.
func (s *Store) Transfer(ctx context.Context, q pgdb.Querier, from, to addr.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if from == to {
		return nil
	}

	tag, err := q.Exec(ctx, `
		UPDATE balances
		SET amount = amount - $2, updated_at = NOW()
		WHERE addr = $1 AND amount >= $2
	`, string(from), int64(amount))
	if err != nil {
		return fmt.Errorf("failed to debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s cannot cover %d: %w", from, amount, errs.ErrInsufficientBalance)
	}

	if err := s.credit(ctx, q, to, amount); err != nil {
		return err
	}

	s.log.Debug("bank: transferred", "from", from, "to", to, "amount", amount)
	return nil
}

// Deposit credits amount to an account. Bootstrap/faucet surface, not part
// of settlement.
func (s *Store) Deposit(ctx context.Context, q pgdb.Querier, to addr.Address, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("deposit amount must be non-zero: %w", errs.ErrInvalidArgument)
	}
	return s.credit(ctx, q, to, amount)
}

func (s *Store) credit(ctx context.Context, q pgdb.Querier, to addr.Address, amount uint64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO balances (addr, amount, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (addr) DO UPDATE
		SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()
	`, string(to), int64(amount))
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", to, err)
	}
	return nil
}

// BalanceOf returns the account balance, zero for unknown accounts.
func (s *Store) BalanceOf(ctx context.Context, q pgdb.Querier, a addr.Address) (uint64, error) {
	var amount int64
	err := q.QueryRow(ctx, `SELECT amount FROM balances WHERE addr = $1`, string(a)).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read balance of %s: %w", a, err)
	}
	return uint64(amount), nil
}
