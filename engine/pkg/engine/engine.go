// Package engine composes the pricing, settlement, ledger, and registry
// stores into the public operations of the access-economy engine. Every
// operation runs as one database transaction: its row locks serialize
// concurrent work on the same asset, and any failure rolls back every
// mutation the operation performed, so no partial state is ever observable.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"log/slog"

	"github.com/halcyonlabs/gatehouse/engine/pkg/assets"
	"github.com/halcyonlabs/gatehouse/engine/pkg/bank"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/events"
	"github.com/halcyonlabs/gatehouse/engine/pkg/fees"
	"github.com/halcyonlabs/gatehouse/engine/pkg/metrics"
	"github.com/halcyonlabs/gatehouse/engine/pkg/passes"
	"github.com/halcyonlabs/gatehouse/engine/pkg/protocol"
	"github.com/halcyonlabs/gatehouse/engine/pkg/subs"
)

type Config struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Clock  clockwork.Clock
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Engine is the settlement engine facade.
type Engine struct {
	log   *slog.Logger
	pool  *pgxpool.Pool
	clock clockwork.Clock

	protocol *protocol.Store
	assets   *assets.Store
	bank     *bank.Store
	passes   *passes.Store
	mintCap  *passes.MintCap
	subs     *subs.Store
	journal  *events.Journal
	dist     *fees.Distributor
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	journal, err := events.NewJournal(events.JournalConfig{Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	protocolStore, err := protocol.NewStore(protocol.StoreConfig{
		Logger:  cfg.Logger,
		Journal: journal,
		Clock:   cfg.Clock,
	})
	if err != nil {
		return nil, err
	}
	assetStore, err := assets.NewStore(assets.StoreConfig{Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	bankStore, err := bank.NewStore(bank.StoreConfig{Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	passStore, mintCap, err := passes.NewStore(passes.StoreConfig{Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	subStore, err := subs.NewStore(subs.StoreConfig{Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	dist, err := fees.NewDistributor(fees.DistributorConfig{
		Logger:   cfg.Logger,
		Transfer: bankStore,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		log:      cfg.Logger,
		pool:     cfg.Pool,
		clock:    cfg.Clock,
		protocol: protocolStore,
		assets:   assetStore,
		bank:     bankStore,
		passes:   passStore,
		mintCap:  mintCap,
		subs:     subStore,
		journal:  journal,
		dist:     dist,
	}, nil
}

// withTx runs fn inside one transaction and records operation metrics. A
// returned error rolls back everything fn did.
func (e *Engine) withTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	start := time.Now()

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		metrics.OperationsTotal.WithLabelValues(op, opStatus(err)).Inc()
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
		return err
	}

	metrics.OperationsTotal.WithLabelValues(op, "ok").Inc()
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return nil
}

func opStatus(err error) string {
	if errs.Terminal(err) {
		return "rejected"
	}
	return "error"
}

func recordSettled(legs fees.Legs, base uint64) {
	metrics.SettledAmountTotal.WithLabelValues("base").Add(float64(base))
	metrics.SettledAmountTotal.WithLabelValues("protocol").Add(float64(legs.Protocol))
	metrics.SettledAmountTotal.WithLabelValues("subject").Add(float64(legs.Subject))
	metrics.SettledAmountTotal.WithLabelValues("referral").Add(float64(legs.Referral))
}
