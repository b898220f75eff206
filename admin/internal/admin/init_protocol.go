package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/halcyonlabs/gatehouse/engine/pkg/engine"
	"github.com/halcyonlabs/gatehouse/engine/pkg/errs"
	"github.com/halcyonlabs/gatehouse/engine/pkg/pgdb"
	"github.com/halcyonlabs/gatehouse/engine/pkg/protocol"
)

// InitProtocol bootstraps the protocol config row. A config that already
// exists is reported, not overwritten.
func InitProtocol(ctx context.Context, log *slog.Logger, connStr string, cfg protocol.Config) error {
	pool, err := pgdb.Connect(ctx, pgdb.Config{Logger: log, ConnStr: connStr})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	eng, err := engine.New(engine.Config{Logger: log, Pool: pool})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	if err := eng.InitProtocol(ctx, cfg); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			existing, getErr := eng.ProtocolConfig(ctx)
			if getErr != nil {
				return getErr
			}
			fmt.Printf("Protocol config already initialized (admin %s). Nothing to do.\n", existing.Admin)
			return nil
		}
		return err
	}

	log.Info("admin: protocol config initialized",
		"admin", cfg.Admin, "treasury", cfg.Treasury, "pool", cfg.Pool)
	return nil
}
